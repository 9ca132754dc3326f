package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"panchayat-connect/internal/models"
	"panchayat-connect/internal/repository"
)

type fakeReports struct {
	mu        sync.Mutex
	byID      map[string]*models.Report
	teams     *fakeTeams
	createErr error
	// conflicts makes the next n updates lose the version race.
	conflicts int
	updates   int
}

func newFakeReports(teams *fakeTeams) *fakeReports {
	return &fakeReports{byID: map[string]*models.Report{}, teams: teams}
}

func (f *fakeReports) put(r *models.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[r.ID] = r.Clone()
}

func (f *fakeReports) withTeam(r *models.Report) *models.Report {
	c := r.Clone()
	c.AssignedTeam, c.AssignedTeamName = "", ""
	if c.AssignedTeamID != nil && f.teams != nil {
		if t := f.teams.byID[*c.AssignedTeamID]; t != nil {
			c.AssignedTeam, c.AssignedTeamName = t.Code, t.Name
		}
	}
	return c
}

func (f *fakeReports) Create(_ context.Context, r *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if existing.TrackingID == r.TrackingID {
			return repository.ErrTrackingIDTaken
		}
	}
	f.byID[r.ID] = r.Clone()
	return nil
}

func (f *fakeReports) TrackingIDExists(_ context.Context, trackingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.TrackingID == trackingID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReports) GetByID(_ context.Context, id string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return f.withTeam(r), nil
}

func (f *fakeReports) GetByTrackingID(_ context.Context, trackingID string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.TrackingID == trackingID {
			return f.withTeam(r), nil
		}
	}
	return nil, nil
}

func (f *fakeReports) List(_ context.Context, opts repository.ListOptions) ([]*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Report
	for _, r := range f.byID {
		if opts.TeamID != nil && (r.AssignedTeamID == nil || *r.AssignedTeamID != *opts.TeamID) {
			continue
		}
		out = append(out, f.withTeam(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeReports) Update(_ context.Context, r *models.Report, expectedVersion int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	stored, ok := f.byID[r.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	if f.conflicts > 0 {
		f.conflicts--
		stored.Version++
		return repository.ErrVersionConflict
	}
	next := r.Clone()
	next.Contact = stored.Contact
	next.Version = expectedVersion + 1
	f.byID[r.ID] = next
	r.Version = next.Version
	return nil
}

type fakeTeams struct {
	byID map[int64]*models.Team
}

func defaultTeams() *fakeTeams {
	teams := []*models.Team{
		{ID: 1, Code: models.TeamRoads, Name: "Roads Team"},
		{ID: 2, Code: models.TeamWater, Name: "Waterworks Team"},
		{ID: 3, Code: models.TeamElectricity, Name: "Electricity Team"},
		{ID: 4, Code: models.TeamSanitation, Name: "Sanitation Team"},
		{ID: 5, Code: models.TeamGeneral, Name: "General Maintenance"},
	}
	f := &fakeTeams{byID: map[int64]*models.Team{}}
	for _, t := range teams {
		f.byID[t.ID] = t
	}
	return f
}

func (f *fakeTeams) List(context.Context) ([]*models.Team, error) {
	var out []*models.Team
	for _, t := range f.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeTeams) GetByID(_ context.Context, id int64) (*models.Team, error) {
	return f.byID[id], nil
}

func (f *fakeTeams) GetByCode(_ context.Context, code models.TeamCode) (*models.Team, error) {
	for _, t := range f.byID {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTeams) SetTelegramChatID(_ context.Context, id int64, chatID *int64) (*models.Team, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	t.TelegramChatID = chatID
	return t, nil
}

type fakeOrphans struct {
	mu       sync.Mutex
	recorded []string
}

func (f *fakeOrphans) Record(_ context.Context, objectName, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, objectName)
	return nil
}

func (f *fakeOrphans) ListDue(context.Context, int, int) ([]repository.OrphanedPhoto, error) {
	return nil, nil
}

func (f *fakeOrphans) Delete(context.Context, int64) error { return nil }

func (f *fakeOrphans) MarkFailed(context.Context, int64, string) error { return nil }

type fakePhotos struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
	// failAfter makes uploads fail once this many have succeeded (<0 never).
	failAfter int
	uploads   int
}

func newFakePhotos() *fakePhotos {
	return &fakePhotos{objects: map[string][]byte{}, failAfter: -1}
}

func (f *fakePhotos) EnsureBucket(context.Context) error { return nil }

func (f *fakePhotos) Upload(_ context.Context, name string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil || (f.failAfter >= 0 && f.uploads >= f.failAfter) {
		return "", errors.New("bucket unavailable")
	}
	f.uploads++
	f.objects[name] = data
	return "https://cdn.test/issue-photos/" + name, nil
}

func (f *fakePhotos) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, name)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.ReportEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e models.ReportEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *fakePublisher) Close() {}

func (f *fakePublisher) types() []models.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.EventType
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

// sequence returns tracking ids in order, then keeps repeating the last one.
func sequence(ids ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if len(ids) == 0 {
			return "", fmt.Errorf("no ids")
		}
		id := ids[min(i, len(ids)-1)]
		i++
		return id, nil
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeAuthRepo struct {
	users   map[string]*models.User
	revoked map[string]time.Time
	nextID  int64
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: map[string]*models.User{}, revoked: map[string]time.Time{}}
}

func (f *fakeAuthRepo) CreateUser(_ context.Context, u *models.User) error {
	if _, ok := f.users[u.Email]; ok {
		return repository.ErrEmailTaken
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	stored := *u
	f.users[u.Email] = &stored
	return nil
}

func (f *fakeAuthRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.users[email], nil
}

func (f *fakeAuthRepo) CountUsersByRole(_ context.Context, role models.Role) (int, error) {
	n := 0
	for _, u := range f.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (f *fakeAuthRepo) RevokeToken(_ context.Context, id string, exp time.Time) error {
	f.revoked[id] = exp
	return nil
}

func (f *fakeAuthRepo) IsTokenRevoked(_ context.Context, id string) (bool, error) {
	_, ok := f.revoked[id]
	return ok, nil
}

func (f *fakeAuthRepo) PurgeExpiredTokens(context.Context, time.Time) (int64, error) { return 0, nil }
