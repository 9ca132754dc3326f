package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"panchayat-connect/internal/crypto"
	"panchayat-connect/internal/events"
	"panchayat-connect/internal/geocoding"
	"panchayat-connect/internal/models"
	"panchayat-connect/internal/region"
	"panchayat-connect/internal/repository"
	"panchayat-connect/internal/storage"
	"panchayat-connect/internal/trackingid"
	"panchayat-connect/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MaxPhotos         = 3
	MaxTitleLength    = 50
	DefaultPublicList = 100
	MaxPublicList     = 500

	trackingIDAttempts = 5
	casAttempts        = 3
)

type ReportService interface {
	Submit(ctx context.Context, req SubmitRequest) (*models.Report, error)
	Track(ctx context.Context, trackingID string) (*models.PublicReport, error)
	ListPublic(ctx context.Context, limit int) ([]models.PublicReport, error)
	List(ctx context.Context, filter Filter) ([]*models.Report, error)
	Get(ctx context.Context, session *models.Session, id string) (*models.Report, error)
	Stats(ctx context.Context, filter Filter) (Stats, error)
	Export(ctx context.Context, filter Filter, w io.Writer) error
	UpdateStatus(ctx context.Context, session *models.Session, id string, change StatusChange) (*models.Report, error)
	AssignTeam(ctx context.Context, session *models.Session, id string, teamID int64, expectedVersion *int) (*models.Report, error)
	AddNote(ctx context.Context, session *models.Session, id, text string, expectedVersion *int) (*models.Report, error)
	TeamReports(ctx context.Context, session *models.Session) ([]*models.Report, error)
}

// LocationInput is the location part of a submission.
type LocationInput struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Address   string   `json:"address"`
	Panchayat string   `json:"panchayat"`
	District  string   `json:"district"`
}

type SubmitRequest struct {
	Category    models.Category `json:"category"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Photos      []string        `json:"photos"`
	Location    LocationInput   `json:"location"`
	Urgency     models.Urgency  `json:"urgency"`
	Anonymous   bool            `json:"anonymous"`
	Contact     *models.Contact `json:"contact"`
}

// StatusChange is a requested transition. ExpectedVersion, when set, turns a
// concurrent modification into ErrVersionConflict instead of a retry.
type StatusChange struct {
	Status          models.Status `json:"status"`
	Note            string        `json:"note"`
	ExpectedVersion *int          `json:"expected_version"`
}

// ReportDeps are the collaborators of the report service.
type ReportDeps struct {
	Reports       repository.ReportRepository
	Teams         repository.TeamRepository
	Orphans       repository.OrphanedPhotoRepository
	Photos        storage.PhotoStore
	Events        events.Publisher
	Contacts      *crypto.ContactCipher
	Regions       *region.Directory
	MaxPhotoBytes int64
	Logger        *zap.Logger

	// Optional, for tests.
	Now           func() time.Time
	NewTrackingID func() (string, error)
}

type reportService struct {
	ReportDeps
}

func NewReportService(deps ReportDeps) ReportService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewTrackingID == nil {
		deps.NewTrackingID = func() (string, error) { return trackingid.Generate(nil) }
	}
	if deps.Events == nil {
		deps.Events = events.NoopPublisher{Logger: deps.Logger}
	}
	return &reportService{ReportDeps: deps}
}

// photoInput is a validated photo: either decoded bytes or a URL kept as is.
type photoInput struct {
	decoded *storage.Photo
	url     string
}

type preparedSubmission struct {
	req    SubmitRequest
	photos []photoInput
}

// validate checks a submission before any I/O and fills derived fields.
func (s *reportService) validate(req SubmitRequest) (*preparedSubmission, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Location.Address = strings.TrimSpace(req.Location.Address)
	req.Location.Panchayat = strings.TrimSpace(req.Location.Panchayat)
	req.Location.District = strings.TrimSpace(req.Location.District)

	if !req.Category.Valid() {
		return nil, invalid("category", "messages.invalidCategory")
	}
	if req.Title == "" {
		return nil, invalid("title", "messages.requiredFields")
	}
	if utf8.RuneCountInString(req.Title) > MaxTitleLength {
		return nil, invalid("title", "messages.titleTooLong")
	}
	if req.Description == "" {
		return nil, invalid("description", "messages.requiredFields")
	}
	if req.Location.Panchayat == "" && req.Location.Address == "" {
		return nil, invalid("location", "messages.requiredFields")
	}
	if err := normalizeCoordinates(&req.Location); err != nil {
		return nil, err
	}
	if req.Urgency == "" {
		req.Urgency = models.UrgencyNormal
	}
	if !req.Urgency.Valid() {
		return nil, invalid("urgency", "messages.invalidUrgency")
	}
	if len(req.Photos) > MaxPhotos {
		return nil, invalid("photos", "messages.tooManyPhotos")
	}

	if s.Regions != nil {
		loc := &req.Location
		if loc.District != "" {
			canonical, ok := s.Regions.District(loc.District)
			if !ok {
				return nil, invalid("district", "messages.unknownDistrict")
			}
			loc.District = canonical
			if _, known := s.Regions.DistrictOf(loc.Panchayat); known && !s.Regions.Contains(canonical, loc.Panchayat) {
				return nil, invalid("panchayat", "messages.panchayatNotInDistrict")
			}
		} else if district, ok := s.Regions.DistrictOf(loc.Panchayat); ok {
			loc.District = district
		}
	}

	photos := make([]photoInput, 0, len(req.Photos))
	for _, p := range req.Photos {
		p = strings.TrimSpace(p)
		switch {
		case storage.IsRemoteURL(p):
			photos = append(photos, photoInput{url: p})
		case storage.IsDataURI(p):
			decoded, err := storage.DecodeDataURI(p, s.MaxPhotoBytes)
			if err != nil {
				return nil, invalid("photos", "messages.invalidPhoto")
			}
			photos = append(photos, photoInput{decoded: decoded})
		default:
			return nil, invalid("photos", "messages.invalidPhoto")
		}
	}

	if req.Anonymous || req.Contact.IsEmpty() {
		req.Contact = nil
	} else {
		req.Contact = &models.Contact{
			Phone: strings.TrimSpace(req.Contact.Phone),
			Email: strings.TrimSpace(req.Contact.Email),
		}
	}

	return &preparedSubmission{req: req, photos: photos}, nil
}

// normalizeCoordinates drops zero coordinates and requires the rest to be a
// complete pair on the globe.
func normalizeCoordinates(loc *LocationInput) error {
	if loc.Lat != nil && *loc.Lat == 0 {
		loc.Lat = nil
	}
	if loc.Lng != nil && *loc.Lng == 0 {
		loc.Lng = nil
	}
	if (loc.Lat == nil) != (loc.Lng == nil) {
		return invalid("location", "messages.invalidLocation")
	}
	if loc.Lat != nil && !geocoding.ValidCoordinates(*loc.Lat, *loc.Lng) {
		return invalid("location", "messages.invalidLocation")
	}
	return nil
}

func (s *reportService) Submit(ctx context.Context, req SubmitRequest) (*models.Report, error) {
	prepared, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	req = prepared.req

	trackingID, err := s.pickTrackingID(ctx)
	if err != nil {
		return nil, err
	}

	urls, uploaded, err := s.uploadPhotos(ctx, trackingID, prepared.photos)
	if err != nil {
		s.discardPhotos(ctx, uploaded)
		return nil, err
	}

	var team *models.Team
	if code, ok := models.CategoryToTeam[req.Category]; ok {
		team, err = s.Teams.GetByCode(ctx, code)
		if err != nil {
			s.discardPhotos(ctx, uploaded)
			return nil, fmt.Errorf("failed to resolve default team: %w", err)
		}
	}

	contact, err := s.Contacts.Seal(req.Contact)
	if err != nil {
		s.discardPhotos(ctx, uploaded)
		return nil, fmt.Errorf("failed to protect contact: %w", err)
	}

	now := s.Now()
	report := &models.Report{
		ID:            uuid.NewString(),
		TrackingID:    trackingID,
		Category:      req.Category,
		Title:         req.Title,
		Description:   req.Description,
		Photos:        urls,
		Panchayat:     req.Location.Panchayat,
		District:      req.Location.District,
		Address:       req.Location.Address,
		Lat:           req.Location.Lat,
		Lng:           req.Location.Lng,
		Urgency:       req.Urgency,
		Anonymous:     req.Anonymous,
		Contact:       contact,
		Status:        models.StatusSubmitted,
		History:       workflow.NewHistory(now),
		InternalNotes: []models.InternalNote{},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if team != nil {
		teamID := team.ID
		report.AssignedTeamID = &teamID
		report.AssignedTeam = team.Code
		report.AssignedTeamName = team.Name
	}

	if err := s.Reports.Create(ctx, report); err != nil {
		s.discardPhotos(ctx, uploaded)
		if errors.Is(err, repository.ErrTrackingIDTaken) {
			return nil, ErrTrackingIDCollision
		}
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	s.Logger.Info("Report submitted",
		zap.String("tracking_id", report.TrackingID),
		zap.String("category", string(report.Category)),
		zap.Int("photos", len(report.Photos)),
	)
	s.publish(ctx, models.EventReportSubmitted, report)

	report.Contact = req.Contact
	return report, nil
}

func (s *reportService) pickTrackingID(ctx context.Context) (string, error) {
	for i := 0; i < trackingIDAttempts; i++ {
		id, err := s.NewTrackingID()
		if err != nil {
			return "", err
		}
		exists, err := s.Reports.TrackingIDExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check tracking id: %w", err)
		}
		if !exists {
			return id, nil
		}
		s.Logger.Warn("Tracking id already in use, drawing again", zap.String("tracking_id", id))
	}
	return "", ErrTrackingIDCollision
}

// uploadPhotos stores decoded photos concurrently and returns the final URLs
// in input order together with every object that was written.
func (s *reportService) uploadPhotos(ctx context.Context, trackingID string, photos []photoInput) ([]string, []string, error) {
	urls := make([]string, len(photos))
	var (
		mu       sync.Mutex
		uploaded []string
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range photos {
		if p.decoded == nil {
			urls[i] = p.url
			continue
		}
		i, p := i, p // per-iteration copies (go.mod targets go1.21 loop semantics)
		g.Go(func() error {
			name := storage.NewObjectName(trackingID, p.decoded.Ext)
			url, err := s.Photos.Upload(gctx, name, p.decoded.Data, p.decoded.ContentType)
			if err != nil {
				return err
			}
			mu.Lock()
			uploaded = append(uploaded, name)
			mu.Unlock()
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, uploaded, fmt.Errorf("failed to store photo: %w", err)
	}
	return urls, uploaded, nil
}

// discardPhotos removes objects of a submission that was not saved. Deletes
// that fail are queued for the photo sweeper.
func (s *reportService) discardPhotos(ctx context.Context, objects []string) {
	ctx = context.WithoutCancel(ctx)
	for _, name := range objects {
		err := s.Photos.Delete(ctx, name)
		if err == nil {
			continue
		}
		s.Logger.Warn("Failed to delete photo of unsaved report", zap.String("object", name), zap.Error(err))
		if recErr := s.Orphans.Record(ctx, name, err.Error()); recErr != nil {
			s.Logger.Error("Failed to record orphaned photo", zap.String("object", name), zap.Error(recErr))
		}
	}
}

func (s *reportService) publish(ctx context.Context, t models.EventType, r *models.Report) {
	event := models.NewReportEvent(t, r, s.Now())
	if err := s.Events.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.Logger.Error("Failed to publish report event",
			zap.String("type", string(t)),
			zap.String("tracking_id", r.TrackingID),
			zap.Error(err),
		)
	}
}

// Track looks up a report by its public code. Malformed and unknown codes are
// both ErrReportNotFound.
func (s *reportService) Track(ctx context.Context, raw string) (*models.PublicReport, error) {
	id, err := trackingid.Parse(raw)
	if err != nil {
		return nil, ErrReportNotFound
	}
	report, err := s.Reports.GetByTrackingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", id, err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	public := report.Public()
	return &public, nil
}

// ClampPublicLimit applies the default and upper bound of the public listing.
func ClampPublicLimit(limit int) int {
	if limit <= 0 {
		return DefaultPublicList
	}
	if limit > MaxPublicList {
		return MaxPublicList
	}
	return limit
}

func (s *reportService) ListPublic(ctx context.Context, limit int) ([]models.PublicReport, error) {
	reports, err := s.Reports.List(ctx, repository.ListOptions{Limit: ClampPublicLimit(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	out := make([]models.PublicReport, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.PublicSummary())
	}
	return out, nil
}

func (s *reportService) all(ctx context.Context, filter Filter) ([]*models.Report, error) {
	reports, err := s.Reports.List(ctx, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return filter.Apply(reports), nil
}

func (s *reportService) List(ctx context.Context, filter Filter) ([]*models.Report, error) {
	reports, err := s.all(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, r := range reports {
		s.openContact(r)
	}
	return reports, nil
}

func (s *reportService) Stats(ctx context.Context, filter Filter) (Stats, error) {
	reports, err := s.all(ctx, filter)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(reports), nil
}

func (s *reportService) Export(ctx context.Context, filter Filter, w io.Writer) error {
	reports, err := s.all(ctx, filter)
	if err != nil {
		return err
	}
	return WriteCSV(w, reports)
}

// openContact decrypts the contact in place. A contact that cannot be opened
// is withheld rather than failing the whole response.
func (s *reportService) openContact(r *models.Report) {
	if r == nil || r.Contact == nil {
		return
	}
	opened, err := s.Contacts.Open(r.Contact)
	if err != nil {
		s.Logger.Error("Failed to open contact", zap.String("tracking_id", r.TrackingID), zap.Error(err))
		r.Contact = nil
		return
	}
	r.Contact = opened
}

func (s *reportService) load(ctx context.Context, id string) (*models.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrReportNotFound
	}
	report, err := s.Reports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	return report, nil
}

func canAct(session *models.Session, r *models.Report) bool {
	return session.IsAdmin() || session.InTeam(r.AssignedTeamID)
}

func (s *reportService) Get(ctx context.Context, session *models.Session, id string) (*models.Report, error) {
	report, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAct(session, report) {
		return nil, ErrForbidden
	}
	s.openContact(report)
	return report, nil
}

// mutate runs a read-modify-write of one report guarded by its version.
// A lost race is retried with a fresh read unless the caller pinned a version.
// The returned report is re-read after the write.
func (s *reportService) mutate(ctx context.Context, id string, expected *int, apply func(r *models.Report) (bool, error)) (*models.Report, bool, error) {
	for attempt := 1; attempt <= casAttempts; attempt++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if expected != nil && current.Version != *expected {
			return nil, false, ErrVersionConflict
		}

		work := current.Clone()
		changed, err := apply(work)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			s.openContact(current)
			return current, false, nil
		}

		err = s.Reports.Update(ctx, work, current.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			if expected != nil {
				return nil, false, ErrVersionConflict
			}
			s.Logger.Debug("Concurrent update, retrying", zap.String("id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to save report: %w", err)
		}

		fresh, err := s.load(ctx, id)
		if err != nil {
			return nil, false, err
		}
		s.openContact(fresh)
		return fresh, true, nil
	}
	return nil, false, ErrVersionConflict
}

func (s *reportService) UpdateStatus(ctx context.Context, session *models.Session, id string, change StatusChange) (*models.Report, error) {
	actor, note := models.ActorAdmin, workflow.NoteStatusByAdmin
	if !session.IsAdmin() {
		if err := workflow.CheckTeamTarget(change.Status); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
		}
		actor, note = models.ActorTeam, workflow.NoteStatusByTeam
	} else if custom := strings.TrimSpace(change.Note); custom != "" {
		note = custom
	}

	report, changed, err := s.mutate(ctx, id, change.ExpectedVersion, func(r *models.Report) (bool, error) {
		if !canAct(session, r) {
			return false, ErrForbidden
		}
		return workflow.ChangeStatus(r, change.Status, actor, note, s.Now())
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.Logger.Info("Report status changed",
			zap.String("tracking_id", report.TrackingID),
			zap.String("status", string(report.Status)),
			zap.String("by", session.Email),
		)
		s.publish(ctx, models.EventReportStatusChanged, report)
	}
	return report, nil
}

func (s *reportService) AssignTeam(ctx context.Context, session *models.Session, id string, teamID int64, expectedVersion *int) (*models.Report, error) {
	if !session.IsAdmin() {
		return nil, ErrForbidden
	}
	team, err := s.Teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}

	report, changed, err := s.mutate(ctx, id, expectedVersion, func(r *models.Report) (bool, error) {
		return workflow.AssignTeam(r, team, models.ActorAdmin, s.Now())
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.Logger.Info("Report assigned",
			zap.String("tracking_id", report.TrackingID),
			zap.String("team", string(team.Code)),
		)
		s.publish(ctx, models.EventReportAssigned, report)
	}
	return report, nil
}

func (s *reportService) AddNote(ctx context.Context, session *models.Session, id, text string, expectedVersion *int) (*models.Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, workflow.ErrEmptyNote
	}
	report, _, err := s.mutate(ctx, id, expectedVersion, func(r *models.Report) (bool, error) {
		if !canAct(session, r) {
			return false, ErrForbidden
		}
		if _, err := workflow.AddNote(r, uuid.NewString(), text, session.Email, s.Now()); err != nil {
			return false, err
		}
		return true, nil
	})
	return report, err
}

func (s *reportService) TeamReports(ctx context.Context, session *models.Session) ([]*models.Report, error) {
	if session == nil || session.TeamID == nil {
		return nil, ErrForbidden
	}
	reports, err := s.Reports.List(ctx, repository.ListOptions{TeamID: session.TeamID})
	if err != nil {
		return nil, fmt.Errorf("failed to list team reports: %w", err)
	}
	for _, r := range reports {
		s.openContact(r)
	}
	return reports, nil
}
