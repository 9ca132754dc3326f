package notification_worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"panchayat-connect/internal/events"
	"panchayat-connect/internal/models"
)

type fakeTeams struct {
	teams map[int64]*models.Team
	err   error
}

func (f *fakeTeams) List(context.Context) ([]*models.Team, error) { return nil, nil }

func (f *fakeTeams) GetByID(_ context.Context, id int64) (*models.Team, error) {
	return f.teams[id], f.err
}

func (f *fakeTeams) GetByCode(context.Context, models.TeamCode) (*models.Team, error) {
	return nil, nil
}

func (f *fakeTeams) SetTelegramChatID(context.Context, int64, *int64) (*models.Team, error) {
	return nil, nil
}

type recordingNotifier struct {
	calls []string
}

func (r *recordingNotifier) NotifyTeam(_ context.Context, team *models.Team, event models.ReportEvent) error {
	r.calls = append(r.calls, team.Name+":"+event.TrackingID)
	return nil
}

type stubConsumer struct {
	events []models.ReportEvent
}

func (s *stubConsumer) Consume(ctx context.Context, handler events.Handler) error {
	for _, e := range s.events {
		_ = handler(ctx, e)
	}
	return nil
}

func (s *stubConsumer) Close() {}

func teamID(id int64) *int64 { return &id }

func newWorker(consumer events.Consumer, teams *fakeTeams, notifier *recordingNotifier) *Worker {
	return NewWorker(consumer, teams, notifier, zap.NewNop())
}

func TestHandle(t *testing.T) {
	teams := &fakeTeams{teams: map[int64]*models.Team{2: {ID: 2, Name: "Waterworks Team"}}}

	tests := []struct {
		name  string
		event models.ReportEvent
		want  []string
	}{
		{"assigned", models.ReportEvent{Type: models.EventReportAssigned, TrackingID: "TRK100001", TeamID: teamID(2)}, []string{"Waterworks Team:TRK100001"}},
		{"submitted", models.ReportEvent{Type: models.EventReportSubmitted, TrackingID: "TRK100002", TeamID: teamID(2)}, []string{"Waterworks Team:TRK100002"}},
		{"status change ignored", models.ReportEvent{Type: models.EventReportStatusChanged, TrackingID: "TRK100003", TeamID: teamID(2)}, nil},
		{"no team", models.ReportEvent{Type: models.EventReportAssigned, TrackingID: "TRK100004"}, nil},
		{"unknown team", models.ReportEvent{Type: models.EventReportAssigned, TrackingID: "TRK100005", TeamID: teamID(9)}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			w := newWorker(&stubConsumer{}, teams, notifier)
			require.NoError(t, w.Handle(context.Background(), tt.event))
			assert.Equal(t, tt.want, notifier.calls)
		})
	}
}

func TestHandle_TeamLookupError(t *testing.T) {
	w := newWorker(&stubConsumer{}, &fakeTeams{err: errors.New("db down")}, &recordingNotifier{})
	err := w.Handle(context.Background(), models.ReportEvent{Type: models.EventReportAssigned, TeamID: teamID(2)})
	require.Error(t, err)
}

func TestRun_DrainsConsumer(t *testing.T) {
	teams := &fakeTeams{teams: map[int64]*models.Team{1: {ID: 1, Name: "Roads Team"}}}
	notifier := &recordingNotifier{}
	consumer := &stubConsumer{events: []models.ReportEvent{
		{Type: models.EventReportSubmitted, TrackingID: "TRK200001", TeamID: teamID(1)},
		{Type: models.EventReportAssigned, TrackingID: "TRK200002", TeamID: teamID(1)},
	}}

	newWorker(consumer, teams, notifier).Run(context.Background())
	assert.Equal(t, []string{"Roads Team:TRK200001", "Roads Team:TRK200002"}, notifier.calls)
}
