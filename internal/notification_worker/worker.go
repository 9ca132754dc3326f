package notification_worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"panchayat-connect/internal/events"
	"panchayat-connect/internal/models"
	"panchayat-connect/internal/repository"
)

// TeamNotifier delivers a report event to a team.
type TeamNotifier interface {
	NotifyTeam(ctx context.Context, team *models.Team, event models.ReportEvent) error
}

// Worker turns report events into team notifications.
type Worker struct {
	consumer events.Consumer
	teams    repository.TeamRepository
	notifier TeamNotifier
	logger   *zap.Logger
}

func NewWorker(consumer events.Consumer, teams repository.TeamRepository, notifier TeamNotifier, logger *zap.Logger) *Worker {
	return &Worker{
		consumer: consumer,
		teams:    teams,
		notifier: notifier,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled or the consumer stops.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Notification worker started.")
	if err := w.consumer.Consume(ctx, w.Handle); err != nil {
		w.logger.Error("Notification worker stopped", zap.Error(err))
		return
	}
	w.logger.Info("Notification worker stopped.")
}

// Handle notifies the owning team of submitted and assigned reports.
// Status changes are not forwarded.
func (w *Worker) Handle(ctx context.Context, event models.ReportEvent) error {
	switch event.Type {
	case models.EventReportSubmitted, models.EventReportAssigned:
	default:
		return nil
	}
	if event.TeamID == nil {
		w.logger.Debug("Event has no team", zap.String("tracking_id", event.TrackingID))
		return nil
	}

	team, err := w.teams.GetByID(ctx, *event.TeamID)
	if err != nil {
		return fmt.Errorf("failed to load team %d: %w", *event.TeamID, err)
	}
	if team == nil {
		w.logger.Warn("Event references unknown team",
			zap.Int64("team_id", *event.TeamID),
			zap.String("tracking_id", event.TrackingID),
		)
		return nil
	}

	return w.notifier.NotifyTeam(ctx, team, event)
}
