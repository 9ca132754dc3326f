package events

import (
	"context"

	"panchayat-connect/internal/models"

	"go.uber.org/zap"
)

// NoopPublisher is used when the broker is disabled. It only logs.
type NoopPublisher struct {
	Logger *zap.Logger
}

func (p NoopPublisher) Publish(_ context.Context, event models.ReportEvent) error {
	if p.Logger != nil {
		p.Logger.Debug("Broker disabled, event not published",
			zap.String("type", string(event.Type)),
			zap.String("tracking_id", event.TrackingID),
		)
	}
	return nil
}

func (NoopPublisher) Close() {}
