package photo_sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"panchayat-connect/internal/repository"
)

const batchSize = 50

// ObjectDeleter removes a stored object.
type ObjectDeleter interface {
	Delete(ctx context.Context, objectName string) error
}

// TokenPurger drops revocation records of tokens that expired anyway.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically retries photo deletes that failed during a submission
// rollback.
type Sweeper struct {
	orphans     repository.OrphanedPhotoRepository
	store       ObjectDeleter
	tokens      TokenPurger
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
}

func NewSweeper(
	orphans repository.OrphanedPhotoRepository,
	store ObjectDeleter,
	tokens TokenPurger,
	intervalSeconds int64,
	maxAttempts int,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		orphans:     orphans,
		store:       store,
		tokens:      tokens,
		interval:    time.Duration(intervalSeconds) * time.Second,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run sweeps once at start-up and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Photo sweeper started.", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Photo sweeper stopped.")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce processes one batch and returns how many objects were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	if s.tokens != nil {
		if n, err := s.tokens.PurgeExpiredTokens(ctx, time.Now()); err != nil {
			s.logger.Error("Failed to purge expired tokens", zap.Error(err))
		} else if n > 0 {
			s.logger.Info("Purged expired revoked tokens", zap.Int64("count", n))
		}
	}

	due, err := s.orphans.ListDue(ctx, s.maxAttempts, batchSize)
	if err != nil {
		s.logger.Error("Failed to list orphaned photos", zap.Error(err))
		return 0
	}

	removed := 0
	for _, photo := range due {
		if ctx.Err() != nil {
			break
		}
		if err := s.store.Delete(ctx, photo.ObjectName); err != nil {
			s.logger.Warn("Orphaned photo delete failed",
				zap.String("object", photo.ObjectName),
				zap.Int("attempts", photo.Attempts+1),
				zap.Error(err),
			)
			if markErr := s.orphans.MarkFailed(ctx, photo.ID, err.Error()); markErr != nil {
				s.logger.Error("Failed to record sweep failure", zap.Int64("id", photo.ID), zap.Error(markErr))
			}
			continue
		}
		if err := s.orphans.Delete(ctx, photo.ID); err != nil {
			s.logger.Error("Failed to drop orphaned photo record", zap.Int64("id", photo.ID), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed orphaned photos", zap.Int("count", removed))
	}
	return removed
}
