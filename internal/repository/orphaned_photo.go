package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// OrphanedPhoto is a stored object whose report was never written.
type OrphanedPhoto struct {
	ID         int64     `db:"id"`
	ObjectName string    `db:"object_name"`
	Attempts   int       `db:"attempts"`
	LastError  string    `db:"last_error"`
	CreatedAt  time.Time `db:"created_at"`
}

type OrphanedPhotoRepository interface {
	Record(ctx context.Context, objectName, reason string) error
	ListDue(ctx context.Context, maxAttempts, limit int) ([]OrphanedPhoto, error)
	Delete(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type orphanedPhotoRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewOrphanedPhotoRepository(db *sqlx.DB, logger *zap.Logger) OrphanedPhotoRepository {
	return &orphanedPhotoRepository{db: db, logger: logger}
}

func (r *orphanedPhotoRepository) Record(ctx context.Context, objectName, reason string) error {
	query := `
		INSERT INTO orphaned_photos (object_name, last_error)
		VALUES ($1, $2)
		ON CONFLICT (object_name) DO UPDATE SET last_error = EXCLUDED.last_error, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, objectName, reason); err != nil {
		r.logger.Error("Failed to record orphaned photo", zap.String("object", objectName), zap.Error(err))
		return err
	}
	return nil
}

func (r *orphanedPhotoRepository) ListDue(ctx context.Context, maxAttempts, limit int) ([]OrphanedPhoto, error) {
	var photos []OrphanedPhoto
	query := `
		SELECT id, object_name, attempts, last_error, created_at
		FROM orphaned_photos
		WHERE attempts < $1
		ORDER BY updated_at
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &photos, query, maxAttempts, limit); err != nil {
		return nil, err
	}
	return photos, nil
}

func (r *orphanedPhotoRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM orphaned_photos WHERE id = $1`, id)
	return err
}

func (r *orphanedPhotoRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `UPDATE orphaned_photos SET attempts = attempts + 1, last_error = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, reason, id)
	return err
}
