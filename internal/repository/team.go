package repository

import (
	"context"
	"database/sql"
	"errors"

	"panchayat-connect/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type TeamRepository interface {
	List(ctx context.Context) ([]*models.Team, error)
	GetByID(ctx context.Context, id int64) (*models.Team, error)
	GetByCode(ctx context.Context, code models.TeamCode) (*models.Team, error)
	SetTelegramChatID(ctx context.Context, id int64, chatID *int64) (*models.Team, error)
}

type teamRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewTeamRepository(db *sqlx.DB, logger *zap.Logger) TeamRepository {
	return &teamRepository{db: db, logger: logger}
}

const teamColumns = `id, code, name, email, user_id, telegram_chat_id`

func (r *teamRepository) List(ctx context.Context) ([]*models.Team, error) {
	var teams []*models.Team
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY name`
	if err := r.db.SelectContext(ctx, &teams, query); err != nil {
		r.logger.Error("Failed to list teams", zap.Error(err))
		return nil, err
	}
	return teams, nil
}

func (r *teamRepository) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	return r.get(ctx, `id = $1`, id)
}

func (r *teamRepository) GetByCode(ctx context.Context, code models.TeamCode) (*models.Team, error) {
	return r.get(ctx, `code = $1`, code)
}

func (r *teamRepository) get(ctx context.Context, where string, arg any) (*models.Team, error) {
	var team models.Team
	query := `SELECT ` + teamColumns + ` FROM teams WHERE ` + where
	err := r.db.GetContext(ctx, &team, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get team", zap.Any("key", arg), zap.Error(err))
		return nil, err
	}
	return &team, nil
}

// SetTelegramChatID stores the chat notifications go to; nil unregisters it.
func (r *teamRepository) SetTelegramChatID(ctx context.Context, id int64, chatID *int64) (*models.Team, error) {
	var team models.Team
	query := `UPDATE teams SET telegram_chat_id = $1 WHERE id = $2 RETURNING ` + teamColumns
	err := r.db.GetContext(ctx, &team, query, chatID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to set team chat", zap.Int64("team_id", id), zap.Error(err))
		return nil, err
	}
	return &team, nil
}
