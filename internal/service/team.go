package service

import (
	"context"
	"fmt"

	"panchayat-connect/internal/models"
	"panchayat-connect/internal/repository"

	"go.uber.org/zap"
)

type TeamService interface {
	List(ctx context.Context) ([]*models.Team, error)
	SetTelegramChat(ctx context.Context, teamID, chatID int64) (*models.Team, error)
}

type teamService struct {
	repo   repository.TeamRepository
	logger *zap.Logger
}

func NewTeamService(repo repository.TeamRepository, logger *zap.Logger) TeamService {
	return &teamService{repo: repo, logger: logger}
}

// List returns teams ordered by name.
func (s *teamService) List(ctx context.Context) ([]*models.Team, error) {
	teams, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	if teams == nil {
		teams = []*models.Team{}
	}
	return teams, nil
}

// SetTelegramChat registers the chat that receives the team's notifications.
// A chatID of 0 unregisters it; Telegram never issues that id.
func (s *teamService) SetTelegramChat(ctx context.Context, teamID, chatID int64) (*models.Team, error) {
	var target *int64
	if chatID != 0 {
		target = &chatID
	}
	team, err := s.repo.SetTelegramChatID(ctx, teamID, target)
	if err != nil {
		return nil, fmt.Errorf("failed to set team chat: %w", err)
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}
	s.logger.Info("Team notification chat updated",
		zap.Int64("team_id", team.ID),
		zap.Bool("registered", target != nil),
	)
	return team, nil
}
