package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTeamService_SetTelegramChat(t *testing.T) {
	teams := defaultTeams()
	svc := NewTeamService(teams, zap.NewNop())
	ctx := context.Background()

	team, err := svc.SetTelegramChat(ctx, 2, -1001234567)
	require.NoError(t, err)
	require.NotNil(t, team.TelegramChatID)
	assert.Equal(t, int64(-1001234567), *team.TelegramChatID)

	stored, err := teams.GetByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, stored.TelegramChatID)

	team, err = svc.SetTelegramChat(ctx, 2, 0)
	require.NoError(t, err)
	assert.Nil(t, team.TelegramChatID)
}

func TestTeamService_SetTelegramChat_UnknownTeam(t *testing.T) {
	svc := NewTeamService(defaultTeams(), zap.NewNop())

	_, err := svc.SetTelegramChat(context.Background(), 42, 100)
	require.ErrorIs(t, err, ErrTeamNotFound)
}
