package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"panchayat-connect/internal/models"
)

var teamRowColumns = []string{"id", "code", "name", "email", "user_id", "telegram_chat_id"}

func TestTeamRepository_SetTelegramChatID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTeamRepository(db, zap.NewNop())

	chatID := int64(-1001234567)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE teams SET telegram_chat_id = $1 WHERE id = $2 RETURNING")).
		WithArgs(chatID, int64(2)).
		WillReturnRows(sqlmock.NewRows(teamRowColumns).
			AddRow(int64(2), "water", "Water Supply Team", "water@panchayat.local", nil, chatID))

	team, err := repo.SetTelegramChatID(context.Background(), 2, &chatID)
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.Equal(t, models.TeamWater, team.Code)
	require.NotNil(t, team.TelegramChatID)
	assert.Equal(t, chatID, *team.TelegramChatID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepository_SetTelegramChatID_Clear(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTeamRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE teams SET telegram_chat_id = $1")).
		WithArgs(nil, int64(2)).
		WillReturnRows(sqlmock.NewRows(teamRowColumns).
			AddRow(int64(2), "water", "Water Supply Team", "water@panchayat.local", nil, nil))

	team, err := repo.SetTelegramChatID(context.Background(), 2, nil)
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.Nil(t, team.TelegramChatID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepository_SetTelegramChatID_UnknownTeam(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTeamRepository(db, zap.NewNop())

	chatID := int64(42)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE teams SET telegram_chat_id = $1")).
		WithArgs(chatID, int64(99)).
		WillReturnRows(sqlmock.NewRows(teamRowColumns))

	team, err := repo.SetTelegramChatID(context.Background(), 99, &chatID)
	require.NoError(t, err)
	assert.Nil(t, team)
	require.NoError(t, mock.ExpectationsWereMet())
}
