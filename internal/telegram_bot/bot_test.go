package telegram_bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"panchayat-connect/internal/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func chatTeam(chatID int64) *models.Team {
	return &models.Team{ID: 2, Code: models.TeamWater, Name: "Waterworks Team", TelegramChatID: &chatID}
}

func assignedEvent() models.ReportEvent {
	return models.ReportEvent{
		Type:       models.EventReportAssigned,
		TrackingID: "TRK482913",
		Title:      "Pipe burst",
		Status:     models.StatusAssigned,
		Category:   models.CategoryWaterLeak,
		Urgency:    models.UrgencyUrgent,
		Panchayat:  "Kumarakom",
	}
}

func TestNotifyTeam(t *testing.T) {
	fake := &fakeSender{}
	bot := &Bot{sender: fake, logger: zap.NewNop()}

	require.NoError(t, bot.NotifyTeam(context.Background(), chatTeam(-1001), assignedEvent()))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, int64(-1001), fake.sent[0].ChatID)
	assert.Contains(t, fake.sent[0].Text, "Report assigned to Waterworks Team")
	assert.Contains(t, fake.sent[0].Text, "TRK482913")
	assert.Contains(t, fake.sent[0].Text, "URGENT")
}

func TestNotifyTeam_SkipsTeamWithoutChat(t *testing.T) {
	fake := &fakeSender{}
	bot := &Bot{sender: fake, logger: zap.NewNop()}

	team := chatTeam(1)
	team.TelegramChatID = nil
	require.NoError(t, bot.NotifyTeam(context.Background(), team, assignedEvent()))
	assert.Empty(t, fake.sent)
}

func TestNotifyTeam_NilBot(t *testing.T) {
	var bot *Bot
	require.NoError(t, bot.NotifyTeam(context.Background(), chatTeam(1), assignedEvent()))
	require.NoError(t, bot.Start(context.Background()))
}

func TestNotifyTeam_SendError(t *testing.T) {
	bot := &Bot{sender: &fakeSender{err: errors.New("blocked by user")}, logger: zap.NewNop()}
	err := bot.NotifyTeam(context.Background(), chatTeam(1), assignedEvent())
	require.Error(t, err)
}

func TestFormatEvent_Submitted(t *testing.T) {
	event := assignedEvent()
	event.Type = models.EventReportSubmitted
	event.Urgency = models.UrgencyNormal

	text := FormatEvent(chatTeam(1), event)
	assert.Contains(t, text, "New report for Waterworks Team")
	assert.Contains(t, text, "Panchayat: Kumarakom")
	assert.NotContains(t, text, "URGENT")
}
