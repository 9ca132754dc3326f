package telegram_bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"panchayat-connect/internal/models"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot notifies team chats about reports routed to them.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender sender
	logger *zap.Logger
}

// NewBot returns nil, nil when notifications are disabled. A nil *Bot is safe to use.
func NewBot(enabled bool, token string, logger *zap.Logger) (*Bot, error) {
	if !enabled || token == "" {
		logger.Info("Telegram bot is disabled (telegram.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{api: botAPI, sender: botAPI, logger: logger}, nil
}

// Start answers /start and /help so team members can learn their chat id.
func (b *Bot) Start(ctx context.Context) error {
	if b == nil || b.api == nil {
		return nil
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down...")
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(update.Message)
			}
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}
	switch message.Command() {
	case "start", "help":
		b.sendMessage(message.Chat.ID, helpText(message.Chat.ID))
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help.")
	}
}

func helpText(chatID int64) string {
	return "Panchayat Connect notifications\n\n" +
		"Ask an administrator to register this chat for your team to receive new and reassigned reports.\n\n" +
		"Chat ID: " + strconv.FormatInt(chatID, 10)
}

// NotifyTeam posts event to the team's chat. Teams without a chat are skipped.
func (b *Bot) NotifyTeam(ctx context.Context, team *models.Team, event models.ReportEvent) error {
	if b == nil || team == nil || team.TelegramChatID == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(*team.TelegramChatID, FormatEvent(team, event))
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send team notification",
			zap.Int64("team_id", team.ID),
			zap.String("tracking_id", event.TrackingID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send notification: %w", err)
	}

	b.logger.Info("Team notification sent",
		zap.Int64("team_id", team.ID),
		zap.String("tracking_id", event.TrackingID),
		zap.String("type", string(event.Type)),
	)
	return nil
}

// FormatEvent renders the notification text for a team.
func FormatEvent(team *models.Team, event models.ReportEvent) string {
	var headline string
	switch event.Type {
	case models.EventReportSubmitted:
		headline = "New report for " + team.Name
	case models.EventReportAssigned:
		headline = "Report assigned to " + team.Name
	default:
		headline = "Report updated"
	}

	var sb strings.Builder
	sb.WriteString(headline)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Tracking ID: %s\n", event.TrackingID)
	if event.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", event.Title)
	}
	fmt.Fprintf(&sb, "Category: %s %s\n", models.CategoryIcons[event.Category], event.Category)
	fmt.Fprintf(&sb, "Urgency: %s\n", event.Urgency)
	if event.Panchayat != "" {
		fmt.Fprintf(&sb, "Panchayat: %s\n", event.Panchayat)
	}
	fmt.Fprintf(&sb, "Status: %s", event.Status)
	if event.Urgency == models.UrgencyUrgent {
		sb.WriteString("\n\nURGENT")
	}
	return sb.String()
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
