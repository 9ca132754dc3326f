package models

// Team is a responder group that resolves reports.
type Team struct {
	ID             int64    `db:"id" json:"id"`
	Code           TeamCode `db:"code" json:"code"`
	Name           string   `db:"name" json:"name"`
	Email          string   `db:"email" json:"email"`
	UserID         *int64   `db:"user_id" json:"user_id,omitempty"`
	TelegramChatID *int64   `db:"telegram_chat_id" json:"telegram_chat_id,omitempty"`
}
