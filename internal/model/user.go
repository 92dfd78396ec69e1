package model

import "time"

type User struct {
	ID         int64     `json:"id"`
	TelegramID *int64    `json:"telegram_id"` // nil when the user has no linked chat
	Name       string    `json:"name"`
	Timezone   string    `json:"timezone"` // IANA name, e.g. "Africa/Cairo"
	IsTutor    bool      `json:"is_tutor"`
	CreatedAt  time.Time `json:"created_at"`
}
