package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleNGO      Role = "ngo"
	RolePharmacy Role = "pharmacy"
)

type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Email          string    `json:"email" db:"email" validate:"required,email"`
	Role           Role      `json:"role" db:"role" validate:"required,oneof=user ngo pharmacy"`
	TelegramChatID *string   `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ChatID returns the linked Telegram chat id, or "" when none is linked.
func (u *User) ChatID() string {
	if u == nil || u.TelegramChatID == nil {
		return ""
	}
	return *u.TelegramChatID
}
