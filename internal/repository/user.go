package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	SetTelegramChatID(ctx context.Context, id uuid.UUID, chatID string) error
}

type userRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) SetTelegramChatID(ctx context.Context, id uuid.UUID, chatID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET telegram_chat_id = $2, updated_at = NOW() WHERE id = $1`, id, chatID)
	if err != nil {
		return fmt.Errorf("failed to link telegram chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
