package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mediconnect/internal/models"
)

const keyPrefix = "mediconnect:notified:"

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis keeps each entry for ttl, which must outlive the calendar day it
// guards.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func key(ev models.NotificationEvent) string {
	return keyPrefix + ev.String()
}

func (l *Redis) Seen(ctx context.Context, ev models.NotificationEvent) (bool, error) {
	n, err := l.client.Exists(ctx, key(ev)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read ledger: %w", err)
	}
	return n > 0, nil
}

func (l *Redis) Record(ctx context.Context, ev models.NotificationEvent) error {
	if err := l.client.Set(ctx, key(ev), time.Now().UTC().Format(time.RFC3339), l.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}
