package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mediconnect/internal/logger"
)

// Connect returns a pinged Redis client.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().WithField("addr", addr).Info("Redis connection successful")
	return client, nil
}
