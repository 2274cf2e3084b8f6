// Package ledger remembers which notifications were already delivered so a
// scheduler that re-runs every cycle sends each one at most once per day.
package ledger

import (
	"context"

	"mediconnect/internal/models"
)

// Ledger is checked before a delivery and written after a successful one.
type Ledger interface {
	Seen(ctx context.Context, ev models.NotificationEvent) (bool, error)
	Record(ctx context.Context, ev models.NotificationEvent) error
}
