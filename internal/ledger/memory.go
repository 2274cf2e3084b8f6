package ledger

import (
	"context"
	"sync"
	"time"

	"mediconnect/internal/models"
)

// Memory is a process-local ledger. It does not survive restarts.
type Memory struct {
	mu      sync.Mutex
	entries map[models.NotificationEvent]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[models.NotificationEvent]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (l *Memory) Seen(_ context.Context, ev models.NotificationEvent) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	at, ok := l.entries[ev]
	if !ok {
		return false, nil
	}
	if l.now().Sub(at) > l.ttl {
		delete(l.entries, ev)
		return false, nil
	}
	return true, nil
}

func (l *Memory) Record(_ context.Context, ev models.NotificationEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, at := range l.entries {
		if now.Sub(at) > l.ttl {
			delete(l.entries, k)
		}
	}
	l.entries[ev] = now
	return nil
}
