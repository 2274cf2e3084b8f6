package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"mediconnect/internal/models"
	"mediconnect/internal/notify"
	"mediconnect/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

// fakeStore mimics the Postgres repository: dates compare by calendar day.
type fakeStore struct {
	mu        sync.Mutex
	medicines []models.TrackedMedicine
	owners    map[uuid.UUID]*models.User
	deleted   []uuid.UUID
	failQuery bool
	failDel   map[uuid.UUID]bool
	chatLinks map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		owners:    make(map[uuid.UUID]*models.User),
		failDel:   make(map[uuid.UUID]bool),
		chatLinks: make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) addOwner(email, chatID string) *models.User {
	u := &models.User{ID: uuid.New(), Email: email, Role: models.RoleUser}
	if chatID != "" {
		u.TelegramChatID = &chatID
	}
	f.owners[u.ID] = u
	return u
}

func (f *fakeStore) add(m models.TrackedMedicine) models.TrackedMedicine {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.medicines = append(f.medicines, m)
	return m
}

func (f *fakeStore) exists(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.ContainsFunc(f.medicines, func(m models.TrackedMedicine) bool { return m.ID == id })
}

func utcDay(t time.Time) time.Time {
	return models.DateOnly(t, time.UTC)
}

func (f *fakeStore) selectWhere(pred func(m *models.TrackedMedicine) bool) ([]models.OwnedMedicine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuery {
		return nil, errStoreDown
	}

	var out []models.OwnedMedicine
	for i := range f.medicines {
		m := f.medicines[i]
		if !pred(&m) {
			continue
		}
		om := models.OwnedMedicine{Medicine: m}
		if u, ok := f.owners[m.OwnerID]; ok {
			cp := *u
			om.Owner = &cp
		}
		out = append(out, om)
	}
	return out, nil
}

func (f *fakeStore) FindExpiredBefore(_ context.Context, before time.Time) ([]models.OwnedMedicine, error) {
	b := utcDay(before)
	return f.selectWhere(func(m *models.TrackedMedicine) bool { return utcDay(m.ExpiryDate).Before(b) })
}

func (f *fakeStore) FindExpiringBetween(_ context.Context, from, to time.Time) ([]models.OwnedMedicine, error) {
	lo, hi := utcDay(from), utcDay(to)
	return f.selectWhere(func(m *models.TrackedMedicine) bool {
		d := utcDay(m.ExpiryDate)
		return !d.Before(lo) && d.Before(hi)
	})
}

func (f *fakeStore) FindActiveByDosageTime(_ context.Context, hhmm string) ([]models.OwnedMedicine, error) {
	return f.selectWhere(func(m *models.TrackedMedicine) bool {
		return m.IsActive && slices.Contains(m.DosageTimes, hhmm)
	})
}

func (f *fakeStore) FindStockRunningOutBetween(_ context.Context, from, to time.Time) ([]models.OwnedMedicine, error) {
	lo, hi := utcDay(from), utcDay(to)
	return f.selectWhere(func(m *models.TrackedMedicine) bool {
		if !m.IsActive || m.IsDonated || m.StockDurationDays <= 0 {
			return false
		}
		d := m.StockRunsOutOn(time.UTC)
		return !d.Before(lo) && d.Before(hi)
	})
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel[id] {
		return errStoreDown
	}
	f.medicines = slices.DeleteFunc(f.medicines, func(m models.TrackedMedicine) bool { return m.ID == id })
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) Create(_ context.Context, m *models.TrackedMedicine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.medicines = append(f.medicines, *m)
	return nil
}

func (f *fakeStore) GetForOwner(_ context.Context, ownerID, id uuid.UUID) (*models.TrackedMedicine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.medicines {
		if m.ID == id && m.OwnerID == ownerID {
			cp := m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListForOwner(_ context.Context, ownerID uuid.UUID) ([]models.TrackedMedicine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failQuery {
		return nil, errStoreDown
	}
	out := []models.TrackedMedicine{}
	for _, m := range f.medicines {
		if m.OwnerID == ownerID && !m.IsDonated {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b models.TrackedMedicine) int {
		return utcDay(a.ExpiryDate).Compare(utcDay(b.ExpiryDate))
	})
	return out, nil
}

func (f *fakeStore) UpdateReminder(_ context.Context, m *models.TrackedMedicine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.medicines {
		if f.medicines[i].ID == m.ID && f.medicines[i].OwnerID == m.OwnerID {
			f.medicines[i] = *m
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeStore) DeleteForOwner(_ context.Context, ownerID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.medicines)
	f.medicines = slices.DeleteFunc(f.medicines, func(m models.TrackedMedicine) bool {
		return m.ID == id && m.OwnerID == ownerID
	})
	if len(f.medicines) == n {
		return repository.ErrNotFound
	}
	return nil
}

func (f *fakeStore) SetTelegramChatID(_ context.Context, id uuid.UUID, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.owners[id]; !ok {
		return repository.ErrNotFound
	}
	f.chatLinks[id] = chatID
	return nil
}

type delivery struct {
	recipient string
	msg       notify.Message
}

// fakeChannel records deliveries; recipients in fail get an error.
type fakeChannel struct {
	mu       sync.Mutex
	name     string
	sent     []delivery
	fail     map[string]bool
	disabled bool
}

func newFakeChannel(name string) *fakeChannel {
	return &fakeChannel{name: name, fail: make(map[string]bool)}
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Deliver(_ context.Context, recipient string, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled {
		return notify.ErrDisabled
	}
	if c.fail[recipient] {
		return errors.New("provider rejected message")
	}
	c.sent = append(c.sent, delivery{recipient: recipient, msg: msg})
	return nil
}

func (c *fakeChannel) recipients() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, d := range c.sent {
		out = append(out, d.recipient)
	}
	return out
}

func nullLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
