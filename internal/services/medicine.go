package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediconnect/internal/models"
	"mediconnect/internal/repository"
)

var (
	ErrNotFound        = errors.New("medicine not found or access denied")
	ErrInvalidReminder = errors.New("invalid reminder configuration")
)

const purchaseDateLayout = time.DateOnly

// ReminderConfig is an owner's partial update of a medicine's reminder
// settings. Absent fields keep their stored value.
type ReminderConfig struct {
	PurchaseDate      string   `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	StockDurationDays *int     `json:"stock_duration_days" validate:"omitempty,min=1"`
	DosageCount       *int     `json:"dosage_count" validate:"omitempty,min=1"`
	DosageTimes       []string `json:"dosage_times" validate:"omitempty,dive,hhmm"`
	TelegramChatID    string   `json:"telegram_chat_id" validate:"omitempty,chatid"`
}

// MedicineService owns the owner-scoped writes to a medicine's reminder
// configuration.
type MedicineService struct {
	medicines repository.MedicineRepository
	users     repository.UserRepository
	logger    *logrus.Logger
	now       func() time.Time
}

func NewMedicineService(medicines repository.MedicineRepository, users repository.UserRepository,
	logger *logrus.Logger) *MedicineService {
	return &MedicineService{
		medicines: medicines,
		users:     users,
		logger:    logger,
		now:       time.Now,
	}
}

// normalizeDosageTimes drops duplicates and sorts the slots.
func normalizeDosageTimes(times []string) []string {
	if len(times) == 0 {
		return []string{}
	}
	out := mapset.NewThreadUnsafeSet(times...).ToSlice()
	sort.Strings(out)
	return out
}

func validate(v any) error {
	if err := models.Validator.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReminder, err)
	}
	return nil
}

// Create stores a new medicine. Purchase date defaults to today.
func (s *MedicineService) Create(ctx context.Context, m *models.TrackedMedicine) error {
	now := s.now()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.PurchaseDate.IsZero() {
		m.PurchaseDate = models.Day(now, time.Local)
	}
	m.DosageTimes = normalizeDosageTimes(m.DosageTimes)
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := validate(m); err != nil {
		return err
	}
	if err := s.medicines.Create(ctx, m); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"medicine_id": m.ID,
		"owner_id":    m.OwnerID,
	}).Info("Medicine created")
	return nil
}

// SetReminder applies cfg to the owner's medicine and turns reminders on.
func (s *MedicineService) SetReminder(ctx context.Context, ownerID, medicineID uuid.UUID, cfg ReminderConfig) (*models.TrackedMedicine, error) {
	log := s.logger.WithFields(logrus.Fields{
		"medicine_id": medicineID,
		"owner_id":    ownerID,
	})

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	m, err := s.medicines.GetForOwner(ctx, ownerID, medicineID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if cfg.PurchaseDate != "" {
		pd, err := time.ParseInLocation(purchaseDateLayout, cfg.PurchaseDate, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: purchase_date: %v", ErrInvalidReminder, err)
		}
		m.PurchaseDate = pd
	}
	if cfg.StockDurationDays != nil {
		m.StockDurationDays = *cfg.StockDurationDays
	}
	if cfg.DosageCount != nil {
		m.DosageCount = *cfg.DosageCount
	}
	if len(cfg.DosageTimes) > 0 {
		m.DosageTimes = normalizeDosageTimes(cfg.DosageTimes)
	}
	m.IsActive = true
	m.UpdatedAt = s.now()

	if err := validate(m); err != nil {
		return nil, err
	}

	err = s.medicines.UpdateReminder(ctx, m)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if cfg.TelegramChatID != "" {
		if err := s.users.SetTelegramChatID(ctx, ownerID, cfg.TelegramChatID); err != nil {
			log.WithError(err).Warn("Failed to save telegram chat id on owner profile")
		}
	}

	log.WithField("dosage_times", m.DosageTimes).Info("Reminder set")
	return m, nil
}

// List returns the owner's inventory without donated medicines, soonest
// expiry first.
func (s *MedicineService) List(ctx context.Context, ownerID uuid.UUID) ([]models.TrackedMedicine, error) {
	return s.medicines.ListForOwner(ctx, ownerID)
}

// Delete removes the owner's medicine.
func (s *MedicineService) Delete(ctx context.Context, ownerID, medicineID uuid.UUID) error {
	err := s.medicines.DeleteForOwner(ctx, ownerID, medicineID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
