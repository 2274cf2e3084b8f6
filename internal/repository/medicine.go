package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediconnect/internal/models"
)

var ErrNotFound = errors.New("not found")

// MedicineRepository is the persisted store consumed by the evaluators and the
// reminder configuration service. Date arguments are calendar days; only their
// year, month and day are significant.
type MedicineRepository interface {
	FindExpiredBefore(ctx context.Context, before time.Time) ([]models.OwnedMedicine, error)
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.OwnedMedicine, error)
	FindActiveByDosageTime(ctx context.Context, hhmm string) ([]models.OwnedMedicine, error)
	FindStockRunningOutBetween(ctx context.Context, from, to time.Time) ([]models.OwnedMedicine, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Create(ctx context.Context, m *models.TrackedMedicine) error
	GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.TrackedMedicine, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.TrackedMedicine, error)
	UpdateReminder(ctx context.Context, m *models.TrackedMedicine) error
	DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID) error
}

type medicineRepository struct {
	db *pgxpool.Pool
}

func NewMedicineRepository(db *pgxpool.Pool) MedicineRepository {
	return &medicineRepository{db: db}
}

const medicineColumns = `
	m.id, m.owner_id, m.name, m.brand, m.quantity, m.expiry_date, m.dosage_times,
	m.dosage_count, m.stock_duration_days, m.purchase_date, m.is_active,
	m.is_donated, m.is_queued_for_donation, m.created_at, m.updated_at`

const ownedSelect = `SELECT ` + medicineColumns + `,
	u.email AS owner_email, u.role AS owner_role, u.telegram_chat_id AS owner_telegram_chat_id
	FROM user_medicines m
	LEFT JOIN users u ON u.id = m.owner_id
`

// ownedRow flattens a medicine with nullable owner columns from the LEFT JOIN.
type ownedRow struct {
	models.TrackedMedicine
	OwnerEmail  *string `db:"owner_email"`
	OwnerRole   *string `db:"owner_role"`
	OwnerChatID *string `db:"owner_telegram_chat_id"`
}

func (r *ownedRow) owned() models.OwnedMedicine {
	out := models.OwnedMedicine{Medicine: r.TrackedMedicine}
	if r.OwnerEmail == nil {
		return out
	}
	out.Owner = &models.User{
		ID:             r.OwnerID,
		Email:          *r.OwnerEmail,
		TelegramChatID: r.OwnerChatID,
	}
	if r.OwnerRole != nil {
		out.Owner.Role = models.Role(*r.OwnerRole)
	}
	return out
}

func (r *medicineRepository) selectOwned(ctx context.Context, where string, args ...any) ([]models.OwnedMedicine, error) {
	var rows []ownedRow
	if err := pgxscan.Select(ctx, r.db, &rows, ownedSelect+where, args...); err != nil {
		return nil, err
	}

	out := make([]models.OwnedMedicine, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].owned())
	}
	return out, nil
}

func (r *medicineRepository) FindExpiredBefore(ctx context.Context, before time.Time) ([]models.OwnedMedicine, error) {
	res, err := r.selectOwned(ctx, `WHERE m.expiry_date < $1 ORDER BY m.expiry_date, m.id`, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired medicines: %w", err)
	}
	return res, nil
}

func (r *medicineRepository) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]models.OwnedMedicine, error) {
	res, err := r.selectOwned(ctx,
		`WHERE m.expiry_date >= $1 AND m.expiry_date < $2 ORDER BY m.expiry_date, m.id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring medicines: %w", err)
	}
	return res, nil
}

func (r *medicineRepository) FindActiveByDosageTime(ctx context.Context, hhmm string) ([]models.OwnedMedicine, error) {
	res, err := r.selectOwned(ctx, `WHERE m.is_active AND $1 = ANY(m.dosage_times) ORDER BY m.id`, hhmm)
	if err != nil {
		return nil, fmt.Errorf("failed to query dosage reminders: %w", err)
	}
	return res, nil
}

func (r *medicineRepository) FindStockRunningOutBetween(ctx context.Context, from, to time.Time) ([]models.OwnedMedicine, error) {
	res, err := r.selectOwned(ctx, `
		WHERE m.is_active AND NOT m.is_donated AND m.stock_duration_days > 0
		  AND (m.purchase_date + m.stock_duration_days) >= $1
		  AND (m.purchase_date + m.stock_duration_days) < $2
		ORDER BY m.id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock run-outs: %w", err)
	}
	return res, nil
}

func (r *medicineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM user_medicines WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete medicine: %w", err)
	}
	return nil
}

func (r *medicineRepository) Create(ctx context.Context, m *models.TrackedMedicine) error {
	query := `
	INSERT INTO user_medicines (
		id, owner_id, name, brand, quantity, expiry_date, dosage_times, dosage_count,
		stock_duration_days, purchase_date, is_active, is_donated, is_queued_for_donation,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.OwnerID, m.Name, m.Brand, m.Quantity, m.ExpiryDate, m.DosageTimes, m.DosageCount,
		m.StockDurationDays, m.PurchaseDate, m.IsActive, m.IsDonated, m.IsQueuedForDonation,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medicine: %w", err)
	}
	return nil
}

func (r *medicineRepository) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.TrackedMedicine, error) {
	var m models.TrackedMedicine
	err := pgxscan.Get(ctx, r.db, &m,
		`SELECT `+medicineColumns+` FROM user_medicines m WHERE m.id = $1 AND m.owner_id = $2`, id, ownerID)
	if pgxscan.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}
	return &m, nil
}

// ListForOwner returns the owner's medicines that were not donated, soonest
// expiry first.
func (r *medicineRepository) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.TrackedMedicine, error) {
	out := []models.TrackedMedicine{}
	err := pgxscan.Select(ctx, r.db, &out,
		`SELECT `+medicineColumns+` FROM user_medicines m
		WHERE m.owner_id = $1 AND NOT m.is_donated
		ORDER BY m.expiry_date, m.id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medicines: %w", err)
	}
	return out, nil
}

func (r *medicineRepository) UpdateReminder(ctx context.Context, m *models.TrackedMedicine) error {
	query := `
	UPDATE user_medicines
	SET purchase_date = $3, stock_duration_days = $4, dosage_count = $5,
	    dosage_times = $6, is_active = $7, updated_at = $8
	WHERE id = $1 AND owner_id = $2
	`
	tag, err := r.db.Exec(ctx, query,
		m.ID, m.OwnerID, m.PurchaseDate, m.StockDurationDays, m.DosageCount,
		m.DosageTimes, m.IsActive, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *medicineRepository) DeleteForOwner(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_medicines WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete medicine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
