package models

import (
	"time"

	"github.com/google/uuid"
)

// DosageTimeLayout is the wall-clock format of a dosage slot.
const DosageTimeLayout = "15:04"

// TrackedMedicine is one entry of a user's personal medicine inventory.
type TrackedMedicine struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	OwnerID             uuid.UUID `json:"owner_id" db:"owner_id" validate:"required"`
	Name                string    `json:"name" db:"name" validate:"required,max=200"`
	Brand               string    `json:"brand,omitempty" db:"brand" validate:"max=200"`
	Quantity            string    `json:"quantity,omitempty" db:"quantity" validate:"max=100"`
	ExpiryDate          time.Time `json:"expiry_date" db:"expiry_date" validate:"required"`
	DosageTimes         []string  `json:"dosage_times" db:"dosage_times" validate:"dive,hhmm"`
	DosageCount         int       `json:"dosage_count" db:"dosage_count" validate:"gte=0"`
	StockDurationDays   int       `json:"stock_duration_days" db:"stock_duration_days" validate:"gte=0"`
	PurchaseDate        time.Time `json:"purchase_date" db:"purchase_date"`
	IsActive            bool      `json:"is_active" db:"is_active"`
	IsDonated           bool      `json:"is_donated" db:"is_donated"`
	IsQueuedForDonation bool      `json:"is_queued_for_donation" db:"is_queued_for_donation"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// StockRunsOutOn is the calendar day, in loc, the purchased stock is used up.
func (m *TrackedMedicine) StockRunsOutOn(loc *time.Location) time.Time {
	return DateOnly(m.PurchaseDate, loc).AddDate(0, 0, m.StockDurationDays)
}

// OwnedMedicine is a medicine joined with its owner. Owner is nil when the
// owner row could not be resolved.
type OwnedMedicine struct {
	Medicine TrackedMedicine
	Owner    *User
}

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DateOnly reinterprets a stored calendar date (whatever zone the driver
// returned it in) as midnight of the same calendar day in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
