package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Bucket names a notification urgency window.
type Bucket string

const (
	BucketExpired        Bucket = "expired"
	BucketExpiringIn1Day Bucket = "expiring_1d"
	BucketExpiringIn2Day Bucket = "expiring_2d"
	BucketExpiringIn7Day Bucket = "expiring_7d"
	BucketRefillDue      Bucket = "refill_due"
	BucketRefillSoon     Bucket = "refill_soon"
)

// NotificationEvent identifies one notification: at most one delivery per
// medicine, slot and calendar day.
type NotificationEvent struct {
	MedicineID uuid.UUID
	Slot       string
	Day        string
}

// NewBucketEvent builds the event for a daily bucket notification.
func NewBucketEvent(id uuid.UUID, b Bucket, day time.Time) NotificationEvent {
	return NotificationEvent{MedicineID: id, Slot: string(b), Day: day.Format(time.DateOnly)}
}

// NewDoseEvent builds the event for a dosage slot notification.
func NewDoseEvent(id uuid.UUID, hhmm string, day time.Time) NotificationEvent {
	return NotificationEvent{MedicineID: id, Slot: "dose@" + hhmm, Day: day.Format(time.DateOnly)}
}

func (e NotificationEvent) String() string {
	return fmt.Sprintf("%s:%s:%s", e.MedicineID, e.Slot, e.Day)
}

// TickReport summarises one scheduler run.
type TickReport struct {
	RunID      string `json:"run_id"`
	Matched    int    `json:"matched"`
	Delivered  int    `json:"delivered"`
	Skipped    int    `json:"skipped"`
	Duplicates int    `json:"duplicates"`
	Failed     int    `json:"failed"`
	Deleted    int    `json:"deleted"`
}

// Add folds other into r.
func (r *TickReport) Add(other TickReport) {
	r.Matched += other.Matched
	r.Delivered += other.Delivered
	r.Skipped += other.Skipped
	r.Duplicates += other.Duplicates
	r.Failed += other.Failed
	r.Deleted += other.Deleted
}
