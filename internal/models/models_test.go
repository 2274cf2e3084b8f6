package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsDosageTime(t *testing.T) {
	for _, ok := range []string{"00:00", "08:05", "23:59"} {
		assert.True(t, IsDosageTime(ok), ok)
	}
	for _, bad := range []string{"", "8:05", "24:00", "12:60", "1205", "12:05:00", " 12:05"} {
		assert.False(t, IsDosageTime(bad), bad)
	}
}

func TestIsChatID(t *testing.T) {
	for _, ok := range []string{"42", "-1001234567890", "0"} {
		assert.True(t, IsChatID(ok), ok)
	}
	for _, bad := range []string{"", "1.5", "+7", "007", "@someone", "99999999999999999999", " 42"} {
		assert.False(t, IsChatID(bad), bad)
	}
}

func TestActiveReminderNeedsSchedule(t *testing.T) {
	m := TrackedMedicine{
		OwnerID:    uuid.New(),
		Name:       "Paracetamol",
		ExpiryDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, Validator.Struct(m))

	m.IsActive = true
	assert.Error(t, Validator.Struct(m))

	m.DosageTimes = []string{"08:00"}
	m.DosageCount = 1
	assert.NoError(t, Validator.Struct(m))

	m.DosageTimes = []string{"8am"}
	assert.Error(t, Validator.Struct(m))
}

func TestStockRunsOutOn(t *testing.T) {
	kolkata, _ := time.LoadLocation("Asia/Kolkata")
	m := TrackedMedicine{
		PurchaseDate:      time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		StockDurationDays: 30,
	}
	want := time.Date(2024, time.July, 1, 0, 0, 0, 0, kolkata)
	assert.True(t, want.Equal(m.StockRunsOutOn(kolkata)))
}

func TestDayTruncatesInZone(t *testing.T) {
	kolkata, _ := time.LoadLocation("Asia/Kolkata")
	// 20:00 UTC is already the next day in Kolkata
	now := time.Date(2024, time.June, 10, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-11", Day(now, kolkata).Format(time.DateOnly))
	assert.Equal(t, "2024-06-10", Day(now, time.UTC).Format(time.DateOnly))
}

func TestNotificationEventKeys(t *testing.T) {
	id := uuid.MustParse("6f1c2b1e-0000-4000-8000-000000000001")
	day := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, id.String()+":expiring_7d:2024-06-10", NewBucketEvent(id, BucketExpiringIn7Day, day).String())
	assert.Equal(t, id.String()+":dose@08:00:2024-06-10", NewDoseEvent(id, "08:00", day).String())
	assert.NotEqual(t, NewDoseEvent(id, "08:00", day), NewDoseEvent(id, "20:00", day))
}

func TestUserChatID(t *testing.T) {
	var nobody *User
	assert.Empty(t, nobody.ChatID())

	chat := "42"
	assert.Equal(t, "42", (&User{TelegramChatID: &chat}).ChatID())
	assert.Empty(t, (&User{}).ChatID())
}

func TestTickReportAdd(t *testing.T) {
	total := TickReport{RunID: "daily", Matched: 1, Delivered: 1}
	total.Add(TickReport{RunID: "other", Matched: 3, Skipped: 1, Duplicates: 1, Failed: 1, Deleted: 2})

	assert.Equal(t, TickReport{
		RunID: "daily", Matched: 4, Delivered: 1, Skipped: 1, Duplicates: 1, Failed: 1, Deleted: 2,
	}, total)
}
