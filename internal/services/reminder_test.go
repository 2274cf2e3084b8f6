package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediconnect/internal/ledger"
	"mediconnect/internal/models"
)

func newReminderFixture(t *testing.T, loc *time.Location) (*fakeStore, *fakeChannel, *ReminderService) {
	t.Helper()
	store := newFakeStore()
	chat := newFakeChannel("telegram")
	svc := NewReminderService(store, chat, ledger.NewMemory(48*time.Hour), loc, nullLogger())
	return store, chat, svc
}

func TestDosageSlot(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	now := time.Date(2024, time.June, 10, 2, 30, 59, 0, time.UTC)
	assert.Equal(t, "02:30", DosageSlot(now, time.UTC))
	assert.Equal(t, "08:00", DosageSlot(now, kolkata))
	assert.Equal(t, "00:05", DosageSlot(time.Date(2024, time.June, 10, 0, 5, 0, 0, time.UTC), time.UTC))
}

func TestReminderMatchesExactMinuteOnly(t *testing.T) {
	store, chat, svc := newReminderFixture(t, time.UTC)
	owner := store.addOwner("owner@example.com", "12345")
	store.add(models.TrackedMedicine{
		OwnerID:     owner.ID,
		Name:        "Metformin",
		DosageTimes: []string{"08:00", "20:00"},
		DosageCount: 2,
		IsActive:    true,
	})

	report, err := svc.Run(context.Background(), time.Date(2024, time.June, 10, 8, 0, 30, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Delivered)
	require.Len(t, chat.sent, 1)
	assert.Equal(t, "12345", chat.sent[0].recipient)
	assert.Equal(t, "🩺 MediConnect Alert: Time to take 2 unit(s) of Metformin!", chat.sent[0].msg.Text)

	report, err = svc.Run(context.Background(), time.Date(2024, time.June, 10, 8, 1, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Matched)
	assert.Len(t, chat.sent, 1)
}

func TestReminderIgnoresInactive(t *testing.T) {
	store, chat, svc := newReminderFixture(t, time.UTC)
	owner := store.addOwner("owner@example.com", "12345")
	store.add(models.TrackedMedicine{OwnerID: owner.ID, Name: "Paused", DosageTimes: []string{"09:00"}, DosageCount: 1})

	report, err := svc.Run(context.Background(), time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Matched)
	assert.Empty(t, chat.sent)
}

func TestReminderSkipsOwnerWithoutChat(t *testing.T) {
	store, chat, svc := newReminderFixture(t, time.UTC)
	owner := store.addOwner("owner@example.com", "")
	store.add(models.TrackedMedicine{OwnerID: owner.ID, Name: "Aspirin", DosageTimes: []string{"09:00"}, DosageCount: 1, IsActive: true})

	report, err := svc.Run(context.Background(), time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Delivered)
	assert.Empty(t, chat.sent)
}

func TestReminderFailureDoesNotStopOthers(t *testing.T) {
	store, chat, svc := newReminderFixture(t, time.UTC)
	bad := store.addOwner("bad@example.com", "1")
	good := store.addOwner("good@example.com", "2")
	chat.fail["1"] = true
	store.add(models.TrackedMedicine{OwnerID: bad.ID, Name: "A", DosageTimes: []string{"21:15"}, DosageCount: 1, IsActive: true})
	store.add(models.TrackedMedicine{OwnerID: good.ID, Name: "B", DosageTimes: []string{"21:15"}, DosageCount: 1, IsActive: true})

	report, err := svc.Run(context.Background(), time.Date(2024, time.June, 10, 21, 15, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, []string{"2"}, chat.recipients())
}

func TestReminderDisabledChannelCountsAsSkipped(t *testing.T) {
	store, chat, svc := newReminderFixture(t, time.UTC)
	chat.disabled = true
	owner := store.addOwner("owner@example.com", "12345")
	store.add(models.TrackedMedicine{OwnerID: owner.ID, Name: "A", DosageTimes: []string{"07:30"}, DosageCount: 1, IsActive: true})

	report, err := svc.Run(context.Background(), time.Date(2024, time.June, 10, 7, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
}

func TestReminderRerunInSameMinuteIsDuplicate(t *testing.T) {
	store, chat, svc := newReminderFixture(t, time.UTC)
	owner := store.addOwner("owner@example.com", "12345")
	store.add(models.TrackedMedicine{OwnerID: owner.ID, Name: "A", DosageTimes: []string{"07:30"}, DosageCount: 1, IsActive: true})
	now := time.Date(2024, time.June, 10, 7, 30, 0, 0, time.UTC)

	_, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	report, err := svc.Run(context.Background(), now.Add(20*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Duplicates)
	assert.Len(t, chat.sent, 1)

	// same slot on the next day is a new event
	report, err = svc.Run(context.Background(), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
}

func TestReminderUsesConfiguredZone(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	store, chat, svc := newReminderFixture(t, kolkata)
	owner := store.addOwner("owner@example.com", "12345")
	store.add(models.TrackedMedicine{OwnerID: owner.ID, Name: "A", DosageTimes: []string{"08:00"}, IsActive: true})

	report, err := svc.Run(context.Background(), time.Date(2024, time.June, 10, 2, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
	require.Len(t, chat.sent, 1)
	assert.Contains(t, chat.sent[0].msg.Text, "Time to take 1 unit(s) of A!")
}

func TestReminderFailsOnStoreError(t *testing.T) {
	store, _, svc := newReminderFixture(t, time.UTC)
	store.failQuery = true

	_, err := svc.Run(context.Background(), time.Now())
	assert.ErrorIs(t, err, errStoreDown)
}
