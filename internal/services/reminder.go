package services

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediconnect/internal/ledger"
	"mediconnect/internal/models"
	"mediconnect/internal/notify"
	"mediconnect/internal/repository"
)

// DosageSlot formats now as the zero-padded HH:MM slot in loc.
func DosageSlot(now time.Time, loc *time.Location) string {
	return now.In(loc).Format(models.DosageTimeLayout)
}

// ReminderService sends dosage reminders for the slot matching the current
// minute.
type ReminderService struct {
	dispatcher
	repo repository.MedicineRepository
	chat notify.Channel
	loc  *time.Location
}

func NewReminderService(repo repository.MedicineRepository, chat notify.Channel, l ledger.Ledger,
	loc *time.Location, logger *logrus.Logger) *ReminderService {
	return &ReminderService{
		dispatcher: dispatcher{ledger: l, logger: logger},
		repo:       repo,
		chat:       chat,
		loc:        loc,
	}
}

// Match returns the slot for now and every active medicine scheduled at
// exactly that slot.
func (s *ReminderService) Match(ctx context.Context, now time.Time) (string, []models.OwnedMedicine, error) {
	slot := DosageSlot(now, s.loc)

	found, err := s.repo.FindActiveByDosageTime(ctx, slot)
	if err != nil {
		return slot, nil, err
	}

	matched := found[:0]
	for _, om := range found {
		if !om.Medicine.IsActive || !slices.Contains(om.Medicine.DosageTimes, slot) {
			continue
		}
		matched = append(matched, om)
	}
	return slot, matched, nil
}

// Run sends one reminder per matched medicine whose owner has a linked chat.
func (s *ReminderService) Run(ctx context.Context, now time.Time) (models.TickReport, error) {
	report := models.TickReport{RunID: uuid.NewString()}

	slot, matched, err := s.Match(ctx, now)
	if err != nil {
		return report, err
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":  report.RunID,
		"slot":    slot,
		"matched": len(matched),
	}).Debug("Checking dosage reminders...")

	today := models.Day(now, s.loc)
	for i := range matched {
		om := &matched[i]
		fields := recordFields(report.RunID, om)
		report.Matched++

		s.isolate(fields, &report, func() error {
			ev := models.NewDoseEvent(om.Medicine.ID, slot, today)
			s.send(ctx, s.chat, om.Owner.ChatID(), ev, doseMessage(&om.Medicine), fields, &report)
			return nil
		})
	}

	if report.Matched > 0 {
		s.logger.WithFields(logrus.Fields{
			"run_id":     report.RunID,
			"slot":       slot,
			"matched":    report.Matched,
			"delivered":  report.Delivered,
			"skipped":    report.Skipped,
			"duplicates": report.Duplicates,
			"failed":     report.Failed,
		}).Info("Processed dosage reminders")
	}
	return report, nil
}
