package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediconnect/internal/ledger"
	"mediconnect/internal/models"
	"mediconnect/internal/notify"
	"mediconnect/internal/repository"
)

// Window is a half-open [From, To) range of calendar days. A zero From means
// unbounded below.
type Window struct {
	Bucket models.Bucket
	From   time.Time
	To     time.Time
}

func (w Window) contains(day time.Time) bool {
	if !w.From.IsZero() && day.Before(w.From) {
		return false
	}
	return day.Before(w.To)
}

// ExpiryWindows returns the expiry buckets for today, in processing order.
// Expired keeps a one day grace period; the 7 day window starts at +6 days so
// a medicine is flagged once at that threshold and never as "6 days".
func ExpiryWindows(today time.Time) []Window {
	return []Window{
		{Bucket: models.BucketExpired, To: today.AddDate(0, 0, -1)},
		{Bucket: models.BucketExpiringIn1Day, From: today, To: today.AddDate(0, 0, 1)},
		{Bucket: models.BucketExpiringIn2Day, From: today.AddDate(0, 0, 1), To: today.AddDate(0, 0, 2)},
		{Bucket: models.BucketExpiringIn7Day, From: today.AddDate(0, 0, 6), To: today.AddDate(0, 0, 7)},
	}
}

// ExpiryBucketFor classifies one expiry date. ok is false when the date falls
// in no bucket.
func ExpiryBucketFor(expiry, today time.Time) (models.Bucket, bool) {
	for _, w := range ExpiryWindows(today) {
		if w.contains(expiry) {
			return w.Bucket, true
		}
	}
	return "", false
}

// BucketMatches is the evaluator output for one bucket.
type BucketMatches struct {
	Bucket    models.Bucket
	Medicines []models.OwnedMedicine
}

// ExpiryService runs the daily expiry check: email owners per bucket, then
// remove expired medicines.
type ExpiryService struct {
	dispatcher
	repo  repository.MedicineRepository
	email notify.Channel
	loc   *time.Location
}

func NewExpiryService(repo repository.MedicineRepository, email notify.Channel, l ledger.Ledger,
	loc *time.Location, logger *logrus.Logger) *ExpiryService {
	return &ExpiryService{
		dispatcher: dispatcher{ledger: l, logger: logger},
		repo:       repo,
		email:      email,
		loc:        loc,
	}
}

// Evaluate partitions stored medicines into the expiry buckets for the day
// containing now. A store error fails the whole evaluation.
func (s *ExpiryService) Evaluate(ctx context.Context, now time.Time) ([]BucketMatches, error) {
	today := models.Day(now, s.loc)
	claimed := make(map[uuid.UUID]models.Bucket)

	var out []BucketMatches
	for _, w := range ExpiryWindows(today) {
		var (
			found []models.OwnedMedicine
			err   error
		)
		if w.From.IsZero() {
			found, err = s.repo.FindExpiredBefore(ctx, w.To)
		} else {
			found, err = s.repo.FindExpiringBetween(ctx, w.From, w.To)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s bucket: %w", w.Bucket, err)
		}

		matches := BucketMatches{Bucket: w.Bucket}
		for _, om := range found {
			expiry := models.DateOnly(om.Medicine.ExpiryDate, s.loc)
			if b, ok := ExpiryBucketFor(expiry, today); !ok || b != w.Bucket {
				s.logger.WithFields(logrus.Fields{
					"medicine_id": om.Medicine.ID,
					"bucket":      w.Bucket,
					"expiry_date": expiry.Format(time.DateOnly),
				}).Warn("Store returned a medicine outside the bucket window, ignoring")
				continue
			}
			if prev, dup := claimed[om.Medicine.ID]; dup {
				s.logger.WithFields(logrus.Fields{
					"medicine_id": om.Medicine.ID,
					"bucket":      w.Bucket,
					"claimed_by":  prev,
				}).Warn("Medicine already claimed by another bucket, ignoring")
				continue
			}
			claimed[om.Medicine.ID] = w.Bucket
			matches.Medicines = append(matches.Medicines, om)
		}
		out = append(out, matches)
	}
	return out, nil
}

// Run evaluates and notifies. Every medicine in the expired bucket is deleted
// after its notification attempt whatever the delivery outcome.
func (s *ExpiryService) Run(ctx context.Context, now time.Time) (models.TickReport, error) {
	report := models.TickReport{RunID: uuid.NewString()}
	today := models.Day(now, s.loc)

	s.logger.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"today":  today.Format(time.DateOnly),
	}).Info("Running daily expiry check...")

	buckets, err := s.Evaluate(ctx, now)
	if err != nil {
		return report, err
	}

	for _, bm := range buckets {
		for i := range bm.Medicines {
			om := &bm.Medicines[i]
			fields := recordFields(report.RunID, om)
			fields["bucket"] = bm.Bucket
			report.Matched++

			s.isolate(fields, &report, func() error {
				return s.notify(ctx, bm.Bucket, om, today, fields, &report)
			})

			if bm.Bucket == models.BucketExpired {
				s.isolate(fields, &report, func() error {
					return s.purge(ctx, om, fields, &report)
				})
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":     report.RunID,
		"matched":    report.Matched,
		"delivered":  report.Delivered,
		"skipped":    report.Skipped,
		"duplicates": report.Duplicates,
		"failed":     report.Failed,
		"deleted":    report.Deleted,
	}).Info("Expiry check finished")
	return report, nil
}

func (s *ExpiryService) notify(ctx context.Context, b models.Bucket, om *models.OwnedMedicine, today time.Time,
	fields logrus.Fields, report *models.TickReport) error {
	if om.Owner == nil {
		report.Skipped++
		s.logger.WithFields(fields).Warn("Medicine owner not found, skipping notification")
		return nil
	}

	msg, err := expiryMessage(b, &om.Medicine)
	if err != nil {
		return err
	}
	s.send(ctx, s.email, om.Owner.Email, models.NewBucketEvent(om.Medicine.ID, b, today), msg, fields, report)
	return nil
}

func (s *ExpiryService) purge(ctx context.Context, om *models.OwnedMedicine, fields logrus.Fields, report *models.TickReport) error {
	if err := s.repo.Delete(ctx, om.Medicine.ID); err != nil {
		return err
	}
	report.Deleted++
	s.logger.WithFields(fields).Info("Expired medicine removed")
	return nil
}
