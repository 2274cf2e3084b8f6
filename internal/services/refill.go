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

// RefillWindows returns the refill buckets for today. RefillSoon covers the
// single day lookahead days out, the same threshold pattern as the 7 day
// expiry window; it is omitted when lookahead is below 2.
func RefillWindows(today time.Time, lookahead int) []Window {
	windows := []Window{
		{Bucket: models.BucketRefillDue, From: today, To: today.AddDate(0, 0, 1)},
	}
	if lookahead >= 2 {
		windows = append(windows, Window{
			Bucket: models.BucketRefillSoon,
			From:   today.AddDate(0, 0, lookahead-1),
			To:     today.AddDate(0, 0, lookahead),
		})
	}
	return windows
}

// RefillBucketFor classifies a stock run-out day.
func RefillBucketFor(runOut, today time.Time, lookahead int) (models.Bucket, bool) {
	for _, w := range RefillWindows(today, lookahead) {
		if w.contains(runOut) {
			return w.Bucket, true
		}
	}
	return "", false
}

// RefillService warns owners over chat before their purchased stock runs out.
type RefillService struct {
	dispatcher
	repo      repository.MedicineRepository
	chat      notify.Channel
	loc       *time.Location
	lookahead int
}

func NewRefillService(repo repository.MedicineRepository, chat notify.Channel, l ledger.Ledger,
	loc *time.Location, lookahead int, logger *logrus.Logger) *RefillService {
	return &RefillService{
		dispatcher: dispatcher{ledger: l, logger: logger},
		repo:       repo,
		chat:       chat,
		loc:        loc,
		lookahead:  lookahead,
	}
}

func (s *RefillService) Evaluate(ctx context.Context, now time.Time) ([]BucketMatches, error) {
	today := models.Day(now, s.loc)

	var out []BucketMatches
	for _, w := range RefillWindows(today, s.lookahead) {
		found, err := s.repo.FindStockRunningOutBetween(ctx, w.From, w.To)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate %s bucket: %w", w.Bucket, err)
		}

		matches := BucketMatches{Bucket: w.Bucket}
		for _, om := range found {
			if !om.Medicine.IsActive || om.Medicine.IsDonated || om.Medicine.StockDurationDays < 1 {
				continue
			}
			if b, ok := RefillBucketFor(om.Medicine.StockRunsOutOn(s.loc), today, s.lookahead); !ok || b != w.Bucket {
				continue
			}
			matches.Medicines = append(matches.Medicines, om)
		}
		out = append(out, matches)
	}
	return out, nil
}

func (s *RefillService) Run(ctx context.Context, now time.Time) (models.TickReport, error) {
	report := models.TickReport{RunID: uuid.NewString()}
	today := models.Day(now, s.loc)

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
				ev := models.NewBucketEvent(om.Medicine.ID, bm.Bucket, today)
				msg := refillMessage(bm.Bucket, &om.Medicine, s.lookahead-1)
				s.send(ctx, s.chat, om.Owner.ChatID(), ev, msg, fields, &report)
				return nil
			})
		}
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":     report.RunID,
		"matched":    report.Matched,
		"delivered":  report.Delivered,
		"skipped":    report.Skipped,
		"duplicates": report.Duplicates,
		"failed":     report.Failed,
	}).Info("Refill check finished")
	return report, nil
}
