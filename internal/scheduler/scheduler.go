// Package scheduler fires the reminder checks on their cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"mediconnect/internal/models"
)

// MinuteSpec fires the dosage check at the start of every minute.
const MinuteSpec = "* * * * *"

// Runner is one check. Each services evaluator satisfies it.
type Runner interface {
	Run(ctx context.Context, now time.Time) (models.TickReport, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, now time.Time) (models.TickReport, error)

func (f RunnerFunc) Run(ctx context.Context, now time.Time) (models.TickReport, error) {
	return f(ctx, now)
}

type Config struct {
	DailySpec     string
	DailyTZ       string
	DailyTimeout  time.Duration
	MinuteTimeout time.Duration
}

type Jobs struct {
	Expiry Runner
	Refill Runner
	Dosage Runner
}

type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	jobs     Jobs
	logger   *logrus.Logger
	now      func() time.Time
	dailyID  cron.EntryID
	minuteID cron.EntryID
}

func New(cfg Config, jobs Jobs, logger *logrus.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cfg:    cfg,
		jobs:   jobs,
		logger: logger,
		now:    time.Now,
	}

	dailySpec := fmt.Sprintf("CRON_TZ=%s %s", cfg.DailyTZ, cfg.DailySpec)
	id, err := s.cron.AddJob(dailySpec, s.tick("daily", cfg.DailyTimeout,
		named{"expiry", jobs.Expiry},
		named{"refill", jobs.Refill},
	))
	if err != nil {
		return nil, fmt.Errorf("failed to add daily check %q: %w", dailySpec, err)
	}
	s.dailyID = id

	id, err = s.cron.AddJob(MinuteSpec, s.tick("dosage", cfg.MinuteTimeout, named{"dosage", jobs.Dosage}))
	if err != nil {
		return nil, fmt.Errorf("failed to add dosage check: %w", err)
	}
	s.minuteID = id

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.WithFields(logrus.Fields{
			"entry_id": e.ID,
			"next":     e.Next,
		}).Info("Scheduled check")
	}
	s.logger.Info("Scheduler started")
}

// Stop halts new ticks and waits for running ones to finish or for ctx to
// expire. Running ticks are never cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler did not drain: %w", ctx.Err())
	}
}

type named struct {
	name   string
	runner Runner
}

// tick builds one cron job. Its context derives from Background so process
// shutdown does not cut a tick short.
func (s *Scheduler) tick(timer string, timeout time.Duration, runners ...named) cron.Job {
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		now := s.now()
		var total models.TickReport
		failed := 0
		for _, r := range runners {
			if r.runner == nil {
				continue
			}
			log := s.logger.WithFields(logrus.Fields{"timer": timer, "check": r.name})

			start := time.Now()
			report, err := r.runner.Run(ctx, now)
			if err != nil {
				failed++
				log.WithError(err).Error("Check failed")
				continue
			}
			total.Add(report)
			log.WithFields(logrus.Fields{
				"run_id":    report.RunID,
				"matched":   report.Matched,
				"delivered": report.Delivered,
				"failed":    report.Failed,
				"took":      time.Since(start).String(),
			}).Debug("Check finished")
		}
		s.report(timer, total, failed)
	})
}

// report logs the folded outcome of one tick. Quiet minutes stay at debug.
func (s *Scheduler) report(timer string, total models.TickReport, failedChecks int) {
	log := s.logger.WithFields(logrus.Fields{
		"timer":         timer,
		"matched":       total.Matched,
		"delivered":     total.Delivered,
		"skipped":       total.Skipped,
		"duplicates":    total.Duplicates,
		"failed":        total.Failed,
		"deleted":       total.Deleted,
		"failed_checks": failedChecks,
	})
	if total.Matched == 0 && failedChecks == 0 {
		log.Debug("Tick finished")
		return
	}
	log.Info("Tick finished")
}

// cronLogger routes cron's own logging into logrus. Routine cron chatter is
// debug level; a skipped overlapping tick is a warning.
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) fields(keysAndValues []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	if msg == "skip" {
		l.logger.WithFields(l.fields(keysAndValues)).Warn("Previous tick still running, skipping")
		return
	}
	l.logger.WithFields(l.fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.WithFields(l.fields(keysAndValues)).WithError(err).Error("cron: " + msg)
}
