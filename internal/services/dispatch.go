package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"mediconnect/internal/ledger"
	"mediconnect/internal/models"
	"mediconnect/internal/notify"
)

// dispatcher is the delivery step shared by every evaluator: ledger check,
// channel delivery, ledger write.
type dispatcher struct {
	ledger ledger.Ledger
	logger *logrus.Logger
}

// send delivers msg once per event. It never returns an error; outcomes are
// counted on report and logged.
func (d *dispatcher) send(ctx context.Context, ch notify.Channel, recipient string, ev models.NotificationEvent,
	msg notify.Message, fields logrus.Fields, report *models.TickReport) {
	log := d.logger.WithFields(fields).WithFields(logrus.Fields{
		"channel": ch.Name(),
		"slot":    ev.Slot,
	})

	if recipient == "" {
		report.Skipped++
		log.Debug("Owner has no address for channel, skipping")
		return
	}

	seen, err := d.ledger.Seen(ctx, ev)
	if err != nil {
		// a duplicate beats a missed notification
		log.WithError(err).Warn("Ledger lookup failed, delivering anyway")
	} else if seen {
		report.Duplicates++
		log.Debug("Already notified for this slot today")
		return
	}

	if err := ch.Deliver(ctx, recipient, msg); err != nil {
		if errors.Is(err, notify.ErrDisabled) {
			report.Skipped++
			return
		}
		report.Failed++
		log.WithError(err).Error("Failed to deliver notification")
		return
	}

	report.Delivered++
	if err := d.ledger.Record(ctx, ev); err != nil {
		log.WithError(err).Warn("Failed to record notification in ledger")
	}
	log.Info("Notification delivered")
}

// isolate runs fn for a single record so a failure or panic is logged and
// counted without aborting the rest of the tick.
func (d *dispatcher) isolate(fields logrus.Fields, report *models.TickReport, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err != nil {
		report.Failed++
		d.logger.WithFields(fields).WithError(err).Error("Failed to process record")
	}
}

func recordFields(runID string, om *models.OwnedMedicine) logrus.Fields {
	return logrus.Fields{
		"run_id":      runID,
		"medicine_id": om.Medicine.ID,
		"owner_id":    om.Medicine.OwnerID,
	}
}
