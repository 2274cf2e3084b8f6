// Package notify holds the delivery channels used by the scheduler. A channel
// reports failure through its error result and never panics past Deliver.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrDisabled is returned by a channel that was started without credentials.
var ErrDisabled = errors.New("notification channel disabled")

// Message is the channel-neutral payload. Chat channels send Text; email
// channels send Subject with HTML and Text as the plain alternative.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Channel delivers one message to one recipient. The recipient is a chat id
// or an email address depending on the implementation. Errors are terminal
// for that message; callers do not retry.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, recipient string, msg Message) error
}

// Disabled is the stand-in for a channel whose credentials are missing.
type Disabled struct {
	name string
}

// NewDisabled logs once that name is off for the process lifetime.
func NewDisabled(name, reason string, log *logrus.Logger) *Disabled {
	log.WithFields(logrus.Fields{
		"channel": name,
		"reason":  reason,
	}).Warn("Notification channel disabled, deliveries will be skipped")
	return &Disabled{name: name}
}

func (d *Disabled) Name() string { return d.name }

func (d *Disabled) Deliver(context.Context, string, Message) error {
	return ErrDisabled
}

// guard turns a provider panic into an error.
func guard(channel string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s delivery panicked: %v", channel, r)
	}
}

// newLimiter allows perSecond deliveries with a burst of one. A non-positive
// rate means unthrottled.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
