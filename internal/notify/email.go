package notify

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	emailName    = "email"
	sendEndpoint = "/v3/mail/send"
)

type EmailConfig struct {
	APIKey    string
	Host      string
	FromEmail string
	FromName  string
	PerSecond float64
}

// Email sends HTML mail through SendGrid, keyed by recipient address.
type Email struct {
	client  *sendgrid.Client
	from    *sgmail.Email
	limiter *rate.Limiter
}

// NewEmail returns a Disabled channel when no API key is configured.
func NewEmail(cfg EmailConfig, log *logrus.Logger) Channel {
	if cfg.APIKey == "" {
		return NewDisabled(emailName, "SENDGRID_API_KEY is not set", log)
	}
	log.WithField("host", cfg.Host).Info("Email channel ready")
	return newEmail(cfg)
}

func newEmail(cfg EmailConfig) *Email {
	client := sendgrid.NewSendClient(cfg.APIKey)
	if cfg.Host != "" {
		client.BaseURL = cfg.Host + sendEndpoint
	}
	return &Email{
		client:  client,
		from:    sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		limiter: newLimiter(cfg.PerSecond),
	}
}

func (e *Email) Name() string { return emailName }

func (e *Email) Deliver(ctx context.Context, recipient string, msg Message) (err error) {
	defer guard(emailName, &err)

	if _, err := mail.ParseAddress(recipient); err != nil {
		return fmt.Errorf("invalid email address %q: %w", recipient, err)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limit wait: %w", err)
	}

	m := sgmail.NewSingleEmail(e.from, msg.Subject, sgmail.NewEmail("", recipient), msg.Text, msg.HTML)
	resp, err := e.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid API error (status %d): %s", resp.StatusCode, resp.Body)
	}
	return nil
}
