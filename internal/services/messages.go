package services

import (
	"bytes"
	"fmt"
	"html/template"

	"mediconnect/internal/models"
	"mediconnect/internal/notify"
)

const (
	alertPrefix     = "🩺 MediConnect Alert: "
	placeholderName = "your medicine"
)

// expiryPhrases completes "Your medicine, X, ..." per bucket.
var expiryPhrases = map[models.Bucket]string{
	models.BucketExpired:        "has expired, please dispose of it safely",
	models.BucketExpiringIn1Day: "expires tomorrow",
	models.BucketExpiringIn2Day: "expires in 2 days",
	models.BucketExpiringIn7Day: "expires in 7 days",
}

var expiryEmailTmpl = template.Must(template.New("expiry").Parse(
	`<p>Hi there,</p>
<p>This is a reminder from MediConnect:</p>
<p>Your medicine, <b>{{.Name}}</b>, {{.Phrase}}.</p>
<p>Thank you,<br>The MediConnect Team</p>
`))

func displayName(m *models.TrackedMedicine) string {
	if m.Name == "" {
		return placeholderName
	}
	return m.Name
}

func displayDose(m *models.TrackedMedicine) int {
	if m.DosageCount < 1 {
		return 1
	}
	return m.DosageCount
}

func expiryMessage(b models.Bucket, m *models.TrackedMedicine) (notify.Message, error) {
	phrase, ok := expiryPhrases[b]
	if !ok {
		return notify.Message{}, fmt.Errorf("no expiry template for bucket %q", b)
	}
	name := displayName(m)

	var html bytes.Buffer
	if err := expiryEmailTmpl.Execute(&html, struct{ Name, Phrase string }{name, phrase}); err != nil {
		return notify.Message{}, fmt.Errorf("failed to render expiry email: %w", err)
	}

	return notify.Message{
		Subject: "Medicine Expiry Reminder: " + name,
		Text:    fmt.Sprintf("Your medicine, %s, %s.", name, phrase),
		HTML:    html.String(),
	}, nil
}

func doseMessage(m *models.TrackedMedicine) notify.Message {
	return notify.Message{
		Text: alertPrefix + fmt.Sprintf("Time to take %d unit(s) of %s!", displayDose(m), displayName(m)),
	}
}

func refillMessage(b models.Bucket, m *models.TrackedMedicine, daysLeft int) notify.Message {
	name := displayName(m)
	if b == models.BucketRefillDue {
		return notify.Message{Text: alertPrefix + fmt.Sprintf("Your stock of %s runs out today. Time to refill!", name)}
	}
	return notify.Message{
		Text: alertPrefix + fmt.Sprintf("Your stock of %s runs out in %d days. Consider refilling soon.", name, daysLeft),
	}
}
