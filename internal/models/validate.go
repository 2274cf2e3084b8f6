package models

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validator is shared by every caller; validator caches struct metadata.
var Validator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", validateHHMM)
	_ = v.RegisterValidation("chatid", validateChatID)
	v.RegisterStructValidation(activeReminderLevel, TrackedMedicine{})
	return v
}

// IsDosageTime reports whether s is a zero-padded 24h HH:MM value.
func IsDosageTime(s string) bool {
	if len(s) != len(DosageTimeLayout) {
		return false
	}
	_, err := time.Parse(DosageTimeLayout, s)
	return err == nil
}

func validateHHMM(fl validator.FieldLevel) bool {
	return IsDosageTime(fl.Field().String())
}

// IsChatID reports whether s is a Telegram chat id in canonical base 10 form,
// which is what the chat channel parses at delivery.
func IsChatID(s string) bool {
	id, err := strconv.ParseInt(s, 10, 64)
	return err == nil && strconv.FormatInt(id, 10) == s
}

func validateChatID(fl validator.FieldLevel) bool {
	return IsChatID(fl.Field().String())
}

// an active reminder needs at least one slot and a positive dose
func activeReminderLevel(sl validator.StructLevel) {
	m := sl.Current().Interface().(TrackedMedicine)
	if !m.IsActive {
		return
	}
	if len(m.DosageTimes) == 0 {
		sl.ReportError(m.DosageTimes, "DosageTimes", "dosage_times", "required_when_active", "")
	}
	if m.DosageCount < 1 {
		sl.ReportError(m.DosageCount, "DosageCount", "dosage_count", "min_when_active", "1")
	}
}
