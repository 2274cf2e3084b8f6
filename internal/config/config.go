package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the service reads from the environment.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"mediconnect"`

	// Redis backs the notification ledger. An empty host keeps the ledger in memory.
	RedisHost     string        `envconfig:"R_HOST"`
	RedisPort     string        `envconfig:"R_PORT" default:"6379"`
	RedisPassword string        `envconfig:"R_PASS"`
	LedgerTTL     time.Duration `envconfig:"LEDGER_TTL" default:"48h"`

	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramRate     float64 `envconfig:"TELEGRAM_RATE" default:"25"`

	SendgridAPIKey string  `envconfig:"SENDGRID_API_KEY"`
	SendgridHost   string  `envconfig:"SENDGRID_HOST" default:"https://api.sendgrid.com"`
	SenderEmail    string  `envconfig:"SENDER_EMAIL_ADDRESS" default:"no-reply@mediconnect.local"`
	SenderName     string  `envconfig:"SENDER_NAME" default:"MediConnect"`
	EmailRate      float64 `envconfig:"EMAIL_RATE" default:"10"`

	DailyCheckSpec string `envconfig:"DAILY_CHECK_SPEC" default:"0 8 * * *"`
	DailyCheckTZ   string `envconfig:"DAILY_CHECK_TZ" default:"Asia/Kolkata"`
	// DosageTZ and ExpiryTZ fall back to the process-local zone when empty.
	DosageTZ string `envconfig:"DOSAGE_TZ"`
	ExpiryTZ string `envconfig:"EXPIRY_TZ"`

	RefillLookaheadDays int           `envconfig:"REFILL_LOOKAHEAD_DAYS" default:"3"`
	DailyTickTimeout    time.Duration `envconfig:"DAILY_TICK_TIMEOUT" default:"10m"`
	MinuteTickTimeout   time.Duration `envconfig:"MINUTE_TICK_TIMEOUT" default:"55s"`
}

// Load reads .env.local if present and then the process environment.
func Load() (Config, error) {
	// a missing file is fine, the environment may already be populated
	_ = godotenv.Load(".env.local")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to process environment: %w", err)
	}
	if cfg.TelegramRate <= 0 {
		return cfg, fmt.Errorf("invalid TELEGRAM_RATE %v: must be positive", cfg.TelegramRate)
	}
	if cfg.EmailRate <= 0 {
		return cfg, fmt.Errorf("invalid EMAIL_RATE %v: must be positive", cfg.EmailRate)
	}
	if _, err := time.LoadLocation(cfg.DailyCheckTZ); err != nil {
		return cfg, fmt.Errorf("invalid DAILY_CHECK_TZ %q: %w", cfg.DailyCheckTZ, err)
	}
	if _, err := LoadLocation(cfg.DosageTZ); err != nil {
		return cfg, fmt.Errorf("invalid DOSAGE_TZ %q: %w", cfg.DosageTZ, err)
	}
	if _, err := LoadLocation(cfg.ExpiryTZ); err != nil {
		return cfg, fmt.Errorf("invalid EXPIRY_TZ %q: %w", cfg.ExpiryTZ, err)
	}
	return cfg, nil
}

// DatabaseDSN returns the keyword/value connection string for pgx.
func (c Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// RedisAddr returns host:port, or "" when Redis is not configured.
func (c Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// LoadLocation is time.LoadLocation with "" meaning the process-local zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
