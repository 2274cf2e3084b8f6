package container

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"mediconnect/internal/cache"
	"mediconnect/internal/config"
	"mediconnect/internal/database"
	"mediconnect/internal/ledger"
	"mediconnect/internal/logger"
	"mediconnect/internal/notify"
	"mediconnect/internal/repository"
	"mediconnect/internal/scheduler"
	"mediconnect/internal/services"
)

type Container struct {
	Config config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Logger *logrus.Logger

	Ledger ledger.Ledger
	Chat   notify.Channel
	Email  notify.Channel

	ExpiryService   *services.ExpiryService
	ReminderService *services.ReminderService
	RefillService   *services.RefillService
	MedicineService *services.MedicineService
	Scheduler       *scheduler.Scheduler
}

func New(ctx context.Context, cfg config.Config) (*Container, error) {
	log := logger.Get()

	db, err := database.Connect(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c := &Container{Config: cfg, DB: db, Logger: log}

	if addr := cfg.RedisAddr(); addr != "" {
		c.Redis, err = cache.Connect(ctx, addr, cfg.RedisPassword)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		c.Ledger = ledger.NewRedis(c.Redis, cfg.LedgerTTL)
	} else {
		log.Warn("R_HOST is not set, notification ledger is in memory and resets on restart")
		c.Ledger = ledger.NewMemory(cfg.LedgerTTL)
	}

	dosageLoc, err := config.LoadLocation(cfg.DosageTZ)
	if err != nil {
		c.Close()
		return nil, err
	}
	expiryLoc, err := config.LoadLocation(cfg.ExpiryTZ)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Chat = notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramRate, log)
	c.Email = notify.NewEmail(notify.EmailConfig{
		APIKey:    cfg.SendgridAPIKey,
		Host:      cfg.SendgridHost,
		FromEmail: cfg.SenderEmail,
		FromName:  cfg.SenderName,
		PerSecond: cfg.EmailRate,
	}, log)

	medicines := repository.NewMedicineRepository(db)
	users := repository.NewUserRepository(db)

	c.ExpiryService = services.NewExpiryService(medicines, c.Email, c.Ledger, expiryLoc, log)
	c.ReminderService = services.NewReminderService(medicines, c.Chat, c.Ledger, dosageLoc, log)
	c.RefillService = services.NewRefillService(medicines, c.Chat, c.Ledger, expiryLoc, cfg.RefillLookaheadDays, log)
	c.MedicineService = services.NewMedicineService(medicines, users, log)

	c.Scheduler, err = scheduler.New(scheduler.Config{
		DailySpec:     cfg.DailyCheckSpec,
		DailyTZ:       cfg.DailyCheckTZ,
		DailyTimeout:  cfg.DailyTickTimeout,
		MinuteTimeout: cfg.MinuteTickTimeout,
	}, scheduler.Jobs{
		Expiry: c.ExpiryService,
		Refill: c.RefillService,
		Dosage: c.ReminderService,
	}, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) Close() {
	if c.Redis != nil {
		c.Redis.Close()
		c.Logger.Info("Redis connection closed")
	}
	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("Database connection closed")
	}
}
