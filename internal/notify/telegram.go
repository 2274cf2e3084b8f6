package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const telegramName = "telegram"

// Telegram sends plain text messages through a bot, keyed by chat id. The
// bot handshake is retried on delivery until it succeeds once.
type Telegram struct {
	token    string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegram returns a Disabled channel only when no token is configured. A
// failed handshake at startup is logged and retried on the next delivery.
func NewTelegram(token string, perSecond float64, log *logrus.Logger) Channel {
	return startTelegram(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 30 * time.Second}, perSecond, log)
}

func startTelegram(token, endpoint string, client *http.Client, perSecond float64, log *logrus.Logger) Channel {
	if token == "" {
		return NewDisabled(telegramName, "TELEGRAM_BOT_TOKEN is not set", log)
	}

	t := newTelegram(token, endpoint, client, perSecond)
	bot, err := t.connect()
	if err != nil {
		log.WithError(err).Warn("Telegram handshake failed, retrying on next delivery")
		return t
	}
	log.WithField("bot", bot.Self.UserName).Info("Telegram channel ready")
	return t
}

// NewTelegramWithEndpoint is NewTelegram against a custom API endpoint
// (format "https://host/bot%s/%s"). It fails if the handshake fails.
func NewTelegramWithEndpoint(token, endpoint string, client *http.Client, perSecond float64) (*Telegram, error) {
	t := newTelegram(token, endpoint, client, perSecond)
	if _, err := t.connect(); err != nil {
		return nil, err
	}
	return t, nil
}

func newTelegram(token, endpoint string, client *http.Client, perSecond float64) *Telegram {
	return &Telegram{
		token:    token,
		endpoint: endpoint,
		client:   client,
		limiter:  newLimiter(perSecond),
	}
}

// connect returns the bot, performing the getMe handshake if it has not
// succeeded yet.
func (t *Telegram) connect() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("failed to start telegram bot: %w", err)
	}
	bot.Debug = false
	t.bot = bot
	return bot, nil
}

func (t *Telegram) Name() string { return telegramName }

func (t *Telegram) Deliver(ctx context.Context, recipient string, msg Message) (err error) {
	defer guard(telegramName, &err)

	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", recipient, err)
	}
	bot, err := t.connect()
	if err != nil {
		return err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	if _, err := bot.Send(tgbotapi.NewMessage(chatID, msg.Text)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
