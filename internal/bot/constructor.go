package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	connectRetries = 5
	seenWindow     = 1000
)

// NewBot creates a new Telegram bot. Connecting to the Bot API is retried
// with exponential backoff.
func NewBot(ctx context.Context, token string, logger *zap.Logger) (*Bot, error) {
	var api *tgbotapi.BotAPI
	connect := func() error {
		var err error
		api, err = tgbotapi.NewBotAPI(token)
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Failed to reach Telegram, retrying", zap.Error(err), zap.Duration("wait", wait))
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectRetries), ctx)
	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return newBot(api, api, logger), nil
}

func newBot(api *tgbotapi.BotAPI, s sender, logger *zap.Logger) *Bot {
	b := &Bot{
		api:    api,
		sender: s,
		seen:   newUpdateFilter(seenWindow),
		logger: logger,
	}
	b.events = newDispatcher(b.process)
	return b
}

// SetHandler attaches the consumer of inbound events. It must be called before Start.
func (b *Bot) SetHandler(h Handler) {
	b.handler = h
}

// Username returns the bot's Telegram username
func (b *Bot) Username() string {
	if b.api == nil {
		return ""
	}
	return b.api.Self.UserName
}
