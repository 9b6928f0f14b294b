package bot

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start runs the bot in polling mode until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errNoAPI
	}
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(update)
		}
	}
}

// WebhookPath is where the app HTTP server receives Telegram updates
const WebhookPath = "/telegram-webhook"

const webhookMaxConnections = 40

// StartWebhook registers baseURL+WebhookPath with Telegram. Updates then arrive
// through the app HTTP server, which passes them to HandleUpdate.
func (b *Bot) StartWebhook(baseURL string) error {
	if b.sender == nil {
		return errNoAPI
	}
	address, err := webhookAddress(baseURL)
	if err != nil {
		return err
	}

	webhookConfig, err := tgbotapi.NewWebhook(address)
	if err != nil {
		return fmt.Errorf("invalid webhook address %q: %w", address, err)
	}
	webhookConfig.MaxConnections = webhookMaxConnections

	if _, err := b.sender.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", address))
		return fmt.Errorf("set webhook: %w", err)
	}

	b.logger.Info("Bot configured for webhook mode",
		zap.String("webhook_url", address),
		zap.Int("max_connections", webhookMaxConnections),
	)
	return nil
}

// webhookAddress joins the public base URL with WebhookPath; Telegram accepts https only
func webhookAddress(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid WEBHOOK_URL %q: %w", baseURL, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("invalid WEBHOOK_URL %q: an https URL is required", baseURL)
	}
	return u.JoinPath(WebhookPath).String(), nil
}

// Drain waits until every queued update has been handled
func (b *Bot) Drain() {
	b.events.Wait()
}
