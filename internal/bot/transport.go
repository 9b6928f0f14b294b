package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"adminbot/internal/conversation"
)

// maxMessageLength is the Telegram limit for message text, in characters
const maxMessageLength = 4096

var errNoAPI = errors.New("telegram API is not configured")

// SendScreen sends a screen as a new message and returns its id
func (b *Bot) SendScreen(ctx context.Context, chatID int64, screen conversation.Screen) (int, error) {
	if b.sender == nil {
		return 0, errNoAPI
	}

	msg := tgbotapi.NewMessage(chatID, limitText(screen.Text))
	if screen.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(screen.Rows) > 0 {
		msg.ReplyMarkup = keyboard(screen.Rows)
	}

	sent, err := b.sender.Send(msg)
	if err != nil && msg.ParseMode != "" && isParseError(err) {
		b.logger.Warn("Markdown rejected, resending as plain text", zap.Int64("chat_id", chatID), zap.Error(err))
		msg.ParseMode = ""
		msg.Text = limitText(stripMarkdown(screen.Text))
		sent, err = b.sender.Send(msg)
	}
	if err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

// EditScreen replaces the text and keyboard of an existing message.
// Telegram rejects edits of old messages and edits that change nothing;
// the error is returned so the caller can send a new message instead.
func (b *Bot) EditScreen(ctx context.Context, chatID int64, messageID int, screen conversation.Screen) error {
	if b.sender == nil {
		return errNoAPI
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, limitText(screen.Text))
	if screen.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(screen.Rows) > 0 {
		markup := keyboard(screen.Rows)
		edit.ReplyMarkup = &markup
	}

	if _, err := b.sender.Request(edit); err != nil {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

// Acknowledge answers a callback query, removing the button's loading state
func (b *Bot) Acknowledge(ctx context.Context, callbackID, text string) error {
	if b.sender == nil {
		return errNoAPI
	}
	if _, err := b.sender.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func keyboard(rows [][]conversation.Action) tgbotapi.InlineKeyboardMarkup {
	buttons := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, a := range row {
			line = append(line, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.ID))
		}
		buttons = append(buttons, line)
	}
	return tgbotapi.NewInlineKeyboardMarkup(buttons...)
}

func limitText(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageLength {
		return text
	}
	return strings.TrimRight(string(runes[:maxMessageLength-1]), "\\") + "…"
}

func isParseError(err error) bool {
	return strings.Contains(err.Error(), "can't parse entities")
}

// stripMarkdown turns legacy Markdown into the text it would display:
// escaped characters are kept, unescaped markers are dropped
func stripMarkdown(text string) string {
	var out strings.Builder
	out.Grow(len(text))
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			out.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '*' || r == '_' || r == '`':
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
