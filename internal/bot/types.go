package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"adminbot/internal/conversation"
)

// Handler consumes chat events converted from Telegram updates
type Handler interface {
	HandleText(ctx context.Context, msg conversation.TextMessage)
	HandleCallback(ctx context.Context, cb conversation.CallbackAction)
}

// sender is the subset of the Bot API used to deliver screens
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot wrapper. It is both the inbound adapter
// feeding a Handler and the outbound conversation.Transport.
type Bot struct {
	api     *tgbotapi.BotAPI
	sender  sender
	handler Handler
	events  *dispatcher[event]
	seen    *updateFilter
	logger  *zap.Logger
}

// event is one inbound update reduced to what the conversation engine needs
type event struct {
	text     *conversation.TextMessage
	callback *conversation.CallbackAction
}

func (e event) chatID() int64 {
	if e.text != nil {
		return e.text.ChatID
	}
	return e.callback.ChatID
}
