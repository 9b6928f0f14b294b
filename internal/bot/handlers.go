package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"adminbot/internal/conversation"
)

// HandleUpdate converts a Telegram update into a chat event and queues it
// behind any earlier events of the same chat
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	if !b.seen.firstSeen(update.UpdateID) {
		b.logger.Debug("Dropping duplicate update", zap.Int("update_id", update.UpdateID))
		return
	}

	ev, ok := toEvent(update)
	if !ok {
		return
	}
	b.events.Dispatch(ev.chatID(), ev)
}

func toEvent(update tgbotapi.Update) (event, bool) {
	if msg := update.Message; msg != nil && msg.Chat != nil && msg.Text != "" {
		return event{text: &conversation.TextMessage{ChatID: msg.Chat.ID, Text: msg.Text}}, true
	}

	if query := update.CallbackQuery; query != nil {
		cb := &conversation.CallbackAction{CallbackID: query.ID, ActionID: query.Data}
		if query.Message != nil && query.Message.Chat != nil {
			cb.ChatID = query.Message.Chat.ID
			cb.MessageID = query.Message.MessageID
		} else if query.From != nil {
			cb.ChatID = query.From.ID
		}
		return event{callback: cb}, true
	}
	return event{}, false
}

// process runs one event. A panic is logged and never stops the update loop.
func (b *Bot) process(ev event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic while handling update",
				zap.Int64("chat_id", ev.chatID()), zap.Any("panic", r))
		}
	}()

	if b.handler == nil {
		b.logger.Warn("No handler attached, dropping update", zap.Int64("chat_id", ev.chatID()))
		return
	}

	ctx := context.Background()
	if ev.text != nil {
		b.handler.HandleText(ctx, *ev.text)
		return
	}
	b.handler.HandleCallback(ctx, *ev.callback)
}
