package handlers

import (
	"context"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"conciergebot/internal/engine"
)

// HandleUpdate - единая точка входа для long polling и webhook.
func (bh *BotHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		bh.HandleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		bh.HandleMessage(ctx, update.Message)
	default:
		bh.logger.Debug("обновление пропущено", zap.Int("updateID", update.UpdateID))
	}
}

// HandleMessage обрабатывает текст, команды и отправленный контакт.
// HandleMessage processes text, commands and shared contacts.
func (bh *BotHandler) HandleMessage(ctx context.Context, message *tgbotapi.Message) {
	ev, ok := messageEvent(message)
	if !ok {
		bh.logger.Debug("сообщение без текста пропущено",
			zap.Int64("chatID", message.Chat.ID), zap.Int("messageID", message.MessageID))
		return
	}
	bh.process(ctx, ev)
}

// messageEvent переводит сообщение в событие. Фото, стикеры и прочие
// вложения бот не обрабатывает.
func messageEvent(message *tgbotapi.Message) (engine.Event, bool) {
	var ev engine.Event
	switch {
	case message.Contact != nil:
		ev = engine.ContactEvent(message.Contact.PhoneNumber)
	case message.IsCommand():
		ev = engine.CommandEvent(message.Command(), message.CommandArguments())
	case message.Text != "":
		ev = engine.TextEvent(message.Text)
	default:
		return engine.Event{}, false
	}
	ev.ChatID = message.Chat.ID
	ev.MessageID = message.MessageID
	if message.From != nil {
		ev.UserID = message.From.ID
		ev.Username = message.From.UserName
		ev.FirstName = message.From.FirstName
	}
	return ev, true
}
