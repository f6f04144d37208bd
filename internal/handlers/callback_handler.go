package handlers

import (
	"context"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"conciergebot/internal/engine"
)

// HandleCallback обрабатывает нажатия inline-кнопок. На callback отвечаем
// сразу и ровно один раз, чтобы у кнопки пропали "часики" даже при ошибке.
// HandleCallback handles inline button presses.
func (bh *BotHandler) HandleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if err := bh.Deps.Nav.Messages().Transport().AnswerCallback(ctx, query.ID, ""); err != nil {
		bh.logger.Debug("не удалось ответить на callback", zap.String("callbackID", query.ID), zap.Error(err))
	}

	ev, ok := callbackEvent(query)
	if !ok {
		bh.logger.Debug("callback без сообщения пропущен", zap.String("data", query.Data))
		return
	}
	bh.process(ctx, ev)
}

func callbackEvent(query *tgbotapi.CallbackQuery) (engine.Event, bool) {
	if query.Message == nil {
		return engine.Event{}, false
	}
	ev := engine.CallbackEvent(query.Data)
	ev.ChatID = query.Message.Chat.ID
	ev.CallbackID = query.ID
	if query.From != nil {
		ev.UserID = query.From.ID
		ev.Username = query.From.UserName
		ev.FirstName = query.From.FirstName
	}
	return ev, true
}
