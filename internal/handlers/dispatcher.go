package handlers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/constants"
	"conciergebot/internal/engine"
	"conciergebot/internal/flows"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
)

// process - цикл загрузка-обработка-сохранение для одного события.
// Пока он идет, другие события этого чата ждут на блокировке.
func (bh *BotHandler) process(ctx context.Context, ev engine.Event) {
	log := bh.logger.With(zap.Int64("chatID", ev.ChatID))

	unlock, err := bh.Deps.Locker.Lock(ctx, ev.ChatID)
	if err != nil {
		log.Warn("не удалось захватить сессию чата", zap.Error(err))
		return
	}
	defer unlock()

	sess, err := bh.loadSession(ctx, ev.ChatID)
	if err != nil {
		log.Error("не удалось загрузить сессию", zap.Error(err))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("паника при обработке события",
				zap.Any("panic", r), zap.String("event", ev.Kind.String()), zap.Stack("stack"))
			bh.notifyOperator(ctx, sess, fmt.Errorf("panic: %v", r))
		}
	}()

	if ev.Username != "" {
		sess.Username = ev.Username
	}
	ev = bh.resolveReplyButton(sess, ev)

	log.Debug("событие",
		zap.String("kind", ev.Kind.String()),
		zap.String("token", ev.Token),
		zap.String("state", string(sess.Current().State)))

	if err := bh.dispatch(ctx, sess, ev); err != nil {
		bh.handleError(ctx, sess, err)
	}

	if err := bh.Deps.Store.Save(ctx, sess); err != nil {
		if errors.Is(err, apperrors.ErrSessionConflict) {
			log.Warn("сессия изменена параллельно, изменения отброшены", zap.Error(err))
			return
		}
		log.Error("не удалось сохранить сессию", zap.Error(err))
	}
}

func (bh *BotHandler) loadSession(ctx context.Context, chatID int64) (*session.ChatSession, error) {
	sess, err := bh.Deps.Store.Load(ctx, chatID)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		return session.New(chatID), nil
	}
	return sess, err
}

// resolveReplyButton превращает нажатие кнопки нижней клавиатуры (оно
// приходит текстом) в callback с токеном этой кнопки. Само сообщение
// пользователя привязывается к разделу, чтобы удалиться вместе с ним.
func (bh *BotHandler) resolveReplyButton(sess *session.ChatSession, ev engine.Event) engine.Event {
	if ev.Kind != engine.EventText {
		return ev
	}
	token, ok := sess.Current().ReplyMarkup.TokenForLabel(ev.Text)
	if !ok {
		return ev
	}
	if ev.MessageID != 0 {
		bh.Deps.Nav.Track(sess, models.MessageRef{ID: ev.MessageID, Text: ev.Text, FromUser: true})
	}
	ev.Kind = engine.EventCallback
	ev.Token = token
	return ev
}

// dispatch отдает событие активному потоку, а глобальные команды и все
// остальное - маршрутизатору меню.
func (bh *BotHandler) dispatch(ctx context.Context, sess *session.ChatSession, ev engine.Event) error {
	if bh.Deps.Runner.Active(sess) && !isGlobalCommand(ev) {
		return bh.Deps.Runner.Handle(ctx, sess, ev)
	}
	return bh.execute(ctx, sess, route(sess, ev))
}

// isGlobalCommand - команды, которые работают поверх любого потока.
func isGlobalCommand(ev engine.Event) bool {
	return ev.Kind == engine.EventCommand &&
		(ev.Token == constants.COMMAND_START || ev.Token == constants.COMMAND_MENU)
}

// handleError показывает пользователю понятное сообщение. Отсутствующие
// данные - обычная ситуация, остальное уходит оператору.
func (bh *BotHandler) handleError(ctx context.Context, sess *session.ChatSession, err error) {
	log := bh.logger.With(zap.Int64("chatID", sess.ChatID), zap.String("state", string(sess.Current().State)))

	var key string
	switch {
	case errors.Is(err, apperrors.ErrChatUnavailable):
		log.Warn("чат недоступен для бота", zap.Error(err))
		return
	case errors.Is(err, flows.ErrNoQuestions):
		key = "rating.no_questions"
		log.Info("анкета оценки недоступна", zap.Error(err))
	case errors.Is(err, flows.ErrUnavailable):
		key = "flow.not_found"
		log.Info("данные недоступны", zap.Error(err))
	default:
		key = "error.generic"
		log.Error("ошибка обработки события", zap.Error(err))
		bh.notifyOperator(ctx, sess, err)
	}

	if _, sendErr := bh.Deps.Nav.Messages().SendToSlot(ctx, sess, constants.SLOT_WARNING, models.Outgoing{Text: bh.text(key)}); sendErr != nil {
		log.Warn("не удалось показать сообщение об ошибке", zap.Error(sendErr))
	}
}

func (bh *BotHandler) notifyOperator(ctx context.Context, sess *session.ChatSession, err error) {
	if bh.Deps.Notifier == nil {
		return
	}
	text := bh.text("error.admin", sess.ChatID, string(sess.Current().State), err.Error())
	if nerr := bh.Deps.Notifier.Notify(ctx, text); nerr != nil {
		bh.logger.Warn("не удалось уведомить оператора", zap.Error(nerr))
	}
}
