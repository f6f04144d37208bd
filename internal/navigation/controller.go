// Package navigation - переходы между разделами меню: вход в подраздел,
// возврат к родителю и восстановление его экрана.
package navigation

import (
	"context"

	"go.uber.org/zap"

	"conciergebot/internal/constants"
	"conciergebot/internal/messages"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
)

// Текст служебного сообщения, если при возврате нужно сменить нижнюю
// клавиатуру, а анонса нет.
const keyboardCarrierText = "↩️"

// Screen - описание раздела, который нужно показать.
type Screen struct {
	State       constants.MenuState
	Query       string
	Messages    []models.Outgoing
	ReplyMarkup *models.Keyboard
	Extra       map[string]string
	// Пространства scratch, которые принадлежат разделу и очищаются при уходе с него.
	Scratch []string
}

// Controller - Navigation Controller.
type Controller struct {
	msgs   *messages.Manager
	logger *zap.Logger
}

// NewController создает Controller.
func NewController(msgs *messages.Manager, logger *zap.Logger) *Controller {
	return &Controller{msgs: msgs, logger: logger.Named("navigation")}
}

// Messages возвращает менеджер сообщений.
func (c *Controller) Messages() *messages.Manager { return c.msgs }

// Enter показывает раздел и кладет его в стек. Повторный вход в раздел,
// который уже на вершине (листание страниц), обновляет его на месте:
// единственное сообщение редактируется, иначе старые сообщения удаляются.
// Если отправка прервалась, в стек попадают уже отправленные сообщения.
func (c *Controller) Enter(ctx context.Context, sess *session.ChatSession, scr Screen) (*session.Section, error) {
	c.msgs.ClearSlot(ctx, sess, constants.SLOT_WARNING)
	c.msgs.ClearSlot(ctx, sess, constants.SLOT_LAST)

	top := sess.Current()
	var (
		refs []models.MessageRef
		err  error
	)
	if top.State == scr.State {
		refs, err = c.rerender(ctx, sess.ChatID, top.Messages, scr.Messages)
	} else {
		refs, err = c.sendAll(ctx, sess.ChatID, scr.Messages)
	}

	sec := sess.Push(session.Section{
		State:        scr.State,
		QueryMessage: scr.Query,
		Messages:     refs,
		ReplyMarkup:  scr.ReplyMarkup.Clone(),
		Extra:        scr.Extra,
	})
	for _, ns := range scr.Scratch {
		sec.AttachScratch(ns)
	}

	c.logger.Debug("вход в раздел",
		zap.Int64("chatID", sess.ChatID),
		zap.String("state", string(scr.State)),
		zap.Int("depth", sess.Depth()))
	return sec, err
}

// Append отправляет сообщение и добавляет его к текущему разделу.
func (c *Controller) Append(ctx context.Context, sess *session.ChatSession, msg models.Outgoing) (models.MessageRef, error) {
	ref, err := c.msgs.Send(ctx, sess.ChatID, msg)
	if err != nil {
		return models.MessageRef{}, err
	}
	c.Track(sess, ref)
	if msg.Keyboard != nil && !msg.Keyboard.Inline {
		sec := sess.Current()
		if msg.Keyboard.RemoveReply {
			sec.ReplyMarkup = nil
		} else {
			sec.ReplyMarkup = msg.Keyboard.Clone()
		}
	}
	return ref, nil
}

// Track добавляет уже существующее сообщение (например, ответ пользователя)
// к текущему разделу, чтобы оно удалилось вместе с ним.
func (c *Controller) Track(sess *session.ChatSession, ref models.MessageRef) {
	sec := sess.Current()
	sec.Messages = append(sec.Messages, ref)
}

// ReplaceLast редактирует последнее сообщение раздела или, если это
// невозможно, отправляет новое вместо него.
func (c *Controller) ReplaceLast(ctx context.Context, sess *session.ChatSession, msg models.Outgoing) (models.MessageRef, error) {
	sec := sess.Current()
	if len(sec.Messages) == 0 {
		return c.Append(ctx, sess, msg)
	}
	last := sec.Messages[len(sec.Messages)-1]
	if last.FromUser {
		return c.Append(ctx, sess, msg)
	}
	ref, _, err := c.msgs.EditOrSend(ctx, sess.ChatID, &last, msg)
	if err != nil {
		return models.MessageRef{}, err
	}
	sec = sess.Current()
	sec.Messages[len(sec.Messages)-1] = ref
	return ref, nil
}

// Back возвращается на levels уровней вверх (по умолчанию на один).
// Возврат из корня заново показывает корень.
func (c *Controller) Back(ctx context.Context, sess *session.ChatSession, levels int, announce string) (constants.MenuState, error) {
	return c.BackTo(ctx, sess, sess.TargetIndex(levels), announce)
}

// Home возвращается к корневому разделу.
func (c *Controller) Home(ctx context.Context, sess *session.ChatSession, announce string) (constants.MenuState, error) {
	return c.BackTo(ctx, sess, 0, announce)
}

// BackTo возвращается к разделу с индексом target. Порядок шагов:
//  1. удалить сообщения всех разделов выше target;
//  2. удалить и заново отправить определяющие сообщения target;
//  3. очистить scratch отброшенных разделов;
//  4. обрезать стек.
//
// Ошибки удаления не прерывают возврат. Стек обрезается последним, поэтому
// сбой посередине оставляет на экране лишние сообщения, но не ломает стек.
func (c *Controller) BackTo(ctx context.Context, sess *session.ChatSession, target int, announce string) (constants.MenuState, error) {
	sess.EnsureRoot()
	if target < 0 {
		target = 0
	}
	if target > sess.Depth()-1 {
		target = sess.Depth() - 1
	}
	chatID := sess.ChatID

	discardedReply := false
	for i := sess.Depth() - 1; i > target; i-- {
		sec := &sess.SectionStack[i]
		if failed := c.msgs.DeleteRefs(ctx, chatID, sec.Messages); failed > 0 {
			c.logger.Debug("часть сообщений раздела не удалена",
				zap.Int64("chatID", chatID), zap.String("state", string(sec.State)), zap.Int("failed", failed))
		}
		sec.Messages = nil
		if sec.ReplyMarkup != nil && !sec.ReplyMarkup.Inline && !sec.ReplyMarkup.RemoveReply {
			discardedReply = true
		}
	}
	c.msgs.ClearSlot(ctx, sess, constants.SLOT_WARNING)
	c.msgs.ClearSlot(ctx, sess, constants.SLOT_TEMP)

	tsec := &sess.SectionStack[target]
	firstErr := c.restore(ctx, sess, tsec, announce, discardedReply)

	for i := target + 1; i < sess.Depth(); i++ {
		for _, ns := range sess.SectionStack[i].ScratchNamespaces() {
			sess.ScratchDrop(ns)
		}
	}

	sess.Truncate(target + 1)

	c.logger.Debug("возврат к разделу",
		zap.Int64("chatID", chatID),
		zap.String("state", string(tsec.State)),
		zap.Int("depth", sess.Depth()))
	return tsec.State, firstErr
}

// restore переотправляет определяющие сообщения раздела. Нижнюю клавиатуру
// нельзя "вернуть" после новых сообщений, поэтому всегда отправляем заново.
func (c *Controller) restore(ctx context.Context, sess *session.ChatSession, sec *session.Section, announce string, discardedReply bool) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	old := sec.Messages
	c.msgs.DeleteRefs(ctx, sess.ChatID, old)

	var carrier *models.Keyboard
	switch {
	case sec.ReplyMarkup != nil && !sec.ReplyMarkup.Inline:
		carrier = sec.ReplyMarkup.Clone()
	case discardedReply:
		carrier = models.RemoveReplyKeyboard()
	}
	if carrier != nil && announce == "" {
		announce = keyboardCarrierText
	}
	if announce != "" {
		_, err := c.msgs.SendToSlot(ctx, sess, constants.SLOT_LAST, models.Outgoing{Text: announce, Keyboard: carrier})
		keep(err)
	}

	fresh := make([]models.MessageRef, 0, len(old))
	for _, ref := range old {
		if !ref.Resendable() {
			continue
		}
		sent, err := c.msgs.Send(ctx, sess.ChatID, models.OutgoingFromRef(ref))
		if err != nil {
			keep(err)
			continue
		}
		fresh = append(fresh, sent)
	}
	sec.Messages = fresh
	return firstErr
}

// Reset удаляет все сообщения сессии и сбрасывает ее к пустому корню.
func (c *Controller) Reset(ctx context.Context, sess *session.ChatSession) {
	c.msgs.DeleteRefs(ctx, sess.ChatID, sess.AllMessages())
	sess.Reset()
}

func (c *Controller) sendAll(ctx context.Context, chatID int64, out []models.Outgoing) ([]models.MessageRef, error) {
	refs := make([]models.MessageRef, 0, len(out))
	for _, msg := range out {
		ref, err := c.msgs.Send(ctx, chatID, msg)
		if err != nil {
			return refs, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (c *Controller) rerender(ctx context.Context, chatID int64, old []models.MessageRef, out []models.Outgoing) ([]models.MessageRef, error) {
	if len(old) == 1 && len(out) == 1 && old[0].Resendable() &&
		(out[0].Keyboard == nil || out[0].Keyboard.Inline) {
		ref, _, err := c.msgs.EditOrSend(ctx, chatID, &old[0], out[0])
		if err != nil {
			return nil, err
		}
		return []models.MessageRef{ref}, nil
	}
	c.msgs.DeleteRefs(ctx, chatID, old)
	return c.sendAll(ctx, chatID, out)
}
