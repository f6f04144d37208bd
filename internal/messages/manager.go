// Package messages управляет жизненным циклом сообщений бота: слоты,
// пакетное удаление и редактирование с откатом на отправку нового сообщения.
package messages

import (
	"context"
	"errors"
	"fmt"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
	"conciergebot/internal/telegram_api"
)

// Manager - Message Lifecycle Manager.
type Manager struct {
	transport telegram_api.Transport
	// Отметки об удаленных сообщениях, чтобы не дергать API повторно.
	// Telegram не дает удалять сообщения старше 48 часов, поэтому и отметки
	// дольше не живут. Может быть nil.
	deleted *bigcache.BigCache
	logger  *zap.Logger
}

// NewManager создает Manager. deleted может быть nil.
func NewManager(transport telegram_api.Transport, deleted *bigcache.BigCache, logger *zap.Logger) *Manager {
	return &Manager{transport: transport, deleted: deleted, logger: logger.Named("messages")}
}

// Transport возвращает транспорт для операций, которые не касаются слотов.
func (m *Manager) Transport() telegram_api.Transport { return m.transport }

func deletedKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

func (m *Manager) isDeleted(chatID int64, messageID int) bool {
	if m.deleted == nil {
		return false
	}
	_, err := m.deleted.Get(deletedKey(chatID, messageID))
	return err == nil
}

func (m *Manager) markDeleted(chatID int64, messageID int) {
	if m.deleted == nil {
		return
	}
	if err := m.deleted.Set(deletedKey(chatID, messageID), []byte{1}); err != nil {
		m.logger.Debug("не удалось отметить удаленное сообщение", zap.Error(err))
	}
}

// Send отправляет сообщение без привязки к слоту.
func (m *Manager) Send(ctx context.Context, chatID int64, msg models.Outgoing) (models.MessageRef, error) {
	return m.transport.Send(ctx, chatID, msg)
}

// Delete удаляет сообщение. "Уже удалено" считается успехом.
// Остальные ошибки логируются и возвращаются, но сообщение все равно
// помечается обработанным, чтобы не повторять запрос.
func (m *Manager) Delete(ctx context.Context, chatID int64, messageID int) error {
	if messageID == 0 || m.isDeleted(chatID, messageID) {
		return nil
	}
	err := m.transport.Delete(ctx, chatID, messageID)
	if ctx.Err() == nil {
		m.markDeleted(chatID, messageID)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrMessageGone):
		m.logger.Debug("сообщение уже удалено", zap.Int64("chatID", chatID), zap.Int("messageID", messageID))
		return nil
	default:
		m.logger.Info("не удалось удалить сообщение",
			zap.Int64("chatID", chatID), zap.Int("messageID", messageID), zap.Error(err))
		return err
	}
}

// DeleteRefs удаляет все сообщения пакета, не останавливаясь на ошибках.
// Возвращает количество сообщений, которые удалить не удалось.
func (m *Manager) DeleteRefs(ctx context.Context, chatID int64, refs []models.MessageRef) int {
	failed := 0
	for _, ref := range refs {
		if err := m.Delete(ctx, chatID, ref.ID); err != nil {
			failed++
		}
	}
	return failed
}

// ClearSlot удаляет все сообщения слота (одно, список или набор) и
// освобождает слот даже при частичной неудаче.
func (m *Manager) ClearSlot(ctx context.Context, sess *session.ChatSession, name string) {
	slot, ok := sess.GetSlot(name)
	if !ok {
		return
	}
	defer sess.ClearSlotRefs(name)
	if failed := m.DeleteRefs(ctx, sess.ChatID, slot.Refs()); failed > 0 {
		m.logger.Debug("слот очищен частично",
			zap.Int64("chatID", sess.ChatID), zap.String("slot", name), zap.Int("failed", failed))
	}
}

// SendToSlot удаляет текущее содержимое слота, отправляет новое сообщение
// и кладет его в слот. В слоте всегда не больше одного живого сообщения.
func (m *Manager) SendToSlot(ctx context.Context, sess *session.ChatSession, name string, msg models.Outgoing) (models.MessageRef, error) {
	m.ClearSlot(ctx, sess, name)
	ref, err := m.transport.Send(ctx, sess.ChatID, msg)
	if err != nil {
		return models.MessageRef{}, err
	}
	sess.SetSlot(name, session.SingleSlot(ref))
	return ref, nil
}

// AddToSlot отправляет сообщение и добавляет его в списочный слот,
// не трогая предыдущие. Для пачек временных сообщений.
func (m *Manager) AddToSlot(ctx context.Context, sess *session.ChatSession, name string, msg models.Outgoing) (models.MessageRef, error) {
	ref, err := m.transport.Send(ctx, sess.ChatID, msg)
	if err != nil {
		return models.MessageRef{}, err
	}
	sess.AppendToSlot(name, ref)
	return ref, nil
}

// TrackInSlot кладет в списочный слот уже отправленное сообщение.
func (m *Manager) TrackInSlot(sess *session.ChatSession, name string, ref models.MessageRef) {
	sess.AppendToSlot(name, ref)
}

// EditOrReply редактирует сообщение из одиночного слота, а если это
// невозможно (слот пуст, сообщение удалено или устарело), отправляет новое
// и кладет его в слот.
func (m *Manager) EditOrReply(ctx context.Context, sess *session.ChatSession, name string, msg models.Outgoing) (models.MessageRef, error) {
	var current *models.MessageRef
	if slot, ok := sess.GetSlot(name); ok {
		if ref, single := slot.Single(); single {
			current = &ref
		} else {
			m.ClearSlot(ctx, sess, name)
		}
	}
	ref, _, err := m.EditOrSend(ctx, sess.ChatID, current, msg)
	if err != nil {
		return models.MessageRef{}, err
	}
	sess.SetSlot(name, session.SingleSlot(ref))
	return ref, nil
}

// EditOrSend пытается отредактировать ref. При невозможности редактирования
// отправляет новое сообщение, а старое удаляет. edited сообщает, какой путь сработал.
func (m *Manager) EditOrSend(ctx context.Context, chatID int64, ref *models.MessageRef, msg models.Outgoing) (models.MessageRef, bool, error) {
	if ref != nil && ref.ID != 0 && !ref.Media {
		edited, err := m.transport.EditText(ctx, chatID, ref.ID, msg)
		switch {
		case err == nil:
			return edited, true, nil
		case errors.Is(err, apperrors.ErrMessageNotModified):
			return models.MessageRef{ID: ref.ID, Text: msg.Text, Markup: msg.Keyboard.Clone()}, true, nil
		case ctx.Err() != nil:
			return models.MessageRef{}, false, ctx.Err()
		}
		m.logger.Debug("редактирование невозможно, отправляем новое сообщение",
			zap.Int64("chatID", chatID), zap.Int("messageID", ref.ID), zap.Error(err))
	}

	sent, err := m.transport.Send(ctx, chatID, msg)
	if err != nil {
		return models.MessageRef{}, false, err
	}
	if ref != nil && ref.ID != 0 {
		_ = m.Delete(ctx, chatID, ref.ID)
	}
	return sent, false, nil
}
