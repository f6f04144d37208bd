package messages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/cache"
	"conciergebot/internal/constants"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
	"conciergebot/internal/telegram_api/tgtest"
)

func newManager(t *testing.T) (*Manager, *tgtest.Transport) {
	t.Helper()
	tr := tgtest.New()
	deleted, err := cache.NewInMemoryCache(time.Hour, 4)
	require.NoError(t, err)
	t.Cleanup(func() { deleted.Close() })
	return NewManager(tr, deleted, zap.NewNop()), tr
}

func TestSlotExclusivity(t *testing.T) {
	ctx := context.Background()
	m, tr := newManager(t)
	sess := session.New(1)

	const n = 6
	var last models.MessageRef
	for i := 0; i < n; i++ {
		ref, err := m.SendToSlot(ctx, sess, constants.SLOT_WARNING, models.Outgoing{Text: "Неверный ввод"})
		require.NoError(t, err)
		last = ref
	}

	slot, ok := sess.GetSlot(constants.SLOT_WARNING)
	require.True(t, ok)
	ref, single := slot.Single()
	require.True(t, single)
	assert.Equal(t, last.ID, ref.ID)
	assert.Equal(t, n-1, tr.Count("delete"))
	assert.Equal(t, 1, tr.LiveCount(1))
}

func TestBatchDeleteToleratesAlreadyDeleted(t *testing.T) {
	ctx := context.Background()
	m, tr := newManager(t)
	sess := session.New(1)

	var refs []models.MessageRef
	for i := 0; i < 4; i++ {
		ref, err := m.Send(ctx, 1, models.Outgoing{Text: "temp"})
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	// Одно сообщение уже удалено кем-то другим, id 999 никогда не существовал.
	require.NoError(t, tr.Delete(ctx, 1, refs[1].ID))
	batch := append([]models.MessageRef{}, refs[0], refs[1], models.MessageRef{ID: 999}, refs[2], refs[3])
	sess.SetSlot(constants.SLOT_TEMP, session.ListSlot(batch...))

	m.ClearSlot(ctx, sess, constants.SLOT_TEMP)

	for _, ref := range refs {
		assert.False(t, tr.IsLive(1, ref.ID), "message %d must be gone", ref.ID)
	}
	_, ok := sess.GetSlot(constants.SLOT_TEMP)
	assert.False(t, ok)
}

func TestClearSlotClearsEvenOnFailure(t *testing.T) {
	ctx := context.Background()
	m, tr := newManager(t)
	sess := session.New(1)

	a, _ := m.Send(ctx, 1, models.Outgoing{Text: "a"})
	b, _ := m.Send(ctx, 1, models.Outgoing{Text: "b"})
	tr.FailDelete[a.ID] = errors.New("Forbidden: not enough rights")
	sess.SetSlot(constants.SLOT_TEMP, session.MapSlot(map[string]models.MessageRef{"a": a, "b": b}))

	m.ClearSlot(ctx, sess, constants.SLOT_TEMP)

	assert.True(t, tr.IsLive(1, a.ID))
	assert.False(t, tr.IsLive(1, b.ID))
	_, ok := sess.GetSlot(constants.SLOT_TEMP)
	assert.False(t, ok, "stale ids are never retried")
}

func TestDeleteSkipsKnownDeleted(t *testing.T) {
	ctx := context.Background()
	m, tr := newManager(t)
	ref, _ := m.Send(ctx, 1, models.Outgoing{Text: "x"})

	require.NoError(t, m.Delete(ctx, 1, ref.ID))
	require.NoError(t, m.Delete(ctx, 1, ref.ID))
	assert.Equal(t, 1, tr.Count("delete"))
}

func TestDeleteReturnsUnexpectedErrors(t *testing.T) {
	ctx := context.Background()
	m, tr := newManager(t)
	tr.FailDelete[5] = apperrors.ErrChatUnavailable

	assert.ErrorIs(t, m.Delete(ctx, 1, 5), apperrors.ErrChatUnavailable)
	assert.NoError(t, m.Delete(ctx, 1, 0))
}

func TestEditOrReplyEditsInPlace(t *testing.T) {
	ctx := context.Background()
	m, tr := newManager(t)
	sess := session.New(1)

	first, err := m.EditOrReply(ctx, sess, constants.SLOT_LAST, models.Outgoing{Text: "Шаг 1"})
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Count("send"), "empty slot sends a new message")

	second, err := m.EditOrReply(ctx, sess, constants.SLOT_LAST, models.Outgoing{Text: "Шаг 2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, tr.Count("edit"))

	// Тот же текст: "not modified" считается успехом.
	third, err := m.EditOrReply(ctx, sess, constants.SLOT_LAST, models.Outgoing{Text: "Шаг 2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, 1, tr.Count("send"))
}

func TestEditOrReplyFallsBackToSend(t *testing.T) {
	ctx := context.Background()
	m, tr := newManager(t)
	sess := session.New(1)

	first, err := m.EditOrReply(ctx, sess, constants.SLOT_LAST, models.Outgoing{Text: "old"})
	require.NoError(t, err)
	tr.FailEdit = apperrors.ErrCannotEdit

	second, err := m.EditOrReply(ctx, sess, constants.SLOT_LAST, models.Outgoing{Text: "new"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, tr.IsLive(1, first.ID), "old message removed to keep one live message")

	slot, _ := sess.GetSlot(constants.SLOT_LAST)
	ref, _ := slot.Single()
	assert.Equal(t, second.ID, ref.ID)
}

func TestEditOrSendWhenMessageVanished(t *testing.T) {
	ctx := context.Background()
	m, tr := newManager(t)

	ref := &models.MessageRef{ID: 77, Text: "gone"}
	sent, edited, err := m.EditOrSend(ctx, 1, ref, models.Outgoing{Text: "fresh"})
	require.NoError(t, err)
	assert.False(t, edited)
	assert.True(t, tr.IsLive(1, sent.ID))
}

func TestAddToSlotAccumulates(t *testing.T) {
	ctx := context.Background()
	m, tr := newManager(t)
	sess := session.New(1)

	for i := 0; i < 3; i++ {
		_, err := m.AddToSlot(ctx, sess, constants.SLOT_TEMP, models.Outgoing{Text: "row"})
		require.NoError(t, err)
	}
	slot, _ := sess.GetSlot(constants.SLOT_TEMP)
	assert.Len(t, slot.Refs(), 3)
	assert.Zero(t, tr.Count("delete"))

	m.ClearSlot(ctx, sess, constants.SLOT_TEMP)
	assert.Equal(t, 0, tr.LiveCount(1))
}
