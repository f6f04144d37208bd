package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenForLabel(t *testing.T) {
	kb := NewReplyKeyboard(
		Row(Button{Label: "📱 Отправить номер", RequestContact: true}),
		Row(Btn("❌ Отмена", "cancel")),
	)

	token, ok := kb.TokenForLabel("❌ Отмена")
	assert.True(t, ok)
	assert.Equal(t, "cancel", token)

	_, ok = kb.TokenForLabel("📱 Отправить номер")
	assert.False(t, ok, "contact button has no token")

	var nilKb *Keyboard
	_, ok = nilKb.TokenForLabel("x")
	assert.False(t, ok)
}

func TestKeyboardCloneIsDeep(t *testing.T) {
	kb := NewInlineKeyboard(Row(Btn("a", "1"), Btn("b", "2")))
	cp := kb.Clone()
	cp.Rows[0][0].Label = "changed"

	assert.Equal(t, "a", kb.Rows[0][0].Label)
	assert.Nil(t, (*Keyboard)(nil).Clone())
}

func TestMessageRefJSONLayout(t *testing.T) {
	ref := MessageRef{ID: 7, Text: "hi", Markup: NewInlineKeyboard(Row(Btn("Назад", "back")))}
	raw, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"text":"hi","markup":{"inline":true,"rows":[[{"label":"Назад","token":"back"}]]}}`, string(raw))
}

func TestResendable(t *testing.T) {
	assert.True(t, MessageRef{ID: 1, Text: "menu"}.Resendable())
	assert.False(t, MessageRef{ID: 1, Text: "typed", FromUser: true}.Resendable())
	assert.False(t, MessageRef{ID: 1, Text: "caption", Media: true}.Resendable())
	assert.False(t, MessageRef{ID: 1}.Resendable())
}
