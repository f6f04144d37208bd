package telegram_api

import (
	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"conciergebot/internal/models"
)

// replyMarkup переводит описание клавиатуры в объект Bot API.
// nil означает "без клавиатуры".
func replyMarkup(kb *models.Keyboard) interface{} {
	if kb == nil {
		return nil
	}
	if kb.RemoveReply {
		return tgbotapi.NewRemoveKeyboard(true)
	}
	if kb.Inline {
		if markup := inlineMarkup(kb); markup != nil {
			return *markup
		}
		return nil
	}

	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, b := range row {
			if b.RequestContact {
				buttons = append(buttons, tgbotapi.NewKeyboardButtonContact(b.Label))
			} else {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Label))
			}
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = true
	return markup
}

// inlineMarkup строит inline-клавиатуру. Для пустой или не inline клавиатуры
// возвращает nil.
func inlineMarkup(kb *models.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if kb == nil || !kb.Inline || len(kb.Rows) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
