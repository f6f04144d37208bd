package telegram_api

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/models"
)

// Send отправляет текстовое сообщение.
func (bc *BotClient) Send(ctx context.Context, chatID int64, msg models.Outgoing) (models.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return models.MessageRef{}, err
	}
	cfg := tgbotapi.NewMessage(chatID, msg.Text)
	if markup := replyMarkup(msg.Keyboard); markup != nil {
		cfg.ReplyMarkup = markup
	}
	if msg.ParseMode != "" {
		cfg.ParseMode = msg.ParseMode
	}

	sent, err := bc.send(cfg)
	if err != nil {
		bc.logger.Warn("ошибка отправки сообщения", zap.Int64("chatID", chatID), zap.Error(err))
		return models.MessageRef{}, err
	}
	return models.MessageRef{ID: sent.MessageID, Text: msg.Text, Markup: msg.Keyboard.Clone()}, nil
}

// EditText редактирует текст и inline-клавиатуру сообщения.
// "message is not modified" успехом не считается: вызывающий сам решает,
// как относиться к apperrors.ErrMessageNotModified.
func (bc *BotClient) EditText(ctx context.Context, chatID int64, messageID int, msg models.Outgoing) (models.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return models.MessageRef{}, err
	}
	if msg.Keyboard != nil && !msg.Keyboard.Inline && !msg.Keyboard.RemoveReply {
		// Нижнюю клавиатуру к существующему сообщению не прикрепить.
		return models.MessageRef{}, fmt.Errorf("%w: reply keyboard on edit", apperrors.ErrCannotEdit)
	}

	var cfg tgbotapi.EditMessageTextConfig
	if markup := inlineMarkup(msg.Keyboard); markup != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, msg.Text, *markup)
	} else {
		cfg = tgbotapi.NewEditMessageText(chatID, messageID, msg.Text)
	}
	if msg.ParseMode != "" {
		cfg.ParseMode = msg.ParseMode
	}

	if _, err := bc.request(cfg); err != nil {
		if !apperrors.IsTransportNoise(err) {
			bc.logger.Warn("ошибка редактирования сообщения",
				zap.Int64("chatID", chatID), zap.Int("messageID", messageID), zap.Error(err))
		}
		return models.MessageRef{}, err
	}
	return models.MessageRef{ID: messageID, Text: msg.Text, Markup: msg.Keyboard.Clone()}, nil
}

// EditMarkup заменяет inline-клавиатуру сообщения. nil убирает клавиатуру.
func (bc *BotClient) EditMarkup(ctx context.Context, chatID int64, messageID int, kb *models.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	markup := inlineMarkup(kb)
	if markup == nil {
		empty := tgbotapi.NewInlineKeyboardMarkup()
		markup = &empty
	}
	_, err := bc.request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, *markup))
	return err
}

// Delete удаляет сообщение. Уже удаленное сообщение дает apperrors.ErrMessageGone.
func (bc *BotClient) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if messageID == 0 {
		return fmt.Errorf("%w: empty message id", apperrors.ErrMessageGone)
	}
	_, err := bc.request(tgbotapi.NewDeleteMessage(chatID, messageID))
	if err != nil && !errors.Is(err, apperrors.ErrMessageGone) {
		bc.logger.Warn("Telegram API не смог удалить сообщение",
			zap.Int64("chatID", chatID), zap.Int("messageID", messageID), zap.Error(err))
	}
	return err
}

// SendPhoto отправляет изображение из памяти.
func (bc *BotClient) SendPhoto(ctx context.Context, chatID int64, file models.Attachment, kb *models.Keyboard) (models.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return models.MessageRef{}, err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: file.Name, Bytes: file.Data})
	photo.Caption = file.Caption
	if markup := replyMarkup(kb); markup != nil {
		photo.ReplyMarkup = markup
	}
	sent, err := bc.send(photo)
	if err != nil {
		return models.MessageRef{}, err
	}
	return models.MessageRef{ID: sent.MessageID, Text: file.Caption, Markup: kb.Clone(), Media: true}, nil
}

// SendDocument отправляет файл из памяти.
func (bc *BotClient) SendDocument(ctx context.Context, chatID int64, file models.Attachment) (models.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return models.MessageRef{}, err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: file.Name, Bytes: file.Data})
	doc.Caption = file.Caption
	sent, err := bc.send(doc)
	if err != nil {
		return models.MessageRef{}, err
	}
	return models.MessageRef{ID: sent.MessageID, Text: file.Caption, Media: true}, nil
}

// AnswerCallback отвечает на callback query, снимая "часики" с кнопки.
func (bc *BotClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := bc.request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// GetChatMember возвращает статус пользователя в чате (member, administrator, left...).
func (bc *BotClient) GetChatMember(ctx context.Context, chatID, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := bc.api.MakeRequest("getChatMember", chatMemberParams(chatID, userID))
	if err != nil {
		return "", classify(err)
	}
	return parseChatMember(resp)
}
