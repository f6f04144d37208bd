package telegram_api

import (
	"context"

	"conciergebot/internal/models"
)

// Transport - поверхность чата, которой пользуется ядро бота.
// Ошибки классифицируются через apperrors: ErrMessageGone,
// ErrMessageNotModified, ErrCannotEdit, ErrChatUnavailable.
// Transport is the chat surface consumed by the bot core.
type Transport interface {
	Send(ctx context.Context, chatID int64, msg models.Outgoing) (models.MessageRef, error)
	EditText(ctx context.Context, chatID int64, messageID int, msg models.Outgoing) (models.MessageRef, error)
	EditMarkup(ctx context.Context, chatID int64, messageID int, kb *models.Keyboard) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	SendPhoto(ctx context.Context, chatID int64, file models.Attachment, kb *models.Keyboard) (models.MessageRef, error)
	SendDocument(ctx context.Context, chatID int64, file models.Attachment) (models.MessageRef, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
	GetChatMember(ctx context.Context, chatID, userID int64) (string, error)
}
