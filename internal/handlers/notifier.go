package handlers

import (
	"context"

	"go.uber.org/zap"

	"conciergebot/internal/models"
	"conciergebot/internal/telegram_api"
	"conciergebot/internal/utils"
)

// Telegram принимает сообщения до 4096 символов.
const maxNotificationLength = 4000

// AdminNotifier отправляет уведомления в чат операторов (ADMIN_CHAT_ID).
// AdminNotifier posts operator notifications to the admin chat.
type AdminNotifier struct {
	transport telegram_api.Transport
	chatID    int64
	logger    *zap.Logger
}

// NewAdminNotifier создает AdminNotifier. При chatID == 0 уведомления только пишутся в лог.
func NewAdminNotifier(transport telegram_api.Transport, chatID int64, logger *zap.Logger) *AdminNotifier {
	return &AdminNotifier{transport: transport, chatID: chatID, logger: logger.Named("notifier")}
}

// Notify отправляет текст оператору.
func (n *AdminNotifier) Notify(ctx context.Context, text string) error {
	if n.chatID == 0 {
		n.logger.Info("уведомление оператора (чат не настроен)", zap.String("text", text))
		return nil
	}
	_, err := n.transport.Send(ctx, n.chatID, models.Outgoing{Text: utils.Truncate(text, maxNotificationLength)})
	return err
}
