package telegram_api

import (
	"encoding/json"
	"fmt"
	"strconv"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"
)

// botAPI - методы *tgbotapi.BotAPI, которыми пользуется клиент.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// BotClient представляет собой обертку для Telegram Bot API и реализует Transport.
// BotClient wraps the Telegram Bot API and implements Transport.
type BotClient struct {
	api      botAPI
	username string
	Debug    bool
	logger   *zap.Logger
}

// NewBotClient инициализирует Telegram бота.
// token - API токен бота, debug - подробный лог запросов.
func NewBotClient(token string, debug bool, logger *zap.Logger) (*BotClient, error) {
	if token == "" {
		return nil, fmt.Errorf("токен Telegram API не предоставлен")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Telegram Bot API: %w", err)
	}
	api.Debug = debug

	bc := &BotClient{api: api, username: api.Self.UserName, Debug: debug, logger: logger.Named("telegram")}
	bc.logger.Info("авторизован как аккаунт", zap.String("username", api.Self.UserName))
	return bc, nil
}

// newBotClientWithAPI используется в тестах с подменным API.
func newBotClientWithAPI(api botAPI, logger *zap.Logger) *BotClient {
	return &BotClient{api: api, logger: logger}
}

// Username возвращает имя пользователя бота.
func (bc *BotClient) Username() string { return bc.username }

// StartPolling отключает вебхук и возвращает канал обновлений long polling.
func (bc *BotClient) StartPolling(timeout int) tgbotapi.UpdatesChannel {
	// Отключаем вебхук, если он активен (важно для getUpdates)
	// Disable webhook if active (important for getUpdates)
	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	}
	if _, err := bc.api.Request(deleteWebhookConfig); err != nil {
		// Ошибка возможна, если вебхука и не было.
		bc.logger.Warn("ошибка при отключении вебхука", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	return bc.api.GetUpdatesChan(u)
}

// StopPolling останавливает получение обновлений.
func (bc *BotClient) StopPolling() {
	bc.api.StopReceivingUpdates()
}

// SetWebhook регистрирует адрес вебхука.
func (bc *BotClient) SetWebhook(link string) error {
	resp, err := bc.api.MakeRequest("setWebhook", tgbotapi.Params{"url": link})
	if err != nil {
		return fmt.Errorf("ошибка установки вебхука: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("ошибка установки вебхука: %s", resp.Description)
	}
	bc.logger.Info("вебхук установлен", zap.String("url", link))
	return nil
}

func (bc *BotClient) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if bc.Debug {
		bc.logger.Debug("отправка", zap.String("type", fmt.Sprintf("%T", c)))
	}
	msg, err := bc.api.Send(c)
	return msg, classify(err)
}

func (bc *BotClient) request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if bc.Debug {
		bc.logger.Debug("запрос", zap.String("type", fmt.Sprintf("%T", c)))
	}
	resp, err := bc.api.Request(c)
	if err == nil && resp != nil && !resp.Ok {
		err = fmt.Errorf("%s (code %d)", resp.Description, resp.ErrorCode)
	}
	return resp, classify(err)
}

// chatMember - часть ответа getChatMember.
type chatMember struct {
	Status string `json:"status"`
}

func parseChatMember(resp *tgbotapi.APIResponse) (string, error) {
	var member chatMember
	if err := json.Unmarshal(resp.Result, &member); err != nil {
		return "", fmt.Errorf("разбор getChatMember: %w", err)
	}
	return member.Status, nil
}

func chatMemberParams(chatID, userID int64) tgbotapi.Params {
	return tgbotapi.Params{
		"chat_id": strconv.FormatInt(chatID, 10),
		"user_id": strconv.FormatInt(userID, 10),
	}
}
