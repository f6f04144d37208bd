package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"conciergebot/internal/constants"
)

// GenerateProfileLink строит ссылку t.me, открывающую карточку пользователя в боте.
func GenerateProfileLink(botUsername string, userID int64) (string, error) {
	if botUsername == "" {
		return "", fmt.Errorf("имя пользователя бота не настроено")
	}
	if userID == 0 {
		return "", fmt.Errorf("невалидный ID пользователя для ссылки")
	}
	return fmt.Sprintf("https://t.me/%s?start=%s%d", botUsername, constants.DEEPLINK_PROFILE_PREFIX, userID), nil
}

// ParseProfilePayload извлекает ID пользователя из параметра /start.
func ParseProfilePayload(payload string) (int64, bool) {
	if !strings.HasPrefix(payload, constants.DEEPLINK_PROFILE_PREFIX) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(payload, constants.DEEPLINK_PROFILE_PREFIX), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GenerateQRCode генерирует PNG с QR-кодом ссылки на профиль.
func GenerateQRCode(botUsername string, userID int64) ([]byte, error) {
	link, err := GenerateProfileLink(botUsername, userID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("кодирование QR для %s: %w", link, err)
	}
	return png, nil
}
