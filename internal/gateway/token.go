package gateway

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// bearer выбирает токен для заголовка Authorization. Токен пользователя
// используется, пока он не просрочен; иначе - сервисный токен бота.
func (c *Client) bearer(token string) string {
	if token != "" && !tokenExpired(token, c.now()) {
		return token
	}
	return c.serviceToken
}

// tokenExpired проверяет exp у JWT без проверки подписи: подпись проверяет
// бэкенд, боту нужно только не отправлять заведомо мертвый токен.
// Непрозрачные (не JWT) токены считаются действующими.
func tokenExpired(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// TokenExpired сообщает, что токен пользователя просрочен и его нужно обновить.
func TokenExpired(raw string) bool {
	return raw != "" && tokenExpired(raw, time.Now())
}
