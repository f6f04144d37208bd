// Package apperrors собирает ошибки, по которым ветвится логика бота.
package apperrors

import (
	"errors"
	"fmt"
)

// Ошибки транспорта. Транспортный слой оборачивает ими ответы Bot API,
// чтобы вызывающий код мог проверять их через errors.Is.
var (
	ErrMessageGone        = errors.New("message already deleted or not found")
	ErrMessageNotModified = errors.New("message is not modified")
	ErrCannotEdit         = errors.New("message can't be edited")
	ErrChatUnavailable    = errors.New("chat is unavailable for the bot")
)

// Ошибки хранилища сессий.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionConflict = errors.New("session was modified concurrently")
	ErrLockBusy        = errors.New("session lock is busy")
)

// ValidationError - некорректный ввод пользователя. Никогда не уходит в бэкенд.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError создает ValidationError для поля.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RemoteError - ответ бэкенда со статусом вне 2xx.
type RemoteError struct {
	Method string
	URL    string
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s %s: status %d: %s", e.Method, e.URL, e.Status, e.Detail)
}

// IsTransportNoise сообщает, что ошибка транспорта безопасно игнорировать:
// сообщение уже удалено или его содержимое не изменилось.
func IsTransportNoise(err error) bool {
	return errors.Is(err, ErrMessageGone) || errors.Is(err, ErrMessageNotModified)
}
