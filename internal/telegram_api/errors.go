package telegram_api

import (
	"fmt"
	"strings"

	"conciergebot/internal/apperrors"
)

// Фрагменты описаний ошибок Bot API.
var (
	goneMarkers = []string{
		"message to delete not found",
		"message to edit not found",
		"MESSAGE_ID_INVALID",
		// Сообщения старше 48 часов удалить нельзя, для бота они потеряны.
		"message can't be deleted",
	}
	notModifiedMarkers = []string{"message is not modified"}
	cannotEditMarkers  = []string{
		"message can't be edited",
		"there is no text in the message to edit",
		"message to edit has no text",
	}
	chatUnavailableMarkers = []string{
		"bot was blocked by the user",
		"chat not found",
		"user is deactivated",
		"not enough rights",
		"have no rights",
		"bot was kicked",
	}
)

// classify оборачивает ошибку Bot API в сигнальную ошибку apperrors.
// Неизвестные ошибки возвращаются как есть.
func classify(err error) error {
	if err == nil {
		return nil
	}
	text := err.Error()
	switch {
	case containsAny(text, notModifiedMarkers):
		return fmt.Errorf("%w: %v", apperrors.ErrMessageNotModified, err)
	case containsAny(text, goneMarkers):
		return fmt.Errorf("%w: %v", apperrors.ErrMessageGone, err)
	case containsAny(text, cannotEditMarkers):
		return fmt.Errorf("%w: %v", apperrors.ErrCannotEdit, err)
	case containsAny(text, chatUnavailableMarkers):
		return fmt.Errorf("%w: %v", apperrors.ErrChatUnavailable, err)
	}
	return err
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
