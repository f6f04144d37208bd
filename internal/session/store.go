package session

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store загружает и сохраняет сессии чатов.
// Load возвращает apperrors.ErrSessionNotFound для неизвестного чата.
type Store interface {
	Load(ctx context.Context, chatID int64) (*ChatSession, error)
	Save(ctx context.Context, sess *ChatSession) error
	Delete(ctx context.Context, chatID int64) error
}

// Locker обеспечивает единственного писателя для сессии чата
// на время цикла загрузка-изменение-сохранение.
type Locker interface {
	Lock(ctx context.Context, chatID int64) (unlock func(), err error)
}

// Marshal сериализует сессию в JSON-формат хранения.
func Marshal(sess *ChatSession) ([]byte, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("сериализация сессии %d: %w", sess.ChatID, err)
	}
	return raw, nil
}

// Unmarshal восстанавливает сессию и ее инварианты.
func Unmarshal(raw []byte) (*ChatSession, error) {
	var sess ChatSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("разбор сессии: %w", err)
	}
	sess.EnsureRoot()
	return &sess, nil
}
