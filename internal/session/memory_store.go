package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
)

// MemoryStore хранит сессии в памяти процесса.
// Сессии хранятся сериализованными, чтобы вызывающий код не мог
// изменить сохраненное состояние в обход Save.
// MemoryStore keeps sessions in process memory as JSON snapshots.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64][]byte // Ключ: chatID / Key: chatID
	logger   *zap.Logger
}

// NewMemoryStore создает пустое хранилище.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64][]byte),
		logger:   logger.Named("session.memory"),
	}
}

// Load возвращает копию сохраненной сессии.
func (ms *MemoryStore) Load(_ context.Context, chatID int64) (*ChatSession, error) {
	ms.mu.RLock()
	raw, ok := ms.sessions[chatID]
	ms.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return Unmarshal(raw)
}

// Save сохраняет снимок сессии и увеличивает ее версию.
func (ms *MemoryStore) Save(_ context.Context, sess *ChatSession) error {
	sess.Version++
	raw, err := Marshal(sess)
	if err != nil {
		sess.Version--
		return err
	}
	ms.mu.Lock()
	ms.sessions[sess.ChatID] = raw
	ms.mu.Unlock()
	ms.logger.Debug("сессия сохранена",
		zap.Int64("chatID", sess.ChatID),
		zap.Int("depth", sess.Depth()),
		zap.String("state", string(sess.Current().State)))
	return nil
}

// Delete удаляет сессию. Отсутствие сессии ошибкой не считается.
func (ms *MemoryStore) Delete(_ context.Context, chatID int64) error {
	ms.mu.Lock()
	delete(ms.sessions, chatID)
	ms.mu.Unlock()
	return nil
}

// KeyedLocker - Locker внутри одного процесса: по семафору на чат.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[int64]chan struct{}
}

// NewKeyedLocker создает KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[int64]chan struct{})}
}

func (kl *KeyedLocker) semaphore(chatID int64) chan struct{} {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	sem, ok := kl.locks[chatID]
	if !ok {
		sem = make(chan struct{}, 1)
		kl.locks[chatID] = sem
	}
	return sem
}

// Lock ждет освобождения чата или отмены ctx.
func (kl *KeyedLocker) Lock(ctx context.Context, chatID int64) (func(), error) {
	sem := kl.semaphore(chatID)
	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
