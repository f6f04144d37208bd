package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
)

const (
	redisSessionKey = "tg_chat_session:%d"
	redisLockKey    = "tg_chat_session_lock:%d"
)

// Снимает блокировку, только если она все еще наша.
const redisUnlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// redisClient - подмножество команд *redis.Client, которым пользуется хранилище.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisStore хранит сессии в Redis в виде JSON с TTL и блокирует чат через SET NX.
// Подходит для нескольких экземпляров бота за одним вебхуком.
type RedisStore struct {
	client    redisClient
	ttl       time.Duration
	lockTTL   time.Duration
	lockRetry time.Duration
	logger    *zap.Logger
}

// NewRedisStore создает хранилище. ttl = 0 означает хранение без срока.
func NewRedisStore(client redisClient, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client:    client,
		ttl:       ttl,
		lockTTL:   30 * time.Second,
		lockRetry: 50 * time.Millisecond,
		logger:    logger.Named("session.redis"),
	}
}

// Load читает сессию чата.
func (rs *RedisStore) Load(ctx context.Context, chatID int64) (*ChatSession, error) {
	raw, err := rs.client.Get(ctx, fmt.Sprintf(redisSessionKey, chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: чтение сессии %d: %w", chatID, err)
	}
	return Unmarshal(raw)
}

// Save записывает сессию. Вызывающий должен держать Lock для этого чата.
func (rs *RedisStore) Save(ctx context.Context, sess *ChatSession) error {
	sess.Version++
	raw, err := Marshal(sess)
	if err != nil {
		sess.Version--
		return err
	}
	if err := rs.client.Set(ctx, fmt.Sprintf(redisSessionKey, sess.ChatID), raw, rs.ttl).Err(); err != nil {
		sess.Version--
		return fmt.Errorf("redis: запись сессии %d: %w", sess.ChatID, err)
	}
	return nil
}

// Delete удаляет сессию чата.
func (rs *RedisStore) Delete(ctx context.Context, chatID int64) error {
	if err := rs.client.Del(ctx, fmt.Sprintf(redisSessionKey, chatID)).Err(); err != nil {
		return fmt.Errorf("redis: удаление сессии %d: %w", chatID, err)
	}
	return nil
}

// Lock захватывает блокировку чата, повторяя попытки до отмены ctx.
// Блокировка живет lockTTL, чтобы упавший процесс не держал чат вечно.
func (rs *RedisStore) Lock(ctx context.Context, chatID int64) (func(), error) {
	key := fmt.Sprintf(redisLockKey, chatID)
	token := uuid.NewString()

	ticker := time.NewTicker(rs.lockRetry)
	defer ticker.Stop()
	for {
		acquired, err := rs.client.SetNX(ctx, key, token, rs.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: блокировка чата %d: %w", chatID, err)
		}
		if acquired {
			return func() {
				// Контекст обработки может быть уже отменен, снимаем блокировку отдельно.
				unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rs.client.Eval(unlockCtx, redisUnlockScript, []string{key}, token).Err(); err != nil {
					rs.logger.Warn("не удалось снять блокировку чата", zap.Int64("chatID", chatID), zap.Error(err))
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: chat %d: %v", apperrors.ErrLockBusy, chatID, ctx.Err())
		case <-ticker.C:
		}
	}
}
