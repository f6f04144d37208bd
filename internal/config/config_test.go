package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("TELEGRAM_APITOKEN", "123:abc")
	t.Setenv("BACKEND_URL", "https://backend.example.com/")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("ADMIN_CHAT_ID", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("PORT", "")
	t.Setenv("WEBHOOK_URL", "")
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CHAT_QUEUE_SIZE", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://backend.example.com", cfg.BackendURL)
	assert.Equal(t, SessionStoreMemory, cfg.SessionStore)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 32, cfg.ChatQueueSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.Warnings)
}

func TestLoadConfigRequiresToken(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TELEGRAM_APITOKEN", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TelegramToken")
}

func TestLoadConfigRedisNeedsAddress(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_STORE", "redis")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RedisAddress")

	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, SessionStoreRedis, cfg.SessionStore)
}

func TestLoadConfigBadValuesFallBack(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_CHAT_ID", "not-a-number")
	t.Setenv("SESSION_TTL", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Zero(t, cfg.AdminChatID)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.GreaterOrEqual(t, len(cfg.Warnings), 2)
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_STORE", "etcd")

	_, err := LoadConfig()
	assert.Error(t, err)
}
