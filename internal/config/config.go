// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Бэкенды хранения сессий.
const (
	SessionStoreMemory   = "memory"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	TelegramToken string `validate:"required"`
	BotUsername   string
	AppEnv        string

	BackendURL          string `validate:"required,url"`
	BackendServiceToken string
	RequestTimeout      time.Duration `validate:"gt=0"`
	CacheTTL            time.Duration `validate:"gt=0"`

	// Чат оператора, куда пересылаются ошибки бэкенда и обращения в поддержку.
	AdminChatID int64

	SessionStore  string `validate:"oneof=memory redis postgres"`
	SessionTTL    time.Duration
	RedisAddress  string `validate:"required_if=SessionStore redis"`
	RedisPassword string
	RedisDB       int    `validate:"min=0"`
	DatabaseURL   string `validate:"required_if=SessionStore postgres"`

	// Буфер очереди обновлений одного чата.
	ChatQueueSize int `validate:"gt=0"`

	HTTPPort   string `validate:"required,numeric"`
	WebhookURL string `validate:"omitempty,url"`
	APIToken   string

	TextsFile string
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFile   string

	// Warnings - замечания, собранные при загрузке. Логгер еще не создан,
	// поэтому main выводит их после его инициализации.
	Warnings []string `validate:"-"`
}

// IsDev сообщает, что бот запущен в режиме разработки.
func (c *Config) IsDev() bool { return c.AppEnv == "dev" }

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		TelegramToken:       os.Getenv("TELEGRAM_APITOKEN"),
		BotUsername:         strings.TrimPrefix(os.Getenv("BOT_USERNAME"), "@"),
		AppEnv:              os.Getenv("ENV"),
		BackendURL:          strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		BackendServiceToken: os.Getenv("BACKEND_SERVICE_TOKEN"),
		SessionStore:        getenvDefault("SESSION_STORE", SessionStoreMemory),
		RedisAddress:        os.Getenv("REDIS_ADDRESS"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		HTTPPort:            getenvDefault("HTTP_PORT", getenvDefault("PORT", "8080")),
		WebhookURL:          os.Getenv("WEBHOOK_URL"),
		APIToken:            os.Getenv("API_TOKEN"),
		TextsFile:           os.Getenv("TEXTS_FILE"),
		LogLevel:            strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		LogFile:             os.Getenv("LOG_FILE"),
	}

	var err error
	if raw := os.Getenv("ADMIN_CHAT_ID"); raw != "" {
		cfg.AdminChatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			cfg.warn("не удалось прочитать ADMIN_CHAT_ID: %v. Уведомления оператору отключены.", err)
			cfg.AdminChatID = 0
		}
	} else {
		cfg.warn("ADMIN_CHAT_ID не установлен. Уведомления оператору отключены.")
	}

	cfg.RedisDB = cfg.intFromEnv("REDIS_DB", 0)
	cfg.SessionTTL = cfg.durationFromEnv("SESSION_TTL", 30*24*time.Hour)
	cfg.CacheTTL = cfg.durationFromEnv("CACHE_TTL", 10*time.Minute)
	cfg.RequestTimeout = cfg.durationFromEnv("REQUEST_TIMEOUT", 15*time.Second)
	cfg.ChatQueueSize = cfg.intFromEnv("CHAT_QUEUE_SIZE", 32)

	if cfg.BotUsername == "" {
		cfg.warn("BOT_USERNAME не установлен. QR-карточки профиля будут недоступны.")
	}
	if cfg.APIToken == "" {
		cfg.warn("API_TOKEN не установлен. Административные HTTP-маршруты отключены.")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate проверяет конфигурацию по тегам validate.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("некорректная конфигурация: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}
	return nil
}

func (c *Config) warn(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) durationFromEnv(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		c.warn("некорректное значение %s ('%s'). Используется значение по умолчанию %s.", key, raw, def)
		return def
	}
	return d
}

func (c *Config) intFromEnv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.warn("некорректное значение %s ('%s'). Используется %d.", key, raw, def)
		return def
	}
	return v
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
