package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"conciergebot/internal/api"
	"conciergebot/internal/cache"
	"conciergebot/internal/config"
	"conciergebot/internal/db"
	"conciergebot/internal/engine"
	"conciergebot/internal/flows"
	"conciergebot/internal/gateway"
	"conciergebot/internal/handlers"
	"conciergebot/internal/logger"
	"conciergebot/internal/messages"
	"conciergebot/internal/navigation"
	"conciergebot/internal/session"
	"conciergebot/internal/telegram_api"
	"conciergebot/internal/texts"
)

func main() {
	// --- Блок инициализации ---
	err := godotenv.Load()
	if err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось создать логгер: %v", err)
	}
	defer zl.Sync()
	for _, w := range cfg.Warnings {
		zl.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := texts.Load(cfg.TextsFile, zl)
	if err != nil {
		zl.Fatal("не удалось загрузить тексты", zap.Error(err))
	}
	go func() {
		if err := table.Watch(ctx); err != nil {
			zl.Warn("слежение за файлом текстов остановлено", zap.Error(err))
		}
	}()

	catalogCache, err := cache.NewInMemoryCache(cfg.CacheTTL, 16)
	if err != nil {
		zl.Fatal("не удалось создать кэш справочников", zap.Error(err))
	}
	// Отметки удаленных сообщений живут сутки: дольше Telegram их не редактирует.
	deletedCache, err := cache.NewInMemoryCache(24*time.Hour, 8)
	if err != nil {
		zl.Fatal("не удалось создать кэш удаленных сообщений", zap.Error(err))
	}

	store, locker, closeStore := openSessionStore(ctx, cfg, zl)
	defer closeStore()

	botClient, err := telegram_api.NewBotClient(cfg.TelegramToken, cfg.IsDev(), zl)
	if err != nil {
		zl.Fatal("не удалось инициализировать Telegram бота", zap.Error(err))
	}
	if cfg.BotUsername == "" {
		cfg.BotUsername = botClient.Username()
	}

	backend := gateway.NewClient(cfg.BackendURL, cfg.BackendServiceToken, cfg.RequestTimeout, catalogCache, zl)
	nav := navigation.NewController(messages.NewManager(botClient, deletedCache, zl), zl)
	notifier := handlers.NewAdminNotifier(botClient, cfg.AdminChatID, zl)
	registry := flows.NewRegistry(backend, table, notifier, zl)
	runner := engine.NewRunner(nav, registry, notifier, zl)

	botHandler := handlers.NewBotHandler(handlers.HandlerDependencies{
		Config:   cfg,
		Store:    store,
		Locker:   locker,
		Nav:      nav,
		Runner:   runner,
		Backend:  backend,
		Texts:    table,
		Notifier: notifier,
		Logger:   zl,
	})

	queue := handlers.NewUpdateQueue(botHandler, cfg.ChatQueueSize, zl)

	apiDeps := api.ApiDependencies{
		Config: cfg,
		Store:  store,
		Locker: locker,
		Logger: zl,
	}
	if cfg.WebhookURL != "" {
		apiDeps.Bot = queue
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(apiDeps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zl.Info("запуск HTTP-сервера", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("не удалось запустить HTTP-сервер", zap.Error(err))
		}
	}()

	if cfg.WebhookURL != "" {
		link := strings.TrimRight(cfg.WebhookURL, "/") + api.WebhookPath
		if err := botClient.SetWebhook(link); err != nil {
			zl.Fatal("не удалось установить вебхук", zap.Error(err))
		}
		zl.Info("бот работает через вебхук")
		<-ctx.Done()
	} else {
		runPolling(ctx, botClient, queue, zl)
	}

	zl.Info("остановка бота")
	queue.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("HTTP-сервер остановлен с ошибкой", zap.Error(err))
	}
}

// runPolling читает long polling до отмены ctx и раскладывает обновления
// по очередям чатов.
func runPolling(ctx context.Context, bc *telegram_api.BotClient, queue *handlers.UpdateQueue, zl *zap.Logger) {
	updates := bc.StartPolling(60)
	zl.Info("бот запущен и готов к работе (long polling)")
	for {
		select {
		case <-ctx.Done():
			bc.StopPolling()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			queue.HandleUpdate(ctx, update)
		}
	}
}

// openSessionStore выбирает хранилище сессий по SESSION_STORE.
func openSessionStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (session.Store, session.Locker, func()) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			zl.Fatal("Redis недоступен", zap.String("addr", cfg.RedisAddress), zap.Error(err))
		}
		store := session.NewRedisStore(client, cfg.SessionTTL, zl)
		return store, store, func() { client.Close() }

	case config.SessionStorePostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL, zl)
		if err != nil {
			zl.Fatal("не удалось подключиться к базе данных", zap.Error(err))
		}
		if err := db.Migrate(conn, zl); err != nil {
			zl.Fatal("не удалось применить миграции", zap.Error(err))
		}
		// Блокировка в памяти: один экземпляр бота на базу.
		return session.NewPostgresStore(conn, zl), session.NewKeyedLocker(), func() { conn.Close() }

	default:
		return session.NewMemoryStore(zl), session.NewKeyedLocker(), func() {}
	}
}
