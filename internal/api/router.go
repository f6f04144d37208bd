// Package api - HTTP-поверхность бота: проверка живости, прием webhook
// от Telegram и служебные методы для просмотра и сброса сессий.
package api

import (
	"context"
	"net/http"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"conciergebot/internal/config"
	"conciergebot/internal/session"
)

// WebhookPath - путь, на который Telegram присылает обновления.
const WebhookPath = "/telegram/webhook"

// UpdateHandler обрабатывает одно обновление Telegram.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Config *config.Config
	Store  session.Store
	Locker session.Locker
	// Bot - получатель обновлений из webhook. nil - бот работает через long polling.
	Bot    UpdateHandler
	Logger *zap.Logger
}

// NewRouter собирает chi-роутер с глобальными middleware и всеми маршрутами.
func NewRouter(deps ApiDependencies) *chi.Mux {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := chi.NewRouter()

	// ГЛОБАЛЬНЫЕ MIDDLEWARES ДОЛЖНЫ ИДТИ ПЕРЕД SetupRoutes
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ZapLogger(deps.Logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	SetupRoutes(r, deps)
	return r
}

// SetupRoutes настраивает все маршруты для API.
func SetupRoutes(r chi.Router, deps ApiDependencies) {
	h := &handler{deps: deps, logger: deps.Logger.Named("api")}

	r.Get("/healthz", h.Health)
	if deps.Bot != nil {
		r.Post(WebhookPath, h.Webhook)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Config.APIToken, h.logger))
		r.Get("/api/sessions/{chatID}", h.GetSession)
		r.Delete("/api/sessions/{chatID}", h.DeleteSession)
	})

	// Обработка запроса иконки, чтобы избежать ошибки 404 в логах
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
