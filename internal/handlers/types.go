// Package handlers принимает обновления Telegram, переводит их в события
// и решает, кто их обрабатывает: активный поток или меню.
package handlers

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"conciergebot/internal/config"
	"conciergebot/internal/constants"
	"conciergebot/internal/engine"
	"conciergebot/internal/gateway"
	"conciergebot/internal/models"
	"conciergebot/internal/navigation"
	"conciergebot/internal/session"
	"conciergebot/internal/texts"
)

// ErrUnknownSection - для состояния не зарегистрирован экран.
var ErrUnknownSection = errors.New("unknown menu section")

// Backend - методы шлюза, которые нужны разделам меню.
type Backend interface {
	User(ctx context.Context, telegramID int64, token string) (models.User, gateway.UserResult)
	Orders(ctx context.Context, q gateway.OrdersQuery, token string) (models.Page[models.Order], gateway.Result)
	Order(ctx context.Context, id int64, token string) (models.Order, gateway.Result)
	SearchUsers(ctx context.Context, filter models.SearchFilter, page int, token string) (models.Page[models.User], gateway.Result)
	Regions(ctx context.Context) ([]models.Region, error)
}

// HandlerDependencies содержит все зависимости, необходимые для обработчиков.
// HandlerDependencies contains all dependencies required for handlers.
type HandlerDependencies struct {
	Config   *config.Config
	Store    session.Store
	Locker   session.Locker
	Nav      *navigation.Controller
	Runner   *engine.Runner
	Backend  Backend
	Texts    *texts.Table
	Notifier engine.Notifier
	Logger   *zap.Logger
}

// BotHandler инкапсулирует логику обработки сообщений и коллбэков.
// BotHandler encapsulates the logic for handling messages and callbacks.
type BotHandler struct {
	Deps     HandlerDependencies
	logger   *zap.Logger
	sections map[constants.MenuState]StateHandler
}

// sectionRequest - параметры построения экрана раздела.
type sectionRequest struct {
	Arg  string
	Page int
}

// StateHandler строит экран раздела. Состояние экрана проставляет Open.
type StateHandler func(ctx context.Context, sess *session.ChatSession, req sectionRequest) (navigation.Screen, error)

// NewBotHandler создает новый экземпляр BotHandler и регистрирует его
// как Opener для потоков.
// NewBotHandler creates a new instance of BotHandler.
func NewBotHandler(deps HandlerDependencies) *BotHandler {
	if deps.Config == nil || deps.Store == nil || deps.Locker == nil || deps.Nav == nil ||
		deps.Runner == nil || deps.Backend == nil || deps.Texts == nil {
		// Критическая ошибка сборки приложения.
		// Critical wiring error.
		panic("Не все зависимости для BotHandler были предоставлены.")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	bh := &BotHandler{Deps: deps, logger: deps.Logger.Named("handlers")}
	bh.sections = map[constants.MenuState]StateHandler{
		constants.STATE_START:         bh.startSection,
		constants.STATE_SERVICES:      bh.servicesSection,
		constants.STATE_ORDERS:        bh.ordersSection,
		constants.STATE_ORDER_DETAILS: bh.orderDetailsSection,
		constants.STATE_PROFILE:       bh.profileSection,
		constants.STATE_USER_DETAILS:  bh.userDetailsSection,
		constants.STATE_USERS_SEARCH:  bh.searchResultsSection,
		constants.STATE_DONE:          bh.doneSection,
	}
	deps.Runner.SetOpener(bh)
	return bh
}

// text возвращает строку таблицы текстов. Пустой ключ - пустая строка.
func (bh *BotHandler) text(key string, args ...interface{}) string {
	if key == "" {
		return ""
	}
	return bh.Deps.Texts.Get(key, args...)
}
