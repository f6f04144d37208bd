// Package flows описывает конкретные диалоги бота: регистрацию, заказы,
// оценку, поиск и обращение в поддержку. Каждый поток - это список полей
// для engine.Flow и функция отправки собранных данных в бэкенд.
package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"conciergebot/internal/engine"
	"conciergebot/internal/gateway"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
	"conciergebot/internal/texts"
)

// Имена потоков. Они же - пространства имен scratch.
const (
	FlowRegister    = "register"
	FlowAddOrder    = "add_order"
	FlowModifyOrder = "modify_order"
	FlowRating      = "rating"
	FlowSearch      = "users_search"
	FlowSupport     = "support"
)

var (
	// ErrUnavailable - поток нельзя запустить: нет данных для его полей.
	ErrUnavailable = errors.New("flow is unavailable")
	// ErrUnknownFlow - имя потока не зарегистрировано.
	ErrUnknownFlow = errors.New("unknown flow")
	// ErrNoQuestions - на бэкенде нет вопросов анкеты оценки.
	ErrNoQuestions = fmt.Errorf("%w: no rating questions", ErrUnavailable)
)

// Backend - методы шлюза, которые нужны потокам.
type Backend interface {
	Categories(ctx context.Context) ([]models.Category, error)
	Regions(ctx context.Context) ([]models.Region, error)
	Segments(ctx context.Context) ([]models.Segment, error)
	RatingQuestions(ctx context.Context) ([]models.RatingQuestion, error)

	CreateUser(ctx context.Context, user models.User) (models.User, gateway.UserResult)
	UpdateUser(ctx context.Context, id int64, user models.User, token string) (models.User, gateway.UserResult)

	Order(ctx context.Context, id int64, token string) (models.Order, gateway.Result)
	CreateOrder(ctx context.Context, order models.Order, token string) (models.Order, gateway.Result)
	UpdateOrder(ctx context.Context, id int64, order models.Order, token string) (models.Order, gateway.Result)

	SearchUsers(ctx context.Context, filter models.SearchFilter, page int, token string) (models.Page[models.User], gateway.Result)
	SubmitRating(ctx context.Context, rating models.Rating, token string) gateway.Result
	SubmitSupport(ctx context.Context, req models.SupportRequest, token string) gateway.Result
}

// Registry собирает потоки по имени. Реализует engine.Builder.
type Registry struct {
	backend  Backend
	texts    *texts.Table
	notifier engine.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistry создает Registry. notifier может быть nil.
func NewRegistry(backend Backend, t *texts.Table, notifier engine.Notifier, logger *zap.Logger) *Registry {
	return &Registry{
		backend:  backend,
		texts:    t,
		notifier: notifier,
		logger:   logger.Named("flows"),
		now:      time.Now,
	}
}

// Build собирает поток name для сессии sess с аргументом arg.
func (r *Registry) Build(ctx context.Context, name string, sess *session.ChatSession, arg string) (*engine.Flow, error) {
	var (
		flow *engine.Flow
		err  error
	)
	switch name {
	case FlowRegister:
		flow, err = r.register(ctx, sess, arg)
	case FlowAddOrder:
		flow, err = r.addOrder(sess)
	case FlowModifyOrder:
		flow, err = r.modifyOrder(ctx, sess, arg)
	case FlowRating:
		flow, err = r.rating(ctx, sess, arg)
	case FlowSearch:
		flow, err = r.search(ctx, sess, arg)
	case FlowSupport:
		flow, err = r.support(sess)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlow, name)
	}
	if err != nil {
		return nil, err
	}
	flow.Name = name
	flow.Labels = r.Labels()
	return flow, nil
}

// Labels - подписи и предупреждения, общие для всех потоков.
func (r *Registry) Labels() engine.Labels {
	return engine.Labels{
		Cancel:            r.texts.Get("button.cancel"),
		Continue:          r.texts.Get("button.continue"),
		Done:              r.texts.Get("button.done_choosing"),
		Retry:             r.texts.Get("button.retry"),
		ShareContact:      r.texts.Get("button.share_contact"),
		Cancelled:         r.texts.Get("flow.cancelled"),
		ChooseFromButtons: r.texts.Get("flow.choose_from_buttons"),
		SelectAtLeastOne:  r.texts.Get("flow.select_at_least_one"),
		Required:          r.texts.Get("flow.required"),
		RemoteFailure:     r.texts.Get("flow.remote_failure"),
		NotFound:          r.texts.Get("flow.not_found"),
		Conflict:          r.texts.Get("flow.conflict"),
		Restarted:         r.texts.Get("flow.restarted"),
	}
}

// outcome переводит ответ шлюза в итог отправки.
func outcome(res gateway.Result) engine.CommitResult {
	switch {
	case res.Conflict():
		return engine.CommitResult{Outcome: engine.CommitConflict, Detail: res.Detail()}
	case res.OK():
		return engine.CommitResult{Outcome: engine.CommitOK}
	case res.NotFound():
		return engine.CommitResult{Outcome: engine.CommitNotFound, Detail: res.Detail()}
	}
	return engine.CommitResult{Outcome: engine.CommitFailed, Detail: res.Detail()}
}

func (r *Registry) notify(ctx context.Context, text string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, text); err != nil {
		r.logger.Warn("не удалось уведомить оператора", zap.Error(err))
	}
}
