package flows

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"conciergebot/internal/constants"
	"conciergebot/internal/engine"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
	"conciergebot/internal/utils"
)

// Поля заказа.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldExpireDate  = "expire_date"
)

// Текущие значения редактируемого заказа хранятся в scratch под этим префиксом,
// чтобы не запрашивать заказ заново на каждое сообщение.
const currentPrefix = "current."

func (r *Registry) orderFields() []engine.Field {
	return []engine.Field{
		{Name: fieldTitle, Prompt: r.texts.Get("order.title"), Validate: utils.ValidateText(fieldTitle, 3, 200)},
		{Name: fieldDescription, Prompt: r.texts.Get("order.description"), Validate: utils.ValidateText(fieldDescription, 10, 2000)},
		{Name: fieldPrice, Prompt: r.texts.Get("order.price"), Validate: utils.ValidatePrice},
		{Name: fieldExpireDate, Prompt: r.texts.Get("order.expire_date"), Validate: func(input string) (string, error) {
			return utils.ValidateFutureDate(input, r.now())
		}},
	}
}

func (r *Registry) addOrder(sess *session.ChatSession) (*engine.Flow, error) {
	if sess.UserID == 0 {
		return nil, fmt.Errorf("%w: заказ может создать только зарегистрированный пользователь", ErrUnavailable)
	}
	return &engine.Flow{
		State:  constants.STATE_ADD_ORDER,
		Fields: r.orderFields(),
		Commit: func(ctx context.Context, sess *session.ChatSession, values map[string]string, resourceID string) engine.CommitResult {
			return r.commitOrder(ctx, sess, values, resourceID, r.texts.Get("order.created"))
		},
	}, nil
}

// modifyOrder - изменение заказа arg. Каждое поле можно пропустить,
// тогда сохраняется текущее значение.
func (r *Registry) modifyOrder(ctx context.Context, sess *session.ChatSession, arg string) (*engine.Flow, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: некорректный id заказа %q", ErrUnavailable, arg)
	}

	current := sess.ScratchValues(FlowModifyOrder)
	if current[constants.SCRATCH_RESOURCE_ID] != arg {
		order, res := r.backend.Order(ctx, id, sess.AuthToken)
		if res.NotFound() {
			return nil, fmt.Errorf("%w: заказ %d не найден", ErrUnavailable, id)
		}
		if !res.OK() {
			return nil, fmt.Errorf("загрузка заказа %d: %w", id, res.Err)
		}
		current = map[string]string{
			constants.SCRATCH_RESOURCE_ID:    arg,
			currentPrefix + fieldTitle:       order.Title,
			currentPrefix + fieldDescription: order.Description,
			currentPrefix + fieldPrice:       strconv.FormatFloat(order.Price, 'f', -1, 64),
			currentPrefix + fieldExpireDate:  order.ExpireDate,
		}
	}
	seed := make(map[string]string)
	for k, v := range current {
		if k == constants.SCRATCH_RESOURCE_ID || strings.HasPrefix(k, currentPrefix) {
			seed[k] = v
		}
	}

	fields := r.orderFields()
	for i := range fields {
		value := current[currentPrefix+fields[i].Name]
		if value == "" {
			continue
		}
		shown := value
		switch fields[i].Name {
		case fieldPrice:
			if price, err := strconv.ParseFloat(value, 64); err == nil {
				shown = utils.FormatPrice(price)
			}
		case fieldExpireDate:
			shown = utils.FormatDateForDisplay(value)
		}
		fields[i].Optional = true
		fields[i].Default = value
		fields[i].Prompt += "\n\n" + r.texts.Get("order.keep_current", utils.Truncate(shown, 200))
	}

	return &engine.Flow{
		State:  constants.STATE_MODIFY_ORDER,
		Fields: fields,
		Seed:   seed,
		Commit: func(ctx context.Context, sess *session.ChatSession, values map[string]string, resourceID string) engine.CommitResult {
			return r.commitOrder(ctx, sess, values, resourceID, r.texts.Get("order.updated"))
		},
	}, nil
}

func (r *Registry) commitOrder(ctx context.Context, sess *session.ChatSession, values map[string]string, resourceID, message string) engine.CommitResult {
	price, _ := strconv.ParseFloat(values[fieldPrice], 64)
	order := models.Order{
		OwnerID:     sess.UserID,
		Title:       values[fieldTitle],
		Description: values[fieldDescription],
		Price:       price,
		ExpireDate:  values[fieldExpireDate],
	}

	var saved models.Order
	if resourceID == "" {
		created, gres := r.backend.CreateOrder(ctx, order, sess.AuthToken)
		if !gres.OK() {
			return outcome(gres)
		}
		saved = created
	} else {
		id, err := strconv.ParseInt(resourceID, 10, 64)
		if err != nil {
			return engine.CommitResult{Outcome: engine.CommitFailed, Detail: err.Error()}
		}
		updated, gres := r.backend.UpdateOrder(ctx, id, order, sess.AuthToken)
		if !gres.OK() {
			out := outcome(gres)
			out.ResourceID = resourceID
			return out
		}
		saved = updated
		if saved.ID == 0 {
			saved.ID = id
		}
	}

	r.logger.Info("заказ сохранен",
		zap.Int64("chatID", sess.ChatID), zap.Int64("orderID", saved.ID), zap.Bool("update", resourceID != ""))
	return engine.CommitResult{
		Outcome:    engine.CommitOK,
		ResourceID: strconv.FormatInt(saved.ID, 10),
		Message:    message,
		Next:       constants.STATE_ORDER_DETAILS,
		NextArg:    strconv.FormatInt(saved.ID, 10),
	}
}
