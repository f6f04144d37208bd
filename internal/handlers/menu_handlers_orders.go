package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"conciergebot/internal/constants"
	"conciergebot/internal/flows"
	"conciergebot/internal/gateway"
	"conciergebot/internal/models"
	"conciergebot/internal/navigation"
	"conciergebot/internal/session"
	"conciergebot/internal/utils"
)

// Выгрузка читает не больше стольких страниц списка.
const maxExportPages = 20

// ordersQuery - какие заказы видит группа: дизайнер свои, исполнитель открытые.
func ordersQuery(sess *session.ChatSession, page int) gateway.OrdersQuery {
	if sess.Role == constants.ROLE_OUTSOURCER {
		return gateway.OrdersQuery{Status: models.ORDER_STATUS_OPEN, Page: page}
	}
	return gateway.OrdersQuery{Owner: sess.UserID, Page: page}
}

func (bh *BotHandler) ordersSection(ctx context.Context, sess *session.ChatSession, req sectionRequest) (navigation.Screen, error) {
	t := bh.Deps.Texts
	if sess.UserID == 0 {
		return navigation.Screen{}, fmt.Errorf("%w: список заказов без регистрации", flows.ErrUnavailable)
	}

	list, res := bh.Deps.Backend.Orders(ctx, ordersQuery(sess, req.Page), sess.AuthToken)
	if !res.OK() {
		return navigation.Screen{}, resultError("загрузка заказов", res)
	}

	kb := models.NewInlineKeyboard()
	if len(list.Results) == 0 {
		kb.AddRow(navRow(t)...)
		return navigation.Screen{
			Messages: []models.Outgoing{{Text: t.Get("orders.empty"), Keyboard: kb}},
			Extra:    pageExtra(req.Arg, req.Page),
		}, nil
	}

	pages := pageCount(list.Count)
	for _, o := range list.Results {
		label := t.Get("orders.item", utils.Truncate(utils.StripEmoji(o.Title), 40), utils.FormatPrice(o.Price))
		kb.AddRow(models.Btn(label, constants.CALLBACK_PREFIX_ORDER+strconv.FormatInt(o.ID, 10)))
	}
	kb.AddRow(pagerRow(t, req.Page, pages)...)
	if sess.Role == constants.ROLE_DESIGNER {
		kb.AddRow(models.Btn(t.Get("button.export"), constants.CALLBACK_EXPORT))
	}
	kb.AddRow(navRow(t)...)

	return navigation.Screen{
		Messages: []models.Outgoing{{Text: t.Get("orders.header", req.Page, pages), Keyboard: kb}},
		Extra:    pageExtra(req.Arg, req.Page),
	}, nil
}

func (bh *BotHandler) orderDetailsSection(ctx context.Context, sess *session.ChatSession, req sectionRequest) (navigation.Screen, error) {
	t := bh.Deps.Texts
	id, err := strconv.ParseInt(req.Arg, 10, 64)
	if err != nil || id <= 0 {
		return navigation.Screen{}, fmt.Errorf("%w: некорректный id заказа %q", flows.ErrUnavailable, req.Arg)
	}

	order, res := bh.Deps.Backend.Order(ctx, id, sess.AuthToken)
	if res.NotFound() {
		return navigation.Screen{}, fmt.Errorf("%w: заказ %d не найден", flows.ErrUnavailable, id)
	}
	if !res.OK() {
		return navigation.Screen{}, resultError("загрузка заказа", res)
	}

	text := t.Get("order.details",
		order.Title,
		order.Description,
		utils.FormatPrice(order.Price),
		utils.FormatDateForDisplay(order.ExpireDate),
		orderStatusLabel(order.Status))

	kb := models.NewInlineKeyboard()
	owner := order.OwnerID != 0 && order.OwnerID == sess.UserID
	if owner && (order.Status == "" || order.Status == models.ORDER_STATUS_OPEN) {
		kb.AddRow(models.Btn(t.Get("button.edit_order"), constants.CALLBACK_PREFIX_EDIT+req.Arg))
	}
	if !owner && order.OwnerID != 0 {
		kb.AddRow(models.Btn(t.Get("button.owner"), constants.CALLBACK_PREFIX_USER+strconv.FormatInt(order.OwnerID, 10)))
	}
	kb.AddRow(navRow(t)...)

	return navigation.Screen{
		Messages: []models.Outgoing{{Text: utils.Truncate(text, 4000), Keyboard: kb}},
		Extra:    map[string]string{constants.EXTRA_ORDER_ID: req.Arg},
	}, nil
}

// exportOrders отправляет все заказы списка одной книгой Excel.
// Документ привязывается к разделу и удаляется при уходе с него.
func (bh *BotHandler) exportOrders(ctx context.Context, sess *session.ChatSession) error {
	t := bh.Deps.Texts
	var orders []models.Order
	for page := 1; page <= maxExportPages; page++ {
		list, res := bh.Deps.Backend.Orders(ctx, ordersQuery(sess, page), sess.AuthToken)
		if !res.OK() {
			return resultError("выгрузка заказов", res)
		}
		orders = append(orders, list.Results...)
		if len(list.Results) == 0 || len(orders) >= list.Count || list.Next == nil {
			break
		}
	}

	msgs := bh.Deps.Nav.Messages()
	if len(orders) == 0 {
		_, err := msgs.SendToSlot(ctx, sess, constants.SLOT_WARNING, models.Outgoing{Text: t.Get("order.export_empty")})
		return err
	}

	data, err := utils.OrdersWorkbook(orders)
	if err != nil {
		return err
	}
	ref, err := msgs.Transport().SendDocument(ctx, sess.ChatID, models.Attachment{
		Name:    fmt.Sprintf("orders_%s.xlsx", time.Now().Format("2006-01-02")),
		Data:    data,
		Caption: t.Get("order.export_caption"),
	})
	if err != nil {
		return fmt.Errorf("отправка выгрузки: %w", err)
	}
	ref.Media = true
	bh.Deps.Nav.Track(sess, ref)

	bh.logger.Info("заказы выгружены", zap.Int64("chatID", sess.ChatID), zap.Int("orders", len(orders)))
	return nil
}
