package handlers

import (
	"context"

	"go.uber.org/zap"

	"conciergebot/internal/constants"
	"conciergebot/internal/models"
	"conciergebot/internal/navigation"
	"conciergebot/internal/session"
	"conciergebot/internal/texts"
)

// startSection - главное меню. Профиль каждый раз сверяется с бэкендом:
// 404 означает, что пользователь не зарегистрирован.
func (bh *BotHandler) startSection(ctx context.Context, sess *session.ChatSession, _ sectionRequest) (navigation.Screen, error) {
	t := bh.Deps.Texts
	user, res := bh.Deps.Backend.User(ctx, sess.ChatID, sess.AuthToken)
	if res.NotFound() {
		sess.UserID, sess.Role, sess.AuthToken = 0, "", ""
		bh.logger.Info("гость открыл главное меню", zap.Int64("chatID", sess.ChatID))
		return navigation.Screen{Messages: []models.Outgoing{{
			Text:     t.Get("start.guest"),
			Keyboard: guestKeyboard(t),
		}}}, nil
	}
	if !res.OK() {
		return navigation.Screen{}, resultError("загрузка профиля", res.Result)
	}

	sess.UserID = user.ID
	if sess.UserID == 0 {
		sess.UserID = sess.ChatID
	}
	sess.Role = constants.ParseRole(user.Group)
	if res.AuthToken != "" {
		sess.AuthToken = res.AuthToken
	}

	kb := models.NewInlineKeyboard(
		models.Row(models.Btn(t.Title(constants.STATE_SERVICES), constants.MenuToken(constants.STATE_SERVICES))),
		models.Row(models.Btn(t.Title(constants.STATE_PROFILE), constants.MenuToken(constants.STATE_PROFILE))),
		models.Row(models.Btn(t.Title(constants.STATE_SUPPORT), constants.MenuToken(constants.STATE_SUPPORT))),
		models.Row(models.Btn(t.Get("button.logout"), constants.CALLBACK_LOGOUT)),
	)
	return navigation.Screen{Messages: []models.Outgoing{{
		Text:     t.Get("start.member", user.DisplayName()),
		Keyboard: kb,
	}}}, nil
}

func guestKeyboard(t *texts.Table) *models.Keyboard {
	kb := models.NewInlineKeyboard(roleRows(t)...)
	kb.AddRow(models.Btn(t.Title(constants.STATE_SUPPORT), constants.MenuToken(constants.STATE_SUPPORT)))
	return kb
}

// roleRows - выбор группы при регистрации.
func roleRows(t *texts.Table) [][]models.Button {
	return [][]models.Button{
		models.Row(models.Btn(t.Get("button.role_designer"), constants.CALLBACK_PREFIX_REGISTER+string(constants.ROLE_DESIGNER))),
		models.Row(models.Btn(t.Get("button.role_outsourcer"), constants.CALLBACK_PREFIX_REGISTER+string(constants.ROLE_OUTSOURCER))),
		models.Row(models.Btn(t.Get("button.role_supplier"), constants.CALLBACK_PREFIX_REGISTER+string(constants.ROLE_SUPPLIER))),
	}
}

// RoleMenu - набор услуг, который видит пользователь своей группы.
// RoleMenu is the role-specific services screen.
type RoleMenu interface {
	Intro(t *texts.Table) string
	Rows(t *texts.Table) [][]models.Button
}

type designerMenu struct{}

func (designerMenu) Intro(t *texts.Table) string { return t.Get("services.designer") }

func (designerMenu) Rows(t *texts.Table) [][]models.Button {
	return [][]models.Button{
		models.Row(models.Btn(t.Get("button.my_orders"), constants.MenuToken(constants.STATE_ORDERS))),
		models.Row(models.Btn(t.Get("button.add_order"), constants.MenuToken(constants.STATE_ADD_ORDER))),
		models.Row(models.Btn(t.Get("button.search_executors"), constants.CALLBACK_PREFIX_SEARCH+string(constants.ROLE_OUTSOURCER))),
		models.Row(models.Btn(t.Get("button.search_suppliers"), constants.CALLBACK_PREFIX_SEARCH+string(constants.ROLE_SUPPLIER))),
	}
}

type outsourcerMenu struct{}

func (outsourcerMenu) Intro(t *texts.Table) string { return t.Get("services.outsourcer") }

func (outsourcerMenu) Rows(t *texts.Table) [][]models.Button {
	return [][]models.Button{
		models.Row(models.Btn(t.Get("button.open_orders"), constants.MenuToken(constants.STATE_ORDERS))),
		models.Row(models.Btn(t.Get("button.search_designers"), constants.CALLBACK_PREFIX_SEARCH+string(constants.ROLE_DESIGNER))),
	}
}

type supplierMenu struct{}

func (supplierMenu) Intro(t *texts.Table) string { return t.Get("services.supplier") }

func (supplierMenu) Rows(t *texts.Table) [][]models.Button {
	return [][]models.Button{
		models.Row(models.Btn(t.Get("button.search_designers"), constants.CALLBACK_PREFIX_SEARCH+string(constants.ROLE_DESIGNER))),
	}
}

// guestMenu - у пользователя без группы вместо услуг выбор группы.
type guestMenu struct{}

func (guestMenu) Intro(t *texts.Table) string { return t.Get("services.uncategorized") }

func (guestMenu) Rows(t *texts.Table) [][]models.Button { return roleRows(t) }

func roleMenuFor(role constants.Role) RoleMenu {
	switch role {
	case constants.ROLE_DESIGNER:
		return designerMenu{}
	case constants.ROLE_OUTSOURCER:
		return outsourcerMenu{}
	case constants.ROLE_SUPPLIER:
		return supplierMenu{}
	default:
		return guestMenu{}
	}
}

func (bh *BotHandler) servicesSection(_ context.Context, sess *session.ChatSession, _ sectionRequest) (navigation.Screen, error) {
	t := bh.Deps.Texts
	rm := roleMenuFor(sess.Role)
	kb := models.NewInlineKeyboard(rm.Rows(t)...)
	kb.AddRow(navRow(t)...)
	return navigation.Screen{Messages: []models.Outgoing{{Text: rm.Intro(t), Keyboard: kb}}}, nil
}

// doneSection - прощание после выхода. Следующее сообщение откроет главное меню.
func (bh *BotHandler) doneSection(_ context.Context, _ *session.ChatSession, _ sectionRequest) (navigation.Screen, error) {
	return navigation.Screen{Messages: []models.Outgoing{{
		Text:     bh.Deps.Texts.Get("done.goodbye"),
		Keyboard: models.RemoveReplyKeyboard(),
	}}}, nil
}
