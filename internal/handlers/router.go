package handlers

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"conciergebot/internal/constants"
	"conciergebot/internal/engine"
	"conciergebot/internal/flows"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
	"conciergebot/internal/utils"
)

// Имена действий разделов.
const (
	actionRestart = "restart"
	actionPage    = "page"
	actionExport  = constants.CALLBACK_EXPORT
	actionQR      = constants.CALLBACK_QR
	actionLogout  = constants.CALLBACK_LOGOUT
)

// route - функция переходов меню: по разделу на вершине стека и событию
// решает, что сделать. Побочных действий не имеет. В эффектах Warn, Back и
// Home поле Text - ключ таблицы текстов.
func route(sess *session.ChatSession, ev engine.Event) engine.Transition {
	cur := sess.Current()
	fresh := sess.Depth() == 1 && len(cur.Messages) == 0

	if ev.Kind == engine.EventCommand {
		switch ev.Token {
		case constants.COMMAND_START:
			return restart(ev.Text)
		case constants.COMMAND_MENU:
			if fresh {
				return restart("")
			}
			return menu(engine.Home(""))
		case constants.COMMAND_CANCEL:
			return menu(engine.Back(1, ""))
		}
	}

	// Новый чат или чат после выхода: любое сообщение открывает главное меню.
	if fresh || cur.State == constants.STATE_DONE {
		return restart("")
	}

	if ev.Kind != engine.EventCallback {
		return menu(engine.Warn("error.unknown_input"))
	}

	switch {
	case ev.Token == constants.CALLBACK_BACK:
		return menu(engine.Back(1, ""))
	case ev.Token == constants.CALLBACK_HOME:
		return menu(engine.Home(""))
	case ev.Token == constants.CALLBACK_EXPORT, ev.Token == constants.CALLBACK_QR, ev.Token == constants.CALLBACK_LOGOUT:
		return menu(engine.Action(ev.Token, ""))
	case ev.HasPrefix(constants.CALLBACK_PREFIX_PAGE):
		return menu(engine.Action(actionPage, ev.Arg(constants.CALLBACK_PREFIX_PAGE)))
	case ev.HasPrefix(constants.CALLBACK_PREFIX_MENU):
		return enterState(constants.MenuState(ev.Arg(constants.CALLBACK_PREFIX_MENU)))
	case ev.HasPrefix(constants.CALLBACK_PREFIX_REGISTER):
		return menu(engine.StartFlow(flows.FlowRegister, ev.Arg(constants.CALLBACK_PREFIX_REGISTER)))
	case ev.HasPrefix(constants.CALLBACK_PREFIX_ORDER):
		return menu(engine.Enter(constants.STATE_ORDER_DETAILS, ev.Arg(constants.CALLBACK_PREFIX_ORDER)))
	case ev.HasPrefix(constants.CALLBACK_PREFIX_EDIT):
		return menu(engine.StartFlow(flows.FlowModifyOrder, ev.Arg(constants.CALLBACK_PREFIX_EDIT)))
	case ev.HasPrefix(constants.CALLBACK_PREFIX_USER):
		return menu(engine.Enter(constants.STATE_USER_DETAILS, ev.Arg(constants.CALLBACK_PREFIX_USER)))
	case ev.HasPrefix(constants.CALLBACK_PREFIX_RATE):
		return menu(engine.StartFlow(flows.FlowRating, ev.Arg(constants.CALLBACK_PREFIX_RATE)))
	case ev.HasPrefix(constants.CALLBACK_PREFIX_SEARCH):
		return menu(engine.StartFlow(flows.FlowSearch, ev.Arg(constants.CALLBACK_PREFIX_SEARCH)))
	}

	// Кнопки завершенных потоков (выбор, "Пропустить") и noop.
	return engine.Stay("")
}

// enterState - переход по кнопке menu:<state>. Разделы-потоки запускают
// поток, разделы, которым нужен аргумент, так открыть нельзя.
func enterState(state constants.MenuState) engine.Transition {
	switch state {
	case constants.STATE_START:
		return menu(engine.Home(""))
	case constants.STATE_ADD_ORDER:
		return menu(engine.StartFlow(flows.FlowAddOrder, ""))
	case constants.STATE_SUPPORT:
		return menu(engine.StartFlow(flows.FlowSupport, ""))
	case constants.STATE_REGISTER:
		return menu(engine.StartFlow(flows.FlowRegister, ""))
	case constants.STATE_SUPPLIERS_REGISTER:
		return menu(engine.StartFlow(flows.FlowRegister, string(constants.ROLE_SUPPLIER)))
	case constants.STATE_USERS_SEARCH:
		return menu(engine.StartFlow(flows.FlowSearch, ""))
	case constants.STATE_DONE:
		return menu(engine.Action(actionLogout, ""))
	case constants.STATE_SERVICES, constants.STATE_ORDERS, constants.STATE_PROFILE:
		return menu(engine.Enter(state, ""))
	}
	return engine.Stay("")
}

// restart сбрасывает чат и открывает главное меню. Deep link profile_<id>
// сразу открывает профиль пользователя поверх него.
func restart(payload string) engine.Transition {
	effects := []engine.Effect{engine.Action(actionRestart, "")}
	if id, ok := utils.ParseProfilePayload(payload); ok {
		effects = append(effects, engine.Enter(constants.STATE_USER_DETAILS, strconv.FormatInt(id, 10)))
	}
	return menu(effects...)
}

func menu(effects ...engine.Effect) engine.Transition {
	return engine.Transition{Effects: effects}
}

// execute исполняет эффекты меню по порядку до первой ошибки.
func (bh *BotHandler) execute(ctx context.Context, sess *session.ChatSession, tr engine.Transition) error {
	for _, eff := range tr.Effects {
		var err error
		switch eff.Kind {
		case engine.EffectEnter:
			err = bh.Open(ctx, sess, eff.State, eff.Arg)
		case engine.EffectBack:
			_, err = bh.Deps.Nav.Back(ctx, sess, eff.Levels, bh.text(eff.Text))
		case engine.EffectHome:
			_, err = bh.Deps.Nav.Home(ctx, sess, bh.text(eff.Text))
		case engine.EffectStartFlow:
			err = bh.Deps.Runner.Start(ctx, sess, eff.Name, eff.Arg)
		case engine.EffectAction:
			err = bh.act(ctx, sess, eff.Name, eff.Arg)
		case engine.EffectWarn:
			_, err = bh.Deps.Nav.Messages().SendToSlot(ctx, sess, constants.SLOT_WARNING, models.Outgoing{Text: bh.text(eff.Text)})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Open строит экран раздела и показывает его. Используется и меню,
// и потоками после успешной отправки данных.
func (bh *BotHandler) Open(ctx context.Context, sess *session.ChatSession, state constants.MenuState, arg string) error {
	build, ok := bh.sections[state]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSection, state)
	}
	return bh.show(ctx, sess, state, build, sectionRequest{Arg: arg, Page: 1})
}

func (bh *BotHandler) show(ctx context.Context, sess *session.ChatSession, state constants.MenuState, build StateHandler, req sectionRequest) error {
	scr, err := build(ctx, sess, req)
	if err != nil {
		return err
	}
	scr.State = state

	// Главное меню всегда лежит в корне стека.
	if state == constants.STATE_START && sess.Depth() > 1 {
		if _, err := bh.Deps.Nav.Home(ctx, sess, ""); err != nil {
			bh.logger.Debug("возврат в корень с ошибками", zap.Int64("chatID", sess.ChatID), zap.Error(err))
		}
	}
	_, err = bh.Deps.Nav.Enter(ctx, sess, scr)
	return err
}

// act исполняет именованное действие раздела.
func (bh *BotHandler) act(ctx context.Context, sess *session.ChatSession, name, arg string) error {
	bh.logger.Debug("действие",
		zap.Int64("chatID", sess.ChatID), zap.String("action", name), zap.String("arg", arg))

	switch name {
	case actionRestart:
		username := sess.Username
		bh.Deps.Nav.Reset(ctx, sess)
		sess.Username = username
		return bh.Open(ctx, sess, constants.STATE_START, "")
	case actionPage:
		return bh.turnPage(ctx, sess, arg)
	case actionExport:
		return bh.exportOrders(ctx, sess)
	case actionQR:
		return bh.sendProfileQR(ctx, sess)
	case actionLogout:
		return bh.logout(ctx, sess)
	}
	return fmt.Errorf("неизвестное действие %q", name)
}

// turnPage перестраивает текущий раздел на странице arg с тем же запросом.
func (bh *BotHandler) turnPage(ctx context.Context, sess *session.ChatSession, arg string) error {
	page, err := strconv.Atoi(arg)
	if err != nil || page < 1 {
		return nil
	}
	sec := sess.Current()
	build, ok := bh.sections[sec.State]
	if !ok || sec.ExtraValue(constants.EXTRA_PAGE) == "" {
		return nil
	}
	return bh.show(ctx, sess, sec.State, build, sectionRequest{Arg: sec.ExtraValue(constants.EXTRA_QUERY), Page: page})
}

func (bh *BotHandler) logout(ctx context.Context, sess *session.ChatSession) error {
	bh.logger.Info("пользователь вышел", zap.Int64("chatID", sess.ChatID), zap.Int64("userID", sess.UserID))
	bh.Deps.Nav.Reset(ctx, sess)
	return bh.Open(ctx, sess, constants.STATE_DONE, "")
}
