package engine

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"conciergebot/internal/constants"
	"conciergebot/internal/models"
	"conciergebot/internal/navigation"
	"conciergebot/internal/session"
)

// Builder собирает поток по имени. Поток строится заново на каждое событие:
// в сессии хранятся только имя, аргумент и состояние.
type Builder interface {
	Build(ctx context.Context, name string, sess *session.ChatSession, arg string) (*Flow, error)
}

// LabelSource отдает общие подписи потоков без сборки потока.
type LabelSource interface {
	Labels() Labels
}

// Notifier отправляет уведомления оператору.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Opener открывает раздел меню после завершения потока.
type Opener interface {
	Open(ctx context.Context, sess *session.ChatSession, state constants.MenuState, arg string) error
}

// Runner исполняет эффекты потоков.
type Runner struct {
	nav      *navigation.Controller
	flows    Builder
	notifier Notifier
	opener   Opener
	logger   *zap.Logger
}

// NewRunner создает Runner. notifier может быть nil.
func NewRunner(nav *navigation.Controller, flows Builder, notifier Notifier, logger *zap.Logger) *Runner {
	return &Runner{nav: nav, flows: flows, notifier: notifier, logger: logger.Named("engine")}
}

// SetOpener задает, кто открывает разделы после завершения потока.
func (r *Runner) SetOpener(o Opener) { r.opener = o }

// Active сообщает, что текущий раздел - поток.
func (r *Runner) Active(sess *session.ChatSession) bool {
	return sess.Current().ExtraValue(constants.EXTRA_FLOW) != ""
}

// Start открывает раздел потока и запрашивает первое поле.
func (r *Runner) Start(ctx context.Context, sess *session.ChatSession, name, arg string) error {
	flow, err := r.flows.Build(ctx, name, sess, arg)
	if err != nil {
		return fmt.Errorf("сборка потока %s: %w", name, err)
	}

	entry := sess.Depth() - 1
	if sess.Current().State == flow.State {
		entry--
	}
	if entry < 0 {
		entry = 0
	}

	sess.ScratchDrop(flow.Name)
	for k, v := range flow.Seed {
		sess.ScratchSet(flow.Name, k, v)
	}

	_, err = r.nav.Enter(ctx, sess, navigation.Screen{
		State: flow.State,
		Extra: map[string]string{
			constants.EXTRA_FLOW:        flow.Name,
			constants.EXTRA_FLOW_ARG:    arg,
			constants.EXTRA_FLOW_STATE:  "",
			constants.EXTRA_ENTRY_DEPTH: strconv.Itoa(entry),
		},
		Scratch: []string{flow.Name},
	})
	if err != nil {
		return err
	}

	r.logger.Info("поток запущен",
		zap.Int64("chatID", sess.ChatID), zap.String("flow", flow.Name), zap.String("arg", arg))
	return r.apply(ctx, sess, flow, flow.Start())
}

// Handle передает событие активному потоку.
func (r *Runner) Handle(ctx context.Context, sess *session.ChatSession, ev Event) error {
	sec := sess.Current()
	name := sec.ExtraValue(constants.EXTRA_FLOW)
	state := FlowState(sec.ExtraValue(constants.EXTRA_FLOW_STATE))

	if ev.FromUser() {
		r.nav.Track(sess, models.MessageRef{ID: ev.MessageID, Text: ev.Text, FromUser: true})
	}

	// Отмена не собирает поток, поэтому работает и без бэкенда.
	if state != "" && !state.Terminal() && ev.IsCancel() {
		sec.SetExtra(constants.EXTRA_FLOW_STATE, string(StateCancelled))
		return r.finish(ctx, sess, name, Effect{Kind: EffectCancel, Text: r.labels().Cancelled})
	}

	flow, err := r.flows.Build(ctx, name, sess, sec.ExtraValue(constants.EXTRA_FLOW_ARG))
	if err != nil {
		return fmt.Errorf("сборка потока %s: %w", name, err)
	}

	if state != "" && !state.Terminal() && flow.index(state) < 0 {
		r.logger.Warn("поле потока не найдено, поток начат заново",
			zap.Int64("chatID", sess.ChatID),
			zap.String("flow", flow.Name),
			zap.String("field", string(state)))
	}
	tr := flow.Step(state, ev, sess.ScratchValues(flow.Name))
	r.logger.Debug("шаг потока",
		zap.Int64("chatID", sess.ChatID),
		zap.String("flow", flow.Name),
		zap.String("from", string(state)),
		zap.String("to", string(tr.Next)),
		zap.String("event", ev.Kind.String()))
	return r.apply(ctx, sess, flow, tr)
}

func (r *Runner) apply(ctx context.Context, sess *session.ChatSession, flow *Flow, tr Transition) error {
	sess.Current().SetExtra(constants.EXTRA_FLOW_STATE, string(tr.Next))
	msgs := r.nav.Messages()

	for _, eff := range tr.Effects {
		switch eff.Kind {
		case EffectStore:
			sess.ScratchSet(flow.Name, eff.Key, eff.Value)

		case EffectUnset:
			sess.ScratchDelete(flow.Name, eff.Key)

		case EffectClearWarning:
			msgs.ClearSlot(ctx, sess, constants.SLOT_WARNING)

		case EffectWarn:
			if _, err := msgs.SendToSlot(ctx, sess, constants.SLOT_WARNING, models.Outgoing{Text: eff.Text}); err != nil {
				r.logger.Warn("не удалось показать предупреждение", zap.Int64("chatID", sess.ChatID), zap.Error(err))
			}

		case EffectPrompt:
			out := flow.PromptMessage(eff.Field, sess.ScratchValues(flow.Name), eff.Retry)
			var err error
			if eff.Refresh {
				_, err = r.nav.ReplaceLast(ctx, sess, out)
			} else {
				_, err = r.nav.Append(ctx, sess, out)
			}
			if err != nil {
				return fmt.Errorf("запрос поля %s: %w", eff.Field, err)
			}

		case EffectNotify:
			r.notify(ctx, fmt.Sprintf("chat %d: %s", sess.ChatID, eff.Text))

		case EffectCommit:
			return r.apply(ctx, sess, flow, r.commit(ctx, sess, flow, tr.Next))

		case EffectCancel, EffectDone, EffectAbort:
			return r.finish(ctx, sess, flow.Name, eff)
		}
	}
	return nil
}

func (r *Runner) commit(ctx context.Context, sess *session.ChatSession, flow *Flow, state FlowState) Transition {
	if flow.Commit == nil {
		return flow.Resolve(state, CommitResult{Outcome: CommitOK})
	}
	values := sess.ScratchValues(flow.Name)
	resourceID := values[constants.SCRATCH_RESOURCE_ID]
	res := flow.Commit(ctx, sess, flow.Payload(values), resourceID)

	fields := []zap.Field{
		zap.Int64("chatID", sess.ChatID),
		zap.String("flow", flow.Name),
		zap.String("resourceID", resourceID),
		zap.Int("outcome", int(res.Outcome)),
	}
	if res.Outcome == CommitOK {
		r.logger.Info("данные потока отправлены", fields...)
	} else {
		r.logger.Warn("отправка данных потока не удалась", append(fields, zap.String("detail", res.Detail))...)
	}
	return flow.Resolve(state, res)
}

// finish возвращает пользователя в раздел, из которого был запущен поток.
func (r *Runner) finish(ctx context.Context, sess *session.ChatSession, name string, eff Effect) error {
	sec := sess.Current()
	entry, err := strconv.Atoi(sec.ExtraValue(constants.EXTRA_ENTRY_DEPTH))
	if err != nil {
		entry = sess.Depth() - 2
	}

	_, backErr := r.nav.BackTo(ctx, sess, entry, eff.Text)
	sess.ScratchDrop(name)

	r.logger.Info("поток завершен",
		zap.Int64("chatID", sess.ChatID),
		zap.String("flow", name),
		zap.String("result", eff.Kind.String()))

	if eff.Kind == EffectDone && eff.State != "" && r.opener != nil {
		if err := r.opener.Open(ctx, sess, eff.State, eff.Arg); err != nil {
			return err
		}
	}
	return backErr
}

// labels - подписи из Builder, если он их отдает.
func (r *Runner) labels() Labels {
	if src, ok := r.flows.(LabelSource); ok {
		return src.Labels()
	}
	return Labels{}
}

func (r *Runner) notify(ctx context.Context, text string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, text); err != nil {
		r.logger.Warn("не удалось уведомить оператора", zap.Error(err))
	}
}
