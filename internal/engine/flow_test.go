package engine

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/constants"
)

var testLabels = Labels{
	Cancel:            "Отмена",
	Continue:          "Пропустить",
	Done:              "Готово",
	Retry:             "Повторить",
	ShareContact:      "Отправить номер",
	Cancelled:         "Действие отменено.",
	ChooseFromButtons: "Выберите вариант кнопкой.",
	SelectAtLeastOne:  "Выберите хотя бы один вариант.",
	Required:          "Поле не может быть пустым.",
	RemoteFailure:     "Не удалось сохранить. %s",
	NotFound:          "Данные недоступны.",
	Conflict:          "Действие недоступно.",
	Restarted:         "Вопросы обновились, начнем заново.",
}

func positiveNumber(input string) (string, error) {
	n, err := strconv.Atoi(input)
	if err != nil || n <= 0 {
		return "", apperrors.NewValidationError("price", "Введите положительное число.")
	}
	return strconv.Itoa(n), nil
}

func orderFlow() *Flow {
	return &Flow{
		Name:   "add_order",
		State:  constants.STATE_ADD_ORDER,
		Labels: testLabels,
		Fields: []Field{
			{Name: "title", Prompt: "Название?"},
			{Name: "price", Prompt: "Цена?", Validate: positiveNumber},
			{Name: "segment", Prompt: "Сегмент?", Kind: FieldChoice, Choices: []Choice{
				{Value: "econom", Label: "Эконом"},
				{Value: "premium", Label: "Премиум"},
			}},
			{Name: "phone", Prompt: "Телефон?", Kind: FieldContact},
		},
	}
}

// sim применяет эффекты хранения так же, как Runner, но без транспорта.
type sim struct {
	f         *Flow
	state     FlowState
	values    map[string]string
	result    CommitResult
	committed []map[string]string
}

func newSim(f *Flow) *sim {
	s := &sim{f: f, values: map[string]string{}}
	s.apply(f.Start())
	return s
}

func (s *sim) feed(ev Event) Transition {
	return s.apply(s.f.Step(s.state, ev, s.values))
}

func (s *sim) apply(tr Transition) Transition {
	s.state = tr.Next
	for _, e := range tr.Effects {
		switch e.Kind {
		case EffectStore:
			s.values[e.Key] = e.Value
		case EffectUnset:
			delete(s.values, e.Key)
		case EffectCommit:
			s.committed = append(s.committed, s.f.Payload(s.values))
			return s.apply(s.f.Resolve(s.state, s.result))
		}
	}
	return tr
}

func TestFlowFieldOrderDeterminism(t *testing.T) {
	f := orderFlow()
	s := newSim(f)
	require.Equal(t, FlowState("title"), s.state)

	inputs := []Event{
		TextEvent("Кухня на заказ"),
		TextEvent("150000"),
		CallbackEvent(constants.ChoiceToken("premium")),
		ContactEvent("+79991234567"),
	}
	require.Len(t, inputs, len(f.Fields))

	for i, ev := range inputs {
		assert.NotEqual(t, StateSubmitted, s.state, "submitted before input %d", i)
		s.feed(ev)
	}

	assert.Equal(t, StateSubmitted, s.state)
	require.Len(t, s.committed, 1)
	assert.Equal(t, map[string]string{
		"title":   "Кухня на заказ",
		"price":   "150000",
		"segment": "premium",
		"phone":   "+79991234567",
	}, s.committed[0])
}

func TestFlowInvalidInputDoesNotAdvance(t *testing.T) {
	s := newSim(orderFlow())
	s.feed(TextEvent("Кухня"))

	tr := s.feed(TextEvent("дорого"))

	assert.Equal(t, FlowState("price"), s.state)
	warn, ok := tr.Find(EffectWarn)
	require.True(t, ok)
	assert.Equal(t, "Введите положительное число.", warn.Text)
	assert.False(t, tr.Has(EffectStore))
	_, stored := s.values["price"]
	assert.False(t, stored)
}

func TestFlowEmptyTextIsRequired(t *testing.T) {
	s := newSim(orderFlow())
	tr := s.feed(TextEvent("   "))
	warn, ok := tr.Find(EffectWarn)
	require.True(t, ok)
	assert.Equal(t, testLabels.Required, warn.Text)
	assert.Equal(t, FlowState("title"), s.state)
}

func TestFlowCancelFromAnyField(t *testing.T) {
	for _, ev := range []Event{
		CallbackEvent(constants.CALLBACK_CANCEL),
		CallbackEvent(constants.CALLBACK_BACK),
		CommandEvent(constants.COMMAND_CANCEL, ""),
	} {
		s := newSim(orderFlow())
		s.feed(TextEvent("Кухня"))
		tr := s.feed(ev)

		assert.Equal(t, StateCancelled, s.state)
		cancel, ok := tr.Find(EffectCancel)
		require.True(t, ok)
		assert.Equal(t, testLabels.Cancelled, cancel.Text)
		assert.Empty(t, s.committed)
	}
}

func TestFlowChoiceAcceptsLabelText(t *testing.T) {
	s := newSim(orderFlow())
	s.feed(TextEvent("Кухня"))
	s.feed(TextEvent("100"))

	tr := s.feed(TextEvent("что-то"))
	assert.Equal(t, FlowState("segment"), s.state)
	warn, _ := tr.Find(EffectWarn)
	assert.Equal(t, testLabels.ChooseFromButtons, warn.Text)

	s.feed(TextEvent("эконом"))
	assert.Equal(t, FlowState("phone"), s.state)
	assert.Equal(t, "econom", s.values["segment"])
}

func TestFlowIgnoresStaleButtons(t *testing.T) {
	s := newSim(orderFlow())
	tr := s.feed(CallbackEvent(constants.ChoiceToken("premium")))
	assert.Empty(t, tr.Effects)
	assert.Equal(t, FlowState("title"), s.state)
}

func TestFlowOptionalFieldSkip(t *testing.T) {
	f := &Flow{Name: "register", Labels: testLabels, Fields: []Field{
		{Name: "work_experience", Optional: true, Default: "", Validate: positiveNumber},
		{Name: "region", Optional: true, Default: "keep", Kind: FieldChoice, Choices: []Choice{{Value: "1", Label: "Москва"}}},
	}}
	s := newSim(f)

	s.feed(TextEvent("continue"))
	assert.Equal(t, FlowState("region"), s.state)
	v, ok := s.values["work_experience"]
	assert.True(t, ok)
	assert.Empty(t, v)

	s.feed(CallbackEvent(constants.CALLBACK_CONTINUE))
	assert.Equal(t, StateSubmitted, s.state)
	assert.Equal(t, "keep", s.committed[0]["region"])
}

func TestFlowMultiChoice(t *testing.T) {
	f := &Flow{Name: "register", Labels: testLabels, Fields: []Field{
		{Name: "categories", Kind: FieldMultiChoice, Choices: []Choice{
			{Value: "1", Label: "Мебель"},
			{Value: "2", Label: "Свет"},
			{Value: "3", Label: "Текстиль"},
		}},
		{Name: "name"},
	}}
	s := newSim(f)

	tr := s.feed(CallbackEvent(constants.CALLBACK_CONTINUE))
	warn, ok := tr.Find(EffectWarn)
	require.True(t, ok)
	assert.Equal(t, testLabels.SelectAtLeastOne, warn.Text)

	tr = s.feed(CallbackEvent(constants.ChoiceToken("3")))
	prompt, ok := tr.Find(EffectPrompt)
	require.True(t, ok)
	assert.True(t, prompt.Refresh)
	s.feed(CallbackEvent(constants.ChoiceToken("1")))
	s.feed(CallbackEvent(constants.ChoiceToken("2")))
	s.feed(CallbackEvent(constants.ChoiceToken("2")))
	assert.Equal(t, FlowState("categories"), s.state)

	msg := f.PromptMessage("categories", s.values, false)
	assert.Equal(t, "✅ Мебель", msg.Keyboard.Rows[0][0].Label)
	assert.Equal(t, "Свет", msg.Keyboard.Rows[1][0].Label)

	s.feed(TextEvent("Готово"))
	assert.Equal(t, FlowState("name"), s.state)
	assert.Equal(t, "1,3", s.values["categories"])
	_, pending := s.values[pendingKey("categories")]
	assert.False(t, pending)
	assert.Equal(t, []string{"1", "3"}, SplitValues(s.values["categories"]))
}

func TestFlowSubmitCallback(t *testing.T) {
	f := orderFlow()
	s := newSim(f)
	assert.Empty(t, s.feed(CallbackEvent(constants.CALLBACK_SUBMIT)).Effects, "submit before last field is ignored")

	s.state = "phone"
	s.values = map[string]string{"title": "a", "price": "1", "segment": "econom", "phone": "+79990000000"}
	tr := f.Step(s.state, CallbackEvent(constants.CALLBACK_SUBMIT), s.values)
	assert.True(t, tr.Has(EffectCommit))
	assert.Equal(t, FlowState("phone"), tr.Next)
}

func TestFlowResolve(t *testing.T) {
	f := orderFlow()

	t.Run("ok stores id", func(t *testing.T) {
		tr := f.Resolve("phone", CommitResult{Outcome: CommitOK, ResourceID: "12", Message: "Создано"})
		assert.Equal(t, StateSubmitted, tr.Next)
		store, ok := tr.Find(EffectStore)
		require.True(t, ok)
		assert.Equal(t, constants.SCRATCH_RESOURCE_ID, store.Key)
		assert.Equal(t, "12", store.Value)
		done, _ := tr.Find(EffectDone)
		assert.Equal(t, "Создано", done.Text)
	})

	t.Run("failure re-prompts with retry", func(t *testing.T) {
		tr := f.Resolve("phone", CommitResult{Outcome: CommitFailed, Detail: "price: invalid"})
		assert.Equal(t, FlowState("phone"), tr.Next)
		warn, _ := tr.Find(EffectWarn)
		assert.Equal(t, "Не удалось сохранить. price: invalid", warn.Text)
		assert.True(t, tr.Has(EffectNotify))
		prompt, ok := tr.Find(EffectPrompt)
		require.True(t, ok)
		assert.True(t, prompt.Retry)
	})

	t.Run("conflict aborts with specific warning", func(t *testing.T) {
		tr := f.Resolve("phone", CommitResult{Outcome: CommitConflict})
		assert.Equal(t, StateCancelled, tr.Next)
		abort, ok := tr.Find(EffectAbort)
		require.True(t, ok)
		assert.Equal(t, testLabels.Conflict, abort.Text)
		assert.False(t, tr.Has(EffectNotify))
	})

	t.Run("not found aborts", func(t *testing.T) {
		tr := f.Resolve("phone", CommitResult{Outcome: CommitNotFound})
		abort, _ := tr.Find(EffectAbort)
		assert.Equal(t, testLabels.NotFound, abort.Text)
	})
}

func TestFlowUnknownStateRestartsWithCleanScratch(t *testing.T) {
	f := orderFlow()
	f.Seed = map[string]string{"segment": "econom"}
	s := &sim{f: f, state: "removed_field", values: map[string]string{
		"title":                       "Кухня",
		"price":                       "1500",
		"segment":                     "premium",
		constants.SCRATCH_RESOURCE_ID: "77",
	}}

	tr := s.feed(TextEvent("ответ"))
	assert.Equal(t, FlowState("title"), tr.Next)
	assert.Equal(t, map[string]string{"segment": "econom", constants.SCRATCH_RESOURCE_ID: "77"}, s.values)

	var warned, prompted bool
	for _, e := range tr.Effects {
		switch e.Kind {
		case EffectWarn:
			warned = true
			assert.Equal(t, testLabels.Restarted, e.Text)
		case EffectPrompt:
			prompted = true
			assert.Equal(t, "title", e.Field)
		}
	}
	assert.True(t, warned)
	assert.True(t, prompted)
}

func TestFlowTerminalStatesIgnoreEvents(t *testing.T) {
	f := orderFlow()
	assert.Empty(t, f.Step(StateSubmitted, TextEvent("x"), nil).Effects)
	assert.Empty(t, f.Step(StateCancelled, CallbackEvent(constants.CALLBACK_CANCEL), nil).Effects)
}

func TestPromptMessageKeyboards(t *testing.T) {
	f := orderFlow()

	text := f.PromptMessage("title", nil, false)
	require.NotNil(t, text.Keyboard)
	assert.True(t, text.Keyboard.Inline)
	token, ok := text.Keyboard.TokenForLabel(testLabels.Cancel)
	assert.True(t, ok)
	assert.Equal(t, constants.CALLBACK_CANCEL, token)

	contact := f.PromptMessage("phone", nil, true)
	assert.False(t, contact.Keyboard.Inline)
	assert.True(t, contact.Keyboard.Rows[0][0].RequestContact)
	token, ok = contact.Keyboard.TokenForLabel(testLabels.Retry)
	assert.True(t, ok)
	assert.Equal(t, constants.CALLBACK_SUBMIT, token)

	choice := f.PromptMessage("segment", nil, false)
	assert.Equal(t, constants.ChoiceToken("econom"), choice.Keyboard.Rows[0][0].Token)
}
