package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/constants"
	"conciergebot/internal/models"
	"conciergebot/internal/session"
)

// FlowState - состояние потока: имя поля, которое сейчас заполняется,
// либо одно из терминальных состояний.
type FlowState string

const (
	StateCancelled FlowState = "CANCELLED"
	StateSubmitted FlowState = "SUBMITTED"
)

// Terminal сообщает, завершен ли поток.
func (s FlowState) Terminal() bool { return s == StateCancelled || s == StateSubmitted }

// FieldKind - вид ввода поля.
type FieldKind int

const (
	// FieldText - свободный текст, проверяемый валидатором.
	FieldText FieldKind = iota
	// FieldChoice - один вариант кнопкой.
	FieldChoice
	// FieldMultiChoice - несколько вариантов кнопками и "Готово".
	FieldMultiChoice
	// FieldContact - контакт кнопкой нижней клавиатуры или номер текстом.
	FieldContact
)

// Choice - вариант выбора: стабильное значение и подпись.
type Choice struct {
	Value string
	Label string
}

// Validator проверяет ввод и возвращает нормализованное значение.
// Ошибка *apperrors.ValidationError показывается пользователю как есть.
type Validator func(input string) (string, error)

// Field - описание одного поля потока.
type Field struct {
	Name     string
	Prompt   string
	Kind     FieldKind
	Choices  []Choice
	Optional bool
	// Default сохраняется, когда необязательное поле пропущено.
	Default  string
	Validate Validator
}

func (f Field) choice(value string) (Choice, bool) {
	for _, c := range f.Choices {
		if c.Value == value {
			return c, true
		}
	}
	return Choice{}, false
}

func (f Field) choiceByLabel(label string) (Choice, bool) {
	label = strings.TrimSpace(label)
	for _, c := range f.Choices {
		if strings.EqualFold(c.Label, label) {
			return c, true
		}
	}
	return Choice{}, false
}

// Labels - подписи кнопок и тексты предупреждений, общие для потоков.
type Labels struct {
	Cancel       string
	Continue     string
	Done         string
	Retry        string
	ShareContact string

	Cancelled         string
	ChooseFromButtons string
	SelectAtLeastOne  string
	Required          string
	// RemoteFailure - шаблон с одним %s для описания ошибки сервера.
	RemoteFailure string
	NotFound      string
	Conflict      string
	// Restarted - предупреждение о том, что поток начат заново.
	Restarted string
}

// CommitOutcome - итог отправки собранных данных.
type CommitOutcome int

const (
	CommitOK CommitOutcome = iota
	// CommitFailed - повторяемая ошибка: пользователь остается на последнем поле.
	CommitFailed
	// CommitNotFound - ресурс исчез, поток прерывается.
	CommitNotFound
	// CommitConflict - бизнес-отказ (оценка самого себя, повторная оценка).
	CommitConflict
)

// CommitResult - результат CommitFunc.
type CommitResult struct {
	Outcome CommitOutcome
	// ResourceID созданного ресурса. Сохраняется в scratch даже при ошибке,
	// чтобы повторная отправка обновила ресурс, а не создала второй.
	ResourceID string
	// Message - анонс успеха или текст отказа.
	Message string
	// Detail - описание ошибки сервера.
	Detail string
	// Next - раздел, который нужно открыть после успешного завершения.
	Next    constants.MenuState
	NextArg string
}

// CommitFunc отправляет значения потока. resourceID пуст, пока ресурс не создан.
type CommitFunc func(ctx context.Context, sess *session.ChatSession, values map[string]string, resourceID string) CommitResult

// Flow - конечная последовательность полей с завершающей отправкой.
type Flow struct {
	Name   string
	State  constants.MenuState
	Fields []Field
	Labels Labels
	// Seed - начальные значения scratch (например, id редактируемого ресурса).
	Seed   map[string]string
	Commit CommitFunc
}

func pendingKey(field string) string { return "pending." + field }

func (f *Flow) index(state FlowState) int {
	for i, field := range f.Fields {
		if FlowState(field.Name) == state {
			return i
		}
	}
	return -1
}

// Field возвращает описание поля по имени.
func (f *Flow) Field(name string) (Field, bool) {
	if i := f.index(FlowState(name)); i >= 0 {
		return f.Fields[i], true
	}
	return Field{}, false
}

// First - начальное состояние потока.
func (f *Flow) First() FlowState {
	if len(f.Fields) == 0 {
		return StateSubmitted
	}
	return FlowState(f.Fields[0].Name)
}

// Complete сообщает, собраны ли значения всех полей.
func (f *Flow) Complete(values map[string]string) bool {
	for _, field := range f.Fields {
		if _, ok := values[field.Name]; !ok {
			return false
		}
	}
	return true
}

// Payload оставляет в values только значения полей.
func (f *Flow) Payload(values map[string]string) map[string]string {
	out := make(map[string]string, len(f.Fields))
	for _, field := range f.Fields {
		if v, ok := values[field.Name]; ok {
			out[field.Name] = v
		}
	}
	return out
}

// Start - переход при входе в поток.
func (f *Flow) Start() Transition {
	first := f.First()
	if first.Terminal() {
		return Transition{Next: first, Effects: []Effect{Commit()}}
	}
	return Transition{Next: first, Effects: []Effect{Prompt(string(first))}}
}

// restart начинает поток заново: собранные ответы сбрасываются до Seed,
// id созданного ресурса сохраняется.
func (f *Flow) restart(values map[string]string) Transition {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var effects []Effect
	for _, k := range keys {
		if k == constants.SCRATCH_RESOURCE_ID {
			continue
		}
		if _, seeded := f.Seed[k]; !seeded {
			effects = append(effects, Unset(k))
		}
	}
	seedKeys := make([]string, 0, len(f.Seed))
	for k := range f.Seed {
		seedKeys = append(seedKeys, k)
	}
	sort.Strings(seedKeys)
	for _, k := range seedKeys {
		effects = append(effects, Store(k, f.Seed[k]))
	}
	if f.Labels.Restarted != "" {
		effects = append(effects, Warn(f.Labels.Restarted))
	}

	start := f.Start()
	start.Effects = append(effects, start.Effects...)
	return start
}

// Step - функция переходов потока. Не выполняет никаких действий,
// только описывает их. values - текущее содержимое scratch потока.
func (f *Flow) Step(state FlowState, ev Event, values map[string]string) Transition {
	if state == "" {
		return f.Start()
	}
	if state.Terminal() {
		return Stay(state)
	}
	if ev.IsCancel() {
		return Transition{Next: StateCancelled, Effects: []Effect{{Kind: EffectCancel, Text: f.Labels.Cancelled}}}
	}

	idx := f.index(state)
	if idx < 0 {
		// Поле исчезло из потока (например, анкета обновилась).
		return f.restart(values)
	}
	field := f.Fields[idx]
	last := idx == len(f.Fields)-1

	if ev.Kind == EventCallback && ev.Token == constants.CALLBACK_SUBMIT {
		if last && f.Complete(values) {
			return Transition{Next: state, Effects: []Effect{ClearWarning(), Commit()}}
		}
		return Stay(state)
	}

	res := f.accept(field, ev, values)
	switch res.kind {
	case acceptInvalid:
		return Transition{Next: state, Effects: []Effect{Warn(res.message)}}
	case acceptToggle:
		return Transition{Next: state, Effects: []Effect{
			ClearWarning(),
			Store(pendingKey(field.Name), res.value),
			{Kind: EffectPrompt, Field: field.Name, Refresh: true},
		}}
	case acceptValue:
		effects := []Effect{ClearWarning(), Store(field.Name, res.value)}
		if field.Kind == FieldMultiChoice {
			effects = append(effects, Unset(pendingKey(field.Name)))
		}
		if last {
			return Transition{Next: state, Effects: append(effects, Commit())}
		}
		next := f.Fields[idx+1].Name
		return Transition{Next: FlowState(next), Effects: append(effects, Prompt(next))}
	}
	return Stay(state)
}

// Resolve переводит результат отправки в переход.
func (f *Flow) Resolve(state FlowState, res CommitResult) Transition {
	var effects []Effect
	if res.ResourceID != "" {
		effects = append(effects, Store(constants.SCRATCH_RESOURCE_ID, res.ResourceID))
	}

	switch res.Outcome {
	case CommitOK:
		effects = append(effects, Effect{Kind: EffectDone, Text: res.Message, State: res.Next, Arg: res.NextArg})
		return Transition{Next: StateSubmitted, Effects: effects}
	case CommitConflict:
		msg := res.Message
		if msg == "" {
			msg = f.Labels.Conflict
		}
		return Transition{Next: StateCancelled, Effects: append(effects, Effect{Kind: EffectAbort, Text: msg})}
	case CommitNotFound:
		msg := res.Message
		if msg == "" {
			msg = f.Labels.NotFound
		}
		return Transition{Next: StateCancelled, Effects: append(effects, Effect{Kind: EffectAbort, Text: msg})}
	}

	warning := strings.TrimSpace(fmt.Sprintf(f.Labels.RemoteFailure, res.Detail))
	effects = append(effects,
		Warn(warning),
		Notify(fmt.Sprintf("%s: %s", f.Name, res.Detail)),
	)
	if f.index(state) >= 0 {
		effects = append(effects, Effect{Kind: EffectPrompt, Field: string(state), Retry: true})
	}
	return Transition{Next: state, Effects: effects}
}

type acceptKind int

const (
	acceptIgnore acceptKind = iota
	acceptInvalid
	acceptToggle
	acceptValue
)

type acceptResult struct {
	kind    acceptKind
	value   string
	message string
}

func (f *Flow) isSkip(ev Event) bool {
	switch ev.Kind {
	case EventCallback:
		return ev.Token == constants.CALLBACK_CONTINUE
	case EventText:
		text := strings.TrimSpace(ev.Text)
		for _, word := range []string{f.Labels.Continue, f.Labels.Done, "continue", "пропустить", "готово"} {
			if word != "" && strings.EqualFold(text, word) {
				return true
			}
		}
	}
	return false
}

func (f *Flow) accept(field Field, ev Event, values map[string]string) acceptResult {
	switch field.Kind {
	case FieldChoice:
		if ev.HasPrefix(constants.CALLBACK_PREFIX_CHOICE) {
			if c, ok := field.choice(ev.Arg(constants.CALLBACK_PREFIX_CHOICE)); ok {
				return acceptResult{kind: acceptValue, value: c.Value}
			}
			return acceptResult{kind: acceptIgnore}
		}
		if field.Optional && f.isSkip(ev) {
			return acceptResult{kind: acceptValue, value: field.Default}
		}
		if ev.Kind == EventText {
			if c, ok := field.choiceByLabel(ev.Text); ok {
				return acceptResult{kind: acceptValue, value: c.Value}
			}
			return acceptResult{kind: acceptInvalid, message: f.Labels.ChooseFromButtons}
		}
		return acceptResult{kind: acceptIgnore}

	case FieldMultiChoice:
		selected := splitSelection(values[pendingKey(field.Name)])
		if ev.HasPrefix(constants.CALLBACK_PREFIX_CHOICE) {
			value := ev.Arg(constants.CALLBACK_PREFIX_CHOICE)
			if _, ok := field.choice(value); !ok {
				return acceptResult{kind: acceptIgnore}
			}
			selected[value] = !selected[value]
			return acceptResult{kind: acceptToggle, value: field.joinSelection(selected)}
		}
		if f.isSkip(ev) {
			joined := field.joinSelection(selected)
			if joined == "" {
				if field.Optional {
					return acceptResult{kind: acceptValue, value: field.Default}
				}
				return acceptResult{kind: acceptInvalid, message: f.Labels.SelectAtLeastOne}
			}
			return acceptResult{kind: acceptValue, value: joined}
		}
		if ev.Kind == EventText {
			return acceptResult{kind: acceptInvalid, message: f.Labels.ChooseFromButtons}
		}
		return acceptResult{kind: acceptIgnore}
	}

	if field.Optional && f.isSkip(ev) {
		return acceptResult{kind: acceptValue, value: field.Default}
	}
	if ev.Kind != EventText && ev.Kind != EventContact {
		return acceptResult{kind: acceptIgnore}
	}
	input := strings.TrimSpace(ev.Text)
	if input == "" {
		return acceptResult{kind: acceptInvalid, message: f.Labels.Required}
	}
	if field.Validate != nil {
		normalized, err := field.Validate(input)
		if err != nil {
			return acceptResult{kind: acceptInvalid, message: validationMessage(err)}
		}
		input = normalized
	}
	return acceptResult{kind: acceptValue, value: input}
}

func validationMessage(err error) string {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}

func splitSelection(raw string) map[string]bool {
	out := make(map[string]bool)
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out[v] = true
		}
	}
	return out
}

// joinSelection собирает выбранные значения в порядке вариантов поля.
func (f Field) joinSelection(selected map[string]bool) string {
	var out []string
	for _, c := range f.Choices {
		if selected[c.Value] {
			out = append(out, c.Value)
		}
	}
	return strings.Join(out, ",")
}

// SplitValues разбирает значение поля мультивыбора.
func SplitValues(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// PromptMessage строит сообщение-запрос поля.
func (f *Flow) PromptMessage(name string, values map[string]string, retry bool) models.Outgoing {
	field, ok := f.Field(name)
	if !ok {
		return models.Outgoing{Text: name}
	}

	if field.Kind == FieldContact {
		kb := models.NewReplyKeyboard(models.Row(models.Button{Label: f.Labels.ShareContact, RequestContact: true}))
		if field.Optional {
			kb.AddRow(models.Btn(f.Labels.Continue, constants.CALLBACK_CONTINUE))
		}
		if retry {
			kb.AddRow(models.Btn(f.Labels.Retry, constants.CALLBACK_SUBMIT))
		}
		kb.AddRow(models.Btn(f.Labels.Cancel, constants.CALLBACK_CANCEL))
		return models.Outgoing{Text: field.Prompt, Keyboard: kb}
	}

	kb := models.NewInlineKeyboard()
	switch field.Kind {
	case FieldChoice:
		addChoiceRows(kb, field.Choices, nil)
	case FieldMultiChoice:
		addChoiceRows(kb, field.Choices, splitSelection(values[pendingKey(field.Name)]))
		kb.AddRow(models.Btn(f.Labels.Done, constants.CALLBACK_CONTINUE))
	}
	if field.Optional && field.Kind != FieldMultiChoice {
		kb.AddRow(models.Btn(f.Labels.Continue, constants.CALLBACK_CONTINUE))
	}
	if retry {
		kb.AddRow(models.Btn(f.Labels.Retry, constants.CALLBACK_SUBMIT))
	}
	kb.AddRow(models.Btn(f.Labels.Cancel, constants.CALLBACK_CANCEL))
	return models.Outgoing{Text: field.Prompt, Keyboard: kb}
}

// Длинные списки вариантов раскладываются по две кнопки в ряд.
const singleColumnLimit = 6

func addChoiceRows(kb *models.Keyboard, choices []Choice, selected map[string]bool) {
	perRow := 1
	if len(choices) > singleColumnLimit {
		perRow = 2
	}
	var row []models.Button
	for _, c := range choices {
		label := c.Label
		if selected[c.Value] {
			label = "✅ " + label
		}
		row = append(row, models.Btn(label, constants.ChoiceToken(c.Value)))
		if len(row) == perRow {
			kb.AddRow(row...)
			row = nil
		}
	}
	kb.AddRow(row...)
}
