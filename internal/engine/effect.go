package engine

import "conciergebot/internal/constants"

// EffectKind - вид побочного действия, которое должен выполнить исполнитель.
type EffectKind int

const (
	// Эффекты потоков.
	EffectPrompt EffectKind = iota
	EffectWarn
	EffectClearWarning
	EffectStore
	EffectUnset
	EffectCommit
	EffectCancel
	EffectDone
	EffectAbort
	EffectNotify

	// Эффекты меню.
	EffectEnter
	EffectBack
	EffectHome
	EffectStartFlow
	EffectAction
)

var effectNames = map[EffectKind]string{
	EffectPrompt:       "prompt",
	EffectWarn:         "warn",
	EffectClearWarning: "clear_warning",
	EffectStore:        "store",
	EffectUnset:        "unset",
	EffectCommit:       "commit",
	EffectCancel:       "cancel",
	EffectDone:         "done",
	EffectAbort:        "abort",
	EffectNotify:       "notify",
	EffectEnter:        "enter",
	EffectBack:         "back",
	EffectHome:         "home",
	EffectStartFlow:    "start_flow",
	EffectAction:       "action",
}

func (k EffectKind) String() string {
	if name, ok := effectNames[k]; ok {
		return name
	}
	return "unknown"
}

// Effect - описание побочного действия. Используются только поля,
// относящиеся к Kind.
type Effect struct {
	Kind EffectKind

	// Field - поле потока для EffectPrompt.
	Field string
	// Refresh - перерисовать последний запрос на месте (мультивыбор).
	Refresh bool
	// Retry - добавить к запросу кнопку повторной отправки.
	Retry bool

	// Text - текст предупреждения, уведомления или анонса возврата.
	Text string

	// Key, Value - запись scratch для EffectStore/EffectUnset.
	Key   string
	Value string

	// State, Levels, Name, Arg - параметры эффектов меню.
	State  constants.MenuState
	Levels int
	Name   string
	Arg    string
}

// Prompt запрашивает значение поля.
func Prompt(field string) Effect { return Effect{Kind: EffectPrompt, Field: field} }

// Warn показывает предупреждение в слоте warning.
func Warn(text string) Effect { return Effect{Kind: EffectWarn, Text: text} }

// ClearWarning убирает предупреждение.
func ClearWarning() Effect { return Effect{Kind: EffectClearWarning} }

// Store сохраняет значение в scratch потока.
func Store(key, value string) Effect { return Effect{Kind: EffectStore, Key: key, Value: value} }

// Unset удаляет значение из scratch потока.
func Unset(key string) Effect { return Effect{Kind: EffectUnset, Key: key} }

// Commit отправляет собранные значения.
func Commit() Effect { return Effect{Kind: EffectCommit} }

// Notify уведомляет оператора.
func Notify(text string) Effect { return Effect{Kind: EffectNotify, Text: text} }

// Enter открывает раздел меню.
func Enter(state constants.MenuState, arg string) Effect {
	return Effect{Kind: EffectEnter, State: state, Arg: arg}
}

// Back возвращает на levels уровней назад.
func Back(levels int, announce string) Effect {
	return Effect{Kind: EffectBack, Levels: levels, Text: announce}
}

// Home возвращает в корневой раздел.
func Home(announce string) Effect { return Effect{Kind: EffectHome, Text: announce} }

// StartFlow запускает поток name.
func StartFlow(name, arg string) Effect { return Effect{Kind: EffectStartFlow, Name: name, Arg: arg} }

// Action - именованное действие раздела (выгрузка, QR-карточка, выход).
func Action(name, arg string) Effect { return Effect{Kind: EffectAction, Name: name, Arg: arg} }

// Transition - результат функции переходов.
type Transition struct {
	Next    FlowState
	Effects []Effect
}

// Has сообщает, есть ли в переходе эффект вида kind.
func (t Transition) Has(kind EffectKind) bool {
	for _, e := range t.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Find возвращает первый эффект вида kind.
func (t Transition) Find(kind EffectKind) (Effect, bool) {
	for _, e := range t.Effects {
		if e.Kind == kind {
			return e, true
		}
	}
	return Effect{}, false
}

// Stay - переход без изменений и действий.
func Stay(state FlowState) Transition { return Transition{Next: state} }
