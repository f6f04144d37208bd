// Package engine - явная функция переходов диалоговых потоков:
// (состояние, событие, значения) -> (следующее состояние, эффекты).
// Эффекты исполняет Runner, сама функция переходов не имеет побочных действий.
package engine

import (
	"strings"

	"conciergebot/internal/constants"
)

// EventKind - вид входящего события.
type EventKind int

const (
	EventText EventKind = iota
	EventCallback
	EventCommand
	EventContact
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventCallback:
		return "callback"
	case EventCommand:
		return "command"
	case EventContact:
		return "contact"
	}
	return "unknown"
}

// Event - входящее событие чата, уже освобожденное от объектов транспорта.
type Event struct {
	Kind       EventKind
	ChatID     int64
	UserID     int64
	Username   string
	FirstName  string
	MessageID  int
	CallbackID string
	// Text - текст сообщения, номер телефона контакта или аргументы команды.
	Text string
	// Token - callback-токен кнопки или имя команды.
	Token string
}

// TextEvent - короткая запись текстового события.
func TextEvent(text string) Event { return Event{Kind: EventText, Text: text} }

// CallbackEvent - короткая запись нажатия кнопки.
func CallbackEvent(token string) Event { return Event{Kind: EventCallback, Token: token} }

// ContactEvent - короткая запись отправленного контакта.
func ContactEvent(phone string) Event { return Event{Kind: EventContact, Text: phone} }

// CommandEvent - короткая запись команды.
func CommandEvent(name, args string) Event { return Event{Kind: EventCommand, Token: name, Text: args} }

// IsCancel сообщает, просит ли событие прервать поток.
func (e Event) IsCancel() bool {
	switch e.Kind {
	case EventCallback:
		return e.Token == constants.CALLBACK_CANCEL || e.Token == constants.CALLBACK_BACK
	case EventCommand:
		return e.Token == constants.COMMAND_CANCEL
	}
	return false
}

// HasPrefix проверяет префикс callback-токена.
func (e Event) HasPrefix(prefix string) bool {
	return e.Kind == EventCallback && strings.HasPrefix(e.Token, prefix)
}

// Arg возвращает часть токена после префикса.
func (e Event) Arg(prefix string) string {
	return strings.TrimPrefix(e.Token, prefix)
}

// FromUser сообщает, что событие - сообщение пользователя в чате,
// которое нужно убрать вместе с разделом.
func (e Event) FromUser() bool {
	return (e.Kind == EventText || e.Kind == EventContact || e.Kind == EventCommand) && e.MessageID != 0
}
