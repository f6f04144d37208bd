// Package tgtest содержит поддельный Transport для тестов.
package tgtest

import (
	"context"
	"fmt"
	"sync"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/models"
)

// Call - записанный вызов транспорта.
type Call struct {
	Method    string
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  *models.Keyboard
}

// Transport - поддельный транспорт: выдает последовательные id, хранит
// "живые" сообщения и записывает вызовы.
type Transport struct {
	mu     sync.Mutex
	nextID int
	Calls  []Call
	// Live - сообщения, которые сейчас видны в чате: chatID -> messageID -> текст.
	Live map[int64]map[int]string

	// FailDelete - id, удаление которых завершается произвольной ошибкой.
	FailDelete map[int]error
	// FailEdit - ошибка для любого редактирования.
	FailEdit error
	// FailSend - ошибка для любой отправки.
	FailSend error
}

// New создает Transport.
func New() *Transport {
	return &Transport{Live: map[int64]map[int]string{}, FailDelete: map[int]error{}}
}

func (t *Transport) record(c Call) {
	t.Calls = append(t.Calls, c)
}

func (t *Transport) put(chatID int64, id int, text string) {
	if t.Live[chatID] == nil {
		t.Live[chatID] = map[int]string{}
	}
	t.Live[chatID][id] = text
}

func (t *Transport) Send(ctx context.Context, chatID int64, msg models.Outgoing) (models.MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "send", ChatID: chatID, Text: msg.Text, Keyboard: msg.Keyboard})
	if t.FailSend != nil {
		return models.MessageRef{}, t.FailSend
	}
	t.nextID++
	t.put(chatID, t.nextID, msg.Text)
	return models.MessageRef{ID: t.nextID, Text: msg.Text, Markup: msg.Keyboard.Clone()}, nil
}

func (t *Transport) EditText(ctx context.Context, chatID int64, messageID int, msg models.Outgoing) (models.MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "edit", ChatID: chatID, MessageID: messageID, Text: msg.Text, Keyboard: msg.Keyboard})
	if t.FailEdit != nil {
		return models.MessageRef{}, t.FailEdit
	}
	current, ok := t.Live[chatID][messageID]
	if !ok {
		return models.MessageRef{}, fmt.Errorf("%w: edit %d", apperrors.ErrMessageGone, messageID)
	}
	if current == msg.Text {
		return models.MessageRef{}, fmt.Errorf("%w: edit %d", apperrors.ErrMessageNotModified, messageID)
	}
	t.put(chatID, messageID, msg.Text)
	return models.MessageRef{ID: messageID, Text: msg.Text, Markup: msg.Keyboard.Clone()}, nil
}

func (t *Transport) EditMarkup(ctx context.Context, chatID int64, messageID int, kb *models.Keyboard) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "edit_markup", ChatID: chatID, MessageID: messageID, Keyboard: kb})
	if _, ok := t.Live[chatID][messageID]; !ok {
		return apperrors.ErrMessageGone
	}
	return nil
}

func (t *Transport) Delete(ctx context.Context, chatID int64, messageID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "delete", ChatID: chatID, MessageID: messageID})
	if err, ok := t.FailDelete[messageID]; ok {
		return err
	}
	if _, ok := t.Live[chatID][messageID]; !ok {
		return fmt.Errorf("%w: delete %d", apperrors.ErrMessageGone, messageID)
	}
	delete(t.Live[chatID], messageID)
	return nil
}

func (t *Transport) SendPhoto(ctx context.Context, chatID int64, file models.Attachment, kb *models.Keyboard) (models.MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "photo", ChatID: chatID, Text: file.Caption, Keyboard: kb})
	t.nextID++
	t.put(chatID, t.nextID, file.Caption)
	return models.MessageRef{ID: t.nextID, Text: file.Caption, Media: true}, nil
}

func (t *Transport) SendDocument(ctx context.Context, chatID int64, file models.Attachment) (models.MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "document", ChatID: chatID, Text: file.Name})
	t.nextID++
	t.put(chatID, t.nextID, file.Caption)
	return models.MessageRef{ID: t.nextID, Text: file.Caption, Media: true}, nil
}

func (t *Transport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(Call{Method: "answer", Text: callbackID})
	return nil
}

func (t *Transport) GetChatMember(ctx context.Context, chatID, userID int64) (string, error) {
	return "member", nil
}

// Count возвращает количество вызовов метода.
func (t *Transport) Count(method string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Last возвращает последний вызов метода.
func (t *Transport) Last(method string) (Call, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.Calls) - 1; i >= 0; i-- {
		if t.Calls[i].Method == method {
			return t.Calls[i], true
		}
	}
	return Call{}, false
}

// IsLive сообщает, виден ли сейчас message в чате.
func (t *Transport) IsLive(chatID int64, messageID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.Live[chatID][messageID]
	return ok
}

// LiveCount - количество видимых сообщений в чате.
func (t *Transport) LiveCount(chatID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Live[chatID])
}

// Reset очищает журнал вызовов, не трогая живые сообщения.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = nil
}

// Incoming регистрирует входящее сообщение пользователя, чтобы его можно было удалить.
func (t *Transport) Incoming(chatID int64, text string) models.MessageRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.put(chatID, t.nextID, text)
	return models.MessageRef{ID: t.nextID, Text: text, FromUser: true}
}
