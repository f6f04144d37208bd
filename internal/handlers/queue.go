package handlers

import (
	"context"
	"sync"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"go.uber.org/zap"
)

// UpdateHandler обрабатывает одно обновление Telegram.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

type queuedUpdate struct {
	ctx    context.Context
	update tgbotapi.Update
}

// chatQueue - очередь одного чата. pending считает принятые, но еще
// не обработанные обновления и меняется только под UpdateQueue.mu.
type chatQueue struct {
	updates chan queuedUpdate
	pending int
}

// UpdateQueue раздает обновления по очередям чатов. Обновления одного чата
// обрабатываются строго по очереди в порядке поступления, разные чаты
// обрабатываются параллельно. Обработчик чата живет, пока в очереди есть работа.
//
// UpdateQueue keeps per-chat arrival order: one worker per chat with pending updates.
type UpdateQueue struct {
	next   UpdateHandler
	size   int
	logger *zap.Logger

	mu    sync.Mutex
	chats map[int64]*chatQueue
	wg    sync.WaitGroup
}

// NewUpdateQueue создает очередь. size - буфер одного чата: при его
// заполнении HandleUpdate ждет, пока обработчик чата освободит место.
func NewUpdateQueue(next UpdateHandler, size int, logger *zap.Logger) *UpdateQueue {
	if size <= 0 {
		size = 32
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateQueue{
		next:   next,
		size:   size,
		logger: logger.Named("queue"),
		chats:  make(map[int64]*chatQueue),
	}
}

// HandleUpdate ставит обновление в очередь его чата и сразу возвращается,
// если в буфере есть место.
func (q *UpdateQueue) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)

	q.mu.Lock()
	cq, ok := q.chats[chatID]
	if !ok {
		cq = &chatQueue{updates: make(chan queuedUpdate, q.size)}
		q.chats[chatID] = cq
		q.wg.Add(1)
		go q.work(chatID, cq)
	}
	cq.pending++
	q.mu.Unlock()

	cq.updates <- queuedUpdate{ctx: ctx, update: update}
}

// Wait ждет, пока все принятые обновления будут обработаны.
func (q *UpdateQueue) Wait() {
	q.wg.Wait()
}

func (q *UpdateQueue) work(chatID int64, cq *chatQueue) {
	defer q.wg.Done()
	for {
		item := <-cq.updates
		q.handle(chatID, item)

		q.mu.Lock()
		cq.pending--
		if cq.pending == 0 {
			delete(q.chats, chatID)
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
	}
}

func (q *UpdateQueue) handle(chatID int64, item queuedUpdate) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("паника в обработчике обновления",
				zap.Int64("chatID", chatID), zap.Int("updateID", item.update.UpdateID),
				zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	q.next.HandleUpdate(item.ctx, item.update)
}

// updateChatID - чат, к которому относится обновление. Обновления без
// чата попадают в общую очередь с ключом 0.
func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}
