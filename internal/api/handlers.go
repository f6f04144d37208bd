package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/constants"
	"conciergebot/internal/session"
)

type handler struct {
	deps   ApiDependencies
	logger *zap.Logger
}

// jsonResponse - вспомогательная структура для стандартного ответа API
type jsonResponse struct {
	Status  string      `json:"status"` // "success" или "error"
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SessionView - сессия чата без токена авторизации.
type SessionView struct {
	ChatID   int64                 `json:"chatId"`
	UserID   int64                 `json:"userId,omitempty"`
	Username string                `json:"username,omitempty"`
	Role     constants.Role        `json:"role,omitempty"`
	State    constants.MenuState   `json:"state"`
	Stack    []constants.MenuState `json:"stack"`
	Scratch  map[string]string     `json:"scratch,omitempty"`
	Messages int                   `json:"messages"`
	Version  int64                 `json:"version"`
}

// newSessionView собирает представление сессии для служебного API.
func newSessionView(sess *session.ChatSession) SessionView {
	stack := make([]constants.MenuState, 0, sess.Depth())
	for _, sec := range sess.SectionStack {
		stack = append(stack, sec.State)
	}
	return SessionView{
		ChatID:   sess.ChatID,
		UserID:   sess.UserID,
		Username: sess.Username,
		Role:     sess.Role,
		State:    sess.Current().State,
		Stack:    stack,
		Scratch:  sess.Scratch,
		Messages: len(sess.AllMessages()),
		Version:  sess.Version,
	}
}

// --- Вспомогательные функции для JSON-ответов ---
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(jsonResponse{Status: "error", Message: message})
}

func writeSuccess(w http.ResponseWriter, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jsonResponse{Status: "success", Message: message, Data: data})
}

// Health отвечает 200, пока процесс жив.
func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, "ok", nil)
}

// Webhook принимает обновление от Telegram. Bot ставит его в очередь чата,
// поэтому ответ не ждет обработки.
func (h *handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("Webhook: некорректное тело запроса", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}
	w.WriteHeader(http.StatusOK)

	ctx := context.WithoutCancel(r.Context())
	h.deps.Bot.HandleUpdate(ctx, update)
}

func chatIDParam(r *http.Request) (int64, bool) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil || chatID == 0 {
		return 0, false
	}
	return chatID, true
}

// GetSession возвращает состояние сессии чата.
func (h *handler) GetSession(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	sess, err := h.deps.Store.Load(r.Context(), chatID)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("GetSession: ошибка загрузки сессии", zap.Int64("chatID", chatID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeSuccess(w, "session", newSessionView(sess))
}

// DeleteSession сбрасывает сессию чата. Следующее сообщение начнет диалог заново.
func (h *handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}
	unlock, err := h.deps.Locker.Lock(r.Context(), chatID)
	if err != nil {
		h.logger.Warn("DeleteSession: не удалось захватить блокировку", zap.Int64("chatID", chatID), zap.Error(err))
		writeError(w, http.StatusConflict, "session is busy")
		return
	}
	defer unlock()

	if err := h.deps.Store.Delete(r.Context(), chatID); err != nil {
		h.logger.Error("DeleteSession: ошибка удаления сессии", zap.Int64("chatID", chatID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	h.logger.Info("сессия сброшена через API", zap.Int64("chatID", chatID))
	w.WriteHeader(http.StatusNoContent)
}
