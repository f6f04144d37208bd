package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"conciergebot/internal/config"
	"conciergebot/internal/constants"
	"conciergebot/internal/session"
)

type recordingBot struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
	done    chan struct{}
}

func (b *recordingBot) HandleUpdate(_ context.Context, update tgbotapi.Update) {
	b.mu.Lock()
	b.updates = append(b.updates, update)
	b.mu.Unlock()
	b.done <- struct{}{}
}

func newTestRouter(t *testing.T, token string) (http.Handler, *session.MemoryStore, *recordingBot) {
	t.Helper()
	store := session.NewMemoryStore(zap.NewNop())
	bot := &recordingBot{done: make(chan struct{}, 1)}
	r := NewRouter(ApiDependencies{
		Config: &config.Config{APIToken: token},
		Store:  store,
		Locker: session.NewKeyedLocker(),
		Bot:    bot,
		Logger: zap.NewNop(),
	})
	return r, store, bot
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestRouter(t, "")
	rec := do(t, r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)
}

func TestWebhookHandsUpdateToBot(t *testing.T) {
	r, _, bot := newTestRouter(t, "")
	body := `{"update_id":7,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"/start"}}`
	rec := do(t, r, http.MethodPost, WebhookPath, "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-bot.done:
	case <-time.After(2 * time.Second):
		t.Fatal("обновление не передано боту")
	}
	bot.mu.Lock()
	defer bot.mu.Unlock()
	require.Len(t, bot.updates, 1)
	assert.Equal(t, 7, bot.updates[0].UpdateID)
	require.NotNil(t, bot.updates[0].Message)
	assert.Equal(t, "/start", bot.updates[0].Message.Text)
}

func TestWebhookRejectsGarbage(t *testing.T) {
	r, _, _ := newTestRouter(t, "")
	rec := do(t, r, http.MethodPost, WebhookPath, "", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionRoutesRequireToken(t *testing.T) {
	r, _, _ := newTestRouter(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/sessions/42", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/sessions/42", "wrong", "").Code)

	disabled, _, _ := newTestRouter(t, "")
	assert.Equal(t, http.StatusForbidden, do(t, disabled, http.MethodGet, "/api/sessions/42", "anything", "").Code)
}

func TestGetSession(t *testing.T) {
	r, store, _ := newTestRouter(t, "secret")

	rec := do(t, r, http.MethodGet, "/api/sessions/42", "secret", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	sess := session.New(42)
	sess.UserID = 5
	sess.AuthToken = "jwt-token"
	sess.Push(session.Section{State: constants.STATE_SERVICES})
	require.NoError(t, store.Save(context.Background(), sess))

	rec = do(t, r, http.MethodGet, "/api/sessions/42", "secret", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "jwt-token")

	var resp struct {
		Data SessionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Data.ChatID)
	assert.Equal(t, int64(5), resp.Data.UserID)
	assert.Equal(t, constants.STATE_SERVICES, resp.Data.State)
	assert.Equal(t, []constants.MenuState{constants.STATE_START, constants.STATE_SERVICES}, resp.Data.Stack)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/sessions/abc", "secret", "").Code)
}

func TestDeleteSession(t *testing.T) {
	r, store, _ := newTestRouter(t, "secret")
	require.NoError(t, store.Save(context.Background(), session.New(42)))

	rec := do(t, r, http.MethodDelete, "/api/sessions/42", "secret", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := store.Load(context.Background(), 42)
	assert.Error(t, err)

	rec = do(t, r, http.MethodDelete, "/api/sessions/42", "secret", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
