// Package gateway - клиент REST API бэкенда. Ошибки сети и сервера никогда
// не выходят наружу как паника или отдельное значение: они всегда лежат в Result.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
)

// Result - ответ бэкенда.
type Result struct {
	Data       json.RawMessage
	StatusCode int
	Err        error
}

// OK - запрос выполнен и сервер ответил 2xx.
func (r Result) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// NotFound - сервер ответил 404. Для пользователей это "не зарегистрирован".
func (r Result) NotFound() bool { return r.StatusCode == http.StatusNotFound }

// Conflict - бизнес-отказ: 304, 409 или ответ с ошибкой, где поле conflict
// заполнено. Успешный ответ конфликтом не считается.
func (r Result) Conflict() bool {
	if r.StatusCode == http.StatusNotModified || r.StatusCode == http.StatusConflict {
		return true
	}
	if r.Err != nil || r.StatusCode < 300 || len(r.Data) == 0 || r.Data[0] != '{' {
		return false
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(r.Data, &payload); err != nil {
		return false
	}
	switch string(bytes.TrimSpace(payload["conflict"])) {
	case "", "null", "false", `""`, "{}", "[]":
		return false
	}
	return true
}

// Decode разбирает тело ответа в v.
func (r Result) Decode(v any) error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("пустой ответ сервера (status %d)", r.StatusCode)
	}
	return json.Unmarshal(r.Data, v)
}

// Detail - описание ошибки для пользователя и оператора: поле detail,
// ошибки полей формы или текст ошибки.
func (r Result) Detail() string {
	if len(r.Data) > 0 && r.Data[0] == '{' {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(r.Data, &payload); err == nil {
			for _, key := range []string{"detail", "conflict", "error", "message"} {
				var s string
				if raw, ok := payload[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
					return s
				}
			}
			var parts []string
			for field, raw := range payload {
				var list []string
				if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
					parts = append(parts, field+": "+strings.Join(list, " "))
				}
			}
			if len(parts) > 0 {
				sort.Strings(parts)
				return strings.Join(parts, "; ")
			}
		}
	}
	var ve *apperrors.ValidationError
	if errors.As(r.Err, &ve) {
		return ve.Error()
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return ""
}

// UserResult - ответ эндпоинта пользователей с токеном авторизации.
type UserResult struct {
	Result
	AuthToken string
}

// Client - Remote Data Gateway.
type Client struct {
	baseURL      string
	serviceToken string
	http         *http.Client
	cache        *bigcache.BigCache
	validate     *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewClient создает клиент. cache может быть nil, тогда справочники
// запрашиваются каждый раз.
func NewClient(baseURL, serviceToken string, timeout time.Duration, cache *bigcache.BigCache, logger *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
		cache:    cache,
		validate: validator.New(),
		logger:   logger.Named("gateway"),
		now:      time.Now,
	}
}

func (c *Client) endpoint(resource string, params url.Values) string {
	u := c.baseURL + "/" + strings.Trim(resource, "/") + "/"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Fetch выполняет GET к ресурсу с сервисным токеном.
func (c *Client) Fetch(ctx context.Context, resource string, params url.Values) Result {
	return c.Do(ctx, http.MethodGet, resource, params, nil, "")
}

// Do выполняет запрос. token - токен пользователя; пустой или просроченный
// заменяется сервисным токеном.
func (c *Client) Do(ctx context.Context, method, resource string, params url.Values, body any, token string) Result {
	reqURL := c.endpoint(resource, params)

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Result{Err: fmt.Errorf("кодирование тела запроса: %w", err)}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return Result{Err: fmt.Errorf("создание запроса %s %s: %w", method, reqURL, err)}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer := c.bearer(token); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	c.logger.Debug("---> запрос", zap.String("method", method), zap.String("url", reqURL), zap.String("requestID", requestID))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("бэкенд недоступен", zap.String("method", method), zap.String("url", reqURL), zap.Error(err))
		return Result{Err: fmt.Errorf("запрос %s %s: %w", method, reqURL, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{StatusCode: resp.StatusCode, Err: fmt.Errorf("чтение ответа %s: %w", reqURL, err)}
	}
	c.logger.Debug("<--- ответ", zap.String("url", reqURL), zap.Int("status", resp.StatusCode), zap.Int("bytes", len(data)))

	res := Result{Data: data, StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Err = &apperrors.RemoteError{
			Method: method,
			URL:    reqURL,
			Status: resp.StatusCode,
			Detail: res.Detail(),
		}
		if !res.NotFound() && !res.Conflict() {
			c.logger.Warn("бэкенд вернул ошибку",
				zap.String("method", method), zap.String("url", reqURL),
				zap.Int("status", resp.StatusCode), zap.String("detail", truncate(string(data), 300)))
		}
	}
	return res
}

// FetchUser обращается к /api/users/<id>/ и достает токен из ответа.
func (c *Client) FetchUser(ctx context.Context, id int64, params url.Values, method string, body any, token string) UserResult {
	if method == "" {
		method = http.MethodGet
	}
	res := c.Do(ctx, method, fmt.Sprintf("api/users/%d", id), params, body, token)
	return withToken(res)
}

func withToken(res Result) UserResult {
	out := UserResult{Result: res}
	if !res.OK() {
		return out
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(res.Data, &payload); err == nil {
		out.AuthToken = payload.Token
	}
	return out
}

// check проверяет тело запроса до отправки на сервер.
func (c *Client) check(v any) error {
	if err := c.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.NewValidationError(fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
