package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"conciergebot/internal/models"
)

func decodeResult[T any](res Result) (T, Result) {
	var out T
	if !res.OK() {
		return out, res
	}
	if err := res.Decode(&out); err != nil {
		res.Err = fmt.Errorf("разбор ответа: %w", err)
	}
	return out, res
}

// --- Пользователи ---

// User ищет пользователя по Telegram ID. NotFound() - пользователь не зарегистрирован.
func (c *Client) User(ctx context.Context, telegramID int64, token string) (models.User, UserResult) {
	res := c.FetchUser(ctx, telegramID, nil, http.MethodGet, nil, token)
	user, decoded := decodeResult[models.User](res.Result)
	res.Result = decoded
	return user, res
}

// CreateUser регистрирует пользователя.
func (c *Client) CreateUser(ctx context.Context, user models.User) (models.User, UserResult) {
	if err := c.check(user); err != nil {
		return models.User{}, UserResult{Result: Result{Err: err}}
	}
	res := withToken(c.Do(ctx, http.MethodPost, "api/users", nil, user, ""))
	created, decoded := decodeResult[models.User](res.Result)
	res.Result = decoded
	return created, res
}

// UpdateUser обновляет профиль.
func (c *Client) UpdateUser(ctx context.Context, id int64, user models.User, token string) (models.User, UserResult) {
	if err := c.check(user); err != nil {
		return models.User{}, UserResult{Result: Result{Err: err}}
	}
	res := c.FetchUser(ctx, id, nil, http.MethodPatch, user, token)
	updated, decoded := decodeResult[models.User](res.Result)
	res.Result = decoded
	return updated, res
}

// --- Заказы ---

// OrdersQuery - фильтр списка заказов.
type OrdersQuery struct {
	Owner    int64
	Executor int64
	Status   string
	Page     int
}

func (q OrdersQuery) values() url.Values {
	v := url.Values{}
	if q.Owner != 0 {
		v.Set("owner", strconv.FormatInt(q.Owner, 10))
	}
	if q.Executor != 0 {
		v.Set("executor", strconv.FormatInt(q.Executor, 10))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

// Orders возвращает страницу заказов.
func (c *Client) Orders(ctx context.Context, q OrdersQuery, token string) (models.Page[models.Order], Result) {
	res := c.Do(ctx, http.MethodGet, "api/orders", q.values(), nil, token)
	if !res.OK() {
		return models.Page[models.Order]{}, res
	}
	items, err := decodeList[models.Order](res.Data)
	if err != nil {
		res.Err = fmt.Errorf("разбор списка заказов: %w", err)
		return models.Page[models.Order]{}, res
	}
	page, _ := decodeResult[models.Page[models.Order]](res)
	page.Results = items
	if page.Count == 0 {
		page.Count = len(items)
	}
	return page, res
}

// Order возвращает заказ по id.
func (c *Client) Order(ctx context.Context, id int64, token string) (models.Order, Result) {
	return decodeResult[models.Order](c.Do(ctx, http.MethodGet, fmt.Sprintf("api/orders/%d", id), nil, nil, token))
}

// CreateOrder создает заказ.
func (c *Client) CreateOrder(ctx context.Context, order models.Order, token string) (models.Order, Result) {
	if err := c.check(order); err != nil {
		return models.Order{}, Result{Err: err}
	}
	return decodeResult[models.Order](c.Do(ctx, http.MethodPost, "api/orders", nil, order, token))
}

// UpdateOrder обновляет заказ.
func (c *Client) UpdateOrder(ctx context.Context, id int64, order models.Order, token string) (models.Order, Result) {
	if err := c.check(order); err != nil {
		return models.Order{}, Result{Err: err}
	}
	return decodeResult[models.Order](c.Do(ctx, http.MethodPatch, fmt.Sprintf("api/orders/%d", id), nil, order, token))
}

// --- Поиск, оценки, поддержка ---

// SearchUsers ищет пользователей по ключевым словам и категории.
func (c *Client) SearchUsers(ctx context.Context, filter models.SearchFilter, page int, token string) (models.Page[models.User], Result) {
	v := url.Values{}
	if len(filter.Keywords) > 0 {
		v.Set("search", strings.Join(filter.Keywords, " "))
	}
	if filter.Category != "" {
		v.Set("category", filter.Category)
	}
	if filter.Group != "" {
		v.Set("group", filter.Group)
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	res := c.Do(ctx, http.MethodGet, "api/users", v, nil, token)
	if !res.OK() {
		return models.Page[models.User]{}, res
	}
	items, err := decodeList[models.User](res.Data)
	if err != nil {
		res.Err = fmt.Errorf("разбор результатов поиска: %w", err)
		return models.Page[models.User]{}, res
	}
	out, _ := decodeResult[models.Page[models.User]](res)
	out.Results = items
	if out.Count == 0 {
		out.Count = len(items)
	}
	return out, res
}

// SubmitRating отправляет анкету оценки. Conflict() - оценка самого себя
// или повторная оценка.
func (c *Client) SubmitRating(ctx context.Context, rating models.Rating, token string) Result {
	return c.Do(ctx, http.MethodPost, "api/rating", nil, rating, token)
}

// SubmitSupport отправляет обращение в поддержку.
func (c *Client) SubmitSupport(ctx context.Context, req models.SupportRequest, token string) Result {
	return c.Do(ctx, http.MethodPost, "api/support", nil, req, token)
}
