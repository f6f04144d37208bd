package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
	"conciergebot/internal/cache"
	"conciergebot/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store, err := cache.NewInMemoryCache(time.Minute, 8)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewClient(srv.URL, "service-token", 5*time.Second, store, zap.NewNop())
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "user_id": 1})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return raw
}

func TestFetchUserNotFoundIsDistinct(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/42/", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found."}`))
	})

	_, res := c.User(context.Background(), 42, "")
	assert.True(t, res.NotFound())
	assert.False(t, res.OK())
	assert.False(t, res.Conflict())
	var remote *apperrors.RemoteError
	require.ErrorAs(t, res.Err, &remote)
	assert.Equal(t, "Not found.", remote.Detail)
}

func TestFetchUserReturnsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"id":42,"name":"Анна","group":"designer","phone":"+79990000000","token":"abc"}`))
	})

	user, res := c.User(context.Background(), 42, "")
	require.True(t, res.OK())
	assert.Equal(t, "abc", res.AuthToken)
	assert.Equal(t, "Анна", user.Name)
}

func TestNetworkErrorNeverEscapes(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", time.Second, nil, zap.NewNop())
	res := c.Fetch(context.Background(), "api/categories", nil)
	assert.False(t, res.OK())
	assert.Error(t, res.Err)
	assert.Nil(t, res.Data)
	assert.Zero(t, res.StatusCode)
}

func TestConflictDetection(t *testing.T) {
	assert.True(t, Result{StatusCode: http.StatusNotModified}.Conflict())
	assert.True(t, Result{StatusCode: http.StatusConflict}.Conflict())
	assert.True(t, Result{StatusCode: http.StatusBadRequest, Data: json.RawMessage(`{"conflict":"already rated"}`)}.Conflict())
	assert.True(t, Result{StatusCode: http.StatusForbidden, Data: json.RawMessage(`{"conflict":true}`)}.Conflict())
	assert.False(t, Result{StatusCode: http.StatusOK, Data: json.RawMessage(`{"id":1}`)}.Conflict())
	assert.False(t, Result{StatusCode: http.StatusOK, Data: json.RawMessage(`[1,2]`)}.Conflict())
}

func TestConflictIgnoresEmptyMarkerAndSuccess(t *testing.T) {
	assert.False(t, Result{StatusCode: http.StatusOK, Data: json.RawMessage(`{"id":1,"conflict":null}`)}.Conflict())
	assert.False(t, Result{StatusCode: http.StatusCreated, Data: json.RawMessage(`{"conflict":"already rated"}`)}.Conflict())
	assert.False(t, Result{StatusCode: http.StatusBadRequest, Data: json.RawMessage(`{"conflict": null, "detail":"bad"}`)}.Conflict())
	assert.False(t, Result{StatusCode: http.StatusBadRequest, Data: json.RawMessage(`{"conflict":""}`)}.Conflict())

	res := Result{StatusCode: http.StatusOK, Data: json.RawMessage(`{"id":1,"conflict":null}`)}
	assert.True(t, res.OK())
}

func TestDetailFromFieldErrors(t *testing.T) {
	res := Result{StatusCode: 400, Data: json.RawMessage(`{"price":["must be positive"],"title":["too short"]}`)}
	assert.Equal(t, "price: must be positive; title: too short", res.Detail())
}

func TestCatalogIsCached(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/api/categories/", r.URL.Path)
		_, _ = w.Write([]byte(`{"count":2,"results":[{"id":1,"name":"Мебель"},{"id":2,"name":"Свет"}]}`))
	})

	for i := 0; i < 3; i++ {
		items, err := c.Categories(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []models.Category{{ID: 1, Name: "Мебель"}, {ID: 2, Name: "Свет"}}, items)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	c.InvalidateCatalogs()
	_, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCatalogAcceptsPlainArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"code":"econom","name":"Эконом"}]`))
	})
	items, err := c.Segments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Segment{{Code: "econom", Name: "Эконом"}}, items)
}

func TestCatalogErrorIsReturned(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Regions(context.Background())
	assert.Error(t, err)
}

func TestBearerPrefersLiveUserToken(t *testing.T) {
	live := signed(t, time.Now().Add(time.Hour))
	expired := signed(t, time.Now().Add(-time.Hour))

	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	})
	ctx := context.Background()
	c.Do(ctx, http.MethodGet, "api/orders/1", nil, nil, live)
	c.Do(ctx, http.MethodGet, "api/orders/1", nil, nil, expired)
	c.Do(ctx, http.MethodGet, "api/orders/1", nil, nil, "opaque-drf-token")

	assert.Equal(t, []string{"Bearer " + live, "Bearer service-token", "Bearer opaque-drf-token"}, got)
	assert.True(t, TokenExpired(expired))
	assert.False(t, TokenExpired(live))
}

func TestCreateOrderValidatesBeforeSending(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})
	_, res := c.CreateOrder(context.Background(), models.Order{Title: "x"}, "")
	var ve *apperrors.ValidationError
	assert.ErrorAs(t, res.Err, &ve)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestCreateAndUpdateOrder(t *testing.T) {
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var order models.Order
		require.NoError(t, json.Unmarshal(body, &order))
		order.ID = 9
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(order)
	})
	order := models.Order{OwnerID: 1, Title: "Кухня", Description: "Кухня из массива дуба", Price: 1000, ExpireDate: "2030-01-02"}

	created, res := c.CreateOrder(context.Background(), order, "")
	require.True(t, res.OK())
	assert.Equal(t, int64(9), created.ID)

	_, res = c.UpdateOrder(context.Background(), created.ID, order, "")
	require.True(t, res.OK())
	assert.Equal(t, []string{"POST /api/orders/", "PATCH /api/orders/9/"}, methods)
}

func TestSearchUsersBuildsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "мебель на заказ", q.Get("search"))
		assert.Equal(t, "3", q.Get("category"))
		assert.Equal(t, "2", q.Get("page"))
		_, _ = w.Write([]byte(`{"count":7,"next":null,"previous":null,"results":[{"id":5,"name":"Олег"}]}`))
	})
	page, res := c.SearchUsers(context.Background(), models.SearchFilter{Keywords: []string{"мебель", "на заказ"}, Category: "3"}, 2, "")
	require.True(t, res.OK())
	assert.Equal(t, 7, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(5), page.Results[0].ID)
}

func TestOrdersPlainList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("owner"))
		_, _ = w.Write([]byte(`[{"id":1,"title":"A"},{"id":2,"title":"B"}]`))
	})
	page, res := c.Orders(context.Background(), OrdersQuery{Owner: 12}, "")
	require.True(t, res.OK())
	assert.Equal(t, 2, page.Count)
	assert.Len(t, page.Results, 2)
}
