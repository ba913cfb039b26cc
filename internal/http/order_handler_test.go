package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/cache"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/pricing"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/snelstart"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/submission"
)

type mockSubmitter struct {
	result *submission.Result
	err    error
	calls  int
}

func (m *mockSubmitter) Submit(ctx context.Context, userID string) (*submission.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockOrdersAPI struct {
	orders []snelstart.Order
	order  *snelstart.Order
	err    error
	calls  int
}

func (m *mockOrdersAPI) ListOrders(ctx context.Context, customerID string) ([]snelstart.Order, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.orders, nil
}

func (m *mockOrdersAPI) GetOrder(ctx context.Context, orderID string) (*snelstart.Order, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

type mockViewCache struct {
	views map[string][]byte
}

func newMockViewCache() *mockViewCache {
	return &mockViewCache{views: make(map[string][]byte)}
}

func (m *mockViewCache) GetView(ctx context.Context, key string) ([]byte, error) {
	if data, ok := m.views[key]; ok {
		return data, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *mockViewCache) SetView(ctx context.Context, key string, payload []byte) error {
	m.views[key] = payload
	return nil
}

func (m *mockViewCache) DeleteOrderViews(ctx context.Context, userID string) error {
	m.views = make(map[string][]byte)
	return nil
}

func doOrderRequest(t *testing.T, handlerFn http.HandlerFunc, method, target string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), "user_id", "user-1")

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)

	rec := httptest.NewRecorder()
	handlerFn(rec, req.WithContext(ctx))
	return rec
}

func TestSubmit_Success(t *testing.T) {
	sub := &mockSubmitter{result: &submission.Result{
		OrderID:        "ord-1",
		OrderNumber:    "VK-2026-001",
		IdempotencyKey: "key-1",
		TotalAmount:    25.00,
	}}
	h := NewOrderHandler(sub, &mockOrdersAPI{}, newMockViewCache(), 5*time.Second)

	rec := doOrderRequest(t, h.Submit, http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var result submission.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "ord-1", result.OrderID)
	assert.Equal(t, 1, sub.calls)
}

func TestSubmit_EmptyCart(t *testing.T) {
	sub := &mockSubmitter{err: submission.ErrEmptyCart}
	h := NewOrderHandler(sub, &mockOrdersAPI{}, newMockViewCache(), 5*time.Second)

	rec := doOrderRequest(t, h.Submit, http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "empty_cart", resp.Code)
}

func TestSubmit_NoCustomer(t *testing.T) {
	sub := &mockSubmitter{err: submission.ErrNoCustomer}
	h := NewOrderHandler(sub, &mockOrdersAPI{}, newMockViewCache(), 5*time.Second)

	rec := doOrderRequest(t, h.Submit, http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "no_customer", resp.Code)
}

func TestSubmit_PriceViolations(t *testing.T) {
	sub := &mockSubmitter{err: &submission.PriceViolationError{
		Violations: []pricing.LineViolation{
			{ProductID: "p1", ProductName: "Widget", EffectivePrice: 9.00, Floor: 9.50},
		},
	}}
	h := NewOrderHandler(sub, &mockOrdersAPI{}, newMockViewCache(), 5*time.Second)

	rec := doOrderRequest(t, h.Submit, http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "price_below_floor", resp.Code)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, "p1", resp.Violations[0].ProductID)
	assert.InDelta(t, 9.50, resp.Violations[0].Floor, 1e-9)
}

func TestSubmit_UpstreamErrorVerbatim(t *testing.T) {
	sub := &mockSubmitter{err: &snelstart.APIError{
		Status:  http.StatusUnprocessableEntity,
		Message: "Relatie is geblokkeerd",
	}}
	h := NewOrderHandler(sub, &mockOrdersAPI{}, newMockViewCache(), 5*time.Second)

	rec := doOrderRequest(t, h.Submit, http.MethodPost, "/orders", nil)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "upstream_error", resp.Code)
	assert.Equal(t, "Relatie is geblokkeerd", resp.Error)
}

func TestListOrders_CachesUpstreamResponse(t *testing.T) {
	api := &mockOrdersAPI{orders: []snelstart.Order{{ID: "ord-1", Number: "VK-2026-001"}}}
	views := newMockViewCache()
	h := NewOrderHandler(&mockSubmitter{}, api, views, 5*time.Second)

	rec := doOrderRequest(t, h.List, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.calls)

	// second call is served from cache
	rec = doOrderRequest(t, h.List, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.calls)

	var orders []snelstart.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-1", orders[0].ID)
}

func TestGetOrder_NotFound(t *testing.T) {
	api := &mockOrdersAPI{err: &snelstart.APIError{Status: http.StatusNotFound, Message: "order not found"}}
	h := NewOrderHandler(&mockSubmitter{}, api, newMockViewCache(), 5*time.Second)

	rec := doOrderRequest(t, h.Get, http.MethodGet, "/orders/ord-x", map[string]string{"order_id": "ord-x"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_Cached(t *testing.T) {
	api := &mockOrdersAPI{order: &snelstart.Order{ID: "ord-1"}}
	views := newMockViewCache()
	h := NewOrderHandler(&mockSubmitter{}, api, views, 5*time.Second)

	params := map[string]string{"order_id": "ord-1"}
	rec := doOrderRequest(t, h.Get, http.MethodGet, "/orders/ord-1", params)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doOrderRequest(t, h.Get, http.MethodGet, "/orders/ord-1", params)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.calls)
}
