package snelstart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStack wires a TokenSource and Client against one httptest server.
func newTestStack(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := NewTokenSource(srv.URL+"/oauth/token", "integration-key-123", 5*time.Second)
	client := NewClient(srv.URL, tokens, 5*time.Second)
	return client, srv
}

func serveToken(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": "token-abc",
		"expires_in":   3600,
	})
}

func TestCreateOrder_Success(t *testing.T) {
	var gotKey, gotAuth string
	var gotBody domain.OrderRequest

	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(w)
			return
		}

		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/verkooporders", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(Order{ID: "order-1", CustomerID: gotBody.CustomerID, TotalAmount: 25.00})
	})

	req := &domain.OrderRequest{
		CustomerID: "cust-1",
		Lines: []domain.OrderLine{
			{ProductID: "p1", Quantity: 2, UnitPrice: 10.00, BasePrice: 10.00, TotalPrice: 20.00},
			{ProductID: "p2", Quantity: 1, UnitPrice: 5.00, BasePrice: 5.00, TotalPrice: 5.00},
		},
	}

	order, err := client.CreateOrder(context.Background(), "key-123", req)
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "key-123", gotKey)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, "cust-1", gotBody.CustomerID)
	assert.InDelta(t, 25.00, gotBody.TotalAmount(), 1e-9)
}

func TestCreateOrder_ServerMessageVerbatim(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(w)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "customer is blocked for orders"})
	})

	_, err := client.CreateOrder(context.Background(), "key-1", &domain.OrderRequest{CustomerID: "cust-1"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "customer is blocked for orders", apiErr.Message)
}

func TestCreateOrder_GenericMessageWhenBodyUnusable(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(w)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream broke</html>"))
	})

	_, err := client.CreateOrder(context.Background(), "key-1", &domain.OrderRequest{CustomerID: "cust-1"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestCreateOrder_ExpiredSessionSurfacesAsAPIError(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(w)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "access token expired"})
	})

	_, err := client.CreateOrder(context.Background(), "key-1", &domain.OrderRequest{CustomerID: "cust-1"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "access token expired", apiErr.Message)
}

func TestListOrders_FiltersByCustomer(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(w)
			return
		}
		assert.Equal(t, "cust-9", r.URL.Query().Get("customerId"))
		json.NewEncoder(w).Encode([]Order{{ID: "o1"}, {ID: "o2"}})
	})

	orders, err := client.ListOrders(context.Background(), "cust-9")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestGetOrder(t *testing.T) {
	client, _ := newTestStack(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			serveToken(w)
			return
		}
		assert.Equal(t, "/v2/verkooporders/o7", r.URL.Path)
		json.NewEncoder(w).Encode(Order{ID: "o7", TotalAmount: 12.50})
	})

	order, err := client.GetOrder(context.Background(), "o7")
	require.NoError(t, err)
	assert.Equal(t, "o7", order.ID)
}
