// Package snelstart is the client for the upstream SnelStart sales-order API.
// The API deduplicates order creations that present the same Idempotency-Key,
// which is the backstop for retries this process cannot observe.
package snelstart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// APIError carries the upstream status and message. The message is surfaced
// to the user verbatim.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("snelstart api error (status %d): %s", e.Status, e.Message)
}

// Order is the upstream representation of a created sales order.
type Order struct {
	ID          string             `json:"id"`
	Number      string             `json:"number"`
	CustomerID  string             `json:"customerId"`
	TotalAmount float64            `json:"totalAmount"`
	Lines       []domain.OrderLine `json:"items"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     *TokenSource
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL string, tokens *TokenSource, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:        "snelstart-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		tokens:     tokens,
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// CreateOrder submits one order creation carrying the idempotency key. The
// same key presented twice yields the same order upstream, never a duplicate.
func (c *Client) CreateOrder(ctx context.Context, idempotencyKey string, order *domain.OrderRequest) (*Order, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	data, err := c.do(ctx, http.MethodPost, "/v2/verkooporders", bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}

	var created Order
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("failed to decode created order: %w", err)
	}
	return &created, nil
}

func (c *Client) ListOrders(ctx context.Context, customerID string) ([]Order, error) {
	path := "/v2/verkooporders"
	if customerID != "" {
		path += "?customerId=" + customerID
	}

	data, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var orders []Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	data, err := c.do(ctx, http.MethodGet, "/v2/verkooporders/"+orderID, nil, nil)
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &order, nil
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, headers map[string]string) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return nil, toAPIError(resp.StatusCode, data)
		}

		return data, nil
	})
}

// toAPIError keeps the server-provided message when there is one.
func toAPIError(status int, body []byte) *APIError {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Message != "" {
			return &APIError{Status: status, Message: er.Message}
		}
		if er.Error != "" {
			return &APIError{Status: status, Message: er.Error}
		}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}
