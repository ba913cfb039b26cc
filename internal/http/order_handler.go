package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/cache"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/snelstart"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/submission"
)

// Submitter runs the order submission protocol for one user.
type Submitter interface {
	Submit(ctx context.Context, userID string) (*submission.Result, error)
}

// OrdersAPI reads orders from upstream for the cached views.
type OrdersAPI interface {
	ListOrders(ctx context.Context, customerID string) ([]snelstart.Order, error)
	GetOrder(ctx context.Context, orderID string) (*snelstart.Order, error)
}

type OrderHandler struct {
	submitter Submitter
	orders    OrdersAPI
	views     cache.OrderViewCache
	timeout   time.Duration
}

func NewOrderHandler(submitter Submitter, orders OrdersAPI, views cache.OrderViewCache, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		submitter: submitter,
		orders:    orders,
		views:     views,
		timeout:   timeout,
	}
}

// Submit turns the current cart into an order. Precondition failures come
// back as 422 with the offending floors; upstream failures preserve the cart
// and report the server's message verbatim.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	result, err := h.submitter.Submit(ctx, userID)
	if err != nil {
		handleSubmissionError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func handleSubmissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, submission.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, submission.ErrNoCustomer):
		respondError(w, http.StatusUnprocessableEntity, "no_customer", err.Error())
	default:
		var priceErr *submission.PriceViolationError
		if errors.As(err, &priceErr) {
			respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:      priceErr.Error(),
				Code:       "price_below_floor",
				Violations: priceErr.Violations,
			})
			return
		}

		var apiErr *snelstart.APIError
		if errors.As(err, &apiErr) {
			// server message verbatim; the cart is untouched and a retry
			// will reuse the same idempotency key
			respondError(w, http.StatusBadGateway, "upstream_error", apiErr.Message)
			return
		}

		respondError(w, http.StatusInternalServerError, "submission_failed", "order submission failed, your cart is unchanged")
	}
}

// List serves the order list from cache when possible; the cache entry is
// dropped by a successful submission.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	// filtered lists bypass the cache, the cached view is the unfiltered one
	customerID := r.URL.Query().Get("customer_id")

	key := cache.OrderListKey(userID)
	if customerID == "" {
		if data, err := h.views.GetView(ctx, key); err == nil {
			writeRawJSON(w, http.StatusOK, data)
			return
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("order view cache get error: %v", err)
		}
	}

	orders, err := h.orders.ListOrders(ctx, customerID)
	if err != nil {
		handleUpstreamError(w, err)
		return
	}

	payload, err := json.Marshal(orders)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to encode orders")
		return
	}

	if customerID == "" {
		if errSet := h.views.SetView(ctx, key, payload); errSet != nil {
			log.Printf("order view cache set error: %v", errSet)
		}
	}

	writeRawJSON(w, http.StatusOK, payload)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	key := cache.OrderDetailKey(userID, orderID)
	if data, err := h.views.GetView(ctx, key); err == nil {
		writeRawJSON(w, http.StatusOK, data)
		return
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("order view cache get error: %v", err)
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		handleUpstreamError(w, err)
		return
	}

	payload, err := json.Marshal(order)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to encode order")
		return
	}

	if errSet := h.views.SetView(ctx, key, payload); errSet != nil {
		log.Printf("order view cache set error: %v", errSet)
	}

	writeRawJSON(w, http.StatusOK, payload)
}

func handleUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *snelstart.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusNotFound {
			respondError(w, http.StatusNotFound, "not_found", apiErr.Message)
			return
		}
		respondError(w, http.StatusBadGateway, "upstream_error", apiErr.Message)
		return
	}
	respondError(w, http.StatusBadGateway, "upstream_error", "upstream request failed")
}

func writeRawJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}
