package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/pricing"
)

// CartService is the slice of the cart store the handlers need. Consumers
// define this interface, not the implementation.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, item domain.LineItem) error
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	UpdateUnitPrice(ctx context.Context, userID, productID string, price float64) error
	ResetToOriginalPrice(ctx context.Context, userID, productID string) error
	RemoveItem(ctx context.Context, userID, productID string) error
	SetCustomer(ctx context.Context, userID string, customerID *string) error
	ClearCart(ctx context.Context, userID string) error
	RestoreCart(ctx context.Context, userID string) (*domain.Cart, error)
	PersistCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	SKU           string  `json:"sku"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	PurchasePrice float64 `json:"purchase_price"`
	VATPercentage float64 `json:"vat_percentage"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	CoverImageURL string  `json:"cover_image_url"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type UpdatePriceRequestDTO struct {
	Price float64 `json:"price"`
}

// ValidatePriceRequestDTO carries the raw user input, which may be empty or
// non-numeric; such input is reported illegal, not rejected as a bad request.
type ValidatePriceRequestDTO struct {
	Price string `json:"price"`
}

type ApplyDiscountRequestDTO struct {
	Percent float64 `json:"percent"`
}

type SetCustomerRequestDTO struct {
	CustomerID *string `json:"customer_id"`
}

type CartResponseDTO struct {
	*domain.Cart
	TotalAmount float64 `json:"total_amount"`
}

type ErrorResponse struct {
	Error      string                  `json:"error"`
	Code       string                  `json:"code,omitempty"`
	Floor      *float64                `json:"floor,omitempty"`
	Violations []pricing.LineViolation `json:"violations,omitempty"`
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, userID string) {
	cart, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: cart, TotalAmount: cart.TotalAmount()})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	h.respondCart(ctx, w, userID)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity < 1 || req.Quantity > 999 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 999")
		return
	}
	if req.UnitPrice < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "unit_price must not be negative")
		return
	}

	item := domain.LineItem{
		ProductID:     req.ProductID,
		ProductName:   req.ProductName,
		SKU:           req.SKU,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		PurchasePrice: req.PurchasePrice,
		VATPercentage: req.VATPercentage,
		UnitOfMeasure: req.UnitOfMeasure,
		CoverImageURL: req.CoverImageURL,
	}

	if err := h.carts.AddItem(ctx, userID, item); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add item")
		return
	}

	h.respondCart(ctx, w, userID)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// zero and below remove the line, so any integer is acceptable here
	if err := h.carts.UpdateQuantity(ctx, userID, productID, req.Quantity); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update quantity")
		return
	}

	h.respondCart(ctx, w, userID)
}

// UpdatePrice validates against the price floor before storing the override.
// The floor and the exact violation come back in the response body so the UI
// can render a precise message.
func (h *CartHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")

	var req UpdatePriceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	item := cart.Item(productID)
	if item == nil {
		respondError(w, http.StatusNotFound, "item_not_found", "product is not in the cart")
		return
	}

	verdict := pricing.Validate(req.Price, item.UnitPrice, item.PurchasePrice)
	if !verdict.Legal {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: "price is below the minimum allowed price",
			Code:  "price_below_floor",
			Floor: &verdict.Floor,
		})
		return
	}

	if err := h.carts.UpdateUnitPrice(ctx, userID, productID, req.Price); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update price")
		return
	}

	h.respondCart(ctx, w, userID)
}

// ApplyDiscount stores a percentage discount off the base price as a price
// override, subject to the same floor as a directly typed price.
func (h *CartHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")

	var req ApplyDiscountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	item := cart.Item(productID)
	if item == nil {
		respondError(w, http.StatusNotFound, "item_not_found", "product is not in the cart")
		return
	}

	verdict := pricing.ValidateDiscount(req.Percent, item.UnitPrice, item.PurchasePrice)
	if !verdict.Legal {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: "discount takes the price below the minimum allowed price",
			Code:  "price_below_floor",
			Floor: &verdict.Floor,
		})
		return
	}

	price := item.UnitPrice * (1 - req.Percent/100)
	if err := h.carts.UpdateUnitPrice(ctx, userID, productID, price); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to apply discount")
		return
	}

	h.respondCart(ctx, w, userID)
}

// ValidatePrice checks raw input without mutating anything; meant to be
// called on every keystroke of the price field.
func (h *CartHandler) ValidatePrice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")

	var req ValidatePriceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	item := cart.Item(productID)
	if item == nil {
		respondError(w, http.StatusNotFound, "item_not_found", "product is not in the cart")
		return
	}

	respondJSON(w, http.StatusOK, pricing.ValidateInput(req.Price, item.UnitPrice, item.PurchasePrice))
}

func (h *CartHandler) ResetPrice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")

	if err := h.carts.ResetToOriginalPrice(ctx, userID, productID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to reset price")
		return
	}

	h.respondCart(ctx, w, userID)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")

	if err := h.carts.RemoveItem(ctx, userID, productID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to remove item")
		return
	}

	h.respondCart(ctx, w, userID)
}

func (h *CartHandler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req SetCustomerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.SetCustomer(ctx, userID, req.CustomerID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to set customer")
		return
	}

	h.respondCart(ctx, w, userID)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.ClearCart(ctx, userID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}

	h.respondCart(ctx, w, userID)
}

func getUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value("user_id").(string); ok {
		return userID
	}
	return ""
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value("request_id").(string); ok {
		return requestID
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
