package http

import (
	"context"
	"net/http"
	"time"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/snelstart"
)

// TokenMonitor exposes the upstream session token state.
type TokenMonitor interface {
	Status() snelstart.TokenStatus
	Refresh(ctx context.Context) error
}

type SessionHandler struct {
	carts   CartService
	tokens  TokenMonitor
	timeout time.Duration
}

func NewSessionHandler(carts CartService, tokens TokenMonitor, timeout time.Duration) *SessionHandler {
	return &SessionHandler{
		carts:   carts,
		tokens:  tokens,
		timeout: timeout,
	}
}

// Login restores the user's persisted cart and returns it. A user without a
// persisted cart gets an empty one.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cart, err := h.carts.RestoreCart(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to restore cart")
		return
	}

	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: cart, TotalAmount: cart.TotalAmount()})
}

// Logout saves the user's working cart so a later login finds it again.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.PersistCart(ctx, userID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to persist cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type sessionStatusDTO struct {
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Status reports whether the upstream token is still usable, so the client
// can warn before a long-running edit hits an expired session.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.tokens.Status()
	respondJSON(w, http.StatusOK, sessionStatusDTO{
		Valid:     status.Valid,
		ExpiresAt: status.ExpiresAt,
	})
}

// Refresh forces a new upstream token exchange.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.tokens.Refresh(ctx); err != nil {
		respondError(w, http.StatusBadGateway, "token_refresh_failed", "failed to refresh upstream session")
		return
	}

	h.Status(w, r)
}
