// Package submission turns the current cart into a durable upstream order
// exactly once. Every attempt is guarded by a client-generated idempotency
// key that is minted when the attempt is created and reused by retries; the
// upstream API deduplicates on the key across processes.
package submission

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/events"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/pricing"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/snelstart"
)

// CartStore is the slice of the cart service this protocol needs.
type CartStore interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

// OrderAPI creates orders upstream, deduplicating on the idempotency key.
type OrderAPI interface {
	CreateOrder(ctx context.Context, idempotencyKey string, order *domain.OrderRequest) (*snelstart.Order, error)
}

type EventPublisher interface {
	PublishOrderSubmitted(ctx context.Context, event events.OrderSubmittedEvent) error
}

// ViewInvalidator drops cached order views after a successful submission.
type ViewInvalidator interface {
	DeleteOrderViews(ctx context.Context, userID string) error
}

// Result reports a successful submission.
type Result struct {
	OrderID        string  `json:"order_id"`
	OrderNumber    string  `json:"order_number,omitempty"`
	IdempotencyKey string  `json:"idempotency_key"`
	TotalAmount    float64 `json:"total_amount"`
}

type Service struct {
	repo      RepoInterface
	carts     CartStore
	api       OrderAPI
	views     ViewInvalidator
	publisher EventPublisher

	mu    sync.Mutex
	locks map[string]*sync.Mutex // serializes submissions per user
}

func NewService(repo RepoInterface, carts CartStore, api OrderAPI, views ViewInvalidator, publisher EventPublisher) *Service {
	return &Service{
		repo:      repo,
		carts:     carts,
		api:       api,
		views:     views,
		publisher: publisher,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Submit runs the full protocol for one user: local preconditions, key
// selection, one upstream call, then success or failure side effects. The
// cart is untouched on failure; on success it is cleared together with the
// customer selection and any cached order views.
func (s *Service) Submit(ctx context.Context, userID string) (*Result, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	// Preconditions: no network traffic when any of these fail.
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if cart.CustomerID == nil || *cart.CustomerID == "" {
		return nil, ErrNoCustomer
	}
	if violations := pricing.ValidateCart(cart.Items); len(violations) > 0 {
		return nil, &PriceViolationError{Violations: violations}
	}

	attempt, err := s.attemptFor(ctx, userID, cart)
	if err != nil {
		return nil, err
	}

	request := BuildOrderRequest(attempt.IdempotencyKey, cart)

	order, err := s.api.CreateOrder(ctx, attempt.IdempotencyKey, request)
	if err != nil {
		// The attempt stays pending: a retry of this cart reuses the key.
		if errRecord := s.repo.RecordFailure(ctx, attempt.ID, err.Error()); errRecord != nil {
			log.Printf("failed to record submission failure: %v", errRecord)
		}
		return nil, err
	}

	// The order exists upstream from here on. Side-effect failures are
	// logged, never reported as a submission failure.
	if errMark := s.repo.MarkCompleted(ctx, attempt.ID, order.ID); errMark != nil {
		log.Printf("failed to mark submission completed: %v", errMark)
	}
	if errClear := s.carts.ClearCart(ctx, userID); errClear != nil {
		log.Printf("failed to clear cart after submission: %v", errClear)
	}
	if errViews := s.views.DeleteOrderViews(ctx, userID); errViews != nil {
		log.Printf("failed to invalidate order views: %v", errViews)
	}
	if errPublish := s.publisher.PublishOrderSubmitted(ctx, events.OrderSubmittedEvent{
		OrderID:     order.ID,
		UserID:      userID,
		CustomerID:  attempt.CustomerID,
		TotalAmount: request.TotalAmount(),
		SubmittedAt: time.Now(),
	}); errPublish != nil {
		log.Printf("failed to publish order-submitted event: %v", errPublish)
	}

	return &Result{
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		IdempotencyKey: attempt.IdempotencyKey,
		TotalAmount:    request.TotalAmount(),
	}, nil
}

// attemptFor reuses the pending attempt when the cart is unchanged since the
// failed try; a changed cart supersedes it and gets a fresh key. The key is
// never regenerated for the same cart state.
func (s *Service) attemptFor(ctx context.Context, userID string, cart *domain.Cart) (*domain.Submission, error) {
	fingerprint := Fingerprint(cart)

	pending, err := s.repo.GetPendingByUser(ctx, userID)
	if err == nil {
		if pending.CartFingerprint == fingerprint {
			return pending, nil
		}
		if errSupersede := s.repo.SupersedePending(ctx, pending.ID); errSupersede != nil {
			return nil, fmt.Errorf("failed to supersede stale attempt: %w", errSupersede)
		}
	} else if !errors.Is(err, ErrNoPendingSubmission) {
		return nil, fmt.Errorf("failed to look up pending attempt: %w", err)
	}

	attempt := &domain.Submission{
		ID:              uuid.NewString(),
		UserID:          userID,
		CustomerID:      *cart.CustomerID,
		IdempotencyKey:  uuid.NewString(),
		CartFingerprint: fingerprint,
		Status:          domain.SubmissionStatusPending,
	}
	if errCreate := s.repo.CreatePending(ctx, attempt); errCreate != nil {
		return nil, fmt.Errorf("failed to persist attempt: %w", errCreate)
	}
	return attempt, nil
}

// BuildOrderRequest materializes the cart into the wire payload, preserving
// both the effective and the original base price per line so the server can
// audit the discount.
func BuildOrderRequest(idempotencyKey string, cart *domain.Cart) *domain.OrderRequest {
	lines := make([]domain.OrderLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, domain.OrderLine{
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			SKU:           item.SKU,
			Quantity:      item.Quantity,
			UnitPrice:     item.EffectivePrice(),
			BasePrice:     item.UnitPrice,
			TotalPrice:    item.LineTotal(),
			VATPercentage: item.VATPercentage,
		})
	}

	return &domain.OrderRequest{
		IdempotencyKey: idempotencyKey,
		CustomerID:     *cart.CustomerID,
		Lines:          lines,
	}
}

// Fingerprint identifies one cart state: same items, quantities, effective
// prices and customer produce the same value.
func Fingerprint(cart *domain.Cart) string {
	type lineKey struct {
		ProductID string  `json:"p"`
		Quantity  int     `json:"q"`
		Price     float64 `json:"e"`
	}

	keys := make([]lineKey, 0, len(cart.Items))
	for _, item := range cart.Items {
		keys = append(keys, lineKey{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.EffectivePrice(),
		})
	}

	customer := ""
	if cart.CustomerID != nil {
		customer = *cart.CustomerID
	}

	payload, _ := json.Marshal(struct {
		Customer string    `json:"c"`
		Lines    []lineKey `json:"l"`
	}{Customer: customer, Lines: keys})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}
