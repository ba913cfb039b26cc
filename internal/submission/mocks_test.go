package submission

import (
	"context"
	"sync"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/events"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/snelstart"
)

// MockRepository implements RepoInterface for testing
type MockRepository struct {
	mu      sync.Mutex
	pending map[string]*domain.Submission // by user id
	all     []*domain.Submission

	CreateErr error
	GetErr    error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{pending: make(map[string]*domain.Submission)}
}

func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) RunMigrations(*Credentials) error {
	return nil
}

func (m *MockRepository) CreatePending(_ context.Context, sub *domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	cp := *sub
	m.pending[sub.UserID] = &cp
	m.all = append(m.all, &cp)
	return nil
}

func (m *MockRepository) GetPendingByUser(_ context.Context, userID string) (*domain.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	sub, ok := m.pending[userID]
	if !ok {
		return nil, ErrNoPendingSubmission
	}
	cp := *sub
	return &cp, nil
}

func (m *MockRepository) MarkCompleted(_ context.Context, id, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.all {
		if sub.ID == id {
			sub.Status = domain.SubmissionStatusCompleted
			sub.OrderID = &orderID
			delete(m.pending, sub.UserID)
		}
	}
	return nil
}

func (m *MockRepository) RecordFailure(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.all {
		if sub.ID == id {
			sub.LastError = &message
		}
	}
	return nil
}

func (m *MockRepository) SupersedePending(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.all {
		if sub.ID == id {
			sub.Status = domain.SubmissionStatusSuperseded
			delete(m.pending, sub.UserID)
		}
	}
	return nil
}

// MockCartStore implements CartStore for testing
type MockCartStore struct {
	mu      sync.Mutex
	cart    *domain.Cart
	GetErr  error
	Cleared int
}

func (m *MockCartStore) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.cart == nil {
		return &domain.Cart{UserID: userID}, nil
	}
	return m.cart, nil
}

func (m *MockCartStore) ClearCart(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cart = nil
	m.Cleared++
	return nil
}

// MockOrderAPI implements OrderAPI for testing; it records every idempotency
// key it is called with.
type MockOrderAPI struct {
	mu       sync.Mutex
	Keys     []string
	Requests []*domain.OrderRequest
	Order    *snelstart.Order
	Err      error
}

func (m *MockOrderAPI) CreateOrder(_ context.Context, idempotencyKey string, order *domain.OrderRequest) (*snelstart.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, idempotencyKey)
	m.Requests = append(m.Requests, order)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Order, nil
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []events.OrderSubmittedEvent
	Err    error
}

func (m *MockPublisher) PublishOrderSubmitted(_ context.Context, event events.OrderSubmittedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return m.Err
}

type MockViews struct {
	mu          sync.Mutex
	Invalidated []string
	Err         error
}

func (m *MockViews) DeleteOrderViews(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated = append(m.Invalidated, userID)
	return m.Err
}
