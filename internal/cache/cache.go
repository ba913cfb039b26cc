package cache

import (
	"context"
	"errors"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

// OrderViewCache holds cached order-list and order-detail responses from the
// upstream API. Both are dropped when a submission succeeds so the user sees
// the new order immediately.
type OrderViewCache interface {
	GetView(ctx context.Context, key string) ([]byte, error)
	SetView(ctx context.Context, key string, payload []byte) error
	DeleteOrderViews(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
