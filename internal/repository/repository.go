package repository

import (
	"context"
	"errors"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

// CartRepository defines the interface for durable cart storage, keyed by the
// authenticated user. Consumers define this interface, not the MongoDB
// implementation.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	AddItem(ctx context.Context, userID string, item domain.LineItem) error
	UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) error
	UpdateItemPrice(ctx context.Context, userID, productID string, price float64) error
	ResetItemPrice(ctx context.Context, userID, productID string) error
	RemoveItem(ctx context.Context, userID, productID string) error
	SetCustomer(ctx context.Context, userID string, customerID *string) error
	DeleteCart(ctx context.Context, userID string) error
}
