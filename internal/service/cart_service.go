package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/cache"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/domain"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/repository"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidQuantity rejects adds that would create a line with less than one
// unit. Quantity edits are not rejected: zero and below mean "remove".
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// CartService owns the per-user cart: line items plus the selected customer.
// It is the single source of truth for quantities and prices; totals are
// always derived from the lines. Price-floor enforcement happens at the edge
// (the UI validates via the pricing package before calling UpdateUnitPrice).
type CartService struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:  repo,
		cache: cache,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) { // not found cart return empty cart
			return &domain.Cart{
				UserID:    userID,
				Items:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet // err from repo is not cache miss, return it
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), userID, cart)
			if errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return cart, nil // cart was not in cache, return it from repo
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem inserts a line or, when the product is already in the cart, adds the
// quantity to the existing line. The existing line's stored prices win.
func (s *CartService) AddItem(ctx context.Context, userID string, item domain.LineItem) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}

	errAdd := s.repo.AddItem(ctx, userID, item)
	if errAdd != nil {
		log.Printf("repo add item error: %v \n", errAdd)
		return errAdd
	}

	invalidateCache(s, userID)
	return nil
}

// UpdateQuantity replaces a line's quantity; zero or less removes the line.
// An unknown product is a no-op.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	errUpdate := s.repo.UpdateItemQuantity(ctx, userID, productID, quantity)
	if isMissing(errUpdate) {
		return nil
	}
	if errUpdate != nil {
		log.Printf("repo update item quantity error: %v \n", errUpdate)
		return errUpdate
	}

	invalidateCache(s, userID)
	return nil
}

// UpdateUnitPrice sets the line's custom price. The caller is expected to
// have validated the price against its floor first. Unknown product: no-op.
func (s *CartService) UpdateUnitPrice(ctx context.Context, userID, productID string, price float64) error {
	errUpdate := s.repo.UpdateItemPrice(ctx, userID, productID, price)
	if isMissing(errUpdate) {
		return nil
	}
	if errUpdate != nil {
		log.Printf("repo update item price error: %v \n", errUpdate)
		return errUpdate
	}

	invalidateCache(s, userID)
	return nil
}

// ResetToOriginalPrice clears the custom price so the line reverts to the
// catalog snapshot price. Unknown product: no-op.
func (s *CartService) ResetToOriginalPrice(ctx context.Context, userID, productID string) error {
	errReset := s.repo.ResetItemPrice(ctx, userID, productID)
	if isMissing(errReset) {
		return nil
	}
	if errReset != nil {
		log.Printf("repo reset item price error: %v \n", errReset)
		return errReset
	}

	invalidateCache(s, userID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	errRemove := s.repo.RemoveItem(ctx, userID, productID)
	if isMissing(errRemove) {
		return nil
	}
	if errRemove != nil {
		log.Printf("repo remove item error: %v \n", errRemove)
		return errRemove
	}

	invalidateCache(s, userID)
	return nil
}

// SetCustomer replaces the selected customer reference; nil clears it. The id
// is not validated against the customer directory here.
func (s *CartService) SetCustomer(ctx context.Context, userID string, customerID *string) error {
	errSet := s.repo.SetCustomer(ctx, userID, customerID)
	if errSet != nil {
		log.Printf("repo set customer error: %v \n", errSet)
		return errSet
	}

	invalidateCache(s, userID)
	return nil
}

// ClearCart empties the items and drops the customer selection. Used after a
// successful submission and on logout.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	errDelete := s.repo.DeleteCart(ctx, userID)
	if errDelete != nil && !errors.Is(errDelete, repository.ErrCartNotFound) {
		log.Printf("repo delete cart error: %v \n", errDelete)
		return errDelete
	}

	invalidateCache(s, userID)
	return nil
}

// RestoreCart is the login transition: read the user's saved cart straight
// from storage (skipping any stale cache) and warm the cache with it.
func (s *CartService) RestoreCart(ctx context.Context, userID string) (*domain.Cart, error) {
	invalidateCache(s, userID)

	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &domain.Cart{
			UserID:    userID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if errSet := s.cache.Set(ctx, userID, cart); errSet != nil {
		log.Printf("cache set error: %v \n", errSet)
	}
	return cart, nil
}

// PersistCart is the logout transition: make sure the user's cart is saved
// under their identity and drop the cached copy so the next login (possibly a
// different account) never sees it.
func (s *CartService) PersistCart(ctx context.Context, userID string) error {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		invalidateCache(s, userID)
		return nil
	}
	if err != nil {
		return err
	}

	if errUpsert := s.repo.UpsertCart(ctx, cart); errUpsert != nil {
		log.Printf("repo upsert cart error: %v \n", errUpsert)
		return errUpsert
	}

	invalidateCache(s, userID)
	return nil
}

func isMissing(err error) bool {
	return errors.Is(err, repository.ErrItemNotFound) || errors.Is(err, repository.ErrCartNotFound)
}

func invalidateCache(s *CartService, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	errInvalidate := s.cache.Delete(ctx, userID)
	if errInvalidate != nil {
		log.Printf("cache invalidate error: %v \n", errInvalidate)
	}
}
