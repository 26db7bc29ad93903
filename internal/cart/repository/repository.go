package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

// ErrVersionConflict means the cart changed since it was read.
var ErrVersionConflict = errors.New("cart version conflict")

// CartRepository stores one cart document per user.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// GetOrCreateCart inserts an empty cart when none exists. Concurrent
	// callers for the same user all observe the same cart.
	GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error)
	// SaveCart writes cart if its stored version still equals cart.Version,
	// then bumps cart.Version. Otherwise it returns ErrVersionConflict.
	SaveCart(ctx context.Context, cart *domain.Cart) error
}
