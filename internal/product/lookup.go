// Package product is the read-only catalog the cart and order engines
// consult for prices and display data.
package product

import (
	"context"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
)

type Store interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

// Lookup guards catalog reads with a circuit breaker. Not-found answers
// never trip it.
type Lookup struct {
	store Store
	one   *circuitbreaker.Breaker[*domain.Product]
	list  *circuitbreaker.Breaker[[]*domain.Product]
}

func NewLookup(store Store) *Lookup {
	settings := circuitbreaker.Settings{
		Name:                "product-catalog",
		ConsecutiveFailures: 5,
		OpenTimeout:         10 * time.Second,
		Ignore:              []error{domain.ErrNotFound, context.Canceled},
	}
	listSettings := settings
	listSettings.Name = "product-catalog-list"

	return &Lookup{
		store: store,
		one:   circuitbreaker.New[*domain.Product](settings),
		list:  circuitbreaker.New[[]*domain.Product](listSettings),
	}
}

func (l *Lookup) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return l.one.Execute(func() (*domain.Product, error) {
		return l.store.GetProduct(ctx, id)
	})
}

func (l *Lookup) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return l.list.Execute(func() ([]*domain.Product, error) {
		return l.store.ListProducts(ctx)
	})
}

func (l *Lookup) State() string {
	return l.one.State()
}
