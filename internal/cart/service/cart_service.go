package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_storefront/internal/cart/cache"
	"github.com/fjod/go_storefront/internal/cart/repository"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/product"
)

const (
	maxSaveAttempts     = 5
	cacheInvalidateWait = time.Second
)

// ErrConcurrentUpdate is returned when a cart kept changing underneath a
// mutation for every attempt.
var ErrConcurrentUpdate = errors.New("cart is being modified concurrently")

var tracer = otel.Tracer("github.com/fjod/go_storefront/internal/cart/service")

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	products product.Getter
	locks    *keyedMutex
	sfg      singleflight.Group // Prevents cache stampede
	now      func() time.Time
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, products product.Getter) *CartService {
	return &CartService{
		repo:     repo,
		cache:    cache,
		products: products,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// GetCart returns the caller's cart, creating an empty one on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.CartView, error) {
	ctx, span := tracer.Start(ctx, "CartService.GetCart", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.WarnContext(ctx, "cache get failed", "user_id", userID, "error", err)
		}

		cart, err = s.repo.GetOrCreateCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		if err := s.cache.Set(ctx, userID, cart); err != nil {
			slog.WarnContext(ctx, "cache set failed", "user_id", userID, "error", err)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return s.Resolve(ctx, v.(*domain.Cart))
}

// LoadForCheckout reads the cart from storage, bypassing the cache, so the
// version it carries is the stored one.
func (s *CartService) LoadForCheckout(ctx context.Context, userID string) (*domain.CartView, error) {
	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, cart)
}

func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartView, error) {
	ctx, span := tracer.Start(ctx, "CartService.AddItem", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("product.id", productID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityTooLarge
	}
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.mutate(ctx, userID, true, func(c *domain.Cart, now time.Time) (bool, error) {
		_, err := c.AddItem(p.ID, quantity, p.Price, now)
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, cart)
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartView, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityTooLarge
	}

	cart, err := s.mutate(ctx, userID, false, func(c *domain.Cart, now time.Time) (bool, error) {
		err := c.SetQuantity(itemID, quantity, now)
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, cart)
}

// RemoveItem drops a line. An unknown itemID leaves the cart as is.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) (*domain.CartView, error) {
	cart, err := s.mutate(ctx, userID, false, func(c *domain.Cart, now time.Time) (bool, error) {
		return c.RemoveItem(itemID, now), nil
	})
	if err != nil {
		return nil, err
	}
	return s.Resolve(ctx, cart)
}

func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.CartView, error) {
	cart, err := s.mutate(ctx, userID, false, func(c *domain.Cart, now time.Time) (bool, error) {
		if c.IsEmpty() {
			return false, nil
		}
		c.Clear(now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &domain.CartView{Cart: cart, Lines: []domain.CartLine{}}, nil
}

// RemoveOrderedItems takes the quantities of an order off the buyer's cart.
// Replaying the same order changes nothing and a missing cart is not an error.
func (s *CartService) RemoveOrderedItems(ctx context.Context, userID, orderNumber string, lines []domain.OrderedLine) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := s.mutate(ctx, userID, false, func(c *domain.Cart, now time.Time) (bool, error) {
		return c.SettleOrder(orderNumber, lines, now), nil
	})
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil
	}
	return err
}

type mutation func(c *domain.Cart, now time.Time) (changed bool, err error)

// mutate applies fn to the stored cart under the per-user lock and saves it
// with compare-and-swap, retrying when another writer got there first.
func (s *CartService) mutate(ctx context.Context, userID string, create bool, fn mutation) (*domain.Cart, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		var (
			cart *domain.Cart
			err  error
		)
		if create {
			cart, err = s.repo.GetOrCreateCart(ctx, userID)
		} else {
			cart, err = s.repo.GetCart(ctx, userID)
		}
		if err != nil {
			return nil, err
		}

		changed, err := fn(cart, s.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return cart, nil
		}

		err = s.repo.SaveCart(ctx, cart)
		if errors.Is(err, repository.ErrVersionConflict) {
			slog.DebugContext(ctx, "cart version conflict, retrying", "user_id", userID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.invalidateCache(ctx, userID, cart.Version)
		return cart, nil
	}

	return nil, fmt.Errorf("save cart for user %s: %w", userID, ErrConcurrentUpdate)
}

func (s *CartService) invalidateCache(ctx context.Context, userID string, version int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheInvalidateWait)
	defer cancel()
	if err := s.cache.Invalidate(ctx, userID, version); err != nil {
		slog.WarnContext(ctx, "cache invalidate failed", "user_id", userID, "error", err)
	}
}

// Resolve looks up the live product of every line concurrently. Products
// that left the catalog resolve to nil.
func (s *CartService) Resolve(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	ids := make(map[string]struct{}, len(cart.Items))
	for _, item := range cart.Items {
		ids[item.ProductID] = struct{}{}
	}

	products, err := product.ResolveAll(ctx, s.products, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, domain.CartLine{Item: item, Product: products[item.ProductID]})
	}
	return &domain.CartView{Cart: cart, Lines: lines}, nil
}
