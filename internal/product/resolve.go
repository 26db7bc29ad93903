package product

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/fjod/go_storefront/internal/domain"
)

const maxResolveWorkers = 8

type Getter interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// ResolveAll fetches ids with bounded concurrency. Missing products map to
// nil; any other lookup error fails the whole call.
func ResolveAll(ctx context.Context, lookup Getter, ids map[string]struct{}) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	type result struct {
		id      string
		product *domain.Product
	}
	results := make(chan result, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxResolveWorkers)
	for id := range ids {
		g.Go(func() error {
			p, err := lookup.GetProduct(gctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				results <- result{id: id}
				return nil
			}
			if err != nil {
				return fmt.Errorf("resolve product %s: %w", id, err)
			}
			results <- result{id: id, product: p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)

	for r := range results {
		out[r.id] = r.product
	}
	return out, nil
}
