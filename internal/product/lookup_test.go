package product

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
)

type mockStore struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	err      error
	calls    int
}

func (m *mockStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *mockStore) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func TestLookup_NotFoundDoesNotTrip(t *testing.T) {
	store := &mockStore{products: map[string]*domain.Product{}}
	l := NewLookup(store)

	for i := 0; i < 10; i++ {
		_, err := l.GetProduct(context.Background(), "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, "closed", l.State())
	assert.Equal(t, 10, store.calls)
}

func TestLookup_OpensAfterFailures(t *testing.T) {
	store := &mockStore{err: errors.New("disk I/O error")}
	l := NewLookup(store)

	for i := 0; i < 5; i++ {
		_, err := l.GetProduct(context.Background(), "p1")
		require.Error(t, err)
	}
	assert.Equal(t, "open", l.State())

	_, err := l.GetProduct(context.Background(), "p1")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 5, store.calls)
}

func TestLookup_ListProducts(t *testing.T) {
	store := &mockStore{products: map[string]*domain.Product{"p1": {ID: "p1"}}}
	l := NewLookup(store)

	products, err := l.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
}
