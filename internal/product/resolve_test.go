package product

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_storefront/internal/domain"
)

func TestResolveAll_LooksUpEachProductOnce(t *testing.T) {
	store := &mockStore{products: map[string]*domain.Product{
		"p1": {ID: "p1", Title: "Pegasus"},
		"p2": {ID: "p2", Title: "Ultraboost"},
	}}
	ids := map[string]struct{}{"p1": {}, "p2": {}, "gone": {}}

	out, err := ResolveAll(context.Background(), store, ids)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Nil(t, out["gone"])
	assert.Equal(t, "Ultraboost", out["p2"].Title)
	assert.Equal(t, 3, store.calls)
}

func TestResolveAll_Empty(t *testing.T) {
	out, err := ResolveAll(context.Background(), &mockStore{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResolveAll_FailsOnLookupError(t *testing.T) {
	store := &mockStore{err: errors.New("catalog unavailable")}

	_, err := ResolveAll(context.Background(), store, map[string]struct{}{"p1": {}})
	assert.ErrorContains(t, err, "catalog unavailable")
}
