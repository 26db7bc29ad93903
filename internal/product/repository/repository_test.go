package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_storefront/internal/domain"
	db "github.com/fjod/go_storefront/internal/product/repository"
)

func setupTestDB(t *testing.T) *db.Repository {
	t.Helper()

	repo, err := db.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations())
	return repo
}

func TestListProducts_ReturnsSeededCatalog(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 6)

	// newest first
	assert.Equal(t, "Chuck Taylor All Star", products[0].Title)
	for i := 1; i < len(products); i++ {
		assert.False(t, products[i].CreatedAt.After(products[i-1].CreatedAt))
	}
}

func TestGetProduct_Found(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := repo.GetProduct(ctx, "665f1a2b3c4d5e6f70810003")
	require.NoError(t, err)
	assert.Equal(t, "Gel-Kayano 30", p.Title)
	assert.Equal(t, "ASICS", p.Brand)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("189.99")), "price %s", p.Price)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetProduct(context.Background(), "does-not-exist")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations())
}
