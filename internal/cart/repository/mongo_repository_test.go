package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fjod/go_storefront/internal/domain"
)

func setupTestDB(t *testing.T) (*MongoRepository, func()) {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestGetCart_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	cart, err := repo.GetCart(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, domain.ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestGetOrCreateCart_CreatesOnce(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	first, err := repo.GetOrCreateCart(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, "user123", first.UserID)
	assert.Empty(t, first.Items)
	assert.True(t, first.TotalPrice.IsZero())

	second, err := repo.GetOrCreateCart(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateCart_ConcurrentCallersShareCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cart, err := repo.GetOrCreateCart(ctx, "racer")
			if assert.NoError(t, err) {
				ids[i] = cart.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	count, err := repo.collection.CountDocuments(ctx, bson.M{"user_id": "racer"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSaveCart_RoundTripsDecimals(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart, err := repo.GetOrCreateCart(ctx, "user123")
	require.NoError(t, err)

	now := time.Now()
	_, err = cart.AddItem("p1", 3, decimal.RequireFromString("189.99"), now)
	require.NoError(t, err)
	_, err = cart.AddItem("p2", 1, decimal.RequireFromString("0.10"), now)
	require.NoError(t, err)
	require.NoError(t, repo.SaveCart(ctx, cart))
	assert.Equal(t, int64(1), cart.Version)

	stored, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.RequireFromString("189.99")))
	assert.Equal(t, 3, stored.Items[0].Quantity)
	assert.True(t, stored.TotalPrice.Equal(decimal.RequireFromString("570.07")), "got %s", stored.TotalPrice)
	assert.Equal(t, int64(1), stored.Version)
}

func TestSaveCart_PersistsSettledOrders(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cart, err := repo.GetOrCreateCart(ctx, "buyer")
	require.NoError(t, err)
	now := time.Now()
	item, err := cart.AddItem("p1", 5, decimal.RequireFromString("20"), now)
	require.NoError(t, err)
	require.NoError(t, repo.SaveCart(ctx, cart))

	require.True(t, cart.SettleOrder("ORD1", []domain.OrderedLine{{ItemID: item.ID, Quantity: 2}}, now))
	require.NoError(t, repo.SaveCart(ctx, cart))

	stored, err := repo.GetCart(ctx, "buyer")
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD1"}, stored.SettledOrders)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 3, stored.Items[0].Quantity)
	assert.False(t, stored.SettleOrder("ORD1", []domain.OrderedLine{{ItemID: item.ID, Quantity: 2}}, now))
}

func TestSaveCart_StaleVersionConflicts(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.GetOrCreateCart(ctx, "user123")
	require.NoError(t, err)

	a, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	b, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)

	_, err = a.AddItem("p1", 1, decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.SaveCart(ctx, a))

	_, err = b.AddItem("p2", 1, decimal.NewFromInt(20), time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, repo.SaveCart(ctx, b), ErrVersionConflict)

	stored, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "p1", stored.Items[0].ProductID)
}
