// Package cache keeps recently read carts in Redis in front of MongoDB.
// Every cart mutation drops the owner's entry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_storefront/internal/domain"
)

// ErrCacheMiss means no entry exists for the user.
var ErrCacheMiss = errors.New("cache miss")

// CartCache is the read-through cache used by the cart engine.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// Set stores cart unless a newer version was invalidated meanwhile.
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	// Invalidate drops the entry and remembers version as the oldest one
	// Set may store from now on.
	Invalidate(ctx context.Context, userID string, version int64) error
}

var _ CartCache = (*RedisCache)(nil)

const maxJitter = 5 * time.Minute

// KEYS[1] entry, KEYS[2] floor; ARGV[1] payload, ARGV[2] version, ARGV[3] ttl ms
var setScript = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '-1')
if tonumber(ARGV[2]) < floor then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// KEYS[1] entry, KEYS[2] floor; ARGV[1] version, ARGV[2] ttl ms
var invalidateScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
local floor = tonumber(redis.call('GET', KEYS[2]) or '-1')
if tonumber(ARGV[1]) > floor then
	redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
end
return 1
`)

type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, entryKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode cached cart: %w", err)
	}
	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}

	// jitter spreads expiry so hot carts do not all miss together
	ttl := r.baseTTL + rand.N(maxJitter)
	keys := []string{entryKey(userID), floorKey(userID)}
	err = setScript.Run(ctx, r.client, keys, data, strconv.FormatInt(cart.Version, 10), ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context, userID string, version int64) error {
	// the floor must outlive any entry a slow reader could still write
	floorTTL := r.baseTTL + maxJitter
	keys := []string{entryKey(userID), floorKey(userID)}
	if err := invalidateScript.Run(ctx, r.client, keys, strconv.FormatInt(version, 10), floorTTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("redis invalidate cart: %w", err)
	}
	return nil
}

// Both keys share a hash tag so the scripts stay single-slot on a cluster.
func entryKey(userID string) string {
	return fmt.Sprintf("storefront:{%s}:cart", userID)
}

func floorKey(userID string) string {
	return fmt.Sprintf("storefront:{%s}:cart-floor", userID)
}
