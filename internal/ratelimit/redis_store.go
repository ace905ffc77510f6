package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore implements CounterStore against a shared Redis backend.
// Each server process holds its own client; Redis serializes the increments.
type RedisCounterStore struct {
	rdb       *redis.Client
	opTimeout time.Duration
}

// RedisStoreOption configures a RedisCounterStore.
type RedisStoreOption func(*RedisCounterStore)

// WithOpTimeout bounds each store call (default 500ms). A timed-out call
// surfaces as a store error, which the limiter treats as fail-open.
func WithOpTimeout(d time.Duration) RedisStoreOption {
	return func(s *RedisCounterStore) { s.opTimeout = d }
}

// NewRedisCounterStore creates a RedisCounterStore over an existing client.
func NewRedisCounterStore(rdb *redis.Client, opts ...RedisStoreOption) *RedisCounterStore {
	s := &RedisCounterStore{
		rdb:       rdb,
		opTimeout: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment atomically increments the key, creating it at 1 if absent.
func (s *RedisCounterStore) Increment(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.rdb.Incr(ctx, key).Result()
}

// Expire sets the key's time-to-live.
func (s *RedisCounterStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.rdb.Expire(ctx, key, ttl).Err()
}

// TTL returns the key's remaining time-to-live.
func (s *RedisCounterStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.rdb.TTL(ctx, key).Result()
}
