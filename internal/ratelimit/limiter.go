// Package ratelimit implements a fixed-window request counter shared across
// server processes through an external counter store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CounterStore is the contract the limiter needs from the shared backend.
// Implementations must serialize concurrent increments on the same key.
type CounterStore interface {
	// Increment atomically adds one to the counter and returns the new value,
	// creating the key at 1 if absent.
	Increment(ctx context.Context, key string) (int64, error)

	// Expire sets the key's time-to-live.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the key's remaining time-to-live.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Decision is the outcome of a throttle check.
type Decision struct {
	Allowed    bool      `json:"allowed"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	FailedOpen bool      `json:"-"`
}

// FixedWindowLimiter caps requests per {scope, identity} inside fixed,
// non-overlapping time windows. Window keys expire on their own, so the store
// never needs explicit cleanup.
//
// If the counter store is unreachable the limiter fails open: the request is
// allowed and the condition logged. Availability wins over throttling
// precision.
type FixedWindowLimiter struct {
	store  CounterStore
	logger *zap.Logger
	prefix string
	now    func() time.Time
}

// LimiterOption configures a FixedWindowLimiter.
type LimiterOption func(*FixedWindowLimiter)

// WithPrefix overrides the key prefix (default "ratelimit").
func WithPrefix(prefix string) LimiterOption {
	return func(l *FixedWindowLimiter) { l.prefix = prefix }
}

// WithClock overrides the limiter's clock. Used in tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *FixedWindowLimiter) { l.now = now }
}

// NewFixedWindowLimiter creates a FixedWindowLimiter over the given store.
func NewFixedWindowLimiter(store CounterStore, logger *zap.Logger, opts ...LimiterOption) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		store:  store,
		logger: logger,
		prefix: "ratelimit",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow counts one request for {scope, identity} against maxRequests per
// window and returns the decision with the window's reset time.
//
// The INCR and the conditional EXPIRE are two individually-atomic steps; a
// crash between them can leave one window key without a TTL. That anomaly is
// bounded and self-correcting, because the next window derives a fresh key
// that will expire normally.
func (l *FixedWindowLimiter) Allow(ctx context.Context, scope, identity string, maxRequests int64, window time.Duration) Decision {
	windowSecs := int64(window / time.Second)
	if windowSecs < 1 {
		windowSecs = 1
	}

	now := l.now()
	windowIndex := now.Unix() / windowSecs
	key := fmt.Sprintf("%s:%s:%s:%d", l.prefix, scope, identity, windowIndex)
	resetAt := time.Unix((windowIndex+1)*windowSecs, 0).UTC()

	count, err := l.store.Increment(ctx, key)
	if err != nil {
		l.logger.Warn("counter store unreachable, failing open",
			zap.String("scope", scope),
			zap.String("identity", identity),
			zap.Error(err),
		)
		return Decision{Allowed: true, Remaining: maxRequests, ResetAt: resetAt, FailedOpen: true}
	}

	// First hit in the window owns setting the TTL.
	if count == 1 {
		if err := l.store.Expire(ctx, key, time.Duration(windowSecs)*time.Second); err != nil {
			l.logger.Warn("failed to set window TTL",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	if count > maxRequests {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}
	return Decision{Allowed: true, Remaining: maxRequests - count, ResetAt: resetAt}
}
