package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalGuard is a per-process token-bucket layer in front of the distributed
// window counter. It smooths bursts from a single client before the request
// ever reaches the counter store, and keeps one limiter per key with periodic
// cleanup of idle entries.
type LocalGuard struct {
	mu           sync.Mutex
	entries      map[string]*guardEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type guardEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// GuardOption configures a LocalGuard.
type GuardOption func(*LocalGuard)

// WithIdleTTL sets how long an unused key's limiter is retained.
func WithIdleTTL(d time.Duration) GuardOption {
	return func(g *LocalGuard) { g.idleTTL = d }
}

// WithCleanupEvery sets the janitor interval.
func WithCleanupEvery(d time.Duration) GuardOption {
	return func(g *LocalGuard) { g.cleanupEvery = d }
}

// NewLocalGuard creates a LocalGuard allowing rps requests per second with
// the given burst per key.
func NewLocalGuard(rps float64, burst int, opts ...GuardOption) *LocalGuard {
	g := &LocalGuard{
		entries:      make(map[string]*guardEntry),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow reports whether the key may proceed right now.
func (g *LocalGuard) Allow(key string) bool {
	return g.limiter(key).Allow()
}

func (g *LocalGuard) limiter(key string) *rate.Limiter {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if ent, ok := g.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(g.rps, g.burst)
	g.entries[key] = &guardEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops limiters idle longer than the configured TTL.
func (g *LocalGuard) Cleanup() {
	cutoff := time.Now().Add(-g.idleTTL)

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, ent := range g.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(g.entries, k)
		}
	}
}

// StartJanitor cleans idle keys periodically until the context is cancelled.
func (g *LocalGuard) StartJanitor(ctx context.Context) {
	if g.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(g.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				g.Cleanup()
			}
		}
	}()
}
