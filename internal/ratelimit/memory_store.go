package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounterStore implements CounterStore in process memory. It backs
// single-instance deployments without Redis and the limiter's tests; it does
// not coordinate counts across processes.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time // zero means no TTL set yet
}

// NewMemoryCounterStore creates a MemoryCounterStore. A nil now defaults to
// time.Now.
func NewMemoryCounterStore(now func() time.Time) *MemoryCounterStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounterStore{
		entries: make(map[string]*memoryEntry),
		now:     now,
	}
}

// Increment atomically increments the key, creating it at 1 if absent or expired.
func (s *MemoryCounterStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || s.expired(ent) {
		ent = &memoryEntry{}
		s.entries[key] = ent
	}
	ent.count++
	return ent.count, nil
}

// Expire sets the key's time-to-live.
func (s *MemoryCounterStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok && !s.expired(ent) {
		ent.expiresAt = s.now().Add(ttl)
	}
	return nil
}

// TTL returns the key's remaining time-to-live, or -1 when the key has none.
func (s *MemoryCounterStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || s.expired(ent) || ent.expiresAt.IsZero() {
		return -1, nil
	}
	return ent.expiresAt.Sub(s.now()), nil
}

func (s *MemoryCounterStore) expired(ent *memoryEntry) bool {
	return !ent.expiresAt.IsZero() && !s.now().Before(ent.expiresAt)
}
