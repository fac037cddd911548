package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count int
	last  time.Time
}

// MemoryStore keeps entries in process memory behind one mutex. Entries
// are only reset lazily unless Sweep is called.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry)}
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, limit int, window time.Duration) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	d, count, write := decide(e.count, e.last, now, limit, window)
	if write {
		s.entries[key] = entry{count: count, last: now}
	}
	return d, nil
}

// Sweep deletes entries whose last attempt is more than window before now
// and returns how many were removed. Such entries would reset on their
// next attempt anyway, so sweeping never changes a decision.
func (s *MemoryStore) Sweep(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if now.Sub(e.last) > window {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
