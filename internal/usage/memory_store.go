package usage

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	Count    int64
	ResetAt  time.Time
	LastUsed time.Time
}

// MemoryStore keeps monthly counters in memory. Used in tests and in
// single-process deployments without a database.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*counter)}
}

func (s *MemoryStore) IncrementUsage(_ context.Context, configID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[configID]
	if !ok {
		c = &counter{ResetAt: now}
		s.counters[configID] = c
	}

	if sameMonth(c.ResetAt, now) {
		c.Count++
	} else {
		c.Count = 1
		c.ResetAt = now
	}
	c.LastUsed = now
	return nil
}

// Usage returns the current counter for a configuration.
func (s *MemoryStore) Usage(configID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[configID]; ok {
		return c.Count
	}
	return 0
}

func sameMonth(a, b time.Time) bool {
	ay, am, _ := a.UTC().Date()
	by, bm, _ := b.UTC().Date()
	return ay == by && am == bm
}
