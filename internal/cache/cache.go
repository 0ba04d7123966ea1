// Package cache is a content-addressed, short-TTL store for single-turn
// responses. Multi-turn conversations are not cached: histories rarely
// repeat, so caching them has low value and high memory cost.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultAbsoluteTTL = 15 * time.Minute
	DefaultSlidingTTL  = 5 * time.Minute
)

type entry struct {
	value      string
	createdAt  time.Time
	lastAccess time.Time
}

// Cache is safe for concurrent use. It is not transactional: two
// concurrent misses for the same key may both invoke the provider and
// both store; last write wins and the values converge.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	absoluteTTL time.Duration
	slidingTTL  time.Duration
	now         func() time.Time
}

func New() *Cache {
	return NewWithTTL(DefaultAbsoluteTTL, DefaultSlidingTTL)
}

func NewWithTTL(absolute, sliding time.Duration) *Cache {
	return &Cache{
		entries:     make(map[string]*entry),
		absoluteTTL: absolute,
		slidingTTL:  sliding,
		now:         time.Now,
	}
}

// Key derives the deterministic, collision-resistant cache key: the
// first 32 hex characters of SHA-256 over provider:model:system:message.
func Key(kind, model, systemPrompt, message string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s:%s", kind, model, systemPrompt, message))
	return hex.EncodeToString(sum[:])[:32]
}

// Get returns the cached response and refreshes the sliding window.
// Expired entries are evicted on access.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}

	now := c.now()
	if now.Sub(e.createdAt) >= c.absoluteTTL || now.Sub(e.lastAccess) >= c.slidingTTL {
		delete(c.entries, key)
		return "", false
	}

	e.lastAccess = now
	return e.value, true
}

// Set stores a response, replacing any previous entry for the key.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &entry{value: value, createdAt: now, lastAccess: now}
}

// Len reports the number of stored entries, including not-yet-evicted
// expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
