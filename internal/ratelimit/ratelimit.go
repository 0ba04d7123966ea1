// Package ratelimit holds a per-key fixed-window request counter for the
// gateway core. Each key has its own lock, so unrelated tenants never
// contend; concurrent requests for the same tenant serialize briefly on
// that tenant's entry.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const (
	// GlobalKey is the fallback key when no tenant is given.
	GlobalKey = "global"

	DefaultLimit  = 60
	DefaultWindow = time.Minute
)

// LimitError reports a rejected request plus a wait-time hint.
type LimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Please wait %d seconds.", int(e.RetryAfter.Seconds()))
}

type entry struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// Limiter is an injected, explicitly-lifecycled fixed-window counter.
type Limiter struct {
	mu      sync.Mutex // guards the key map only
	entries map[string]*entry

	limit  int
	window time.Duration
	now    func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		entries: make(map[string]*entry),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow records one request against the key's current window. It returns
// a *LimitError when the window is full.
func (l *Limiter) Allow(key string) error {
	if key == "" {
		key = GlobalKey
	}
	e := l.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.now()
	if now.Sub(e.windowStart) >= l.window {
		e.windowStart = now
		e.count = 0
	}
	if e.count >= l.limit {
		return &LimitError{
			Key:        key,
			RetryAfter: l.window - now.Sub(e.windowStart),
		}
	}
	e.count++
	return nil
}

func (l *Limiter) entry(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{windowStart: l.now()}
		l.entries[key] = e
	}
	return e
}
