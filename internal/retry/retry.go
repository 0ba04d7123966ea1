// Package retry wraps a single adapter invocation with bounded
// exponential-backoff retries on transient failures.
package retry

import (
	"context"
	"errors"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

const DefaultMaxRetries = 3

// DefaultDelays is the backoff schedule; the last delay is reused if the
// retry budget is raised beyond its length.
var DefaultDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

type Executor struct {
	MaxRetries int
	Delays     []time.Duration
}

func New() *Executor {
	return &Executor{MaxRetries: DefaultMaxRetries, Delays: DefaultDelays}
}

// Do runs op until it succeeds, fails permanently, or the retry budget is
// spent. Cancellation is checked before each delay and aborts the loop
// immediately without consuming a retry.
func (e *Executor) Do(ctx context.Context, op func(ctx context.Context) (string, error)) (string, error) {
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			// Caller-initiated cancellation is never retried.
			return "", err
		}
		if !IsTransient(err) || attempt >= e.MaxRetries {
			return "", err
		}

		delay := e.Delays[min(attempt, len(e.Delays)-1)]
		log.Printf("provider call failed (attempt %d/%d), retrying in %v: %v",
			attempt+1, e.MaxRetries+1, delay, err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// IsTransient classifies a failure as worth retrying: HTTP 429 or 5xx,
// a per-attempt timeout, or a low-level connection failure. Everything
// else (other 4xx, parse failures, cancellation) propagates immediately.
func IsTransient(err error) bool {
	var se *provider.StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
