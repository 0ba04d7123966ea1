package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

func fastExecutor() *Executor {
	return &Executor{
		MaxRetries: 3,
		Delays:     []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond},
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) (string, error) {
		attempts++
		if attempts <= 2 {
			return "", &provider.StatusError{Kind: provider.KindOpenAI, StatusCode: 503}
		}
		return "ok", nil
	}

	result, err := fastExecutor().Do(context.Background(), op)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected 'ok', got %q", result)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts (2 retries), got %d", attempts)
	}
}

func TestDo_BackoffAccumulates(t *testing.T) {
	e := &Executor{
		MaxRetries: 3,
		Delays:     []time.Duration{30 * time.Millisecond, 60 * time.Millisecond, 120 * time.Millisecond},
	}

	attempts := 0
	start := time.Now()
	_, err := e.Do(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts <= 2 {
			return "", &provider.StatusError{Kind: provider.KindOpenAI, StatusCode: 500}
		}
		return "done", nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Expected cumulative backoff >= 90ms, took %v", elapsed)
	}
}

func TestDo_ExhaustsRetryBudget(t *testing.T) {
	attempts := 0
	_, err := fastExecutor().Do(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		return "", &provider.StatusError{Kind: provider.KindOpenAI, StatusCode: 429}
	})

	if err == nil {
		t.Fatal("Expected failure after budget exhaustion")
	}
	if attempts != 4 {
		t.Errorf("Expected 4 attempts (3 retries), got %d", attempts)
	}
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	attempts := 0
	_, err := fastExecutor().Do(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		return "", &provider.StatusError{Kind: provider.KindOpenAI, StatusCode: 401}
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for permanent error, got %d", attempts)
	}
}

func TestDo_CancellationAbortsWithoutRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	_, err := fastExecutor().Do(ctx, func(ctx context.Context) (string, error) {
		attempts++
		cancel()
		return "", context.Canceled
	})

	if err == nil {
		t.Fatal("Expected error on cancellation")
	}
	if attempts != 1 {
		t.Errorf("Expected no retries after cancellation, got %d attempts", attempts)
	}
}

func TestDo_LastDelayReused(t *testing.T) {
	e := &Executor{MaxRetries: 5, Delays: []time.Duration{time.Millisecond}}

	attempts := 0
	_, err := e.Do(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		return "", &provider.StatusError{Kind: provider.KindLocal, StatusCode: 502}
	})
	if err == nil {
		t.Fatal("Expected exhaustion")
	}
	if attempts != 6 {
		t.Errorf("Expected 6 attempts, got %d", attempts)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &provider.StatusError{StatusCode: 429}, true},
		{"500", &provider.StatusError{StatusCode: 500}, true},
		{"503 wrapped", fmt.Errorf("call: %w", &provider.StatusError{StatusCode: 503}), true},
		{"404", &provider.StatusError{StatusCode: 404}, false},
		{"400", &provider.StatusError{StatusCode: 400}, false},
		{"timeout", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"conn reset", fmt.Errorf("post: %w", syscall.ECONNRESET), true},
		{"parse failure", errors.New("decode response: unexpected end of JSON input"), false},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("%s: IsTransient = %v, want %v", tt.name, got, tt.want)
		}
	}
}
