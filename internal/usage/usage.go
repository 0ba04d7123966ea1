package usage

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

// charsPerToken is the approximation used in place of an exact tokenizer.
const charsPerToken = 4.0

// EstimateTokens approximates the token count of a text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / charsPerToken))
}

// Estimate is a pre-call token budget for one request. Computed, never
// persisted.
type Estimate struct {
	InputTokens     int
	MaxOutputTokens int
	Total           int
}

// EstimateRequest sums the input-side tokens and the configured output
// ceiling.
func EstimateRequest(messages []provider.Message, systemPrompt string, maxOutputTokens int) Estimate {
	input := EstimateTokens(systemPrompt)
	for _, m := range messages {
		input += EstimateTokens(m.Content)
	}
	return Estimate{
		InputTokens:     input,
		MaxOutputTokens: maxOutputTokens,
		Total:           input + maxOutputTokens,
	}
}

// Store persists monthly usage counters. Increment advances the counter
// for the current month, resetting it when the wall-clock month differs
// from the stored reset date.
type Store interface {
	IncrementUsage(ctx context.Context, configID string, now time.Time) error
}

// Meter records billed calls against a configuration's monthly counter.
// Increments happen after the call completes and are not transactional
// with the resolution check; a small quota overshoot under concurrency
// is accepted.
type Meter struct {
	store Store
	now   func() time.Time
}

func NewMeter(store Store) *Meter {
	return &Meter{store: store, now: time.Now}
}

// Record meters one successful, non-cached call. The ephemeral fallback
// configuration (empty ID) is never metered. Metering failures are
// logged, not surfaced: the response was already produced.
func (m *Meter) Record(ctx context.Context, cfg *provider.Config) {
	if cfg.ID == "" {
		return
	}
	if err := m.store.IncrementUsage(ctx, cfg.ID, m.now()); err != nil {
		log.Printf("usage: failed to meter config %s: %v", cfg.ID, err)
	}
}
