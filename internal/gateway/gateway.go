// Package gateway composes sanitization, rate limiting, configuration
// resolution, caching, retries, and usage metering into the three public
// chat operations. Expected failures never surface as errors: every
// outcome is a structured Response.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shahin-ai/ai-gateway/internal/cache"
	"github.com/shahin-ai/ai-gateway/internal/provider"
	"github.com/shahin-ai/ai-gateway/internal/providercfg"
	"github.com/shahin-ai/ai-gateway/internal/ratelimit"
	"github.com/shahin-ai/ai-gateway/internal/retry"
	"github.com/shahin-ai/ai-gateway/internal/sanitize"
	"github.com/shahin-ai/ai-gateway/internal/usage"
)

// DefaultSystemPrompt frames the assistant for compliance work when the
// caller supplies no system prompt of its own.
const DefaultSystemPrompt = `You are an expert GRC (Governance, Risk, and Compliance) AI assistant for an enterprise platform.
You have deep knowledge of:
- NCA ECC (Essential Cybersecurity Controls)
- SAMA CSF (Cybersecurity Framework)
- PDPL (Personal Data Protection Law)
- ISO 27001, ISO 27701, ISO 22301
- SOC 2, PCI DSS, HIPAA

You provide accurate, actionable insights in both English and Arabic.
Always return responses in valid JSON format when requested.`

// UseCaseChat is the default use-case tag for all three operations.
const UseCaseChat = "chat"

// Options carries the per-request routing inputs shared by the three
// operations.
type Options struct {
	SystemPrompt string
	TenantID     string
	Provider     provider.Kind // optional preference
	UseCase      string        // defaults to "chat"
}

func (o Options) useCase() string {
	if o.UseCase == "" {
		return UseCaseChat
	}
	return o.UseCase
}

// Response is the only shape callers see. It carries no error values,
// only a success flag and a message; credentials never appear in it.
type Response struct {
	Success          bool          `json:"success"`
	Content          string        `json:"content,omitempty"`
	Provider         provider.Kind `json:"provider,omitempty"`
	Model            string        `json:"model,omitempty"`
	LatencyMs        int64         `json:"latency_ms"`
	InputTokens      int           `json:"input_tokens,omitempty"`
	OutputTokens     int           `json:"output_tokens,omitempty"`
	TokensUsed       int           `json:"tokens_used,omitempty"`
	FromCache        bool          `json:"from_cache,omitempty"`
	SecurityWarnings []string      `json:"security_warnings,omitempty"`
	Error            string        `json:"error,omitempty"`
}

type Gateway struct {
	limiter  *ratelimit.Limiter
	resolver *providercfg.Resolver
	registry *provider.Registry
	cache    *cache.Cache
	meter    *usage.Meter
	retrier  *retry.Executor
	breakers map[provider.Kind]*gobreaker.CircuitBreaker
	now      func() time.Time
}

type Option func(*Gateway)

// WithRetryExecutor overrides the default backoff schedule.
func WithRetryExecutor(e *retry.Executor) Option {
	return func(g *Gateway) { g.retrier = e }
}

func New(limiter *ratelimit.Limiter, resolver *providercfg.Resolver, registry *provider.Registry, responseCache *cache.Cache, meter *usage.Meter, opts ...Option) *Gateway {
	g := &Gateway{
		limiter:  limiter,
		resolver: resolver,
		registry: registry,
		cache:    responseCache,
		meter:    meter,
		retrier:  retry.New(),
		breakers: make(map[provider.Kind]*gobreaker.CircuitBreaker),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	for _, kind := range registry.Kinds() {
		g.breakers[kind] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(kind),
			MaxRequests: 3,
			Interval:    5 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}
	return g
}

// Chat runs one single-turn exchange. Single-turn responses are cached
// by content hash; a hit skips the provider call entirely and reports an
// input-only token estimate.
func (g *Gateway) Chat(ctx context.Context, message string, opts Options) Response {
	start := g.now()

	if err := g.limiter.Allow(opts.TenantID); err != nil {
		return g.failure(err, start, nil)
	}

	sanitized, warnings, err := sanitize.Sanitize(message, "message", sanitize.DefaultMaxLength)
	if err != nil {
		return g.failure(err, start, nil)
	}

	cfg, err := g.resolver.Resolve(ctx, opts.TenantID, opts.Provider, opts.useCase())
	if err != nil {
		return g.failure(err, start, warnings)
	}

	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	messages := []provider.Message{{Role: provider.RoleUser, Content: sanitized}}
	est := usage.EstimateRequest(messages, systemPrompt, cfg.MaxTokens)

	key := cache.Key(string(cfg.Kind), cfg.Model, systemPrompt, sanitized)
	if cached, ok := g.cache.Get(key); ok {
		return Response{
			Success:          true,
			Content:          cached,
			Provider:         cfg.Kind,
			Model:            cfg.Model,
			LatencyMs:        g.since(start),
			InputTokens:      est.InputTokens,
			TokensUsed:       est.InputTokens,
			FromCache:        true,
			SecurityWarnings: warnings,
		}
	}

	text, err := g.invoke(ctx, cfg, messages, systemPrompt)
	if err != nil {
		return g.failure(err, start, warnings)
	}

	g.cache.Set(key, text)
	g.meter.Record(ctx, cfg)

	outputTokens := usage.EstimateTokens(text)
	return Response{
		Success:          true,
		Content:          text,
		Provider:         cfg.Kind,
		Model:            cfg.Model,
		LatencyMs:        g.since(start),
		InputTokens:      est.InputTokens,
		OutputTokens:     outputTokens,
		TokensUsed:       est.InputTokens + outputTokens,
		SecurityWarnings: warnings,
	}
}

// Conversation runs a multi-turn exchange. Every user-authored message
// is sanitized individually; sensitive-data warnings are aggregated.
// Conversations are never cached.
func (g *Gateway) Conversation(ctx context.Context, messages []provider.Message, opts Options) Response {
	start := g.now()

	if err := g.limiter.Allow(opts.TenantID); err != nil {
		return g.failure(err, start, nil)
	}

	var warnings []string
	sanitized := make([]provider.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != provider.RoleUser {
			sanitized = append(sanitized, msg)
			continue
		}
		content, msgWarnings, err := sanitize.Sanitize(msg.Content, "message", sanitize.DefaultMaxLength)
		if err != nil {
			return g.failure(err, start, warnings)
		}
		warnings = append(warnings, msgWarnings...)
		sanitized = append(sanitized, provider.Message{Role: msg.Role, Content: content})
	}

	cfg, err := g.resolver.Resolve(ctx, opts.TenantID, opts.Provider, opts.useCase())
	if err != nil {
		return g.failure(err, start, warnings)
	}

	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	text, err := g.invoke(ctx, cfg, sanitized, systemPrompt)
	if err != nil {
		return g.failure(err, start, warnings)
	}

	g.meter.Record(ctx, cfg)

	inputTokens := 0
	for _, m := range sanitized {
		inputTokens += usage.EstimateTokens(m.Content)
	}
	outputTokens := usage.EstimateTokens(text)
	return Response{
		Success:          true,
		Content:          text,
		Provider:         cfg.Kind,
		Model:            cfg.Model,
		LatencyMs:        g.since(start),
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
		TokensUsed:       inputTokens + outputTokens,
		SecurityWarnings: warnings,
	}
}

// TestProvider invokes one configuration with a canned prompt and
// reports whether it answered. Admin probe; bypasses sanitization and
// metering.
func (g *Gateway) TestProvider(ctx context.Context, configID string) Response {
	start := g.now()

	cfg, err := g.resolver.Get(ctx, configID)
	if err != nil {
		return g.failure(err, start, nil)
	}

	messages := []provider.Message{{
		Role:    provider.RoleUser,
		Content: "Say 'Hello, I am working!' in one sentence.",
	}}
	text, err := g.invoke(ctx, cfg, messages, "")
	if err != nil {
		return g.failure(err, start, nil)
	}

	return Response{
		Success:   true,
		Content:   text,
		Provider:  cfg.Kind,
		Model:     cfg.Model,
		LatencyMs: g.since(start),
	}
}

// invoke runs the retried adapter call behind the provider kind's
// circuit breaker. Each attempt gets its own timeout derived from the
// configuration.
func (g *Gateway) invoke(ctx context.Context, cfg *provider.Config, messages []provider.Message, systemPrompt string) (string, error) {
	adapter, err := g.registry.Get(cfg.Kind)
	if err != nil {
		return "", err
	}

	breaker, ok := g.breakers[cfg.Kind]
	if !ok {
		return g.retrier.Do(ctx, func(ctx context.Context) (string, error) {
			return g.attempt(ctx, adapter, cfg, messages, systemPrompt)
		})
	}

	result, err := breaker.Execute(func() (any, error) {
		return g.retrier.Do(ctx, func(ctx context.Context) (string, error) {
			return g.attempt(ctx, adapter, cfg, messages, systemPrompt)
		})
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (g *Gateway) attempt(ctx context.Context, adapter provider.Adapter, cfg *provider.Config, messages []provider.Message, systemPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()
	return adapter.Invoke(callCtx, cfg, messages, systemPrompt)
}

func (g *Gateway) failure(err error, start time.Time, warnings []string) Response {
	return Response{
		Success:          false,
		Error:            errorMessage(err),
		LatencyMs:        g.since(start),
		SecurityWarnings: warnings,
	}
}

func (g *Gateway) since(start time.Time) int64 {
	return g.now().Sub(start).Milliseconds()
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, providercfg.ErrNoProvider):
		return "No AI provider configured"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "AI provider temporarily unavailable"
	default:
		return err.Error()
	}
}
