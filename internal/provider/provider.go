package provider

import (
	"context"
	"strings"
	"time"

	"github.com/shahin-ai/ai-gateway/pkg/jsonpath"
)

type Kind string

const (
	KindAnthropic   Kind = "anthropic"
	KindOpenAI      Kind = "openai"
	KindAzureOpenAI Kind = "azure-openai"
	KindGemini      Kind = "gemini"
	KindLocal       Kind = "local"
	KindCustom      Kind = "custom"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// UseCaseAll marks a configuration as eligible for every use case.
const UseCaseAll = "all"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config is one stored provider configuration. Configurations are managed
// by tenant admin tooling and read-only to the gateway, except for the
// monthly usage counter which the meter advances after each billed call.
type Config struct {
	ID              string
	TenantID        string // empty = global/shared
	Name            string
	Kind            Kind
	APIKey          string
	Model           string
	Endpoint        string // empty = family default
	MaxTokens       int
	Temperature     float64
	TimeoutSeconds  int
	APIVersion      string
	Priority        int // lower = preferred
	AllowedUseCases []string

	MonthlyUsageLimit int64 // 0 = unlimited
	CurrentMonthUsage int64
	LastUsageResetAt  time.Time
	LastUsedAt        time.Time

	IsDefault bool
	Active    bool

	// Custom-kind extras.
	CustomHeaders   map[string]string
	RequestTemplate string
	ResponsePath    jsonpath.Path
}

// Adapter is the uniform invoke contract each backend family implements.
// Implementations build the family's wire shape, post it, and extract the
// response text.
type Adapter interface {
	Kind() Kind
	Invoke(ctx context.Context, cfg *Config, messages []Message, systemPrompt string) (string, error)
}

// AllowsUseCase reports whether the configuration may serve the given
// use case. An empty set or the wildcard admits everything.
func (c *Config) AllowsUseCase(useCase string) bool {
	if len(c.AllowedUseCases) == 0 {
		return true
	}
	for _, uc := range c.AllowedUseCases {
		uc = strings.TrimSpace(uc)
		if uc == UseCaseAll || strings.EqualFold(uc, useCase) {
			return true
		}
	}
	return false
}

// UnderQuota reports whether the configuration has monthly usage left.
func (c *Config) UnderQuota() bool {
	return c.MonthlyUsageLimit <= 0 || c.CurrentMonthUsage < c.MonthlyUsageLimit
}

// UsageRemaining returns the calls left this month, or -1 when unlimited.
func (c *Config) UsageRemaining() int64 {
	if c.MonthlyUsageLimit <= 0 {
		return -1
	}
	remaining := c.MonthlyUsageLimit - c.CurrentMonthUsage
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Timeout returns the per-call timeout, defaulting to 60s.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Default endpoints per backend family. Azure and Custom have no default:
// both require a caller-supplied endpoint.
var defaultEndpoints = map[Kind]string{
	KindAnthropic: "https://api.anthropic.com/v1/messages",
	KindOpenAI:    "https://api.openai.com/v1/chat/completions",
	KindGemini:    "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent",
	KindLocal:     "http://localhost:11434/api/chat",
}

// ResolveEndpoint returns the configured endpoint override or the family
// default.
func (c *Config) ResolveEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return defaultEndpoints[c.Kind]
}
