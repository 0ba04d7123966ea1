// Package providercfg stores and resolves provider configurations: which
// backend serves a given tenant, use case, and provider preference.
package providercfg

import (
	"context"
	"errors"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

// ErrNoProvider means no managed configuration resolved and no static
// fallback is configured.
var ErrNoProvider = errors.New("no AI provider configured")

// ErrConfigNotFound means the requested configuration id does not exist
// or is inactive.
var ErrConfigNotFound = errors.New("configuration not found")

// Store reads managed provider configurations. Implementations return
// configurations ordered ascending by priority.
type Store interface {
	// ListActive returns active configurations visible to the tenant:
	// tenant-scoped ones plus global (unscoped) ones.
	ListActive(ctx context.Context, tenantID string) ([]*provider.Config, error)
	// GetByID returns one active configuration.
	GetByID(ctx context.Context, id string) (*provider.Config, error)
	// Create persists a new configuration.
	Create(ctx context.Context, cfg *provider.Config) error
}

// Info is the non-secret projection of a configuration returned to
// callers listing providers. Credentials never leave the store.
type Info struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Provider        provider.Kind `json:"provider"`
	Model           string        `json:"model"`
	IsDefault       bool          `json:"is_default"`
	Active          bool          `json:"active"`
	Priority        int           `json:"priority"`
	AllowedUseCases []string      `json:"allowed_use_cases"`
	UsageRemaining  *int64        `json:"usage_remaining,omitempty"`
}

func infoFor(cfg *provider.Config) Info {
	info := Info{
		ID:              cfg.ID,
		Name:            cfg.Name,
		Provider:        cfg.Kind,
		Model:           cfg.Model,
		IsDefault:       cfg.IsDefault,
		Active:          cfg.Active,
		Priority:        cfg.Priority,
		AllowedUseCases: cfg.AllowedUseCases,
	}
	if cfg.MonthlyUsageLimit > 0 {
		remaining := cfg.UsageRemaining()
		info.UsageRemaining = &remaining
	}
	return info
}
