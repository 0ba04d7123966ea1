package providercfg

import (
	"context"
	"fmt"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

// Resolver selects the best eligible configuration for a request:
// active, visible to the tenant, matching the provider preference and
// use case, ordered by priority, and under its monthly quota. When
// nothing qualifies it falls back to a single statically configured
// default; the fallback carries an empty ID and is never metered.
type Resolver struct {
	store    Store
	fallback *provider.Config // nil when not configured
}

func NewResolver(store Store, fallback *provider.Config) *Resolver {
	return &Resolver{store: store, fallback: fallback}
}

// Resolve returns the configuration to serve the request, or
// ErrNoProvider.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, preferred provider.Kind, useCase string) (*provider.Config, error) {
	configs, err := r.store.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}

	for _, cfg := range configs {
		if preferred != "" && cfg.Kind != preferred {
			continue
		}
		if !cfg.AllowsUseCase(useCase) {
			continue
		}
		if !cfg.UnderQuota() {
			continue
		}
		return cfg, nil
	}

	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, ErrNoProvider
}

// List returns the non-secret projections of every configuration
// resolvable by the tenant, falling back to the static default when the
// store is empty.
func (r *Resolver) List(ctx context.Context, tenantID string) ([]Info, error) {
	configs, err := r.store.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}

	infos := make([]Info, 0, len(configs))
	for _, cfg := range configs {
		infos = append(infos, infoFor(cfg))
	}

	if len(infos) == 0 && r.fallback != nil {
		infos = append(infos, infoFor(r.fallback))
	}
	return infos, nil
}

// Available reports whether any configuration (managed or fallback) can
// serve the tenant.
func (r *Resolver) Available(ctx context.Context, tenantID string) (bool, error) {
	configs, err := r.store.ListActive(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("list configurations: %w", err)
	}
	return len(configs) > 0 || r.fallback != nil, nil
}

// Get returns one managed configuration, or the fallback when id is
// empty.
func (r *Resolver) Get(ctx context.Context, id string) (*provider.Config, error) {
	if id == "" {
		if r.fallback == nil {
			return nil, ErrConfigNotFound
		}
		return r.fallback, nil
	}
	return r.store.GetByID(ctx, id)
}
