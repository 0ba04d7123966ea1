package providercfg

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

// MemoryStore is an in-memory Store used in tests and database-less
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*provider.Config
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]*provider.Config)}
}

func (s *MemoryStore) ListActive(_ context.Context, tenantID string) ([]*provider.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configs []*provider.Config
	for _, cfg := range s.configs {
		if !cfg.Active {
			continue
		}
		if cfg.TenantID != "" && cfg.TenantID != tenantID {
			continue
		}
		c := *cfg
		configs = append(configs, &c)
	}
	sort.SliceStable(configs, func(i, j int) bool {
		return configs[i].Priority < configs[j].Priority
	})
	return configs, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*provider.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[id]
	if !ok || !cfg.Active {
		return nil, ErrConfigNotFound
	}
	c := *cfg
	return &c, nil
}

func (s *MemoryStore) Create(_ context.Context, cfg *provider.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	c := *cfg
	s.configs[cfg.ID] = &c
	return nil
}

// SetUsage overrides a configuration's current-month counter. Test hook.
func (s *MemoryStore) SetUsage(id string, usage int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.configs[id]; ok {
		cfg.CurrentMonthUsage = usage
	}
}
