// Package seeder provisions development fixtures: a known API key and a
// starter provider configuration. Run only when RUN_SEED=true.
package seeder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"

	"github.com/shahin-ai/ai-gateway/internal/auth"
	"github.com/shahin-ai/ai-gateway/internal/provider"
	"github.com/shahin-ai/ai-gateway/internal/providercfg"
)

const (
	TestAPIKey   = "test-api-key-12345"
	TestTenantID = "00000000-0000-0000-0000-000000000001"
)

func SeedTestAPIKey(ctx context.Context, store auth.Store) {
	sum := sha256.Sum256([]byte(TestAPIKey))

	apiKey := &auth.APIKey{
		TenantID:        TestTenantID,
		Name:            "development",
		KeyHash:         hex.EncodeToString(sum[:]),
		TokensPerMinute: 1000000,
		Active:          true,
	}

	if err := store.Create(ctx, apiKey); err != nil {
		log.Printf("[Seeder] API key may already exist, skipping: %v", err)
		return
	}
	log.Printf("[Seeder] Test API key created successfully")
	log.Printf("[Seeder] Key: %s", TestAPIKey)
	log.Printf("[Seeder] TenantID: %s", TestTenantID)
}

// SeedProviderConfig creates a starter configuration for the test tenant
// when it has none. The API key comes from the caller (usually the
// environment fallback settings) so nothing secret is hardcoded here.
func SeedProviderConfig(ctx context.Context, store providercfg.Store, apiKey, model string) {
	if apiKey == "" {
		log.Printf("[Seeder] no provider api key configured, skipping provider seed")
		return
	}

	existing, err := store.ListActive(ctx, TestTenantID)
	if err != nil {
		log.Printf("[Seeder] could not check existing configurations: %v", err)
		return
	}
	if len(existing) > 0 {
		log.Printf("[Seeder] tenant already has %d configuration(s), skipping", len(existing))
		return
	}

	cfg := &provider.Config{
		TenantID:        TestTenantID,
		Name:            "Seeded Anthropic",
		Kind:            provider.KindAnthropic,
		APIKey:          apiKey,
		Model:           model,
		MaxTokens:       4096,
		Priority:        1,
		AllowedUseCases: []string{provider.UseCaseAll},
		Active:          true,
	}
	if err := store.Create(ctx, cfg); err != nil {
		log.Printf("[Seeder] provider configuration create failed: %v", err)
		return
	}
	log.Printf("[Seeder] provider configuration %s created", cfg.ID)
}
