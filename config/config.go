package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/shahin-ai/ai-gateway/internal/provider"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Database
	PostgresDSN string

	// Cache
	RedisAddr string

	// Fallback provider, served when no configuration row matches.
	FallbackProvider       string // provider kind, default: anthropic
	FallbackAPIKey         string
	FallbackModel          string
	FallbackEndpoint       string
	FallbackMaxTokens      int
	FallbackTimeoutSeconds int
	FallbackAPIVersion     string

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"

	// Rate limiting
	RateLimitPerMinute int   // requests per tenant per minute, default: 60
	EdgeRateLimitTPM   int64 // estimated tokens per minute at the HTTP edge, default: 100000
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		FallbackProvider:     getEnv("FALLBACK_PROVIDER", "anthropic"),
		FallbackAPIKey:       os.Getenv("FALLBACK_API_KEY"),
		FallbackModel:        getEnv("FALLBACK_MODEL", "claude-sonnet-4-20250514"),
		FallbackEndpoint:     os.Getenv("FALLBACK_ENDPOINT"),
		FallbackAPIVersion:   os.Getenv("FALLBACK_API_VERSION"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.FallbackMaxTokens, err = getEnvInt("FALLBACK_MAX_TOKENS", 4096); err != nil {
		return nil, err
	}
	if cfg.FallbackTimeoutSeconds, err = getEnvInt("FALLBACK_TIMEOUT_SECONDS", 60); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return nil, err
	}
	tpm, err := getEnvInt("EDGE_RATE_LIMIT_TPM", 100000)
	if err != nil {
		return nil, err
	}
	cfg.EdgeRateLimitTPM = int64(tpm)

	// Validation
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}

	return cfg, nil
}

// FallbackProviderConfig builds the environment-sourced configuration of
// last resort, or nil when no fallback key is set. The empty ID marks it
// as unmetered.
func (c *Config) FallbackProviderConfig() *provider.Config {
	if c.FallbackAPIKey == "" {
		return nil
	}
	return &provider.Config{
		Name:           "Environment Fallback",
		Kind:           provider.Kind(c.FallbackProvider),
		APIKey:         c.FallbackAPIKey,
		Model:          c.FallbackModel,
		Endpoint:       c.FallbackEndpoint,
		MaxTokens:      c.FallbackMaxTokens,
		TimeoutSeconds: c.FallbackTimeoutSeconds,
		APIVersion:     c.FallbackAPIVersion,
		Active:         true,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
