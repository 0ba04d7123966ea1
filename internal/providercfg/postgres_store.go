package providercfg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shahin-ai/ai-gateway/internal/provider"
	"github.com/shahin-ai/ai-gateway/pkg/jsonpath"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const configColumns = `
	id, tenant_id, name, kind, api_key, model, endpoint,
	max_tokens, temperature, timeout_seconds, api_version, priority,
	allowed_use_cases, monthly_usage_limit, current_month_usage,
	last_usage_reset_at, last_used_at, is_default, active,
	custom_headers, request_template, response_path
`

func (s *PostgresStore) ListActive(ctx context.Context, tenantID string) ([]*provider.Config, error) {
	query := `
		SELECT ` + configColumns + `
		FROM provider_configurations
		WHERE active = true AND (tenant_id IS NULL OR tenant_id = $1)
		ORDER BY priority ASC, created_at ASC
	`
	rows, err := s.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query configurations: %w", err)
	}
	defer rows.Close()

	var configs []*provider.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating configurations: %w", err)
	}
	return configs, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*provider.Config, error) {
	query := `
		SELECT ` + configColumns + `
		FROM provider_configurations
		WHERE id = $1 AND active = true
	`
	cfg, err := scanConfig(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return cfg, nil
}

func (s *PostgresStore) Create(ctx context.Context, cfg *provider.Config) error {
	var tenantID *string
	if cfg.TenantID != "" {
		tenantID = &cfg.TenantID
	}
	var headers []byte
	if len(cfg.CustomHeaders) > 0 {
		var err error
		headers, err = json.Marshal(cfg.CustomHeaders)
		if err != nil {
			return fmt.Errorf("marshal custom headers: %w", err)
		}
	}

	query := `
		INSERT INTO provider_configurations (
			tenant_id, name, kind, api_key, model, endpoint,
			max_tokens, temperature, timeout_seconds, api_version, priority,
			allowed_use_cases, monthly_usage_limit, is_default, active,
			custom_headers, request_template, response_path
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	err := s.db.QueryRow(ctx, query,
		tenantID, cfg.Name, string(cfg.Kind), cfg.APIKey, cfg.Model, cfg.Endpoint,
		cfg.MaxTokens, cfg.Temperature, cfg.TimeoutSeconds, cfg.APIVersion, cfg.Priority,
		strings.Join(cfg.AllowedUseCases, ","), cfg.MonthlyUsageLimit, cfg.IsDefault, cfg.Active,
		headers, cfg.RequestTemplate, cfg.ResponsePath.String(),
	).Scan(&cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}
	return nil
}

func scanConfig(row pgx.Row) (*provider.Config, error) {
	var (
		cfg          provider.Config
		tenantID     *string
		kind         string
		useCases     string
		lastReset    *time.Time
		lastUsed     *time.Time
		headers      []byte
		responsePath string
	)

	err := row.Scan(
		&cfg.ID, &tenantID, &cfg.Name, &kind, &cfg.APIKey, &cfg.Model, &cfg.Endpoint,
		&cfg.MaxTokens, &cfg.Temperature, &cfg.TimeoutSeconds, &cfg.APIVersion, &cfg.Priority,
		&useCases, &cfg.MonthlyUsageLimit, &cfg.CurrentMonthUsage,
		&lastReset, &lastUsed, &cfg.IsDefault, &cfg.Active,
		&headers, &cfg.RequestTemplate, &responsePath,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan configuration: %w", err)
	}

	cfg.Kind = provider.Kind(kind)
	if tenantID != nil {
		cfg.TenantID = *tenantID
	}
	if useCases != "" {
		cfg.AllowedUseCases = strings.Split(useCases, ",")
	}
	if lastReset != nil {
		cfg.LastUsageResetAt = *lastReset
	}
	if lastUsed != nil {
		cfg.LastUsedAt = *lastUsed
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &cfg.CustomHeaders); err != nil {
			return nil, fmt.Errorf("failed to decode custom headers for %s: %w", cfg.ID, err)
		}
	}
	if responsePath != "" {
		// Compiled once at load; a malformed path falls back to the
		// adapter's common-shape probing.
		path, err := jsonpath.Parse(responsePath)
		if err != nil {
			log.Printf("providercfg: invalid response path for %s: %v", cfg.ID, err)
		} else {
			cfg.ResponsePath = path
		}
	}
	return &cfg, nil
}
