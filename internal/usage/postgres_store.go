package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore advances monthly counters on provider_configurations.
// The month rollover is decided in SQL so concurrent increments cannot
// double-reset.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) IncrementUsage(ctx context.Context, configID string, now time.Time) error {
	query := `
		UPDATE provider_configurations
		SET current_month_usage = CASE
				WHEN date_trunc('month', last_usage_reset_at) = date_trunc('month', $2::timestamptz)
				THEN current_month_usage + 1
				ELSE 1
			END,
			last_usage_reset_at = CASE
				WHEN date_trunc('month', last_usage_reset_at) = date_trunc('month', $2::timestamptz)
				THEN last_usage_reset_at
				ELSE $2
			END,
			last_used_at = $2
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, configID, now)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("configuration %s not found", configID)
	}
	return nil
}
