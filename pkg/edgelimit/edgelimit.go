// Package edgelimit throttles estimated token throughput per tenant at
// the HTTP edge, before any request reaches the gateway core. It is a
// thin wrapper around github.com/vnmchuo/ratelimiter backed by Redis.
package edgelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	extratelimit "github.com/vnmchuo/ratelimiter"
)

type Limiter struct {
	store extratelimit.Limiter
}

func NewLimiter(rdb *redis.Client, defaultTPM int64) *Limiter {
	store := extratelimit.NewRedisStore(rdb,
		extratelimit.WithLimit(int(defaultTPM)),
		extratelimit.WithWindow(time.Minute),
	)
	return &Limiter{store: store}
}

func NewTestLimiter(store extratelimit.Limiter) *Limiter {
	return &Limiter{store: store}
}

// Allow charges the tenant's token budget with the request's estimated
// size and reports whether it fits in the current window.
func (l *Limiter) Allow(ctx context.Context, tenantID string, tokens int) (bool, error) {
	res, err := l.store.AllowN(ctx, tenantKey(tenantID), tokens)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func (l *Limiter) Status(ctx context.Context, tenantID string) (*extratelimit.Result, error) {
	return l.store.Status(ctx, tenantKey(tenantID))
}

func tenantKey(tenantID string) string {
	return fmt.Sprintf("edgelimit:tenant:%s", tenantID)
}
