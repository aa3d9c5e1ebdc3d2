// Package warehouse is the PostgreSQL side of the pipeline: schema
// migrations, the correlation-complete propagator, the FK backfill, the
// past-flight reconciler, and export reads.
package warehouse

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skyward-data/flightwx-cli/internal/db"
	"github.com/skyward-data/flightwx-cli/internal/resilience"
)

// NewPool creates a pgx pool for the warehouse with bounded sizing and a
// retried connectivity check.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: parse database url")
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: create pool")
	}

	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = func(error) bool { return true }
	retry.OnRetry = resilience.RetryLogger("warehouse", "ping")
	if err := resilience.Do(ctx, retry, func(ctx context.Context) error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "warehouse: ping")
	}

	zap.L().Info("warehouse: connected")
	return pool, nil
}

// Warehouse bundles the warehouse operations over a shared pool.
type Warehouse struct {
	pool db.Pool
}

// New creates a Warehouse over an existing pool.
func New(pool db.Pool) *Warehouse {
	return &Warehouse{pool: pool}
}
