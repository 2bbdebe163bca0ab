// Package postgres implements interfaces.Store over a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobmcallan/satqueue/internal/common"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS formulas (
	id               BIGSERIAL PRIMARY KEY,
	normalized_input TEXT NOT NULL,
	hash             TEXT NOT NULL UNIQUE,
	notation         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          BIGSERIAL PRIMARY KEY,
	formula_id  BIGINT NOT NULL REFERENCES formulas(id),
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at  TIMESTAMPTZ,
	finished_at TIMESTAMPTZ,
	timeout_s   INT NOT NULL,
	mode        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_formula_id ON runs(formula_id);
CREATE INDEX IF NOT EXISTS idx_runs_formula_status ON runs(formula_id, status);

CREATE TABLE IF NOT EXISTS results (
	run_id        BIGINT PRIMARY KEY REFERENCES runs(id),
	result        TEXT NOT NULL,
	assignment    JSONB,
	stdout        TEXT,
	stderr        TEXT,
	error_type    TEXT,
	error_message TEXT,
	runtime_s     DOUBLE PRECISION NOT NULL
);
`

// newPool opens a pgxpool.Pool sized per config.Store's pool bounds and
// verifies connectivity with a ping.
func newPool(ctx context.Context, cfg *common.StoreConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolCfg.MinConns = int32(cfg.PoolMin)
	poolCfg.MaxConns = int32(cfg.PoolMax)
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
