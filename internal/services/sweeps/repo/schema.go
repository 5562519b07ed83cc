package repo

import (
	"context"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          uuid PRIMARY KEY,
		tier        text NOT NULL,
		window_from date NOT NULL,
		window_to   date NOT NULL,
		started_at  timestamptz NOT NULL,
		finished_at timestamptz,
		status      text NOT NULL DEFAULT 'running',
		error       text NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS ix_runs_tier_started ON runs (tier, started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS run_metrics (
		run_id uuid NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
		name   text NOT NULL,
		value  bigint NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS backfill_cursor (
		tier       text PRIMARY KEY,
		boundary   date NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
}

// EnsureSchema creates the run bookkeeping tables when missing
func EnsureSchema(ctx context.Context, q repokit.Queryer) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return perr.FromPostgres(err, "sweeps: ensure schema")
		}
	}
	return nil
}
