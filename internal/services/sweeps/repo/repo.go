// Package repo provides the Postgres bindings for run bookkeeping
package repo

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
)

type (
	// PG binds queries against a Queryer
	PG struct{}

	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the sweeps storage repo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

func (r *queries) OpenRun(ctx context.Context, run domain.Run) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO runs (id, tier, window_from, window_to, started_at, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, '')`,
		run.ID, string(run.Tier), run.WindowFrom, run.WindowTo, run.StartedAt, string(domain.RunRunning),
	)
	if err != nil {
		return perr.FromPostgresf(err, "sweeps: open run %s", run.ID)
	}
	return nil
}

func (r *queries) FinishRun(ctx context.Context, id string, status domain.RunStatus, errText string, at time.Time) (bool, error) {
	// the status guard makes the terminal transition happen at most once
	tag, err := r.q.Exec(ctx, `
		UPDATE runs
		SET status = $2, error = $3, finished_at = $4
		WHERE id = $1 AND status = $5`,
		id, string(status), errText, at, string(domain.RunRunning),
	)
	if err != nil {
		return false, perr.FromPostgresf(err, "sweeps: finish run %s", id)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) BumpMetrics(ctx context.Context, runID string, deltas map[string]int64) error {
	names := make([]string, 0, len(deltas))
	for name := range deltas {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := deltas[name]
		if v == 0 {
			continue
		}
		if _, err := r.q.Exec(ctx, `
			INSERT INTO run_metrics (run_id, name, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (run_id, name) DO UPDATE SET value = run_metrics.value + EXCLUDED.value`,
			runID, name, v,
		); err != nil {
			return perr.FromPostgresf(err, "sweeps: bump metric %s for run %s", name, runID)
		}
	}
	return nil
}

func (r *queries) Cursor(ctx context.Context, tier domain.Tier) (time.Time, bool, error) {
	var boundary time.Time
	err := r.q.QueryRow(ctx, `SELECT boundary FROM backfill_cursor WHERE tier = $1`, string(tier)).Scan(&boundary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, perr.FromPostgres(err, "sweeps: read cursor")
	}
	return boundary.UTC(), true, nil
}

func (r *queries) SetCursor(ctx context.Context, tier domain.Tier, boundary time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO backfill_cursor (tier, boundary, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tier) DO UPDATE SET boundary = EXCLUDED.boundary, updated_at = now()`,
		string(tier), boundary,
	)
	if err != nil {
		return perr.FromPostgres(err, "sweeps: set cursor")
	}
	return nil
}
