// Package repo provides postgres reads for the runs surface
package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

// Repo is the minimal persistence surface for run reporting
type Repo interface {
	Recent(ctx context.Context, tier string, limit int) ([]RowRun, error)
	ByID(ctx context.Context, id string) (RowRun, bool, error)
	MetricsFor(ctx context.Context, id string) (map[string]int64, error)
	LastPerTier(ctx context.Context) ([]RowRun, error)
	Counts(ctx context.Context) (RowCounts, error)

	// RequestsSince sums the request-shaped run counters for runs
	// started at or after the cutoff
	RequestsSince(ctx context.Context, since time.Time) (int64, error)
}

// RowRun mirrors one runs table row
type RowRun struct {
	ID         string
	Tier       string
	WindowFrom time.Time
	WindowTo   time.Time
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Error      string
}

// RowCounts carries stored record totals
type RowCounts struct {
	Opportunities int64
	Descriptions  int64
	Attachments   int64
	Rules         int64
	Matches       int64
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

const runColumns = "id, tier, window_from, window_to, started_at, finished_at, status, error"

func (r *queries) Recent(ctx context.Context, tier string, limit int) ([]RowRun, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE ($1 = '' OR tier = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`, tier, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "runs: list recent")
	}
	defer rows.Close()

	var out []RowRun
	for rows.Next() {
		rr, err := scanRun(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "runs: scan run")
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *queries) ByID(ctx context.Context, id string) (RowRun, bool, error) {
	rr, err := scanRun(r.q.QueryRow(ctx, `
		SELECT `+runColumns+` FROM runs WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return RowRun{}, false, nil
	}
	if err != nil {
		return RowRun{}, false, perr.FromPostgresf(err, "runs: get run %s", id)
	}
	return rr, true, nil
}

func (r *queries) MetricsFor(ctx context.Context, id string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT name, value FROM run_metrics WHERE run_id = $1 ORDER BY name
	`, id)
	if err != nil {
		return nil, perr.FromPostgres(err, "runs: metrics")
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, perr.FromPostgres(err, "runs: scan metric")
		}
		out[name] = value
	}
	return out, rows.Err()
}

func (r *queries) LastPerTier(ctx context.Context) ([]RowRun, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT ON (tier) `+runColumns+` FROM runs
		ORDER BY tier, started_at DESC
	`)
	if err != nil {
		return nil, perr.FromPostgres(err, "runs: last per tier")
	}
	defer rows.Close()

	var out []RowRun
	for rows.Next() {
		rr, err := scanRun(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "runs: scan run")
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *queries) Counts(ctx context.Context) (RowCounts, error) {
	var c RowCounts
	err := r.q.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM opportunities),
			(SELECT count(*) FROM descriptions),
			(SELECT count(*) FROM attachments),
			(SELECT count(*) FROM rules),
			(SELECT count(*) FROM rule_matches)
	`).Scan(&c.Opportunities, &c.Descriptions, &c.Attachments, &c.Rules, &c.Matches)
	if err != nil {
		return RowCounts{}, perr.FromPostgres(err, "runs: counts")
	}
	return c, nil
}

func (r *queries) RequestsSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `
		SELECT coalesce(sum(m.value), 0)
		FROM run_metrics m
		JOIN runs r ON r.id = m.run_id
		WHERE m.name IN ('pages', 'descriptions_fetched', 'attachments_fetched')
		AND r.started_at >= $1
	`, since).Scan(&total)
	if err != nil {
		return 0, perr.FromPostgres(err, "runs: requests since")
	}
	return total, nil
}

func scanRun(row interface{ Scan(dest ...any) error }) (RowRun, error) {
	var rr RowRun
	err := row.Scan(
		&rr.ID, &rr.Tier, &rr.WindowFrom, &rr.WindowTo,
		&rr.StartedAt, &rr.FinishedAt, &rr.Status, &rr.Error,
	)
	return rr, err
}
