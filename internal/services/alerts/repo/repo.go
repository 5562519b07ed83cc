// Package repo provides the Postgres bindings for alert destinations
// and deliveries
package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

const destColumns = `id, rule_id, method, target, is_active, created_at`

func (r *queries) Insert(ctx context.Context, d domain.Destination) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO alert_destinations (`+destColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.RuleID, string(d.Method), []byte(d.Target), d.IsActive, d.CreatedAt)
	if err != nil {
		return perr.FromPostgresf(err, "alerts: insert destination %s", d.ID)
	}
	return nil
}

func (r *queries) Update(ctx context.Context, d domain.Destination) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE alert_destinations
		SET target = $2, is_active = $3
		WHERE id = $1
	`, d.ID, []byte(d.Target), d.IsActive)
	if err != nil {
		return perr.FromPostgresf(err, "alerts: update destination %s", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return perr.Newf(perr.ErrorCodeNotFound, "alerts: destination %s not found", d.ID)
	}
	return nil
}

func (r *queries) Get(ctx context.Context, id string) (domain.Destination, bool, error) {
	d, err := scanDest(r.q.QueryRow(ctx, `
		SELECT `+destColumns+` FROM alert_destinations WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Destination{}, false, nil
	}
	if err != nil {
		return domain.Destination{}, false, perr.FromPostgresf(err, "alerts: get destination %s", id)
	}
	return d, true, nil
}

func (r *queries) List(ctx context.Context) ([]domain.Destination, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+destColumns+` FROM alert_destinations ORDER BY created_at, id
	`)
	if err != nil {
		return nil, perr.FromPostgres(err, "alerts: list destinations")
	}
	defer rows.Close()

	var out []domain.Destination
	for rows.Next() {
		d, err := scanDest(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "alerts: scan destination")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "alerts: list destinations")
	}
	return out, nil
}

func (r *queries) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM alert_destinations WHERE id = $1`, id)
	if err != nil {
		return false, perr.FromPostgresf(err, "alerts: delete destination %s", id)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) Active(ctx context.Context, ruleID string) ([]domain.Destination, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+destColumns+` FROM alert_destinations
		WHERE is_active AND (rule_id IS NULL OR rule_id = $1)
		ORDER BY created_at, id
	`, ruleID)
	if err != nil {
		return nil, perr.FromPostgresf(err, "alerts: list destinations for rule %s", ruleID)
	}
	defer rows.Close()

	var out []domain.Destination
	for rows.Next() {
		d, err := scanDest(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "alerts: scan destination")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgresf(err, "alerts: list destinations for rule %s", ruleID)
	}
	return out, nil
}

func (r *queries) RecordDelivery(ctx context.Context, d domain.Delivery) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO alert_deliveries (rule_id, notice_id, destination_id, emitted_at, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`, d.RuleID, d.NoticeID, d.DestinationID, d.EmittedAt, d.Status)
	if err != nil {
		return false, perr.FromPostgresf(err, "alerts: record delivery %s/%s", d.RuleID, d.NoticeID)
	}
	return tag.RowsAffected() == 1, nil
}

func scanDest(row interface{ Scan(dest ...any) error }) (domain.Destination, error) {
	var (
		d      domain.Destination
		method string
		target []byte
	)
	err := row.Scan(&d.ID, &d.RuleID, &method, &target, &d.IsActive, &d.CreatedAt)
	if err != nil {
		return domain.Destination{}, err
	}
	d.Method = domain.Method(method)
	d.Target = target
	return d, nil
}
