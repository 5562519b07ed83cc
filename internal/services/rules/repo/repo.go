// Package repo provides the Postgres bindings for rules and matches
package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
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

const ruleColumns = `id, name, kind, definition, description, is_active, last_evaluated_at, created_at, updated_at`

func (r *queries) Insert(ctx context.Context, ru domain.Rule) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $7)
	`,
		ru.ID, ru.Name, string(ru.Kind), []byte(ru.Definition), ru.Description,
		ru.IsActive, ru.CreatedAt,
	)
	if err != nil {
		return perr.FromPostgresf(err, "rules: insert rule %s", ru.Name)
	}
	return nil
}

func (r *queries) UpdateMeta(ctx context.Context, ru domain.Rule) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE rules
		SET name = $2, description = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`, ru.ID, ru.Name, ru.Description, ru.IsActive, ru.UpdatedAt)
	if err != nil {
		return perr.FromPostgresf(err, "rules: update rule %s", ru.ID)
	}
	if tag.RowsAffected() == 0 {
		return perr.Newf(perr.ErrorCodeNotFound, "rules: rule %s not found", ru.ID)
	}
	return nil
}

func (r *queries) Get(ctx context.Context, id string) (domain.Rule, bool, error) {
	ru, err := scanRule(r.q.QueryRow(ctx, `
		SELECT `+ruleColumns+` FROM rules WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Rule{}, false, nil
	}
	if err != nil {
		return domain.Rule{}, false, perr.FromPostgresf(err, "rules: get rule %s", id)
	}
	return ru, true, nil
}

func (r *queries) List(ctx context.Context, onlyActive bool) ([]domain.Rule, error) {
	q := `SELECT ` + ruleColumns + ` FROM rules ORDER BY name`
	if onlyActive {
		q = `SELECT ` + ruleColumns + ` FROM rules WHERE is_active ORDER BY name`
	}
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, perr.FromPostgres(err, "rules: list rules")
	}
	defer rows.Close()

	var out []domain.Rule
	for rows.Next() {
		ru, err := scanRule(rows)
		if err != nil {
			return nil, perr.FromPostgres(err, "rules: scan rule")
		}
		out = append(out, ru)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "rules: list rules")
	}
	return out, nil
}

// Candidates runs a compiled rule query. The SQL arrives fully built from
// the criteria compiler; values travel as binds
func (r *queries) Candidates(ctx context.Context, sqlText string, args []any) ([]string, error) {
	rows, err := r.q.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "rules: run rule query")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, perr.FromPostgres(err, "rules: scan candidate")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgres(err, "rules: run rule query")
	}
	return ids, nil
}

func (r *queries) InsertMatch(ctx context.Context, ruleID, noticeID string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO rule_matches (rule_id, notice_id, matched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, ruleID, noticeID, at)
	if err != nil {
		return false, perr.FromPostgresf(err, "rules: insert match %s/%s", ruleID, noticeID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queries) SetEvaluated(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE rules SET last_evaluated_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return perr.FromPostgresf(err, "rules: stamp evaluation for %s", id)
	}
	return nil
}

func (r *queries) Matches(ctx context.Context, ruleID string, limit int, before time.Time) ([]domain.Match, error) {
	q := `
		SELECT rule_id, notice_id, matched_at
		FROM rule_matches
		WHERE rule_id = $1
		ORDER BY matched_at DESC, notice_id
		LIMIT $2`
	args := []any{ruleID, limit}
	if !before.IsZero() {
		q = `
		SELECT rule_id, notice_id, matched_at
		FROM rule_matches
		WHERE rule_id = $1 AND matched_at < $3
		ORDER BY matched_at DESC, notice_id
		LIMIT $2`
		args = append(args, before)
	}

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, perr.FromPostgresf(err, "rules: list matches for %s", ruleID)
	}
	defer rows.Close()

	var out []domain.Match
	for rows.Next() {
		var m domain.Match
		if err := rows.Scan(&m.RuleID, &m.NoticeID, &m.MatchedAt); err != nil {
			return nil, perr.FromPostgres(err, "rules: scan match")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgresf(err, "rules: list matches for %s", ruleID)
	}
	return out, nil
}

// scanRule reads one rule row from either a Row or Rows
func scanRule(row interface{ Scan(dest ...any) error }) (domain.Rule, error) {
	var (
		ru   domain.Rule
		kind string
		def  []byte
	)
	err := row.Scan(&ru.ID, &ru.Name, &kind, &def, &ru.Description,
		&ru.IsActive, &ru.LastEvaluatedAt, &ru.CreatedAt, &ru.UpdatedAt)
	if err != nil {
		return domain.Rule{}, err
	}
	ru.Kind = domain.RuleKind(kind)
	ru.Definition = def
	return ru, nil
}
