package repo

import (
	"context"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rules (
		id                uuid PRIMARY KEY,
		name              text NOT NULL UNIQUE,
		kind              text NOT NULL,
		definition        jsonb NOT NULL,
		description       text NOT NULL DEFAULT '',
		is_active         boolean NOT NULL DEFAULT true,
		last_evaluated_at timestamptz,
		created_at        timestamptz NOT NULL,
		updated_at        timestamptz NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS rule_matches (
		rule_id    uuid NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
		notice_id  text NOT NULL REFERENCES opportunities(notice_id) ON DELETE CASCADE,
		matched_at timestamptz NOT NULL,
		PRIMARY KEY (rule_id, notice_id)
	)`,

	`CREATE INDEX IF NOT EXISTS ix_rule_matches_time
		ON rule_matches (rule_id, matched_at DESC)`,
}

// EnsureSchema creates the rule tables. Runs after the ingest schema
// since rule_matches references opportunities
func EnsureSchema(ctx context.Context, q repokit.Queryer) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return perr.FromPostgres(err, "rules: ensure schema")
		}
	}
	return nil
}
