package repo

import (
	"context"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS alert_destinations (
		id         uuid PRIMARY KEY,
		rule_id    uuid REFERENCES rules(id) ON DELETE CASCADE,
		method     text NOT NULL,
		target     jsonb NOT NULL DEFAULT '{}'::jsonb,
		is_active  boolean NOT NULL DEFAULT true,
		created_at timestamptz NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS alert_deliveries (
		rule_id        uuid NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
		notice_id      text NOT NULL REFERENCES opportunities(notice_id) ON DELETE CASCADE,
		destination_id uuid NOT NULL REFERENCES alert_destinations(id) ON DELETE CASCADE,
		emitted_at     timestamptz NOT NULL,
		status         text NOT NULL,
		PRIMARY KEY (rule_id, notice_id, destination_id)
	)`,
}

// EnsureSchema creates the alert tables. Runs after the rules schema
// since both tables reference rules
func EnsureSchema(ctx context.Context, q repokit.Queryer) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return perr.FromPostgres(err, "alerts: ensure schema")
		}
	}
	return nil
}
