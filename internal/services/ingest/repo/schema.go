package repo

import (
	"context"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

// schema statements run one at a time; all are idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS opportunities (
		notice_id         text PRIMARY KEY,
		title             text NOT NULL DEFAULT '',
		agency            text NOT NULL DEFAULT '',
		sub_tier          text NOT NULL DEFAULT '',
		office            text NOT NULL DEFAULT '',
		notice_type       text NOT NULL DEFAULT '',
		status            text NOT NULL DEFAULT '',
		posted_at         date,
		updated_at        timestamptz,
		response_deadline timestamptz,
		naics_codes       text[] NOT NULL DEFAULT '{}',
		set_aside         text NOT NULL DEFAULT '',
		archived          boolean NOT NULL DEFAULT false,
		content_hash      text NOT NULL,
		version           int NOT NULL DEFAULT 1,
		first_seen_at     timestamptz NOT NULL,
		last_seen_at      timestamptz NOT NULL,
		last_changed_at   timestamptz NOT NULL,
		raw               jsonb
	)`,
	`CREATE INDEX IF NOT EXISTS ix_opportunities_posted_at ON opportunities (posted_at)`,
	`CREATE INDEX IF NOT EXISTS ix_opportunities_last_changed_at ON opportunities (last_changed_at)`,

	`CREATE TABLE IF NOT EXISTS descriptions (
		notice_id  text PRIMARY KEY REFERENCES opportunities(notice_id) ON DELETE CASCADE,
		body       text NOT NULL,
		fetched_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_descriptions_fts
		ON descriptions USING gin (to_tsvector('english', body))`,

	`CREATE TABLE IF NOT EXISTS attachments (
		id           uuid PRIMARY KEY,
		notice_id    text NOT NULL REFERENCES opportunities(notice_id) ON DELETE CASCADE,
		url          text NOT NULL,
		filename     text NOT NULL DEFAULT '',
		sha256       text NOT NULL DEFAULT '',
		size_bytes   bigint NOT NULL DEFAULT 0,
		storage_path text NOT NULL DEFAULT '',
		status       text NOT NULL DEFAULT 'pending',
		attempts     int NOT NULL DEFAULT 0,
		last_error   text NOT NULL DEFAULT '',
		fetched_at   timestamptz,
		UNIQUE (notice_id, url)
	)`,

	`CREATE TABLE IF NOT EXISTS awards (
		notice_id    text PRIMARY KEY REFERENCES opportunities(notice_id) ON DELETE CASCADE,
		award_date   text NOT NULL DEFAULT '',
		award_number text NOT NULL DEFAULT '',
		award_amount numeric,
		awardee_name text NOT NULL DEFAULT '',
		awardee_uei  text NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS contacts (
		id        uuid PRIMARY KEY,
		notice_id text NOT NULL REFERENCES opportunities(notice_id) ON DELETE CASCADE,
		kind      text NOT NULL DEFAULT '',
		full_name text NOT NULL DEFAULT '',
		email     text NOT NULL DEFAULT '',
		phone     text NOT NULL DEFAULT '',
		title     text NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS ix_contacts_notice ON contacts (notice_id)`,
}

// EnsureSchema creates the record tables when missing
func EnsureSchema(ctx context.Context, q repokit.Queryer) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return perr.FromPostgres(err, "ingest: ensure schema")
		}
	}
	return nil
}
