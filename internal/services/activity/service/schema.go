package service

import (
	"context"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/store"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ingest_events (
		ts        DateTime('UTC'),
		run_id    String,
		tier      LowCardinality(String),
		notice_id String,
		action    LowCardinality(String),
		version   UInt32
	)
	ENGINE = MergeTree
	PARTITION BY toYYYYMM(ts)
	ORDER BY (ts, run_id, notice_id)`,
}

// EnsureSchema creates the mirror table
func EnsureSchema(ctx context.Context, ch store.Clickhouse) error {
	for _, stmt := range schema {
		if err := ch.Exec(ctx, stmt); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "activity: ensure schema")
		}
	}
	return nil
}
