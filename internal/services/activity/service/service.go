// Package service mirrors committed ingest outcomes into ClickHouse.
// Write-only and strictly best effort: the sweep that feeds it treats
// every error here as a warning, never as a failure.
package service

import (
	"context"
	"time"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/store"
	ingestdom "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
	sweepsdom "github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
)

// insertTarget names the table and column order PageOutcomes appends in
const insertTarget = `ingest_events (ts, run_id, tier, notice_id, action, version)`

// Service implements the activity mirror
type Service struct {
	CH store.Clickhouse
}

// New constructs the mirror or panics without a ClickHouse connection
func New(ch store.Clickhouse) *Service {
	if ch == nil {
		panic("activity.Service requires a non nil Clickhouse")
	}
	return &Service{CH: ch}
}

// PageOutcomes sends one committed page's events as a single batch
func (s *Service) PageOutcomes(ctx context.Context, runID string, tier sweepsdom.Tier, at time.Time, events []ingestdom.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []any{
			at.UTC(), runID, string(tier), ev.NoticeID, string(ev.Action), uint32(ev.Version),
		})
	}
	if err := s.CH.Insert(ctx, insertTarget, rows); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "activity: mirror page outcomes")
	}
	return nil
}

var _ sweepsdom.MirrorPort = (*Service)(nil)
