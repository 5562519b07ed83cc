// Package service assembles run reporting and the operational status view
package service

import (
	"context"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	ptime "github.com/BlueFrogAnalytics/SamBot/internal/platform/time"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/runs/domain"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/runs/repo"
	sweepsdom "github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
)

// Config sizes the status view
type Config struct {
	// DailyBudget is the request cap the status view reports against
	DailyBudget int

	// ListLimit caps run listings; <=0 -> 50
	ListLimit int
}

// Service defines the service contract for the runs API
type Service interface{ domain.ServicePort }

// Svc implements the Service interface
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
	cfg    Config
	now    func() time.Time
}

// New creates a runs service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], cfg Config) *Svc {
	if db == nil {
		panic("runs.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("runs.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db, cfg: cfg, now: time.Now}
}

// Recent lists sweep runs newest first, optionally scoped to one tier
func (s *Svc) Recent(ctx context.Context, tier string, limit int) (domain.RunsResp, error) {
	if tier != "" && !sweepsdom.Tier(tier).Valid() {
		return domain.RunsResp{}, perr.Newf(perr.ErrorCodeValidation, "runs: unknown tier %q", tier)
	}
	lim := s.listLimit()
	if limit > 0 && limit < lim {
		lim = limit
	}

	rows, err := s.Repo.Recent(ctx, tier, lim)
	if err != nil {
		return domain.RunsResp{}, err
	}
	items := make([]domain.RunRow, 0, len(rows))
	for _, rr := range rows {
		items = append(items, toRow(rr))
	}
	return domain.RunsResp{Items: items}, nil
}

// Detail returns one run with its committed counters
func (s *Svc) Detail(ctx context.Context, id string) (domain.RunDetailResp, error) {
	rr, ok, err := s.Repo.ByID(ctx, id)
	if err != nil {
		return domain.RunDetailResp{}, err
	}
	if !ok {
		return domain.RunDetailResp{}, perr.Newf(perr.ErrorCodeNotFound, "runs: run %s not found", id)
	}
	metrics, err := s.Repo.MetricsFor(ctx, id)
	if err != nil {
		return domain.RunDetailResp{}, err
	}
	return domain.RunDetailResp{Run: toRow(rr), Metrics: metrics}, nil
}

// Status reports the last run per tier, record totals, and the request
// spend booked against today's budget
func (s *Svc) Status(ctx context.Context) (domain.StatusResp, error) {
	last, err := s.Repo.LastPerTier(ctx)
	if err != nil {
		return domain.StatusResp{}, err
	}
	counts, err := s.Repo.Counts(ctx)
	if err != nil {
		return domain.StatusResp{}, err
	}
	used, err := s.Repo.RequestsSince(ctx, ptime.DayUTC(s.now()))
	if err != nil {
		return domain.StatusResp{}, err
	}

	byTier := map[string]repo.RowRun{}
	for _, rr := range last {
		byTier[rr.Tier] = rr
	}
	tiers := make([]domain.TierStatus, 0, 3)
	for _, t := range []sweepsdom.Tier{sweepsdom.TierHot, sweepsdom.TierWarm, sweepsdom.TierCold} {
		ts := domain.TierStatus{Tier: string(t)}
		if rr, ok := byTier[string(t)]; ok {
			row := toRow(rr)
			ts.LastRun = &row
		}
		tiers = append(tiers, ts)
	}

	limit := s.dailyBudget()
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	return domain.StatusResp{
		Tiers: tiers,
		Counts: domain.TableCounts{
			Opportunities: counts.Opportunities,
			Descriptions:  counts.Descriptions,
			Attachments:   counts.Attachments,
			Rules:         counts.Rules,
			Matches:       counts.Matches,
		},
		Budget: domain.BudgetStatus{
			DailyLimit: limit,
			UsedToday:  used,
			Remaining:  remaining,
		},
	}, nil
}

func (s *Svc) listLimit() int {
	if s.cfg.ListLimit > 0 {
		return s.cfg.ListLimit
	}
	return 50
}

func (s *Svc) dailyBudget() int64 {
	if s.cfg.DailyBudget > 0 {
		return int64(s.cfg.DailyBudget)
	}
	return 10000
}

func toRow(rr repo.RowRun) domain.RunRow {
	row := domain.RunRow{
		ID:         rr.ID,
		Tier:       rr.Tier,
		WindowFrom: rr.WindowFrom.Format("2006-01-02"),
		WindowTo:   rr.WindowTo.Format("2006-01-02"),
		StartedAt:  rr.StartedAt.UTC().Format(time.RFC3339),
		Status:     rr.Status,
		Error:      rr.Error,
	}
	if rr.FinishedAt != nil {
		row.FinishedAt = rr.FinishedAt.UTC().Format(time.RFC3339)
	}
	return row
}
