// Package service implements the sweep orchestrator: it plans tier
// windows, pages through the source under the budget governor, commits
// each page in its own transaction, and books the run's lifecycle.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BlueFrogAnalytics/SamBot/internal/adapters/source/sam"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/logger"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/budget"
	ingestdom "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
)

// Config holds configuration options for the orchestrator
type Config struct {
	Planner PlannerConfig

	SearchLimit int           // page size; <=0 -> 100, capped at the wire maximum
	PageRetries int           // total attempts per page; <=0 -> 5
	RetryBase   time.Duration // backoff base between page attempts; <=0 -> 500ms
	RetryCap    time.Duration // backoff ceiling; <=0 -> 30s

	HotEvery  time.Duration // serve mode hot cadence; <=0 -> 15m
	WarmEvery time.Duration // serve mode warm cadence; <=0 -> 1h
}

// Service drives sweeps end to end. It owns run bookkeeping and the
// cold cursor; page contents belong to the detector
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Search domain.SearchPort
	Gov    domain.GovernorPort
	Detect domain.DetectorPort
	Follow domain.FollowerPort
	Mirror domain.MirrorPort    // nil skips mirroring
	Rules  domain.EvaluatorPort // nil skips post-sweep evaluation
	Plan   Planner
	Cfg    Config

	// Retry builds one page's retry machine; a fresh one per page so
	// attempts never leak across pages
	Retry func() domain.PageRetry

	now func() time.Time
}

// New constructs the orchestrator or panics on missing hard deps.
// Mirror and Rules may be nil
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], ports domain.Ports, cfg Config) *Service {
	if db == nil {
		panic("sweeps.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("sweeps.Service requires a non nil Repo binder")
	}
	if ports.Search == nil {
		panic("sweeps.Service requires a non nil Search port")
	}
	if ports.Governor == nil {
		panic("sweeps.Service requires a non nil Governor port")
	}
	if ports.Detector == nil {
		panic("sweeps.Service requires a non nil Detector port")
	}
	if ports.Follower == nil {
		panic("sweeps.Service requires a non nil Follower port")
	}

	s := &Service{
		DB:     db,
		Binder: binder,
		Search: ports.Search,
		Gov:    ports.Governor,
		Detect: ports.Detector,
		Follow: ports.Follower,
		Mirror: ports.Mirror,
		Rules:  ports.Rules,
		Plan:   Planner{Cfg: cfg.Planner},
		Cfg:    cfg,
		now:    time.Now,
	}
	s.Retry = func() domain.PageRetry {
		return budget.NewBackoff(budget.BackoffConfig{
			Base:        cfg.RetryBase,
			Cap:         cfg.RetryCap,
			MaxAttempts: cfg.PageRetries,
		})
	}
	return s
}

// RunTier executes one sweep for the hot or warm tier. The returned
// error covers bookkeeping failures only; page failures land in the
// run's status and error text
func (s *Service) RunTier(ctx context.Context, tier domain.Tier) (domain.Run, error) {
	now := s.now().UTC()

	var windows []domain.WindowRequest
	switch tier {
	case domain.TierHot:
		windows = s.Plan.Hot(now)
	case domain.TierWarm:
		windows = s.Plan.Warm(now)
	default:
		return domain.Run{}, perr.Newf(perr.ErrorCodeInvalidArgument, "sweeps: tier %q has no schedule", tier)
	}
	return s.sweep(ctx, tier, windows)
}

// RunBackfill walks cold windows backward from the cursor until the
// floor, a failed run, or ctx ends. The cursor advances after every
// completed window, so a restart resumes exactly where the last
// completed window began. Partial runs advance too: every page of a
// partial run committed, only follow-up fetches were lost
func (s *Service) RunBackfill(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		boundary, have, err := s.repo().Cursor(ctx, domain.TierCold)
		if err != nil {
			return err
		}
		w, ok := s.Plan.NextCold(s.now().UTC(), boundary, have)
		if !ok {
			logger.C(ctx).Info().Msg("sweeps: backfill caught up")
			return nil
		}

		run, err := s.sweep(ctx, domain.TierCold, []domain.WindowRequest{w})
		if err != nil {
			return err
		}
		if run.Status == domain.RunFailed {
			return perr.Newf(perr.ErrorCodeUnknown, "sweeps: cold run %s failed: %s", run.ID, run.Error)
		}
		if err := s.repo().SetCursor(ctx, domain.TierCold, w.From); err != nil {
			return err
		}
	}
}

// RunRange sweeps an explicit date range in cold-sized windows, newest
// first, without touching the persisted cursor. Each window gets its
// own run row
func (s *Service) RunRange(ctx context.Context, from, to time.Time) error {
	windows := s.Plan.Chunk(from, to)
	if len(windows) == 0 {
		return perr.New(perr.ErrorCodeInvalidArgument, "sweeps: empty range")
	}

	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return err
		}
		run, err := s.sweep(ctx, domain.TierCold, []domain.WindowRequest{w})
		if err != nil {
			return err
		}
		if run.Status == domain.RunFailed {
			return perr.Newf(perr.ErrorCodeUnknown,
				"sweeps: range window %s to %s failed: %s",
				w.From.Format("2006-01-02"), w.To.Format("2006-01-02"), run.Error)
		}
	}
	return nil
}

// PlanCold previews the next n cold windows without running anything
func (s *Service) PlanCold(ctx context.Context, n int) ([]domain.WindowRequest, error) {
	if n <= 0 {
		n = 1
	}
	boundary, have, err := s.repo().Cursor(ctx, domain.TierCold)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	out := make([]domain.WindowRequest, 0, n)
	for len(out) < n {
		w, ok := s.Plan.NextCold(now, boundary, have)
		if !ok {
			break
		}
		out = append(out, w)
		boundary, have = w.From, true
	}
	return out, nil
}

// sweep runs one tier pass over the given windows as a single run
func (s *Service) sweep(ctx context.Context, tier domain.Tier, windows []domain.WindowRequest) (domain.Run, error) {
	if len(windows) == 0 {
		return domain.Run{}, perr.New(perr.ErrorCodeInvalidArgument, "sweeps: no windows planned")
	}

	start := s.now().UTC()
	run := domain.Run{
		ID:         uuid.NewString(),
		Tier:       tier,
		WindowFrom: windows[0].From,
		WindowTo:   windows[0].To,
		StartedAt:  start,
		Status:     domain.RunRunning,
	}
	for _, w := range windows[1:] {
		if w.From.Before(run.WindowFrom) {
			run.WindowFrom = w.From
		}
		if w.To.After(run.WindowTo) {
			run.WindowTo = w.To
		}
	}

	if err := s.repo().OpenRun(ctx, run); err != nil {
		return run, err
	}

	// downstream log lines (detector, pool, mirror) all carry the run id
	ctx = logger.WithRun(ctx, run.ID)
	log := logger.C(ctx).With().Str("tier", string(tier)).Logger()
	log.Info().
		Time("from", run.WindowFrom).Time("to", run.WindowTo).
		Msg("sweeps: run start")

	pool := s.Follow.StartPool(ctx)
	pages := 0
	var sweepErr error

windows:
	for _, w := range windows {
		offset := 0
		for {
			// cancellation is cooperative between pages
			if err := ctx.Err(); err != nil {
				sweepErr = err
				break windows
			}

			page, err := s.fetchPage(ctx, tier, w, offset)
			if err != nil {
				sweepErr = err
				break windows
			}
			res, err := s.commitPage(ctx, run.ID, page.Records)
			if err != nil {
				sweepErr = err
				break windows
			}
			pages++
			pool.Submit(res.FollowUps)
			s.mirror(ctx, run, res.Events)

			got := len(page.Records)
			offset += got
			if got < s.searchLimit() || (page.TotalCount > 0 && offset >= page.TotalCount) {
				break
			}
		}
	}

	// drain even after a failure; a canceled pool consumes without fetching
	fu := pool.Drain()

	status := domain.RunSucceeded
	errText := ""
	switch {
	case sweepErr != nil:
		status = domain.RunFailed
		errText = sweepErr.Error()
	case fu.Failures > 0:
		status = domain.RunPartial
	}

	// run bookkeeping must land even when the sweep's ctx was canceled
	finCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	finish := s.now().UTC()
	if err := s.repo().BumpMetrics(finCtx, run.ID, map[string]int64{
		domain.MetricPages:               int64(pages),
		domain.MetricDescriptionsFetched: int64(fu.Descriptions),
		domain.MetricAttachmentsFetched:  int64(fu.Attachments),
		domain.MetricFollowUpFailures:    int64(fu.Failures),
		domain.MetricDurationMS:          finish.Sub(start).Milliseconds(),
	}); err != nil {
		log.Error().Err(err).Msg("sweeps: final metric flush failed")
	}

	finished, err := s.repo().FinishRun(finCtx, run.ID, status, errText, finish)
	if err != nil {
		log.Error().Err(err).Msg("sweeps: finish run failed")
		return run, err
	}
	if !finished {
		log.Warn().Msg("sweeps: run was already terminal")
	}
	run.Status = status
	run.Error = errText
	run.FinishedAt = &finish

	log.Info().
		Str("status", string(status)).
		Int("pages", pages).
		Int("descriptions", fu.Descriptions).
		Int("attachments", fu.Attachments).
		Int("failures", fu.Failures).
		Msg("sweeps: run finished")

	return run, nil
}

// fetchPage acquires budget and searches one page, retrying transient
// failures on a fresh retry machine. A budget-exhausted acquire is
// terminal for the sweep
func (s *Service) fetchPage(ctx context.Context, tier domain.Tier, w domain.WindowRequest, offset int) (sam.Page, error) {
	retry := s.Retry()
	for {
		if err := s.Gov.Acquire(ctx, 1); err != nil {
			return sam.Page{}, err
		}

		page, rate, err := s.Search.Search(ctx, s.query(tier, w, offset))
		// sync on every response; error replies still carry headers
		s.Gov.Sync(budget.FromRate(rate))
		if err == nil {
			return page, nil
		}
		if !perr.Retryable(err) {
			return sam.Page{}, err
		}
		delay, _ := perr.RetryAfterOf(err)
		if !retry.Fail(delay) {
			return sam.Page{}, err
		}

		logger.C(ctx).Warn().Err(err).
			Str("tier", string(tier)).Int("offset", offset).
			Msg("sweeps: page fetch retrying")
		if werr := retry.Wait(ctx); werr != nil {
			return sam.Page{}, werr
		}
	}
}

// commitPage routes one page through the detector and books its
// counters in the same transaction, so a committed page always has its
// metrics and vice versa
func (s *Service) commitPage(ctx context.Context, runID string, recs []ingestdom.Record) (ingestdom.PageResult, error) {
	var res ingestdom.PageResult
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		r, err := s.Detect.ProcessPage(ctx, q, recs)
		if err != nil {
			return err
		}
		res = r
		return s.Binder.Bind(q).BumpMetrics(ctx, runID, map[string]int64{
			domain.MetricProcessed:         int64(r.Processed),
			domain.MetricCreated:           int64(r.Created),
			domain.MetricUpdated:           int64(r.Updated),
			domain.MetricUnchanged:         int64(r.Unchanged),
			domain.MetricConflicts:         int64(r.Conflicts),
			domain.MetricAttachmentsQueued: int64(r.AttachmentsQueued),
		})
	})
	return res, err
}

// mirror forwards committed page outcomes to the activity sink. Mirror
// failures never fail the sweep
func (s *Service) mirror(ctx context.Context, run domain.Run, events []ingestdom.Event) {
	if s.Mirror == nil || len(events) == 0 {
		return
	}
	if err := s.Mirror.PageOutcomes(ctx, run.ID, run.Tier, s.now().UTC(), events); err != nil {
		logger.C(ctx).Warn().Err(err).Str("run_id", run.ID).Msg("sweeps: activity mirror write failed")
	}
}

// query builds the page request for a tier window. Warm sweeps bounded
// by update date move the real bounds to the modified filters; the
// source still requires a posted range, which gets a year-wide envelope
func (s *Service) query(tier domain.Tier, w domain.WindowRequest, offset int) sam.Query {
	q := sam.Query{From: w.From, To: w.To, Offset: offset, Limit: s.searchLimit()}
	if tier == domain.TierWarm && s.Cfg.Planner.WarmBoundary == WarmBoundaryUpdated {
		q.Filters = map[string]string{
			"modifiedFrom": sam.FormatDate(w.From),
			"modifiedTo":   sam.FormatDate(w.To),
		}
		q.From = w.To.AddDate(-1, 0, 0)
		q.To = w.To
	}
	return q
}

func (s *Service) searchLimit() int {
	l := s.Cfg.SearchLimit
	if l <= 0 {
		l = 100
	}
	return min(l, sam.MaxLimit)
}

func (s *Service) repo() domain.StorageRepo {
	return s.Binder.Bind(s.DB)
}
