package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/adapters/source/sam"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/store"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/testkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/budget"
	ingestdom "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
)

type fakeQ struct{}

func (f *fakeQ) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	var zero store.CommandTag
	return zero, nil
}

func (f *fakeQ) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	var zero store.Rows
	return zero, nil
}

func (f *fakeQ) QueryRow(ctx context.Context, sql string, args ...any) store.Row { return nil }

// fakeTx satisfies repokit.TxRunner; each Tx call is one page commit
type fakeTx struct {
	fakeQ
	mu  sync.Mutex
	txs int
}

func (f *fakeTx) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	f.mu.Lock()
	f.txs++
	f.mu.Unlock()
	return fn(&f.fakeQ)
}

type finishCall struct {
	id      string
	status  domain.RunStatus
	errText string
}

// fakeRunRepo implements domain.StorageRepo in memory. Writes refuse a
// dead ctx the way a real pool would, so finalization after cancel only
// works when the service hands over a live context
type fakeRunRepo struct {
	mu sync.Mutex

	openErr error

	opened   []domain.Run
	finishes []finishCall
	metrics  map[string]map[string]int64

	cursor     time.Time
	haveCursor bool
	setCursors []time.Time
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{metrics: map[string]map[string]int64{}}
}

func (f *fakeRunRepo) OpenRun(ctx context.Context, r domain.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, r)
	return nil
}

func (f *fakeRunRepo) FinishRun(ctx context.Context, id string, status domain.RunStatus, errText string, _ time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishes = append(f.finishes, finishCall{id: id, status: status, errText: errText})
	return true, nil
}

func (f *fakeRunRepo) BumpMetrics(ctx context.Context, runID string, deltas map[string]int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.metrics[runID]
	if m == nil {
		m = map[string]int64{}
		f.metrics[runID] = m
	}
	for name, v := range deltas {
		m[name] += v
	}
	return nil
}

func (f *fakeRunRepo) Cursor(_ context.Context, _ domain.Tier) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor, f.haveCursor, nil
}

func (f *fakeRunRepo) SetCursor(_ context.Context, _ domain.Tier, boundary time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor, f.haveCursor = boundary, true
	f.setCursors = append(f.setCursors, boundary)
	return nil
}

// fakeBinder hands back the same repo for any queryer
type fakeBinder struct{ repo *fakeRunRepo }

func (b fakeBinder) Bind(_ repokit.Queryer) domain.StorageRepo { return b.repo }

type searchReply struct {
	page sam.Page
	rate sam.Rate
	err  error
}

// fakeSearch replays scripted replies, keeping the last one sticky, and
// records every query
type fakeSearch struct {
	mu      sync.Mutex
	replies []searchReply
	queries []sam.Query

	cancelAfter context.CancelFunc // invoked after the first reply when set
}

func (f *fakeSearch) Search(_ context.Context, q sam.Query) (sam.Page, sam.Rate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.cancelAfter != nil && len(f.queries) == 1 {
		f.cancelAfter()
	}
	if len(f.replies) == 0 {
		return sam.Page{}, sam.Rate{}, nil
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r.page, r.rate, r.err
}

// fakeGov approves every acquire unless err is set
type fakeGov struct {
	mu       sync.Mutex
	err      error
	acquires int
	synced   []budget.Snapshot
}

func (f *fakeGov) Acquire(_ context.Context, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	return f.err
}

func (f *fakeGov) Sync(s budget.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, s)
}

type detectReply struct {
	res ingestdom.PageResult
	err error
}

// fakeDetect scripts per-page outcomes; past the script every page reads
// as all unchanged
type fakeDetect struct {
	mu      sync.Mutex
	replies []detectReply
	pages   []int // record count per call
}

func (f *fakeDetect) ProcessPage(_ context.Context, _ repokit.Queryer, recs []ingestdom.Record) (ingestdom.PageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, len(recs))
	if len(f.replies) == 0 {
		return ingestdom.PageResult{Processed: len(recs), Unchanged: len(recs)}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.res, r.err
}

// fakePool records submissions and returns canned stats on drain
type fakePool struct {
	mu        sync.Mutex
	stats     ingestdom.FollowUpStats
	submitted []ingestdom.FollowUp
	drains    int
}

func (f *fakePool) Submit(fus []ingestdom.FollowUp) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, fus...)
}

func (f *fakePool) Drain() ingestdom.FollowUpStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drains++
	return f.stats
}

type fakeFollower struct {
	mu    sync.Mutex
	stats ingestdom.FollowUpStats
	pools []*fakePool
}

func (f *fakeFollower) StartPool(_ context.Context) ingestdom.PoolPort {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePool{stats: f.stats}
	f.pools = append(f.pools, p)
	return p
}

type mirrorCall struct {
	runID string
	tier  domain.Tier
	count int
}

type fakeMirror struct {
	mu    sync.Mutex
	err   error
	calls []mirrorCall
}

func (f *fakeMirror) PageOutcomes(_ context.Context, runID string, tier domain.Tier, _ time.Time, events []ingestdom.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, mirrorCall{runID: runID, tier: tier, count: len(events)})
	return f.err
}

// fakeEval counts evaluations and closes done when want is reached
type fakeEval struct {
	mu    sync.Mutex
	err   error
	calls int
	want  int
	done  chan struct{}
}

func (f *fakeEval) EvaluateActive(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.done != nil && f.calls == f.want {
		close(f.done)
	}
	return f.err
}

// fakeRetry allows a fixed number of retries without sleeping
type fakeRetry struct {
	allow int
	fails []time.Duration
	waits int
}

func (f *fakeRetry) Fail(serverDelay time.Duration) bool {
	f.fails = append(f.fails, serverDelay)
	return len(f.fails) <= f.allow
}

func (f *fakeRetry) Wait(_ context.Context) error {
	f.waits++
	return nil
}

type harness struct {
	svc    *Service
	tx     *fakeTx
	repo   *fakeRunRepo
	search *fakeSearch
	gov    *fakeGov
	detect *fakeDetect
	follow *fakeFollower
	mirror *fakeMirror
	retry  *fakeRetry
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		tx:     &fakeTx{},
		repo:   newFakeRunRepo(),
		search: &fakeSearch{},
		gov:    &fakeGov{},
		detect: &fakeDetect{},
		follow: &fakeFollower{},
		mirror: &fakeMirror{},
		retry:  &fakeRetry{allow: 50},
	}
	h.svc = New(h.tx, fakeBinder{repo: h.repo}, domain.Ports{
		Search:   h.search,
		Governor: h.gov,
		Detector: h.detect,
		Follower: h.follow,
		Mirror:   h.mirror,
	}, cfg)
	h.svc.now = func() time.Time { return fixedNow }
	h.svc.Retry = func() domain.PageRetry { return h.retry }
	return h
}

func pageOf(n, total int) sam.Page {
	p := sam.Page{TotalCount: total, Records: make([]ingestdom.Record, n)}
	for i := range p.Records {
		p.Records[i].NoticeID = fmt.Sprintf("N-%d", i)
	}
	return p
}

func TestNew_PanicsOnMissingDeps(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	binder := fakeBinder{repo: newFakeRunRepo()}
	ports := domain.Ports{
		Search:   &fakeSearch{},
		Governor: &fakeGov{},
		Detector: &fakeDetect{},
		Follower: &fakeFollower{},
	}

	testkit.MustPanic(t, func() { New(nil, binder, ports, Config{}) })
	testkit.MustPanic(t, func() { New(tx, nil, ports, Config{}) })

	for _, strip := range []func(p *domain.Ports){
		func(p *domain.Ports) { p.Search = nil },
		func(p *domain.Ports) { p.Governor = nil },
		func(p *domain.Ports) { p.Detector = nil },
		func(p *domain.Ports) { p.Follower = nil },
	} {
		broken := ports
		strip(&broken)
		testkit.MustPanic(t, func() { New(tx, binder, broken, Config{}) })
	}

	// mirror and rules stay optional
	testkit.MustNotPanic(t, func() { New(tx, binder, ports, Config{}) })
}

func TestRunTier_HotSweepHappyPath(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{HotOverlapDays: 1}})
	h.search.replies = []searchReply{{page: pageOf(2, 2)}}
	h.detect.replies = []detectReply{{res: ingestdom.PageResult{
		Processed: 2, Created: 1, Updated: 1,
		Events: []ingestdom.Event{
			{NoticeID: "N-0", Action: ingestdom.ActionCreated, Version: 1},
			{NoticeID: "N-1", Action: ingestdom.ActionUpdated, Version: 2},
		},
		FollowUps: []ingestdom.FollowUp{{Kind: ingestdom.FollowDescription, NoticeID: "N-0"}},
	}}}

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunSucceeded || run.FinishedAt == nil {
		t.Fatalf("run = %s finished %v", run.Status, run.FinishedAt)
	}

	if len(h.repo.opened) != 1 {
		t.Fatalf("opened %d runs", len(h.repo.opened))
	}
	op := h.repo.opened[0]
	if op.Tier != domain.TierHot || !op.WindowFrom.Equal(day(2030, 6, 14)) || !op.WindowTo.Equal(day(2030, 6, 15)) {
		t.Fatalf("opened run window = %v..%v tier %s", op.WindowFrom, op.WindowTo, op.Tier)
	}
	if len(h.repo.finishes) != 1 || h.repo.finishes[0].status != domain.RunSucceeded {
		t.Fatalf("finishes = %+v", h.repo.finishes)
	}

	q := h.search.queries[0]
	if !q.From.Equal(day(2030, 6, 14)) || !q.To.Equal(day(2030, 6, 15)) || q.Offset != 0 || q.Limit != 100 {
		t.Fatalf("query = %+v", q)
	}

	m := h.repo.metrics[run.ID]
	if m[domain.MetricProcessed] != 2 || m[domain.MetricCreated] != 1 || m[domain.MetricUpdated] != 1 {
		t.Fatalf("page metrics = %v", m)
	}
	if m[domain.MetricPages] != 1 {
		t.Fatalf("pages = %d", m[domain.MetricPages])
	}

	if h.tx.txs != 1 {
		t.Fatalf("page transactions = %d", h.tx.txs)
	}
	if h.gov.acquires != 1 || len(h.gov.synced) != 1 {
		t.Fatalf("governor = %d acquires %d syncs", h.gov.acquires, len(h.gov.synced))
	}

	pool := h.follow.pools[0]
	if pool.drains != 1 || len(pool.submitted) != 1 {
		t.Fatalf("pool = %d drains %d submitted", pool.drains, len(pool.submitted))
	}
	if len(h.mirror.calls) != 1 || h.mirror.calls[0].count != 2 || h.mirror.calls[0].tier != domain.TierHot {
		t.Fatalf("mirror = %+v", h.mirror.calls)
	}
}

func TestRunTier_PaginatesUntilShortPage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{SearchLimit: 2, Planner: PlannerConfig{HotOverlapDays: 1}})
	h.search.replies = []searchReply{
		{page: pageOf(2, 5)},
		{page: pageOf(2, 5)},
		{page: pageOf(1, 5)},
	}

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}

	if len(h.search.queries) != 3 {
		t.Fatalf("searches = %d, want 3", len(h.search.queries))
	}
	for i, want := range []int{0, 2, 4} {
		if h.search.queries[i].Offset != want {
			t.Fatalf("query %d offset = %d, want %d", i, h.search.queries[i].Offset, want)
		}
	}

	m := h.repo.metrics[run.ID]
	if m[domain.MetricPages] != 3 || m[domain.MetricProcessed] != 5 || m[domain.MetricUnchanged] != 5 {
		t.Fatalf("metrics = %v", m)
	}
}

func TestRunTier_StopsAtDeclaredTotal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{SearchLimit: 2, Planner: PlannerConfig{HotOverlapDays: 1}})
	// both pages come back full; only the declared total ends the loop
	h.search.replies = []searchReply{
		{page: pageOf(2, 4)},
		{page: pageOf(2, 4)},
	}

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunSucceeded {
		t.Fatalf("status = %s", run.Status)
	}
	if len(h.search.queries) != 2 {
		t.Fatalf("searches = %d, want 2", len(h.search.queries))
	}
}

func TestRunTier_RetriesTransientPage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{HotOverlapDays: 1}})
	h.search.replies = []searchReply{
		{err: perr.RateLimitedFor(30*time.Second, "upstream throttled")},
		{page: pageOf(1, 1)},
	}

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunSucceeded {
		t.Fatalf("status = %s", run.Status)
	}

	if len(h.search.queries) != 2 {
		t.Fatalf("searches = %d, want 2", len(h.search.queries))
	}
	// the server delay reached the retry machine
	if len(h.retry.fails) != 1 || h.retry.fails[0] != 30*time.Second || h.retry.waits != 1 {
		t.Fatalf("retry = fails %v waits %d", h.retry.fails, h.retry.waits)
	}
	// every response synced the governor, the throttled one included
	if h.gov.acquires != 2 || len(h.gov.synced) != 2 {
		t.Fatalf("governor = %d acquires %d syncs", h.gov.acquires, len(h.gov.synced))
	}
}

func TestRunTier_PageRetriesExhaustedFailRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{HotOverlapDays: 1}})
	h.retry.allow = 2
	h.search.replies = []searchReply{{err: perr.New(perr.ErrorCodeTransport, "upstream reset")}}

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunFailed {
		t.Fatalf("status = %s, want failed", run.Status)
	}
	testkit.MustContain(t, run.Error, "upstream reset")

	if len(h.search.queries) != 3 || h.retry.waits != 2 {
		t.Fatalf("searches = %d waits = %d", len(h.search.queries), h.retry.waits)
	}
	if len(h.detect.pages) != 0 {
		t.Fatalf("detector ran %d pages on a dead sweep", len(h.detect.pages))
	}
	if len(h.repo.finishes) != 1 || h.repo.finishes[0].status != domain.RunFailed {
		t.Fatalf("finishes = %+v", h.repo.finishes)
	}
	if h.follow.pools[0].drains != 1 {
		t.Fatal("pool left undrained")
	}
}

func TestRunTier_NonRetryableFailsImmediately(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{HotOverlapDays: 1}})
	h.search.replies = []searchReply{{err: perr.New(perr.ErrorCodeValidation, "bad filters")}}

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunFailed {
		t.Fatalf("status = %s", run.Status)
	}
	if len(h.search.queries) != 1 || len(h.retry.fails) != 0 {
		t.Fatalf("searches = %d retry fails = %d", len(h.search.queries), len(h.retry.fails))
	}
}

func TestRunTier_BudgetExhaustedAbortsSweep(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{HotOverlapDays: 1}})
	h.gov.err = perr.BudgetExhaustedf("hourly budget empty")

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunFailed {
		t.Fatalf("status = %s, want failed", run.Status)
	}
	testkit.MustContain(t, run.Error, "budget")

	// the sweep never reached the wire
	if len(h.search.queries) != 0 {
		t.Fatalf("searches = %d, want 0", len(h.search.queries))
	}
	if len(h.repo.finishes) != 1 || h.repo.finishes[0].status != domain.RunFailed {
		t.Fatalf("finishes = %+v", h.repo.finishes)
	}
}

func TestRunTier_DetectorErrorFailsRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{HotOverlapDays: 1}})
	h.search.replies = []searchReply{{page: pageOf(2, 2)}}
	h.detect.replies = []detectReply{{err: perr.New(perr.ErrorCodeDB, "insert blew up")}}

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunFailed {
		t.Fatalf("status = %s", run.Status)
	}
	testkit.MustContain(t, run.Error, "insert blew up")

	m := h.repo.metrics[run.ID]
	if m[domain.MetricPages] != 0 || m[domain.MetricProcessed] != 0 {
		t.Fatalf("metrics from a failed page = %v", m)
	}
	if len(h.follow.pools[0].submitted) != 0 {
		t.Fatal("follow-ups submitted from an uncommitted page")
	}
}

func TestRunTier_FollowUpFailuresMarkPartial(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{HotOverlapDays: 1}})
	h.follow.stats = ingestdom.FollowUpStats{Descriptions: 2, Attachments: 1, Failures: 1}
	h.search.replies = []searchReply{{page: pageOf(1, 1)}}

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunPartial {
		t.Fatalf("status = %s, want partial", run.Status)
	}

	m := h.repo.metrics[run.ID]
	if m[domain.MetricDescriptionsFetched] != 2 || m[domain.MetricAttachmentsFetched] != 1 || m[domain.MetricFollowUpFailures] != 1 {
		t.Fatalf("follow-up metrics = %v", m)
	}
}

func TestRunTier_MirrorFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{HotOverlapDays: 1}})
	h.mirror.err = perr.New(perr.ErrorCodeUnavailable, "clickhouse away")
	h.search.replies = []searchReply{{page: pageOf(1, 1)}}
	h.detect.replies = []detectReply{{res: ingestdom.PageResult{
		Processed: 1, Created: 1,
		Events: []ingestdom.Event{{NoticeID: "N-0", Action: ingestdom.ActionCreated, Version: 1}},
	}}}

	run, err := h.svc.RunTier(context.Background(), domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunSucceeded {
		t.Fatalf("status = %s", run.Status)
	}
	if len(h.mirror.calls) != 1 {
		t.Fatalf("mirror calls = %d", len(h.mirror.calls))
	}
}

func TestRunTier_RejectsUnknownTier(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	_, err := h.svc.RunTier(context.Background(), domain.Tier("tepid"))
	testkit.MustCode(t, err, perr.ErrorCodeInvalidArgument)
	if len(h.repo.opened) != 0 {
		t.Fatal("a run was opened for an unknown tier")
	}
}

func TestRunTier_CanceledBetweenPages(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{SearchLimit: 2, Planner: PlannerConfig{HotOverlapDays: 1}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.search.cancelAfter = cancel
	h.search.replies = []searchReply{{page: pageOf(2, 10)}}

	run, err := h.svc.RunTier(ctx, domain.TierHot)
	if err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	if run.Status != domain.RunFailed {
		t.Fatalf("status = %s, want failed", run.Status)
	}
	testkit.MustContain(t, run.Error, "context canceled")

	// page one landed before the cancellation was noticed
	if len(h.search.queries) != 1 || len(h.detect.pages) != 1 {
		t.Fatalf("searches = %d detects = %d", len(h.search.queries), len(h.detect.pages))
	}
	m := h.repo.metrics[run.ID]
	if m[domain.MetricProcessed] != 2 || m[domain.MetricPages] != 1 {
		t.Fatalf("metrics = %v", m)
	}
	// finalization still landed with a dead ctx
	if len(h.repo.finishes) != 1 || h.repo.finishes[0].status != domain.RunFailed {
		t.Fatalf("finishes = %+v", h.repo.finishes)
	}
}

func TestRunBackfill_WalksToFloorAndAdvancesCursor(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{ColdWindowDays: 10, ColdFloor: day(2030, 6, 1)}})

	if err := h.svc.RunBackfill(context.Background()); err != nil {
		t.Fatalf("RunBackfill: %v", err)
	}

	if len(h.repo.opened) != 2 {
		t.Fatalf("opened %d runs, want 2", len(h.repo.opened))
	}
	first, second := h.repo.opened[0], h.repo.opened[1]
	if first.Tier != domain.TierCold || !first.WindowFrom.Equal(day(2030, 6, 6)) || !first.WindowTo.Equal(day(2030, 6, 15)) {
		t.Fatalf("first window = %v..%v", first.WindowFrom, first.WindowTo)
	}
	if !second.WindowFrom.Equal(day(2030, 6, 1)) || !second.WindowTo.Equal(day(2030, 6, 5)) {
		t.Fatalf("second window = %v..%v", second.WindowFrom, second.WindowTo)
	}

	want := []time.Time{day(2030, 6, 6), day(2030, 6, 1)}
	if len(h.repo.setCursors) != len(want) {
		t.Fatalf("cursor writes = %v", h.repo.setCursors)
	}
	for i := range want {
		if !h.repo.setCursors[i].Equal(want[i]) {
			t.Fatalf("cursor write %d = %v, want %v", i, h.repo.setCursors[i], want[i])
		}
	}
}

func TestRunBackfill_FailedWindowHoldsCursorThenResumes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{ColdWindowDays: 10, ColdFloor: day(2030, 6, 1)}})
	h.search.replies = []searchReply{
		{page: sam.Page{}},
		{err: perr.New(perr.ErrorCodeValidation, "bad filters")},
	}

	err := h.svc.RunBackfill(context.Background())
	if err == nil {
		t.Fatal("RunBackfill swallowed a failed window")
	}
	testkit.MustContain(t, err.Error(), "bad filters")

	// only the completed window advanced the cursor
	if len(h.repo.setCursors) != 1 || !h.repo.setCursors[0].Equal(day(2030, 6, 6)) {
		t.Fatalf("cursor writes = %v", h.repo.setCursors)
	}

	// a fresh walk replans exactly the failed window
	h.search.mu.Lock()
	h.search.replies = []searchReply{{page: sam.Page{}}}
	before := len(h.search.queries)
	h.search.mu.Unlock()

	if err := h.svc.RunBackfill(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	q := h.search.queries[before]
	if !q.From.Equal(day(2030, 6, 1)) || !q.To.Equal(day(2030, 6, 5)) {
		t.Fatalf("resumed window = %v..%v, want 2030-06-01..2030-06-05", q.From, q.To)
	}
}

func TestRunBackfill_PartialRunStillAdvances(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{ColdWindowDays: 10, ColdFloor: day(2030, 6, 6)}})
	h.follow.stats = ingestdom.FollowUpStats{Failures: 2}

	if err := h.svc.RunBackfill(context.Background()); err != nil {
		t.Fatalf("RunBackfill: %v", err)
	}
	if len(h.repo.finishes) != 1 || h.repo.finishes[0].status != domain.RunPartial {
		t.Fatalf("finishes = %+v", h.repo.finishes)
	}
	if len(h.repo.setCursors) != 1 || !h.repo.setCursors[0].Equal(day(2030, 6, 6)) {
		t.Fatalf("cursor writes = %v", h.repo.setCursors)
	}
}

func TestPlanCold_PreviewsWithoutSideEffects(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{ColdWindowDays: 10, ColdFloor: day(2030, 6, 1)}})

	ws, err := h.svc.PlanCold(context.Background(), 5)
	if err != nil {
		t.Fatalf("PlanCold: %v", err)
	}
	if len(ws) != 2 {
		t.Fatalf("windows = %d, want 2", len(ws))
	}
	if !ws[0].From.Equal(day(2030, 6, 6)) || !ws[1].From.Equal(day(2030, 6, 1)) {
		t.Fatalf("windows = %v", ws)
	}

	if len(h.search.queries) != 0 || len(h.repo.opened) != 0 || len(h.repo.setCursors) != 0 {
		t.Fatal("planning touched the world")
	}

	ws, err = h.svc.PlanCold(context.Background(), 1)
	if err != nil || len(ws) != 1 {
		t.Fatalf("PlanCold(1) = %v windows, err %v", ws, err)
	}
}

func TestRunRange_SweepsChunksWithoutCursor(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{ColdWindowDays: 10}})

	if err := h.svc.RunRange(context.Background(), day(2030, 3, 1), day(2030, 3, 25)); err != nil {
		t.Fatalf("RunRange: %v", err)
	}

	if len(h.repo.opened) != 3 {
		t.Fatalf("opened %d runs, want 3", len(h.repo.opened))
	}
	froms := []time.Time{day(2030, 3, 16), day(2030, 3, 6), day(2030, 3, 1)}
	for i, want := range froms {
		if !h.repo.opened[i].WindowFrom.Equal(want) {
			t.Fatalf("run %d from = %v, want %v", i, h.repo.opened[i].WindowFrom, want)
		}
		if h.repo.opened[i].Tier != domain.TierCold {
			t.Fatalf("run %d tier = %s", i, h.repo.opened[i].Tier)
		}
	}
	if len(h.repo.setCursors) != 0 {
		t.Fatalf("range sweep wrote the cursor: %v", h.repo.setCursors)
	}
}

func TestRunRange_RejectsInvertedRange(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	err := h.svc.RunRange(context.Background(), day(2030, 3, 25), day(2030, 3, 1))
	testkit.MustCode(t, err, perr.ErrorCodeInvalidArgument)
}

func TestRunTier_WarmPostedBoundaryQuery(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{WarmDays: 7}})

	if _, err := h.svc.RunTier(context.Background(), domain.TierWarm); err != nil {
		t.Fatalf("RunTier: %v", err)
	}
	q := h.search.queries[0]
	if !q.From.Equal(day(2030, 6, 8)) || !q.To.Equal(day(2030, 6, 14)) {
		t.Fatalf("query = %v..%v", q.From, q.To)
	}
	if q.Filters != nil {
		t.Fatalf("posted boundary set filters: %v", q.Filters)
	}
}

func TestRunTier_WarmUpdatedBoundaryQuery(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Planner: PlannerConfig{
		WarmDays:         7,
		WarmBoundary:     WarmBoundaryUpdated,
		WarmIncludeToday: true,
	}})

	if _, err := h.svc.RunTier(context.Background(), domain.TierWarm); err != nil {
		t.Fatalf("RunTier: %v", err)
	}

	q := h.search.queries[0]
	if q.Filters["modifiedFrom"] != "06/09/2030" || q.Filters["modifiedTo"] != "06/15/2030" {
		t.Fatalf("modified filters = %v", q.Filters)
	}
	// the mandatory posted range becomes a year-wide envelope
	if !q.From.Equal(day(2029, 6, 15)) || !q.To.Equal(day(2030, 6, 15)) {
		t.Fatalf("posted envelope = %v..%v", q.From, q.To)
	}
}

func TestServe_SweepsBothTiersThenStops(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{HotEvery: time.Hour, WarmEvery: time.Hour})
	ev := &fakeEval{want: 2, done: make(chan struct{})}
	h.svc.Rules = ev

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- h.svc.Serve(ctx) }()

	select {
	case <-ev.done:
	case <-time.After(5 * time.Second):
		t.Fatal("both tiers never swept")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}

	tiers := map[domain.Tier]bool{}
	for _, r := range h.repo.opened {
		tiers[r.Tier] = true
	}
	if !tiers[domain.TierHot] || !tiers[domain.TierWarm] {
		t.Fatalf("swept tiers = %v", tiers)
	}
}

func TestSweepAndEvaluate_FailedSweepDefersWithoutError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.search.replies = []searchReply{{err: perr.New(perr.ErrorCodeValidation, "nope")}}
	ev := &fakeEval{}
	h.svc.Rules = ev

	if err := h.svc.sweepAndEvaluate(context.Background(), domain.TierHot); err != nil {
		t.Fatalf("sweepAndEvaluate: %v", err)
	}
	if ev.calls != 0 {
		t.Fatal("rules evaluated after a failed sweep")
	}
}

func TestSweepAndEvaluate_EvaluatorErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	ev := &fakeEval{err: perr.New(perr.ErrorCodeDB, "rules table gone")}
	h.svc.Rules = ev

	if err := h.svc.sweepAndEvaluate(context.Background(), domain.TierHot); err != nil {
		t.Fatalf("sweepAndEvaluate: %v", err)
	}
	if ev.calls != 1 {
		t.Fatalf("evaluator calls = %d", ev.calls)
	}
}

func TestSweepAndEvaluate_BookkeepingErrorStopsLoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{})
	h.repo.openErr = perr.New(perr.ErrorCodeDB, "no runs table")

	err := h.svc.sweepAndEvaluate(context.Background(), domain.TierHot)
	testkit.MustCode(t, err, perr.ErrorCodeDB)
}
