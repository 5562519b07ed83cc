package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/store"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/testkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
)

var fixedNow = time.Date(2030, 6, 15, 10, 30, 0, 0, time.UTC)

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

// fakeTx satisfies repokit.TxRunner; each Tx call is one evaluation commit
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

type candQuery struct {
	sql  string
	args []any
}

type matchCall struct {
	ruleID string
	limit  int
	before time.Time
}

// fakeRuleRepo implements domain.StorageRepo in memory. SetEvaluated
// mutates the stored rule so a later Get sees the new stamp, matching
// how the table behaves
type fakeRuleRepo struct {
	mu sync.Mutex

	insertErr error
	getErr    error
	candErr   error
	matchErr  error

	rules   map[string]domain.Rule
	inserts int
	updates []domain.Rule

	candQueue [][]string
	queries   []candQuery

	matches map[string]map[string]time.Time

	matchList  []domain.Match
	matchCalls []matchCall
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{
		rules:   map[string]domain.Rule{},
		matches: map[string]map[string]time.Time{},
	}
}

func (f *fakeRuleRepo) Insert(ctx context.Context, r domain.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rules[r.ID] = r
	f.inserts++
	return nil
}

func (f *fakeRuleRepo) UpdateMeta(ctx context.Context, r domain.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.rules[r.ID]
	if !ok {
		return perr.Newf(perr.ErrorCodeNotFound, "rules: rule %s not found", r.ID)
	}
	stored.Name = r.Name
	stored.Description = r.Description
	stored.IsActive = r.IsActive
	stored.UpdatedAt = r.UpdatedAt
	f.rules[r.ID] = stored
	f.updates = append(f.updates, r)
	return nil
}

func (f *fakeRuleRepo) Get(ctx context.Context, id string) (domain.Rule, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Rule{}, false, f.getErr
	}
	r, ok := f.rules[id]
	return r, ok, nil
}

func (f *fakeRuleRepo) List(ctx context.Context, onlyActive bool) ([]domain.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Rule, 0, len(f.rules))
	for _, r := range f.rules {
		if onlyActive && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRuleRepo) Candidates(ctx context.Context, sql string, args []any) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, candQuery{sql: sql, args: args})
	if f.candErr != nil {
		return nil, f.candErr
	}
	if len(f.candQueue) == 0 {
		return nil, nil
	}
	ids := f.candQueue[0]
	f.candQueue = f.candQueue[1:]
	return ids, nil
}

func (f *fakeRuleRepo) InsertMatch(ctx context.Context, ruleID, noticeID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matchErr != nil {
		return false, f.matchErr
	}
	byRule := f.matches[ruleID]
	if byRule == nil {
		byRule = map[string]time.Time{}
		f.matches[ruleID] = byRule
	}
	if _, ok := byRule[noticeID]; ok {
		return false, nil
	}
	byRule[noticeID] = at
	return true, nil
}

func (f *fakeRuleRepo) SetEvaluated(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return perr.Newf(perr.ErrorCodeNotFound, "rules: rule %s not found", id)
	}
	stamp := at
	r.LastEvaluatedAt = &stamp
	f.rules[id] = r
	return nil
}

func (f *fakeRuleRepo) Matches(ctx context.Context, ruleID string, limit int, before time.Time) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matchCalls = append(f.matchCalls, matchCall{ruleID: ruleID, limit: limit, before: before})
	return f.matchList, nil
}

func (f *fakeRuleRepo) matchCount(ruleID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matches[ruleID])
}

func (f *fakeRuleRepo) lastEvaluated(ruleID string) *time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rules[ruleID].LastEvaluatedAt
}

type fakeBinder struct{ repo *fakeRuleRepo }

func (f fakeBinder) Bind(_ repokit.Queryer) domain.StorageRepo { return f.repo }

type fakeNotifier struct {
	mu      sync.Mutex
	err     error
	batches [][]domain.AlertEvent
}

func (f *fakeNotifier) Emit(ctx context.Context, evs []domain.AlertEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := make([]domain.AlertEvent, len(evs))
	copy(cp, evs)
	f.batches = append(f.batches, cp)
	return nil
}

type harness struct {
	svc      *Service
	tx       *fakeTx
	repo     *fakeRuleRepo
	notifier *fakeNotifier
}

func newHarness() *harness {
	h := &harness{
		tx:       &fakeTx{},
		repo:     newFakeRuleRepo(),
		notifier: &fakeNotifier{},
	}
	h.svc = New(h.tx, fakeBinder{repo: h.repo}, h.notifier, Config{})
	h.svc.now = func() time.Time { return fixedNow }
	return h
}

// seedRule stores a rule directly, bypassing Create's normalization
func (h *harness) seedRule(r domain.Rule) domain.Rule {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = fixedNow.Add(-24 * time.Hour)
		r.UpdatedAt = r.CreatedAt
	}
	h.repo.rules[r.ID] = r
	return r
}

func criteriaDef(s string) json.RawMessage { return json.RawMessage(s) }

func rawDef(fragment string) json.RawMessage {
	b, _ := json.Marshal(fragment)
	return b
}

func TestNew_PanicsOnMissingDeps(t *testing.T) {
	t.Parallel()

	repo := newFakeRuleRepo()
	testkit.MustPanic(t, func() { New(nil, fakeBinder{repo: repo}, nil, Config{}) })
	testkit.MustPanic(t, func() { New(&fakeTx{}, nil, nil, Config{}) })
	testkit.MustNotPanic(t, func() { New(&fakeTx{}, fakeBinder{repo: repo}, nil, Config{}) })
}

func TestCreate_CanonicalizesCriteriaDefinition(t *testing.T) {
	t.Parallel()
	h := newHarness()

	r, err := h.svc.Create(context.Background(), domain.Draft{
		Name:       "  cyber services  ",
		Kind:       domain.KindCriteria,
		Definition: criteriaDef(`{ "field": "title",   "op": "contains", "value": "cyber" }`),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected a generated id")
	}
	if r.Name != "cyber services" {
		t.Fatalf("name = %q, want trimmed", r.Name)
	}
	if !r.IsActive {
		t.Fatal("draft without an active flag should default to active")
	}
	if got, want := string(r.Definition), `{"field":"title","op":"contains","value":"cyber"}`; got != want {
		t.Fatalf("definition = %s, want canonical %s", got, want)
	}
	if !r.CreatedAt.Equal(fixedNow) || !r.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("timestamps = %v / %v, want %v", r.CreatedAt, r.UpdatedAt, fixedNow)
	}
	if h.repo.inserts != 1 {
		t.Fatalf("inserts = %d, want 1", h.repo.inserts)
	}
}

func TestCreate_StoresRawFragmentAsJSONString(t *testing.T) {
	t.Parallel()
	h := newHarness()

	r, err := h.svc.Create(context.Background(), domain.Draft{
		Name:       "active only",
		Kind:       domain.KindRaw,
		Definition: rawDef(`o.status = 'active'`),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	var frag string
	if err := json.Unmarshal(r.Definition, &frag); err != nil {
		t.Fatalf("stored raw definition is not a JSON string: %v", err)
	}
	if frag != `o.status = 'active'` {
		t.Fatalf("fragment = %q", frag)
	}
}

func TestCreate_RejectsBlankName(t *testing.T) {
	t.Parallel()
	h := newHarness()

	_, err := h.svc.Create(context.Background(), domain.Draft{
		Name:       "   ",
		Kind:       domain.KindRaw,
		Definition: rawDef(`1 = 1`),
	})
	testkit.MustCode(t, err, perr.ErrorCodeValidation)
	if h.repo.inserts != 0 {
		t.Fatal("a rejected draft must not reach the repo")
	}
}

func TestCreate_RejectsUnknownCriteriaField(t *testing.T) {
	t.Parallel()
	h := newHarness()

	_, err := h.svc.Create(context.Background(), domain.Draft{
		Name:       "bad field",
		Kind:       domain.KindCriteria,
		Definition: criteriaDef(`{"field": "bogus", "op": "equals", "value": "x"}`),
	})
	testkit.MustCode(t, err, perr.ErrorCodeRuleCompile)
	if h.repo.inserts != 0 {
		t.Fatal("a rejected draft must not reach the repo")
	}
}

func TestCreate_RejectsRawStatementKeywords(t *testing.T) {
	t.Parallel()
	h := newHarness()

	_, err := h.svc.Create(context.Background(), domain.Draft{
		Name:       "sneaky",
		Kind:       domain.KindRaw,
		Definition: rawDef(`1 = 1 OR delete from rules`),
	})
	testkit.MustCode(t, err, perr.ErrorCodeRuleCompile)
}

func TestCreate_RejectsNonStringRawDefinition(t *testing.T) {
	t.Parallel()
	h := newHarness()

	_, err := h.svc.Create(context.Background(), domain.Draft{
		Name:       "object raw",
		Kind:       domain.KindRaw,
		Definition: criteriaDef(`{"where": "1 = 1"}`),
	})
	testkit.MustCode(t, err, perr.ErrorCodeRuleCompile)
}

func TestCreate_RejectsUnknownKind(t *testing.T) {
	t.Parallel()
	h := newHarness()

	_, err := h.svc.Create(context.Background(), domain.Draft{
		Name:       "legacy",
		Kind:       domain.RuleKind("sql"),
		Definition: rawDef(`1 = 1`),
	})
	testkit.MustCode(t, err, perr.ErrorCodeValidation)
}

func TestCreate_InactiveDraft(t *testing.T) {
	t.Parallel()
	h := newHarness()

	off := false
	r, err := h.svc.Create(context.Background(), domain.Draft{
		Name:       "paused",
		Kind:       domain.KindRaw,
		Definition: rawDef(`1 = 1`),
		IsActive:   &off,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.IsActive {
		t.Fatal("expected an inactive rule")
	}
}

func TestCreate_DuplicateNameSurfaces(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.repo.insertErr = perr.Newf(perr.ErrorCodeDuplicateKey, "rules: insert rule dupe")

	_, err := h.svc.Create(context.Background(), domain.Draft{
		Name:       "dupe",
		Kind:       domain.KindRaw,
		Definition: rawDef(`1 = 1`),
	})
	testkit.MustCode(t, err, perr.ErrorCodeDuplicateKey)
}

func TestUpdate_PatchesMetadata(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedRule(domain.Rule{ID: "r1", Name: "old", Kind: domain.KindRaw, Definition: rawDef(`1 = 1`), IsActive: true})

	name := " renamed "
	desc := "tracks SB set-asides"
	off := false
	r, err := h.svc.Update(context.Background(), "r1", domain.Patch{Name: &name, Description: &desc, IsActive: &off})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if r.Name != "renamed" || r.Description != desc || r.IsActive {
		t.Fatalf("patched rule = %+v", r)
	}
	if !r.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("UpdatedAt = %v, want %v", r.UpdatedAt, fixedNow)
	}
	if len(h.repo.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(h.repo.updates))
	}
}

func TestUpdate_BlankNameRejected(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedRule(domain.Rule{ID: "r1", Name: "old", Kind: domain.KindRaw, Definition: rawDef(`1 = 1`), IsActive: true})

	blank := "  "
	_, err := h.svc.Update(context.Background(), "r1", domain.Patch{Name: &blank})
	testkit.MustCode(t, err, perr.ErrorCodeValidation)
	if len(h.repo.updates) != 0 {
		t.Fatal("a rejected patch must not reach the repo")
	}
}

func TestUpdate_UnknownRule(t *testing.T) {
	t.Parallel()
	h := newHarness()

	_, err := h.svc.Update(context.Background(), "nope", domain.Patch{})
	testkit.MustCode(t, err, perr.ErrorCodeNotFound)
}

func TestGet_UnknownRule(t *testing.T) {
	t.Parallel()
	h := newHarness()

	_, err := h.svc.Get(context.Background(), "nope")
	testkit.MustCode(t, err, perr.ErrorCodeNotFound)
}

func TestList_ReturnsInactiveToo(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.seedRule(domain.Rule{ID: "r1", Name: "a", Kind: domain.KindRaw, Definition: rawDef(`1 = 1`), IsActive: true})
	h.seedRule(domain.Rule{ID: "r2", Name: "b", Kind: domain.KindRaw, Definition: rawDef(`1 = 1`), IsActive: false})

	rules, err := h.svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(rules))
	}
}

func TestMatches_ClampsLimit(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.svc.Cfg.MatchLimit = 50

	for _, limit := range []int{0, 500, -3} {
		if _, err := h.svc.Matches(context.Background(), "r1", limit, time.Time{}); err != nil {
			t.Fatalf("Matches(%d): %v", limit, err)
		}
	}
	if _, err := h.svc.Matches(context.Background(), "r1", 10, fixedNow); err != nil {
		t.Fatalf("Matches(10): %v", err)
	}

	calls := h.repo.matchCalls
	if len(calls) != 4 {
		t.Fatalf("calls = %d, want 4", len(calls))
	}
	for i := 0; i < 3; i++ {
		if calls[i].limit != 50 {
			t.Fatalf("call %d limit = %d, want clamped 50", i, calls[i].limit)
		}
	}
	if calls[3].limit != 10 {
		t.Fatalf("explicit limit = %d, want 10", calls[3].limit)
	}
	if !calls[3].before.Equal(fixedNow) {
		t.Fatalf("before = %v, want %v", calls[3].before, fixedNow)
	}
}
