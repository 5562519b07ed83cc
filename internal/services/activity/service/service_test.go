package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/store"
	"github.com/BlueFrogAnalytics/SamBot/internal/platform/testkit"
	ingestdom "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
	sweepsdom "github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
)

type insertCall struct {
	target string
	rows   [][]any
}

type fakeCH struct {
	mu sync.Mutex

	insertErr error
	execErr   error

	inserts []insertCall
	execs   []string
}

func (f *fakeCH) Insert(ctx context.Context, target string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	rows, _ := data.([][]any)
	f.inserts = append(f.inserts, insertCall{target: target, rows: rows})
	return nil
}

func (f *fakeCH) Exec(ctx context.Context, sql string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.execErr != nil {
		return f.execErr
	}
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeCH) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	var zero store.Rows
	return zero, nil
}

func (f *fakeCH) Ping(ctx context.Context) error { return nil }
func (f *fakeCH) Close() error                   { return nil }

func TestNew_PanicsWithoutClickhouse(t *testing.T) {
	t.Parallel()

	testkit.MustPanic(t, func() { New(nil) })
	testkit.MustNotPanic(t, func() { New(&fakeCH{}) })
}

func TestPageOutcomes_OneBatchPerPage(t *testing.T) {
	t.Parallel()
	ch := &fakeCH{}
	svc := New(ch)

	at := time.Date(2030, 6, 15, 10, 30, 0, 0, time.UTC)
	events := []ingestdom.Event{
		{NoticeID: "N-1", Action: ingestdom.ActionCreated, Version: 1},
		{NoticeID: "N-2", Action: ingestdom.ActionUpdated, Version: 3},
		{NoticeID: "N-3", Action: ingestdom.ActionUnchanged, Version: 2},
	}
	if err := svc.PageOutcomes(context.Background(), "run-1", sweepsdom.TierHot, at, events); err != nil {
		t.Fatalf("PageOutcomes: %v", err)
	}

	if len(ch.inserts) != 1 {
		t.Fatalf("inserts = %d, want one batch", len(ch.inserts))
	}
	call := ch.inserts[0]
	if !strings.HasPrefix(call.target, "ingest_events (") {
		t.Fatalf("target = %q", call.target)
	}
	if len(call.rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(call.rows))
	}

	row := call.rows[1]
	if got := row[0].(time.Time); !got.Equal(at) {
		t.Fatalf("ts = %v, want %v", got, at)
	}
	if row[1] != "run-1" || row[2] != "hot" || row[3] != "N-2" || row[4] != "updated" {
		t.Fatalf("row = %v", row)
	}
	if v, ok := row[5].(uint32); !ok || v != 3 {
		t.Fatalf("version = %v (%T), want uint32 3", row[5], row[5])
	}
}

func TestPageOutcomes_EmptyPageSkipsInsert(t *testing.T) {
	t.Parallel()
	ch := &fakeCH{}
	svc := New(ch)

	if err := svc.PageOutcomes(context.Background(), "run-1", sweepsdom.TierWarm, time.Now(), nil); err != nil {
		t.Fatalf("PageOutcomes: %v", err)
	}
	if len(ch.inserts) != 0 {
		t.Fatal("an empty page must not reach the sink")
	}
}

func TestPageOutcomes_FailureWrapped(t *testing.T) {
	t.Parallel()
	ch := &fakeCH{insertErr: perr.New(perr.ErrorCodeUnavailable, "ch down")}
	svc := New(ch)

	err := svc.PageOutcomes(context.Background(), "run-1", sweepsdom.TierHot, time.Now(), []ingestdom.Event{
		{NoticeID: "N-1", Action: ingestdom.ActionCreated, Version: 1},
	})
	testkit.MustCode(t, err, perr.ErrorCodeUnavailable)
}

func TestEnsureSchema_CreatesMirrorTable(t *testing.T) {
	t.Parallel()
	ch := &fakeCH{}

	if err := EnsureSchema(context.Background(), ch); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if len(ch.execs) != 1 {
		t.Fatalf("execs = %d, want 1", len(ch.execs))
	}
	testkit.MustContain(t, ch.execs[0], "CREATE TABLE IF NOT EXISTS ingest_events")
}
