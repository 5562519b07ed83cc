package store

import (
	"context"
	stderrs "errors"
	"strings"
	"testing"
)

type fakeCH struct {
	pingErr  error
	closeErr error
	closed   bool
}

func (f *fakeCH) Insert(context.Context, string, any) error      { return nil }
func (f *fakeCH) Exec(context.Context, string, ...any) error     { return nil }
func (f *fakeCH) Query(context.Context, string, ...any) (Rows, error) { return nil, nil }
func (f *fakeCH) Ping(context.Context) error                     { return f.pingErr }
func (f *fakeCH) Close() error                                   { f.closed = true; return f.closeErr }

// fakeQuerier is a no-op RowQuerier for embedding in test doubles
type fakeQuerier struct{}

func (fakeQuerier) Exec(context.Context, string, ...any) (CommandTag, error) { return nil, nil }
func (fakeQuerier) Query(context.Context, string, ...any) (Rows, error)     { return nil, nil }
func (fakeQuerier) QueryRow(context.Context, string, ...any) Row            { return nil }

type pingingQuerier struct {
	fakeQuerier
	pingErr error
}

func (p *pingingQuerier) Ping(context.Context) error { return p.pingErr }

func (p *pingingQuerier) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return fn(p)
}

func TestGuardZeroValue(t *testing.T) {
	s := &Store{}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("Guard on empty store: %v", err)
	}

	var nilStore *Store
	if err := nilStore.Guard(context.Background()); err == nil {
		t.Fatalf("Guard on nil store should fail")
	}
}

func TestGuardJoinsBackendFailures(t *testing.T) {
	s := &Store{
		PG: &pingingQuerier{pingErr: stderrs.New("pg down")},
		CH: &fakeCH{pingErr: stderrs.New("ch down")},
	}
	err := s.Guard(context.Background())
	if err == nil {
		t.Fatalf("Guard should report backend failures")
	}
	msg := err.Error()
	if !strings.Contains(msg, "pg down") || !strings.Contains(msg, "ch down") {
		t.Fatalf("Guard error = %q, want both backends named", msg)
	}
}

func TestGuardHealthyBackends(t *testing.T) {
	s := &Store{
		PG: &pingingQuerier{},
		CH: &fakeCH{},
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("Guard: %v", err)
	}
}

func TestCloseIgnoresNilBackends(t *testing.T) {
	s := &Store{}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close on empty store: %v", err)
	}
}

func TestCloseClosesClickhouse(t *testing.T) {
	ch := &fakeCH{closeErr: stderrs.New("flush failed")}
	s := &Store{CH: ch}
	err := s.Close(context.Background())
	if !ch.closed {
		t.Fatalf("Close should reach the clickhouse client")
	}
	if err == nil || !strings.Contains(err.Error(), "flush failed") {
		t.Fatalf("Close err = %v", err)
	}
}
