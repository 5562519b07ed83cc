package modkit

import (
	"net/http"
	"testing"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
)

func TestBuildAppliesOptions(t *testing.T) {
	mw := func(next http.Handler) http.Handler { return next }

	b := Build(
		WithName("rules"),
		WithPrefix("/rules"),
		WithMiddlewares(mw),
		WithSwagger(true),
		WithPorts("port-bundle"),
	)

	if b.Name != "rules" || b.Prefix != "/rules" {
		t.Fatalf("built = %+v", b)
	}
	if len(b.Mw) != 1 {
		t.Fatalf("mw count = %d", len(b.Mw))
	}
	if !b.SwaggerOn {
		t.Fatalf("swagger should be on")
	}
	if b.Ports != "port-bundle" {
		t.Fatalf("ports = %v", b.Ports)
	}
}

func TestBuildDefaultsHooks(t *testing.T) {
	b := Build()
	if b.Subrouter == nil || b.Register == nil {
		t.Fatalf("hooks should default to no-ops")
	}
	// default subrouter is identity
	var r httpkit.Router
	if got := b.Subrouter(r); got != r {
		t.Fatalf("default subrouter should be identity")
	}
	// default register must not panic on nil
	b.Register(nil)
}

func TestWithRegisterAndSubrouter(t *testing.T) {
	called := false
	b := Build(
		WithRegister(func(httpkit.Router) { called = true }),
		WithSubrouter(func(r httpkit.Router) httpkit.Router { return r }),
	)
	b.Register(nil)
	if !called {
		t.Fatalf("register hook not invoked")
	}
}

func TestDepsZeroOK(t *testing.T) {
	var d Deps
	if !d.ZeroOK() {
		t.Fatalf("zero deps should be usable in tests")
	}
}
