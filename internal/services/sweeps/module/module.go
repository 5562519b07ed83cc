// Package module provides the sweeps module implementation
package module

import (
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/repo"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/service"
)

// Ports exposed by the sweeps module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the sweeps module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the sweeps module. Search, governor, detector, and
// follower arrive through WithPorts; the activity mirror and the rule
// evaluator are optional on the same struct
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("sweeps"),
	}, opts...)...)

	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("sweeps module: expected WithPorts(sweeps/domain.Ports)")
	}

	o := FromConfig(deps.Cfg)
	db := deps.PG
	if o.StmtTimeoutMS > 0 {
		db = repokit.WithBeginHooks(db, repokit.StatementTimeout(o.StmtTimeoutMS))
	}
	svc := service.New(db, repo.NewPG(), ports, o.Config())

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "sweeps" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes satisfies modkit.Module; sweeps has no routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
