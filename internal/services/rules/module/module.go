// Package module provides the rules module implementation
package module

import (
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/rules/repo"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/rules/service"
)

// Ports exposed by the rules module
type Ports struct {
	Admin     domain.AdminPort
	Evaluator domain.EvaluatorPort
}

// Module implements the rules module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the rules module. The alert notifier arrives through
// WithPorts and may be absent; without one, fresh matches are recorded
// but never announced
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("rules"),
	}, opts...)...)

	ports := domain.Ports{}
	if b.Ports != nil {
		p, ok := b.Ports.(domain.Ports)
		if !ok {
			panic("rules module: expected WithPorts(rules/domain.Ports)")
		}
		ports = p
	}

	o := FromConfig(deps.Cfg)
	svc := service.New(deps.PG, repo.NewPG(), ports.Notifier, o.Config())

	m := &Module{deps: deps}
	m.ports = Ports{Admin: svc, Evaluator: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "rules" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes satisfies modkit.Module; rule routes live on the api module
func (m *Module) MountRoutes(_ httpkit.Router) {}
