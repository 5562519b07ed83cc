// Package module provides the ingest module implementation
package module

import (
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/repo"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/service"
)

// Ports exposed by the ingest module
type Ports struct {
	Detector domain.DetectorPort
	Follower domain.FollowerPort
}

// Module implements the ingest module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the ingest module. The upstream gateway and the budget
// governor arrive through WithPorts since the process owns one of each
// and every tier shares them
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("ingest"),
	}, opts...)...)

	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("ingest module: expected WithPorts(ingest/domain.Ports)")
	}
	if ports.Gateway == nil || ports.Budget == nil {
		panic("ingest module: Ports missing Gateway or Budget")
	}

	o := FromConfig(deps.Cfg)
	svc := service.New(
		deps.PG,
		repo.NewPG(),
		ports.Gateway,
		ports.Budget,
		service.Config{
			Workers:      o.Workers,
			FetchRetries: o.FetchRetries,
			RetryBase:    o.RetryBase,
			FilesDir:     o.FilesDir,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{Detector: svc, Follower: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "ingest" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes satisfies modkit.Module; ingest has no routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
