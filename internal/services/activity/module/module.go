// Package module provides the activity module implementation
package module

import (
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/activity/service"
	sweepsdom "github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
)

// Ports exposed by the activity module
type Ports struct {
	Mirror sweepsdom.MirrorPort
}

// Module implements the activity module. Construct it only when the
// ClickHouse backend is enabled; callers leave the sweep's mirror port
// nil otherwise
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the activity module
func New(deps modkit.Deps) *Module {
	svc := service.New(deps.CH)

	m := &Module{deps: deps}
	m.ports = Ports{Mirror: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "activity" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes satisfies modkit.Module; the mirror has no routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
