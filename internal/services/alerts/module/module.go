// Package module provides the alerts module implementation
package module

import (
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/domain"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/repo"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/service"
	rulesdom "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
)

// Ports exposed by the alerts module
type Ports struct {
	Admin    domain.AdminPort
	Notifier rulesdom.NotifierPort
}

// Module implements the alerts module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the alerts module
func New(deps modkit.Deps) *Module {
	svc := service.New(deps.PG, repo.NewPG())

	m := &Module{deps: deps}
	m.ports = Ports{Admin: svc, Notifier: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "alerts" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Prefix returns the module prefix (none)
func (m *Module) Prefix() string { return "" }

// MountRoutes satisfies modkit.Module; destination routes live on the api module
func (m *Module) MountRoutes(_ httpkit.Router) {}
