// Package module wires run reporting and the status view into the API
package module

import (
	"net/http"

	modkit "github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	str "github.com/BlueFrogAnalytics/SamBot/internal/platform/strings"

	runshttp "github.com/BlueFrogAnalytics/SamBot/internal/services/api/runs/http"
	runsrepo "github.com/BlueFrogAnalytics/SamBot/internal/services/api/runs/repo"
	runssvc "github.com/BlueFrogAnalytics/SamBot/internal/services/api/runs/service"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/budget"
)

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc runssvc.Service
}

// New constructs the runs API module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("runs"), modkit.WithPrefix("/runs")}, opts...)...)

	bud := budget.FromConfig(deps.Cfg)
	svc := runssvc.New(deps.PG, runsrepo.NewPG(), runssvc.Config{DailyBudget: bud.Daily})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		runshttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the run routes under the prefix and the status
// view at the API root
func (m *Module) MountRoutes(r httpkit.Router) {
	runshttp.RegisterStatus(r, m.svc)
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports returns the module ports
func (m *Module) Ports() any { return nil }
