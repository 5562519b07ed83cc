// Package module wires alert destination management into the API using modkit
package module

import (
	"net/http"

	modkit "github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	str "github.com/BlueFrogAnalytics/SamBot/internal/platform/strings"

	alertsdom "github.com/BlueFrogAnalytics/SamBot/internal/services/alerts/domain"
	alertshttp "github.com/BlueFrogAnalytics/SamBot/internal/services/api/alerts/http"
	alertssvc "github.com/BlueFrogAnalytics/SamBot/internal/services/api/alerts/service"
)

// Ports names the notifier module port this surface rides on
type Ports struct {
	Admin alertsdom.AdminPort
}

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc alertssvc.Service
}

// New constructs the alerts API module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("alerts"), modkit.WithPrefix("/alerts")}, opts...)...)

	p, ok := b.Ports.(Ports)
	if !ok {
		panic("alerts api module: expected WithPorts(alerts module Ports)")
	}
	svc := alertssvc.New(p.Admin)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		ports:     p,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		alertshttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
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
func (m *Module) Ports() any { return m.ports }
