// Package module wires rule management into the API using modkit
package module

import (
	"net/http"

	modkit "github.com/BlueFrogAnalytics/SamBot/internal/modkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	str "github.com/BlueFrogAnalytics/SamBot/internal/platform/strings"

	ruleshttp "github.com/BlueFrogAnalytics/SamBot/internal/services/api/rules/http"
	rulessvc "github.com/BlueFrogAnalytics/SamBot/internal/services/api/rules/service"
	rulesdom "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
)

// Ports names the engine ports this surface rides on
// inject them with modkit.WithPorts when constructing the module
type Ports struct {
	Admin     rulesdom.AdminPort
	Evaluator rulesdom.EvaluatorPort
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

	svc rulessvc.Service
}

// New constructs the rules API module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("rules"), modkit.WithPrefix("/rules")}, opts...)...)

	p, ok := b.Ports.(Ports)
	if !ok {
		panic("rules api module: expected WithPorts(rules module Ports)")
	}
	svc := rulessvc.New(p.Admin, p.Evaluator)

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
		ruleshttp.Register(r, m.svc)
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
