// Package module wires the safety API (grid snapshot, route scoring, admin
// operations) into the HTTP surface using modkit, the way stats/module and
// samples/module wire their own read endpoints.
package module

import (
	"net/http"

	"saferoute/internal/modkit"
	"saferoute/internal/modkit/httpkit"
	str "saferoute/internal/platform/strings"
	safetyhttp "saferoute/internal/services/api/safety/http"
	safetysvc "saferoute/internal/services/api/safety/service"
	aggdomain "saferoute/internal/services/aggregator/domain"
	rsdomain "saferoute/internal/services/routescore/domain"
	snapdomain "saferoute/internal/services/snapshot/domain"
)

// Module implements the safety API module.
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *safetysvc.Service
}

// Ports is the set of ports this module exposes for cross-module wiring.
// A host binary that only needs HTTP routes never has to touch it.
type Ports struct {
	Snapshot   snapdomain.ServicePort
	RouteScore rsdomain.ServicePort
	Aggregator aggdomain.ServicePort
	Router     safetysvc.RoutingPort
}

// New constructs the safety module over the three already-wired engine
// ports (Snapshot Service, Route Scorer, Aggregator). Unlike the other API
// modules, this one takes its ports up front via WithPorts rather than
// building its own repo/service stack, since the engine services are
// shared with the admin-job binaries and must not be constructed twice.
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("safety"), modkit.WithPrefix("/safety")}, opts...)...)

	ports, _ := b.Ports.(Ports)
	svc := safetysvc.New(ports.Snapshot, ports.RouteScore, ports.Aggregator, ports.Router)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
		ports:     ports,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		safetyhttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router.
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

// Name returns the module name.
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix.
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares.
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports returns the module ports.
func (m *Module) Ports() any { return m.ports }
