// Package http provides meta endpoints: health, readiness, and build info.
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"saferoute/internal/core/version"
	"saferoute/internal/modkit/httpkit"
)

// Guarder is satisfied by anything that can report backend readiness, the
// way store.Store does.
type Guarder interface {
	Guard(stdctx.Context) error
}

// Deps are the handler dependencies.
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Store       Guarder // nil is treated as always-ready
}

type handlers struct {
	deps Deps
}

// Register mounts the meta routes.
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

//
// Swagger DTOs and route docs
//

// HealthResponse is the health payload.
// swagger:model
type HealthResponse struct {
	OK      bool   `json:"ok" example:"true"`
	Service string `json:"service" example:"saferoute-api"`
	Started string `json:"started" example:"2026-07-01T13:00:00Z"`
	Now     string `json:"now" example:"2026-07-01T13:05:00Z"`
}

// ReadyResponse summarizes readiness.
type ReadyResponse struct {
	Status string `json:"status" example:"ok"` // ok or fail
	Error  string `json:"error,omitempty"`
	Now    string `json:"now" example:"2026-07-01T13:05:00Z"`
}

// ServiceResponse describes service info.
type ServiceResponse struct {
	Name    string `json:"name" example:"saferoute-api"`
	Started string `json:"started" example:"2026-07-01T13:00:00Z"`
	Uptime  int64  `json:"uptime" example:"300"`
}

// swagger:route GET /meta/health Meta metaHealth
// @Summary Health check
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse "ok"
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// swagger:route GET /meta/ready Meta metaReady
// @Summary Readiness probe over the configured storage backends
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse "ok"
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	var errMsg string
	if h.deps.Store != nil {
		if err := h.deps.Store.Guard(ctx); err != nil {
			status = "fail"
			errMsg = err.Error()
		}
	}
	return ReadyResponse{Status: status, Error: errMsg, Now: time.Now().UTC().Format(time.RFC3339)}, nil
}

// swagger:route GET /meta/version Meta metaVersion
// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo "ok"
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

// swagger:route GET /meta/service Meta metaService
// @Summary Service info and uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse "ok"
// @Router /meta/service [get]
func (h *handlers) service(_ *http.Request) (any, error) {
	uptime := time.Since(h.deps.StartedAt)
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(uptime / time.Second),
	}, nil
}
