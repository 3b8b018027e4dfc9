// Package http provides http transport for the safety API: grid
// snapshots, route scoring, and the grid admin operations.
package http

import (
	stdhttp "net/http"

	"saferoute/internal/modkit/httpkit"
	perr "saferoute/internal/platform/errors"
	"saferoute/internal/platform/net/http/bind"
	apidomain "saferoute/internal/services/api/safety/domain"
	svc "saferoute/internal/services/api/safety/service"
)

// Register mounts the safety endpoints on the given router.
func Register(r httpkit.Router, s *svc.Service) {
	h := &handlers{svc: s}

	httpkit.PostJSON[apidomain.SnapshotInput](r, "/snapshot", h.snapshot)
	httpkit.PostJSON[apidomain.RouteScoreInput](r, "/routes/score", h.scoreRoutes)
	httpkit.PostJSON[apidomain.SafeRouteInput](r, "/routes/safe", h.safeRoutes)

	httpkit.PostJSON[apidomain.RebuildInput](r, "/admin/rebuild", h.rebuild)
	httpkit.PostJSON[apidomain.IngestMonthInput](r, "/admin/ingest-month", h.ingestMonth)
	httpkit.PostJSON[apidomain.ValidateGridHealthInput](r, "/admin/validate-grid-health", h.validateGridHealth)
}

type handlers struct{ svc *svc.Service }

// validate runs in as the PostJSON sugar skips struct-tag validation;
// every handler here calls it before touching an engine port.
func validate(in any) error {
	if err := bind.Get().Validator.Struct(in); err != nil {
		field, msg := bind.ValidationFieldAndMessage(err)
		return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
	}
	return nil
}

// swagger:route POST /safety/snapshot Safety safetySnapshot
// @Summary Crime-risk grid snapshot for a bbox and lookback window
// @Tags Safety
// @Accept json
// @Produce json
// @Param payload body domain.SnapshotInput true "Query"
// @Success 200 {object} domain.SnapshotOutput "ok"
// @Router /safety/snapshot [post]
func (h *handlers) snapshot(r *stdhttp.Request, in apidomain.SnapshotInput) (any, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	return h.svc.Snapshot(r.Context(), in)
}

// swagger:route POST /safety/routes/score Safety safetyScoreRoutes
// @Summary Score a batch of candidate routes by crime risk
// @Tags Safety
// @Accept json
// @Produce json
// @Param payload body domain.RouteScoreInput true "Candidates"
// @Success 200 {object} domain.RouteScoreOutput "ok"
// @Router /safety/routes/score [post]
func (h *handlers) scoreRoutes(r *stdhttp.Request, in apidomain.RouteScoreInput) (any, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	return h.svc.ScoreRoutes(r.Context(), in)
}

// swagger:route POST /safety/routes/safe Safety safetySafeRoutes
// @Summary Fetch candidate routes from the routing provider and score them
// @Tags Safety
// @Accept json
// @Produce json
// @Param payload body domain.SafeRouteInput true "Origin, destination, mode, preferences"
// @Success 200 {object} domain.RouteScoreOutput "ok"
// @Router /safety/routes/safe [post]
func (h *handlers) safeRoutes(r *stdhttp.Request, in apidomain.SafeRouteInput) (any, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	return h.svc.SafeRoutes(r.Context(), in)
}

// swagger:route POST /safety/admin/rebuild Safety safetyRebuild
// @Summary Deterministically rebuild the grid over the last N months
// @Tags Safety
// @Accept json
// @Produce json
// @Param payload body domain.RebuildInput true "Window"
// @Success 200 {object} domain.RebuildOutput "ok"
// @Router /safety/admin/rebuild [post]
func (h *handlers) rebuild(r *stdhttp.Request, in apidomain.RebuildInput) (any, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	return h.svc.Rebuild(r.Context(), in)
}

// swagger:route POST /safety/admin/ingest-month Safety safetyIngestMonth
// @Summary Ingest and re-aggregate a single month
// @Tags Safety
// @Accept json
// @Produce json
// @Param payload body domain.IngestMonthInput true "Month"
// @Success 200 {object} domain.RebuildOutput "ok"
// @Router /safety/admin/ingest-month [post]
func (h *handlers) ingestMonth(r *stdhttp.Request, in apidomain.IngestMonthInput) (any, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	return h.svc.IngestMonth(r.Context(), in)
}

// swagger:route POST /safety/admin/validate-grid-health Safety safetyValidateGridHealth
// @Summary Re-check grid consistency invariants over a sample of cells
// @Tags Safety
// @Accept json
// @Produce json
// @Param payload body domain.ValidateGridHealthInput true "Sample size"
// @Success 200 {object} domain.GridHealthOutput "ok"
// @Router /safety/admin/validate-grid-health [post]
func (h *handlers) validateGridHealth(r *stdhttp.Request, in apidomain.ValidateGridHealthInput) (any, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	return h.svc.ValidateGridHealth(r.Context(), in)
}
