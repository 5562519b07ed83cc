// Package http provides HTTP transport for sweep run reporting
package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/runs/domain"
)

// Register mounts run reporting routes on r
func Register(r httpkit.Router, svc domain.ServicePort) {
	h := &handlers{svc: svc}

	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{id}", h.detail)
}

// RegisterStatus mounts the operational status view at the API root
func RegisterStatus(r httpkit.Router, svc domain.ServicePort) {
	h := &handlers{svc: svc}

	httpkit.Get(r, "/status", h.status)
}

type handlers struct{ svc domain.ServicePort }

// swagger:route GET /runs Runs runsList
// @Summary List recent sweep runs, newest first
// @Tags Runs
// @Produce json
// @Param tier query string false "Filter to one tier" Enums(hot, warm, cold)
// @Param limit query int false "Max rows to return" default(50)
// @Success 200 {object} domain.RunsResp "ok"
// @Router /runs [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	tier := r.URL.Query().Get("tier")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeValidation, "runs: limit must be an integer")
		}
		limit = n
	}
	return h.svc.Recent(r.Context(), tier, limit)
}

// swagger:route GET /runs/{id} Runs runsGet
// @Summary One sweep run with its committed counters
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} domain.RunDetailResp "ok"
// @Failure 404 {object} httpkit.Envelope "unknown run"
// @Router /runs/{id} [get]
func (h *handlers) detail(r *stdhttp.Request) (any, error) {
	return h.svc.Detail(r.Context(), httpkit.Param(r, "id"))
}

// swagger:route GET /status Status statusGet
// @Summary Last run per tier, record totals, and today's request spend
// @Tags Status
// @Produce json
// @Success 200 {object} domain.StatusResp "ok"
// @Router /status [get]
func (h *handlers) status(r *stdhttp.Request) (any, error) {
	return h.svc.Status(r.Context())
}
