// Package http provides HTTP transport for alert destination management
package http

import (
	stdhttp "net/http"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/alerts/domain"
	svc "github.com/BlueFrogAnalytics/SamBot/internal/services/api/alerts/service"
)

// Register mounts destination endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.CreateDestinationInput](r, "/destinations", h.create)
	httpkit.Get(r, "/destinations", h.list)
	httpkit.Get(r, "/destinations/{id}", h.get)
	httpkit.PatchJSON[domain.UpdateDestinationInput](r, "/destinations/{id}", h.update)
	httpkit.Delete(r, "/destinations/{id}", h.remove)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /alerts/destinations Alerts alertsDestinationCreate
// @Summary Register an alert destination
// @Tags Alerts
// @Accept json
// @Produce json
// @Param payload body domain.CreateDestinationInput true "Destination"
// @Success 201 {object} domain.DestinationRow "created"
// @Router /alerts/destinations [post]
func (h *handlers) create(r *stdhttp.Request, in domain.CreateDestinationInput) (any, error) {
	row, err := h.svc.Create(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(row), nil
}

// swagger:route GET /alerts/destinations Alerts alertsDestinationList
// @Summary List alert destinations
// @Tags Alerts
// @Produce json
// @Success 200 {object} domain.DestinationsResp "ok"
// @Router /alerts/destinations [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	return h.svc.List(r.Context())
}

// swagger:route GET /alerts/destinations/{id} Alerts alertsDestinationGet
// @Summary Fetch one alert destination
// @Tags Alerts
// @Produce json
// @Param id path string true "Destination id"
// @Success 200 {object} domain.DestinationRow "ok"
// @Router /alerts/destinations/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Get(r.Context(), httpkit.Param(r, "id"))
}

// swagger:route PATCH /alerts/destinations/{id} Alerts alertsDestinationUpdate
// @Summary Patch a destination's target or active flag
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Destination id"
// @Param payload body domain.UpdateDestinationInput true "Patch"
// @Success 200 {object} domain.DestinationRow "ok"
// @Router /alerts/destinations/{id} [patch]
func (h *handlers) update(r *stdhttp.Request, in domain.UpdateDestinationInput) (any, error) {
	return h.svc.Update(r.Context(), httpkit.Param(r, "id"), in)
}

// swagger:route DELETE /alerts/destinations/{id} Alerts alertsDestinationDelete
// @Summary Remove a destination and its delivery history
// @Tags Alerts
// @Produce json
// @Param id path string true "Destination id"
// @Success 204 "deleted"
// @Router /alerts/destinations/{id} [delete]
func (h *handlers) remove(r *stdhttp.Request) (any, error) {
	if err := h.svc.Delete(r.Context(), httpkit.Param(r, "id")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}
