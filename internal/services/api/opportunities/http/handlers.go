// Package http provides HTTP transport for browsing stored opportunities
package http

import (
	stdhttp "net/http"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/opportunities/domain"
)

// Register mounts opportunity routes on r
func Register(r httpkit.Router, svc domain.ServicePort) {
	h := &handlers{svc: svc}

	httpkit.PostJSON[domain.QueryInput](r, "/query", h.query)
	httpkit.PostJSON[domain.SearchInput](r, "/search", h.search)
	httpkit.Get(r, "/{noticeID}", h.get)
}

type handlers struct{ svc domain.ServicePort }

// swagger:route POST /opportunities/query Opportunities opportunitiesQuery
// @Summary Query stored opportunities with criteria, filters, or both
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param payload body domain.QueryInput true "Query"
// @Success 200 {object} domain.QueryResp "ok"
// @Failure 422 {object} httpkit.Envelope "criteria does not compile"
// @Router /opportunities/query [post]
func (h *handlers) query(r *stdhttp.Request, in domain.QueryInput) (any, error) {
	return h.svc.Query(r.Context(), in)
}

// swagger:route POST /opportunities/search Opportunities opportunitiesSearch
// @Summary Full text search over fetched descriptions
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param payload body domain.SearchInput true "Search"
// @Success 200 {object} domain.SearchResp "ok"
// @Router /opportunities/search [post]
func (h *handlers) search(r *stdhttp.Request, in domain.SearchInput) (any, error) {
	return h.svc.Search(r.Context(), in)
}

// swagger:route GET /opportunities/{noticeID} Opportunities opportunitiesGet
// @Summary One record with description, attachments, contacts, and award
// @Tags Opportunities
// @Produce json
// @Param noticeID path string true "Notice ID"
// @Success 200 {object} domain.DetailResp "ok"
// @Failure 404 {object} httpkit.Envelope "unknown notice"
// @Router /opportunities/{noticeID} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Get(r.Context(), httpkit.Param(r, "noticeID"))
}
