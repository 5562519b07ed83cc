// Package http provides HTTP transport for rule management
package http

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/httpkit"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/rules/domain"
	svc "github.com/BlueFrogAnalytics/SamBot/internal/services/api/rules/service"
)

// Register mounts rule endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.PostJSON[domain.CreateRuleInput](r, "/", h.create)
	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{id}", h.get)
	httpkit.PatchJSON[domain.UpdateRuleInput](r, "/{id}", h.update)
	httpkit.PostJSON[domain.EvaluateInput](r, "/{id}/evaluate", h.evaluate)
	httpkit.Get(r, "/{id}/matches", h.matches)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /rules Rules rulesCreate
// @Summary Create a rule; bad definitions reject the save
// @Tags Rules
// @Accept json
// @Produce json
// @Param payload body domain.CreateRuleInput true "Rule"
// @Success 201 {object} domain.RuleRow "created"
// @Router /rules [post]
func (h *handlers) create(r *stdhttp.Request, in domain.CreateRuleInput) (any, error) {
	row, err := h.svc.Create(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(row), nil
}

// swagger:route GET /rules Rules rulesList
// @Summary List rules, inactive ones included
// @Tags Rules
// @Produce json
// @Success 200 {object} domain.RulesResp "ok"
// @Router /rules [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	return h.svc.List(r.Context())
}

// swagger:route GET /rules/{id} Rules rulesGet
// @Summary Fetch one rule
// @Tags Rules
// @Produce json
// @Param id path string true "Rule id"
// @Success 200 {object} domain.RuleRow "ok"
// @Router /rules/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.svc.Get(r.Context(), httpkit.Param(r, "id"))
}

// swagger:route PATCH /rules/{id} Rules rulesUpdate
// @Summary Rename, describe, or toggle a rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule id"
// @Param payload body domain.UpdateRuleInput true "Patch"
// @Success 200 {object} domain.RuleRow "ok"
// @Router /rules/{id} [patch]
func (h *handlers) update(r *stdhttp.Request, in domain.UpdateRuleInput) (any, error) {
	return h.svc.Update(r.Context(), httpkit.Param(r, "id"), in)
}

// swagger:route POST /rules/{id}/evaluate Rules rulesEvaluate
// @Summary Evaluate one rule now, full or incremental
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule id"
// @Param payload body domain.EvaluateInput true "Mode"
// @Success 200 {object} domain.EvaluateResp "ok"
// @Router /rules/{id}/evaluate [post]
func (h *handlers) evaluate(r *stdhttp.Request, in domain.EvaluateInput) (any, error) {
	return h.svc.Evaluate(r.Context(), httpkit.Param(r, "id"), in.Full)
}

// swagger:route GET /rules/{id}/matches Rules rulesMatches
// @Summary List a rule's matches newest first
// @Tags Rules
// @Produce json
// @Param id path string true "Rule id"
// @Param limit query int false "Page size"
// @Param before query string false "RFC3339 cutoff, matches older than this"
// @Success 200 {object} domain.MatchesResp "ok"
// @Router /rules/{id}/matches [get]
func (h *handlers) matches(r *stdhttp.Request) (any, error) {
	limit, before, err := matchesQuery(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Matches(r.Context(), httpkit.Param(r, "id"), limit, before)
}

// matchesQuery reads the paging knobs; zero values defer to service caps
func matchesQuery(r *stdhttp.Request) (int, time.Time, error) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, time.Time{}, perr.Newf(perr.ErrorCodeValidation, "rules: limit must be an integer")
		}
		limit = n
	}

	var before time.Time
	if raw := q.Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return 0, time.Time{}, perr.Newf(perr.ErrorCodeValidation, "rules: before must be RFC3339")
		}
		before = t
	}
	return limit, before, nil
}
