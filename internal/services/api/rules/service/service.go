// Package service adapts the rule engine ports to the HTTP wire shapes
package service

import (
	"context"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/services/api/rules/domain"
	rulesdom "github.com/BlueFrogAnalytics/SamBot/internal/services/rules/domain"
)

// Service defines the service contract for the rules API
type Service interface{ domain.ServicePort }

// Svc implements the Service interface over the rule engine ports
type Svc struct {
	Admin rulesdom.AdminPort
	Eval  rulesdom.EvaluatorPort
}

// New creates a rules API service riding the engine ports
func New(admin rulesdom.AdminPort, eval rulesdom.EvaluatorPort) *Svc {
	if admin == nil {
		panic("rules api requires a non nil AdminPort")
	}
	if eval == nil {
		panic("rules api requires a non nil EvaluatorPort")
	}
	return &Svc{Admin: admin, Eval: eval}
}

// Create stores a new rule after the engine validates its definition
func (s *Svc) Create(ctx context.Context, in domain.CreateRuleInput) (domain.RuleRow, error) {
	r, err := s.Admin.Create(ctx, rulesdom.Draft{
		Name:        in.Name,
		Kind:        rulesdom.RuleKind(in.Kind),
		Definition:  in.Definition,
		Description: in.Description,
		IsActive:    in.Active,
	})
	if err != nil {
		return domain.RuleRow{}, err
	}
	return toRow(r), nil
}

// Update patches rule metadata
func (s *Svc) Update(ctx context.Context, id string, in domain.UpdateRuleInput) (domain.RuleRow, error) {
	r, err := s.Admin.Update(ctx, id, rulesdom.Patch{
		Name:        in.Name,
		Description: in.Description,
		IsActive:    in.Active,
	})
	if err != nil {
		return domain.RuleRow{}, err
	}
	return toRow(r), nil
}

// Get returns one rule
func (s *Svc) Get(ctx context.Context, id string) (domain.RuleRow, error) {
	r, err := s.Admin.Get(ctx, id)
	if err != nil {
		return domain.RuleRow{}, err
	}
	return toRow(r), nil
}

// List returns every rule, inactive ones included
func (s *Svc) List(ctx context.Context) (domain.RulesResp, error) {
	rs, err := s.Admin.List(ctx)
	if err != nil {
		return domain.RulesResp{}, err
	}
	items := make([]domain.RuleRow, 0, len(rs))
	for _, r := range rs {
		items = append(items, toRow(r))
	}
	return domain.RulesResp{Items: items}, nil
}

// Evaluate runs one rule on demand and reports the outcome
func (s *Svc) Evaluate(ctx context.Context, id string, full bool) (domain.EvaluateResp, error) {
	rep, err := s.Eval.EvaluateRule(ctx, id, full)
	if err != nil {
		return domain.EvaluateResp{}, err
	}
	return domain.EvaluateResp{
		RuleID:     rep.RuleID,
		RuleName:   rep.RuleName,
		Mode:       rep.Mode,
		Candidates: rep.Candidates,
		NewMatches: rep.NewMatches,
	}, nil
}

// Matches lists a rule's recorded matches newest first
func (s *Svc) Matches(ctx context.Context, id string, limit int, before time.Time) (domain.MatchesResp, error) {
	ms, err := s.Admin.Matches(ctx, id, limit, before)
	if err != nil {
		return domain.MatchesResp{}, err
	}
	items := make([]domain.MatchRow, 0, len(ms))
	for _, m := range ms {
		items = append(items, domain.MatchRow{
			NoticeID:  m.NoticeID,
			MatchedAt: m.MatchedAt.UTC().Format(time.RFC3339),
		})
	}
	return domain.MatchesResp{Items: items}, nil
}

func toRow(r rulesdom.Rule) domain.RuleRow {
	row := domain.RuleRow{
		ID:          r.ID,
		Name:        r.Name,
		Kind:        string(r.Kind),
		Description: r.Description,
		Definition:  r.Definition,
		Active:      r.IsActive,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.LastEvaluatedAt != nil {
		row.LastEvaluatedAt = r.LastEvaluatedAt.UTC().Format(time.RFC3339)
	}
	return row
}
