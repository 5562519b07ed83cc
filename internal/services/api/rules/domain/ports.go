package domain

import (
	"context"
	"time"
)

// ServicePort defines the rules API surface consumed by handlers
type ServicePort interface {
	Create(ctx context.Context, in CreateRuleInput) (RuleRow, error)
	Update(ctx context.Context, id string, in UpdateRuleInput) (RuleRow, error)
	Get(ctx context.Context, id string) (RuleRow, error)
	List(ctx context.Context) (RulesResp, error)
	Evaluate(ctx context.Context, id string, full bool) (EvaluateResp, error)
	Matches(ctx context.Context, id string, limit int, before time.Time) (MatchesResp, error)
}
