// Package domain holds DTOs for the rules HTTP surface
package domain

import "encoding/json"

// CreateRuleInput creates a matching rule
// the definition is a criteria tree for criteria rules and a JSON
// string holding a WHERE fragment for raw rules
type CreateRuleInput struct {
	Name        string          `json:"name" validate:"required,min=1,max=200" example:"cyber services"`
	Kind        string          `json:"kind" validate:"required,oneof=criteria raw" example:"criteria"`
	Description string          `json:"description,omitempty" validate:"omitempty,max=2000" example:"NAICS 541512 notices"`
	Definition  json.RawMessage `json:"definition" validate:"required"`
	Active      *bool           `json:"active,omitempty" example:"true"`
}

// UpdateRuleInput patches rule metadata
// definition edits are not accepted, a new predicate is a new rule
type UpdateRuleInput struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200" example:"cyber services v2"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000" example:"widened to 541519"`
	Active      *bool   `json:"active,omitempty" example:"false"`
}

// EvaluateInput selects the mode for an on demand evaluation
// send an empty object for an incremental pass
type EvaluateInput struct {
	Full bool `json:"full,omitempty" example:"true"`
}

// RuleRow is the wire shape of a stored rule
type RuleRow struct {
	ID              string          `json:"id" example:"00000000-0000-0000-0000-000000000000"`
	Name            string          `json:"name" example:"cyber services"`
	Kind            string          `json:"kind" example:"criteria"`
	Description     string          `json:"description,omitempty" example:"NAICS 541512 notices"`
	Definition      json.RawMessage `json:"definition"`
	Active          bool            `json:"active" example:"true"`
	LastEvaluatedAt string          `json:"last_evaluated_at,omitempty" example:"2026-08-01T12:00:00Z"`
	CreatedAt       string          `json:"created_at" example:"2026-07-15T09:30:00Z"`
	UpdatedAt       string          `json:"updated_at" example:"2026-07-15T09:30:00Z"`
}

// RulesResp wraps the rule listing
type RulesResp struct {
	Items []RuleRow `json:"items"`
}

// EvaluateResp reports one evaluation outcome
type EvaluateResp struct {
	RuleID     string `json:"rule_id" example:"00000000-0000-0000-0000-000000000000"`
	RuleName   string `json:"rule_name" example:"cyber services"`
	Mode       string `json:"mode" example:"incremental"`
	Candidates int    `json:"candidates" example:"42"`
	NewMatches int    `json:"new_matches" example:"3"`
}

// MatchRow is one recorded rule match
type MatchRow struct {
	NoticeID  string `json:"notice_id" example:"SPE4A626T014B"`
	MatchedAt string `json:"matched_at" example:"2026-08-01T12:00:00Z"`
}

// MatchesResp wraps a page of matches, newest first
type MatchesResp struct {
	Items []MatchRow `json:"items"`
}
