// Package domain holds DTOs for the alert destination HTTP surface
package domain

import "encoding/json"

// CreateDestinationInput registers an alert destination
// omit rule_id to subscribe the destination to every rule
type CreateDestinationInput struct {
	RuleID *string         `json:"rule_id,omitempty" validate:"omitempty,uuid4" example:"00000000-0000-0000-0000-000000000000"`
	Method string          `json:"method" validate:"required,oneof=console webhook transport" example:"console"`
	Target json.RawMessage `json:"target,omitempty"`
	Active *bool           `json:"active,omitempty" example:"true"`
}

// UpdateDestinationInput patches a destination's target or active flag
type UpdateDestinationInput struct {
	Target json.RawMessage `json:"target,omitempty"`
	Active *bool           `json:"active,omitempty" example:"false"`
}

// DestinationRow is the wire shape of a stored destination
type DestinationRow struct {
	ID        string          `json:"id" example:"00000000-0000-0000-0000-000000000000"`
	RuleID    *string         `json:"rule_id,omitempty" example:"00000000-0000-0000-0000-000000000000"`
	Method    string          `json:"method" example:"console"`
	Target    json.RawMessage `json:"target"`
	Active    bool            `json:"active" example:"true"`
	CreatedAt string          `json:"created_at" example:"2026-07-15T09:30:00Z"`
}

// DestinationsResp wraps the destination listing
type DestinationsResp struct {
	Items []DestinationRow `json:"items"`
}
