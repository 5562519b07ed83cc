// Package domain declares the rule engine's entities and ports
package domain

import (
	"encoding/json"
	"time"
)

// RuleKind discriminates how a rule's definition is interpreted
type RuleKind string

// Rule kinds
const (
	KindCriteria RuleKind = "criteria"
	KindRaw      RuleKind = "raw"
)

// Valid reports whether k is a known kind
func (k RuleKind) Valid() bool { return k == KindCriteria || k == KindRaw }

// Rule is one stored matching rule. Definition holds the criteria tree
// for criteria rules and a JSON-quoted WHERE fragment for raw rules
type Rule struct {
	ID              string
	Name            string
	Kind            RuleKind
	Definition      json.RawMessage
	Description     string
	IsActive        bool
	LastEvaluatedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Draft is the authorable subset of a rule
type Draft struct {
	Name        string
	Kind        RuleKind
	Definition  json.RawMessage
	Description string
	IsActive    *bool // nil -> active
}

// Patch mutates rule metadata. Definition edits are deliberately absent:
// matches accumulate per rule id, so a new predicate is a new rule
type Patch struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// Match is one (rule, notice) pair. At most one exists per pair and it
// is never deleted
type Match struct {
	RuleID    string
	NoticeID  string
	MatchedAt time.Time
}

// AlertEvent is handed to the notifier for each freshly inserted match
type AlertEvent struct {
	RuleID    string
	RuleName  string
	NoticeID  string
	MatchedAt time.Time
}

// Report summarizes one rule evaluation
type Report struct {
	RuleID     string
	RuleName   string
	Mode       string // full or incremental
	Candidates int
	NewMatches int
}
