package domain

import (
	"context"
	"time"
)

// Ports are the externally provided dependencies of this module
type Ports struct {
	// Notifier receives alert events for fresh matches; nil drops them
	Notifier NotifierPort
}

// AdminPort is the rule management surface the API mounts
type AdminPort interface {
	Create(ctx context.Context, d Draft) (Rule, error)
	Update(ctx context.Context, id string, p Patch) (Rule, error)
	Get(ctx context.Context, id string) (Rule, error)
	List(ctx context.Context) ([]Rule, error)

	// Matches lists a rule's matches newest first. A zero before means
	// no cutoff; limit is clamped to the configured page cap
	Matches(ctx context.Context, ruleID string, limit int, before time.Time) ([]Match, error)
}

// EvaluatorPort runs rules against stored opportunities
type EvaluatorPort interface {
	// EvaluateActive evaluates every active rule incrementally. Rule
	// failures are logged and skipped so one bad predicate cannot
	// starve the rest
	EvaluateActive(ctx context.Context) error

	// EvaluateAll evaluates every active rule; full ignores the
	// incremental cutoff
	EvaluateAll(ctx context.Context, full bool) ([]Report, error)

	// EvaluateRule evaluates one rule regardless of its active flag
	EvaluateRule(ctx context.Context, id string, full bool) (Report, error)
}

// NotifierPort fans alert events out to destinations
type NotifierPort interface {
	Emit(ctx context.Context, evs []AlertEvent) error
}

// StorageRepo is the persistence surface for rules and matches
type StorageRepo interface {
	Insert(ctx context.Context, r Rule) error

	// UpdateMeta writes name, description, active flag, and updated_at
	UpdateMeta(ctx context.Context, r Rule) error

	Get(ctx context.Context, id string) (Rule, bool, error)
	List(ctx context.Context, onlyActive bool) ([]Rule, error)

	// Candidates runs a compiled rule query and returns notice ids
	Candidates(ctx context.Context, sql string, args []any) ([]string, error)

	// InsertMatch records a pair once; created is false when it existed
	InsertMatch(ctx context.Context, ruleID, noticeID string, at time.Time) (bool, error)

	SetEvaluated(ctx context.Context, id string, at time.Time) error
	Matches(ctx context.Context, ruleID string, limit int, before time.Time) ([]Match, error)
}
