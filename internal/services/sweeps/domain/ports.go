package domain

import (
	"context"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/adapters/source/sam"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/budget"
	ingestdom "github.com/BlueFrogAnalytics/SamBot/internal/services/ingest/domain"
)

// DetectorPort and FollowerPort re-export the ingest ports so cmd wiring
// does not need to import the ingest domain from here
type (
	// DetectorPort routes fetched pages through change detection
	DetectorPort = ingestdom.DetectorPort
	// FollowerPort starts follow-up pools
	FollowerPort = ingestdom.FollowerPort
)

// Ports are the externally provided dependencies of this module
type Ports struct {
	Search   SearchPort
	Governor GovernorPort
	Detector DetectorPort
	Follower FollowerPort

	// Mirror receives per-page outcomes when the activity mirror is
	// enabled; nil skips mirroring
	Mirror MirrorPort

	// Rules triggers incremental evaluation after each sweep in serve
	// mode; nil skips it
	Rules EvaluatorPort
}

// RunnerPort drives sweeps
type RunnerPort interface {
	// RunTier executes one sweep for hot or warm
	RunTier(ctx context.Context, tier Tier) (Run, error)

	// RunBackfill walks cold windows backward until the floor or ctx ends
	RunBackfill(ctx context.Context) error

	// RunRange sweeps an explicit date range in cold-sized windows
	// without touching the persisted cursor
	RunRange(ctx context.Context, from, to time.Time) error

	// PlanCold previews the next n cold windows without running them
	PlanCold(ctx context.Context, n int) ([]WindowRequest, error)

	// Serve runs the hot and warm loops plus post-sweep rule evaluation
	// until ctx is done
	Serve(ctx context.Context) error
}

// SearchPort is the slice of the source client the page loop uses
type SearchPort interface {
	Search(ctx context.Context, q sam.Query) (sam.Page, sam.Rate, error)
}

// GovernorPort is the budget surface the page loop drives
type GovernorPort interface {
	Acquire(ctx context.Context, cost int) error
	Sync(s budget.Snapshot)
}

// PageRetry is one page's bounded retry state
type PageRetry interface {
	// Fail records a failure; false means attempts are exhausted
	Fail(serverDelay time.Duration) bool

	// Wait blocks until the armed delay elapses or ctx ends
	Wait(ctx context.Context) error
}

// MirrorPort receives committed per-record outcomes, batched per page
type MirrorPort interface {
	PageOutcomes(ctx context.Context, runID string, tier Tier, at time.Time, events []ingestdom.Event) error
}

// EvaluatorPort runs incremental rule evaluation after a sweep
type EvaluatorPort interface {
	EvaluateActive(ctx context.Context) error
}

// StorageRepo is the persistence surface for run bookkeeping and the
// cold cursor
type StorageRepo interface {
	OpenRun(ctx context.Context, r Run) error

	// FinishRun marks a running run terminal; finished reports whether
	// this call did the transition
	FinishRun(ctx context.Context, id string, status RunStatus, errText string, at time.Time) (bool, error)

	// BumpMetrics upserts counter deltas for a run
	BumpMetrics(ctx context.Context, runID string, deltas map[string]int64) error

	// Cursor returns the oldest completed cold boundary
	Cursor(ctx context.Context, tier Tier) (time.Time, bool, error)
	SetCursor(ctx context.Context, tier Tier, boundary time.Time) error
}
