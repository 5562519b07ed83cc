package domain

import (
	"context"
	"io"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/adapters/source/sam"
	"github.com/BlueFrogAnalytics/SamBot/internal/modkit/repokit"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/budget"
)

// Ports are the externally provided dependencies of this module
type Ports struct {
	Budget  BudgetPort
	Gateway GatewayPort
}

// DetectorPort routes one fetched page through change detection inside
// the caller's transaction
type DetectorPort interface {
	ProcessPage(ctx context.Context, q repokit.Queryer, recs []Record) (PageResult, error)
}

// FollowerPort starts follow-up pools for a sweep
type FollowerPort interface {
	StartPool(ctx context.Context) PoolPort
}

// PoolPort consumes queued follow-ups concurrently with page processing
type PoolPort interface {
	// Submit enqueues work; blocks only when the pool's buffer is full
	Submit(fus []FollowUp)

	// Drain waits for all submitted work and returns the totals
	Drain() FollowUpStats
}

// StorageRepo is the persistence surface for detector writes
type StorageRepo interface {
	Lookup(ctx context.Context, noticeID string) (Stored, bool, error)
	Insert(ctx context.Context, o Opportunity) error

	// UpdateChanged stores the new content and bumps version and
	// last_changed_at, returning the new version
	UpdateChanged(ctx context.Context, o Opportunity) (int, error)

	// TouchSeen refreshes last_seen_at only
	TouchSeen(ctx context.Context, noticeID string, seenAt time.Time) error

	ReplaceAward(ctx context.Context, noticeID string, a *Award) error
	ReplaceContacts(ctx context.Context, noticeID string, cs []Contact) error

	UpsertDescription(ctx context.Context, noticeID, body string, fetchedAt time.Time) error

	// DescriptionState reports when the stored description was fetched;
	// ok is false when no description exists
	DescriptionState(ctx context.Context, noticeID string) (time.Time, bool, error)

	// EnsureAttachment records a resource link once per (notice, url).
	// created is true when this call inserted the row
	EnsureAttachment(ctx context.Context, noticeID, url, filename string) (id, status string, created bool, err error)

	MarkAttachmentFetched(ctx context.Context, id string, sum sam.Checksum, storagePath string, fetchedAt time.Time) error
	MarkAttachmentFailed(ctx context.Context, id string, errText string) error
}

// GatewayPort is the slice of the source client follow-ups use
type GatewayPort interface {
	FetchDescription(ctx context.Context, href string) (string, sam.Rate, error)
	FetchAttachment(ctx context.Context, href string, dst io.Writer) (sam.Checksum, sam.Rate, error)
}

// BudgetPort is the slice of the governor follow-ups use
type BudgetPort interface {
	Acquire(ctx context.Context, cost int) error
	Sync(s budget.Snapshot)
}
