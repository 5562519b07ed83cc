// Package domain declares sweep types and ports
package domain

import (
	"time"
)

// Tier identifies which cadence a sweep belongs to
type Tier string

// Sweep tiers
const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// Valid reports whether t is a known tier
func (t Tier) Valid() bool {
	switch t {
	case TierHot, TierWarm, TierCold:
		return true
	}
	return false
}

// WindowRequest is one date window a sweep fetches, both ends inclusive
type WindowRequest struct {
	From time.Time
	To   time.Time
}

// RunStatus is the lifecycle state of a sweep run
type RunStatus string

// Run states; a run leaves running exactly once
const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunPartial   RunStatus = "partial"
)

// Run is one sweep execution record
type Run struct {
	ID         string
	Tier       Tier
	WindowFrom time.Time
	WindowTo   time.Time
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Error      string
}

// Metric names recorded per run. Page counters commit with the page
// transaction; the rest flush once at completion
const (
	MetricProcessed           = "processed"
	MetricCreated             = "created"
	MetricUpdated             = "updated"
	MetricUnchanged           = "unchanged"
	MetricConflicts           = "conflicts"
	MetricAttachmentsQueued   = "attachments_queued"
	MetricPages               = "pages"
	MetricDescriptionsFetched = "descriptions_fetched"
	MetricAttachmentsFetched  = "attachments_fetched"
	MetricFollowUpFailures    = "followup_failures"
	MetricDurationMS          = "duration_ms"
)
