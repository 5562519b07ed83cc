// Package domain holds the core types and ports for change detection
package domain

import (
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/adapters/source/sam"
)

// Record re-exports the gateway's wire record consumed by the detector
type Record = sam.Record

// Opportunity is the stored form of one notice
type Opportunity struct {
	NoticeID         string
	Title            string
	Agency           string
	SubTier          string
	Office           string
	NoticeType       string
	Status           string
	PostedAt         time.Time // zero when the source omitted it
	UpdatedAt        *time.Time
	ResponseDeadline *time.Time
	NAICSCodes       []string // sorted
	SetAside         string
	Archived         bool
	ContentHash      string
	Version          int
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
	LastChangedAt    time.Time
	Raw              []byte
}

// Stored is the hash state consulted by change detection
type Stored struct {
	ContentHash   string
	Version       int
	LastChangedAt time.Time
}

// Award is the primary award on a notice, at most one row per notice
type Award struct {
	NoticeID    string
	AwardDate   string // as reported; upstream formats drift
	AwardNumber string
	AwardAmount *float64
	AwardeeName string
	AwardeeUEI  string
}

// Contact is one point of contact on a notice
type Contact struct {
	NoticeID string
	Kind     string
	FullName string
	Email    string
	Phone    string
	Title    string
}

// Attachment statuses
const (
	AttachmentPending = "pending"
	AttachmentFetched = "fetched"
	AttachmentFailed  = "failed"
)

// Action classifies what the detector did with one record
type Action string

// Detector outcomes
const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

// Outcome summarizes one processed record
type Outcome struct {
	NoticeID string
	Action   Action
	Version  int
}

// Event is one detector outcome routed to the activity mirror
type Event struct {
	NoticeID string
	Action   Action
	Version  int
}

// FollowUpKind discriminates queued auxiliary fetches
type FollowUpKind int

// Follow-up kinds
const (
	FollowDescription FollowUpKind = iota
	FollowAttachment
)

// FollowUp is one queued auxiliary fetch. AttachmentID and Filename are
// set for attachment work only
type FollowUp struct {
	Kind         FollowUpKind
	NoticeID     string
	URL          string
	AttachmentID string
	Filename     string
}

// PageResult aggregates one page of detector outcomes
type PageResult struct {
	Processed         int
	Created           int
	Updated           int
	Unchanged         int
	Conflicts         int
	AttachmentsQueued int
	Events            []Event
	FollowUps         []FollowUp
}

// FollowUpStats totals one sweep's follow-up executions
type FollowUpStats struct {
	Descriptions int
	Attachments  int
	Failures     int
}

// Add folds another batch of totals in
func (s *FollowUpStats) Add(o FollowUpStats) {
	s.Descriptions += o.Descriptions
	s.Attachments += o.Attachments
	s.Failures += o.Failures
}
