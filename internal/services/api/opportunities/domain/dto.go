// Package domain holds DTOs for the opportunities http and service contracts
package domain

import "encoding/json"

// PageOpts defines cursor pagination options
type PageOpts struct {
	Cursor string `json:"cursor,omitempty" example:"eyJhZnRlciI6IlNQRTRBNjI2VDAxNEIifQ"`
	Limit  int    `json:"limit,omitempty"  validate:"omitempty,min=1,max=200" example:"50"`
}

// Filters is the structured alternative to a criteria tree. Listed
// conditions must all hold; list fields match any of their values
type Filters struct {
	Agencies      []string `json:"agencies,omitempty"      validate:"omitempty,dive,min=1,max=200" example:"DEPT OF DEFENSE"`
	NoticeTypes   []string `json:"notice_types,omitempty"  validate:"omitempty,dive,min=1,max=100" example:"Solicitation"`
	NAICS         []string `json:"naics,omitempty"         validate:"omitempty,dive,min=2,max=10" example:"336411"`
	SetAsides     []string `json:"set_asides,omitempty"    validate:"omitempty,dive,min=1,max=100" example:"SBA"`
	Statuses      []string `json:"statuses,omitempty"      validate:"omitempty,dive,min=1,max=50" example:"active"`
	TitleContains string   `json:"title_contains,omitempty" validate:"omitempty,min=2,max=200" example:"aircraft"`
	PostedFrom    string   `json:"posted_from,omitempty"   validate:"omitempty,date_ymd" example:"2026-08-01"`
	PostedTo      string   `json:"posted_to,omitempty"     validate:"omitempty,date_ymd" example:"2026-08-31"`
	DeadlineFrom  string   `json:"deadline_from,omitempty" validate:"omitempty,date_ymd" example:"2026-09-01"`
	DeadlineTo    string   `json:"deadline_to,omitempty"   validate:"omitempty,date_ymd" example:"2026-09-30"`
	Archived      *bool    `json:"archived,omitempty"      example:"false"`
}

// QueryInput selects opportunities with a criteria tree, structured
// filters, or both combined. Empty input pages through every record
type QueryInput struct {
	Criteria json.RawMessage `json:"criteria,omitempty" swaggertype:"object"`
	Filters  *Filters        `json:"filters,omitempty"`
	Page     PageOpts        `json:"page,omitempty"`
}

// SearchInput runs a web style full text query over fetched descriptions
type SearchInput struct {
	Query string   `json:"query" validate:"required,min=2,max=200" example:"unmanned aircraft maintenance"`
	Page  PageOpts `json:"page,omitempty"`
}

// OpportunityRow is one record in query results
type OpportunityRow struct {
	NoticeID         string   `json:"notice_id" example:"SPE4A626T014B"`
	Title            string   `json:"title" example:"Aircraft Spare Parts"`
	Agency           string   `json:"agency,omitempty" example:"DEPT OF DEFENSE"`
	SubTier          string   `json:"sub_tier,omitempty" example:"DEFENSE LOGISTICS AGENCY"`
	Office           string   `json:"office,omitempty" example:"DLA AVIATION"`
	NoticeType       string   `json:"notice_type,omitempty" example:"Solicitation"`
	Status           string   `json:"status,omitempty" example:"active"`
	PostedAt         string   `json:"posted_at,omitempty" example:"2026-08-20"`
	ResponseDeadline string   `json:"response_deadline,omitempty" example:"2026-09-04T17:00:00Z"`
	NAICSCodes       []string `json:"naics_codes,omitempty" example:"336411"`
	SetAside         string   `json:"set_aside,omitempty" example:"SBA"`
	Archived         bool     `json:"archived"`
	Version          int      `json:"version" example:"1"`
	LastChangedAt    string   `json:"last_changed_at" example:"2026-08-20T06:15:04Z"`
}

// QueryResp returns one page of matches in notice id order
type QueryResp struct {
	Items      []OpportunityRow `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty" example:"eyJhZnRlciI6IlNQRTRBNjI2VDAxNEIifQ"`
}

// SearchHit is one ranked full text result
type SearchHit struct {
	OpportunityRow
	Rank float64 `json:"rank" example:"0.607"`
}

// SearchResp returns one page ranked best first
type SearchResp struct {
	Items      []SearchHit `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty" example:"eyJvZmZzZXQiOjUwfQ"`
}

// Detail is the full record view
type Detail struct {
	OpportunityRow
	UpdatedAt   string `json:"updated_at,omitempty" example:"2026-08-20T05:58:11Z"`
	ContentHash string `json:"content_hash" example:"9f86d081884c7d65"`
	FirstSeenAt string `json:"first_seen_at" example:"2026-08-20T06:15:04Z"`
	LastSeenAt  string `json:"last_seen_at" example:"2026-08-25T06:15:04Z"`
}

// AttachmentRow is one attachment with its fetch state
type AttachmentRow struct {
	ID        string `json:"id" example:"7e6cfa30-51a3-4fd0-9a36-8f4c1f6a2b90"`
	URL       string `json:"url" example:"https://sam.gov/api/prod/opps/v3/opportunities/resources/files/abc/download"`
	Filename  string `json:"filename,omitempty" example:"SPE4A626T014B.pdf"`
	Status    string `json:"status" example:"fetched"`
	SizeBytes int64  `json:"size_bytes,omitempty" example:"182044"`
	SHA256    string `json:"sha256,omitempty"`
	FetchedAt string `json:"fetched_at,omitempty" example:"2026-08-20T06:16:11Z"`
}

// ContactRow is one point of contact
type ContactRow struct {
	Kind     string `json:"kind,omitempty" example:"primary"`
	FullName string `json:"full_name,omitempty" example:"Jordan Avery"`
	Email    string `json:"email,omitempty" example:"jordan.avery@dla.mil"`
	Phone    string `json:"phone,omitempty"`
	Title    string `json:"title,omitempty" example:"Contract Specialist"`
}

// AwardRow is the award block when the notice carries one
type AwardRow struct {
	Date        string   `json:"date,omitempty" example:"2026-08-15"`
	Number      string   `json:"number,omitempty" example:"SPE4A626C0042"`
	Amount      *float64 `json:"amount,omitempty" example:"1250000"`
	AwardeeName string   `json:"awardee_name,omitempty" example:"Collins Aerospace"`
	AwardeeUEI  string   `json:"awardee_uei,omitempty"`
}

// DetailResp is the record plus its fetched satellite rows
type DetailResp struct {
	Opportunity Detail          `json:"opportunity"`
	Description string          `json:"description,omitempty"`
	Attachments []AttachmentRow `json:"attachments,omitempty"`
	Contacts    []ContactRow    `json:"contacts,omitempty"`
	Award       *AwardRow       `json:"award,omitempty"`
}
