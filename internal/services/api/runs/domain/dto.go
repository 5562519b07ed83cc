// Package domain holds DTOs for the runs HTTP surface
package domain

// RunRow is the wire shape of one sweep run
type RunRow struct {
	ID         string `json:"id" example:"00000000-0000-0000-0000-000000000000"`
	Tier       string `json:"tier" example:"hot"`
	WindowFrom string `json:"window_from" example:"2026-08-20"`
	WindowTo   string `json:"window_to" example:"2026-08-24"`
	StartedAt  string `json:"started_at" example:"2026-08-24T06:00:00Z"`
	FinishedAt string `json:"finished_at,omitempty" example:"2026-08-24T06:02:41Z"`
	Status     string `json:"status" example:"succeeded"`
	Error      string `json:"error,omitempty"`
}

// RunsResp wraps the run listing, newest first
type RunsResp struct {
	Items []RunRow `json:"items"`
}

// RunDetailResp is one run with its committed counters
type RunDetailResp struct {
	Run     RunRow           `json:"run"`
	Metrics map[string]int64 `json:"metrics"`
}

// TierStatus is the most recent run of one tier
type TierStatus struct {
	Tier    string  `json:"tier" example:"warm"`
	LastRun *RunRow `json:"last_run,omitempty"`
}

// TableCounts reports stored record totals
type TableCounts struct {
	Opportunities int64 `json:"opportunities" example:"18234"`
	Descriptions  int64 `json:"descriptions" example:"17920"`
	Attachments   int64 `json:"attachments" example:"40312"`
	Rules         int64 `json:"rules" example:"12"`
	Matches       int64 `json:"matches" example:"341"`
}

// BudgetStatus reports request spend against the configured daily cap
// spend is summed from run counters, so it reflects committed pages only
type BudgetStatus struct {
	DailyLimit int64 `json:"daily_limit" example:"10000"`
	UsedToday  int64 `json:"used_today" example:"1204"`
	Remaining  int64 `json:"remaining" example:"8796"`
}

// StatusResp is the operational overview
type StatusResp struct {
	Tiers  []TierStatus `json:"tiers"`
	Counts TableCounts  `json:"counts"`
	Budget BudgetStatus `json:"budget"`
}
