package budget

import (
	"github.com/BlueFrogAnalytics/SamBot/internal/adapters/source/sam"
)

// FromRate converts gateway rate headers into a Snapshot for Sync.
// Rates come off every upstream response, failed calls included
func FromRate(r sam.Rate) Snapshot {
	return Snapshot{
		HasHourly:    r.HasHourly,
		Remaining:    r.Remaining,
		Reset:        r.Reset,
		HasDaily:     r.HasDaily,
		DayRemaining: r.DayRemaining,
		DayReset:     r.DayReset,
		RetryAfter:   r.RetryAfter,
	}
}
