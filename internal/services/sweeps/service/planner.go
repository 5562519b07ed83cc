package service

import (
	"time"

	ptime "github.com/BlueFrogAnalytics/SamBot/internal/platform/time"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/domain"
)

// Warm boundary modes. Posted windows filter on the posted date, updated
// windows on the last modified date
const (
	WarmBoundaryPosted  = "posted"
	WarmBoundaryUpdated = "updated"
)

// PlannerConfig controls window construction per tier
type PlannerConfig struct {
	HotOverlapDays   int    // days behind today the hot window starts; <0 -> 1
	WarmDays         int    // trailing window length; <=0 -> 7
	WarmBoundary     string // posted|updated; "" -> posted
	WarmIncludeToday bool

	ColdWindowDays int       // backfill step size; <=0 -> 30, capped at 365
	ColdFloor      time.Time // zero disables backfill
}

// Planner yields the date windows each tier fetches. Stateless; the cold
// boundary is read and advanced by the orchestrator
type Planner struct {
	Cfg PlannerConfig
}

// Hot returns the hot window for a sweep starting at now. The overlap
// behind today absorbs boundary misses from clock skew and source lag
func (p Planner) Hot(now time.Time) []domain.WindowRequest {
	today := ptime.DayUTC(now)
	overlap := p.Cfg.HotOverlapDays
	if overlap < 0 {
		overlap = 1
	}
	return []domain.WindowRequest{{From: today.AddDate(0, 0, -overlap), To: today}}
}

// Warm returns the trailing warm window for a sweep starting at now
func (p Planner) Warm(now time.Time) []domain.WindowRequest {
	days := p.Cfg.WarmDays
	if days <= 0 {
		days = 7
	}
	to := ptime.DayUTC(now)
	if !p.Cfg.WarmIncludeToday {
		to = to.AddDate(0, 0, -1)
	}
	return []domain.WindowRequest{{From: to.AddDate(0, 0, -(days - 1)), To: to}}
}

// NextCold returns the next backfill window walking backward from the
// persisted boundary toward the floor. ok is false when no floor is
// configured or the walk is caught up
func (p Planner) NextCold(now, boundary time.Time, haveCursor bool) (domain.WindowRequest, bool) {
	if p.Cfg.ColdFloor.IsZero() {
		return domain.WindowRequest{}, false
	}
	floor := ptime.DayUTC(p.Cfg.ColdFloor)
	end := ptime.DayUTC(now)
	if haveCursor {
		end = ptime.DayUTC(boundary).AddDate(0, 0, -1)
	}
	if end.Before(floor) {
		return domain.WindowRequest{}, false
	}
	from := end.AddDate(0, 0, -(p.coldWindowDays() - 1))
	if from.Before(floor) {
		from = floor
	}
	return domain.WindowRequest{From: from, To: end}, true
}

// Chunk slices an explicit range into cold-sized windows, newest first
func (p Planner) Chunk(from, to time.Time) []domain.WindowRequest {
	from = ptime.DayUTC(from)
	to = ptime.DayUTC(to)
	if to.Before(from) {
		return nil
	}
	size := p.coldWindowDays()
	var out []domain.WindowRequest
	end := to
	for !end.Before(from) {
		start := end.AddDate(0, 0, -(size - 1))
		if start.Before(from) {
			start = from
		}
		out = append(out, domain.WindowRequest{From: start, To: end})
		end = start.AddDate(0, 0, -1)
	}
	return out
}

func (p Planner) coldWindowDays() int {
	d := p.Cfg.ColdWindowDays
	if d <= 0 {
		d = 30
	}
	if d > 365 {
		d = 365
	}
	return d
}
