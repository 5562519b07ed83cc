// Package budget governs upstream call volume shared by every sweep
// tier: an hourly bucket with a rolling reset, a daily bucket resetting
// at UTC midnight, and a penalty window armed by Retry-After guidance.
// Server-reported rate state always overrides local accounting.
package budget

import (
	"context"
	"sync"
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/platform/config"
	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	ptime "github.com/BlueFrogAnalytics/SamBot/internal/platform/time"
)

// Config holds quota sizing for the Governor
type Config struct {
	Hourly  int           // calls per rolling hour; <=0 -> 1000
	Daily   int           // calls per UTC day; <=0 -> 10000
	MaxWait time.Duration // longest Acquire suspension; <=0 -> 2m
}

// FromConfig reads governor options from config with SAMBOT_BUDGET_ prefix
func FromConfig(cfg config.Conf) Config {
	b := cfg.Prefix("SAMBOT_BUDGET_")
	return Config{
		Hourly:  b.MayInt("HOURLY", 1000),
		Daily:   b.MayInt("DAILY", 10000),
		MaxWait: b.MayDuration("MAX_WAIT", 2*time.Minute),
	}
}

// Snapshot carries server-reported rate state back into the Governor.
// The Has flags gate each bucket so an absent header never clobbers
// local accounting.
type Snapshot struct {
	HasHourly    bool
	Remaining    int
	Reset        time.Time
	HasDaily     bool
	DayRemaining int
	DayReset     time.Time
	RetryAfter   time.Duration
}

// Stats is a point-in-time view of the accounting state
type Stats struct {
	HourlyLimit     int
	HourlyRemaining int
	HourlyReset     time.Time
	DailyLimit      int
	DailyRemaining  int
	DailyReset      time.Time
	PenaltyUntil    time.Time
}

// Governor owns the two quota buckets. The mutex guards counters only;
// it is released before any suspension and never wraps a network call
type Governor struct {
	mu  sync.Mutex
	cfg Config

	hourlyRemaining int
	hourlyReset     time.Time
	dailyRemaining  int
	dailyReset      time.Time
	penaltyUntil    time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGovernor seeds both buckets full. Reset windows start on first use
func NewGovernor(cfg Config) *Governor {
	if cfg.Hourly <= 0 {
		cfg.Hourly = 1000
	}
	if cfg.Daily <= 0 {
		cfg.Daily = 10000
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 2 * time.Minute
	}
	return &Governor{
		cfg:             cfg,
		hourlyRemaining: cfg.Hourly,
		dailyRemaining:  cfg.Daily,
		now:             time.Now,
		sleep:           sleepCtx,
	}
}

// Acquire suspends until cost calls are available in both buckets and
// any penalty window has elapsed, then debits and returns. It fails with
// BudgetExhausted when the projected availability would overrun the
// context deadline or MaxWait, whichever comes first. cost <= 0 is a
// no-op
func (g *Governor) Acquire(ctx context.Context, cost int) error {
	if cost <= 0 {
		return nil
	}
	if cost > g.cfg.Hourly || cost > g.cfg.Daily {
		return perr.BudgetExhaustedf("budget: cost %d exceeds configured quota", cost)
	}

	deadline := g.now().Add(g.cfg.MaxWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		g.mu.Lock()
		now := g.now()
		g.refill(now)
		wait := g.waitFor(now, cost)
		if wait <= 0 {
			g.hourlyRemaining -= cost
			g.dailyRemaining -= cost
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		if now.Add(wait).After(deadline) {
			return perr.BudgetExhaustedf("budget: next relief in %s exceeds deadline", wait)
		}
		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Sync folds server-reported rate state into local accounting. Buckets
// absent from the snapshot keep their local counters
func (g *Governor) Sync(s Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s.HasHourly {
		g.hourlyRemaining = s.Remaining
		if !s.Reset.IsZero() {
			g.hourlyReset = s.Reset
		}
	}
	if s.HasDaily {
		g.dailyRemaining = s.DayRemaining
		if !s.DayReset.IsZero() {
			g.dailyReset = s.DayReset
		}
	}
	if s.RetryAfter > 0 {
		g.armPenalty(s.RetryAfter)
	}
}

// RecordRetryAfter arms a penalty window; no call proceeds before it
// elapses. Longer guidance extends the window, shorter never shrinks it
func (g *Governor) RecordRetryAfter(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armPenalty(d)
}

// Stats reports the current accounting state for status surfaces
func (g *Governor) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refill(g.now())
	return Stats{
		HourlyLimit:     g.cfg.Hourly,
		HourlyRemaining: g.hourlyRemaining,
		HourlyReset:     g.hourlyReset,
		DailyLimit:      g.cfg.Daily,
		DailyRemaining:  g.dailyRemaining,
		DailyReset:      g.dailyReset,
		PenaltyUntil:    g.penaltyUntil,
	}
}

// refill opens a fresh window for any bucket whose reset has passed.
// Callers hold mu
func (g *Governor) refill(now time.Time) {
	if g.hourlyReset.IsZero() || !now.Before(g.hourlyReset) {
		g.hourlyRemaining = g.cfg.Hourly
		g.hourlyReset = now.Add(time.Hour)
	}
	if g.dailyReset.IsZero() || !now.Before(g.dailyReset) {
		g.dailyRemaining = g.cfg.Daily
		g.dailyReset = ptime.NextMidnightUTC(now)
	}
}

// waitFor reports how long until cost becomes available, zero when the
// caller may proceed now. Callers hold mu
func (g *Governor) waitFor(now time.Time, cost int) time.Duration {
	wait := max(0, g.penaltyUntil.Sub(now))
	if g.hourlyRemaining < cost {
		wait = max(wait, g.hourlyReset.Sub(now))
	}
	if g.dailyRemaining < cost {
		wait = max(wait, g.dailyReset.Sub(now))
	}
	return wait
}

func (g *Governor) armPenalty(d time.Duration) {
	if until := g.now().Add(d); until.After(g.penaltyUntil) {
		g.penaltyUntil = until
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
