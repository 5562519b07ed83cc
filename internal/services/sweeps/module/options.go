package module

import (
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/platform/config"
	"github.com/BlueFrogAnalytics/SamBot/internal/services/sweeps/service"
)

// Options holds configuration options for the sweep orchestrator
type Options struct {
	SearchLimit int
	PageRetries int
	RetryBase   time.Duration
	RetryCap    time.Duration

	HotOverlapDays   int
	WarmDays         int
	WarmBoundary     string
	WarmIncludeToday bool
	ColdWindowDays   int
	ColdFloor        time.Time

	HotEvery  time.Duration
	WarmEvery time.Duration

	// StmtTimeoutMS bounds each statement inside page transactions;
	// 0 leaves the server default in place
	StmtTimeoutMS int
}

// FromConfig reads the sweep options from config with SAMBOT_ prefix
func FromConfig(cfg config.Conf) Options {
	sw := cfg.Prefix("SAMBOT_")
	return Options{
		SearchLimit: sw.MayInt("SEARCH_LIMIT", 100),
		PageRetries: sw.MayInt("PAGE_RETRIES", 5),
		RetryBase:   sw.MayDuration("PAGE_RETRY_BASE", 500*time.Millisecond),
		RetryCap:    sw.MayDuration("PAGE_RETRY_CAP", 30*time.Second),

		HotOverlapDays:   sw.MayInt("HOT_OVERLAP_DAYS", 1),
		WarmDays:         sw.MayInt("WARM_DAYS", 7),
		WarmBoundary:     sw.MayEnum("WARM_BOUNDARY", service.WarmBoundaryPosted, service.WarmBoundaryPosted, service.WarmBoundaryUpdated),
		WarmIncludeToday: sw.MayBool("WARM_INCLUDE_TODAY", true),
		ColdWindowDays:   sw.MayInt("COLD_WINDOW_DAYS", 30),
		ColdFloor:        sw.MayDate("COLD_FLOOR", time.Time{}),

		HotEvery:  sw.MayDuration("HOT_EVERY", 15*time.Minute),
		WarmEvery: sw.MayDuration("WARM_EVERY", time.Hour),

		StmtTimeoutMS: sw.MayInt("STMT_TIMEOUT_MS", 0),
	}
}

// Config converts options to the service config
func (o Options) Config() service.Config {
	return service.Config{
		Planner: service.PlannerConfig{
			HotOverlapDays:   o.HotOverlapDays,
			WarmDays:         o.WarmDays,
			WarmBoundary:     o.WarmBoundary,
			WarmIncludeToday: o.WarmIncludeToday,
			ColdWindowDays:   o.ColdWindowDays,
			ColdFloor:        o.ColdFloor,
		},
		SearchLimit: o.SearchLimit,
		PageRetries: o.PageRetries,
		RetryBase:   o.RetryBase,
		RetryCap:    o.RetryCap,
		HotEvery:    o.HotEvery,
		WarmEvery:   o.WarmEvery,
	}
}
