package module

import (
	"time"

	"github.com/BlueFrogAnalytics/SamBot/internal/platform/config"
)

// Options holds configuration options for the ingest service
type Options struct {
	Workers      int
	FetchRetries int
	RetryBase    time.Duration
	FilesDir     string
}

// FromConfig reads the ingest options from config with SAMBOT_ prefix
func FromConfig(cfg config.Conf) Options {
	ing := cfg.Prefix("SAMBOT_")
	return Options{
		Workers:      ing.MayInt("FETCH_WORKERS", 4),
		FetchRetries: ing.MayInt("FETCH_RETRIES", 5),
		RetryBase:    ing.MayDuration("RETRY_BASE", 500*time.Millisecond),
		FilesDir:     ing.MayString("FILES_DIR", "files"),
	}
}
