package sam

import (
	"net/http"
	"strconv"
	"time"
)

// Rate is the server's view of our quota, parsed from response headers.
// HasHourly/HasDaily report whether the respective remaining header was
// present; absent buckets must not overwrite local accounting
type Rate struct {
	Limit     int
	Remaining int
	Reset     time.Time
	HasHourly bool

	DayLimit     int
	DayRemaining int
	DayReset     time.Time
	HasDaily     bool

	RetryAfter time.Duration
}

// ParseRate reads the X-RateLimit family plus Retry-After. Reset headers
// are epoch seconds; Retry-After is delay seconds
func ParseRate(h http.Header) Rate {
	var r Rate

	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		r.Remaining = atoi(v)
		r.Limit = atoi(h.Get("X-RateLimit-Limit"))
		r.Reset = epoch(h.Get("X-RateLimit-Reset"))
		r.HasHourly = true
	}
	if v := h.Get("X-RateLimit-Remaining-Day"); v != "" {
		r.DayRemaining = atoi(v)
		r.DayLimit = atoi(h.Get("X-RateLimit-Limit-Day"))
		r.DayReset = epoch(h.Get("X-RateLimit-Reset-Day"))
		r.HasDaily = true
	}
	if s := atoi(h.Get("Retry-After")); s > 0 {
		r.RetryAfter = time.Duration(s) * time.Second
	}
	return r
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	i, _ := strconv.Atoi(s)
	return i
}

func epoch(s string) time.Time {
	sec := atoi(s)
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
