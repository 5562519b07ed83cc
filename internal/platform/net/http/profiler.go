// Package http hosts server adapters. Profiler mounts pprof endpoints when enabled
package http

import (
	mw "github.com/go-chi/chi/v5/middleware"
)

// MountProfiler mounts pprof under prefix. Example: "/debug"
func MountProfiler(r Router, prefix string, enabled bool) {
	if !enabled {
		return
	}
	r.Mount(prefix, mw.Profiler())
}
