package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	phttp "github.com/BlueFrogAnalytics/SamBot/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func newRouter() Router { return phttp.AdaptChi(chi.NewRouter()) }

func TestMountUnderAppliesMiddleware(t *testing.T) {
	r := newRouter()

	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Scoped", "1")
			next.ServeHTTP(w, req)
		})
	}

	MountUnder(r, "/rules", []func(http.Handler) http.Handler{mw}, func(sub Router) {
		sub.Get("/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/rules/", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Scoped") != "1" {
		t.Fatalf("mounted route: %d %q", rec.Code, rec.Header().Get("X-Scoped"))
	}
}

func TestMountAPIPrefixes(t *testing.T) {
	r := newRouter()

	MountAPI(r, "v1", nil, func(api Router) {
		api.Get("/runs", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/runs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("api v1 route = %d", rec.Code)
	}

	// leading slash on version is tolerated
	r2 := newRouter()
	MountAPI(r2, "/v2", nil, func(api Router) {
		api.Get("/runs", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})
	rec = httptest.NewRecorder()
	r2.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v2/runs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("api v2 route = %d", rec.Code)
	}
}

func TestMountAPIV1Convenience(t *testing.T) {
	r := newRouter()
	MountAPIV1(r, nil, func(api Router) {
		api.Get("/health-deep", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health-deep", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("v1 convenience = %d", rec.Code)
	}
}

func TestCommonStackComposes(t *testing.T) {
	r := newRouter()
	stack := CommonStack()
	if len(stack) == 0 {
		t.Fatalf("stack should not be empty")
	}

	MountUnder(r, "/api", stack, func(sub Router) {
		sub.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	})

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stacked route = %d", rec.Code)
	}

	// heartbeat short-circuits inside the scoped subtree
	rec = httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("heartbeat = %d", rec.Code)
	}
}
