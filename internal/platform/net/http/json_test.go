package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	phttp "github.com/BlueFrogAnalytics/SamBot/internal/platform/net/http"
)

type saveRuleIn struct {
	Name string `json:"name" validate:"required,min=1"`
}

func TestJSONHandlerBindsAndValidates(t *testing.T) {
	h := phttp.JSONHandler(func(r *http.Request, in saveRuleIn) (any, error) {
		return map[string]string{"name": in.Name}, nil
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/rules", strings.NewReader(`{"name":"cyber"}`))
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	// validation failure surfaces as a 400 envelope
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/rules", strings.NewReader(`{"name":""}`))
	h(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation status = %d", rec.Code)
	}
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Code != perr.ErrorCodeValidation {
		t.Fatalf("code = %v", env.Code)
	}

	// malformed JSON is a 400 as well
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/rules", strings.NewReader(`{`))
	h(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed status = %d", rec.Code)
	}
}

func TestJSONHandlerNoBody(t *testing.T) {
	h := phttp.JSONHandlerNoBody(func(r *http.Request) (any, error) {
		return map[string]int{"total": 7}, nil
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/runs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	h = phttp.JSONHandlerNoBody(func(r *http.Request) (any, error) {
		return nil, perr.NotFoundf("run missing")
	})
	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/runs/zzz", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("error status = %d", rec.Code)
	}
}
