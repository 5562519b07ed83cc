package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	kit "github.com/BlueFrogAnalytics/SamBot/internal/platform/testkit"
)

type ruleBody struct {
	Name     string `json:"name" validate:"required,min=2,max=64"`
	Priority int    `json:"priority" validate:"min=0,max=100"`
}

type windowBody struct {
	PostedFrom string `json:"posted_from" validate:"required,date_ymd"`
	PostedTo   string `json:"posted_to" validate:"omitempty,date_ymd"`
}

func post(body string) *http.Request {
	return httptest.NewRequest("POST", "/rules", strings.NewReader(body))
}

func TestParseJSONHappyPath(t *testing.T) {
	got, err := ParseJSON[ruleBody](post(`{"name":"cyber","priority":5}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if got.Name != "cyber" || got.Priority != 5 {
		t.Fatalf("parsed = %+v", got)
	}
}

func TestParseJSONRejectsUnknownFields(t *testing.T) {
	_, err := ParseJSON[ruleBody](post(`{"name":"cyber","bogus":1}`))
	kit.MustCode(t, err, perr.ErrorCodeJSON)
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	_, err := ParseJSON[ruleBody](post(`{"name":"cyber"}{"name":"again"}`))
	kit.MustCode(t, err, perr.ErrorCodeJSON)
	kit.MustContain(t, err.Error(), "trailing")
}

func TestParseJSONEmptyBody(t *testing.T) {
	_, err := ParseJSON[ruleBody](post(""))
	kit.MustCode(t, err, perr.ErrorCodeJSON)

	// GET tolerates an empty body
	req := httptest.NewRequest("GET", "/rules", strings.NewReader(""))
	got, err := ParseJSON[ruleBody](req)
	if err != nil {
		t.Fatalf("GET empty body: %v", err)
	}
	if got.Name != "" {
		t.Fatalf("zero value expected, got %+v", got)
	}
}

func TestParseJSONAllowEmptyBodyOption(t *testing.T) {
	req := post("")
	got, err := ParseJSON[ruleBody](req, JSONOptions{AllowEmptyBody: true, DisallowUnknown: true})
	if err != nil {
		t.Fatalf("AllowEmptyBody: %v", err)
	}
	if got.Name != "" {
		t.Fatalf("zero value expected, got %+v", got)
	}
}

func TestParseJSONValidationMessages(t *testing.T) {
	_, err := ParseJSON[ruleBody](post(`{"name":"c"}`))
	kit.MustCode(t, err, perr.ErrorCodeValidation)
	kit.MustContain(t, err.Error(), "name must be at least 2")

	_, err = ParseJSON[ruleBody](post(`{"name":"cyber","priority":101}`))
	kit.MustCode(t, err, perr.ErrorCodeValidation)
	kit.MustContain(t, err.Error(), "priority must be at most 100")
}

func TestParseJSONValidationAttachesField(t *testing.T) {
	_, err := ParseJSON[ruleBody](post(`{"name":""}`))
	kit.MustCode(t, err, perr.ErrorCodeValidation)
	pe, ok := perr.As(err)
	if !ok {
		t.Fatalf("expected project error, got %T", err)
	}
	if pe.Field() != "name" {
		t.Fatalf("field = %q", pe.Field())
	}
}

func TestDateYMDTag(t *testing.T) {
	if _, err := ParseJSON[windowBody](post(`{"posted_from":"2025-01-31"}`)); err != nil {
		t.Fatalf("valid date rejected: %v", err)
	}

	_, err := ParseJSON[windowBody](post(`{"posted_from":"01/31/2025"}`))
	kit.MustCode(t, err, perr.ErrorCodeValidation)
	kit.MustContain(t, err.Error(), "posted_from must be a date in YYYY-MM-DD form")

	// omitempty lets the optional bound stay blank
	if _, err := ParseJSON[windowBody](post(`{"posted_from":"2025-01-01","posted_to":""}`)); err != nil {
		t.Fatalf("blank optional date rejected: %v", err)
	}
}

func TestParseJSONMaxBytes(t *testing.T) {
	big := `{"name":"` + strings.Repeat("a", 100) + `"}`
	_, err := ParseJSON[ruleBody](post(big), JSONOptions{MaxBytes: 16, DisallowUnknown: true})
	kit.MustCode(t, err, perr.ErrorCodeJSON)
}

func TestJSONMiddlewareStashesPayload(t *testing.T) {
	var got *ruleBody
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext[ruleBody](r)
	})
	h := JSON[ruleBody]()(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post(`{"name":"cyber","priority":1}`))
	if got == nil || got.Name != "cyber" {
		t.Fatalf("payload not stashed: %+v", got)
	}

	// parse failures write a 400 before next runs
	got = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, post(`{`))
	if rec.Code != http.StatusBadRequest || got != nil {
		t.Fatalf("middleware error path: %d %+v", rec.Code, got)
	}
}

func TestValidationFieldAndMessage(t *testing.T) {
	if f, m := ValidationFieldAndMessage(nil); f != "" || m != "" {
		t.Fatalf("nil err: %q %q", f, m)
	}

	err := Get().Validator.Struct(ruleBody{Name: ""})
	f, m := ValidationFieldAndMessage(err)
	if f != "name" || m == "" {
		t.Fatalf("field=%q msg=%q", f, m)
	}
}

func TestRegisterValidation(t *testing.T) {
	if err := RegisterValidation("always_ok", func(fl FieldLevel) bool { return true }); err != nil {
		t.Fatalf("RegisterValidation: %v", err)
	}
}
