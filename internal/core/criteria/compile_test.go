package criteria

import (
	"strings"
	"testing"
	"time"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	kit "github.com/BlueFrogAnalytics/SamBot/internal/platform/testkit"
)

func TestCompile_SimpleContains(t *testing.T) {
	sql, args, err := Compile(Clause{Field: "title", Op: OpContains, Value: "cyber"}, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	kit.MustContain(t, sql, "SELECT o.notice_id FROM opportunities o")
	kit.MustContain(t, sql, "LEFT JOIN descriptions d")
	kit.MustContain(t, sql, `o.title ILIKE $1 ESCAPE '\'`)
	kit.MustContain(t, sql, "ORDER BY o.notice_id")

	// value rides in args, never in the SQL text
	if strings.Contains(sql, "cyber") {
		t.Fatalf("value interpolated into SQL: %s", sql)
	}
	if len(args) != 1 || args[0] != "%cyber%" {
		t.Fatalf("args = %#v", args)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	tree := All{Nodes: []Node{
		Clause{Field: "title", Op: OpContains, Value: "fire"},
		Clause{Field: "agency", Op: OpEquals, Value: "GSA"},
	}}
	sql1, args1, err := Compile(tree, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	sql2, args2, _ := Compile(tree, Options{})
	if sql1 != sql2 {
		t.Fatalf("sql drifted between compiles:\n  %s\n  %s", sql1, sql2)
	}
	if len(args1) != len(args2) {
		t.Fatalf("arg count drifted: %d vs %d", len(args1), len(args2))
	}
}

func TestCompile_NestedPlaceholderOrder(t *testing.T) {
	tree := All{Nodes: []Node{
		Clause{Field: "title", Op: OpContains, Value: "cyber"},
		Any{Nodes: []Node{
			Clause{Field: "naics_codes", Op: OpIn, Values: []string{"541512", "541519"}},
			Clause{Field: "set_aside", Op: OpEquals, Value: "SBA"},
		}},
	}}

	sql, args, err := Compile(tree, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	kit.MustContain(t, sql, "o.naics_codes && $2")
	kit.MustContain(t, sql, "o.set_aside = $3")
	kit.MustContain(t, sql, " OR ")
	kit.MustContain(t, sql, " AND ")
	if len(args) != 3 {
		t.Fatalf("args = %#v", args)
	}
	if vs, ok := args[1].([]string); !ok || len(vs) != 2 {
		t.Fatalf("array arg = %#v", args[1])
	}
	if args[2] != "SBA" {
		t.Fatalf("args[2] = %#v", args[2])
	}
}

func TestCompile_TextIn(t *testing.T) {
	sql, args, err := Compile(Clause{Field: "status", Op: OpIn, Values: []string{"active", "archived"}}, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	kit.MustContain(t, sql, "o.status = ANY($1)")
	if vs, ok := args[0].([]string); !ok || len(vs) != 2 {
		t.Fatalf("args[0] = %#v", args[0])
	}
}

func TestCompile_DateRangeDateColumn(t *testing.T) {
	sql, args, err := Compile(Clause{Field: "posted_at", Op: OpDateRange, From: "2025-01-01", To: "2025-06-30"}, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	kit.MustContain(t, sql, "o.posted_at >= $1")
	kit.MustContain(t, sql, "o.posted_at <= $2")

	from := args[0].(time.Time)
	to := args[1].(time.Time)
	if !from.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", from)
	}
	if !to.Equal(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("to = %v", to)
	}
}

func TestCompile_DateRangeTimestampUpperBoundHalfOpen(t *testing.T) {
	sql, args, err := Compile(Clause{Field: "response_deadline", Op: OpDateRange, To: "2025-06-30"}, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	kit.MustContain(t, sql, "o.response_deadline < $1")

	// whole "to" day covered: bound is the next midnight
	bound := args[0].(time.Time)
	if !bound.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bound = %v", bound)
	}
}

func TestCompile_NumberRangeMinOnly(t *testing.T) {
	sql, args, err := Compile(Clause{Field: "award_amount", Op: OpNumberRange, Min: fptr(10000)}, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	kit.MustContain(t, sql, "a.award_amount >= $1")
	if strings.Contains(sql, "<=") {
		t.Fatalf("unexpected upper bound: %s", sql)
	}
	if args[0] != 10000.0 {
		t.Fatalf("args[0] = %#v", args[0])
	}
}

func TestCompile_EqualsCoercions(t *testing.T) {
	sql, args, err := Compile(Clause{Field: "archived", Op: OpEquals, Value: "true"}, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	kit.MustContain(t, sql, "o.archived = $1")
	if args[0] != true {
		t.Fatalf("args[0] = %#v", args[0])
	}

	_, args, err = Compile(Clause{Field: "posted_at", Op: OpEquals, Value: "2025-03-01"}, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, ok := args[0].(time.Time); !ok {
		t.Fatalf("date equals arg = %#v", args[0])
	}
}

func TestCompile_ChangedSinceCutoff(t *testing.T) {
	cut := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	sql, args, err := Compile(Clause{Field: "title", Op: OpContains, Value: "x"}, Options{ChangedSince: cut})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	kit.MustContain(t, sql, "o.last_changed_at >= $2")
	if !args[1].(time.Time).Equal(cut) {
		t.Fatalf("cutoff arg = %#v", args[1])
	}

	// cutoff lands before the ORDER BY, not after
	if strings.Index(sql, "last_changed_at") > strings.Index(sql, "ORDER BY") {
		t.Fatalf("cutoff after ORDER BY: %s", sql)
	}
}

func TestCompile_EscapesLikeMetacharacters(t *testing.T) {
	_, args, err := Compile(Clause{Field: "title", Op: OpContains, Value: `50%_off\`}, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got := args[0].(string)
	want := `%50\%\_off\\%`
	if got != want {
		t.Fatalf("escaped arg = %q, want %q", got, want)
	}
}

func TestCompile_RejectsInvalidTree(t *testing.T) {
	_, _, err := Compile(Clause{Field: "nope", Op: OpEquals, Value: "x"}, Options{})
	kit.MustCode(t, err, perr.ErrorCodeRuleCompile)
}

func TestCompileRaw(t *testing.T) {
	sql, args, err := CompileRaw("o.status = 'active' AND o.title ILIKE '%cyber%'", Options{})
	if err != nil {
		t.Fatalf("CompileRaw: %v", err)
	}
	kit.MustContain(t, sql, "WHERE (o.status = 'active'")
	kit.MustContain(t, sql, "ORDER BY o.notice_id")
	if len(args) != 0 {
		t.Fatalf("args = %#v", args)
	}
}

func TestCompileRaw_CutoffIsFirstArg(t *testing.T) {
	cut := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	sql, args, err := CompileRaw("o.agency = 'GSA'", Options{ChangedSince: cut})
	if err != nil {
		t.Fatalf("CompileRaw: %v", err)
	}
	kit.MustContain(t, sql, "o.last_changed_at >= $1")
	if len(args) != 1 {
		t.Fatalf("args = %#v", args)
	}
}

func TestValidateRaw_Screens(t *testing.T) {
	good := []string{
		"o.status = 'active'",
		"o.posted_at >= '2025-01-01' AND o.archived = false",
		"d.body ILIKE '%resettled%'",
	}
	for _, s := range good {
		if err := ValidateRaw(s); err != nil {
			t.Fatalf("ValidateRaw(%q): %v", s, err)
		}
	}

	bad := []struct {
		frag string
		want string
	}{
		{frag: "", want: "empty predicate"},
		{frag: "o.status = 'a'; DROP TABLE opportunities", want: "single statement"},
		{frag: "o.status = 'a' -- sneak", want: "comments"},
		{frag: "o.status = 'a' /* sneak */", want: "comments"},
		{frag: "delete from opportunities", want: `"delete"`},
		{frag: "o.title = 'x' AND UPDATE opportunities", want: `"update"`},
		{frag: "set search_path = public", want: `"set"`},
	}
	for _, tc := range bad {
		err := ValidateRaw(tc.frag)
		kit.MustCode(t, err, perr.ErrorCodeRuleCompile)
		kit.MustContain(t, err.Error(), tc.want)
	}
}
