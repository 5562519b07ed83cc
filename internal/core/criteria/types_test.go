package criteria

import (
	"reflect"
	"testing"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
	kit "github.com/BlueFrogAnalytics/SamBot/internal/platform/testkit"
)

func TestParse_Tree(t *testing.T) {
	raw := []byte(`{"all": [
		{"field": "title", "op": "contains", "value": "cyber"},
		{"any": [
			{"field": "naics_codes", "op": "in", "values": ["541512", "541519"]},
			{"field": "set_aside", "op": "equals", "value": "SBA"}
		]},
		{"field": "posted_at", "op": "date_range", "from": "2025-01-01", "to": "2025-06-30"}
	]}`)

	n, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	all, ok := n.(All)
	if !ok {
		t.Fatalf("root = %T, want All", n)
	}
	if len(all.Nodes) != 3 {
		t.Fatalf("root children = %d, want 3", len(all.Nodes))
	}
	if c, ok := all.Nodes[0].(Clause); !ok || c.Field != "title" || c.Op != OpContains {
		t.Fatalf("first child = %#v", all.Nodes[0])
	}
	any1, ok := all.Nodes[1].(Any)
	if !ok || len(any1.Nodes) != 2 {
		t.Fatalf("second child = %#v", all.Nodes[1])
	}
	if c, ok := any1.Nodes[0].(Clause); !ok || len(c.Values) != 2 {
		t.Fatalf("in clause = %#v", any1.Nodes[0])
	}
}

func TestParse_BareClause(t *testing.T) {
	n, err := Parse([]byte(`{"field": "agency", "op": "equals", "value": "DOD"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c, ok := n.(Clause)
	if !ok || c.Field != "agency" || c.Value != "DOD" {
		t.Fatalf("node = %#v", n)
	}
}

func TestParse_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: ``, want: "empty definition"},
		{name: "both all and field", raw: `{"all": [{"field":"title","op":"contains","value":"x"}], "field": "title", "op": "contains", "value": "x"}`, want: "exactly one"},
		{name: "neither", raw: `{"op": "contains", "value": "x"}`, want: "exactly one"},
		{name: "unknown key", raw: `{"field": "title", "op": "contains", "value": "x", "extra": 1}`, want: "malformed"},
		{name: "not an object", raw: `["field"]`, want: "malformed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			kit.MustCode(t, err, perr.ErrorCodeRuleCompile)
			kit.MustContain(t, err.Error(), tc.want)
		})
	}
}

func TestParse_DepthGuard(t *testing.T) {
	raw := `{"field":"title","op":"contains","value":"x"}`
	for i := 0; i <= maxDepth; i++ {
		raw = `{"all":[` + raw + `]}`
	}
	_, err := Parse([]byte(raw))
	kit.MustCode(t, err, perr.ErrorCodeRuleCompile)
	kit.MustContain(t, err.Error(), "nested deeper")
}

func TestMarshal_RoundTrip(t *testing.T) {
	minv := 10000.0
	tree := All{Nodes: []Node{
		Clause{Field: "title", Op: OpContains, Value: "cyber"},
		Any{Nodes: []Node{
			Clause{Field: "naics_codes", Op: OpIn, Values: []string{"541512"}},
			Clause{Field: "award_amount", Op: OpNumberRange, Min: &minv},
		}},
	}}

	raw, err := Marshal(tree)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(Marshal): %v", err)
	}
	if !reflect.DeepEqual(tree, back) {
		t.Fatalf("round trip drifted:\n  in  %#v\n  out %#v", tree, back)
	}
}
