// Package criteria models declarative rule definitions as a tagged-variant
// expression tree and compiles them to parameterized SQL over the
// opportunity store.
//
// JSON shape: every node is an object carrying exactly one of the keys
// "all", "any", or "field".
//
//	{"all": [
//	  {"field": "title", "op": "contains", "value": "cyber"},
//	  {"any": [
//	    {"field": "naics_codes", "op": "in", "values": ["541512", "541519"]},
//	    {"field": "set_aside", "op": "equals", "value": "SBA"}
//	  ]},
//	  {"field": "posted_at", "op": "date_range", "from": "2025-01-01"}
//	]}
//
// Definitions are validated at save time; anything that parses and
// validates here compiles, so evaluation never sees a bad rule.
package criteria

import (
	"bytes"
	"encoding/json"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

// Op names a clause operator
type Op string

// Clause operators
const (
	OpEquals      Op = "equals"
	OpContains    Op = "contains"
	OpIn          Op = "in"
	OpDateRange   Op = "date_range"
	OpNumberRange Op = "number_range"
)

// Node is one vertex of the expression tree. Sealed: only Clause, All and
// Any implement it, which keeps the compiler's type switch exhaustive
type Node interface {
	node()
}

// All matches when every child matches
type All struct {
	Nodes []Node
}

func (All) node() {}

// Any matches when at least one child matches
type Any struct {
	Nodes []Node
}

func (Any) node() {}

// Clause is a single field/operator/value test. Which value slots are
// consulted depends on Op: Value for equals/contains, Values for in,
// From/To for date_range (YYYY-MM-DD, either side may be open), Min/Max
// for number_range (either side may be open)
type Clause struct {
	Field  string
	Op     Op
	Value  string
	Values []string
	From   string
	To     string
	Min    *float64
	Max    *float64
}

func (Clause) node() {}

// clauseJSON is the wire form of a Clause
type clauseJSON struct {
	Field  string   `json:"field"`
	Op     Op       `json:"op"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
	From   string   `json:"from,omitempty"`
	To     string   `json:"to,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// nodeJSON is the wire form of any Node; exactly one of all/any/field is
// present. Pointer slices so an explicit empty combinator still parses and
// gets rejected by Validate with a message about being empty
type nodeJSON struct {
	All   *[]json.RawMessage `json:"all,omitempty"`
	Any   *[]json.RawMessage `json:"any,omitempty"`
	Field string             `json:"field,omitempty"`

	Op     Op       `json:"op,omitempty"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
	From   string   `json:"from,omitempty"`
	To     string   `json:"to,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// Parse decodes a JSON definition into its tree. Shape errors come back as
// rule compile errors; Parse does not check fields or operators, that is
// Validate's job
func Parse(raw []byte) (Node, error) {
	if len(raw) == 0 {
		return nil, perr.RuleCompilef("empty definition")
	}
	var msg json.RawMessage = raw
	return decode(msg, 0)
}

// maxDepth bounds nesting so a pathological definition cannot recurse the
// compiler into the ground
const maxDepth = 16

func decode(raw json.RawMessage, depth int) (Node, error) {
	if depth > maxDepth {
		return nil, perr.RuleCompilef("definition nested deeper than %d levels", maxDepth)
	}

	var nj nodeJSON
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&nj); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeRuleCompile, "malformed definition node")
	}

	set := 0
	if nj.All != nil {
		set++
	}
	if nj.Any != nil {
		set++
	}
	if nj.Field != "" {
		set++
	}
	if set != 1 {
		return nil, perr.RuleCompilef(`node must carry exactly one of "all", "any" or "field"`)
	}

	switch {
	case nj.All != nil:
		kids, err := decodeList(*nj.All, depth+1)
		if err != nil {
			return nil, err
		}
		return All{Nodes: kids}, nil
	case nj.Any != nil:
		kids, err := decodeList(*nj.Any, depth+1)
		if err != nil {
			return nil, err
		}
		return Any{Nodes: kids}, nil
	default:
		return Clause{
			Field:  nj.Field,
			Op:     nj.Op,
			Value:  nj.Value,
			Values: nj.Values,
			From:   nj.From,
			To:     nj.To,
			Min:    nj.Min,
			Max:    nj.Max,
		}, nil
	}
}

func decodeList(raws []json.RawMessage, depth int) ([]Node, error) {
	kids := make([]Node, 0, len(raws))
	for _, r := range raws {
		n, err := decode(r, depth)
		if err != nil {
			return nil, err
		}
		kids = append(kids, n)
	}
	return kids, nil
}

// Marshal encodes a tree back to its JSON wire form
func Marshal(n Node) ([]byte, error) {
	v, err := encode(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func encode(n Node) (any, error) {
	switch t := n.(type) {
	case All:
		kids, err := encodeList(t.Nodes)
		if err != nil {
			return nil, err
		}
		return map[string]any{"all": kids}, nil
	case Any:
		kids, err := encodeList(t.Nodes)
		if err != nil {
			return nil, err
		}
		return map[string]any{"any": kids}, nil
	case Clause:
		return clauseJSON{
			Field:  t.Field,
			Op:     t.Op,
			Value:  t.Value,
			Values: t.Values,
			From:   t.From,
			To:     t.To,
			Min:    t.Min,
			Max:    t.Max,
		}, nil
	case nil:
		return nil, perr.RuleCompilef("nil node")
	default:
		return nil, perr.RuleCompilef("unknown node type %T", n)
	}
}

func encodeList(nodes []Node) ([]any, error) {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		v, err := encode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
