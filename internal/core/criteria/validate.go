package criteria

import (
	"strconv"
	"strings"
	"time"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

const dateLayout = "2006-01-02"

// Validate walks the tree and rejects anything Compile could not turn into
// sound SQL: unknown fields, operators a field's kind does not support,
// value slots that do not match the operator, empty combinators. A nil
// error here guarantees Compile succeeds on the same tree
func Validate(n Node) error {
	if n == nil {
		return perr.RuleCompilef("empty definition")
	}
	return validateNode(n)
}

func validateNode(n Node) error {
	switch t := n.(type) {
	case All:
		if len(t.Nodes) == 0 {
			return perr.RuleCompilef(`"all" must contain at least one node`)
		}
		return validateList(t.Nodes)
	case Any:
		if len(t.Nodes) == 0 {
			return perr.RuleCompilef(`"any" must contain at least one node`)
		}
		return validateList(t.Nodes)
	case Clause:
		return validateClause(t)
	default:
		return perr.RuleCompilef("unknown node type %T", n)
	}
}

func validateList(nodes []Node) error {
	for _, n := range nodes {
		if err := validateNode(n); err != nil {
			return err
		}
	}
	return nil
}

func validateClause(c Clause) error {
	def, ok := fieldMap[c.Field]
	if !ok {
		return perr.RuleCompilef("unknown field %q (known: %s)", c.Field, strings.Join(Fields(), ", "))
	}
	if !opAllowed(def.kind, c.Op) {
		return perr.RuleCompilef("field %q does not support %q (supported: %s)", c.Field, c.Op, opList(def.kind))
	}

	switch c.Op {
	case OpEquals, OpContains:
		if c.Value == "" {
			return perr.RuleCompilef("%q on %q needs a value", c.Op, c.Field)
		}
		if err := rejectExtraSlots(c, false, false, false); err != nil {
			return err
		}
		if c.Op == OpEquals {
			return validateScalar(c, def.kind)
		}
		return nil

	case OpIn:
		if len(c.Values) == 0 {
			return perr.RuleCompilef(`"in" on %q needs a non-empty values list`, c.Field)
		}
		for _, v := range c.Values {
			if v == "" {
				return perr.RuleCompilef(`"in" on %q contains an empty value`, c.Field)
			}
		}
		return rejectExtraSlots(c, true, false, false)

	case OpDateRange:
		if c.From == "" && c.To == "" {
			return perr.RuleCompilef(`"date_range" on %q needs "from" or "to"`, c.Field)
		}
		var from, to time.Time
		var err error
		if c.From != "" {
			if from, err = time.Parse(dateLayout, c.From); err != nil {
				return perr.RuleCompilef(`"from" on %q must be YYYY-MM-DD, got %q`, c.Field, c.From)
			}
		}
		if c.To != "" {
			if to, err = time.Parse(dateLayout, c.To); err != nil {
				return perr.RuleCompilef(`"to" on %q must be YYYY-MM-DD, got %q`, c.Field, c.To)
			}
		}
		if c.From != "" && c.To != "" && to.Before(from) {
			return perr.RuleCompilef(`"date_range" on %q has "to" before "from"`, c.Field)
		}
		return rejectExtraSlots(c, false, true, false)

	case OpNumberRange:
		if c.Min == nil && c.Max == nil {
			return perr.RuleCompilef(`"number_range" on %q needs "min" or "max"`, c.Field)
		}
		if c.Min != nil && c.Max != nil && *c.Max < *c.Min {
			return perr.RuleCompilef(`"number_range" on %q has "max" below "min"`, c.Field)
		}
		return rejectExtraSlots(c, false, false, true)

	default:
		return perr.RuleCompilef("unknown operator %q", c.Op)
	}
}

// validateScalar checks that an equals value parses under the field's kind
func validateScalar(c Clause, kind FieldKind) error {
	switch kind {
	case KindBool:
		if _, err := strconv.ParseBool(c.Value); err != nil {
			return perr.RuleCompilef("%q on %q needs a boolean value, got %q", c.Op, c.Field, c.Value)
		}
	case KindNumber:
		if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
			return perr.RuleCompilef("%q on %q needs a numeric value, got %q", c.Op, c.Field, c.Value)
		}
	case KindDate:
		if _, err := time.Parse(dateLayout, c.Value); err != nil {
			return perr.RuleCompilef("%q on %q needs a YYYY-MM-DD value, got %q", c.Op, c.Field, c.Value)
		}
	}
	return nil
}

// rejectExtraSlots fails when a clause carries value slots its operator
// never reads; silent extras usually mean the author meant a different op
func rejectExtraSlots(c Clause, wantValues, wantRange, wantBounds bool) error {
	if !wantValues && len(c.Values) > 0 {
		return perr.RuleCompilef(`%q on %q does not take "values"`, c.Op, c.Field)
	}
	if wantValues && c.Value != "" {
		return perr.RuleCompilef(`%q on %q does not take "value"`, c.Op, c.Field)
	}
	if !wantRange && (c.From != "" || c.To != "") {
		return perr.RuleCompilef(`%q on %q does not take "from"/"to"`, c.Op, c.Field)
	}
	if wantRange && c.Value != "" {
		return perr.RuleCompilef(`%q on %q does not take "value"`, c.Op, c.Field)
	}
	if !wantBounds && (c.Min != nil || c.Max != nil) {
		return perr.RuleCompilef(`%q on %q does not take "min"/"max"`, c.Op, c.Field)
	}
	if wantBounds && c.Value != "" {
		return perr.RuleCompilef(`%q on %q does not take "value"`, c.Op, c.Field)
	}
	return nil
}
