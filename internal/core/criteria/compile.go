package criteria

import (
	"strconv"
	"strings"
	"time"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

// Options tunes the compiled query
type Options struct {
	// ChangedSince restricts matching to records whose last_changed_at is
	// at or after the cutoff. Zero means full scan. Ties re-read records
	// already evaluated, which the match insert's conflict clause absorbs
	ChangedSince time.Time
}

// Compile turns a validated tree into one parameterized SELECT returning
// notice_id rows. Output is deterministic: stable column mapping, $n
// placeholders in tree walk order, fixed ORDER BY. Values are always bound,
// never interpolated
func Compile(n Node, opts Options) (string, []any, error) {
	if err := Validate(n); err != nil {
		return "", nil, err
	}

	c := &compiler{}
	pred, err := c.node(n)
	if err != nil {
		return "", nil, err
	}
	return assemble(pred, opts, c), c.args, nil
}

// CompileRaw wraps an author-written WHERE fragment in the same SELECT
// skeleton used for declarative rules. Callers screen the fragment with
// ValidateRaw first; beyond that screen, correctness is on the author
func CompileRaw(fragment string, opts Options) (string, []any, error) {
	if err := ValidateRaw(fragment); err != nil {
		return "", nil, err
	}
	c := &compiler{}
	return assemble("("+strings.TrimSpace(fragment)+")", opts, c), c.args, nil
}

func assemble(pred string, opts Options, c *compiler) string {
	var b strings.Builder
	b.WriteString("SELECT o.notice_id FROM ")
	b.WriteString(FromClause)
	b.WriteString(" WHERE ")
	b.WriteString(pred)
	if !opts.ChangedSince.IsZero() {
		b.WriteString(" AND o.last_changed_at >= ")
		b.WriteString(c.bind(opts.ChangedSince))
	}
	b.WriteString(" ORDER BY o.notice_id")
	return b.String()
}

type compiler struct {
	args []any
}

// bind appends v to the arg list and returns its placeholder
func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	return "$" + strconv.Itoa(len(c.args))
}

func (c *compiler) node(n Node) (string, error) {
	switch t := n.(type) {
	case All:
		return c.list(t.Nodes, " AND ")
	case Any:
		return c.list(t.Nodes, " OR ")
	case Clause:
		return c.clause(t)
	default:
		return "", perr.RuleCompilef("unknown node type %T", n)
	}
}

func (c *compiler) list(nodes []Node, sep string) (string, error) {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		s, err := c.node(n)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *compiler) clause(cl Clause) (string, error) {
	def := fieldMap[cl.Field]

	switch cl.Op {
	case OpEquals:
		v, err := scalarArg(cl, def.kind)
		if err != nil {
			return "", err
		}
		return def.col + " = " + c.bind(v), nil

	case OpContains:
		return def.col + ` ILIKE ` + c.bind("%"+escapeLike(cl.Value)+"%") + ` ESCAPE '\'`, nil

	case OpIn:
		if def.kind == KindTextArray {
			// overlap: any listed value present in the stored array
			return def.col + " && " + c.bind(cl.Values), nil
		}
		return def.col + " = ANY(" + c.bind(cl.Values) + ")", nil

	case OpDateRange:
		return c.dateRange(cl, def)

	case OpNumberRange:
		var parts []string
		if cl.Min != nil {
			parts = append(parts, def.col+" >= "+c.bind(*cl.Min))
		}
		if cl.Max != nil {
			parts = append(parts, def.col+" <= "+c.bind(*cl.Max))
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil

	default:
		return "", perr.RuleCompilef("unknown operator %q", cl.Op)
	}
}

// dateRange compiles inclusive day bounds. Date columns compare directly;
// timestamp columns take a half-open upper bound at the next midnight so
// the whole "to" day is covered
func (c *compiler) dateRange(cl Clause, def fieldDef) (string, error) {
	var parts []string
	if cl.From != "" {
		from, _ := time.Parse(dateLayout, cl.From)
		parts = append(parts, def.col+" >= "+c.bind(from))
	}
	if cl.To != "" {
		to, _ := time.Parse(dateLayout, cl.To)
		if def.kind == KindTimestamp {
			parts = append(parts, def.col+" < "+c.bind(to.AddDate(0, 0, 1)))
		} else {
			parts = append(parts, def.col+" <= "+c.bind(to))
		}
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func scalarArg(cl Clause, kind FieldKind) (any, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(cl.Value)
		if err != nil {
			return nil, perr.RuleCompilef("%q on %q needs a boolean value, got %q", cl.Op, cl.Field, cl.Value)
		}
		return b, nil
	case KindNumber:
		f, err := strconv.ParseFloat(cl.Value, 64)
		if err != nil {
			return nil, perr.RuleCompilef("%q on %q needs a numeric value, got %q", cl.Op, cl.Field, cl.Value)
		}
		return f, nil
	case KindDate:
		t, err := time.Parse(dateLayout, cl.Value)
		if err != nil {
			return nil, perr.RuleCompilef("%q on %q needs a YYYY-MM-DD value, got %q", cl.Op, cl.Field, cl.Value)
		}
		return t, nil
	default:
		return cl.Value, nil
	}
}

// escapeLike neutralizes pattern metacharacters so contains means literal
// substring
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
