package criteria

import (
	"sort"
	"strings"
)

// FieldKind classifies how a field compares
type FieldKind int

// Field kinds
const (
	KindText FieldKind = iota
	KindTextArray
	KindBool
	KindDate
	KindTimestamp
	KindNumber
)

type fieldDef struct {
	col  string // qualified column in the compiled join
	kind FieldKind
}

// fieldMap is the only vocabulary a definition may reference. Columns are
// qualified against the aliases in FromClause; the map is the trust
// boundary that keeps arbitrary identifiers out of compiled SQL
var fieldMap = map[string]fieldDef{
	"notice_id":         {col: "o.notice_id", kind: KindText},
	"title":             {col: "o.title", kind: KindText},
	"agency":            {col: "o.agency", kind: KindText},
	"sub_tier":          {col: "o.sub_tier", kind: KindText},
	"office":            {col: "o.office", kind: KindText},
	"notice_type":       {col: "o.notice_type", kind: KindText},
	"status":            {col: "o.status", kind: KindText},
	"set_aside":         {col: "o.set_aside", kind: KindText},
	"naics_codes":       {col: "o.naics_codes", kind: KindTextArray},
	"archived":          {col: "o.archived", kind: KindBool},
	"posted_at":         {col: "o.posted_at", kind: KindDate},
	"updated_at":        {col: "o.updated_at", kind: KindTimestamp},
	"response_deadline": {col: "o.response_deadline", kind: KindTimestamp},
	"version":           {col: "o.version", kind: KindNumber},
	"description":       {col: "d.body", kind: KindText},
	"award_amount":      {col: "a.award_amount", kind: KindNumber},
	"awardee_name":      {col: "a.awardee_name", kind: KindText},
	"awardee_uei":       {col: "a.awardee_uei", kind: KindText},
}

// FromClause is the join every compiled rule runs over. Descriptions and
// awards hang off as left joins so rules touching only opportunity columns
// still see every notice
const FromClause = "opportunities o" +
	" LEFT JOIN descriptions d ON d.notice_id = o.notice_id" +
	" LEFT JOIN awards a ON a.notice_id = o.notice_id"

// Fields returns the referenceable field names, sorted, for error messages
// and the API's rule-authoring help
func Fields() []string {
	out := make([]string, 0, len(fieldMap))
	for k := range fieldMap {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// allowed ops per kind
var kindOps = map[FieldKind][]Op{
	KindText:      {OpEquals, OpContains, OpIn},
	KindTextArray: {OpIn},
	KindBool:      {OpEquals},
	KindDate:      {OpEquals, OpDateRange},
	KindTimestamp: {OpDateRange},
	KindNumber:    {OpEquals, OpNumberRange},
}

func opAllowed(kind FieldKind, op Op) bool {
	for _, o := range kindOps[kind] {
		if o == op {
			return true
		}
	}
	return false
}

func opList(kind FieldKind) string {
	ops := kindOps[kind]
	ss := make([]string, len(ops))
	for i, o := range ops {
		ss[i] = string(o)
	}
	return strings.Join(ss, ", ")
}
