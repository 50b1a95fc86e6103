package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Comparison operators accepted in intent predicates.
const (
	OpEq        = "="
	OpNe        = "!="
	OpLt        = "<"
	OpLe        = "<="
	OpGt        = ">"
	OpGe        = ">="
	OpIn        = "in"
	OpNotIn     = "not in"
	OpLike      = "like"
	OpIsNull    = "is null"
	OpIsNotNull = "is not null"
)

// NormalizeOperator maps loose operator spellings onto the canonical set.
// The second return is false when the operator is not supported.
func NormalizeOperator(op string) (string, bool) {
	switch strings.ToLower(strings.Join(strings.Fields(op), " ")) {
	case "=", "==", "eq", "equals", "is":
		return OpEq, true
	case "!=", "<>", "ne", "not equals", "is not":
		return OpNe, true
	case "<", "lt":
		return OpLt, true
	case "<=", "lte", "le":
		return OpLe, true
	case ">", "gt":
		return OpGt, true
	case ">=", "gte", "ge":
		return OpGe, true
	case "in":
		return OpIn, true
	case "not in", "not_in":
		return OpNotIn, true
	case "like", "contains":
		return OpLike, true
	case "is null", "is_null":
		return OpIsNull, true
	case "is not null", "is_not_null", "not null":
		return OpIsNotNull, true
	}
	return "", false
}

// ValueKind is the literal type of a predicate's values.
// The zero value is treated as ValueString.
type ValueKind string

// Value kinds.
const (
	ValueString ValueKind = "string"
	ValueNumber ValueKind = "number"
	ValueBool   ValueKind = "boolean"
)

var plainNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// IsPlainNumber reports whether s is a decimal number without exponent,
// leading zeros or special values, and so safe to render unquoted.
func IsPlainNumber(s string) bool {
	return plainNumber.MatchString(s)
}

// Predicate is a single filter condition over a resolved column.
type Predicate struct {
	Column ColumnRef `json:"column"`
	Op     string    `json:"op"`
	Kind   ValueKind `json:"kind,omitempty"`
	Values []string  `json:"values,omitempty"`
}

func (p Predicate) String() string {
	switch p.Op {
	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", p.Column, p.Op)
	case OpIn, OpNotIn:
		return fmt.Sprintf("%s %s (%s)", p.Column, p.Op, strings.Join(p.Values, ", "))
	}
	return fmt.Sprintf("%s %s %s", p.Column, p.Op, strings.Join(p.Values, ", "))
}

// TimeRange is a half-open interval [Start, End) over a temporal column.
type TimeRange struct {
	Label  string    `json:"label"`
	Column ColumnRef `json:"column"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Sort orders the result either by the metric or by a grain column.
type Sort struct {
	ByMetric bool      `json:"by_metric,omitempty"`
	Column   ColumnRef `json:"column,omitempty"`
	Desc     bool      `json:"desc,omitempty"`
}

// Intent is the structured form of one user request.
// It is produced once by the intent resolver and never mutated afterwards.
type Intent struct {
	Utterance      string      `json:"utterance"`
	MetricName     string      `json:"metric_name"`
	MetricFormula  string      `json:"metric_formula"`
	FormulaColumns []ColumnRef `json:"formula_columns,omitempty"`
	BaseTable      string      `json:"base_table"`
	GrainColumns   []ColumnRef `json:"grain_columns,omitempty"`
	Filters        []Predicate `json:"filters,omitempty"`
	TimeRange      *TimeRange  `json:"time_range,omitempty"`
	Sort           *Sort       `json:"sort,omitempty"`
	Limit          int         `json:"limit,omitempty"`
	Warnings       []string    `json:"warnings,omitempty"`
}

// RequiredTables returns every table referenced by the intent, sorted.
// The base table is always included.
func (i *Intent) RequiredTables() []string {
	seen := map[string]bool{}
	add := func(t string) {
		if t != "" {
			seen[t] = true
		}
	}
	add(i.BaseTable)
	for _, c := range i.FormulaColumns {
		add(c.Table)
	}
	for _, c := range i.GrainColumns {
		add(c.Table)
	}
	for _, p := range i.Filters {
		add(p.Column.Table)
	}
	if i.TimeRange != nil {
		add(i.TimeRange.Column.Table)
	}
	if i.Sort != nil && !i.Sort.ByMetric {
		add(i.Sort.Column.Table)
	}

	tables := make([]string, 0, len(seen))
	for t := range seen {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// ResolutionClass is the categorical judgment of how well an intent maps
// onto known metrics and schema objects.
type ResolutionClass int

// Resolution classes, ordered from least to most severe.
const (
	ExactMatch ResolutionClass = iota
	Derivable
	CloseMatch
	Ambiguous
	Impossible
)

var resolutionClassNames = map[ResolutionClass]string{
	ExactMatch: "exact_match",
	Derivable:  "derivable",
	CloseMatch: "close_match",
	Ambiguous:  "ambiguous",
	Impossible: "impossible",
}

func (c ResolutionClass) String() string {
	if s, ok := resolutionClassNames[c]; ok {
		return s
	}
	return fmt.Sprintf("resolution(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c ResolutionClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ResolutionClass) UnmarshalText(b []byte) error {
	for k, v := range resolutionClassNames {
		if v == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown resolution class %q", string(b))
}

// Halts reports whether the pipeline must stop before planning.
func (c ResolutionClass) Halts() bool {
	return c >= CloseMatch
}

// Worse returns the more severe of two classes.
func Worse(a, b ResolutionClass) ResolutionClass {
	if b > a {
		return b
	}
	return a
}

// Resolution pairs a class with a confidence score and a reason.
type Resolution struct {
	Class      ResolutionClass `json:"class"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
	Candidates []string        `json:"candidates,omitempty"`
}

// Proceed reports whether planning may continue.
func (r Resolution) Proceed() bool {
	return !r.Class.Halts()
}
