package intent

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/leapquery/internal/metrics"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/sqlast"
)

// Input carries everything Classify needs besides the extraction.
type Input struct {
	Utterance   string
	UserFormula string
	Graph       *schema.Graph
	Metrics     *metrics.Registry
	Thresholds  schema.Thresholds
	Now         time.Time
}

// Classify validates an extraction against the schema graph and metric
// registry and classifies how well it resolves. It is a pure function of
// its arguments and never calls the language model.
func Classify(x Extraction, in Input) (core.Intent, core.Resolution) {
	c := &classifier{
		in:      in,
		class:   core.ExactMatch,
		conf:    1,
		reasons: map[core.ResolutionClass][]string{},
		intent:  core.Intent{Utterance: in.Utterance},
	}
	if c.in.Metrics == nil {
		c.in.Metrics = metrics.Empty()
	}

	if c.resolveMetric(x) {
		c.resolveFormulaColumns()
		c.resolveGrain(x.Grain)
		c.resolveFilters(x.Filters)
		c.resolveTimeRange(x)
		c.resolveOrder(x.Order)
		if x.Limit > 0 {
			c.intent.Limit = x.Limit
		}
	}
	return c.intent, c.resolution()
}

type classifier struct {
	in         Input
	intent     core.Intent
	class      core.ResolutionClass
	conf       float64
	reasons    map[core.ResolutionClass][]string
	candidates []string
	metric     *metrics.Metric
}

func (c *classifier) escalate(class core.ResolutionClass, reason string, candidates ...string) {
	c.class = core.Worse(c.class, class)
	c.reasons[class] = append(c.reasons[class], reason)
	if class.Halts() {
		c.candidates = append(c.candidates, candidates...)
	}
}

func (c *classifier) resolution() core.Resolution {
	r := core.Resolution{Class: c.class, Confidence: c.conf}
	r.Reason = strings.Join(c.reasons[c.class], "; ")
	if c.class.Halts() {
		r.Candidates = dedupe(c.candidates)
	}
	return r
}

// resolveMetric decides between a user formula, a registered metric and
// the failure classes. It returns false when nothing further can be
// resolved.
func (c *classifier) resolveMetric(x Extraction) bool {
	formula := strings.TrimSpace(c.in.UserFormula)
	if formula == "" && x.Formula != "" && containsCompact(c.in.Utterance, x.Formula) {
		formula = strings.TrimSpace(x.Formula)
	}
	if formula != "" {
		c.intent.MetricName = metricAlias(x.Metric)
		c.intent.MetricFormula = formula
		c.escalate(core.Derivable, fmt.Sprintf("metric computed from the supplied formula %s", formula))
		return true
	}

	if strings.TrimSpace(x.Metric) == "" {
		c.escalate(core.Impossible, "the request does not name a metric")
		return false
	}

	switch found := c.in.Metrics.Lookup(x.Metric); len(found) {
	case 1:
		m := found[0]
		c.metric = &m
		c.intent.MetricName = m.Name
		c.intent.MetricFormula = m.Formula
		c.intent.BaseTable = m.Table
		c.escalate(core.ExactMatch, fmt.Sprintf("metric %q is registered", m.Name))
		if base, ok := c.in.Graph.Table(m.Table); ok {
			c.intent.BaseTable = base.Name
		} else {
			c.escalate(core.Impossible, fmt.Sprintf("metric %q is defined on unknown table %q", m.Name, m.Table))
			return false
		}
		return true
	case 0:
	default:
		names := make([]string, len(found))
		for i, m := range found {
			names[i] = m.Name
		}
		c.escalate(core.Ambiguous, fmt.Sprintf("%q matches several metrics: %s", x.Metric, strings.Join(names, ", ")), names...)
		return false
	}

	scored := c.in.Metrics.Closest(x.Metric)
	if len(scored) == 0 || scored[0].Score < c.in.Thresholds.Review {
		c.escalate(core.Impossible, fmt.Sprintf("no registered metric resembles %q", x.Metric))
		return false
	}
	best := scored[0]
	c.conf *= best.Score
	if len(scored) > 1 && scored[1].Score >= best.Score {
		var names []string
		for _, s := range scored {
			if s.Score >= best.Score {
				names = append(names, s.Metric.Name)
			}
		}
		c.escalate(core.Ambiguous, fmt.Sprintf("%q is equally close to %s", x.Metric, strings.Join(names, ", ")), names...)
		return false
	}
	c.escalate(core.CloseMatch, fmt.Sprintf("%q is not a registered metric; did you mean %q (score %.2f)?", x.Metric, best.Metric.Name, best.Score), best.Metric.Name)
	return false
}

func (c *classifier) resolveFormulaColumns() {
	expr, err := sqlast.ParseExpr(c.intent.MetricFormula)
	if err != nil {
		c.escalate(core.Impossible, fmt.Sprintf("formula %s cannot be parsed: %v", c.intent.MetricFormula, err))
		return
	}
	if !sqlast.HasAggregate(expr) {
		c.intent.Warnings = append(c.intent.Warnings, fmt.Sprintf("formula %s has no aggregate function", c.intent.MetricFormula))
	}

	for _, ref := range sqlast.ColumnRefs(expr) {
		name := ref.Column
		if ref.Table != "" {
			name = ref.Table + "." + ref.Column
		}
		resolved, ok := c.resolveColumn("formula column", name)
		if !ok {
			continue
		}
		c.intent.FormulaColumns = append(c.intent.FormulaColumns, resolved)
		if c.intent.BaseTable == "" {
			c.intent.BaseTable = resolved.Table
		}
	}
}

func (c *classifier) resolveGrain(grain []string) {
	for _, g := range grain {
		if ref, ok := c.resolveColumn("grain column", g); ok {
			c.intent.GrainColumns = append(c.intent.GrainColumns, ref)
			if c.intent.BaseTable == "" {
				c.intent.BaseTable = ref.Table
			}
		}
	}
	if c.intent.BaseTable == "" && !c.class.Halts() {
		c.escalate(core.Impossible, "cannot determine which table the metric is computed over")
	}
}

func (c *classifier) resolveFilters(filters []FilterSpec) {
	for _, f := range filters {
		op, ok := core.NormalizeOperator(f.Op)
		if !ok {
			c.escalate(core.Impossible, fmt.Sprintf("filter operator %q is not supported", f.Op))
			continue
		}
		ref, ok := c.resolveColumn("filter column", f.Column)
		if !ok {
			continue
		}
		vals := values(f.Value)
		switch op {
		case core.OpIsNull, core.OpIsNotNull:
			vals = nil
		case core.OpIn, core.OpNotIn:
			if len(vals) == 0 {
				c.escalate(core.Ambiguous, fmt.Sprintf("filter on %s has no values", ref))
				continue
			}
		default:
			if len(vals) != 1 {
				c.escalate(core.Ambiguous, fmt.Sprintf("filter %s %s needs exactly one value", ref, op))
				continue
			}
		}
		kind, ok := c.valueKind(ref, op, vals)
		if !ok {
			continue
		}
		c.intent.Filters = append(c.intent.Filters, core.Predicate{Column: ref, Op: op, Kind: kind, Values: vals})
	}
}

// valueKind types filter values by the column's declared type. Values
// that cannot be compared with a numeric or boolean column escalate to
// Impossible.
func (c *classifier) valueKind(ref core.ColumnRef, op string, vals []string) (core.ValueKind, bool) {
	switch {
	case len(vals) == 0:
		return "", true
	case op == core.OpLike:
		return core.ValueString, true
	}
	var col core.Column
	if t, ok := c.in.Graph.Table(ref.Table); ok {
		col, _ = t.Column(ref.Column)
	}

	switch {
	case col.IsNumeric():
		for _, v := range vals {
			if !core.IsPlainNumber(v) {
				c.escalate(core.Impossible, fmt.Sprintf("filter value %q is not a number but %s is %s", v, ref, col.Type))
				return "", false
			}
		}
		return core.ValueNumber, true
	case col.IsBoolean():
		for _, v := range vals {
			if !strings.EqualFold(v, "true") && !strings.EqualFold(v, "false") {
				c.escalate(core.Impossible, fmt.Sprintf("filter value %q is not a boolean but %s is %s", v, ref, col.Type))
				return "", false
			}
		}
		return core.ValueBool, true
	}
	return core.ValueString, true
}

func (c *classifier) resolveTimeRange(x Extraction) {
	if strings.TrimSpace(x.TimeRange) == "" {
		return
	}
	start, end, ok := TimeRangeBounds(x.TimeRange, c.in.Now)
	if !ok {
		c.escalate(core.Ambiguous, fmt.Sprintf("time range %q is not recognised", x.TimeRange))
		return
	}

	var col core.ColumnRef
	switch {
	case x.TimeColumn != "":
		ref, ok := c.resolveColumn("time column", x.TimeColumn)
		if !ok {
			return
		}
		col = ref
	case c.metric != nil && c.metric.TimeColumn != "":
		ref, ok := c.resolveColumn("time column", c.intent.BaseTable+"."+c.metric.TimeColumn)
		if !ok {
			return
		}
		col = ref
	default:
		ref, ok := c.defaultTimeColumn()
		if !ok {
			c.escalate(core.Impossible, fmt.Sprintf("table %q has no date or timestamp column for %q", c.intent.BaseTable, x.TimeRange))
			return
		}
		col = ref
	}

	c.intent.TimeRange = &core.TimeRange{
		Label:  strings.ToLower(strings.TrimSpace(x.TimeRange)),
		Column: col,
		Start:  start,
		End:    end,
	}
}

// defaultTimeColumn picks the base table's column tagged as time, or
// else its first DATE/TIMESTAMP column in declaration order.
func (c *classifier) defaultTimeColumn() (core.ColumnRef, bool) {
	t, ok := c.in.Graph.Table(c.intent.BaseTable)
	if !ok {
		return core.ColumnRef{}, false
	}
	for _, col := range t.Columns {
		if col.HasTag(core.TagTime) {
			return core.ColumnRef{Table: t.Name, Column: col.Name}, true
		}
	}
	for _, col := range t.Columns {
		if col.IsTemporal() {
			return core.ColumnRef{Table: t.Name, Column: col.Name}, true
		}
	}
	return core.ColumnRef{}, false
}

func (c *classifier) resolveOrder(o *OrderSpec) {
	if o == nil || strings.TrimSpace(o.By) == "" {
		return
	}
	by := schema.Normalize(o.By)
	if by == "metric" || by == "value" || by == schema.Normalize(c.intent.MetricName) {
		c.intent.Sort = &core.Sort{ByMetric: true, Desc: o.Desc}
		return
	}
	ref, ok := c.resolveColumn("sort column", o.By)
	if !ok {
		return
	}
	for _, g := range c.intent.GrainColumns {
		if g.Equal(ref) {
			c.intent.Sort = &core.Sort{Column: ref, Desc: o.Desc}
			return
		}
	}
	c.escalate(core.Impossible, fmt.Sprintf("cannot sort by %s because it is not a grouping column", ref))
}

// resolveColumn resolves one extracted column name and escalates the
// class for anything short of an exact or confidently fuzzy match.
func (c *classifier) resolveColumn(role, name string) (core.ColumnRef, bool) {
	var prefer []string
	if c.intent.BaseTable != "" {
		prefer = append(prefer, c.intent.BaseTable)
	}
	m := c.in.Graph.ResolveColumn(name, c.in.Thresholds.Review, prefer...)

	switch m.Kind {
	case schema.MatchExact:
		return m.Ref, true
	case schema.MatchFuzzy:
		c.conf *= m.Score
		if m.Score >= c.in.Thresholds.Accept {
			c.intent.Warnings = append(c.intent.Warnings, fmt.Sprintf("%s %q resolved to %s (score %.2f)", role, name, m.Ref, m.Score))
			return m.Ref, true
		}
		c.escalate(core.CloseMatch, fmt.Sprintf("%s %q is not a known column; closest is %s (score %.2f)", role, name, m.Ref, m.Score), m.Ref.String())
		return core.ColumnRef{}, false
	case schema.MatchAmbiguous:
		refs := make([]string, len(m.Candidates))
		for i, r := range m.Candidates {
			refs[i] = r.String()
		}
		c.escalate(core.Ambiguous, fmt.Sprintf("%s %q could be any of %s", role, name, strings.Join(refs, ", ")), refs...)
		return core.ColumnRef{}, false
	default:
		c.conf = 0
		c.escalate(core.Impossible, fmt.Sprintf("%s %q does not match any column", role, name))
		return core.ColumnRef{}, false
	}
}

// containsCompact reports whether needle occurs in haystack ignoring
// case and whitespace.
func containsCompact(haystack, needle string) bool {
	compact := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), ""))
	}
	n := compact(needle)
	return n != "" && strings.Contains(compact(haystack), n)
}

// metricAlias turns a free-form metric label into a SQL alias.
func metricAlias(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	alias := strings.Trim(b.String(), "_")
	if alias == "" || (alias[0] >= '0' && alias[0] <= '9') {
		return "value"
	}
	return alias
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
