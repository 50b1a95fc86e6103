// Package plan merges a resolved intent and a join path into a QueryPlan.
//
// Build is a pure function. Every column it emits is qualified by its
// table name, which doubles as the table's alias in rendered SQL.
package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/sqlast"
)

// Build derives the query plan for intent over path.
// It fails with *core.PlanConsistencyError when a column's table is not
// part of the path or a formula column has no resolved counterpart.
func Build(intent core.Intent, path core.JoinPath) (*core.QueryPlan, error) {
	if intent.BaseTable == "" || !strings.EqualFold(intent.BaseTable, path.Base) {
		return nil, &core.PlanConsistencyError{
			Message: fmt.Sprintf("join path is rooted at %q but the intent's base table is %q", path.Base, intent.BaseTable),
		}
	}

	b := &builder{path: path}
	p := &core.QueryPlan{BaseTable: path.Base, Joins: path}

	for _, g := range intent.GrainColumns {
		ref, err := b.column(g)
		if err != nil {
			return nil, err
		}
		p.Select = append(p.Select, core.SelectItem{
			Expr:    sqlast.FormatExpr(ref),
			Columns: []core.ColumnRef{g},
		})
	}

	metric, err := b.metric(intent)
	if err != nil {
		return nil, err
	}
	p.Select = append(p.Select, metric)
	if metric.Aggregate {
		p.GroupBy = append(p.GroupBy, intent.GrainColumns...)
	}

	for _, pred := range intent.Filters {
		f, err := b.predicate(pred)
		if err != nil {
			return nil, err
		}
		p.Filters = append(p.Filters, f)
	}
	if tr := intent.TimeRange; tr != nil {
		filters, err := b.timeRange(tr)
		if err != nil {
			return nil, err
		}
		p.Filters = append(p.Filters, filters...)
	}

	if s := intent.Sort; s != nil {
		if s.ByMetric {
			p.OrderBy = append(p.OrderBy, core.OrderItem{Expr: sqlast.QuoteIdent(metric.Alias), Desc: s.Desc})
		} else {
			ref, err := b.column(s.Column)
			if err != nil {
				return nil, err
			}
			p.OrderBy = append(p.OrderBy, core.OrderItem{Expr: sqlast.FormatExpr(ref), Desc: s.Desc})
		}
	}
	if intent.Limit > 0 {
		p.Limit = intent.Limit
	}
	return p, nil
}

type builder struct {
	path core.JoinPath
}

// column qualifies ref with its table's alias, checking it is joined.
func (b *builder) column(ref core.ColumnRef) (*sqlast.ColumnRef, error) {
	for _, t := range b.path.Tables() {
		if strings.EqualFold(t, ref.Table) {
			return &sqlast.ColumnRef{Table: t, Column: ref.Column}, nil
		}
	}
	return nil, &core.PlanConsistencyError{
		Column:  ref,
		Message: fmt.Sprintf("table %q is not part of the join path", ref.Table),
	}
}

// metric substitutes resolved qualified columns into the metric formula.
func (b *builder) metric(intent core.Intent) (core.SelectItem, error) {
	expr, err := sqlast.ParseExpr(intent.MetricFormula)
	if err != nil {
		return core.SelectItem{}, &core.PlanConsistencyError{
			Message: fmt.Sprintf("metric formula %q does not parse: %v", intent.MetricFormula, err),
		}
	}

	raw := sqlast.ColumnRefs(expr)
	if len(raw) != len(intent.FormulaColumns) {
		return core.SelectItem{}, &core.PlanConsistencyError{
			Message: fmt.Sprintf("metric formula %q has %d column references but %d were resolved",
				intent.MetricFormula, len(raw), len(intent.FormulaColumns)),
		}
	}
	resolved := make(map[string]core.ColumnRef, len(raw))
	for i, r := range raw {
		resolved[rawKey(r)] = intent.FormulaColumns[i]
	}

	var (
		cols    []core.ColumnRef
		failure error
	)
	seen := map[string]bool{}
	rewritten := sqlast.Rewrite(expr, func(r *sqlast.ColumnRef) sqlast.Expr {
		ref := resolved[rawKey(r)]
		q, err := b.column(ref)
		if err != nil {
			if failure == nil {
				failure = err
			}
			return r
		}
		if key := strings.ToLower(ref.String()); !seen[key] {
			seen[key] = true
			cols = append(cols, ref)
		}
		return q
	})
	if failure != nil {
		return core.SelectItem{}, failure
	}

	alias := intent.MetricName
	if alias == "" {
		alias = "value"
	}
	return core.SelectItem{
		Expr:      sqlast.FormatExpr(rewritten),
		Alias:     alias,
		Columns:   cols,
		Aggregate: sqlast.HasAggregate(expr),
	}, nil
}

func rawKey(r *sqlast.ColumnRef) string {
	return strings.ToLower(r.Table + "." + r.Column)
}

func (b *builder) predicate(p core.Predicate) (core.Filter, error) {
	col, err := b.column(p.Column)
	if err != nil {
		return core.Filter{}, err
	}

	var e sqlast.Expr
	switch p.Op {
	case core.OpIsNull, core.OpIsNotNull:
		e = &sqlast.IsNullExpr{Expr: col, Not: p.Op == core.OpIsNotNull}
	case core.OpIn, core.OpNotIn:
		in := &sqlast.InExpr{Expr: col, Not: p.Op == core.OpNotIn}
		for _, v := range p.Values {
			in.Values = append(in.Values, literal(v, p.Kind))
		}
		e = in
	case core.OpLike:
		e = &sqlast.LikeExpr{Expr: col, Op: "LIKE", Pattern: literal(first(p.Values), core.ValueString)}
	case core.OpEq, core.OpNe, core.OpLt, core.OpLe, core.OpGt, core.OpGe:
		op := p.Op
		if op == core.OpNe {
			op = "<>"
		}
		e = &sqlast.BinaryExpr{Left: col, Op: op, Right: literal(first(p.Values), p.Kind)}
	default:
		return core.Filter{}, &core.PlanConsistencyError{Column: p.Column, Message: fmt.Sprintf("unsupported operator %q", p.Op)}
	}
	return core.Filter{Expr: sqlast.FormatExpr(e), Columns: []core.ColumnRef{p.Column}}, nil
}

func (b *builder) timeRange(tr *core.TimeRange) ([]core.Filter, error) {
	col, err := b.column(tr.Column)
	if err != nil {
		return nil, err
	}
	bound := func(op string, t time.Time) core.Filter {
		e := &sqlast.BinaryExpr{
			Left:  col,
			Op:    op,
			Right: &sqlast.CastExpr{Expr: &sqlast.Literal{Kind: sqlast.LiteralString, Value: t.Format(time.DateOnly)}, Type: "DATE"},
		}
		return core.Filter{Expr: sqlast.FormatExpr(e), Columns: []core.ColumnRef{tr.Column}}
	}
	return []core.Filter{bound(">=", tr.Start), bound("<", tr.End)}, nil
}

// literal renders a value bare only when its kind says so and the text
// is a plain decimal or a boolean word. Everything else is quoted.
func literal(v string, kind core.ValueKind) sqlast.Expr {
	switch {
	case kind == core.ValueNumber && core.IsPlainNumber(v):
		return &sqlast.Literal{Kind: sqlast.LiteralNumber, Value: v}
	case kind == core.ValueBool && (strings.EqualFold(v, "true") || strings.EqualFold(v, "false")):
		return &sqlast.Literal{Kind: sqlast.LiteralBool, Value: strings.ToUpper(v)}
	}
	return &sqlast.Literal{Kind: sqlast.LiteralString, Value: v}
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
