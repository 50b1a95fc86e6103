// Package synth turns a query plan into verified SQL. The renderer is
// deterministic; the critic loop hands failing candidates to a repairer
// until the validation cascade accepts one or the attempt budget runs out.
package synth

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/sqlast"
)

// Render builds the SQL text for plan. Every identifier in the output
// comes from the plan.
func Render(plan *core.QueryPlan) (string, error) {
	stmt, err := Statement(plan)
	if err != nil {
		return "", err
	}
	return sqlast.Format(stmt), nil
}

// Statement builds the AST for plan.
func Statement(plan *core.QueryPlan) (*sqlast.SelectStmt, error) {
	if plan == nil || plan.BaseTable == "" {
		return nil, fmt.Errorf("cannot render a plan without a base table")
	}
	if len(plan.Select) == 0 {
		return nil, fmt.Errorf("cannot render a plan with an empty select list")
	}

	stmt := &sqlast.SelectStmt{
		From: &sqlast.FromClause{Source: &sqlast.TableName{Name: plan.BaseTable}},
	}

	for _, item := range plan.Select {
		e, err := sqlast.ParseExpr(item.Expr)
		if err != nil {
			return nil, fmt.Errorf("failed to render select item %q: %w", item.Expr, err)
		}
		stmt.Columns = append(stmt.Columns, sqlast.SelectItem{Expr: e, Alias: item.Alias})
	}

	for _, edge := range plan.Joins.Edges {
		stmt.From.Joins = append(stmt.From.Joins, &sqlast.Join{
			Type:  sqlast.JoinLeft,
			Right: &sqlast.TableName{Name: edge.ToTable},
			Condition: &sqlast.BinaryExpr{
				Left:  &sqlast.ColumnRef{Table: edge.FromTable, Column: edge.FromColumn},
				Op:    "=",
				Right: &sqlast.ColumnRef{Table: edge.ToTable, Column: edge.ToColumn},
			},
		})
	}

	for _, f := range plan.Filters {
		e, err := sqlast.ParseExpr(f.Expr)
		if err != nil {
			return nil, fmt.Errorf("failed to render filter %q: %w", f.Expr, err)
		}
		if stmt.Where == nil {
			stmt.Where = e
			continue
		}
		stmt.Where = &sqlast.BinaryExpr{Left: stmt.Where, Op: "AND", Right: e}
	}

	for _, g := range plan.GroupBy {
		stmt.GroupBy = append(stmt.GroupBy, &sqlast.ColumnRef{Table: g.Table, Column: g.Column})
	}

	for _, o := range plan.OrderBy {
		e, err := sqlast.ParseExpr(o.Expr)
		if err != nil {
			return nil, fmt.Errorf("failed to render order key %q: %w", o.Expr, err)
		}
		stmt.OrderBy = append(stmt.OrderBy, sqlast.OrderByItem{Expr: e, Desc: o.Desc})
	}

	if plan.Limit > 0 {
		stmt.Limit = &sqlast.Literal{Kind: sqlast.LiteralNumber, Value: strconv.Itoa(plan.Limit)}
	}
	return stmt, nil
}
