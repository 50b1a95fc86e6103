package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/sqlast"
)

// Semantic checks every table and column reference in stmt against the
// schema graph and the plan's declared identifiers, case-insensitively.
// It also checks that every plan column is still referenced, so a
// repaired statement cannot silently drop part of the plan.
// All findings are returned, in statement order.
func Semantic(stmt *sqlast.SelectStmt, g *schema.Graph, plan *core.QueryPlan) []*core.UnknownIdentifierError {
	s := &semantic{
		graph:      g,
		scope:      map[string]string{},
		planTables: map[string]bool{},
		planCols:   map[string]bool{},
		planAlias:  map[string]bool{},
		selectAs:   map[string]bool{},
		referenced: map[string]bool{},
	}
	for _, t := range plan.Tables() {
		s.planTables[strings.ToLower(t)] = true
	}
	for _, c := range plan.Columns() {
		s.planCols[strings.ToLower(c.String())] = true
	}
	for _, a := range plan.Aliases() {
		s.planAlias[strings.ToLower(a)] = true
	}

	s.checkFrom(stmt)
	s.checkSelectList(stmt)
	sqlast.Inspect(stmt, func(n sqlast.Node) bool {
		if ref, ok := n.(*sqlast.ColumnRef); ok {
			s.checkColumn(ref)
		}
		return true
	})
	s.checkCoverage(plan)
	return s.errs
}

type semantic struct {
	graph      *schema.Graph
	scope      map[string]string // reference name -> table name
	planTables map[string]bool
	planCols   map[string]bool
	planAlias  map[string]bool
	selectAs   map[string]bool
	referenced map[string]bool
	errs       []*core.UnknownIdentifierError
}

func (s *semantic) fail(kind core.DiagnosticKind, ident string, pos sqlast.Position, format string, args ...any) {
	s.errs = append(s.errs, &core.UnknownIdentifierError{
		Identifier: ident,
		Kind:       kind,
		Line:       pos.Line,
		Column:     pos.Column,
		Message:    fmt.Sprintf(format, args...),
	})
}

func (s *semantic) checkFrom(stmt *sqlast.SelectStmt) {
	if stmt.From == nil || stmt.From.Source == nil {
		s.fail(core.KindUndeclaredTable, "", sqlast.Position{}, "statement has no FROM clause")
		return
	}
	tables := []*sqlast.TableName{stmt.From.Source}
	for _, j := range stmt.From.Joins {
		tables = append(tables, j.Right)
	}
	for _, tn := range tables {
		t, ok := s.graph.Table(tn.Name)
		if !ok {
			s.fail(core.KindUnknownTable, tn.Name, tn.Pos, "table does not exist in the schema")
			continue
		}
		if !s.planTables[strings.ToLower(t.Name)] {
			s.fail(core.KindUndeclaredTable, t.Name, tn.Pos, "table is not part of the query plan")
		}
		s.scope[strings.ToLower(tn.Ref())] = t.Name
	}
}

func (s *semantic) checkSelectList(stmt *sqlast.SelectStmt) {
	for _, item := range stmt.Columns {
		switch {
		case item.Star:
			s.fail(core.KindStarProjection, "*", item.Pos, "SELECT * is not allowed; project the plan's columns explicitly")
			continue
		case item.TableStar != "":
			s.fail(core.KindStarProjection, item.TableStar+".*", item.Pos, "table wildcard is not allowed; project the plan's columns explicitly")
			continue
		}
		if item.Alias == "" {
			continue
		}
		key := strings.ToLower(item.Alias)
		s.selectAs[key] = true
		if s.planAlias[key] {
			continue
		}
		if ref, ok := item.Expr.(*sqlast.ColumnRef); ok && strings.EqualFold(ref.Column, item.Alias) {
			continue
		}
		s.fail(core.KindUndeclaredColumn, item.Alias, item.Pos, "alias is not declared by the query plan")
	}
}

func (s *semantic) checkColumn(ref *sqlast.ColumnRef) {
	if ref.Table != "" {
		table, ok := s.scope[strings.ToLower(ref.Table)]
		if !ok {
			s.fail(core.KindUnknownTable, ref.Table, ref.Pos, "not a table or alias in the FROM clause")
			return
		}
		s.checkDeclared(table, ref)
		return
	}

	var owners []string
	for _, table := range s.scopeTables() {
		if s.graph.HasColumn(table, ref.Column) {
			owners = append(owners, table)
		}
	}
	switch len(owners) {
	case 0:
		if s.selectAs[strings.ToLower(ref.Column)] {
			return
		}
		s.fail(core.KindUnknownColumn, ref.Column, ref.Pos, "no table in the FROM clause has this column")
	case 1:
		s.checkDeclared(owners[0], ref)
	default:
		s.fail(core.KindAmbiguousColumn, ref.Column, ref.Pos, "column exists in %s; qualify it", strings.Join(owners, ", "))
	}
}

func (s *semantic) checkDeclared(table string, ref *sqlast.ColumnRef) {
	t, _ := s.graph.Table(table)
	col, ok := t.Column(ref.Column)
	if !ok {
		s.fail(core.KindUnknownColumn, table+"."+ref.Column, ref.Pos, "column does not exist in the schema")
		return
	}
	key := strings.ToLower(t.Name + "." + col.Name)
	s.referenced[key] = true
	if !s.planCols[key] {
		s.fail(core.KindUndeclaredColumn, t.Name+"."+col.Name, ref.Pos, "column is not declared by the query plan")
	}
}

func (s *semantic) checkCoverage(plan *core.QueryPlan) {
	if len(s.errs) > 0 {
		return
	}
	for _, c := range plan.Columns() {
		if !s.referenced[strings.ToLower(c.String())] {
			s.fail(core.KindMissingPlanColumn, c.String(), sqlast.Position{}, "plan column is no longer referenced by the statement")
		}
	}
}

// scopeTables returns the distinct tables in scope, sorted.
func (s *semantic) scopeTables() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range s.scope {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
