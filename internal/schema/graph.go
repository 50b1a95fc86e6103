// Package schema holds the warehouse schema graph: tables, columns and
// the join edges between them, plus fuzzy name resolution over it.
//
// A Graph is immutable once built. Reloads produce a new Graph that is
// published through a Store.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Definitions is the raw input to Build.
type Definitions struct {
	Tables []core.Table
	Joins  []core.JoinEdge
}

// Graph is an immutable snapshot of tables and join edges.
type Graph struct {
	tables map[string]*core.Table     // keyed by lower-case name
	adj    map[string][]core.JoinEdge // keyed by lower-case name
	edges  []core.JoinEdge
	names  []string // sorted table names
}

// Build validates definitions and returns a graph.
// Duplicate tables or columns, joins over unknown tables or columns,
// self-joins and conflicting joins between the same table pair fail
// with *core.SchemaLoadError.
func Build(defs Definitions) (*Graph, error) {
	g := &Graph{
		tables: make(map[string]*core.Table, len(defs.Tables)),
		adj:    make(map[string][]core.JoinEdge),
	}

	for i := range defs.Tables {
		t := defs.Tables[i]
		if t.Name == "" {
			return nil, &core.SchemaLoadError{Message: fmt.Sprintf("table #%d has no name", i+1)}
		}
		key := strings.ToLower(t.Name)
		if _, dup := g.tables[key]; dup {
			return nil, &core.SchemaLoadError{Table: t.Name, Message: "table declared more than once"}
		}
		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			ck := strings.ToLower(c.Name)
			if c.Name == "" {
				return nil, &core.SchemaLoadError{Table: t.Name, Message: "column with empty name"}
			}
			if seen[ck] {
				return nil, &core.SchemaLoadError{Table: t.Name, Message: fmt.Sprintf("column %q declared more than once", c.Name)}
			}
			seen[ck] = true
		}
		t.Columns = append([]core.Column(nil), t.Columns...)
		g.tables[key] = &t
		g.names = append(g.names, t.Name)
	}
	sort.Strings(g.names)

	byPair := make(map[string]core.JoinEdge)
	for _, e := range defs.Joins {
		ce, err := g.canonicalEdge(e)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(ce.FromTable) + "|" + strings.ToLower(ce.ToTable)
		if prev, ok := byPair[key]; ok {
			if sameEdge(prev, ce) {
				continue
			}
			return nil, &core.SchemaLoadError{
				Table: ce.FromTable,
				Message: fmt.Sprintf("conflicting joins between %s and %s: %q (%s) vs %q (%s)",
					ce.FromTable, ce.ToTable, prev.Predicate(), prev.Cardinality, ce.Predicate(), ce.Cardinality),
			}
		}
		byPair[key] = ce
		g.edges = append(g.edges, ce)
	}

	sort.Slice(g.edges, func(i, j int) bool {
		a, b := g.edges[i], g.edges[j]
		if !strings.EqualFold(a.FromTable, b.FromTable) {
			return strings.ToLower(a.FromTable) < strings.ToLower(b.FromTable)
		}
		return strings.ToLower(a.ToTable) < strings.ToLower(b.ToTable)
	})
	for _, e := range g.edges {
		from, to := strings.ToLower(e.FromTable), strings.ToLower(e.ToTable)
		g.adj[from] = append(g.adj[from], e)
		g.adj[to] = append(g.adj[to], e.Reverse())
	}
	for k := range g.adj {
		edges := g.adj[k]
		sort.Slice(edges, func(i, j int) bool {
			return strings.ToLower(edges[i].ToTable) < strings.ToLower(edges[j].ToTable)
		})
	}
	return g, nil
}

// canonicalEdge resolves names to their declared spelling and orients
// the edge so the lexicographically smaller table comes first.
func (g *Graph) canonicalEdge(e core.JoinEdge) (core.JoinEdge, error) {
	from, ok := g.Table(e.FromTable)
	if !ok {
		return e, &core.SchemaLoadError{Table: e.FromTable, Message: fmt.Sprintf("join %s references unknown table %q", e, e.FromTable)}
	}
	to, ok := g.Table(e.ToTable)
	if !ok {
		return e, &core.SchemaLoadError{Table: e.ToTable, Message: fmt.Sprintf("join %s references unknown table %q", e, e.ToTable)}
	}
	if from.Name == to.Name {
		return e, &core.SchemaLoadError{Table: from.Name, Message: "self-joins are not supported"}
	}
	fc, ok := from.Column(e.FromColumn)
	if !ok {
		return e, &core.SchemaLoadError{Table: from.Name, Message: fmt.Sprintf("join references unknown column %q", e.FromColumn)}
	}
	tc, ok := to.Column(e.ToColumn)
	if !ok {
		return e, &core.SchemaLoadError{Table: to.Name, Message: fmt.Sprintf("join references unknown column %q", e.ToColumn)}
	}

	card := e.Cardinality
	if card == "" {
		card = core.CardinalityManyToOne
	}
	if !card.Valid() {
		return e, &core.SchemaLoadError{Table: from.Name, Message: fmt.Sprintf("invalid cardinality %q", e.Cardinality)}
	}

	ce := core.JoinEdge{
		FromTable:   from.Name,
		FromColumn:  fc.Name,
		ToTable:     to.Name,
		ToColumn:    tc.Name,
		Cardinality: card,
	}
	if strings.ToLower(ce.FromTable) > strings.ToLower(ce.ToTable) {
		ce = ce.Reverse()
	}
	return ce, nil
}

func sameEdge(a, b core.JoinEdge) bool {
	return strings.EqualFold(a.FromColumn, b.FromColumn) &&
		strings.EqualFold(a.ToColumn, b.ToColumn) &&
		a.Cardinality == b.Cardinality
}

// Table looks a table up by name, case-insensitively.
func (g *Graph) Table(name string) (*core.Table, bool) {
	t, ok := g.tables[strings.ToLower(name)]
	return t, ok
}

// TableNames returns all table names, sorted.
func (g *Graph) TableNames() []string {
	return append([]string(nil), g.names...)
}

// Tables returns all tables sorted by name.
func (g *Graph) Tables() []core.Table {
	out := make([]core.Table, 0, len(g.names))
	for _, n := range g.names {
		out = append(out, *g.tables[strings.ToLower(n)])
	}
	return out
}

// Edges returns the canonical join edges.
func (g *Graph) Edges() []core.JoinEdge {
	return append([]core.JoinEdge(nil), g.edges...)
}

// Neighbors returns the edges incident to table, oriented away from it
// and sorted by the neighbouring table's name.
func (g *Graph) Neighbors(table string) []core.JoinEdge {
	return append([]core.JoinEdge(nil), g.adj[strings.ToLower(table)]...)
}

// HasColumn reports whether table has column.
func (g *Graph) HasColumn(table, column string) bool {
	t, ok := g.Table(table)
	if !ok {
		return false
	}
	_, ok = t.Column(column)
	return ok
}

// ColumnOwners returns the tables that declare column exactly, sorted.
func (g *Graph) ColumnOwners(column string) []string {
	var owners []string
	for _, n := range g.names {
		if _, ok := g.tables[strings.ToLower(n)].Column(column); ok {
			owners = append(owners, n)
		}
	}
	return owners
}

// Summary renders a compact one-line-per-table description, used as
// context for the language model.
func (g *Graph) Summary() string {
	var b strings.Builder
	for _, t := range g.Tables() {
		b.WriteString(t.Name)
		b.WriteString("(")
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			if c.Type != "" {
				b.WriteString(" ")
				b.WriteString(c.Type)
			}
		}
		b.WriteString(")\n")
	}
	for _, e := range g.edges {
		fmt.Fprintf(&b, "join %s (%s)\n", e.Predicate(), e.Cardinality)
	}
	return b.String()
}
