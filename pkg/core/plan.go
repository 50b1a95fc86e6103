package core

import (
	"sort"
	"strings"
)

// JoinPath is a tree of join edges rooted at Base.
// Each edge is oriented parent to child, in discovery order, so that
// every edge's FromTable is already part of the path when it is joined.
type JoinPath struct {
	Base  string     `json:"base"`
	Edges []JoinEdge `json:"edges"`
}

// Tables returns the tables of the path in join order.
func (p JoinPath) Tables() []string {
	tables := make([]string, 0, len(p.Edges)+1)
	tables = append(tables, p.Base)
	for _, e := range p.Edges {
		tables = append(tables, e.ToTable)
	}
	return tables
}

// Contains reports whether table is part of the path.
func (p JoinPath) Contains(table string) bool {
	for _, t := range p.Tables() {
		if strings.EqualFold(t, table) {
			return true
		}
	}
	return false
}

// SelectItem is one projected expression of a plan.
// Expr is canonical SQL text over qualified columns.
type SelectItem struct {
	Expr      string      `json:"expr"`
	Alias     string      `json:"alias,omitempty"`
	Columns   []ColumnRef `json:"columns,omitempty"`
	Aggregate bool        `json:"aggregate,omitempty"`
}

// Filter is one conjunct of the WHERE clause.
type Filter struct {
	Expr    string      `json:"expr"`
	Columns []ColumnRef `json:"columns,omitempty"`
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expr string `json:"expr"`
	Desc bool   `json:"desc,omitempty"`
}

// QueryPlan is the canonical intermediate representation between intent
// and SQL text. Renderers and validators read only from this structure.
type QueryPlan struct {
	BaseTable string       `json:"base_table"`
	Joins     JoinPath     `json:"joins"`
	Select    []SelectItem `json:"select"`
	GroupBy   []ColumnRef  `json:"group_by,omitempty"`
	Filters   []Filter     `json:"filters,omitempty"`
	OrderBy   []OrderItem  `json:"order_by,omitempty"`
	Limit     int          `json:"limit,omitempty"`
}

// Tables returns the declared tables of the plan in join order.
func (p *QueryPlan) Tables() []string {
	return p.Joins.Tables()
}

// Columns returns every column the plan declares, deduplicated and sorted.
func (p *QueryPlan) Columns() []ColumnRef {
	seen := map[string]ColumnRef{}
	add := func(refs ...ColumnRef) {
		for _, r := range refs {
			seen[strings.ToLower(r.String())] = r
		}
	}
	for _, s := range p.Select {
		add(s.Columns...)
	}
	add(p.GroupBy...)
	for _, f := range p.Filters {
		add(f.Columns...)
	}
	for _, e := range p.Joins.Edges {
		add(ColumnRef{Table: e.FromTable, Column: e.FromColumn}, ColumnRef{Table: e.ToTable, Column: e.ToColumn})
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ColumnRef, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}

// Aliases returns the select-list aliases.
func (p *QueryPlan) Aliases() []string {
	var out []string
	for _, s := range p.Select {
		if s.Alias != "" {
			out = append(out, s.Alias)
		}
	}
	return out
}

// Identifiers lists every identifier the plan allows in SQL text:
// tables, qualified columns and select aliases.
func (p *QueryPlan) Identifiers() []string {
	var out []string
	out = append(out, p.Tables()...)
	for _, c := range p.Columns() {
		out = append(out, c.String())
	}
	out = append(out, p.Aliases()...)
	return out
}
