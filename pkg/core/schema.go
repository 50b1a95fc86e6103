package core

import (
	"strings"
)

// Cardinality describes how rows on either side of a join edge relate.
type Cardinality string

// Cardinality values.
const (
	CardinalityOneToOne   Cardinality = "one_to_one"
	CardinalityOneToMany  Cardinality = "one_to_many"
	CardinalityManyToOne  Cardinality = "many_to_one"
	CardinalityManyToMany Cardinality = "many_to_many"
)

// Valid reports whether c is a known cardinality. The empty value is
// treated as many_to_one by the schema loader.
func (c Cardinality) Valid() bool {
	switch c {
	case CardinalityOneToOne, CardinalityOneToMany, CardinalityManyToOne, CardinalityManyToMany:
		return true
	}
	return false
}

// Invert returns the cardinality seen from the other side of the edge.
func (c Cardinality) Invert() Cardinality {
	switch c {
	case CardinalityOneToMany:
		return CardinalityManyToOne
	case CardinalityManyToOne:
		return CardinalityOneToMany
	default:
		return c
	}
}

// Semantic tags recognised on columns.
const (
	TagTime       = "time"
	TagMeasure    = "measure"
	TagDimension  = "dimension"
	TagIdentifier = "identifier"
)

// Column represents a column in a warehouse table.
// Nullable and Position are populated when the column was introspected
// from a live database.
type Column struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Nullable bool     `json:"nullable,omitempty" yaml:"-"`
	Position int      `json:"position,omitempty" yaml:"-"`
}

// HasTag reports whether the column carries the given semantic tag.
func (c Column) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// IsTemporal reports whether the column's type is a date or timestamp.
func (c Column) IsTemporal() bool {
	t := strings.ToUpper(c.Type)
	return strings.HasPrefix(t, "DATE") || strings.HasPrefix(t, "TIMESTAMP")
}

var numericTypes = []string{
	"TINYINT", "SMALLINT", "INT", "BIGINT", "HUGEINT", "UBIGINT", "UINTEGER", "USMALLINT", "UTINYINT",
	"DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL", "SERIAL", "BIGSERIAL",
}

// IsNumeric reports whether the column's type is an integer, decimal or
// floating point type.
func (c Column) IsNumeric() bool {
	t := strings.ToUpper(strings.TrimSpace(c.Type))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	for _, n := range numericTypes {
		rest, ok := strings.CutPrefix(t, n)
		if ok && (rest == "EGER" || strings.TrimLeft(rest, "0123456789") == "") {
			return true
		}
	}
	return t == "DOUBLE PRECISION"
}

// IsBoolean reports whether the column's type is a boolean.
func (c Column) IsBoolean() bool {
	t := strings.ToUpper(strings.TrimSpace(c.Type))
	return t == "BOOL" || t == "BOOLEAN"
}

// Table is a node in the schema graph.
type Table struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     []Column `json:"columns" yaml:"columns"`
}

// Column looks a column up by name, case-insensitively.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// JoinEdge is a known join between two tables.
// Edges are undirected for pathfinding; the stored orientation is the
// canonical one chosen by the schema graph.
type JoinEdge struct {
	FromTable   string      `json:"from_table"`
	FromColumn  string      `json:"from_column"`
	ToTable     string      `json:"to_table"`
	ToColumn    string      `json:"to_column"`
	Cardinality Cardinality `json:"cardinality"`
}

// Reverse returns the same edge seen from ToTable.
func (e JoinEdge) Reverse() JoinEdge {
	return JoinEdge{
		FromTable:   e.ToTable,
		FromColumn:  e.ToColumn,
		ToTable:     e.FromTable,
		ToColumn:    e.FromColumn,
		Cardinality: e.Cardinality.Invert(),
	}
}

// Touches reports whether the edge has table as one of its endpoints.
func (e JoinEdge) Touches(table string) bool {
	return strings.EqualFold(e.FromTable, table) || strings.EqualFold(e.ToTable, table)
}

// Other returns the endpoint opposite to table.
func (e JoinEdge) Other(table string) string {
	if strings.EqualFold(e.FromTable, table) {
		return e.ToTable
	}
	return e.FromTable
}

// Predicate returns the equality join condition, e.g. "orders.customer_id = customers.id".
func (e JoinEdge) Predicate() string {
	return e.FromTable + "." + e.FromColumn + " = " + e.ToTable + "." + e.ToColumn
}

func (e JoinEdge) String() string {
	return e.FromTable + "-" + e.ToTable
}

// ColumnRef is a resolved, table-qualified column reference.
type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

func (r ColumnRef) String() string {
	if r.Table == "" {
		return r.Column
	}
	return r.Table + "." + r.Column
}

// Equal compares two references case-insensitively.
func (r ColumnRef) Equal(o ColumnRef) bool {
	return strings.EqualFold(r.Table, o.Table) && strings.EqualFold(r.Column, o.Column)
}
