package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardinalityInvert(t *testing.T) {
	tests := []struct {
		in   Cardinality
		want Cardinality
	}{
		{CardinalityOneToMany, CardinalityManyToOne},
		{CardinalityManyToOne, CardinalityOneToMany},
		{CardinalityOneToOne, CardinalityOneToOne},
		{CardinalityManyToMany, CardinalityManyToMany},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Invert())
		})
	}
}

func TestJoinEdgeReverse(t *testing.T) {
	e := JoinEdge{FromTable: "customers", FromColumn: "id", ToTable: "orders", ToColumn: "customer_id", Cardinality: CardinalityOneToMany}
	r := e.Reverse()

	assert.Equal(t, "orders", r.FromTable)
	assert.Equal(t, "customer_id", r.FromColumn)
	assert.Equal(t, CardinalityManyToOne, r.Cardinality)
	assert.Equal(t, e, r.Reverse())
	assert.Equal(t, "orders.customer_id = customers.id", r.Predicate())
	assert.Equal(t, "orders", e.Other("CUSTOMERS"))
}

func TestIntentRequiredTables(t *testing.T) {
	in := Intent{
		BaseTable:      "orders",
		FormulaColumns: []ColumnRef{{Table: "orders", Column: "amount"}},
		GrainColumns:   []ColumnRef{{Table: "regions", Column: "name"}},
		Filters:        []Predicate{{Column: ColumnRef{Table: "customers", Column: "tier"}, Op: OpEq, Values: []string{"gold"}}},
	}
	assert.Equal(t, []string{"customers", "orders", "regions"}, in.RequiredTables())
}

func TestResolutionClass(t *testing.T) {
	assert.False(t, ExactMatch.Halts())
	assert.False(t, Derivable.Halts())
	assert.True(t, CloseMatch.Halts())
	assert.True(t, Ambiguous.Halts())
	assert.True(t, Impossible.Halts())
	assert.Equal(t, Ambiguous, Worse(CloseMatch, Ambiguous))
	assert.Equal(t, Derivable, Worse(Derivable, ExactMatch))

	b, err := json.Marshal(Resolution{Class: CloseMatch})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"class":"close_match"`)

	var r Resolution
	require.NoError(t, json.Unmarshal(b, &r))
	assert.Equal(t, CloseMatch, r.Class)
}

func TestNormalizeOperator(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"==", OpEq, true},
		{"<>", OpNe, true},
		{"NOT  IN", OpNotIn, true},
		{"gte", OpGe, true},
		{"contains", OpLike, true},
		{"between", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeOperator(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPlainNumber(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"100", true},
		{"-12.50", true},
		{"0.5", true},
		{"02134", false},
		{"NaN", false},
		{"Inf", false},
		{"-Infinity", false},
		{"1e3", false},
		{"0x1F", false},
		{"1_000", false},
		{".5", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlainNumber(tt.in))
		})
	}
}

func TestColumnTypeClasses(t *testing.T) {
	tests := []struct {
		typ     string
		numeric bool
		boolean bool
	}{
		{"INTEGER", true, false},
		{"bigint", true, false},
		{"DECIMAL(12,2)", true, false},
		{"NUMERIC (10, 0)", true, false},
		{"INT8", true, false},
		{"FLOAT4", true, false},
		{"DOUBLE PRECISION", true, false},
		{"INTERVAL", false, false},
		{"VARCHAR", false, false},
		{"TEXT", false, false},
		{"DATE", false, false},
		{"BOOLEAN", false, true},
		{"bool", false, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			c := Column{Name: "c", Type: tt.typ}
			assert.Equal(t, tt.numeric, c.IsNumeric())
			assert.Equal(t, tt.boolean, c.IsBoolean())
		})
	}
}

func TestQueryPlanIdentifiers(t *testing.T) {
	p := &QueryPlan{
		BaseTable: "orders",
		Joins: JoinPath{Base: "orders", Edges: []JoinEdge{
			{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id"},
		}},
		Select: []SelectItem{
			{Expr: "customers.region", Columns: []ColumnRef{{Table: "customers", Column: "region"}}},
			{Expr: "SUM(orders.amount)", Alias: "revenue", Columns: []ColumnRef{{Table: "orders", Column: "amount"}}, Aggregate: true},
		},
		GroupBy: []ColumnRef{{Table: "customers", Column: "region"}},
	}

	assert.Equal(t, []string{"orders", "customers"}, p.Tables())
	assert.Equal(t, []string{
		"orders", "customers",
		"customers.id", "customers.region", "orders.amount", "orders.customer_id",
		"revenue",
	}, p.Identifiers())
}

func TestRecordFromResult(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	r := &Result{
		RequestID: "req-1",
		Status:    StatusFailed,
		Attempts:  []CorrectionAttempt{{Number: 1, SQL: "SELECT 1"}, {Number: 2, SQL: "SELECT 2"}},
		LatencyMs: 12,
	}
	rec := RecordFromResult("q", r, now)
	assert.False(t, rec.Succeeded)
	assert.Equal(t, "SELECT 2", rec.FinalSQL)
	assert.Equal(t, "req-1", rec.ID)
	assert.Equal(t, now, rec.CreatedAt)
}

func TestDiagnosticString(t *testing.T) {
	d := (&SyntaxError{Message: "unexpected token", Line: 2, Column: 5}).Diagnostic()
	assert.Equal(t, `[syntax/syntax_error] 2:5 unexpected token`, d.String())

	d = (&UnknownIdentifierError{Identifier: "orders.discuont", Kind: KindUnknownColumn, Message: "column does not exist"}).Diagnostic()
	assert.Equal(t, `[semantic/unknown_column] "orders.discuont" column does not exist`, d.String())
}
