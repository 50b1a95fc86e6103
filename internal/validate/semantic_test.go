package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/internal/plan"
	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/sqlast"
)

const revenueSQL = `SELECT orders.region, SUM(orders.amount) AS revenue
FROM orders
WHERE orders.order_date >= CAST('2024-01-01' AS DATE) AND orders.order_date < CAST('2024-04-01' AS DATE)
GROUP BY orders.region`

func ref(table, column string) core.ColumnRef {
	return core.ColumnRef{Table: table, Column: column}
}

func revenuePlan(t *testing.T) *core.QueryPlan {
	t.Helper()
	p, err := plan.Build(core.Intent{
		MetricName:     "revenue",
		MetricFormula:  "SUM(amount)",
		FormulaColumns: []core.ColumnRef{ref("orders", "amount")},
		BaseTable:      "orders",
		GrainColumns:   []core.ColumnRef{ref("orders", "region")},
		TimeRange: &core.TimeRange{
			Label:  "last_quarter",
			Column: ref("orders", "order_date"),
			Start:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}, core.JoinPath{Base: "orders"})
	require.NoError(t, err)
	return p
}

func segmentPlan(t *testing.T) *core.QueryPlan {
	t.Helper()
	p, err := plan.Build(core.Intent{
		MetricName:     "revenue",
		MetricFormula:  "SUM(amount)",
		FormulaColumns: []core.ColumnRef{ref("orders", "amount")},
		BaseTable:      "orders",
		GrainColumns:   []core.ColumnRef{ref("customers", "segment")},
	}, core.JoinPath{Base: "orders", Edges: []core.JoinEdge{{
		FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id",
		Cardinality: core.CardinalityManyToOne,
	}}})
	require.NoError(t, err)
	return p
}

func semanticErrors(t *testing.T, sql string, p *core.QueryPlan) []*core.UnknownIdentifierError {
	t.Helper()
	stmt, err := sqlast.Parse(sql)
	require.NoError(t, err)
	return Semantic(stmt, testutil.SalesGraph(t), p)
}

func TestSemantic_Accepts(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		plan func(*testing.T) *core.QueryPlan
	}{
		{name: "rendered plan", sql: revenueSQL, plan: revenuePlan},
		{
			name: "case insensitive identifiers",
			sql: `select ORDERS.Region, sum(Orders.AMOUNT) as Revenue from Orders
where orders.order_date >= cast('2024-01-01' as date) and orders.order_date < cast('2024-04-01' as date)
group by orders.region order by revenue desc`,
			plan: revenuePlan,
		},
		{
			name: "unqualified columns with a single owner",
			sql: `SELECT region, SUM(amount) AS revenue FROM orders
WHERE order_date >= CAST('2024-01-01' AS DATE) AND order_date < CAST('2024-04-01' AS DATE) GROUP BY region`,
			plan: revenuePlan,
		},
		{
			name: "table alias",
			sql: `SELECT c.segment, SUM(o.amount) AS revenue
FROM orders AS o LEFT JOIN customers AS c ON o.customer_id = c.id
GROUP BY c.segment`,
			plan: segmentPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, semanticErrors(t, tt.sql, tt.plan(t)))
		})
	}
}

func TestSemantic_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		plan      func(*testing.T) *core.QueryPlan
		wantKind  core.DiagnosticKind
		wantIdent string
	}{
		{
			name: "unknown column",
			sql: `SELECT orders.regoin, SUM(orders.amount) AS revenue FROM orders
WHERE orders.order_date >= CAST('2024-01-01' AS DATE) AND orders.order_date < CAST('2024-04-01' AS DATE) GROUP BY orders.region`,
			plan:      revenuePlan,
			wantKind:  core.KindUnknownColumn,
			wantIdent: "orders.regoin",
		},
		{
			name:      "unknown table",
			sql:       `SELECT sales.region FROM sales`,
			plan:      revenuePlan,
			wantKind:  core.KindUnknownTable,
			wantIdent: "sales",
		},
		{
			name: "unknown qualifier",
			sql: `SELECT o.region, SUM(orders.amount) AS revenue FROM orders
WHERE orders.order_date >= CAST('2024-01-01' AS DATE) AND orders.order_date < CAST('2024-04-01' AS DATE) GROUP BY orders.region`,
			plan:      revenuePlan,
			wantKind:  core.KindUnknownTable,
			wantIdent: "o",
		},
		{
			name: "table outside the plan",
			sql: `SELECT orders.region, SUM(orders.amount) AS revenue FROM orders LEFT JOIN customers ON orders.customer_id = customers.id
WHERE orders.order_date >= CAST('2024-01-01' AS DATE) AND orders.order_date < CAST('2024-04-01' AS DATE) GROUP BY orders.region`,
			plan:      revenuePlan,
			wantKind:  core.KindUndeclaredTable,
			wantIdent: "customers",
		},
		{
			name: "column outside the plan",
			sql: `SELECT orders.region, SUM(orders.discount) AS revenue FROM orders
WHERE orders.order_date >= CAST('2024-01-01' AS DATE) AND orders.order_date < CAST('2024-04-01' AS DATE) GROUP BY orders.region`,
			plan:      revenuePlan,
			wantKind:  core.KindUndeclaredColumn,
			wantIdent: "orders.discount",
		},
		{
			name:      "star projection",
			sql:       `SELECT * FROM orders`,
			plan:      revenuePlan,
			wantKind:  core.KindStarProjection,
			wantIdent: "*",
		},
		{
			name: "ambiguous unqualified column",
			sql: `SELECT customers.segment, SUM(orders.amount) AS revenue
FROM orders LEFT JOIN customers ON orders.customer_id = customers.id
WHERE id > 1 GROUP BY customers.segment`,
			plan:      segmentPlan,
			wantKind:  core.KindAmbiguousColumn,
			wantIdent: "id",
		},
		{
			name: "undeclared alias",
			sql: `SELECT orders.region, SUM(orders.amount) AS total FROM orders
WHERE orders.order_date >= CAST('2024-01-01' AS DATE) AND orders.order_date < CAST('2024-04-01' AS DATE) GROUP BY orders.region`,
			plan:      revenuePlan,
			wantKind:  core.KindUndeclaredColumn,
			wantIdent: "total",
		},
		{
			name:      "dropped plan column",
			sql:       `SELECT orders.region, SUM(orders.amount) AS revenue FROM orders GROUP BY orders.region`,
			plan:      revenuePlan,
			wantKind:  core.KindMissingPlanColumn,
			wantIdent: "orders.order_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := semanticErrors(t, tt.sql, tt.plan(t))
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.wantKind, errs[0].Kind)
			assert.Equal(t, tt.wantIdent, errs[0].Identifier)
		})
	}
}

func TestSemantic_ReportsPosition(t *testing.T) {
	errs := semanticErrors(t, "SELECT orders.regoin FROM orders", revenuePlan(t))
	require.NotEmpty(t, errs)
	assert.Equal(t, 1, errs[0].Line)
	assert.Equal(t, 8, errs[0].Column)
}

func TestSemantic_MissingFrom(t *testing.T) {
	errs := semanticErrors(t, "SELECT 1", revenuePlan(t))
	require.NotEmpty(t, errs)
	assert.Equal(t, core.KindUndeclaredTable, errs[0].Kind)
}
