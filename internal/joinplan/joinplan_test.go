package joinplan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

func table(name string, cols ...string) core.Table {
	t := core.Table{Name: name}
	for _, c := range cols {
		t.Columns = append(t.Columns, core.Column{Name: c, Type: "INTEGER"})
	}
	return t
}

func edge(from, fc, to, tc string) core.JoinEdge {
	return core.JoinEdge{FromTable: from, FromColumn: fc, ToTable: to, ToColumn: tc, Cardinality: core.CardinalityManyToOne}
}

func chainDefs() schema.Definitions {
	return schema.Definitions{
		Tables: []core.Table{
			table("a", "id", "b_id"),
			table("b", "id", "c_id"),
			table("c", "id"),
		},
		Joins: []core.JoinEdge{
			edge("a", "b_id", "b", "id"),
			edge("b", "c_id", "c", "id"),
		},
	}
}

func TestPlan_SingleTable(t *testing.T) {
	g := testutil.SalesGraph(t)

	path, err := Plan(g, "orders", []string{"orders"})
	require.NoError(t, err)
	assert.Equal(t, core.JoinPath{Base: "orders"}, path)
	assert.Empty(t, path.Edges)
}

func TestPlan_ThreeTableChain(t *testing.T) {
	g, err := schema.Build(chainDefs())
	require.NoError(t, err)

	path, err := Plan(g, "a", []string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, core.JoinPath{
		Base: "a",
		Edges: []core.JoinEdge{
			edge("a", "b_id", "b", "id"),
			edge("b", "c_id", "c", "id"),
		},
	}, path)
	assert.Equal(t, []string{"a", "b", "c"}, path.Tables())
}

func TestPlan_IntermediateTablesAreIncluded(t *testing.T) {
	g, err := schema.Build(chainDefs())
	require.NoError(t, err)

	path, err := Plan(g, "a", []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, path.Tables())
}

func TestPlan_EdgesOrientedFromBase(t *testing.T) {
	g, err := schema.Build(chainDefs())
	require.NoError(t, err)

	path, err := Plan(g, "c", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []core.JoinEdge{
		{FromTable: "c", FromColumn: "id", ToTable: "b", ToColumn: "c_id", Cardinality: core.CardinalityOneToMany},
		{FromTable: "b", FromColumn: "id", ToTable: "a", ToColumn: "b_id", Cardinality: core.CardinalityOneToMany},
	}, path.Edges)
}

func TestPlan_MissingEdgeIsUnreachable(t *testing.T) {
	defs := chainDefs()
	defs.Joins = defs.Joins[:1]
	g, err := schema.Build(defs)
	require.NoError(t, err)

	_, err = Plan(g, "a", []string{"b", "c"})
	var unreachable *core.UnreachableTableError
	require.True(t, errors.As(err, &unreachable))
	assert.Equal(t, "a", unreachable.From)
	assert.Equal(t, "c", unreachable.To)
}

func TestPlan_LexicographicTieBreak(t *testing.T) {
	// Two routes from hub to leaf: via "x" and via "y". BFS must go via "x".
	g, err := schema.Build(schema.Definitions{
		Tables: []core.Table{
			table("hub", "id"),
			table("y", "id", "hub_id", "leaf_id"),
			table("x", "id", "hub_id", "leaf_id"),
			table("leaf", "id"),
		},
		Joins: []core.JoinEdge{
			edge("y", "hub_id", "hub", "id"),
			edge("x", "hub_id", "hub", "id"),
			edge("y", "leaf_id", "leaf", "id"),
			edge("x", "leaf_id", "leaf", "id"),
		},
	})
	require.NoError(t, err)

	path, err := Plan(g, "hub", []string{"leaf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hub", "x", "leaf"}, path.Tables())
}

func TestPlan_Deterministic(t *testing.T) {
	g := testutil.SalesGraph(t)
	required := []string{"countries", "customers", "orders"}

	first, err := Plan(g, "orders", required)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Plan(g, "orders", []string{required[i%3], required[(i+1)%3], required[(i+2)%3]})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []string{"orders", "customers", "countries"}, first.Tables())
}

func TestPlan_CaseInsensitiveNames(t *testing.T) {
	g := testutil.SalesGraph(t)

	path, err := Plan(g, "ORDERS", []string{"Customers"})
	require.NoError(t, err)
	assert.Equal(t, "orders", path.Base)
	assert.Equal(t, []string{"orders", "customers"}, path.Tables())
}

func TestPlan_UnknownTable(t *testing.T) {
	g := testutil.SalesGraph(t)

	_, err := Plan(g, "nope", nil)
	assert.ErrorContains(t, err, `unknown base table "nope"`)

	_, err = Plan(g, "orders", []string{"nope"})
	assert.ErrorContains(t, err, `unknown table "nope"`)
}
