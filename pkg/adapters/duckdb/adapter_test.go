package duckdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

func connect(t *testing.T, cfg core.AdapterConfig) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), cfg))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_ConnectAndMetadata(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, core.AdapterConfig{Path: ":memory:"})

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE orders (id INTEGER, region VARCHAR, order_date DATE)`))

	meta, err := adp.GetTableMetadata(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.Schema)
	require.Len(t, meta.Columns, 3)
	assert.Equal(t, "region", meta.Columns[1].Name)
	assert.Equal(t, "VARCHAR", meta.Columns[1].Type)
	assert.Equal(t, "DATE", meta.Columns[2].Type)

	_, err = adp.GetTableMetadata(ctx, "missing")
	assert.ErrorContains(t, err, "table missing not found")
}

func TestAdapter_Settings(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, core.AdapterConfig{Params: map[string]any{"settings": map[string]any{"threads": 2}}})

	rows, err := adp.Query(ctx, "SELECT CAST(current_setting('threads') AS VARCHAR)")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	require.True(t, rows.Next())
	var threads string
	require.NoError(t, rows.Scan(&threads))
	assert.Equal(t, "2", threads)
}

func TestAdapter_InvalidParams(t *testing.T) {
	err := New(nil).Connect(context.Background(), core.AdapterConfig{Params: map[string]any{"bogus": true}})
	assert.ErrorContains(t, err, "invalid duckdb params")
}

func TestAdapter_Registered(t *testing.T) {
	adp, err := adapter.NewAdapter(core.AdapterConfig{Type: "duckdb"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", adp.DialectName())
}
