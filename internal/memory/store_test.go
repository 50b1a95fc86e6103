package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func record(id, query string, ok bool, age time.Duration) core.MemoryRecord {
	return core.MemoryRecord{
		ID:            id,
		OriginalQuery: query,
		FinalSQL:      "SELECT 1 FROM orders",
		Succeeded:     ok,
		LatencyMs:     12,
		CreatedAt:     epoch.Add(-age),
	}
}

func stores(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"mem": func(t *testing.T) Store { return NewMemStore() },
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "memory.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"sqlite in memory": func(t *testing.T) Store {
			s, err := OpenSQLite(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStore_AppendAndList(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			require.NoError(t, s.Append(ctx, record("a", "revenue by region", true, 3*time.Hour)))
			require.NoError(t, s.Append(ctx, record("b", "orders by country", false, time.Hour)))
			require.NoError(t, s.Append(ctx, record("c", "discount by segment", true, 2*time.Hour)))

			all, err := s.List(ctx, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "c", "a"}, ids(all))

			two, err := s.List(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "c"}, ids(two))

			assert.Equal(t, record("b", "orders by country", false, time.Hour), all[0])
		})
	}
}

func TestStore_AppendOnly(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			require.NoError(t, s.Append(ctx, record("a", "revenue", true, 0)))
			err := s.Append(ctx, record("a", "something else", false, 0))
			assert.ErrorIs(t, err, ErrDuplicate)

			all, err := s.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "revenue", all[0].OriginalQuery)
		})
	}
}

func TestStore_FindSimilar(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			require.NoError(t, s.Append(ctx, record("exact", "revenue by region last quarter", true, time.Hour)))
			require.NoError(t, s.Append(ctx, record("partial", "revenue by segment", true, time.Hour)))
			require.NoError(t, s.Append(ctx, record("failed", "revenue by region last quarter", false, 0)))
			require.NoError(t, s.Append(ctx, record("unrelated", "count customers", true, 0)))

			hits, err := s.FindSimilar(ctx, "Revenue by Region, last quarter", 5)
			require.NoError(t, err)
			assert.Equal(t, []string{"exact", "partial"}, ids(hits))

			one, err := s.FindSimilar(ctx, "revenue by region", 1)
			require.NoError(t, err)
			assert.Equal(t, []string{"exact"}, ids(one))
		})
	}
}

func TestSQLiteStore_RoundTripsIntentAndPlan(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer s.Close()

	rec := record("r1", "revenue by region", true, 0)
	rec.FinalIntent = &core.Intent{
		MetricName:    "revenue",
		MetricFormula: "SUM(amount)",
		BaseTable:     "orders",
		GrainColumns:  []core.ColumnRef{{Table: "orders", Column: "region"}},
	}
	rec.FinalPlan = &core.QueryPlan{
		BaseTable: "orders",
		Joins:     core.JoinPath{Base: "orders"},
		Select:    []core.SelectItem{{Expr: "orders.region"}},
		Limit:     5,
	}
	require.NoError(t, s.Append(ctx, rec))

	got, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}

func TestSQLiteStore_ReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record("a", "revenue", true, 0)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(all))

	version, err := SchemaVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestSQLiteStore_RejectsUpdates(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Append(ctx, record("a", "revenue", true, 0)))

	_, err = s.db.ExecContext(ctx, `UPDATE memory_records SET succeeded = 0 WHERE id = 'a'`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = s.db.ExecContext(ctx, `DELETE FROM memory_records`)
	require.Error(t, err)
}

func ids(records []core.MemoryRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
