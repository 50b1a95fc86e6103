package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

func mockBase(t *testing.T) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLAdapter{DB: db}, mock
}

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	base := &BaseSQLAdapter{}

	assert.False(t, base.IsConnected())
	assert.NoError(t, base.Close())
	assert.EqualError(t, base.Exec(ctx, "SELECT 1"), "database connection not established")
	_, err := base.Query(ctx, "SELECT 1")
	assert.EqualError(t, err, "database connection not established")
	_, err = base.GetTableMetadataCommon(ctx, "orders", "main", QuestionPlaceholder)
	assert.EqualError(t, err, "database connection not established")
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(sqlmock.Sqlmock)
		errMsg string
	}{
		{
			name: "success",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec("SET threads").WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "driver error",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec("SET threads").WillReturnError(assert.AnError)
			},
			errMsg: "failed to execute SQL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := mockBase(t)
			tt.setup(mock)

			err := base.Exec(context.Background(), "SET threads = 4")
			if tt.errMsg != "" {
				assert.ErrorContains(t, err, tt.errMsg)
				assert.ErrorIs(t, err, assert.AnError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	base, mock := mockBase(t)
	mock.ExpectQuery("SELECT region").WillReturnRows(
		sqlmock.NewRows([]string{"region"}).AddRow("EMEA").AddRow("APAC"))

	rows, err := base.Query(context.Background(), "SELECT region FROM orders")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var got []string
	for rows.Next() {
		var r string
		require.NoError(t, rows.Scan(&r))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"EMEA", "APAC"}, got)

	mock.ExpectQuery("BROKEN").WillReturnError(assert.AnError)
	_, err = base.Query(context.Background(), "BROKEN")
	assert.ErrorContains(t, err, "failed to execute query")
}

func TestBaseSQLAdapter_GetTableMetadataCommon(t *testing.T) {
	base, mock := mockBase(t)
	mock.ExpectQuery(`FROM information_schema.columns\s+WHERE table_schema = \$1 AND table_name = \$2`).
		WithArgs("sales", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("id", "INTEGER", "NO", 1).
			AddRow("order_date", "DATE", "YES", 2))

	meta, err := base.GetTableMetadataCommon(context.Background(), "sales.orders", "public", DollarPlaceholder)
	require.NoError(t, err)
	assert.Equal(t, &core.TableMetadata{
		Schema: "sales",
		Name:   "orders",
		Columns: []core.Column{
			{Name: "id", Type: "INTEGER", Position: 1},
			{Name: "order_date", Type: "DATE", Nullable: true, Position: 2},
		},
	}, meta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_GetTableMetadataCommon_Missing(t *testing.T) {
	base, mock := mockBase(t)
	mock.ExpectQuery("information_schema").
		WithArgs("main", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	_, err := base.GetTableMetadataCommon(context.Background(), "ghost", "main", QuestionPlaceholder)
	assert.EqualError(t, err, "table ghost not found")
}

func TestParseQualifiedName(t *testing.T) {
	s, n := ParseQualifiedName("orders", "main")
	assert.Equal(t, "main", s)
	assert.Equal(t, "orders", n)

	s, n = ParseQualifiedName("sales.orders", "main")
	assert.Equal(t, "sales", s)
	assert.Equal(t, "orders", n)
}
