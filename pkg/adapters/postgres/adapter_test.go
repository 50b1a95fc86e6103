package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name:     "defaults",
			config:   adapter.Config{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "credentials",
			config: adapter.Config{
				Host: "localhost", Port: 5432, Database: "testdb", Username: "user", Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "options",
			config: adapter.Config{
				Host: "warehouse.internal", Port: 5433, Database: "analytics", Username: "analyst",
				Options: map[string]string{"sslmode": "require", "timezone": "UTC"},
			},
			expected: "host=warehouse.internal port=5433 dbname=analytics sslmode=require user=analyst timezone=UTC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestAdapter_GetTableMetadata_UsesConfiguredSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	adp := New(nil)
	adp.DB = db
	adp.Cfg = core.AdapterConfig{Schema: "sales"}

	mock.ExpectQuery(`table_schema = \$1 AND table_name = \$2`).
		WithArgs("sales", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("amount", "numeric", "YES", 1))

	meta, err := adp.GetTableMetadata(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, []core.Column{{Name: "amount", Type: "numeric", Nullable: true, Position: 1}}, meta.Columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_Registered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"))
	assert.Equal(t, "postgres", New(nil).DialectName())
}
