package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register adapters via init()
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/postgres"
)

func TestEngineConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		engine    EngineConfig
		errSubstr string
	}{
		{name: "empty type", engine: EngineConfig{}, errSubstr: "engine type is required"},
		{name: "duckdb", engine: EngineConfig{Type: "duckdb"}},
		{name: "duckdb uppercase", engine: EngineConfig{Type: "DuckDB"}},
		{name: "postgres", engine: EngineConfig{Type: "postgres"}},
		{name: "unknown mysql", engine: EngineConfig{Type: "mysql"}, errSubstr: "unknown warehouse engine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.engine.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestEngineConfig_ValidateListsAvailable(t *testing.T) {
	err := (&EngineConfig{Type: "oracle"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duckdb")
	assert.Contains(t, err.Error(), "leapquery.yaml")
}

func TestApplyEngineDefaults(t *testing.T) {
	tests := []struct {
		name   string
		in     EngineConfig
		schema string
		port   int
		typ    string
	}{
		{name: "empty defaults to duckdb", in: EngineConfig{}, schema: "main", typ: "duckdb"},
		{name: "postgres", in: EngineConfig{Type: "postgres"}, schema: "public", port: 5432, typ: "postgres"},
		{name: "explicit values kept", in: EngineConfig{Type: "postgres", Schema: "analytics", Port: 6543}, schema: "analytics", port: 6543, typ: "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.in
			ApplyEngineDefaults(&e)
			assert.Equal(t, tt.typ, e.Type)
			assert.Equal(t, tt.schema, e.Schema)
			assert.Equal(t, tt.port, e.Port)
		})
	}

	assert.NotPanics(t, func() { ApplyEngineDefaults(nil) })
}

func TestMergeEngineConfig(t *testing.T) {
	base := &EngineConfig{
		Type:    "postgres",
		Host:    "localhost",
		User:    "reader",
		Options: map[string]string{"sslmode": "disable"},
		Params:  map[string]any{"a": 1},
	}
	override := &EngineConfig{
		Host:    "warehouse.internal",
		Options: map[string]string{"timezone": "UTC"},
		Params:  map[string]any{"a": 2},
	}

	merged := MergeEngineConfig(base, override)
	assert.Equal(t, "postgres", merged.Type)
	assert.Equal(t, "warehouse.internal", merged.Host)
	assert.Equal(t, "reader", merged.User)
	assert.Equal(t, map[string]string{"sslmode": "disable", "timezone": "UTC"}, merged.Options)
	assert.Equal(t, 2, merged.Params["a"])
	assert.Equal(t, "localhost", base.Host, "base must not be mutated")

	assert.Same(t, base, MergeEngineConfig(base, nil))
	assert.Same(t, override, MergeEngineConfig(nil, override))
}

func TestEngineConfig_AdapterConfig(t *testing.T) {
	e := EngineConfig{Type: "DuckDB", Database: "warehouse.duckdb", Schema: "main", User: "u"}
	cfg := e.AdapterConfig()
	assert.Equal(t, "duckdb", cfg.Type)
	assert.Equal(t, "warehouse.duckdb", cfg.Path)
	assert.Equal(t, "warehouse.duckdb", cfg.Database)
	assert.Equal(t, "u", cfg.Username)
}
