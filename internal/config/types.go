// Package config holds the warehouse connection settings shared by the
// CLI and the components it wires.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// EngineConfig describes the warehouse candidate SQL is validated against.
type EngineConfig struct {
	Type string `koanf:"type"` // duckdb, postgres

	// File-based databases (DuckDB)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Additional driver-specific options, e.g. sslmode
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// Validate checks the engine type against the adapter registry.
func (e *EngineConfig) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("engine type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(e.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      e.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the engine settings into an adapter connection config.
func (e *EngineConfig) AdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:     strings.ToLower(e.Type),
		Path:     e.Database,
		Host:     e.Host,
		Port:     e.Port,
		Database: e.Database,
		Username: e.User,
		Password: e.Password,
		Schema:   e.Schema,
		Options:  e.Options,
		Params:   e.Params,
	}
}
