package core

import (
	"database/sql"
)

// AdapterConfig holds configuration for connecting to a warehouse.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any // adapter-specific settings, decoded by the adapter
}

// TableMetadata holds introspected metadata about a warehouse table.
type TableMetadata struct {
	Schema  string
	Name    string
	Columns []Column
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
