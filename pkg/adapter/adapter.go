// Package adapter defines the warehouse connection contract used by the
// query engine and by schema introspection.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter connects to one warehouse.
type Adapter interface {
	// Connect establishes a connection using cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a statement that returns rows.
	// The caller must close the result and check Rows.Err.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata introspects the columns of a table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// DialectName names the SQL dialect the warehouse speaks.
	DialectName() string
}
