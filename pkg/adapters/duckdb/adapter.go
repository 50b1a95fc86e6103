// Package duckdb provides a DuckDB warehouse adapter.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements adapter.Adapter for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a DuckDB adapter. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Connect opens the database at cfg.Path (":memory:" when empty) and
// applies extensions and settings from cfg.Params.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("opening duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}
	a.DB = db
	a.Cfg = cfg

	if err := a.configure(ctx, params); err != nil {
		_ = a.Close()
		a.DB = nil
		return err
	}
	return nil
}

func (a *Adapter) configure(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.ReplaceAll(p.Settings[k], "'", "''")
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = '%s'", k, v)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// GetTableMetadata retrieves column metadata for a table in the main
// schema unless qualified.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	schema := a.Cfg.Schema
	if schema == "" {
		schema = "main"
	}
	return a.GetTableMetadataCommon(ctx, table, schema, adapter.QuestionPlaceholder)
}

var _ adapter.Adapter = (*Adapter)(nil)
