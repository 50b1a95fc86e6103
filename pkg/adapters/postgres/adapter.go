// Package postgres provides a PostgreSQL warehouse adapter over pgx.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapquery/pkg/adapter"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// Adapter implements adapter.Adapter for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a PostgreSQL adapter. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", buildPostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if tz, ok := cfg.Options["timezone"]; ok {
		dsn += fmt.Sprintf(" timezone=%s", tz)
	}
	return dsn
}

// GetTableMetadata retrieves column metadata, defaulting to the
// configured schema or "public".
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	schema := a.Cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return a.GetTableMetadataCommon(ctx, table, schema, adapter.DollarPlaceholder)
}

var _ adapter.Adapter = (*Adapter)(nil)
