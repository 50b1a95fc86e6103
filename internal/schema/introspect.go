package schema

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// MetadataSource returns column metadata for a warehouse table.
// pkg/adapter.Adapter satisfies it.
type MetadataSource interface {
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)
}

// WarehouseProvider builds the graph from live warehouse metadata.
// The schema file names the tables, their semantic tags and the joins;
// column names and types come from the warehouse.
type WarehouseProvider struct {
	Source      MetadataSource
	Path        string
	Concurrency int
	Logger      *slog.Logger
}

// Load implements Provider.
func (p WarehouseProvider) Load(ctx context.Context) (*Graph, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f, err := ReadFile(p.Path)
	if err != nil {
		return nil, err
	}

	limit := p.Concurrency
	if limit <= 0 {
		limit = 4
	}

	tables := make([]core.Table, len(f.Tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, declared := range f.Tables {
		g.Go(func() error {
			meta, err := p.Source.GetTableMetadata(gctx, declared.Name)
			if err != nil {
				return &core.SchemaLoadError{Table: declared.Name, Message: fmt.Sprintf("introspection failed: %v", err)}
			}
			merged, err := mergeColumns(declared, meta)
			if err != nil {
				return err
			}
			tables[i] = merged
			logger.Debug("introspected table", "table", declared.Name, "columns", len(merged.Columns))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.Tables = tables
	defs, err := f.Definitions()
	if err != nil {
		return nil, err
	}
	return Build(defs)
}

// mergeColumns keeps warehouse column order and types and carries over
// tags declared in the file. A declared column missing from the
// warehouse is an error.
func mergeColumns(declared core.Table, meta *core.TableMetadata) (core.Table, error) {
	out := core.Table{Name: declared.Name, Description: declared.Description}
	live := &core.Table{Name: declared.Name, Columns: meta.Columns}

	for _, dc := range declared.Columns {
		if _, ok := live.Column(dc.Name); !ok {
			return out, &core.SchemaLoadError{Table: declared.Name, Message: fmt.Sprintf("column %q not found in warehouse", dc.Name)}
		}
	}
	for _, lc := range meta.Columns {
		if dc, ok := declared.Column(lc.Name); ok {
			lc.Tags = dc.Tags
		}
		out.Columns = append(out.Columns, lc)
	}
	return out, nil
}
