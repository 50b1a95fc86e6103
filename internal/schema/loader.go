package schema

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Provider supplies a complete, consistent schema snapshot or fails.
type Provider interface {
	Load(ctx context.Context) (*Graph, error)
}

// File is the on-disk schema format.
//
//	tables:
//	  - name: orders
//	    columns:
//	      - {name: order_date, type: DATE, tags: [time]}
//	joins:
//	  - {from: orders.customer_id, to: customers.id, cardinality: many_to_one}
type File struct {
	Tables []core.Table `yaml:"tables"`
	Joins  []JoinSpec   `yaml:"joins"`
}

// JoinSpec is a join declared as table.column endpoints.
type JoinSpec struct {
	From        string           `yaml:"from"`
	To          string           `yaml:"to"`
	Cardinality core.Cardinality `yaml:"cardinality"`
}

// Definitions converts the file into graph definitions.
func (f *File) Definitions() (Definitions, error) {
	defs := Definitions{Tables: f.Tables}
	for i, j := range f.Joins {
		ft, fc := splitQualified(j.From)
		tt, tc := splitQualified(j.To)
		if ft == "" || tt == "" {
			return defs, &core.SchemaLoadError{Message: fmt.Sprintf("join #%d: endpoints must be table.column, got %q -> %q", i+1, j.From, j.To)}
		}
		defs.Joins = append(defs.Joins, core.JoinEdge{
			FromTable:   ft,
			FromColumn:  fc,
			ToTable:     tt,
			ToColumn:    tc,
			Cardinality: core.Cardinality(strings.ToLower(string(j.Cardinality))),
		})
	}
	return defs, nil
}

// Parse decodes a YAML schema document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &core.SchemaLoadError{Message: fmt.Sprintf("invalid schema document: %v", err)}
	}
	return &f, nil
}

// FileProvider loads the schema graph from a YAML file.
type FileProvider struct {
	Path string
}

// Load implements Provider.
func (p FileProvider) Load(_ context.Context) (*Graph, error) {
	f, err := ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	defs, err := f.Definitions()
	if err != nil {
		return nil, err
	}
	return Build(defs)
}

// ReadFile reads and parses a schema file.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}
