// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapquery/internal/cli/output"
)

// SchemaYAML is the schema file written by SetupTestProject.
const SchemaYAML = `
tables:
  - name: orders
    columns:
      - {name: id, type: INTEGER, tags: [identifier]}
      - {name: customer_id, type: INTEGER}
      - {name: region, type: VARCHAR, tags: [dimension]}
      - {name: amount, type: "DECIMAL(12,2)", tags: [measure]}
      - {name: order_date, type: DATE, tags: [time]}
  - name: customers
    columns:
      - {name: id, type: INTEGER, tags: [identifier]}
      - {name: name, type: VARCHAR}
      - {name: segment, type: VARCHAR, tags: [dimension]}
joins:
  - {from: orders.customer_id, to: customers.id, cardinality: many_to_one}
`

// MetricsYAML is the metric catalogue written by SetupTestProject.
const MetricsYAML = `
metrics:
  - name: revenue
    table: orders
    formula: SUM(amount)
    synonyms: [sales]
    time_column: order_date
`

// SetupTestProject creates a temporary project with a schema file, a
// metrics directory and a leapquery.yaml using an in-memory DuckDB.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "metrics"), 0o750); err != nil {
		t.Fatalf("failed to create metrics directory: %v", err)
	}

	files := map[string]string{
		"schema.yaml":        SchemaYAML,
		"metrics/sales.yaml": MetricsYAML,
		"leapquery.yaml":     "engine:\n  type: duckdb\n  database: \":memory:\"\nmemory_path: \".leapquery/memory.db\"\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a test renderer with the given mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the captured stdout.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured stderr.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
