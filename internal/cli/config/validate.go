package config

import (
	"fmt"
	"os"
	"slices"
)

var (
	outputFormats  = []string{"", "auto", "text", "markdown", "json"}
	executionModes = []string{"explain", "limited"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SchemaFile == "" {
		return fmt.Errorf("schema_file is required")
	}
	if !slices.Contains(outputFormats, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (want auto, text, markdown or json)", c.OutputFormat)
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("pipeline.max_attempts must be at least 1, got %d", c.Pipeline.MaxAttempts)
	}
	if !slices.Contains(executionModes, c.Pipeline.ExecutionMode) {
		return fmt.Errorf("invalid pipeline.execution_mode %q (want explain or limited)", c.Pipeline.ExecutionMode)
	}
	if c.Pipeline.RowCap < 1 {
		return fmt.Errorf("pipeline.row_cap must be at least 1, got %d", c.Pipeline.RowCap)
	}
	if c.Pipeline.HintLimit < 0 {
		return fmt.Errorf("pipeline.hint_limit must not be negative")
	}
	m := c.Matching
	if m.Review < 0 || m.Accept > 1 || m.Review > m.Accept {
		return fmt.Errorf("matching thresholds must satisfy 0 <= review (%.2f) <= accept (%.2f) <= 1", m.Review, m.Accept)
	}
	if c.Engine != nil {
		if err := c.Engine.Validate(); err != nil {
			return fmt.Errorf("invalid engine configuration: %w", err)
		}
	}
	return nil
}

// ValidateFiles checks that the schema file and metrics directory exist.
func (c *Config) ValidateFiles() error {
	if _, err := os.Stat(c.SchemaFile); err != nil {
		return fmt.Errorf("schema file does not exist: %s\nHint: create it or use --schema to specify a different path", c.SchemaFile)
	}
	if info, err := os.Stat(c.MetricsDir); err != nil || !info.IsDir() {
		return fmt.Errorf("metrics directory does not exist: %s\nHint: create it or use --metrics-dir to specify a different path", c.MetricsDir)
	}
	return nil
}
