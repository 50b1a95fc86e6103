package config

import "strings"

// Default configuration values.
const (
	DefaultSchemaFile = "schema.yaml"
	DefaultMetricsDir = "metrics"
	DefaultEngineType = "duckdb"
)

// DefaultSchemaForType returns the default warehouse schema for an engine type.
func DefaultSchemaForType(engineType string) string {
	if strings.EqualFold(engineType, "postgres") {
		return "public"
	}
	return "main"
}

// ApplyEngineDefaults applies default values to an EngineConfig based on its type.
func ApplyEngineDefaults(e *EngineConfig) {
	if e == nil {
		return
	}
	if e.Type == "" {
		e.Type = DefaultEngineType
	}
	if e.Schema == "" {
		e.Schema = DefaultSchemaForType(e.Type)
	}
	if strings.EqualFold(e.Type, "postgres") && e.Port == 0 {
		e.Port = 5432
	}
}

// MergeEngineConfig merges two engine configs, with override taking precedence.
func MergeEngineConfig(base, override *EngineConfig) *EngineConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	merged.Params = make(map[string]any, len(base.Params)+len(override.Params))
	for k, v := range base.Options {
		merged.Options[k] = v
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}
	return &merged
}
