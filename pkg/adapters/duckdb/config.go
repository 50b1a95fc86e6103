package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration decoded from
// core.AdapterConfig.Params.
type Params struct {
	// Extensions to install and load before queries run (e.g. "icu", "json").
	Extensions []string `mapstructure:"extensions"`

	// Settings applied with SET at session start (e.g. memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

// ParseParams decodes raw adapter params. Unknown keys are rejected.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}
