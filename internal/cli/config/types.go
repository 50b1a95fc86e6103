// Package config provides configuration management for the leapquery CLI.
//
// Values are layered from built-in defaults, leapquery.yaml, LEAPQUERY_
// environment variables and command-line flags, in increasing order of
// precedence.
package config

import (
	"time"

	sharedcfg "github.com/leapstack-labs/leapquery/internal/config"
	"github.com/leapstack-labs/leapquery/internal/memory"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/internal/synth"
)

// EngineConfig is an alias for the shared engine configuration.
type EngineConfig = sharedcfg.EngineConfig

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot  string               `koanf:"-"`
	SchemaFile   string               `koanf:"schema_file"`
	MetricsDir   string               `koanf:"metrics_dir"`
	MemoryPath   string               `koanf:"memory_path"`
	Introspect   bool                 `koanf:"introspect"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Engine       *EngineConfig        `koanf:"engine"`
	LLM          LLMConfig            `koanf:"llm"`
	Pipeline     PipelineConfig       `koanf:"pipeline"`
	Matching     schema.Thresholds    `koanf:"matching"`
	Environments map[string]EnvConfig `koanf:"environments"`
}

// LLMConfig configures the language-model collaborator.
type LLMConfig struct {
	Model     string        `koanf:"model"`
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	MaxTokens int           `koanf:"max_tokens"`
	Timeout   time.Duration `koanf:"timeout"`
	Retries   uint64        `koanf:"retries"`
}

// PipelineConfig bounds the translation pipeline.
type PipelineConfig struct {
	MaxAttempts    int           `koanf:"max_attempts"`
	ExecutionMode  string        `koanf:"execution_mode"` // explain or limited
	RowCap         int           `koanf:"row_cap"`
	EngineTimeout  time.Duration `koanf:"engine_timeout"`
	EngineRetries  uint64        `koanf:"engine_retries"`
	HintLimit      int           `koanf:"hint_limit"`
	RecorderBuffer int           `koanf:"recorder_buffer"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	SchemaFile string        `koanf:"schema_file"`
	Engine     *EngineConfig `koanf:"engine"`
}

// Default configuration values.
const (
	DefaultSchemaFile     = sharedcfg.DefaultSchemaFile
	DefaultMetricsDir     = sharedcfg.DefaultMetricsDir
	DefaultMemoryFile     = ".leapquery/memory.db"
	DefaultEnv            = "dev"
	DefaultOutput         = "auto" // TTY=text, non-TTY=markdown
	DefaultModel          = "claude-sonnet-4-5-20250929"
	DefaultAPIKey         = "${ANTHROPIC_API_KEY}"
	DefaultLLMTimeout     = 30 * time.Second
	DefaultLLMRetries     = 1
	DefaultMaxAttempts    = synth.DefaultMaxAttempts
	DefaultExecutionMode  = "explain"
	DefaultRowCap         = 1
	DefaultEngineTimeout  = 10 * time.Second
	DefaultEngineRetries  = 1
	DefaultHintLimit      = 3
	DefaultRecorderBuffer = memory.DefaultRecorderBuffer
)
