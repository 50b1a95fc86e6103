package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	sharedcfg "github.com/leapstack-labs/leapquery/internal/config"
)

// loggerKey and configKey are used to store the logger and config in context.
type (
	loggerKey struct{}
	configKey struct{}
)

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// envPrefix prefixes environment overrides. A double underscore descends
// into a section: LEAPQUERY_LLM__API_KEY -> llm.api_key.
const envPrefix = "LEAPQUERY_"

var configNames = []string{"leapquery.yaml", "leapquery.yml"}

// flagKeys maps flags whose names differ from their config keys.
var flagKeys = map[string]string{
	"schema":         "schema_file",
	"memory":         "memory_path",
	"engine":         "engine.type",
	"database":       "engine.database",
	"model":          "llm.model",
	"max-attempts":   "pipeline.max_attempts",
	"execution-mode": "pipeline.execution_mode",
	"row-cap":        "pipeline.row_cap",
}

// pathFlags are resolved against the working directory rather than the project root.
var pathFlags = []string{"schema", "metrics-dir", "memory", "database"}

var configFileUsed string

// configExistsIn returns the config file in dir, if any.
func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a leapquery config file.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Explicit --project-dir flag
//  2. Directory of an explicit --config file
//  3. Search upward from CWD for leapquery.yaml
//  4. Current working directory
func inferProjectRoot(cfgFile string, flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("project-dir") {
		if projectDir, _ := flags.GetString("project-dir"); projectDir != "" {
			if abs, err := filepath.Abs(projectDir); err == nil {
				return abs
			}
			return filepath.Clean(projectDir)
		}
	}
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig clears package state. Used for testing.
func ResetConfig() {
	configFileUsed = ""
}

func defaults() map[string]any {
	return map[string]any{
		"schema_file":               DefaultSchemaFile,
		"metrics_dir":               DefaultMetricsDir,
		"memory_path":               DefaultMemoryFile,
		"introspect":                false,
		"environment":               DefaultEnv,
		"verbose":                   false,
		"output":                    DefaultOutput,
		"llm.model":                 DefaultModel,
		"llm.api_key":               DefaultAPIKey,
		"llm.timeout":               DefaultLLMTimeout.String(),
		"llm.retries":               DefaultLLMRetries,
		"pipeline.max_attempts":     DefaultMaxAttempts,
		"pipeline.execution_mode":   DefaultExecutionMode,
		"pipeline.row_cap":          DefaultRowCap,
		"pipeline.engine_timeout":   DefaultEngineTimeout.String(),
		"pipeline.engine_retries":   DefaultEngineRetries,
		"pipeline.hint_limit":       DefaultHintLimit,
		"pipeline.recorder_buffer":  DefaultRecorderBuffer,
		"matching.accept_threshold": 0.8,
		"matching.review_threshold": 0.5,
	}
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration and applies the overrides of the
// named environment. An empty target selects the configured environment.
func LoadConfigWithTarget(cfgFile, target string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	projectRoot := inferProjectRoot(cfgFile, flags)

	// Paths given as flags are relative to the working directory.
	flagPaths := map[string]string{}
	if flags != nil {
		for _, name := range pathFlags {
			if f := flags.Lookup(name); f != nil && f.Changed && f.Value.String() != "" {
				v := f.Value.String()
				if v != ":memory:" {
					v, _ = filepath.Abs(v)
				}
				flagPaths[name] = v
			}
		}
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = cfgFile
	if configFileUsed == "" {
		configFileUsed = configExistsIn(projectRoot)
	}
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := unmarshal(k, &cfg); err != nil {
		return nil, err
	}
	cfg.ProjectRoot = projectRoot

	envName := cfg.Environment
	if target != "" {
		envName = target
	}
	if envCfg, ok := cfg.Environments[envName]; ok {
		if envCfg.SchemaFile != "" {
			cfg.SchemaFile = envCfg.SchemaFile
		}
		if envCfg.Engine != nil {
			cfg.Engine = sharedcfg.MergeEngineConfig(cfg.Engine, envCfg.Engine)
		}
	} else if target != "" {
		return nil, fmt.Errorf("unknown target %q: no such entry under environments", target)
	}
	if cfg.Engine == nil {
		cfg.Engine = &EngineConfig{}
	}
	sharedcfg.ApplyEngineDefaults(cfg.Engine)
	expandEngineEnvVars(cfg.Engine)
	cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)

	cfg.SchemaFile = pick(flagPaths["schema"], resolvePathRelativeTo(cfg.SchemaFile, projectRoot))
	cfg.MetricsDir = pick(flagPaths["metrics-dir"], resolvePathRelativeTo(cfg.MetricsDir, projectRoot))
	cfg.MemoryPath = pick(flagPaths["memory"], resolvePathRelativeTo(cfg.MemoryPath, projectRoot))
	cfg.Engine.Database = pick(flagPaths["database"], cfg.Engine.Database)
	if strings.EqualFold(cfg.Engine.Type, "duckdb") && flagPaths["database"] == "" {
		cfg.Engine.Database = resolvePathRelativeTo(cfg.Engine.Database, projectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func unmarshal(k *koanf.Koanf, cfg *Config) error {
	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}
	return nil
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stored by WithConfig.
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	return cfg, ok && cfg != nil
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables expand to "".
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// expandEngineEnvVars expands environment variables in sensitive engine fields.
func expandEngineEnvVars(e *EngineConfig) {
	e.Password = expandEnvVars(e.Password)
	e.User = expandEnvVars(e.User)
	e.Host = expandEnvVars(e.Host)
	e.Database = expandEnvVars(e.Database)
}
