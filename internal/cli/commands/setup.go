package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/internal/cli/config"
	"github.com/leapstack-labs/leapquery/internal/cli/output"
	"github.com/leapstack-labs/leapquery/internal/engine"
	"github.com/leapstack-labs/leapquery/internal/intent"
	"github.com/leapstack-labs/leapquery/internal/llm"
	"github.com/leapstack-labs/leapquery/internal/memory"
	"github.com/leapstack-labs/leapquery/internal/metrics"
	"github.com/leapstack-labs/leapquery/internal/pipeline"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/internal/synth"
	"github.com/leapstack-labs/leapquery/internal/validate"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the loaded configuration, or one built from defaults
// when the command runs outside the root command.
func getConfig(ctx context.Context) *config.Config {
	if cfg, ok := config.FromContext(ctx); ok {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			SchemaFile:   config.DefaultSchemaFile,
			MetricsDir:   config.DefaultMetricsDir,
			MemoryPath:   config.DefaultMemoryFile,
			OutputFormat: config.DefaultOutput,
		}
	}
	return cfg
}

// Factories for the external collaborators. Tests replace them.
var (
	openCapability = func(cfg *config.Config, logger *slog.Logger) (llm.Capability, error) {
		if cfg.LLM.APIKey == "" {
			return nil, errors.New("no LLM API key configured\nHint: set ANTHROPIC_API_KEY or llm.api_key in leapquery.yaml")
		}
		client := llm.NewAnthropic(llm.AnthropicConfig{
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			BaseURL:   cfg.LLM.BaseURL,
		})
		return llm.WithRetry(client, llm.Policy{Timeout: cfg.LLM.Timeout, Retries: cfg.LLM.Retries}, logger), nil
	}

	openWarehouse = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (adapter.Adapter, error) {
		a, err := adapter.NewAdapter(cfg.Engine.AdapterConfig(), logger)
		if err != nil {
			return nil, err
		}
		if err := a.Connect(ctx, cfg.Engine.AdapterConfig()); err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Engine.Type, err)
		}
		return a, nil
	}
)

// App is a fully wired translation pipeline and the resources behind it.
type App struct {
	Pipeline *pipeline.Pipeline
	Schemas  *schema.Store
	Provider schema.Provider
	Metrics  *metrics.Registry
	Memory   memory.Store

	recorder  *memory.Recorder
	warehouse adapter.Adapter
}

// Close flushes pending memory records and releases connections.
func (a *App) Close() error {
	if a.recorder != nil {
		a.recorder.Close()
	}
	var errs []error
	if a.Memory != nil {
		errs = append(errs, a.Memory.Close())
	}
	if a.warehouse != nil {
		errs = append(errs, a.warehouse.Close())
	}
	return errors.Join(errs...)
}

// openApp wires the pipeline described by cfg.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	app := &App{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.warehouse, err = openWarehouse(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app.Provider = schemaProvider(cfg, app.warehouse, logger)
	g, err := app.Provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	app.Schemas = schema.NewStore(g)

	app.Metrics, err = loadMetrics(cfg, g)
	if err != nil {
		return nil, err
	}

	capability, err := openCapability(cfg, logger)
	if err != nil {
		return nil, err
	}

	app.Memory, err = openMemory(cfg.MemoryPath)
	if err != nil {
		return nil, err
	}
	app.recorder = memory.NewRecorder(app.Memory, cfg.Pipeline.RecorderBuffer, logger)

	eng := engine.New(app.warehouse, engine.Options{
		Timeout: cfg.Pipeline.EngineTimeout,
		Retries: cfg.Pipeline.EngineRetries,
		Logger:  logger,
	})

	app.Pipeline = pipeline.New(pipeline.Config{
		Schemas: app.Schemas,
		Resolver: intent.NewResolver(capability, app.Metrics,
			intent.WithThresholds(cfg.Matching),
			intent.WithLogger(logger),
		),
		Executor:      eng,
		Repairer:      synth.NewLLMRepairer(capability),
		Memory:        app.Memory,
		Recorder:      app.recorder,
		MaxAttempts:   cfg.Pipeline.MaxAttempts,
		ExecutionMode: validate.Mode(cfg.Pipeline.ExecutionMode),
		RowCap:        cfg.Pipeline.RowCap,
		HintLimit:     cfg.Pipeline.HintLimit,
		Logger:        logger,
	})
	return app, nil
}

// schemaProvider builds the graph from the schema file, merging live
// warehouse columns when introspection is enabled.
func schemaProvider(cfg *config.Config, warehouse adapter.Adapter, logger *slog.Logger) schema.Provider {
	if cfg.Introspect && warehouse != nil {
		return schema.WarehouseProvider{Source: warehouse, Path: cfg.SchemaFile, Logger: logger}
	}
	return schema.FileProvider{Path: cfg.SchemaFile}
}

// loadMetrics loads the metric catalogue and checks it against g. A
// missing metrics directory yields an empty registry.
func loadMetrics(cfg *config.Config, g *schema.Graph) (*metrics.Registry, error) {
	if _, err := os.Stat(cfg.MetricsDir); os.IsNotExist(err) {
		return metrics.NewRegistry()
	}
	reg, err := metrics.LoadDir(cfg.MetricsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	if err := reg.Validate(g); err != nil {
		return nil, fmt.Errorf("invalid metric catalogue: %w", err)
	}
	return reg, nil
}

// openMemory opens the memory store, creating its directory.
func openMemory(path string) (memory.Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create memory directory: %w", err)
			}
		}
	}
	store, err := memory.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// loadGraph loads the schema graph without wiring the rest of the
// pipeline. Introspection connects to the warehouse for the duration
// of the load.
func loadGraph(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*schema.Graph, error) {
	var warehouse adapter.Adapter
	if cfg.Introspect {
		var err error
		warehouse, err = openWarehouse(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		defer func() { _ = warehouse.Close() }()
	}
	g, err := schemaProvider(cfg, warehouse, logger).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return g, nil
}
