// Package cli provides the command-line interface for LeapQuery.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/internal/cli/commands"
	"github.com/leapstack-labs/leapquery/internal/cli/config"

	// Register warehouse adapters.
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/postgres"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile, targetFlag string

	rootCmd := &cobra.Command{
		Use:   "leapquery",
		Short: "LeapQuery - natural-language analytics to verified SQL",
		Long: `LeapQuery turns analytics questions into SQL you can trust.

Requests are resolved against a declared schema and metric catalogue,
planned over explicit join paths, rendered, and checked by a validation
cascade before any SQL is returned. Anything it cannot resolve with
confidence comes back as a clarification request, never as a guess.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.LoadConfigWithTarget(cfgFile, targetFlag, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd, cfg.Verbose)
			ctx := config.WithLogger(config.WithConfig(cmd.Context(), cfg), logger)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					logger.Debug("using config file", "path", configFile)
				}
				if targetFlag != "" {
					logger.Debug("using target", "target", targetFlag)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Natural-language analytics to verified SQL
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./leapquery.yaml)")
	flags.StringVarP(&targetFlag, "target", "t", "", "Environment to use (e.g., dev, prod)")
	flags.String("project-dir", "", "Project root (default: directory of leapquery.yaml)")
	flags.String("schema", "", "Path to the schema file")
	flags.String("metrics-dir", "", "Path to the metrics directory")
	flags.String("memory", "", "Path to the memory database")
	flags.String("engine", "", "Warehouse engine type (duckdb|postgres)")
	flags.String("database", "", "Warehouse database (DuckDB file path or PostgreSQL database name)")
	flags.Bool("introspect", false, "Read column names and types from the warehouse")
	flags.String("model", "", "LLM model name")
	flags.Int("max-attempts", 0, "Maximum generate/validate cycles per request")
	flags.String("execution-mode", "", "Execution gate mode (explain|limited)")
	flags.Int("row-cap", 0, "Row cap for the limited execution mode")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("execution-mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"explain", "limited"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"duckdb", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewTranslateCommand())
	rootCmd.AddCommand(commands.NewReplCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(commands.NewMetricsCommand())
	rootCmd.AddCommand(commands.NewMemoryCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger writes text logs to stderr: warnings and above by default,
// everything with --verbose.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command. Cancelling ctx aborts in-flight requests.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for LeapQuery.

To load completions:

Bash:
  $ source <(leapquery completion bash)
  
  # To load completions for each session, execute once:
  # Linux:
  $ leapquery completion bash > /etc/bash_completion.d/leapquery
  # macOS:
  $ leapquery completion bash > $(brew --prefix)/etc/bash_completion.d/leapquery

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  
  # To load completions for each session, execute once:
  $ leapquery completion zsh > "${fpath[1]}/_leapquery"
  
  # You will need to start a new shell for this setup to take effect.

Fish:
  $ leapquery completion fish | source
  
  # To load completions for each session, execute once:
  $ leapquery completion fish > ~/.config/fish/completions/leapquery.fish

PowerShell:
  PS> leapquery completion powershell | Out-String | Invoke-Expression
  
  # To load completions for every new session, run:
  PS> leapquery completion powershell > leapquery.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
	return cmd
}
