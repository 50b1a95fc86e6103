package commands

import (
	"github.com/spf13/cobra"
)

// NewMetricsCommand creates the metrics command.
func NewMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List registered metrics",
		Long: `List the metric catalogue loaded from metrics_dir.

Metrics are defined in YAML or Starlark files and checked against the
schema before they are listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			g, err := loadGraph(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			reg, err := loadMetrics(cmdCtx.Cfg, g)
			if err != nil {
				return err
			}
			return renderMetrics(cmdCtx.Renderer, reg)
		},
	}
}
