package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the schema graph",
		Long: `Inspect the tables, columns and joins requests are resolved against.

With introspect enabled, column names and types come from the warehouse
and tags and joins from the schema file.`,
	}

	cmd.AddCommand(newSchemaShowCommand())
	cmd.AddCommand(newSchemaMatchCommand())

	return cmd
}

func newSchemaShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [table]",
		Short: "List tables, or show the columns and joins of one table",
		Example: `  leapquery schema show
  leapquery schema show orders -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			g, err := loadGraph(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return renderTables(cmdCtx.Renderer, g)
			}
			t, ok := g.Table(args[0])
			if !ok {
				return fmt.Errorf("table %q not found", args[0])
			}
			return renderTable(cmdCtx.Renderer, g, *t)
		},
	}
}

func newSchemaMatchCommand() *cobra.Command {
	var review float64

	cmd := &cobra.Command{
		Use:   "match <column>",
		Short: "Find the tables that could own a column name",
		Long: `Score every table by its closest column to the given name.

Candidates below the review threshold are not shown. The command never
picks a table; it lists what a request mentioning the name could mean.`,
		Example: `  leapquery schema match regoin
  leapquery schema match customer_name --review 0.7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			g, err := loadGraph(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			threshold := cmdCtx.Cfg.Matching.Review
			if cmd.Flags().Changed("review") {
				threshold = review
			}
			return renderMatches(cmdCtx.Renderer, g.FindTable(args[0], threshold))
		},
	}

	cmd.Flags().Float64Var(&review, "review", 0, "Minimum similarity score (default: matching.review_threshold)")

	return cmd
}
