package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewMemoryCommand creates the memory command.
func NewMemoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect past requests",
		Long: `Inspect the append-only log of finished requests.

Succeeded requests similar to a new one are passed to the model as hints.`,
	}

	cmd.AddCommand(newMemoryListCommand())
	cmd.AddCommand(newMemorySearchCommand())

	return cmd
}

func newMemoryListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := openMemory(cmdCtx.Cfg.MemoryPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			recs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderRecords(cmdCtx.Renderer, recs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records")

	return cmd
}

func newMemorySearchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <request>",
		Short: "Find succeeded requests similar to a request",
		Example: `  leapquery memory search "revenue per region"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			store, err := openMemory(cmdCtx.Cfg.MemoryPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			recs, err := store.FindSimilar(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return renderRecords(cmdCtx.Renderer, recs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of records")

	return cmd
}
