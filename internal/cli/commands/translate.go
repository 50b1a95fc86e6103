package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/internal/pipeline"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// ErrTranslationFailed is returned after rendering a failed result so the
// process exits non-zero.
var ErrTranslationFailed = errors.New("translation failed")

// TranslateOptions holds options for the translate command.
type TranslateOptions struct {
	Formula  string
	ShowPlan bool
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand() *cobra.Command {
	opts := &TranslateOptions{}

	cmd := &cobra.Command{
		Use:     "translate [request]",
		Aliases: []string{"ask"},
		Short:   "Translate an analytics request into verified SQL",
		Long: `Translate a natural-language analytics request into SQL.

The request is resolved against the schema and metric catalogue, planned,
rendered and validated. Invalid SQL is repaired up to pipeline.max_attempts
times. Requests that cannot be resolved confidently ask for clarification
instead of guessing.

When no request is given it is read from standard input.`,
		Example: `  # Ask a question
  leapquery translate "revenue by region last quarter"

  # Supply the metric formula yourself
  leapquery translate "average basket by country" --formula "AVG(orders.amount)"

  # Machine-readable output
  leapquery translate "top 10 customers by revenue" -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Formula, "formula", "", "Metric formula to use instead of a registered metric")
	cmd.Flags().BoolVar(&opts.ShowPlan, "plan", false, "Show the query plan")

	return cmd
}

func runTranslate(cmd *cobra.Command, args []string, opts *TranslateOptions) error {
	utterance, err := readUtterance(cmd, args)
	if err != nil {
		return err
	}

	cmdCtx := NewCommandContext(cmd)
	app, err := openApp(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	res, err := app.Pipeline.Translate(cmd.Context(), pipeline.Request{Utterance: utterance, Formula: opts.Formula})
	if err != nil {
		return err
	}
	if err := renderResult(cmdCtx.Renderer, res, opts.ShowPlan); err != nil {
		return err
	}
	if res.Status == core.StatusFailed {
		return ErrTranslationFailed
	}
	return nil
}

// readUtterance takes the request from args, or from stdin when it is piped.
func readUtterance(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		return "", fmt.Errorf("no request given\nHint: leapquery translate \"revenue by region\" or use leapquery repl")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	utterance := strings.TrimSpace(string(data))
	if utterance == "" {
		return "", fmt.Errorf("empty request")
	}
	return utterance, nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
