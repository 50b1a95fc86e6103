package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/internal/cli/output"
	"github.com/leapstack-labs/leapquery/internal/pipeline"
	"github.com/leapstack-labs/leapquery/internal/schema"
)

const (
	replPrompt      = "leapquery> "
	replHistoryFile = "repl_history"
)

// ReplOptions holds options for the repl command.
type ReplOptions struct {
	Watch    bool
	ShowPlan bool
}

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	opts := &ReplOptions{}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Ask questions interactively",
		Long: `Start an interactive session. Each line is translated as one request.

With --watch the schema file is reloaded whenever it changes; requests
already in flight keep the snapshot they started with.`,
		Example: `  leapquery repl
  leapquery repl --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Reload the schema file when it changes")
	cmd.Flags().BoolVar(&opts.ShowPlan, "plan", false, "Show the query plan of each result")

	return cmd
}

// replSession is the state shared by the REPL loop and its dot-commands.
type replSession struct {
	app      *App
	r        *output.Renderer
	formula  string
	showPlan bool
}

func runRepl(cmd *cobra.Command, opts *ReplOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cmdCtx := NewCommandContext(cmd)
	app, err := openApp(ctx, cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if opts.Watch {
		go func() {
			err := schema.Watch(ctx, app.Schemas, cmdCtx.Cfg.SchemaFile, app.Provider, schema.WatchOptions{Logger: cmdCtx.Logger})
			if err != nil {
				cmdCtx.Logger.Error("schema watch stopped", "error", err)
			}
		}()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(filepath.Dir(cmdCtx.Cfg.MemoryPath), replHistoryFile),
		AutoComplete:    newReplCompleter(app.Schemas.Current()),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s := &replSession{app: app, r: cmdCtx.Renderer, showPlan: opts.ShowPlan}
	s.r.Printf("LeapQuery REPL (schema: %s)\n", cmdCtx.Cfg.SchemaFile)
	s.r.Println("Type .help for commands, .quit to exit")
	s.r.Println()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ".") {
			if quit := s.handleDotCommand(ctx, line); quit {
				return nil
			}
			continue
		}
		s.translate(ctx, line)
	}
}

// translate runs one request. The one-shot formula applies to it only.
func (s *replSession) translate(ctx context.Context, utterance string) {
	req := pipeline.Request{Utterance: utterance, Formula: s.formula}
	s.formula = ""

	res, err := s.app.Pipeline.Translate(ctx, req)
	if err != nil {
		s.r.Error("Error: " + err.Error())
		return
	}
	if err := renderResult(s.r, res, s.showPlan); err != nil {
		s.r.Error("Error: " + err.Error())
	}
	s.r.Println()
}

// handleDotCommand runs a dot-command and reports whether to quit.
func (s *replSession) handleDotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

	var err error
	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printReplHelp(s.r.Writer())

	case ".tables":
		err = renderTables(s.r, s.app.Schemas.Current())

	case ".schema":
		if arg == "" {
			s.r.Error("Usage: .schema <table>")
			return false
		}
		g := s.app.Schemas.Current()
		t, ok := g.Table(arg)
		if !ok {
			err = fmt.Errorf("table %q not found", arg)
			break
		}
		err = renderTable(s.r, g, *t)

	case ".metrics":
		err = renderMetrics(s.r, s.app.Metrics)

	case ".formula":
		s.formula = arg
		if arg == "" {
			s.r.Println("Formula cleared")
		} else {
			s.r.Printf("Next request uses formula %s\n", arg)
		}

	case ".plan":
		s.showPlan = !s.showPlan
		s.r.Printf("Plan display %s\n", onOff(s.showPlan))

	case ".history":
		limit := 10
		if arg != "" {
			if limit, err = strconv.Atoi(arg); err != nil {
				err = fmt.Errorf("invalid limit %q", arg)
				break
			}
		}
		recs, lerr := s.app.Memory.List(ctx, limit)
		if lerr != nil {
			err = lerr
			break
		}
		err = renderRecords(s.r, recs)

	default:
		s.r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}

	if err != nil {
		s.r.Error("Error: " + err.Error())
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printReplHelp(w io.Writer) {
	help := `
Commands:
  .help              Show this help message
  .tables            List tables
  .schema <table>    Show columns and joins of a table
  .metrics           List registered metrics
  .formula <expr>    Use a metric formula for the next request
  .plan              Toggle query plan display
  .history [n]       Show the last n requests (default 10)
  .quit / .exit      Exit the REPL

Tips:
  - Each line is one request, e.g. "revenue by region last quarter"
  - Use arrow keys to navigate history
  - Tab completion works for dot-commands and table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newReplCompleter completes dot-commands and table names for .schema.
func newReplCompleter(g *schema.Graph) *readline.PrefixCompleter {
	var tables []readline.PrefixCompleterInterface
	if g != nil {
		for _, name := range g.TableNames() {
			tables = append(tables, readline.PcItem(name))
		}
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema", tables...),
		readline.PcItem(".metrics"),
		readline.PcItem(".formula"),
		readline.PcItem(".plan"),
		readline.PcItem(".history"),
		readline.PcItem(".quit"),
	)
}
