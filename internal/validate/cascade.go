// Package validate implements the validation cascade: syntax, semantic
// and execution gates run in order, stopping at the first gate that fails.
package validate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Executor is the query engine seen by the execution gate.
type Executor interface {
	Explain(ctx context.Context, sql string) error
	ExecuteLimited(ctx context.Context, sql string, rowCap int) (int, error)
}

// Mode selects how the execution gate submits SQL.
type Mode string

// Execution modes.
const (
	ModeExplain Mode = "explain"
	ModeLimited Mode = "limited"
)

// Options configures a Cascade.
type Options struct {
	Mode   Mode
	RowCap int
	Logger *slog.Logger
}

// Cascade validates candidate SQL against one schema snapshot.
type Cascade struct {
	graph *schema.Graph
	exec  Executor
	opts  Options
}

// NewCascade creates a cascade bound to g.
func NewCascade(g *schema.Graph, exec Executor, opts Options) *Cascade {
	if opts.Mode == "" {
		opts.Mode = ModeExplain
	}
	if opts.RowCap <= 0 {
		opts.RowCap = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Cascade{graph: g, exec: exec, opts: opts}
}

// Validate runs the gates on sql. The returned error is non-nil only
// when ctx ends before the cascade completes.
func (c *Cascade) Validate(ctx context.Context, sql string, plan *core.QueryPlan) (core.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return core.ValidationResult{}, err
	}

	stmt, serr := Syntax(sql)
	if serr != nil {
		c.opts.Logger.Debug("syntax gate failed", "error", serr)
		return core.ValidationResult{
			Stage:       core.StageSyntax,
			Diagnostics: []core.Diagnostic{serr.Diagnostic()},
		}, nil
	}

	if errs := Semantic(stmt, c.graph, plan); len(errs) > 0 {
		res := core.ValidationResult{Stage: core.StageSemantic}
		for _, e := range errs {
			res.Diagnostics = append(res.Diagnostics, e.Diagnostic())
		}
		c.opts.Logger.Debug("semantic gate failed", "diagnostics", len(errs))
		return res, nil
	}

	if err := c.execute(ctx, sql); err != nil {
		if ctx.Err() != nil {
			return core.ValidationResult{}, ctx.Err()
		}
		var ee *core.ExecutionError
		if !errors.As(err, &ee) {
			ee = &core.ExecutionError{EngineMessage: err.Error(), Kind: core.KindExecutionError}
		}
		c.opts.Logger.Debug("execution gate failed", "kind", ee.Kind, "error", ee.EngineMessage)
		return core.ValidationResult{
			Stage:       core.StageExecution,
			Diagnostics: []core.Diagnostic{ee.Diagnostic()},
		}, nil
	}

	return core.ValidationResult{Stage: core.StageExecution, Passed: true}, nil
}

func (c *Cascade) execute(ctx context.Context, sql string) error {
	if c.exec == nil {
		return &core.ExecutionError{EngineMessage: "no query engine configured", Kind: core.KindExecutionError}
	}
	if c.opts.Mode == ModeLimited {
		_, err := c.exec.ExecuteLimited(ctx, sql, c.opts.RowCap)
		return err
	}
	return c.exec.Explain(ctx, sql)
}
