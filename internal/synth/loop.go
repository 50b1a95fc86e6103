package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Errors returned by Loop.Run besides ctx errors.
var (
	ErrRender   = errors.New("failed to render plan")
	ErrValidate = errors.New("validation did not complete")
)

// DefaultMaxAttempts bounds the Generate/Validate cycles of one run.
const DefaultMaxAttempts = 3

// Validator checks a candidate statement against a plan.
type Validator interface {
	Validate(ctx context.Context, sql string, plan *core.QueryPlan) (core.ValidationResult, error)
}

// State is a step of the critic loop.
type State int

// Loop states.
const (
	StateGenerate State = iota
	StateValidate
	StateCritique
	StateAccepted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateGenerate:
		return "generate"
	case StateValidate:
		return "validate"
	case StateCritique:
		return "critique"
	case StateAccepted:
		return "accepted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is the terminal result of one loop run.
// SQL is set only when State is StateAccepted.
type Outcome struct {
	State       State
	SQL         string
	Attempts    []core.CorrectionAttempt
	Diagnostics []core.Diagnostic
}

// Status maps the terminal state onto a request status.
func (o *Outcome) Status() core.Status {
	if o.State == StateAccepted {
		return core.StatusAccepted
	}
	return core.StatusFailed
}

// Options configures a Loop.
type Options struct {
	MaxAttempts int
	Logger      *slog.Logger
}

// Loop renders a plan and drives candidates through validation and repair.
type Loop struct {
	validator   Validator
	repairer    Repairer
	maxAttempts int
	logger      *slog.Logger
}

// NewLoop creates a critic loop. A nil repairer fails on the first
// rejected candidate.
func NewLoop(validator Validator, repairer Repairer, opts Options) *Loop {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Loop{
		validator:   validator,
		repairer:    repairer,
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger,
	}
}

// MaxAttempts returns the attempt budget.
func (l *Loop) MaxAttempts() int {
	return l.maxAttempts
}

// Run renders plan and iterates until a candidate passes or the budget is
// spent. The plan is never modified. An error is returned only when the
// plan cannot be rendered (ErrRender), the validator itself fails
// (ErrValidate) or ctx ends.
func (l *Loop) Run(ctx context.Context, plan *core.QueryPlan) (*Outcome, error) {
	candidate, err := Render(plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	out := &Outcome{}
	var last core.ValidationResult
	attempt := 0
	state := StateGenerate

	for state != StateAccepted && state != StateFailed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch state {
		case StateGenerate:
			attempt++
			state = StateValidate

		case StateValidate:
			res, err := l.validator.Validate(ctx, candidate, plan)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, fmt.Errorf("%w: %w", ErrValidate, err)
			}
			last = res
			out.Attempts = append(out.Attempts, core.CorrectionAttempt{Number: attempt, SQL: candidate, Result: res})
			l.logger.Debug("candidate validated",
				"attempt", attempt, "stage", res.Stage, "passed", res.Passed, "diagnostics", len(res.Diagnostics))

			switch {
			case res.Passed:
				state = StateAccepted
			case attempt >= l.maxAttempts:
				out.Diagnostics = append(append(out.Diagnostics, res.Diagnostics...), core.Diagnostic{
					Stage:   res.Stage,
					Kind:    core.KindAttemptsExhausted,
					Message: fmt.Sprintf("no candidate passed validation after %d attempts", attempt),
				})
				state = StateFailed
			default:
				state = StateCritique
			}

		case StateCritique:
			repaired, err := l.repair(ctx, candidate, last, plan)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				l.logger.Warn("repair failed", "attempt", attempt, "error", err)
				out.Diagnostics = append(append(out.Diagnostics, last.Diagnostics...), core.Diagnostic{
					Stage:   last.Stage,
					Kind:    core.KindRepairFailed,
					Message: err.Error(),
				})
				state = StateFailed
				continue
			}
			candidate = repaired
			state = StateGenerate
		}
	}

	out.State = state
	if state == StateAccepted {
		out.SQL = candidate
	}
	l.logger.Info("critic loop finished", "state", state, "attempts", attempt)
	return out, nil
}

func (l *Loop) repair(ctx context.Context, sql string, res core.ValidationResult, plan *core.QueryPlan) (string, error) {
	if l.repairer == nil {
		return "", fmt.Errorf("no repairer configured")
	}
	return l.repairer.Repair(ctx, RepairRequest{
		SQL:         sql,
		Diagnostics: res.Diagnostics,
		Identifiers: plan.Identifiers(),
	})
}
