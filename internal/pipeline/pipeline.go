// Package pipeline runs one natural-language request end to end: intent
// resolution, join planning, plan construction, and the critic loop. It
// returns exactly one Result per request and records finished outcomes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapquery/internal/intent"
	"github.com/leapstack-labs/leapquery/internal/joinplan"
	"github.com/leapstack-labs/leapquery/internal/memory"
	"github.com/leapstack-labs/leapquery/internal/plan"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/internal/synth"
	"github.com/leapstack-labs/leapquery/internal/validate"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Request is one translation request.
type Request struct {
	Utterance string
	// Formula is an optional metric formula supplied by the caller.
	Formula string
}

// ErrNoSchema is returned when no schema snapshot has been loaded.
var ErrNoSchema = errors.New("no schema snapshot loaded")

// Config wires a Pipeline. Memory and Recorder are optional.
type Config struct {
	Schemas  *schema.Store
	Resolver *intent.Resolver
	Executor validate.Executor
	Repairer synth.Repairer
	Memory   memory.Store
	Recorder *memory.Recorder

	MaxAttempts   int
	ExecutionMode validate.Mode
	RowCap        int
	HintLimit     int

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Pipeline translates requests against the current schema snapshot.
// It is safe for concurrent use.
type Pipeline struct {
	cfg Config
}

// New creates a pipeline from cfg.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return uuid.NewString() }
	}
	if cfg.HintLimit <= 0 {
		cfg.HintLimit = 3
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = synth.DefaultMaxAttempts
	}
	return &Pipeline{cfg: cfg}
}

// Translate runs req to a terminal result. The error is non-nil only when
// ctx ends before a result exists or no schema is loaded; in that case no
// SQL is returned.
func (p *Pipeline) Translate(ctx context.Context, req Request) (*core.Result, error) {
	start := p.cfg.Now()
	id := p.cfg.NewID()
	logger := p.cfg.Logger.With("request_id", id)

	// The snapshot bound here serves the whole request, even if the
	// store is swapped meanwhile.
	g := p.cfg.Schemas.Current()
	if g == nil {
		return nil, ErrNoSchema
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run := &run{p: p, g: g, req: req, logger: logger, start: start, result: &core.Result{RequestID: id}}
	res, err := run.execute(ctx)
	if err != nil {
		logger.Info("request cancelled", "error", err)
		return nil, err
	}
	res.LatencyMs = p.cfg.Now().Sub(start).Milliseconds()

	logger.Info("request finished", "status", res.Status, "attempts", len(res.Attempts), "latency_ms", res.LatencyMs)
	if res.Status != core.StatusClarify {
		p.record(req, res)
	}
	return res, nil
}

func (p *Pipeline) record(req Request, res *core.Result) {
	if p.cfg.Recorder == nil {
		return
	}
	p.cfg.Recorder.Record(core.RecordFromResult(req.Utterance, res, p.cfg.Now()))
}

// run holds the state of one request.
type run struct {
	p      *Pipeline
	g      *schema.Graph
	req    Request
	logger *slog.Logger
	start  time.Time
	result *core.Result
}

func (r *run) execute(ctx context.Context) (*core.Result, error) {
	hints := r.hints(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, resolution, err := r.p.cfg.Resolver.Resolve(ctx, r.g, intent.Request{
		Utterance: r.req.Utterance,
		Formula:   r.req.Formula,
		Hints:     hints,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("intent extraction failed", "error", err)
		return r.fail(core.KindExtractionFailed, err), nil
	}
	r.result.Intent = &in
	r.result.Resolution = &resolution

	if !resolution.Proceed() {
		r.logger.Info("request needs clarification", "class", resolution.Class, "reason", resolution.Reason)
		r.result.Status = core.StatusClarify
		r.result.Diagnostics = []core.Diagnostic{{
			Stage:   core.StagePlanning,
			Kind:    core.KindClarificationNeeded,
			Message: clarification(resolution),
		}}
		return r.result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := joinplan.Plan(r.g, in.BaseTable, in.RequiredTables())
	if err != nil {
		return r.invariant("join planning", err), nil
	}
	qp, err := plan.Build(in, path)
	if err != nil {
		return r.invariant("plan construction", err), nil
	}
	r.result.Plan = qp
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cascade := validate.NewCascade(r.g, r.p.cfg.Executor, validate.Options{
		Mode:   r.p.cfg.ExecutionMode,
		RowCap: r.p.cfg.RowCap,
		Logger: r.logger,
	})
	loop := synth.NewLoop(cascade, r.p.cfg.Repairer, synth.Options{
		MaxAttempts: r.p.cfg.MaxAttempts,
		Logger:      r.logger,
	})
	out, err := loop.Run(ctx, qp)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.invariant(loopStage(err), err), nil
	}

	r.result.Status = out.Status()
	r.result.SQL = out.SQL
	r.result.Attempts = out.Attempts
	r.result.Diagnostics = out.Diagnostics
	return r.result, nil
}

// hints fetches similar past successes. Lookup failures only cost the
// hints.
func (r *run) hints(ctx context.Context) []core.MemoryRecord {
	if r.p.cfg.Memory == nil {
		return nil
	}
	hints, err := r.p.cfg.Memory.FindSimilar(ctx, r.req.Utterance, r.p.cfg.HintLimit)
	if err != nil {
		r.logger.Warn("memory lookup failed", "error", err)
		return nil
	}
	r.logger.Debug("memory hints", "count", len(hints))
	return hints
}

func (r *run) fail(kind core.DiagnosticKind, err error) *core.Result {
	r.result.Status = core.StatusFailed
	r.result.Diagnostics = append(r.result.Diagnostics, core.Diagnostic{
		Stage:   core.StagePlanning,
		Kind:    kind,
		Message: err.Error(),
	})
	return r.result
}

// invariant reports a disagreement between pipeline stages. It is always
// surfaced as a failed result and logged at error level.
// loopStage names the critic loop step that failed with err.
func loopStage(err error) string {
	if errors.Is(err, synth.ErrRender) {
		return "rendering"
	}
	return "validation"
}

func (r *run) invariant(stage string, err error) *core.Result {
	r.logger.Error("pipeline invariant violated", "stage", stage, "error", err)
	return r.fail(core.KindInvariantViolation, fmt.Errorf("%s: %w", stage, err))
}

func clarification(res core.Resolution) string {
	switch res.Class {
	case core.Ambiguous:
		return (&core.AmbiguousIntentError{Subject: "request", Candidates: res.Candidates}).Error() + ": " + res.Reason
	case core.Impossible:
		return (&core.ImpossibleIntentError{Subject: "request", Reason: res.Reason}).Error()
	}
	return res.Reason
}
