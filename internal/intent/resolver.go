// Package intent turns an utterance into a structured, classified intent.
//
// Extraction is delegated to the language model; everything after that
// (name resolution, metric matching, time ranges, classification) is
// deterministic and lives in Classify.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapquery/internal/llm"
	"github.com/leapstack-labs/leapquery/internal/metrics"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Request is one resolution request.
type Request struct {
	Utterance string
	Formula   string              // optional user-supplied metric formula
	Hints     []core.MemoryRecord // similar past successes, used as examples only
}

// ExtractPayload is the structured context sent with KindExtractIntent.
type ExtractPayload struct {
	Utterance string    `json:"utterance"`
	Formula   string    `json:"formula,omitempty"`
	Schema    string    `json:"schema"`
	Metrics   string    `json:"metrics,omitempty"`
	Today     string    `json:"today"`
	Examples  []Example `json:"examples,omitempty"`
}

// Example is a past utterance and the intent that worked for it.
type Example struct {
	Utterance string `json:"utterance"`
	Metric    string `json:"metric"`
	Formula   string `json:"formula"`
	SQL       string `json:"sql"`
}

// Resolver extracts and classifies intents.
type Resolver struct {
	llm        llm.Capability
	metrics    *metrics.Registry
	thresholds schema.Thresholds
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithThresholds overrides the fuzzy matching thresholds.
func WithThresholds(t schema.Thresholds) Option {
	return func(r *Resolver) { r.thresholds = t }
}

// WithClock injects the clock used for relative time ranges.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver. A nil registry means no metrics are
// registered and only user formulas can resolve.
func NewResolver(capability llm.Capability, registry *metrics.Registry, opts ...Option) *Resolver {
	if registry == nil {
		registry = metrics.Empty()
	}
	r := &Resolver{
		llm:        capability,
		metrics:    registry,
		thresholds: schema.DefaultThresholds(),
		now:        time.Now,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve extracts an intent for req against g and classifies it.
// Errors are returned only for failed extraction; a request that cannot
// be resolved yields a halting Resolution instead.
func (r *Resolver) Resolve(ctx context.Context, g *schema.Graph, req Request) (core.Intent, core.Resolution, error) {
	now := r.now()
	payload := ExtractPayload{
		Utterance: req.Utterance,
		Formula:   req.Formula,
		Schema:    g.Summary(),
		Metrics:   r.metrics.Catalogue(),
		Today:     now.Format(time.DateOnly),
	}
	for _, h := range req.Hints {
		if !h.Succeeded || h.FinalIntent == nil {
			continue
		}
		payload.Examples = append(payload.Examples, Example{
			Utterance: h.OriginalQuery,
			Metric:    h.FinalIntent.MetricName,
			Formula:   h.FinalIntent.MetricFormula,
			SQL:       h.FinalSQL,
		})
	}

	text, err := r.llm.Propose(ctx, llm.KindExtractIntent, payload)
	if err != nil {
		return core.Intent{}, core.Resolution{}, fmt.Errorf("failed to extract intent: %w", err)
	}
	x, err := ParseExtraction(text)
	if err != nil {
		return core.Intent{}, core.Resolution{}, err
	}
	r.logger.Debug("intent extracted",
		slog.String("metric", x.Metric),
		slog.Any("grain", x.Grain),
		slog.String("time_range", x.TimeRange))

	in, res := Classify(x, Input{
		Utterance:   req.Utterance,
		UserFormula: req.Formula,
		Graph:       g,
		Metrics:     r.metrics,
		Thresholds:  r.thresholds,
		Now:         now,
	})
	r.logger.Debug("intent classified",
		slog.String("class", res.Class.String()),
		slog.Float64("confidence", res.Confidence))
	return in, res, nil
}
