package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/internal/llm"
	"github.com/leapstack-labs/leapquery/internal/metrics"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// SalesDefinitions returns a small three-table warehouse:
// orders -> customers -> countries.
func SalesDefinitions() schema.Definitions {
	return schema.Definitions{
		Tables: []core.Table{
			{Name: "orders", Columns: []core.Column{
				{Name: "id", Type: "INTEGER", Tags: []string{core.TagIdentifier}},
				{Name: "customer_id", Type: "INTEGER"},
				{Name: "region", Type: "VARCHAR", Tags: []string{core.TagDimension}},
				{Name: "amount", Type: "DECIMAL(12,2)", Tags: []string{core.TagMeasure}},
				{Name: "discount", Type: "DECIMAL(12,2)", Tags: []string{core.TagMeasure}},
				{Name: "order_date", Type: "DATE", Tags: []string{core.TagTime}},
			}},
			{Name: "customers", Columns: []core.Column{
				{Name: "id", Type: "INTEGER", Tags: []string{core.TagIdentifier}},
				{Name: "name", Type: "VARCHAR"},
				{Name: "segment", Type: "VARCHAR", Tags: []string{core.TagDimension}},
				{Name: "country_id", Type: "INTEGER"},
			}},
			{Name: "countries", Columns: []core.Column{
				{Name: "id", Type: "INTEGER", Tags: []string{core.TagIdentifier}},
				{Name: "country_name", Type: "VARCHAR", Tags: []string{core.TagDimension}},
			}},
		},
		Joins: []core.JoinEdge{
			{FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id", Cardinality: core.CardinalityManyToOne},
			{FromTable: "customers", FromColumn: "country_id", ToTable: "countries", ToColumn: "id", Cardinality: core.CardinalityManyToOne},
		},
	}
}

// SalesGraph builds SalesDefinitions.
func SalesGraph(t testing.TB) *schema.Graph {
	t.Helper()
	g, err := schema.Build(SalesDefinitions())
	require.NoError(t, err)
	return g
}

// SalesMetrics returns the metric registry matching SalesGraph.
func SalesMetrics(t testing.TB) *metrics.Registry {
	t.Helper()
	r, err := metrics.NewRegistry(
		metrics.Metric{Name: "revenue", Table: "orders", Formula: "SUM(amount)", Synonyms: []string{"sales", "total revenue"}, TimeColumn: "order_date"},
		metrics.Metric{Name: "discount", Table: "orders", Formula: "SUM(discount)", Synonyms: []string{"total discount"}},
		metrics.Metric{Name: "order_count", Table: "orders", Formula: "COUNT(id)", Synonyms: []string{"orders"}},
	)
	require.NoError(t, err)
	return r
}

// Call is one recorded Propose invocation.
type Call struct {
	Kind    llm.PromptKind
	Payload any
}

// ScriptedLLM replays canned responses per prompt kind, in order.
// An exhausted script fails the call.
type ScriptedLLM struct {
	mu        sync.Mutex
	responses map[llm.PromptKind][]string
	errs      map[llm.PromptKind]error
	calls     []Call
}

// NewScriptedLLM creates an empty script.
func NewScriptedLLM() *ScriptedLLM {
	return &ScriptedLLM{
		responses: make(map[llm.PromptKind][]string),
		errs:      make(map[llm.PromptKind]error),
	}
}

// On queues responses for kind.
func (s *ScriptedLLM) On(kind llm.PromptKind, responses ...string) *ScriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[kind] = append(s.responses[kind], responses...)
	return s
}

// Fail makes every call for kind return err.
func (s *ScriptedLLM) Fail(kind llm.PromptKind, err error) *ScriptedLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[kind] = err
	return s
}

// Propose implements llm.Capability.
func (s *ScriptedLLM) Propose(ctx context.Context, kind llm.PromptKind, payload any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Kind: kind, Payload: payload})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.errs[kind]; err != nil {
		return "", err
	}
	queue := s.responses[kind]
	if len(queue) == 0 {
		return "", fmt.Errorf("no scripted response left for %s", kind)
	}
	s.responses[kind] = queue[1:]
	return queue[0], nil
}

// Calls returns the recorded calls.
func (s *ScriptedLLM) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsFor returns the recorded calls of one kind.
func (s *ScriptedLLM) CallsFor(kind llm.PromptKind) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
