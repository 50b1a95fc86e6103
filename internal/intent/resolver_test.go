package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/internal/llm"
	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

func newTestResolver(t *testing.T, model llm.Capability) *Resolver {
	t.Helper()
	return NewResolver(model, testutil.SalesMetrics(t),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(testutil.NewTestLogger(t)))
}

func TestResolver_Resolve(t *testing.T) {
	model := testutil.NewScriptedLLM().On(llm.KindExtractIntent,
		"Here you go:\n```json\n{\"metric\": \"revenue\", \"grain\": [\"region\"], \"time_range\": \"last_quarter\"}\n```")
	r := newTestResolver(t, model)

	hints := []core.MemoryRecord{
		{OriginalQuery: "revenue by segment", Succeeded: true, FinalSQL: "SELECT 1",
			FinalIntent: &core.Intent{MetricName: "revenue", MetricFormula: "SUM(amount)"}},
		{OriginalQuery: "broken", Succeeded: false, FinalIntent: &core.Intent{MetricName: "x"}},
	}
	got, res, err := r.Resolve(context.Background(), testutil.SalesGraph(t), Request{
		Utterance: "total revenue by region last quarter",
		Hints:     hints,
	})
	require.NoError(t, err)

	assert.Equal(t, core.ExactMatch, res.Class)
	assert.Equal(t, "SUM(amount)", got.MetricFormula)
	require.NotNil(t, got.TimeRange)

	calls := model.CallsFor(llm.KindExtractIntent)
	require.Len(t, calls, 1)
	payload, ok := calls[0].Payload.(ExtractPayload)
	require.True(t, ok)
	assert.Equal(t, "2024-05-15", payload.Today)
	assert.Contains(t, payload.Schema, "orders")
	assert.Contains(t, payload.Metrics, "revenue = SUM(amount) on orders")
	assert.Equal(t, []Example{{Utterance: "revenue by segment", Metric: "revenue", Formula: "SUM(amount)", SQL: "SELECT 1"}}, payload.Examples)
}

func TestResolver_ExtractionErrors(t *testing.T) {
	boom := errors.New("boom")
	t.Run("capability error", func(t *testing.T) {
		r := newTestResolver(t, testutil.NewScriptedLLM().Fail(llm.KindExtractIntent, boom))
		_, _, err := r.Resolve(context.Background(), testutil.SalesGraph(t), Request{Utterance: "x"})
		assert.ErrorIs(t, err, boom)
	})
	t.Run("not json", func(t *testing.T) {
		r := newTestResolver(t, testutil.NewScriptedLLM().On(llm.KindExtractIntent, "I cannot help"))
		_, _, err := r.Resolve(context.Background(), testutil.SalesGraph(t), Request{Utterance: "x"})
		assert.ErrorContains(t, err, "failed to read intent extraction")
	})
}

func TestParseExtraction(t *testing.T) {
	x, err := ParseExtraction(`{"metric":"revenue","filters":[{"column":"region","op":"=","value":3}],"order":{"by":"revenue","desc":true},"limit":10}`)
	require.NoError(t, err)
	assert.Equal(t, "revenue", x.Metric)
	assert.Equal(t, []string{"3"}, values(x.Filters[0].Value))
	assert.Equal(t, &OrderSpec{By: "revenue", Desc: true}, x.Order)
	assert.Equal(t, 10, x.Limit)

	_, err = ParseExtraction(`{"metric": }`)
	assert.ErrorContains(t, err, "failed to decode intent extraction")
}
