package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/internal/llm"
	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/leapstack-labs/leapquery/internal/validate"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// scriptedValidator passes a candidate only when pass returns true.
type scriptedValidator struct {
	pass  func(sql string) bool
	seen  []string
	err   error
	after func()
}

func (v *scriptedValidator) Validate(_ context.Context, sql string, _ *core.QueryPlan) (core.ValidationResult, error) {
	v.seen = append(v.seen, sql)
	if v.after != nil {
		defer v.after()
	}
	if v.err != nil {
		return core.ValidationResult{}, v.err
	}
	if v.pass(sql) {
		return core.ValidationResult{Stage: core.StageExecution, Passed: true}, nil
	}
	return core.ValidationResult{
		Stage:       core.StageSemantic,
		Diagnostics: []core.Diagnostic{{Stage: core.StageSemantic, Kind: core.KindUnknownColumn, Identifier: "orders.regoin", Message: "column does not exist in the schema"}},
	}, nil
}

type scriptedRepairer struct {
	out  []string
	err  error
	reqs []RepairRequest
}

func (r *scriptedRepairer) Repair(_ context.Context, req RepairRequest) (string, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return "", r.err
	}
	if len(r.out) == 0 {
		return "SELECT still_wrong FROM orders", nil
	}
	next := r.out[0]
	r.out = r.out[1:]
	return next, nil
}

func TestLoop_AcceptsRenderedSQL(t *testing.T) {
	p := buildPlan(t, revenueByRegion())
	v := &scriptedValidator{pass: func(string) bool { return true }}
	rep := &scriptedRepairer{}

	out, err := NewLoop(v, rep, Options{}).Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StateAccepted, out.State)
	assert.Equal(t, core.StatusAccepted, out.Status())
	assert.Equal(t, v.seen[0], out.SQL)
	require.Len(t, out.Attempts, 1)
	assert.Equal(t, 1, out.Attempts[0].Number)
	assert.Empty(t, rep.reqs)
}

func TestLoop_RepairsUntilAccepted(t *testing.T) {
	p := buildPlan(t, revenueByRegion())
	v := &scriptedValidator{pass: func(sql string) bool { return strings.Contains(sql, "fixed") }}
	rep := &scriptedRepairer{out: []string{"SELECT nope FROM orders", "SELECT fixed FROM orders"}}

	out, err := NewLoop(v, rep, Options{}).Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StateAccepted, out.State)
	assert.Equal(t, "SELECT fixed FROM orders", out.SQL)
	require.Len(t, out.Attempts, 3)
	for i, a := range out.Attempts {
		assert.Equal(t, i+1, a.Number)
	}

	require.Len(t, rep.reqs, 2)
	first := rep.reqs[0]
	assert.Equal(t, out.Attempts[0].SQL, first.SQL)
	assert.Equal(t, core.KindUnknownColumn, first.Diagnostics[0].Kind)
	assert.Equal(t, p.Identifiers(), first.Identifiers)
}

func TestLoop_BoundedAttempts(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("max=%d", n), func(t *testing.T) {
			p := buildPlan(t, revenueByRegion())
			snapshot := *p
			v := &scriptedValidator{pass: func(string) bool { return false }}
			rep := &scriptedRepairer{}

			out, err := NewLoop(v, rep, Options{MaxAttempts: n}).Run(context.Background(), p)
			require.NoError(t, err)

			assert.Equal(t, StateFailed, out.State)
			assert.Equal(t, core.StatusFailed, out.Status())
			assert.Empty(t, out.SQL)
			assert.Len(t, out.Attempts, n)
			assert.Len(t, v.seen, n)
			assert.Len(t, rep.reqs, n-1)
			assert.Equal(t, core.KindAttemptsExhausted, out.Diagnostics[len(out.Diagnostics)-1].Kind)
			assert.Equal(t, snapshot, *p, "plan must not be mutated")
		})
	}
}

func TestLoop_DefaultMaxAttempts(t *testing.T) {
	assert.Equal(t, DefaultMaxAttempts, NewLoop(nil, nil, Options{}).MaxAttempts())
}

func TestLoop_RepairFailure(t *testing.T) {
	p := buildPlan(t, revenueByRegion())
	v := &scriptedValidator{pass: func(string) bool { return false }}
	rep := &scriptedRepairer{err: errors.New("model unavailable")}

	out, err := NewLoop(v, rep, Options{}).Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StateFailed, out.State)
	require.Len(t, out.Attempts, 1)
	kinds := make([]core.DiagnosticKind, 0, len(out.Diagnostics))
	for _, d := range out.Diagnostics {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []core.DiagnosticKind{core.KindUnknownColumn, core.KindRepairFailed}, kinds)
}

func TestLoop_NoRepairer(t *testing.T) {
	p := buildPlan(t, revenueByRegion())
	v := &scriptedValidator{pass: func(string) bool { return false }}

	out, err := NewLoop(v, nil, Options{}).Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.Len(t, out.Attempts, 1)
}

func TestLoop_Cancellation(t *testing.T) {
	p := buildPlan(t, revenueByRegion())
	ctx, cancel := context.WithCancel(context.Background())
	v := &scriptedValidator{pass: func(string) bool { return false }, after: cancel}

	out, err := NewLoop(v, &scriptedRepairer{}, Options{}).Run(ctx, p)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, v.seen, 1)
}

func TestLoop_ValidatorError(t *testing.T) {
	p := buildPlan(t, revenueByRegion())
	v := &scriptedValidator{err: context.DeadlineExceeded}

	_, err := NewLoop(v, &scriptedRepairer{}, Options{}).Run(context.Background(), p)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrValidate)
	assert.NotErrorIs(t, err, ErrRender)
}

func TestLoop_RunErrors(t *testing.T) {
	tests := []struct {
		name    string
		plan    *core.QueryPlan
		err     error
		want    error
		notWant error
	}{
		{
			name:    "unrenderable plan",
			plan:    &core.QueryPlan{BaseTable: "orders"},
			want:    ErrRender,
			notWant: ErrValidate,
		},
		{
			name:    "validator failure",
			plan:    buildPlan(t, revenueByRegion()),
			err:     errors.New("engine connection reset"),
			want:    ErrValidate,
			notWant: ErrRender,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &scriptedValidator{err: tt.err}

			out, err := NewLoop(v, &scriptedRepairer{}, Options{}).Run(context.Background(), tt.plan)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)
			assert.NotErrorIs(t, err, tt.notWant)
		})
	}
}

type functionCheckingEngine struct {
	explained []string
}

func (e *functionCheckingEngine) Explain(_ context.Context, sql string) error {
	e.explained = append(e.explained, sql)
	if strings.Contains(sql, "SUMX") {
		return &core.ExecutionError{
			EngineMessage: "Catalog Error: Scalar Function with name sumx does not exist!",
			Kind:          core.KindFunctionNotFound,
			Identifier:    "sumx",
		}
	}
	return nil
}

func (e *functionCheckingEngine) ExecuteLimited(ctx context.Context, sql string, _ int) (int, error) {
	return 0, e.Explain(ctx, sql)
}

func TestLoop_RepairsUnknownFunction(t *testing.T) {
	in := revenueByRegion()
	in.MetricFormula = "SUMX(amount)"
	p := buildPlan(t, in)

	fixed := "SELECT orders.region, SUM(orders.amount) AS revenue\nFROM orders\n" +
		"WHERE orders.order_date >= CAST('2024-01-01' AS DATE) AND orders.order_date < CAST('2024-04-01' AS DATE)\n" +
		"GROUP BY orders.region"
	model := testutil.NewScriptedLLM().On(llm.KindRepairSQL, "```sql\n"+fixed+";\n```")
	engine := &functionCheckingEngine{}
	cascade := validate.NewCascade(testutil.SalesGraph(t), engine, validate.Options{Logger: testutil.NewTestLogger(t)})

	out, err := NewLoop(cascade, NewLLMRepairer(model), Options{Logger: testutil.NewTestLogger(t)}).Run(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StateAccepted, out.State)
	assert.Equal(t, fixed, out.SQL)
	require.Len(t, out.Attempts, 2)
	assert.Equal(t, core.StageExecution, out.Attempts[0].Result.Stage)
	assert.Equal(t, core.KindFunctionNotFound, out.Attempts[0].Result.Diagnostics[0].Kind)
	assert.True(t, out.Attempts[1].Result.Passed)

	calls := model.CallsFor(llm.KindRepairSQL)
	require.Len(t, calls, 1)
	req, ok := calls[0].Payload.(RepairRequest)
	require.True(t, ok)
	assert.Contains(t, req.SQL, "SUMX(orders.amount)")
	assert.Equal(t, p.Identifiers(), req.Identifiers)
}

func TestLLMRepairer_EmptyResponse(t *testing.T) {
	model := testutil.NewScriptedLLM().On(llm.KindRepairSQL, "```sql\n```")
	_, err := NewLLMRepairer(model).Repair(context.Background(), RepairRequest{SQL: "SELECT 1"})
	assert.ErrorIs(t, err, ErrNoRepair)
}
