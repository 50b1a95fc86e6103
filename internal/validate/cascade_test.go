package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

type fakeExecutor struct {
	err      error
	explains []string
	limited  []string
	rowCap   int
}

func (f *fakeExecutor) Explain(_ context.Context, sql string) error {
	f.explains = append(f.explains, sql)
	return f.err
}

func (f *fakeExecutor) ExecuteLimited(_ context.Context, sql string, rowCap int) (int, error) {
	f.limited = append(f.limited, sql)
	f.rowCap = rowCap
	return 0, f.err
}

func TestCascade_Passes(t *testing.T) {
	exec := &fakeExecutor{}
	c := NewCascade(testutil.SalesGraph(t), exec, Options{})

	res, err := c.Validate(context.Background(), revenueSQL, revenuePlan(t))
	require.NoError(t, err)
	assert.Equal(t, core.ValidationResult{Stage: core.StageExecution, Passed: true}, res)
	assert.Equal(t, []string{revenueSQL}, exec.explains)
	assert.Empty(t, exec.limited)
}

func TestCascade_LimitedMode(t *testing.T) {
	exec := &fakeExecutor{}
	c := NewCascade(testutil.SalesGraph(t), exec, Options{Mode: ModeLimited, RowCap: 5})

	res, err := c.Validate(context.Background(), revenueSQL, revenuePlan(t))
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, []string{revenueSQL}, exec.limited)
	assert.Equal(t, 5, exec.rowCap)
}

func TestCascade_StopsAtFirstFailingGate(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		execErr   error
		wantStage core.Stage
		wantKind  core.DiagnosticKind
		wantExec  bool
	}{
		{
			name:      "syntax error never reaches the engine",
			sql:       "SELECT orders.region FROM",
			wantStage: core.StageSyntax,
			wantKind:  core.KindSyntaxError,
		},
		{
			name:      "unsupported construct",
			sql:       "WITH x AS (SELECT 1) SELECT * FROM x",
			wantStage: core.StageSyntax,
			wantKind:  core.KindUnsupported,
		},
		{
			name:      "semantic error never reaches the engine",
			sql:       "SELECT orders.regoin, SUM(orders.amount) AS revenue FROM orders GROUP BY orders.regoin",
			wantStage: core.StageSemantic,
			wantKind:  core.KindUnknownColumn,
		},
		{
			name:      "engine rejection is classified",
			sql:       revenueSQL,
			execErr:   &core.ExecutionError{EngineMessage: "Catalog Error: Scalar Function with name sumx does not exist!", Kind: core.KindFunctionNotFound, Identifier: "sumx"},
			wantStage: core.StageExecution,
			wantKind:  core.KindFunctionNotFound,
			wantExec:  true,
		},
		{
			name:      "unclassified engine error",
			sql:       revenueSQL,
			execErr:   errors.New("boom"),
			wantStage: core.StageExecution,
			wantKind:  core.KindExecutionError,
			wantExec:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{err: tt.execErr}
			c := NewCascade(testutil.SalesGraph(t), exec, Options{})

			res, err := c.Validate(context.Background(), tt.sql, revenuePlan(t))
			require.NoError(t, err)
			assert.False(t, res.Passed)
			assert.Equal(t, tt.wantStage, res.Stage)
			require.NotEmpty(t, res.Diagnostics)
			assert.Equal(t, tt.wantKind, res.Diagnostics[0].Kind)
			assert.Equal(t, tt.wantStage, res.Diagnostics[0].Stage)
			assert.Equal(t, tt.wantExec, len(exec.explains) > 0)
		})
	}
}

func TestCascade_NoEngine(t *testing.T) {
	c := NewCascade(testutil.SalesGraph(t), nil, Options{})

	res, err := c.Validate(context.Background(), revenueSQL, revenuePlan(t))
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, core.StageExecution, res.Stage)
	assert.Equal(t, "no query engine configured", res.Diagnostics[0].Message)
}

func TestCascade_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCascade(testutil.SalesGraph(t), &fakeExecutor{}, Options{})

	_, err := c.Validate(ctx, revenueSQL, revenuePlan(t))
	assert.ErrorIs(t, err, context.Canceled)
}
