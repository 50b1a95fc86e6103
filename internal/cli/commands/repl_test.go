package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitest "github.com/leapstack-labs/leapquery/internal/cli/testutil"
	"github.com/leapstack-labs/leapquery/internal/memory"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

func newTestSession(t *testing.T) (*replSession, *clitest.TestRenderer) {
	t.Helper()
	store := memory.NewMemStore()
	require.NoError(t, store.Append(context.Background(), core.MemoryRecord{
		ID:            "r1",
		OriginalQuery: "revenue by region",
		FinalSQL:      "SELECT orders.region, SUM(orders.amount) AS revenue FROM orders GROUP BY orders.region",
		Succeeded:     true,
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}))

	app := &App{
		Schemas: schema.NewStore(testutil.SalesGraph(t)),
		Metrics: testutil.SalesMetrics(t),
		Memory:  store,
	}
	tr := clitest.NewTestRendererMarkdown()
	return &replSession{app: app, r: tr.Renderer}, tr
}

func TestHandleDotCommand(t *testing.T) {
	tests := []struct {
		line    string
		quit    bool
		wantOut []string
		wantErr string
	}{
		{line: ".quit", quit: true},
		{line: ".EXIT", quit: true},
		{line: ".help", wantOut: []string{".schema <table>", ".history [n]"}},
		{line: ".tables", wantOut: []string{"| countries | 2 | 1 |", "| orders | 6 | 1 |"}},
		{line: ".schema orders", wantOut: []string{"### Table: orders", "| region | VARCHAR | dimension |"}},
		{line: ".schema", wantErr: "Usage: .schema <table>"},
		{line: ".schema invoices", wantErr: `table "invoices" not found`},
		{line: ".metrics", wantOut: []string{"| revenue | orders | SUM(amount) | sales, total revenue |"}},
		{line: ".history", wantOut: []string{"| succeeded | revenue by region |"}},
		{line: ".history 1", wantOut: []string{"revenue by region"}},
		{line: ".history many", wantErr: `invalid limit "many"`},
		{line: ".bogus", wantErr: "Unknown command: .bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			s, tr := newTestSession(t)

			quit := s.handleDotCommand(context.Background(), tt.line)
			assert.Equal(t, tt.quit, quit)
			for _, want := range tt.wantOut {
				assert.Contains(t, tr.Output(), want)
			}
			if tt.wantErr != "" {
				assert.Contains(t, tr.ErrorOutput(), tt.wantErr)
			} else {
				assert.Empty(t, tr.ErrorOutput())
			}
			clitest.AssertNoANSI(t, tr.Output()+tr.ErrorOutput())
		})
	}
}

func TestHandleDotCommand_SessionState(t *testing.T) {
	s, tr := newTestSession(t)
	ctx := context.Background()

	s.handleDotCommand(ctx, ".formula AVG(orders.amount)")
	assert.Equal(t, "AVG(orders.amount)", s.formula)
	assert.Contains(t, tr.Output(), "Next request uses formula AVG(orders.amount)")

	s.handleDotCommand(ctx, ".formula")
	assert.Empty(t, s.formula)
	assert.Contains(t, tr.Output(), "Formula cleared")

	s.handleDotCommand(ctx, ".plan")
	assert.True(t, s.showPlan)
	s.handleDotCommand(ctx, ".plan")
	assert.False(t, s.showPlan)
	assert.Contains(t, tr.Output(), "Plan display off")
}

func TestReplCompleter(t *testing.T) {
	c := newReplCompleter(testutil.SalesGraph(t))

	var names []string
	for _, child := range c.GetChildren() {
		names = append(names, string(child.GetName()))
	}
	assert.Contains(t, names, ".schema ")

	for _, child := range c.GetChildren() {
		if string(child.GetName()) == ".schema " {
			assert.Len(t, child.GetChildren(), 3)
		}
	}

	assert.NotNil(t, newReplCompleter(nil))
}
