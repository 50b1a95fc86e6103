package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

func TestSyntax(t *testing.T) {
	stmt, f := Syntax(revenueSQL)
	require.Nil(t, f)
	require.NotNil(t, stmt)
	assert.Len(t, stmt.Columns, 2)
}

func TestSyntax_Failure(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantKind core.DiagnosticKind
		wantLine int
		wantCol  int
	}{
		{name: "set operation", sql: "SELECT 1 FROM t UNION SELECT 2 FROM t", wantKind: core.KindUnsupported, wantLine: 1, wantCol: 17},
		{name: "dangling where", sql: "SELECT a\nFROM t\nWHERE", wantKind: core.KindSyntaxError, wantLine: 3, wantCol: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, f := Syntax(tt.sql)
			assert.Nil(t, stmt)
			require.NotNil(t, f)
			d := f.Diagnostic()
			assert.Equal(t, core.StageSyntax, d.Stage)
			assert.Equal(t, tt.wantKind, d.Kind)
			assert.Equal(t, tt.wantLine, d.Line)
			assert.Equal(t, tt.wantCol, d.Column)
		})
	}
}
