package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"text", ModeText},
		{"JSON", ModeJSON},
		{"markdown", ModeMarkdown},
		{"md", ModeMarkdown},
		{"xml", ModeAuto},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Mode(tt.in), tt.in)
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto tty", ModeAuto, true, ModeText},
		{"auto pipe", ModeAuto, false, ModeMarkdown},
		{"empty pipe", "", false, ModeMarkdown},
		{"explicit json on tty", ModeJSON, true, ModeJSON},
		{"explicit text on pipe", ModeText, false, ModeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
			assert.Equal(t, tt.isTTY, r.IsTTY())
		})
	}
}

func TestRenderer_NonTTYHasNoEscapes(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)

	r.Header("Result")
	r.Println(r.Success("accepted"), r.Fail("failed"), r.Warning("clarify"), r.Muted("note"))
	r.Error("boom")

	assert.Equal(t, "Result\naccepted failed clarify note\n", out.String())
	assert.Equal(t, "boom\n", errOut.String())
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestRenderer_Table(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		r.Table([]string{"Table", "Columns"}, [][]string{{"orders", "4"}})
		assert.Contains(t, out.String(), "orders")
		assert.Contains(t, out.String(), "┌")
	})

	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table([]string{"Table", "Columns"}, [][]string{{"orders", "4"}})
		assert.Contains(t, out.String(), "| Table | Columns |")
		assert.Contains(t, out.String(), "| orders | 4 |")
	})

	t.Run("empty", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		r.Table([]string{"Table"}, nil)
		assert.Equal(t, "(0 rows)\n", out.String())
	})
}

func TestRenderer_CodeBlock(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)
	r.CodeBlock("sql", "SELECT 1\n")
	assert.Equal(t, "```sql\nSELECT 1\n```\n", out.String())

	r, out, _ = newTestRenderer(ModeText, false)
	r.CodeBlock("sql", "SELECT 1\nFROM t")
	assert.Equal(t, "  SELECT 1\n  FROM t\n", out.String())
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"attempts": 2}))
	assert.JSONEq(t, `{"attempts": 2}`, out.String())
}

func TestFormatHeader(t *testing.T) {
	assert.Equal(t, "## Diagnostics", FormatHeader(2, "Diagnostics"))
}
