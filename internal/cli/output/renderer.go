// Package output renders command results as styled text, markdown or JSON.
//
// In auto mode a terminal gets styled text and anything else gets
// markdown, so piped output stays readable by both people and tools.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// OutputMode selects how results are rendered.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Mode parses a mode name. Unknown or empty names select ModeAuto.
func Mode(s string) OutputMode {
	switch m := OutputMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeText, ModeMarkdown, ModeJSON:
		return m
	case "md":
		return ModeMarkdown
	default:
		return ModeAuto
	}
}

// Renderer writes command output.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	isTTY  bool
	mode   OutputMode
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode OutputMode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode OutputMode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	var lr *lipgloss.Renderer
	if isTTY {
		lr = lipgloss.NewRenderer(out)
	} else {
		lr = lipgloss.NewRenderer(out, termenv.WithProfile(termenv.Ascii))
		lr.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		isTTY:  isTTY,
		mode:   mode,
		styles: NewStyles(lr),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves ModeAuto against the terminal state.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the renderer's styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to standard output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to standard output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Header writes a bold section header.
func (r *Renderer) Header(s string) {
	r.Println(r.styles.Header.Render(s))
}

// Success returns s styled as a success message.
func (r *Renderer) Success(s string) string { return r.styles.Success.Render(s) }

// Warning returns s styled as a warning.
func (r *Renderer) Warning(s string) string { return r.styles.Warning.Render(s) }

// Fail returns s styled as a failure.
func (r *Renderer) Fail(s string) string { return r.styles.Error.Render(s) }

// Muted returns s styled as secondary text.
func (r *Renderer) Muted(s string) string { return r.styles.Muted.Render(s) }

// Error writes an error line to the error writer.
func (r *Renderer) Error(s string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(s))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table writes rows under header as a box table in text mode and as a
// markdown table otherwise.
func (r *Renderer) Table(header []string, rows [][]string) {
	if len(rows) == 0 {
		r.Println("(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeText {
		t.Render()
		return
	}
	t.RenderMarkdown()
}

// CodeBlock writes code fenced in markdown mode and indented in text mode.
func (r *Renderer) CodeBlock(lang, code string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Printf("```%s\n%s\n```\n", lang, strings.TrimRight(code, "\n"))
		return
	}
	for _, line := range strings.Split(strings.TrimRight(code, "\n"), "\n") {
		r.Println("  " + r.styles.Code.Render(line))
	}
}

// FormatHeader returns a markdown heading of the given level.
func FormatHeader(level int, title string) string {
	return strings.Repeat("#", level) + " " + title
}
