package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapquery/internal/cli/output"
	"github.com/leapstack-labs/leapquery/internal/metrics"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// renderResult writes a translation result in the renderer's mode.
func renderResult(r *output.Renderer, res *core.Result, showPlan bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}
	markdown := r.EffectiveMode() == output.ModeMarkdown

	status := statusLabel(r, res.Status)
	if markdown {
		r.Println(output.FormatHeader(2, "Result: "+string(res.Status)))
	} else {
		r.Printf("%s %s\n", status, r.Muted(fmt.Sprintf("(%s, %d attempts, %dms)", res.RequestID, len(res.Attempts), res.LatencyMs)))
	}

	if res.Resolution != nil && res.Status == core.StatusClarify {
		r.Println()
		r.Println(res.Resolution.Reason)
		if len(res.Resolution.Candidates) > 0 {
			r.Println("Did you mean: " + strings.Join(res.Resolution.Candidates, ", ") + "?")
		}
	}

	if res.SQL != "" {
		r.Println()
		r.CodeBlock("sql", res.SQL)
	}

	if res.Intent != nil && len(res.Intent.Warnings) > 0 {
		r.Println()
		for _, w := range res.Intent.Warnings {
			r.Println(r.Warning("warning: ") + w)
		}
	}

	if showPlan && res.Plan != nil {
		r.Println()
		section(r, markdown, "Plan")
		renderPlan(r, res.Plan)
	}

	if len(res.Diagnostics) > 0 && res.Status != core.StatusAccepted {
		r.Println()
		section(r, markdown, "Diagnostics")
		renderDiagnostics(r, res.Diagnostics)
	}
	return nil
}

func section(r *output.Renderer, markdown bool, title string) {
	if markdown {
		r.Println(output.FormatHeader(3, title))
		return
	}
	r.Header(title)
}

func statusLabel(r *output.Renderer, s core.Status) string {
	switch s {
	case core.StatusAccepted:
		return r.Success("accepted")
	case core.StatusClarify:
		return r.Warning("needs clarification")
	default:
		return r.Fail("failed")
	}
}

func renderDiagnostics(r *output.Renderer, diags []core.Diagnostic) {
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		pos := ""
		if d.Line > 0 {
			pos = fmt.Sprintf("%d:%d", d.Line, d.Column)
		}
		rows = append(rows, []string{d.Stage.String(), string(d.Kind), d.Identifier, pos, d.Message})
	}
	r.Table([]string{"Stage", "Kind", "Identifier", "Position", "Message"}, rows)
}

func renderPlan(r *output.Renderer, p *core.QueryPlan) {
	rows := [][]string{
		{"tables", strings.Join(p.Tables(), ", ")},
	}
	cols := p.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.String()
	}
	rows = append(rows, []string{"columns", strings.Join(names, ", ")})
	if p.Limit > 0 {
		rows = append(rows, []string{"limit", strconv.Itoa(p.Limit)})
	}
	r.Table([]string{"Field", "Value"}, rows)
}

func renderRecords(r *output.Renderer, recs []core.MemoryRecord) error {
	if r.EffectiveMode() == output.ModeJSON {
		if recs == nil {
			recs = []core.MemoryRecord{}
		}
		return r.JSON(recs)
	}
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		outcome := "failed"
		if rec.Succeeded {
			outcome = "succeeded"
		}
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			outcome,
			rec.OriginalQuery,
			oneLine(rec.FinalSQL, 60),
		})
	}
	r.Table([]string{"Time", "Outcome", "Request", "SQL"}, rows)
	return nil
}

func renderTables(r *output.Renderer, g *schema.Graph) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			Tables []core.Table    `json:"tables"`
			Joins  []core.JoinEdge `json:"joins"`
		}{g.Tables(), g.Edges()})
	}
	rows := make([][]string, 0, len(g.TableNames()))
	for _, t := range g.Tables() {
		rows = append(rows, []string{t.Name, strconv.Itoa(len(t.Columns)), strconv.Itoa(len(g.Neighbors(t.Name))), t.Description})
	}
	r.Table([]string{"Table", "Columns", "Joins", "Description"}, rows)
	return nil
}

func renderTable(r *output.Renderer, g *schema.Graph, t core.Table) error {
	joins := g.Neighbors(t.Name)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			core.Table
			Joins []core.JoinEdge `json:"joins"`
		}{t, joins})
	}

	rows := make([][]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		rows = append(rows, []string{c.Name, c.Type, strings.Join(c.Tags, ", ")})
	}
	section(r, r.EffectiveMode() == output.ModeMarkdown, "Table: "+t.Name)
	r.Table([]string{"Column", "Type", "Tags"}, rows)

	if len(joins) > 0 {
		r.Println()
		jrows := make([][]string, 0, len(joins))
		for _, e := range joins {
			jrows = append(jrows, []string{e.FromTable + "." + e.FromColumn, e.ToTable + "." + e.ToColumn, string(e.Cardinality)})
		}
		r.Table([]string{"From", "To", "Cardinality"}, jrows)
	}
	return nil
}

func renderMatches(r *output.Renderer, matches []schema.TableMatch) error {
	if r.EffectiveMode() == output.ModeJSON {
		if matches == nil {
			matches = []schema.TableMatch{}
		}
		return r.JSON(matches)
	}
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{m.Table, m.Column, strconv.FormatFloat(m.Score, 'f', 2, 64)})
	}
	r.Table([]string{"Table", "Column", "Score"}, rows)
	return nil
}

func renderMetrics(r *output.Renderer, reg *metrics.Registry) error {
	all := reg.All()
	if r.EffectiveMode() == output.ModeJSON {
		if all == nil {
			all = []metrics.Metric{}
		}
		return r.JSON(all)
	}
	rows := make([][]string, 0, len(all))
	for _, m := range all {
		rows = append(rows, []string{m.Name, m.Table, m.Formula, strings.Join(m.Synonyms, ", ")})
	}
	r.Table([]string{"Metric", "Table", "Formula", "Synonyms"}, rows)
	return nil
}

func oneLine(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
