// Package metrics holds the registry of named business metrics that the
// intent resolver matches utterances against.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/sqlast"
)

// Metric is a registered, named aggregate over one base table.
type Metric struct {
	Name        string   `yaml:"name" json:"name"`
	Table       string   `yaml:"table" json:"table"`
	Formula     string   `yaml:"formula" json:"formula"`
	Synonyms    []string `yaml:"synonyms" json:"synonyms,omitempty"`
	TimeColumn  string   `yaml:"time_column" json:"time_column,omitempty"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Source      string   `yaml:"-" json:"-"`
}

// Scored is a metric with a fuzzy similarity score.
type Scored struct {
	Metric Metric
	Score  float64
	Term   string // name or synonym that produced the score
}

// Registry is an immutable set of metrics.
type Registry struct {
	metrics []Metric
	byName  map[string]int
}

// NewRegistry validates and indexes metrics.
func NewRegistry(metrics ...Metric) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(metrics))}
	sorted := append([]Metric(nil), metrics...)
	sort.Slice(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	for i, m := range sorted {
		if m.Name == "" {
			return nil, &LoadError{File: m.Source, Message: "metric without a name"}
		}
		if m.Table == "" || m.Formula == "" {
			return nil, &LoadError{File: m.Source, Message: fmt.Sprintf("metric %q needs both table and formula", m.Name)}
		}
		if _, err := sqlast.ParseExpr(m.Formula); err != nil {
			return nil, &LoadError{File: m.Source, Message: fmt.Sprintf("metric %q has an invalid formula: %v", m.Name, err)}
		}
		key := schema.Normalize(m.Name)
		if j, dup := r.byName[key]; dup {
			return nil, &LoadError{File: m.Source, Message: fmt.Sprintf("metric %q already defined in %s", m.Name, sorted[j].Source)}
		}
		r.byName[key] = i
	}
	r.metrics = sorted
	return r, nil
}

// Empty returns a registry with no metrics.
func Empty() *Registry {
	return &Registry{byName: map[string]int{}}
}

// All returns every metric, sorted by name.
func (r *Registry) All() []Metric {
	return append([]Metric(nil), r.metrics...)
}

// Len returns the number of metrics.
func (r *Registry) Len() int {
	return len(r.metrics)
}

// Get returns the metric with the given name.
func (r *Registry) Get(name string) (Metric, bool) {
	i, ok := r.byName[schema.Normalize(name)]
	if !ok {
		return Metric{}, false
	}
	return r.metrics[i], true
}

// Lookup returns every metric whose name or synonym equals term,
// ignoring case and separators.
func (r *Registry) Lookup(term string) []Metric {
	key := schema.Normalize(term)
	var out []Metric
	for _, m := range r.metrics {
		if schema.Normalize(m.Name) == key {
			out = append(out, m)
			continue
		}
		for _, s := range m.Synonyms {
			if schema.Normalize(s) == key {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Closest scores every metric against term, best first.
// Each metric's score is its best over name and synonyms.
func (r *Registry) Closest(term string) []Scored {
	out := make([]Scored, 0, len(r.metrics))
	for _, m := range r.metrics {
		best := Scored{Metric: m, Score: schema.Similarity(term, m.Name), Term: m.Name}
		for _, s := range m.Synonyms {
			if sc := schema.Similarity(term, s); sc > best.Score {
				best.Score = sc
				best.Term = s
			}
		}
		out = append(out, best)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Validate checks every metric against the schema graph.
func (r *Registry) Validate(g *schema.Graph) error {
	for _, m := range r.metrics {
		t, ok := g.Table(m.Table)
		if !ok {
			return &LoadError{File: m.Source, Message: fmt.Sprintf("metric %q references unknown table %q", m.Name, m.Table)}
		}
		expr, _ := sqlast.ParseExpr(m.Formula)
		for _, ref := range sqlast.ColumnRefs(expr) {
			if ref.Table != "" && !strings.EqualFold(ref.Table, t.Name) {
				if !g.HasColumn(ref.Table, ref.Column) {
					return &LoadError{File: m.Source, Message: fmt.Sprintf("metric %q references unknown column %s.%s", m.Name, ref.Table, ref.Column)}
				}
				continue
			}
			if _, ok := t.Column(ref.Column); !ok {
				return &LoadError{File: m.Source, Message: fmt.Sprintf("metric %q references unknown column %s.%s", m.Name, t.Name, ref.Column)}
			}
		}
		if m.TimeColumn != "" {
			if _, ok := t.Column(m.TimeColumn); !ok {
				return &LoadError{File: m.Source, Message: fmt.Sprintf("metric %q has unknown time column %q", m.Name, m.TimeColumn)}
			}
		}
	}
	return nil
}

// Catalogue renders one line per metric for prompt context.
func (r *Registry) Catalogue() string {
	var b strings.Builder
	for _, m := range r.metrics {
		fmt.Fprintf(&b, "%s = %s on %s", m.Name, m.Formula, m.Table)
		if len(m.Synonyms) > 0 {
			fmt.Fprintf(&b, " (also: %s)", strings.Join(m.Synonyms, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// LoadError represents an error loading a metric definition.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	if e.File == "" {
		return "metrics: " + e.Message
	}
	return fmt.Sprintf("metrics/%s: %s", e.File, e.Message)
}
