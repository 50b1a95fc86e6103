package schema

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// MatchKind tags the outcome of a name lookup.
type MatchKind int

// Match kinds.
const (
	MatchNone MatchKind = iota
	MatchExact
	MatchFuzzy
	MatchAmbiguous
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	case MatchAmbiguous:
		return "ambiguous"
	}
	return "none"
}

// Thresholds bound fuzzy matching. Scores at or above Accept may be used
// automatically, scores in [Review, Accept) need confirmation and scores
// below Review are rejected.
type Thresholds struct {
	Accept float64 `koanf:"accept_threshold"`
	Review float64 `koanf:"review_threshold"`
}

// DefaultThresholds returns the default matching thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Accept: 0.8, Review: 0.5}
}

// ColumnMatch is the tagged result of resolving a column name.
// Ref and Score are set for exact and fuzzy matches, Candidates for
// ambiguous ones.
type ColumnMatch struct {
	Kind       MatchKind
	Ref        core.ColumnRef
	Score      float64
	Candidates []core.ColumnRef
}

// TableMatch is a candidate table for a column hint.
type TableMatch struct {
	Table  string
	Column string
	Score  float64
}

// scoreEpsilon treats scores this close as tied.
const scoreEpsilon = 1e-9

// ResolveColumn resolves a possibly table-qualified column name.
// When several tables own the name, the first table in prefer that owns
// it wins; otherwise the result is ambiguous. The review threshold is
// the floor below which no fuzzy candidate is reported.
//
// A qualifier that names no table is matched fuzzily against the table
// names and the result is at best MatchFuzzy, scored as the product of
// the table and column similarities.
func (g *Graph) ResolveColumn(name string, review float64, prefer ...string) ColumnMatch {
	table, column := splitQualified(name)
	if table != "" {
		t, ok := g.Table(table)
		if !ok {
			return g.fuzzyQualified(table, column, review)
		}
		if c, ok := t.Column(column); ok {
			return ColumnMatch{Kind: MatchExact, Ref: core.ColumnRef{Table: t.Name, Column: c.Name}, Score: 1}
		}
		return g.fuzzyColumn(column, review, []string{t.Name}, true)
	}

	if owners := g.ColumnOwners(column); len(owners) > 0 {
		owner, ok := pickPreferred(owners, prefer)
		if !ok {
			return ColumnMatch{Kind: MatchAmbiguous, Score: 1, Candidates: g.refsFor(column, owners)}
		}
		t, _ := g.Table(owner)
		c, _ := t.Column(column)
		return ColumnMatch{Kind: MatchExact, Ref: core.ColumnRef{Table: t.Name, Column: c.Name}, Score: 1}
	}

	return g.fuzzyColumn(column, review, prefer, false)
}

func (g *Graph) fuzzyColumn(column string, review float64, prefer []string, only bool) ColumnMatch {
	best := 0.0
	var tied []core.ColumnRef
	for _, tn := range g.names {
		if only && !containsFold(prefer, tn) {
			continue
		}
		for _, c := range g.tables[strings.ToLower(tn)].Columns {
			s := Similarity(column, c.Name)
			switch {
			case s > best+scoreEpsilon:
				best = s
				tied = []core.ColumnRef{{Table: tn, Column: c.Name}}
			case math.Abs(s-best) <= scoreEpsilon && s > 0:
				tied = append(tied, core.ColumnRef{Table: tn, Column: c.Name})
			}
		}
	}

	if len(tied) == 0 || best < review {
		return ColumnMatch{Kind: MatchNone, Score: best, Candidates: tied}
	}
	if len(tied) > 1 {
		var preferred []core.ColumnRef
		for _, p := range prefer {
			for _, r := range tied {
				if strings.EqualFold(r.Table, p) {
					preferred = append(preferred, r)
				}
			}
			if len(preferred) > 0 {
				break
			}
		}
		if len(preferred) != 1 {
			return ColumnMatch{Kind: MatchAmbiguous, Score: best, Candidates: tied}
		}
		tied = preferred
	}
	return ColumnMatch{Kind: MatchFuzzy, Ref: tied[0], Score: best}
}

func (g *Graph) fuzzyQualified(table, column string, review float64) ColumnMatch {
	best := 0.0
	var tied []core.ColumnRef
	for _, tn := range g.names {
		ts := Similarity(table, tn)
		if ts < review {
			continue
		}
		for _, c := range g.tables[strings.ToLower(tn)].Columns {
			s := ts * Similarity(column, c.Name)
			switch {
			case s > best+scoreEpsilon:
				best = s
				tied = []core.ColumnRef{{Table: tn, Column: c.Name}}
			case math.Abs(s-best) <= scoreEpsilon && s > 0:
				tied = append(tied, core.ColumnRef{Table: tn, Column: c.Name})
			}
		}
	}

	switch {
	case len(tied) == 0 || best < review:
		return ColumnMatch{Kind: MatchNone, Score: best, Candidates: tied}
	case len(tied) > 1:
		return ColumnMatch{Kind: MatchAmbiguous, Score: best, Candidates: tied}
	}
	return ColumnMatch{Kind: MatchFuzzy, Ref: tied[0], Score: best}
}

func (g *Graph) refsFor(column string, owners []string) []core.ColumnRef {
	refs := make([]core.ColumnRef, 0, len(owners))
	for _, o := range owners {
		t, _ := g.Table(o)
		c, _ := t.Column(column)
		refs = append(refs, core.ColumnRef{Table: t.Name, Column: c.Name})
	}
	return refs
}

// FindTable returns tables that could own a column matching hint,
// best score first. It never picks one; ties keep table-name order.
func (g *Graph) FindTable(hint string, review float64) []TableMatch {
	_, column := splitQualified(hint)
	var matches []TableMatch
	for _, tn := range g.names {
		best := TableMatch{Table: tn}
		for _, c := range g.tables[strings.ToLower(tn)].Columns {
			if s := Similarity(column, c.Name); s > best.Score {
				best.Score = s
				best.Column = c.Name
			}
		}
		if best.Score >= review {
			matches = append(matches, best)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score+scoreEpsilon
	})
	return matches
}

// Similarity scores two names in [0, 1] using normalised Levenshtein
// distance over case-folded text. Separators '_', '-' and ' ' are equivalent.
func Similarity(a, b string) float64 {
	na, nb := []rune(Normalize(a)), []rune(Normalize(b))
	if len(na) == 0 && len(nb) == 0 {
		return 1
	}
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	return 1 - float64(levenshtein(na, nb))/float64(maxLen)
}

// Normalize case-folds a name and unifies separators.
func Normalize(s string) string {
	s = cases.Fold().String(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

func levenshtein(s1, s2 []rune) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}

func splitQualified(name string) (table, column string) {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func pickPreferred(owners, prefer []string) (string, bool) {
	if len(owners) == 1 {
		return owners[0], true
	}
	for _, p := range prefer {
		for _, o := range owners {
			if strings.EqualFold(o, p) {
				return o, true
			}
		}
	}
	return "", false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
