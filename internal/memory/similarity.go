package memory

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Tokens splits s into case-folded word counts.
func Tokens(s string) map[string]int {
	words := strings.FieldsFunc(cases.Fold().String(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]int, len(words))
	for _, w := range words {
		out[w]++
	}
	return out
}

// Cosine returns the cosine similarity of two token vectors.
func Cosine(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for w, x := range a {
		na += float64(x * x)
		if y, ok := b[w]; ok {
			dot += float64(x * y)
		}
	}
	for _, y := range b {
		nb += float64(y * y)
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type scored struct {
	rec   core.MemoryRecord
	score float64
}

// rank orders the succeeded records by similarity to utterance, then by
// recency and id. Records sharing no word with utterance are dropped.
func rank(records []core.MemoryRecord, utterance string, limit int) []core.MemoryRecord {
	query := Tokens(utterance)
	var hits []scored
	for _, r := range records {
		if !r.Succeeded {
			continue
		}
		if s := Cosine(query, Tokens(r.OriginalQuery)); s > 0 {
			hits = append(hits, scored{rec: r, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if !hits[i].rec.CreatedAt.Equal(hits[j].rec.CreatedAt) {
			return hits[i].rec.CreatedAt.After(hits[j].rec.CreatedAt)
		}
		return hits[i].rec.ID < hits[j].rec.ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]core.MemoryRecord, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out
}
