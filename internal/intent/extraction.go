package intent

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapquery/internal/llm"
)

// Extraction is the language model's reading of an utterance.
// Every field is untrusted until Classify has checked it.
type Extraction struct {
	Metric     string       `json:"metric"`
	Formula    string       `json:"formula"`
	Grain      []string     `json:"grain"`
	Filters    []FilterSpec `json:"filters"`
	TimeRange  string       `json:"time_range"`
	TimeColumn string       `json:"time_column"`
	Order      *OrderSpec   `json:"order"`
	Limit      int          `json:"limit"`
}

// FilterSpec is an extracted predicate. Value may be a scalar or a list.
type FilterSpec struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  any    `json:"value"`
}

// OrderSpec is an extracted sort request. By names the metric or a column.
type OrderSpec struct {
	By   string `json:"by"`
	Desc bool   `json:"desc"`
}

// ParseExtraction decodes the JSON object embedded in a model response.
func ParseExtraction(text string) (Extraction, error) {
	var x Extraction
	raw, err := llm.ExtractJSON(text)
	if err != nil {
		return x, fmt.Errorf("failed to read intent extraction: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &x); err != nil {
		return x, fmt.Errorf("failed to decode intent extraction: %w", err)
	}
	return x, nil
}

// values flattens a scalar or list value into literal strings.
func values(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case bool:
		return []string{strconv.FormatBool(t)}
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, values(e)...)
		}
		return out
	}
	return []string{fmt.Sprint(v)}
}
