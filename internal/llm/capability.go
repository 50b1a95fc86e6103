// Package llm isolates every language-model call behind a narrow
// capability interface. Outputs are untrusted text; callers parse and
// re-validate them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PromptKind selects the task a proposal is for.
type PromptKind string

// Prompt kinds.
const (
	KindExtractIntent PromptKind = "extract_intent"
	KindRepairSQL     PromptKind = "repair_sql"
)

// Capability proposes text for a structured context.
type Capability interface {
	Propose(ctx context.Context, kind PromptKind, payload any) (string, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, kind PromptKind, payload any) (string, error)

// Propose implements Capability.
func (f CapabilityFunc) Propose(ctx context.Context, kind PromptKind, payload any) (string, error) {
	return f(ctx, kind, payload)
}

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("llm returned no text content")

// ExtractJSON returns the outermost JSON object in text, tolerating
// surrounding prose and code fences.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return text[start : end+1], nil
}

// ExtractSQL strips code fences and trailing semicolons from a SQL proposal.
func ExtractSQL(text string) string {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "```"); i != -1 {
		rest := s[i+3:]
		if nl := strings.Index(rest, "\n"); nl != -1 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j != -1 {
			rest = rest[:j]
		}
		s = strings.TrimSpace(rest)
	}
	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}
