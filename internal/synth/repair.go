package synth

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapquery/internal/llm"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// RepairRequest is everything the repairer is allowed to see: the failing
// SQL, what was wrong with it, and the identifiers it may use.
type RepairRequest struct {
	SQL         string            `json:"sql"`
	Diagnostics []core.Diagnostic `json:"diagnostics"`
	Identifiers []string          `json:"allowed_identifiers"`
}

// Repairer proposes a corrected statement.
type Repairer interface {
	Repair(ctx context.Context, req RepairRequest) (string, error)
}

// ErrNoRepair is returned when the repairer produced no SQL.
var ErrNoRepair = errors.New("repairer returned no SQL")

// LLMRepairer asks a language model for a corrected statement.
type LLMRepairer struct {
	capability llm.Capability
}

// NewLLMRepairer creates a repairer backed by capability.
func NewLLMRepairer(capability llm.Capability) *LLMRepairer {
	return &LLMRepairer{capability: capability}
}

// Repair implements Repairer.
func (r *LLMRepairer) Repair(ctx context.Context, req RepairRequest) (string, error) {
	text, err := r.capability.Propose(ctx, llm.KindRepairSQL, req)
	if err != nil {
		return "", fmt.Errorf("failed to repair SQL: %w", err)
	}
	sql := llm.ExtractSQL(text)
	if sql == "" {
		return "", ErrNoRepair
	}
	return sql, nil
}
