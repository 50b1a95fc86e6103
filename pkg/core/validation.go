package core

import (
	"fmt"
	"strings"
)

// Stage identifies a gate of the validation cascade.
type Stage int

// Validation stages in cascade order. StagePlanning marks findings raised
// before any SQL exists.
const (
	StageSyntax Stage = iota
	StageSemantic
	StageExecution
	StagePlanning
)

func (s Stage) String() string {
	switch s {
	case StageSyntax:
		return "syntax"
	case StageSemantic:
		return "semantic"
	case StageExecution:
		return "execution"
	case StagePlanning:
		return "planning"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(b []byte) error {
	for _, st := range []Stage{StageSyntax, StageSemantic, StageExecution, StagePlanning} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown validation stage %q", string(b))
}

// DiagnosticKind classifies a validation failure.
type DiagnosticKind string

// Diagnostic kinds.
const (
	KindSyntaxError         DiagnosticKind = "syntax_error"
	KindUnknownTable        DiagnosticKind = "unknown_table"
	KindUnknownColumn       DiagnosticKind = "unknown_column"
	KindAmbiguousColumn     DiagnosticKind = "ambiguous_column"
	KindUndeclaredTable     DiagnosticKind = "undeclared_table"
	KindUndeclaredColumn    DiagnosticKind = "undeclared_column"
	KindStarProjection      DiagnosticKind = "star_projection"
	KindMissingPlanColumn   DiagnosticKind = "missing_plan_column"
	KindUnsupported         DiagnosticKind = "unsupported_statement"
	KindFunctionNotFound    DiagnosticKind = "function_not_found"
	KindColumnNotFound      DiagnosticKind = "column_not_found"
	KindTableNotFound       DiagnosticKind = "table_not_found"
	KindPermissionDenied    DiagnosticKind = "permission_denied"
	KindTimeout             DiagnosticKind = "timeout"
	KindExecutionError      DiagnosticKind = "execution_error"
	KindInvariantViolation  DiagnosticKind = "invariant_violation"
	KindExtractionFailed    DiagnosticKind = "extraction_failed"
	KindRepairFailed        DiagnosticKind = "repair_failed"
	KindAttemptsExhausted   DiagnosticKind = "attempts_exhausted"
	KindClarificationNeeded DiagnosticKind = "clarification_needed"
)

// Diagnostic is a structured validation finding.
// Line and Column are 1-based and zero when not applicable.
type Diagnostic struct {
	Stage      Stage          `json:"stage"`
	Kind       DiagnosticKind `json:"kind"`
	Identifier string         `json:"identifier,omitempty"`
	Line       int            `json:"line,omitempty"`
	Column     int            `json:"column,omitempty"`
	Message    string         `json:"message"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s/%s]", d.Stage, d.Kind)
	if d.Line > 0 {
		fmt.Fprintf(&b, " %d:%d", d.Line, d.Column)
	}
	if d.Identifier != "" {
		fmt.Fprintf(&b, " %q", d.Identifier)
	}
	b.WriteString(" ")
	b.WriteString(d.Message)
	return b.String()
}

// ValidationResult is the outcome of running the cascade once.
// Stage is the last gate that ran.
type ValidationResult struct {
	Stage       Stage        `json:"stage"`
	Passed      bool         `json:"passed"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// CorrectionAttempt records one Generate/Validate cycle.
type CorrectionAttempt struct {
	Number int              `json:"number"`
	SQL    string           `json:"sql"`
	Result ValidationResult `json:"result"`
}
