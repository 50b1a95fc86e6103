package core

import (
	"fmt"
	"strings"
)

// SchemaLoadError is returned when table definitions cannot form a
// consistent schema graph. It is fatal at startup.
type SchemaLoadError struct {
	Table   string
	Message string
}

func (e *SchemaLoadError) Error() string {
	if e.Table == "" {
		return "schema load error: " + e.Message
	}
	return fmt.Sprintf("schema load error in table %q: %s", e.Table, e.Message)
}

// UnreachableTableError is returned by the join planner when a required
// table has no path to the base table.
type UnreachableTableError struct {
	From string
	To   string
}

func (e *UnreachableTableError) Error() string {
	return fmt.Sprintf("no join path connects %q to %q", e.From, e.To)
}

// PlanConsistencyError signals that the intent and join path disagree.
type PlanConsistencyError struct {
	Column  ColumnRef
	Message string
}

func (e *PlanConsistencyError) Error() string {
	if e.Column.Column == "" {
		return "plan consistency error: " + e.Message
	}
	return fmt.Sprintf("plan consistency error for %s: %s", e.Column, e.Message)
}

// SyntaxError is returned by the syntax gate. Line and Column are 1-based.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Diagnostic converts the error into a structured diagnostic.
func (e *SyntaxError) Diagnostic() Diagnostic {
	return Diagnostic{
		Stage:   StageSyntax,
		Kind:    KindSyntaxError,
		Line:    e.Line,
		Column:  e.Column,
		Message: e.Message,
	}
}

// UnknownIdentifierError is returned by the semantic gate for a table or
// column that is absent from the schema graph or from the plan.
type UnknownIdentifierError struct {
	Identifier string
	Kind       DiagnosticKind
	Line       int
	Column     int
	Message    string
}

func (e *UnknownIdentifierError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	return fmt.Sprintf("unknown identifier %q: %s", e.Identifier, msg)
}

// Diagnostic converts the error into a structured diagnostic.
func (e *UnknownIdentifierError) Diagnostic() Diagnostic {
	return Diagnostic{
		Stage:      StageSemantic,
		Kind:       e.Kind,
		Identifier: e.Identifier,
		Line:       e.Line,
		Column:     e.Column,
		Message:    e.Message,
	}
}

// ExecutionError wraps an error reported by the query engine.
type ExecutionError struct {
	EngineMessage string
	Kind          DiagnosticKind
	Identifier    string
}

func (e *ExecutionError) Error() string {
	return "execution error: " + e.EngineMessage
}

// Diagnostic converts the error into a structured diagnostic.
func (e *ExecutionError) Diagnostic() Diagnostic {
	kind := e.Kind
	if kind == "" {
		kind = KindExecutionError
	}
	return Diagnostic{
		Stage:      StageExecution,
		Kind:       kind,
		Identifier: e.Identifier,
		Message:    e.EngineMessage,
	}
}

// AmbiguousIntentError is returned when several candidates are equally
// plausible. The caller receives a clarification request.
type AmbiguousIntentError struct {
	Subject    string
	Candidates []string
}

func (e *AmbiguousIntentError) Error() string {
	return fmt.Sprintf("ambiguous %s: could be any of %s", e.Subject, strings.Join(e.Candidates, ", "))
}

// ImpossibleIntentError is returned when nothing in the schema or metric
// registry can answer the request.
type ImpossibleIntentError struct {
	Subject string
	Reason  string
}

func (e *ImpossibleIntentError) Error() string {
	return fmt.Sprintf("cannot resolve %s: %s", e.Subject, e.Reason)
}
