package sqlast

import "fmt"

// ParseError represents an error during parsing.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Error message templates.
const (
	ErrUnexpectedToken = "unexpected token %s, expected %s"
	ErrUnsupported     = "%s is not supported"
)
