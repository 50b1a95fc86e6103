package validate

import (
	"errors"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/sqlast"
)

// Syntax parses sql into a statement or returns the first parse error.
func Syntax(sql string) (*sqlast.SelectStmt, *SyntaxFailure) {
	stmt, err := sqlast.Parse(sql)
	if err == nil {
		return stmt, nil
	}
	f := &SyntaxFailure{SyntaxError: core.SyntaxError{Message: err.Error()}}
	var pe *sqlast.ParseError
	if errors.As(err, &pe) {
		f.Message = pe.Message
		f.Line = pe.Pos.Line
		f.Column = pe.Pos.Column
		f.Unsupported = strings.HasSuffix(pe.Message, "is not supported")
	}
	return nil, f
}

// SyntaxFailure is a syntax error, flagged when the SQL parsed far
// enough to show a construct outside the supported subset.
type SyntaxFailure struct {
	core.SyntaxError
	Unsupported bool
}

// Diagnostic converts the failure into a structured diagnostic.
func (f *SyntaxFailure) Diagnostic() core.Diagnostic {
	d := f.SyntaxError.Diagnostic()
	if f.Unsupported {
		d.Kind = core.KindUnsupported
	}
	return d
}
