package sqlast

import (
	"strings"
)

// Format renders a statement as canonical SQL, one clause per line.
func Format(stmt *SelectStmt) string {
	var b strings.Builder

	b.WriteString("SELECT ")
	if stmt.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i, item := range stmt.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatSelectItem(item))
	}

	if stmt.From != nil && stmt.From.Source != nil {
		b.WriteString("\nFROM ")
		b.WriteString(formatTable(stmt.From.Source))
		for _, j := range stmt.From.Joins {
			b.WriteString("\n")
			b.WriteString(string(j.Type))
			b.WriteString(" JOIN ")
			b.WriteString(formatTable(j.Right))
			if j.Condition != nil {
				b.WriteString(" ON ")
				b.WriteString(FormatExpr(j.Condition))
			}
		}
	}
	if stmt.Where != nil {
		b.WriteString("\nWHERE ")
		b.WriteString(FormatExpr(stmt.Where))
	}
	if len(stmt.GroupBy) > 0 {
		b.WriteString("\nGROUP BY ")
		for i, e := range stmt.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(FormatExpr(e))
		}
	}
	if stmt.Having != nil {
		b.WriteString("\nHAVING ")
		b.WriteString(FormatExpr(stmt.Having))
	}
	if len(stmt.OrderBy) > 0 {
		b.WriteString("\nORDER BY ")
		for i, o := range stmt.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(FormatExpr(o.Expr))
			if o.Desc {
				b.WriteString(" DESC")
			}
			if o.NullsFirst != nil {
				if *o.NullsFirst {
					b.WriteString(" NULLS FIRST")
				} else {
					b.WriteString(" NULLS LAST")
				}
			}
		}
	}
	if stmt.Limit != nil {
		b.WriteString("\nLIMIT ")
		b.WriteString(FormatExpr(stmt.Limit))
	}
	if stmt.Offset != nil {
		b.WriteString("\nOFFSET ")
		b.WriteString(FormatExpr(stmt.Offset))
	}
	return b.String()
}

func formatSelectItem(item SelectItem) string {
	switch {
	case item.Star:
		return "*"
	case item.TableStar != "":
		return QuoteIdent(item.TableStar) + ".*"
	}
	s := FormatExpr(item.Expr)
	if item.Alias != "" {
		s += " AS " + QuoteIdent(item.Alias)
	}
	return s
}

func formatTable(t *TableName) string {
	s := QuoteIdent(t.Name)
	if t.Schema != "" {
		s = QuoteIdent(t.Schema) + "." + s
	}
	if t.Alias != "" && t.Alias != t.Name {
		s += " AS " + QuoteIdent(t.Alias)
	}
	return s
}

// FormatExpr renders an expression, adding parentheses only where
// operator precedence requires them.
func FormatExpr(e Expr) string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

// QuoteIdent double-quotes an identifier unless it is a plain,
// non-reserved name.
func QuoteIdent(name string) string {
	if isPlainIdent(name) && !IsReserved(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = QuoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// Precedence levels, mirroring the parser.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precAdditive
	precMultiplicative
	precUnary
	precPrimary
)

func precedence(e Expr) int {
	switch n := e.(type) {
	case *BinaryExpr:
		switch n.Op {
		case "OR":
			return precOr
		case "AND":
			return precAnd
		case "+", "-", "||":
			return precAdditive
		case "*", "/", "%":
			return precMultiplicative
		}
		return precCompare
	case *UnaryExpr:
		if n.Op == "NOT" {
			return precNot
		}
		return precUnary
	case *InExpr, *BetweenExpr, *IsNullExpr, *LikeExpr:
		return precCompare
	}
	return precPrimary
}

func writeOperand(b *strings.Builder, e Expr, wrap bool) {
	if wrap {
		b.WriteString("(")
		writeExpr(b, e)
		b.WriteString(")")
		return
	}
	writeExpr(b, e)
}

func writeExpr(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
	case *ColumnRef:
		if n.Table != "" {
			b.WriteString(quoteQualified(n.Table))
			b.WriteString(".")
		}
		b.WriteString(QuoteIdent(n.Column))
	case *Literal:
		if n.Kind == LiteralString {
			b.WriteString(quoteString(n.Value))
		} else {
			b.WriteString(n.Value)
		}
	case *TypedLiteral:
		b.WriteString(n.Type)
		b.WriteString(" ")
		b.WriteString(quoteString(n.Value))
	case *BinaryExpr:
		p := precedence(n)
		writeOperand(b, n.Left, precedence(n.Left) < p || (p == precCompare && precedence(n.Left) == p))
		b.WriteString(" ")
		b.WriteString(n.Op)
		b.WriteString(" ")
		writeOperand(b, n.Right, precedence(n.Right) <= p)
	case *UnaryExpr:
		if n.Op == "NOT" {
			b.WriteString("NOT ")
			writeOperand(b, n.Expr, precedence(n.Expr) < precNot)
			return
		}
		b.WriteString(n.Op)
		writeOperand(b, n.Expr, precedence(n.Expr) < precUnary)
	case *FuncCall:
		b.WriteString(formatFuncName(n.Name))
		b.WriteString("(")
		switch {
		case n.Star:
			b.WriteString("*")
		default:
			if n.Distinct {
				b.WriteString("DISTINCT ")
			}
			for i, a := range n.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				writeExpr(b, a)
			}
		}
		b.WriteString(")")
	case *CastExpr:
		b.WriteString("CAST(")
		writeExpr(b, n.Expr)
		b.WriteString(" AS ")
		b.WriteString(n.Type)
		b.WriteString(")")
	case *CaseExpr:
		b.WriteString("CASE")
		if n.Operand != nil {
			b.WriteString(" ")
			writeExpr(b, n.Operand)
		}
		for _, w := range n.Whens {
			b.WriteString(" WHEN ")
			writeExpr(b, w.Condition)
			b.WriteString(" THEN ")
			writeExpr(b, w.Result)
		}
		if n.Else != nil {
			b.WriteString(" ELSE ")
			writeExpr(b, n.Else)
		}
		b.WriteString(" END")
	case *InExpr:
		writeOperand(b, n.Expr, precedence(n.Expr) <= precCompare)
		if n.Not {
			b.WriteString(" NOT")
		}
		b.WriteString(" IN (")
		for i, v := range n.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, v)
		}
		b.WriteString(")")
	case *BetweenExpr:
		writeOperand(b, n.Expr, precedence(n.Expr) <= precCompare)
		if n.Not {
			b.WriteString(" NOT")
		}
		b.WriteString(" BETWEEN ")
		writeOperand(b, n.Low, precedence(n.Low) < precAdditive)
		b.WriteString(" AND ")
		writeOperand(b, n.High, precedence(n.High) < precAdditive)
	case *IsNullExpr:
		writeOperand(b, n.Expr, precedence(n.Expr) <= precCompare)
		if n.Not {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
	case *LikeExpr:
		writeOperand(b, n.Expr, precedence(n.Expr) <= precCompare)
		if n.Not {
			b.WriteString(" NOT")
		}
		b.WriteString(" ")
		b.WriteString(n.Op)
		b.WriteString(" ")
		writeOperand(b, n.Pattern, precedence(n.Pattern) < precAdditive)
	case *ParenExpr:
		b.WriteString("(")
		writeExpr(b, n.Expr)
		b.WriteString(")")
	}
}

func formatFuncName(name string) string {
	if isPlainIdent(name) {
		return strings.ToUpper(name)
	}
	return QuoteIdent(name)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
