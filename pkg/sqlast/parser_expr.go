package sqlast

import (
	"fmt"
	"strings"
)

// ---------- Expressions ----------
//
// Precedence, lowest first:
//   OR
//   AND
//   NOT
//   comparison, IS, IN, BETWEEN, LIKE
//   + - ||
//   * / %
//   unary -
//   ::

func (p *Parser) parseExpr() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for !p.failed() && p.match(TOKEN_OR) {
		left = &BinaryExpr{Left: left, Op: "OR", Right: p.parseAnd()}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseNot()
	for !p.failed() && p.match(TOKEN_AND) {
		left = &BinaryExpr{Left: left, Op: "AND", Right: p.parseNot()}
	}
	return left
}

func (p *Parser) parseNot() Expr {
	if p.match(TOKEN_NOT) {
		return &UnaryExpr{Op: "NOT", Expr: p.parseNot()}
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenType]string{
	TOKEN_EQ: "=",
	TOKEN_NE: "<>",
	TOKEN_LT: "<",
	TOKEN_GT: ">",
	TOKEN_LE: "<=",
	TOKEN_GE: ">=",
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	if p.failed() {
		return left
	}

	if op, ok := comparisonOps[p.token.Type]; ok {
		p.nextToken()
		return &BinaryExpr{Left: left, Op: op, Right: p.parseAdditive()}
	}

	if p.match(TOKEN_IS) {
		not := p.match(TOKEN_NOT)
		p.expect(TOKEN_NULL)
		return &IsNullExpr{Expr: left, Not: not}
	}

	not := false
	if p.check(TOKEN_NOT) {
		switch p.peek.Type {
		case TOKEN_IN, TOKEN_BETWEEN, TOKEN_LIKE, TOKEN_ILIKE:
			p.nextToken()
			not = true
		default:
			return left
		}
	}

	switch p.token.Type {
	case TOKEN_IN:
		p.nextToken()
		p.expect(TOKEN_LPAREN)
		if p.check(TOKEN_SELECT) {
			p.addError(fmt.Sprintf(ErrUnsupported, "subquery"))
			return nil
		}
		in := &InExpr{Expr: left, Not: not, Values: p.parseExprList()}
		p.expect(TOKEN_RPAREN)
		return in
	case TOKEN_BETWEEN:
		p.nextToken()
		b := &BetweenExpr{Expr: left, Not: not, Low: p.parseAdditive()}
		p.expect(TOKEN_AND)
		b.High = p.parseAdditive()
		return b
	case TOKEN_LIKE, TOKEN_ILIKE:
		op := strings.ToUpper(p.token.Literal)
		p.nextToken()
		return &LikeExpr{Expr: left, Not: not, Op: op, Pattern: p.parseAdditive()}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for !p.failed() {
		var op string
		switch p.token.Type {
		case TOKEN_PLUS:
			op = "+"
		case TOKEN_MINUS:
			op = "-"
		case TOKEN_DPIPE:
			op = "||"
		default:
			return left
		}
		p.nextToken()
		left = &BinaryExpr{Left: left, Op: op, Right: p.parseMultiplicative()}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for !p.failed() {
		var op string
		switch p.token.Type {
		case TOKEN_STAR:
			op = "*"
		case TOKEN_SLASH:
			op = "/"
		case TOKEN_PERCENT:
			op = "%"
		default:
			return left
		}
		p.nextToken()
		left = &BinaryExpr{Left: left, Op: op, Right: p.parseUnary()}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.match(TOKEN_MINUS) {
		return &UnaryExpr{Op: "-", Expr: p.parseUnary()}
	}
	if p.match(TOKEN_PLUS) {
		return p.parseUnary()
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	e := p.parsePrimary()
	for !p.failed() && p.match(TOKEN_DCOLON) {
		e = &CastExpr{Expr: e, Type: p.parseTypeName()}
	}
	return e
}

func (p *Parser) parsePrimary() Expr {
	tok := p.token
	switch tok.Type {
	case TOKEN_NUMBER:
		p.nextToken()
		return &Literal{Kind: LiteralNumber, Value: tok.Literal}
	case TOKEN_STRING:
		p.nextToken()
		return &Literal{Kind: LiteralString, Value: tok.Literal}
	case TOKEN_TRUE, TOKEN_FALSE:
		p.nextToken()
		return &Literal{Kind: LiteralBool, Value: strings.ToUpper(tok.Literal)}
	case TOKEN_NULL:
		p.nextToken()
		return &Literal{Kind: LiteralNull, Value: "NULL"}
	case TOKEN_LPAREN:
		p.nextToken()
		if p.check(TOKEN_SELECT) {
			p.addError(fmt.Sprintf(ErrUnsupported, "subquery"))
			return nil
		}
		e := p.parseExpr()
		p.expect(TOKEN_RPAREN)
		return &ParenExpr{Expr: e}
	case TOKEN_CAST:
		p.nextToken()
		p.expect(TOKEN_LPAREN)
		e := p.parseExpr()
		p.expect(TOKEN_AS)
		typ := p.parseTypeName()
		p.expect(TOKEN_RPAREN)
		return &CastExpr{Expr: e, Type: typ}
	case TOKEN_CASE:
		return p.parseCase()
	case TOKEN_INTERVAL:
		return p.parseInterval()
	case TOKEN_IDENT, TOKEN_FIRST, TOKEN_LAST, TOKEN_NULLS, TOKEN_LEFT, TOKEN_RIGHT:
		return p.parseIdentExpr()
	}

	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), "expression"))
	return nil
}

func (p *Parser) parseIdentExpr() Expr {
	tok := p.token

	if !tok.Quoted && p.checkPeek(TOKEN_STRING) {
		switch upper := strings.ToUpper(tok.Literal); upper {
		case "DATE", "TIMESTAMP", "TIME":
			p.nextToken()
			lit := &TypedLiteral{Type: upper, Value: p.token.Literal}
			p.nextToken()
			return lit
		}
	}

	if p.checkPeek(TOKEN_LPAREN) {
		return p.parseFuncCall()
	}

	if tok.Type == TOKEN_LEFT || tok.Type == TOKEN_RIGHT {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), "expression"))
		return nil
	}

	ref := &ColumnRef{Column: tok.Literal, Pos: tok.Pos}
	p.nextToken()
	if p.match(TOKEN_DOT) {
		ref.Table = ref.Column
		ref.Column = p.expectIdent()
		if p.match(TOKEN_DOT) {
			ref.Table = ref.Table + "." + ref.Column
			ref.Column = p.expectIdent()
		}
	}
	return ref
}

func (p *Parser) parseFuncCall() Expr {
	fn := &FuncCall{Name: p.token.Literal, Pos: p.token.Pos}
	p.nextToken()
	p.expect(TOKEN_LPAREN)

	switch {
	case p.match(TOKEN_STAR):
		fn.Star = true
	case p.check(TOKEN_RPAREN):
	default:
		fn.Distinct = p.match(TOKEN_DISTINCT)
		fn.Args = p.parseExprList()
	}
	p.expect(TOKEN_RPAREN)

	if p.check(TOKEN_IDENT) && strings.EqualFold(p.token.Literal, "over") && p.checkPeek(TOKEN_LPAREN) {
		p.addError(fmt.Sprintf(ErrUnsupported, "window function"))
		return nil
	}
	return fn
}

func (p *Parser) parseCase() Expr {
	p.expect(TOKEN_CASE)
	c := &CaseExpr{}
	if !p.check(TOKEN_WHEN) {
		c.Operand = p.parseExpr()
	}
	for !p.failed() && p.match(TOKEN_WHEN) {
		w := WhenClause{Condition: p.parseExpr()}
		p.expect(TOKEN_THEN)
		w.Result = p.parseExpr()
		c.Whens = append(c.Whens, w)
	}
	if len(c.Whens) == 0 && !p.failed() {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), "WHEN"))
		return nil
	}
	if p.match(TOKEN_ELSE) {
		c.Else = p.parseExpr()
	}
	p.expect(TOKEN_END)
	return c
}

// parseInterval accepts INTERVAL '3 months' and INTERVAL 3 MONTH.
func (p *Parser) parseInterval() Expr {
	p.expect(TOKEN_INTERVAL)
	switch p.token.Type {
	case TOKEN_STRING:
		lit := &TypedLiteral{Type: "INTERVAL", Value: p.token.Literal}
		p.nextToken()
		return lit
	case TOKEN_NUMBER:
		n := p.token.Literal
		p.nextToken()
		unit := p.expectIdent()
		return &TypedLiteral{Type: "INTERVAL", Value: n + " " + strings.ToLower(unit)}
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), "interval value"))
	return nil
}

var typeSuffixes = map[string]bool{
	"PRECISION": true,
	"VARYING":   true,
}

// parseTypeName reads a type such as INTEGER, DECIMAL(10, 2) or DOUBLE PRECISION.
func (p *Parser) parseTypeName() string {
	name := strings.ToUpper(p.expectIdent())
	for p.check(TOKEN_IDENT) && typeSuffixes[strings.ToUpper(p.token.Literal)] {
		name += " " + strings.ToUpper(p.token.Literal)
		p.nextToken()
	}
	if p.match(TOKEN_LPAREN) {
		var args []string
		for {
			if !p.check(TOKEN_NUMBER) {
				p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), "number"))
				return name
			}
			args = append(args, p.token.Literal)
			p.nextToken()
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
		p.expect(TOKEN_RPAREN)
		name += "(" + strings.Join(args, ", ") + ")"
	}
	return name
}
