package sqlast

import (
	"fmt"
	"strings"
)

// Parser is a recursive-descent parser for the SELECT subset emitted by
// the synthesizer and accepted back from repairs.
type Parser struct {
	lexer  *Lexer
	token  Token // current token
	peek   Token // next token
	peek2  Token // token after next
	errors []error
}

// NewParser creates a new parser for the given SQL.
func NewParser(sql string) *Parser {
	p := &Parser{lexer: NewLexer(sql)}
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single SELECT statement.
// The first error encountered is returned as a *ParseError.
func Parse(sql string) (*SelectStmt, error) {
	p := NewParser(sql)
	stmt := p.parseStatement()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ParseExpr parses a standalone expression such as a metric formula.
func ParseExpr(sql string) (Expr, error) {
	p := NewParser(sql)
	e := p.parseExpr()
	if !p.failed() && !p.check(TOKEN_EOF) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), "end of expression"))
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return e, nil
}

// ---------- Statement ----------

func (p *Parser) parseStatement() *SelectStmt {
	switch p.token.Type {
	case TOKEN_SELECT:
	case TOKEN_WITH:
		p.addError(fmt.Sprintf(ErrUnsupported, "WITH"))
		return nil
	default:
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), "SELECT"))
		return nil
	}

	stmt := p.parseSelect()
	if p.failed() {
		return nil
	}

	switch p.token.Type {
	case TOKEN_UNION, TOKEN_EXCEPT, TOKEN_INTERSECT:
		p.addError(fmt.Sprintf(ErrUnsupported, strings.ToUpper(p.token.Literal)))
		return nil
	}

	p.match(TOKEN_SEMICOLON)
	if !p.check(TOKEN_EOF) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), "end of statement"))
		return nil
	}
	return stmt
}

func (p *Parser) parseSelect() *SelectStmt {
	stmt := &SelectStmt{}
	p.expect(TOKEN_SELECT)

	if p.match(TOKEN_DISTINCT) {
		stmt.Distinct = true
	} else {
		p.match(TOKEN_ALL)
	}

	stmt.Columns = p.parseSelectList()

	if p.match(TOKEN_FROM) {
		stmt.From = p.parseFrom()
	}
	if p.match(TOKEN_WHERE) {
		stmt.Where = p.parseExpr()
	}
	if p.check(TOKEN_GROUP) {
		p.nextToken()
		p.expect(TOKEN_BY)
		stmt.GroupBy = p.parseExprList()
	}
	if p.match(TOKEN_HAVING) {
		stmt.Having = p.parseExpr()
	}
	if p.check(TOKEN_ORDER) {
		p.nextToken()
		p.expect(TOKEN_BY)
		stmt.OrderBy = p.parseOrderBy()
	}
	if p.match(TOKEN_LIMIT) {
		stmt.Limit = p.parseExpr()
	}
	if p.match(TOKEN_OFFSET) {
		stmt.Offset = p.parseExpr()
	}
	return stmt
}

func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem
	for {
		items = append(items, p.parseSelectItem())
		if p.failed() || !p.match(TOKEN_COMMA) {
			return items
		}
	}
}

func (p *Parser) parseSelectItem() SelectItem {
	item := SelectItem{Pos: p.token.Pos}

	if p.match(TOKEN_STAR) {
		item.Star = true
		return item
	}
	if p.check(TOKEN_IDENT) && p.checkPeek(TOKEN_DOT) && p.peek2.Type == TOKEN_STAR {
		item.TableStar = p.token.Literal
		p.nextToken()
		p.nextToken()
		p.nextToken()
		return item
	}

	item.Expr = p.parseExpr()
	item.Alias = p.parseAlias()
	return item
}

func (p *Parser) parseAlias() string {
	if p.match(TOKEN_AS) {
		return p.expectIdent()
	}
	if p.check(TOKEN_IDENT) {
		alias := p.token.Literal
		p.nextToken()
		return alias
	}
	return ""
}

func (p *Parser) parseFrom() *FromClause {
	from := &FromClause{Source: p.parseTableName()}
	for !p.failed() {
		jt, ok := p.parseJoinType()
		if !ok {
			break
		}
		join := &Join{Type: jt, Right: p.parseTableName()}
		if jt != JoinCross {
			p.expect(TOKEN_ON)
			join.Condition = p.parseExpr()
		}
		from.Joins = append(from.Joins, join)
	}
	return from
}

func (p *Parser) parseJoinType() (JoinType, bool) {
	switch p.token.Type {
	case TOKEN_JOIN:
		p.nextToken()
		return JoinInner, true
	case TOKEN_INNER:
		p.nextToken()
		p.expect(TOKEN_JOIN)
		return JoinInner, true
	case TOKEN_LEFT, TOKEN_RIGHT, TOKEN_FULL:
		jt := JoinType(strings.ToUpper(p.token.Literal))
		p.nextToken()
		p.match(TOKEN_OUTER)
		p.expect(TOKEN_JOIN)
		return jt, true
	case TOKEN_CROSS:
		p.nextToken()
		p.expect(TOKEN_JOIN)
		return JoinCross, true
	case TOKEN_COMMA:
		p.nextToken()
		return JoinCross, true
	}
	return "", false
}

func (p *Parser) parseTableName() *TableName {
	if p.check(TOKEN_LPAREN) {
		p.addError(fmt.Sprintf(ErrUnsupported, "derived table"))
		return nil
	}

	t := &TableName{Pos: p.token.Pos}
	t.Name = p.expectIdent()
	if p.match(TOKEN_DOT) {
		t.Schema = t.Name
		t.Name = p.expectIdent()
	}
	t.Alias = p.parseAlias()
	return t
}

func (p *Parser) parseOrderBy() []OrderByItem {
	var items []OrderByItem
	for {
		item := OrderByItem{Expr: p.parseExpr()}
		if p.match(TOKEN_DESC) {
			item.Desc = true
		} else {
			p.match(TOKEN_ASC)
		}
		if p.match(TOKEN_NULLS) {
			first := p.check(TOKEN_FIRST)
			if !first {
				p.expect(TOKEN_LAST)
			} else {
				p.nextToken()
			}
			item.NullsFirst = &first
		}
		items = append(items, item)
		if p.failed() || !p.match(TOKEN_COMMA) {
			return items
		}
	}
}

func (p *Parser) parseExprList() []Expr {
	var exprs []Expr
	for {
		exprs = append(exprs, p.parseExpr())
		if p.failed() || !p.match(TOKEN_COMMA) {
			return exprs
		}
	}
}

// ---------- Token Helpers ----------

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
	if p.token.Type == TOKEN_ILLEGAL {
		msg := p.token.Literal
		if len(msg) <= 1 {
			msg = fmt.Sprintf("illegal character %q", p.token.Literal)
		}
		p.addError(msg)
	}
}

func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType) bool {
	if p.match(t) {
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), t))
	return false
}

// softKeywords may appear as identifiers.
var softKeywords = map[TokenType]bool{
	TOKEN_FIRST: true,
	TOKEN_LAST:  true,
	TOKEN_NULLS: true,
}

func (p *Parser) expectIdent() string {
	if p.check(TOKEN_IDENT) || softKeywords[p.token.Type] {
		name := p.token.Literal
		p.nextToken()
		return name
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describe(), "identifier"))
	return ""
}

func (p *Parser) describe() string {
	switch p.token.Type {
	case TOKEN_EOF:
		return "end of input"
	case TOKEN_IDENT, TOKEN_NUMBER, TOKEN_STRING:
		return fmt.Sprintf("%q", p.token.Literal)
	}
	return p.token.Type.String()
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{Pos: p.token.Pos, Message: msg})
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}
