package sqlast

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType int

//nolint:revive // TOKEN_* names are intentionally ALL_CAPS for SQL token conventions
const (
	TOKEN_EOF TokenType = iota
	TOKEN_ILLEGAL

	TOKEN_IDENT  // orders, "Order Date"
	TOKEN_NUMBER // 123, 45.67, 1e10
	TOKEN_STRING // 'hello'

	TOKEN_PLUS      // +
	TOKEN_MINUS     // -
	TOKEN_STAR      // *
	TOKEN_SLASH     // /
	TOKEN_PERCENT   // %
	TOKEN_DPIPE     // ||
	TOKEN_EQ        // =
	TOKEN_NE        // != or <>
	TOKEN_LT        // <
	TOKEN_GT        // >
	TOKEN_LE        // <=
	TOKEN_GE        // >=
	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_SEMICOLON // ;
	TOKEN_DCOLON    // ::

	// Keywords (alphabetical)
	TOKEN_ALL
	TOKEN_AND
	TOKEN_AS
	TOKEN_ASC
	TOKEN_BETWEEN
	TOKEN_BY
	TOKEN_CASE
	TOKEN_CAST
	TOKEN_CROSS
	TOKEN_DESC
	TOKEN_DISTINCT
	TOKEN_ELSE
	TOKEN_END
	TOKEN_EXCEPT
	TOKEN_FALSE
	TOKEN_FIRST
	TOKEN_FROM
	TOKEN_FULL
	TOKEN_GROUP
	TOKEN_HAVING
	TOKEN_ILIKE
	TOKEN_IN
	TOKEN_INNER
	TOKEN_INTERSECT
	TOKEN_INTERVAL
	TOKEN_IS
	TOKEN_JOIN
	TOKEN_LAST
	TOKEN_LEFT
	TOKEN_LIKE
	TOKEN_LIMIT
	TOKEN_NOT
	TOKEN_NULL
	TOKEN_NULLS
	TOKEN_OFFSET
	TOKEN_ON
	TOKEN_OR
	TOKEN_ORDER
	TOKEN_OUTER
	TOKEN_RIGHT
	TOKEN_SELECT
	TOKEN_THEN
	TOKEN_TRUE
	TOKEN_UNION
	TOKEN_WHEN
	TOKEN_WHERE
	TOKEN_WITH
)

var keywords = map[string]TokenType{
	"all":       TOKEN_ALL,
	"and":       TOKEN_AND,
	"as":        TOKEN_AS,
	"asc":       TOKEN_ASC,
	"between":   TOKEN_BETWEEN,
	"by":        TOKEN_BY,
	"case":      TOKEN_CASE,
	"cast":      TOKEN_CAST,
	"cross":     TOKEN_CROSS,
	"desc":      TOKEN_DESC,
	"distinct":  TOKEN_DISTINCT,
	"else":      TOKEN_ELSE,
	"end":       TOKEN_END,
	"except":    TOKEN_EXCEPT,
	"false":     TOKEN_FALSE,
	"first":     TOKEN_FIRST,
	"from":      TOKEN_FROM,
	"full":      TOKEN_FULL,
	"group":     TOKEN_GROUP,
	"having":    TOKEN_HAVING,
	"ilike":     TOKEN_ILIKE,
	"in":        TOKEN_IN,
	"inner":     TOKEN_INNER,
	"intersect": TOKEN_INTERSECT,
	"interval":  TOKEN_INTERVAL,
	"is":        TOKEN_IS,
	"join":      TOKEN_JOIN,
	"last":      TOKEN_LAST,
	"left":      TOKEN_LEFT,
	"like":      TOKEN_LIKE,
	"limit":     TOKEN_LIMIT,
	"not":       TOKEN_NOT,
	"null":      TOKEN_NULL,
	"nulls":     TOKEN_NULLS,
	"offset":    TOKEN_OFFSET,
	"on":        TOKEN_ON,
	"or":        TOKEN_OR,
	"order":     TOKEN_ORDER,
	"outer":     TOKEN_OUTER,
	"right":     TOKEN_RIGHT,
	"select":    TOKEN_SELECT,
	"then":      TOKEN_THEN,
	"true":      TOKEN_TRUE,
	"union":     TOKEN_UNION,
	"when":      TOKEN_WHEN,
	"where":     TOKEN_WHERE,
	"with":      TOKEN_WITH,
}

var tokenNames = map[TokenType]string{
	TOKEN_EOF:       "EOF",
	TOKEN_ILLEGAL:   "ILLEGAL",
	TOKEN_IDENT:     "identifier",
	TOKEN_NUMBER:    "number",
	TOKEN_STRING:    "string",
	TOKEN_PLUS:      "+",
	TOKEN_MINUS:     "-",
	TOKEN_STAR:      "*",
	TOKEN_SLASH:     "/",
	TOKEN_PERCENT:   "%",
	TOKEN_DPIPE:     "||",
	TOKEN_EQ:        "=",
	TOKEN_NE:        "<>",
	TOKEN_LT:        "<",
	TOKEN_GT:        ">",
	TOKEN_LE:        "<=",
	TOKEN_GE:        ">=",
	TOKEN_DOT:       ".",
	TOKEN_COMMA:     ",",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_SEMICOLON: ";",
	TOKEN_DCOLON:    "::",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	for kw, tt := range keywords {
		if tt == t {
			return strings.ToUpper(kw)
		}
	}
	return fmt.Sprintf("TOKEN(%d)", int(t))
}

// IsKeyword reports whether the token type is a reserved keyword.
func (t TokenType) IsKeyword() bool {
	return t >= TOKEN_ALL
}

// Position is a location in SQL source. Line and Column are 1-based.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	Quoted  bool
}

// LookupIdent returns the keyword token type for ident, or TOKEN_IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return TOKEN_IDENT
}

// IsReserved reports whether word must be quoted to be used as an identifier.
func IsReserved(word string) bool {
	_, ok := keywords[strings.ToLower(word)]
	return ok
}
