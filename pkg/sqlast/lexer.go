package sqlast

import (
	"strings"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input (points to current char)
	readPos int  // current reading position (after current char)
	ch      byte // current char under examination
	line    int
	col     int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, col: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	single := func(tt TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: tt, Literal: lit, Pos: pos}
	}
	double := func(tt TokenType, lit string) Token {
		l.readChar()
		l.readChar()
		return Token{Type: tt, Literal: lit, Pos: pos}
	}

	switch l.ch {
	case 0:
		return Token{Type: TOKEN_EOF, Pos: pos}
	case '+':
		return single(TOKEN_PLUS)
	case '-':
		return single(TOKEN_MINUS)
	case '*':
		return single(TOKEN_STAR)
	case '/':
		return single(TOKEN_SLASH)
	case '%':
		return single(TOKEN_PERCENT)
	case '=':
		if l.peekChar() == '=' {
			return double(TOKEN_EQ, "==")
		}
		return single(TOKEN_EQ)
	case '<':
		switch l.peekChar() {
		case '=':
			return double(TOKEN_LE, "<=")
		case '>':
			return double(TOKEN_NE, "<>")
		}
		return single(TOKEN_LT)
	case '>':
		if l.peekChar() == '=' {
			return double(TOKEN_GE, ">=")
		}
		return single(TOKEN_GT)
	case '!':
		if l.peekChar() == '=' {
			return double(TOKEN_NE, "!=")
		}
		return single(TOKEN_ILLEGAL)
	case '|':
		if l.peekChar() == '|' {
			return double(TOKEN_DPIPE, "||")
		}
		return single(TOKEN_ILLEGAL)
	case ':':
		if l.peekChar() == ':' {
			return double(TOKEN_DCOLON, "::")
		}
		return single(TOKEN_ILLEGAL)
	case '.':
		if isDigit(l.peekChar()) {
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
		}
		return single(TOKEN_DOT)
	case ',':
		return single(TOKEN_COMMA)
	case '(':
		return single(TOKEN_LPAREN)
	case ')':
		return single(TOKEN_RPAREN)
	case ';':
		return single(TOKEN_SEMICOLON)
	case '\'':
		lit, ok := l.readDelimited('\'')
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated string literal", Pos: pos}
		}
		return Token{Type: TOKEN_STRING, Literal: lit, Pos: pos}
	case '"':
		lit, ok := l.readDelimited('"')
		if !ok {
			return Token{Type: TOKEN_ILLEGAL, Literal: "unterminated quoted identifier", Pos: pos}
		}
		return Token{Type: TOKEN_IDENT, Literal: lit, Pos: pos, Quoted: true}
	}

	if isLetter(l.ch) || l.ch == '_' {
		ident := l.readIdentifier()
		return Token{Type: LookupIdent(ident), Literal: ident, Pos: pos}
	}
	if isDigit(l.ch) {
		return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
	}
	return single(TOKEN_ILLEGAL)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
			continue
		}
		return
	}
}

// readDelimited reads a quoted string or identifier.
// A doubled delimiter is an escaped delimiter: 'it''s' -> it's.
func (l *Lexer) readDelimited(delim byte) (string, bool) {
	l.readChar()

	var result strings.Builder
	for {
		if l.ch == 0 {
			return result.String(), false
		}
		if l.ch == delim {
			if l.peekChar() == delim {
				result.WriteByte(delim)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
