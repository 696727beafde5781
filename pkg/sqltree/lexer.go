package sqltree

import (
	"strings"

	"github.com/leapstack-labs/sqlshift/pkg/token"
)

// lexer tokenizes SQL input. Tokens carry byte spans so the printer can
// splice rewrites back into the original text.
type lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

func newLexer(input string) *lexer {
	l := &lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// nextToken returns the next token.
func (l *lexer) nextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()

	single := func(t token.Type, lit string) token.Token {
		l.readChar()
		return token.Token{Type: t, Literal: lit, Pos: pos, End: l.pos}
	}
	double := func(t token.Type, lit string) token.Token {
		l.readChar()
		l.readChar()
		return token.Token{Type: t, Literal: lit, Pos: pos, End: l.pos}
	}

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Pos: pos, End: l.pos}
	case '+':
		return single(token.PLUS, "+")
	case '-':
		return single(token.MINUS, "-")
	case '*':
		return single(token.STAR, "*")
	case '/':
		return single(token.SLASH, "/")
	case '%':
		return single(token.PERCENT, "%")
	case '=':
		return single(token.EQ, "=")
	case '<':
		switch l.peekChar() {
		case '=':
			return double(token.LE, "<=")
		case '>':
			return double(token.NE, "<>")
		default:
			return single(token.LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			return double(token.GE, ">=")
		}
		return single(token.GT, ">")
	case '!':
		if l.peekChar() == '=' {
			return double(token.NE, "!=")
		}
		return single(token.ILLEGAL, string(l.ch))
	case '|':
		if l.peekChar() == '|' {
			return double(token.DPIPE, "||")
		}
		return single(token.ILLEGAL, string(l.ch))
	case ':':
		if l.peekChar() == ':' {
			return double(token.DCOLON, "::")
		}
		return single(token.COLON, ":")
	case '.':
		return single(token.DOT, ".")
	case ',':
		return single(token.COMMA, ",")
	case ';':
		return single(token.SEMICOLON, ";")
	case '(':
		return single(token.LPAREN, "(")
	case ')':
		return single(token.RPAREN, ")")
	case '[':
		return single(token.LBRACKET, "[")
	case ']':
		return single(token.RBRACKET, "]")
	case '\'':
		lit, ok := l.readString()
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string literal", Pos: pos, End: l.pos}
		}
		return token.Token{Type: token.STRING, Literal: lit, Pos: pos, End: l.pos}
	case '"', '`':
		lit, ok := l.readQuotedIdentifier(l.ch)
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated quoted identifier", Pos: pos, End: l.pos}
		}
		return token.Token{Type: token.IDENT, Literal: lit, Quoted: true, Pos: pos, End: l.pos}
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			lit := l.readIdentifier()
			return token.Token{
				Type:    token.LookupIdent(strings.ToLower(lit)),
				Literal: lit,
				Pos:     pos,
				End:     l.pos,
			}
		case isDigit(l.ch):
			lit := l.readNumber()
			return token.Token{Type: token.NUMBER, Literal: lit, Pos: pos, End: l.pos}
		default:
			return single(token.ILLEGAL, string(l.ch))
		}
	}
}

// skipWhitespaceAndComments skips whitespace and both comment styles.
func (l *lexer) skipWhitespaceAndComments() {
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
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString reads a single-quoted string literal.
// Handles doubled single quotes as escape: 'it''s' -> it's.
// Returns false if the literal is unterminated.
func (l *lexer) readString() (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for l.ch != 0 {
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				result.WriteByte('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String(), false
}

// readQuotedIdentifier reads a quoted identifier delimited by quote.
// Doubled delimiters escape: "col""name" -> col"name.
func (l *lexer) readQuotedIdentifier(quote byte) (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for l.ch != 0 {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String(), false
}

// readIdentifier reads an unquoted identifier.
func (l *lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *lexer) readNumber() string {
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
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
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

// tokenize returns all tokens from the input, including the trailing EOF.
func tokenize(input string) []token.Token {
	l := newLexer(input)
	var tokens []token.Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
