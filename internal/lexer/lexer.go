package lexer

import (
	"errors"
	"fmt"
	"math"
	"lox/internal/token"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// ScanError is a lexical fault. Scanning continues after one is recorded.
type ScanError struct {
	Line    int
	Column  int
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

type Lexer struct {
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination
	line         int
	column       int
	errors       []error
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// Scan tokenizes src completely. The returned slice always ends with EOF.
func Scan(src string) ([]token.Token, []error) {
	l := New(src)
	tokens := make([]token.Token, 0, len(src)/3+1)
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens, l.Errors()
}

func (l *Lexer) Errors() []error {
	return l.errors
}

func (l *Lexer) addError(line, column int, format string, args ...any) {
	l.errors = append(l.errors, &ScanError{
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	})
}

// NextToken returns the next token, skipping whitespace, comments and
// characters that were reported as unexpected.
func (l *Lexer) NextToken() token.Token {
	for {
		l.skipWhitespace()

		line, col := l.line, l.column
		start := l.position

		switch ch := l.ch; {
		case l.atEOF():
			return token.Token{Type: token.EOF, Line: line, Column: col}
		case ch == '(':
			return l.single(token.LPAREN)
		case ch == ')':
			return l.single(token.RPAREN)
		case ch == '{':
			return l.single(token.LBRACE)
		case ch == '}':
			return l.single(token.RBRACE)
		case ch == ',':
			return l.single(token.COMMA)
		case ch == '.':
			return l.single(token.PERIOD)
		case ch == '-':
			return l.single(token.MINUS)
		case ch == '+':
			return l.single(token.PLUS)
		case ch == ';':
			return l.single(token.SEMICOLON)
		case ch == '*':
			return l.single(token.ASTERISK)
		case ch == '/':
			return l.single(token.SLASH)
		case ch == '!':
			return l.handleCompoundToken(token.BANG, '=', token.NOT_EQ)
		case ch == '=':
			return l.handleCompoundToken(token.ASSIGN, '=', token.EQ)
		case ch == '<':
			return l.handleCompoundToken(token.LT, '=', token.LT_EQ)
		case ch == '>':
			return l.handleCompoundToken(token.GT, '=', token.GT_EQ)
		case ch == '"':
			if tok, ok := l.readString(); ok {
				return tok
			}
			continue
		case isDigit(ch):
			return l.readNumber()
		case isLetter(ch):
			ident := l.readIdentifier()
			tok := token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Line: line, Column: col}
			switch tok.Type {
			case token.TRUE:
				tok.Literal, tok.HasLiteral = true, true
			case token.FALSE:
				tok.Literal, tok.HasLiteral = false, true
			case token.NULL:
				tok.HasLiteral = true
			}
			return tok
		default:
			l.readChar()
			l.addError(line, col, "Unexpected character %s.", l.input[start:l.position])
		}
	}
}

func (l *Lexer) single(t token.TokenType) token.Token {
	tok := token.Token{Type: t, Lexeme: string(l.ch), Line: l.line, Column: l.column}
	l.readChar()
	return tok
}

func (l *Lexer) handleCompoundToken(
	t token.TokenType,
	ch1 rune,
	t1 token.TokenType,
) token.Token {
	line, col := l.line, l.column
	first := l.ch
	l.readChar()
	if l.ch == ch1 {
		l.readChar()
		return token.Token{Type: t1, Lexeme: string(first) + string(ch1), Line: line, Column: col}
	}
	return token.Token{Type: t, Lexeme: string(first), Line: line, Column: col}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\n', '\r':
			l.readChar()
		case '/':
			if l.peekChar() == '/' {
				l.skipToLineEnd()
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
}

// atEOF reports whether the whole input has been consumed. A NUL rune in the
// input is an ordinary (unexpected) character.
func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

// readChar advances by one UTF-8 rune, updating byte positions and the
// line/column of the new current rune.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.column++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
	l.column++
}

// peekChar returns the next rune without advancing; returns 0 at EOF
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// readString consumes a double quoted string. Strings may span lines and
// have no escapes.
func (l *Lexer) readString() (token.Token, bool) {
	line, col := l.line, l.column
	start := l.position
	l.readChar() // opening quote
	for l.ch != '"' && !l.atEOF() {
		l.readChar()
	}
	if l.atEOF() {
		l.addError(line, col, "Unterminated string.")
		return token.Token{}, false
	}
	l.readChar() // closing quote
	lexeme := l.input[start:l.position]
	return token.Token{
		Type:       token.STRING,
		Lexeme:     lexeme,
		Literal:    lexeme[1 : len(lexeme)-1],
		HasLiteral: true,
		Line:       line,
		Column:     col,
	}, true
}

func (l *Lexer) readNumber() token.Token {
	line, col := l.line, l.column
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	end := l.position
	if l.ch == '.' {
		if isDigit(l.peekChar()) {
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
			end = l.position
		} else {
			l.addError(line, col, "Unterminated number.")
		}
	}
	lexeme := l.input[start:end]
	value, err := strconv.ParseFloat(lexeme, 32)
	if errors.Is(err, strconv.ErrRange) && math.IsInf(value, 0) {
		err = nil
	}
	if err != nil {
		l.addError(line, col, "could not parse %q as number", lexeme)
	}
	return token.Token{
		Type:       token.NUMBER,
		Lexeme:     lexeme,
		Literal:    float32(value),
		HasLiteral: true,
		Line:       line,
		Column:     col,
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
