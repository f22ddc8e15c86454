package token

import "fmt"

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers + literals
	IDENT  = "IDENT"  // add, foobar, x, y, ...
	NUMBER = "NUMBER" // 1343456
	STRING = "STRING" // "foobar"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	BANG     = "!"
	ASTERISK = "*"
	SLASH    = "/"

	LT    = "<"
	LT_EQ = "<="
	GT    = ">"
	GT_EQ = ">="

	EQ     = "=="
	NOT_EQ = "!="

	// Delimiters
	PERIOD    = "."
	COMMA     = ","
	SEMICOLON = ";"

	LPAREN = "("
	RPAREN = ")"
	LBRACE = "{"
	RBRACE = "}"

	// Keywords
	AND    = "AND"
	CLASS  = "CLASS"
	ELSE   = "ELSE"
	FALSE  = "FALSE"
	FOR    = "FOR"
	FUN    = "FUN"
	IF     = "IF"
	NULL   = "NULL"
	OR     = "OR"
	PRINT  = "PRINT"
	RETURN = "RETURN"
	SUPER  = "SUPER"
	THIS   = "THIS"
	TRUE   = "TRUE"
	VAR    = "VAR"
	WHILE  = "WHILE"
)

// Token is a single lexical unit. Literal is set only for NUMBER (float32),
// STRING (string), TRUE/FALSE (bool) and NULL (nil, with HasLiteral set).
type Token struct {
	Type       TokenType
	Lexeme     string
	Literal    any
	HasLiteral bool
	Line       int
	Column     int
}

func New(t TokenType, lexeme string, line int) Token {
	return Token{Type: t, Lexeme: lexeme, Line: line}
}

func (t Token) String() string {
	if t.HasLiteral {
		return fmt.Sprintf("%s %s %v", t.Type, t.Lexeme, t.Literal)
	}
	return fmt.Sprintf("%s %s", t.Type, t.Lexeme)
}

var keywords = map[string]TokenType{
	// constants
	"nil":   NULL,
	"null":  NULL,
	"true":  TRUE,
	"false": FALSE,

	// declarations
	"fun":   FUN,
	"var":   VAR,
	"class": CLASS,
	"this":  THIS,
	"super": SUPER,

	// flow control
	"if":     IF,
	"else":   ELSE,
	"for":    FOR,
	"while":  WHILE,
	"return": RETURN,
	"print":  PRINT,

	// logic
	"and": AND,
	"or":  OR,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// StartsStatement reports whether a token of this type begins a declaration
// or statement; the parser resynchronizes on these after an error.
func StartsStatement(t TokenType) bool {
	switch t {
	case CLASS, FUN, VAR, FOR, IF, WHILE, PRINT, RETURN:
		return true
	}
	return false
}
