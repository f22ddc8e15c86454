package ast

import (
	"bytes"
	"lox/internal/token"
	"strconv"
	"strings"
)

// The base Node interface
type Node interface {
	TokenLiteral() string
	String() string
}

// Expr is the closed set of expression shapes. Only types in this package
// implement it.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the closed set of statement shapes.
type Stmt interface {
	Node
	stmtNode()
}

type Program struct {
	Statements []Stmt
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer

	for i, s := range p.Statements {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(s.String())
	}

	return out.String()
}

// Expressions

type Literal struct {
	Token token.Token
	Value any // float32, string, bool or nil
}

func (l *Literal) exprNode()            {}
func (l *Literal) TokenLiteral() string { return l.Token.Lexeme }
func (l *Literal) String() string       { return FormatLiteral(l.Value) }

// FormatLiteral renders a literal payload the way it appears in source.
// Strings have no escapes, so they are wrapped in quotes as they are.
func FormatLiteral(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case string:
		return `"` + v + `"`
	case bool:
		return strconv.FormatBool(v)
	}
	return "?"
}

type Unary struct {
	Operator token.Token
	Right    Expr
}

func (u *Unary) exprNode()            {}
func (u *Unary) TokenLiteral() string { return u.Operator.Lexeme }
func (u *Unary) String() string {
	return "(" + u.Operator.Lexeme + u.Right.String() + ")"
}

type Binary struct {
	Left     Expr
	Operator token.Token
	Right    Expr
}

func (b *Binary) exprNode()            {}
func (b *Binary) TokenLiteral() string { return b.Operator.Lexeme }
func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Operator.Lexeme + " " + b.Right.String() + ")"
}

// Logical is a short-circuiting `and` / `or`.
type Logical struct {
	Left     Expr
	Operator token.Token
	Right    Expr
}

func (l *Logical) exprNode()            {}
func (l *Logical) TokenLiteral() string { return l.Operator.Lexeme }
func (l *Logical) String() string {
	return "(" + l.Left.String() + " " + l.Operator.Lexeme + " " + l.Right.String() + ")"
}

type Grouping struct {
	Token token.Token // the ( token
	Inner Expr
}

func (g *Grouping) exprNode()            {}
func (g *Grouping) TokenLiteral() string { return g.Token.Lexeme }
func (g *Grouping) String() string       { return "(group " + g.Inner.String() + ")" }

type Variable struct {
	Name token.Token
}

func (v *Variable) exprNode()            {}
func (v *Variable) TokenLiteral() string { return v.Name.Lexeme }
func (v *Variable) String() string       { return v.Name.Lexeme }

type Assign struct {
	Name  token.Token
	Value Expr
}

func (a *Assign) exprNode()            {}
func (a *Assign) TokenLiteral() string { return a.Name.Lexeme }
func (a *Assign) String() string {
	return "(" + a.Name.Lexeme + " = " + a.Value.String() + ")"
}

type Call struct {
	Callee    Expr
	Paren     token.Token // closing paren, used for error locations
	Arguments []Expr
}

func (c *Call) exprNode()            {}
func (c *Call) TokenLiteral() string { return c.Paren.Lexeme }
func (c *Call) String() string {
	args := make([]string, 0, len(c.Arguments))
	for _, a := range c.Arguments {
		args = append(args, a.String())
	}
	return c.Callee.String() + "(" + strings.Join(args, ", ") + ")"
}

// Statements

type Expression struct {
	Expr Expr
}

func (es *Expression) stmtNode()            {}
func (es *Expression) TokenLiteral() string { return es.Expr.TokenLiteral() }
func (es *Expression) String() string       { return es.Expr.String() + ";" }

type Print struct {
	Token token.Token // the print token
	Expr  Expr
}

func (p *Print) stmtNode()            {}
func (p *Print) TokenLiteral() string { return p.Token.Lexeme }
func (p *Print) String() string       { return "print " + p.Expr.String() + ";" }

type Var struct {
	Name        token.Token
	Initializer Expr // may be nil
}

func (v *Var) stmtNode()            {}
func (v *Var) TokenLiteral() string { return "var" }
func (v *Var) String() string {
	var out bytes.Buffer
	out.WriteString("var " + v.Name.Lexeme)
	if v.Initializer != nil {
		out.WriteString(" = ")
		out.WriteString(v.Initializer.String())
	}
	out.WriteString(";")
	return out.String()
}

type Block struct {
	Token      token.Token // the { token
	Statements []Stmt
}

func (b *Block) stmtNode()            {}
func (b *Block) TokenLiteral() string { return b.Token.Lexeme }
func (b *Block) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range b.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

type If struct {
	Token      token.Token // the if token
	Condition  Expr
	ThenBranch Stmt
	ElseBranch Stmt // may be nil
}

func (i *If) stmtNode()            {}
func (i *If) TokenLiteral() string { return i.Token.Lexeme }
func (i *If) String() string {
	var out bytes.Buffer
	out.WriteString("if " + i.Condition.String() + " " + i.ThenBranch.String())
	if i.ElseBranch != nil {
		out.WriteString(" else " + i.ElseBranch.String())
	}
	return out.String()
}

type While struct {
	Token     token.Token // the while (or for) token
	Condition Expr
	Body      Stmt
}

func (w *While) stmtNode()            {}
func (w *While) TokenLiteral() string { return w.Token.Lexeme }
func (w *While) String() string {
	return "while " + w.Condition.String() + " " + w.Body.String()
}

type Function struct {
	Name   token.Token
	Params []token.Token
	Body   []Stmt
}

func (f *Function) stmtNode()            {}
func (f *Function) TokenLiteral() string { return "fun" }
func (f *Function) String() string {
	params := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		params = append(params, p.Lexeme)
	}
	var out bytes.Buffer
	out.WriteString("fun " + f.Name.Lexeme + "(" + strings.Join(params, ", ") + ") { ")
	for _, s := range f.Body {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

type Return struct {
	Keyword token.Token
	Value   Expr // may be nil
}

func (r *Return) stmtNode()            {}
func (r *Return) TokenLiteral() string { return r.Keyword.Lexeme }
func (r *Return) String() string {
	if r.Value == nil {
		return "return;"
	}
	return "return " + r.Value.String() + ";"
}
