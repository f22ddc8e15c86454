package ast

import (
	"lox/internal/token"
	"testing"
)

func ident(name string) token.Token {
	return token.New(token.IDENT, name, 1)
}

func TestString(t *testing.T) {
	program := &Program{
		Statements: []Stmt{
			&Var{
				Name: ident("a"),
				Initializer: &Binary{
					Left:     &Literal{Value: float32(1)},
					Operator: token.New(token.PLUS, "+", 1),
					Right: &Grouping{Inner: &Unary{
						Operator: token.New(token.MINUS, "-", 1),
						Right:    &Literal{Value: float32(2.5)},
					}},
				},
			},
			&Function{
				Name:   ident("f"),
				Params: []token.Token{ident("x"), ident("y")},
				Body: []Stmt{
					&Return{Value: &Variable{Name: ident("x")}},
				},
			},
			&If{
				Condition:  &Literal{Value: true},
				ThenBranch: &Print{Expr: &Literal{Value: "hi"}},
				ElseBranch: &Expression{Expr: &Call{
					Callee:    &Variable{Name: ident("f")},
					Arguments: []Expr{&Literal{Value: nil}, &Assign{Name: ident("a"), Value: &Literal{Value: false}}},
				}},
			},
			&While{
				Condition: &Logical{
					Left:     &Variable{Name: ident("a")},
					Operator: token.New(token.OR, "or", 1),
					Right:    &Literal{Value: false},
				},
				Body: &Block{Statements: []Stmt{&Return{}}},
			},
		},
	}

	expected := "var a = (1 + (group (-2.5)));\n" +
		"fun f(x, y) { return x; }\n" +
		`if true print "hi"; else f(null, (a = false));` + "\n" +
		"while (a or false) { return; }"

	if program.String() != expected {
		t.Errorf("program.String() wrong.\ngot=%q\nwant=%q", program.String(), expected)
	}
}

func TestFormatLiteral(t *testing.T) {
	tests := []struct {
		input    any
		expected string
	}{
		{nil, "null"},
		{float32(3), "3"},
		{float32(0.1), "0.1"},
		{float32(-12.25), "-12.25"},
		{"two\nlines", "\"two\nlines\""},
		{true, "true"},
	}

	for _, tt := range tests {
		if got := FormatLiteral(tt.input); got != tt.expected {
			t.Errorf("FormatLiteral(%v) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
