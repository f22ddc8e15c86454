package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected TokenType
	}{
		{"nil", NULL},
		{"null", NULL},
		{"fun", FUN},
		{"return", RETURN},
		{"and", AND},
		{"class", CLASS},
		{"funny", IDENT},
		{"Print", IDENT},
		{"_x", IDENT},
	}

	for _, tt := range tests {
		if got := LookupIdent(tt.input); got != tt.expected {
			t.Errorf("LookupIdent(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestStartsStatement(t *testing.T) {
	for _, tt := range []TokenType{CLASS, FUN, VAR, FOR, IF, WHILE, PRINT, RETURN} {
		if !StartsStatement(tt) {
			t.Errorf("%s should start a statement", tt)
		}
	}
	for _, tt := range []TokenType{IDENT, SEMICOLON, ELSE, LBRACE, NUMBER, EOF} {
		if StartsStatement(tt) {
			t.Errorf("%s should not start a statement", tt)
		}
	}
}

func TestTokenString(t *testing.T) {
	tok := New(NUMBER, "1.5", 3)
	tok.Literal = float32(1.5)
	tok.HasLiteral = true
	if got := tok.String(); got != "NUMBER 1.5 1.5" {
		t.Errorf("wrong string: %q", got)
	}
	if got := New(SEMICOLON, ";", 1).String(); got != "; ;" {
		t.Errorf("wrong string: %q", got)
	}
}
