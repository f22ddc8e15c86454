package parser

import (
	"fmt"
	"lox/internal/ast"
	"reflect"
	"strings"
)

// RenderASTAsText produces a human-centric, indented, source-like representation of the AST.
// Every sub-expression is parenthesized so precedence and for-loop lowering are visible.
func RenderASTAsText(node ast.Node, indent int) string {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return "null"
	}

	sp := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *ast.Program:
		var sb strings.Builder
		for i, s := range n.Statements {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(RenderASTAsText(s, 0))
		}
		return sb.String()

	case *ast.Expression:
		return sp + RenderASTAsText(n.Expr, 0) + ";"

	case *ast.Print:
		return fmt.Sprintf("%sprint %s;", sp, RenderASTAsText(n.Expr, 0))

	case *ast.Var:
		if n.Initializer == nil {
			return fmt.Sprintf("%svar %s;", sp, n.Name.Lexeme)
		}
		return fmt.Sprintf("%svar %s = %s;", sp, n.Name.Lexeme, RenderASTAsText(n.Initializer, 0))

	case *ast.Block:
		return sp + renderBody(n.Statements, indent)

	case *ast.If:
		out := fmt.Sprintf("%sif %s\n%s", sp, RenderASTAsText(n.Condition, 0), RenderASTAsText(n.ThenBranch, indent+1))
		if n.ElseBranch != nil {
			out += fmt.Sprintf("\n%selse\n%s", sp, RenderASTAsText(n.ElseBranch, indent+1))
		}
		return out

	case *ast.While:
		return fmt.Sprintf("%swhile %s\n%s", sp, RenderASTAsText(n.Condition, 0), RenderASTAsText(n.Body, indent+1))

	case *ast.Function:
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Lexeme
		}
		return fmt.Sprintf("%sfun %s(%s) %s", sp, n.Name.Lexeme, strings.Join(params, ", "), renderBody(n.Body, indent))

	case *ast.Return:
		if n.Value == nil {
			return sp + "return;"
		}
		return fmt.Sprintf("%sreturn %s;", sp, RenderASTAsText(n.Value, 0))

	case *ast.Literal:
		return ast.FormatLiteral(n.Value)

	case *ast.Variable:
		return n.Name.Lexeme

	case *ast.Grouping:
		return "(" + RenderASTAsText(n.Inner, 0) + ")"

	case *ast.Unary:
		return fmt.Sprintf("(%s%s)", n.Operator.Lexeme, RenderASTAsText(n.Right, 0))

	case *ast.Binary:
		return fmt.Sprintf("(%s %s %s)", RenderASTAsText(n.Left, 0), n.Operator.Lexeme, RenderASTAsText(n.Right, 0))

	case *ast.Logical:
		return fmt.Sprintf("(%s %s %s)", RenderASTAsText(n.Left, 0), n.Operator.Lexeme, RenderASTAsText(n.Right, 0))

	case *ast.Assign:
		return fmt.Sprintf("(%s = %s)", n.Name.Lexeme, RenderASTAsText(n.Value, 0))

	case *ast.Call:
		args := make([]string, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = RenderASTAsText(a, 0)
		}
		return fmt.Sprintf("%s(%s)", RenderASTAsText(n.Callee, 0), strings.Join(args, ", "))

	default:
		return fmt.Sprintf("<unknown %T>", n)
	}
}

func renderBody(stmts []ast.Stmt, indent int) string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, s := range stmts {
		sb.WriteString(RenderASTAsText(s, indent+1))
		sb.WriteString("\n")
	}
	// the closing brace aligns with the parent's indent
	sb.WriteString(strings.Repeat("  ", indent) + "}")
	return sb.String()
}
