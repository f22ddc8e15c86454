package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"lox/internal/ast"
	"reflect"

	"gopkg.in/yaml.v3"
)

// WalkAST recursively traverses an AST and serializes it into a machine-centric map structure.
// This output is designed for stability, canonical representation, and tool-chain consumption.
func WalkAST(node ast.Node) interface{} {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return nil
	}

	switch n := node.(type) {
	case *ast.Program:
		return map[string]interface{}{
			"type":       "Program",
			"statements": walkStmts(n.Statements),
		}

	case *ast.Expression:
		return map[string]interface{}{
			"type":       "Expression",
			"expression": WalkAST(n.Expr),
		}

	case *ast.Print:
		return map[string]interface{}{
			"type":       "Print",
			"line":       n.Token.Line,
			"expression": WalkAST(n.Expr),
		}

	case *ast.Var:
		return map[string]interface{}{
			"type":        "Var",
			"line":        n.Name.Line,
			"name":        n.Name.Lexeme,
			"initializer": WalkAST(n.Initializer),
		}

	case *ast.Block:
		return map[string]interface{}{
			"type":       "Block",
			"line":       n.Token.Line,
			"statements": walkStmts(n.Statements),
		}

	case *ast.If:
		return map[string]interface{}{
			"type":      "If",
			"line":      n.Token.Line,
			"condition": WalkAST(n.Condition),
			"then":      WalkAST(n.ThenBranch),
			"else":      WalkAST(n.ElseBranch),
		}

	case *ast.While:
		return map[string]interface{}{
			"type":      "While",
			"line":      n.Token.Line,
			"condition": WalkAST(n.Condition),
			"body":      WalkAST(n.Body),
		}

	case *ast.Function:
		params := make([]interface{}, len(n.Params))
		for i, p := range n.Params {
			params[i] = p.Lexeme
		}
		return map[string]interface{}{
			"type":       "Function",
			"line":       n.Name.Line,
			"name":       n.Name.Lexeme,
			"parameters": params,
			"body":       walkStmts(n.Body),
		}

	case *ast.Return:
		return map[string]interface{}{
			"type":  "Return",
			"line":  n.Keyword.Line,
			"value": WalkAST(n.Value),
		}

	case *ast.Literal:
		return map[string]interface{}{
			"type":  "Literal",
			"value": n.Value,
		}

	case *ast.Unary:
		return map[string]interface{}{
			"type":     "Unary",
			"operator": n.Operator.Lexeme,
			"right":    WalkAST(n.Right),
		}

	case *ast.Binary:
		return map[string]interface{}{
			"type":     "Binary",
			"operator": n.Operator.Lexeme,
			"left":     WalkAST(n.Left),
			"right":    WalkAST(n.Right),
		}

	case *ast.Logical:
		return map[string]interface{}{
			"type":     "Logical",
			"operator": n.Operator.Lexeme,
			"left":     WalkAST(n.Left),
			"right":    WalkAST(n.Right),
		}

	case *ast.Grouping:
		return map[string]interface{}{
			"type":  "Grouping",
			"inner": WalkAST(n.Inner),
		}

	case *ast.Variable:
		return map[string]interface{}{
			"type": "Variable",
			"line": n.Name.Line,
			"name": n.Name.Lexeme,
		}

	case *ast.Assign:
		return map[string]interface{}{
			"type":  "Assign",
			"line":  n.Name.Line,
			"name":  n.Name.Lexeme,
			"value": WalkAST(n.Value),
		}

	case *ast.Call:
		args := make([]interface{}, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = WalkAST(a)
		}
		return map[string]interface{}{
			"type":      "Call",
			"line":      n.Paren.Line,
			"callee":    WalkAST(n.Callee),
			"arguments": args,
		}

	default:
		return map[string]interface{}{
			"type": "Unknown",
			"node": fmt.Sprintf("%T", n),
		}
	}
}

func walkStmts(stmts []ast.Stmt) []interface{} {
	out := make([]interface{}, len(stmts))
	for i, s := range stmts {
		out[i] = WalkAST(s)
	}
	return out
}

func RenderASTAsJSON(node ast.Node) (string, error) {
	astMap := WalkAST(node)
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(astMap); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.String(), nil
}

func RenderASTAsYAML(node ast.Node) (string, error) {
	astMap := WalkAST(node)
	buf := new(bytes.Buffer)
	encoder := yaml.NewEncoder(buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(astMap); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.String(), nil
}
