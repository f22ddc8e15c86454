package parser

import (
	"fmt"
	"lox/internal/ast"
)

const (
	DumpJSON = "json"
	DumpYAML = "yaml"
	DumpText = "text"
)

// RenderAST renders node in one of the dump formats.
func RenderAST(format string, node ast.Node) (string, error) {
	switch format {
	case DumpJSON:
		return RenderASTAsJSON(node)
	case DumpYAML:
		return RenderASTAsYAML(node)
	case DumpText:
		return RenderASTAsText(node, 0) + "\n", nil
	default:
		return "", fmt.Errorf("unknown AST dump format %q (want json, yaml or text)", format)
	}
}
