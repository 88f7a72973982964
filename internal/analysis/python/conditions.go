package python

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// comparisonOps maps comparison tokens to the text used in rendered guards.
var comparisonOps = map[string]string{
	"==":     "==",
	"!=":     "!=",
	"<":      "<",
	"<=":     "<=",
	">":      ">",
	">=":     ">=",
	"is":     "is",
	"is not": "is not",
	"in":     "in",
	"not in": "not in",
}

// RenderCondition renders a guard expression as short readable text.
// It returns false when any part of the expression cannot be rendered; such
// guards are dropped rather than approximated.
func RenderCondition(node *sitter.Node, source []byte) (string, bool) {
	node = unwrapParens(node)
	if node == nil {
		return "", false
	}

	switch node.Type() {
	case "comparison_operator":
		return renderComparison(node, source)
	case "not_operator":
		operand, ok := RenderCondition(node.ChildByFieldName("argument"), source)
		if !ok {
			return "", false
		}
		return "not " + operand, true
	case "boolean_operator":
		return renderBoolean(node, source)
	case "identifier", "attribute":
		return renderOperand(node, source)
	}
	return "", false
}

func renderComparison(node *sitter.Node, source []byte) (string, bool) {
	var parts []string
	pending := ""
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		if !child.IsNamed() {
			// "not in" and "is not" may arrive as two tokens.
			tok := strings.Join(strings.Fields(NodeContent(child, source)), " ")
			if pending != "" {
				tok = pending + " " + tok
				pending = ""
			}
			if tok == "not" || tok == "is" {
				if next := node.Child(i + 1); next != nil && !next.IsNamed() {
					pending = tok
					continue
				}
			}
			op, ok := comparisonOps[tok]
			if !ok {
				return "", false
			}
			parts = append(parts, op)
			continue
		}
		operand, ok := renderOperand(child, source)
		if !ok {
			return "", false
		}
		parts = append(parts, operand)
	}
	if len(parts) < 3 || len(parts)%2 == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

func renderBoolean(node *sitter.Node, source []byte) (string, bool) {
	op := NodeContent(node.ChildByFieldName("operator"), source)
	if op != "and" && op != "or" {
		return "", false
	}
	var parts []string
	for _, side := range []*sitter.Node{node.ChildByFieldName("left"), node.ChildByFieldName("right")} {
		side = unwrapParens(side)
		text, ok := RenderCondition(side, source)
		if !ok {
			return "", false
		}
		// A nested boolean with a different operator keeps its grouping.
		if side.Type() == "boolean_operator" && NodeContent(side.ChildByFieldName("operator"), source) != op {
			text = "(" + text + ")"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " "+op+" "), true
}

// renderOperand renders constants, names, dotted access and subscripts.
func renderOperand(node *sitter.Node, source []byte) (string, bool) {
	node = unwrapParens(node)
	if node == nil {
		return "", false
	}
	switch node.Type() {
	case "identifier":
		return NodeContent(node, source), true
	case "true", "false", "none", "integer", "float":
		return NodeContent(node, source), true
	case "string", "concatenated_string":
		v, formatted, ok := stringLiteral(node, source)
		if !ok || formatted {
			return "", false
		}
		return pyRepr(v), true
	case "attribute":
		obj, ok := renderOperand(node.ChildByFieldName("object"), source)
		if !ok {
			return "", false
		}
		return obj + "." + NodeContent(node.ChildByFieldName("attribute"), source), true
	case "subscript":
		value, ok := renderOperand(node.ChildByFieldName("value"), source)
		if !ok {
			return "", false
		}
		return value + "[...]", true
	case "unary_operator":
		arg := unwrapParens(node.ChildByFieldName("argument"))
		if arg != nil && (arg.Type() == "integer" || arg.Type() == "float") {
			return NodeContent(node, source), true
		}
	}
	return "", false
}
