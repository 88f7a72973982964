package python

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// actionPrefixes mark methods bound to UI buttons.
var actionPrefixes = []string{"action_", "button_"}

// userErrorTypes are the exception constructors whose messages reach the user.
var userErrorTypes = map[string]bool{
	"UserError":       true,
	"ValidationError": true,
	"Warning":         true,
	"AccessError":     true,
}

// translationFuncs wrap a message for translation without changing it.
var translationFuncs = map[string]bool{"_": true, "_lt": true}

const (
	decoratorDepends    = "depends"
	decoratorOnchange   = "onchange"
	decoratorConstrains = "constrains"
)

type decorator struct {
	name string
	args []string
}

// methodDecl is a parsed method plus the constraint it declares, if any.
type methodDecl struct {
	op         schemas.OperationDescription
	constraint *schemas.ConstraintDescription
}

// parseMethod analyzes a function_definition with its decorator nodes.
// Dunder methods are skipped.
func parseMethod(fn *sitter.Node, decoratorNodes []*sitter.Node, source []byte) (methodDecl, bool) {
	name := NodeContent(fn.ChildByFieldName("name"), source)
	if name == "" || strings.HasPrefix(name, "__") {
		return methodDecl{}, false
	}

	decorators := make([]decorator, 0, len(decoratorNodes))
	for _, d := range decoratorNodes {
		if info, ok := parseDecorator(d, source); ok {
			decorators = append(decorators, info)
		}
	}

	body := fn.ChildByFieldName("body")
	op := schemas.OperationDescription{
		Name:   name,
		Doc:    docstring(body, source),
		Errors: raisedErrors(body, source),
		Guards: guardConditions(body, source),
	}

	find := func(n string) (decorator, bool) {
		for _, d := range decorators {
			if d.name == n {
				return d, true
			}
		}
		return decorator{}, false
	}

	constrains, hasConstrains := find(decoratorConstrains)
	onchange, hasOnchange := find(decoratorOnchange)
	depends, hasDepends := find(decoratorDepends)

	switch {
	case hasPrefix(name, actionPrefixes):
		op.Visibility = schemas.VisibilityAction
	case hasConstrains:
		op.Visibility = schemas.VisibilityConstraint
	case hasOnchange:
		op.Visibility = schemas.VisibilityChange
		op.Dependencies = onchange.args
	case hasDepends:
		op.Visibility = schemas.VisibilityComputed
		op.Dependencies = depends.args
	case strings.HasPrefix(name, "_compute"):
		op.Visibility = schemas.VisibilityComputed
	case strings.HasPrefix(name, "_"):
		op.Visibility = schemas.VisibilityPrivate
	default:
		op.Visibility = schemas.VisibilityPublic
	}

	decl := methodDecl{op: op}
	if hasConstrains {
		c := schemas.ConstraintDescription{Operation: name, Fields: constrains.args}
		if c.Fields == nil {
			c.Fields = []string{}
		}
		if len(op.Errors) > 0 {
			c.Message = op.Errors[0].Message
		}
		decl.constraint = &c
	}
	return decl, true
}

func hasPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// parseDecorator reads @name, @api.name and @api.name('a', 'b').
func parseDecorator(node *sitter.Node, source []byte) (decorator, bool) {
	children := namedChildren(node)
	if len(children) == 0 {
		return decorator{}, false
	}
	expr := children[0]
	switch expr.Type() {
	case "identifier", "attribute":
		return decorator{name: trailingName(expr, source)}, true
	case "call":
		name := callName(expr, source)
		if name == "" {
			return decorator{}, false
		}
		positional, _ := callArguments(expr, source)
		var args []string
		for _, arg := range positional {
			if s, ok := plainString(arg, source); ok {
				args = append(args, s)
			}
		}
		return decorator{name: name, args: args}, true
	}
	return decorator{}, false
}

// docstring returns the cleaned leading string statement of a block.
func docstring(body *sitter.Node, source []byte) string {
	stmts := namedChildren(body)
	if len(stmts) == 0 || stmts[0].Type() != "expression_statement" {
		return ""
	}
	exprs := namedChildren(stmts[0])
	if len(exprs) != 1 {
		return ""
	}
	if s, ok := plainString(exprs[0], source); ok {
		return cleanDoc(s)
	}
	return ""
}

// raisedErrors collects the messages of user-facing raise statements, deduplicated, in order.
func raisedErrors(body *sitter.Node, source []byte) []schemas.RaisedError {
	var out []schemas.RaisedError
	seen := map[schemas.RaisedError]bool{}
	walk(body, func(n *sitter.Node) bool {
		if n.Type() != "raise_statement" {
			return true
		}
		if e, ok := raisedError(n, source); ok && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
		return false
	})
	return out
}

func raisedError(raise *sitter.Node, source []byte) (schemas.RaisedError, bool) {
	children := namedChildren(raise)
	if len(children) == 0 {
		return schemas.RaisedError{}, false
	}
	exc := unwrapParens(children[0])
	if exc.Type() != "call" {
		return schemas.RaisedError{}, false
	}
	errType := callName(exc, source)
	if !userErrorTypes[errType] {
		return schemas.RaisedError{}, false
	}
	positional, _ := callArguments(exc, source)
	if len(positional) == 0 {
		return schemas.RaisedError{}, false
	}
	msg, ok := messageArgument(positional[0], source)
	if !ok {
		return schemas.RaisedError{}, false
	}
	return schemas.RaisedError{Type: errType, Message: msg}, true
}

// messageArgument extracts a message from a string, f-string, _("..."),
// _("...") % args or "...".format(...).
func messageArgument(node *sitter.Node, source []byte) (string, bool) {
	node = unwrapParens(node)
	if node == nil {
		return "", false
	}
	switch node.Type() {
	case "string", "concatenated_string":
		v, _, ok := stringLiteral(node, source)
		return v, ok
	case "call":
		fn := node.ChildByFieldName("function")
		if fn != nil && fn.Type() == "identifier" && translationFuncs[NodeContent(fn, source)] {
			positional, _ := callArguments(node, source)
			if len(positional) == 0 {
				return "", false
			}
			return plainString(positional[0], source)
		}
		if fn != nil && fn.Type() == "attribute" && NodeContent(fn.ChildByFieldName("attribute"), source) == "format" {
			return messageArgument(fn.ChildByFieldName("object"), source)
		}
	case "binary_operator":
		if NodeContent(node.ChildByFieldName("operator"), source) == "%" {
			return messageArgument(node.ChildByFieldName("left"), source)
		}
	}
	return "", false
}

// guardConditions renders the conditions of if/elif branches whose body raises.
func guardConditions(body *sitter.Node, source []byte) []string {
	var out []string
	seen := map[string]bool{}
	add := func(cond *sitter.Node, consequence *sitter.Node) {
		if cond == nil || !containsRaise(consequence) {
			return
		}
		text, ok := RenderCondition(cond, source)
		if !ok || seen[text] {
			return
		}
		seen[text] = true
		out = append(out, text)
	}
	walk(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "if_statement", "elif_clause":
			add(n.ChildByFieldName("condition"), n.ChildByFieldName("consequence"))
		}
		return true
	})
	return out
}

func containsRaise(node *sitter.Node) bool {
	found := false
	walk(node, func(n *sitter.Node) bool {
		if n.Type() == "raise_statement" {
			found = true
		}
		return !found
	})
	return found
}

// walk visits node and its named descendants depth-first, in source order.
// Returning false from visit skips the node's children.
func walk(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for _, child := range namedChildren(node) {
		walk(child, visit)
	}
}
