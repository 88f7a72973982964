// Filename: python/analyzer.go
// Walks behavior files with tree-sitter and extracts entity declarations:
// classes assigning _name or _inherit, their fields.X(...) attributes, and
// their methods classified by decorator and name.
package python

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
)

const (
	attrName           = "_name"
	attrInherit        = "_inherit"
	attrDescription    = "_description"
	attrSQLConstraints = "_sql_constraints"
)

// Declaration is one entity declaration found in a single file. Several
// declarations may describe the same entity; the caller merges them.
type Declaration struct {
	Entity schemas.EntityDescription
	// DeclaredStates holds, per selection attribute, the option list given by
	// its `selection` keyword or first positional argument.
	DeclaredStates map[string][]string
}

// Analyzer parses behavior files into entity declarations.
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates a new behavior-file analyzer.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{
		logger: logger.Named("py_analyzer"),
	}
}

// AnalyzeFile parses one file and returns its declarations in source order.
// Files with syntax errors are rejected so the caller can skip them.
func (a *Analyzer) AnalyzeFile(ctx context.Context, filename string, content []byte) (decls []Declaration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while analyzing %s: %v", filename, r)
		}
	}()

	root, closeTree, err := parse(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter failed to parse %s: %w", filename, err)
	}
	defer closeTree()

	if root.HasError() {
		return nil, fmt.Errorf("syntax error in %s", filename)
	}

	for _, stmt := range namedChildren(root) {
		class := stmt
		if stmt.Type() == "decorated_definition" {
			class = stmt.ChildByFieldName("definition")
		}
		if class == nil || class.Type() != "class_definition" {
			continue
		}
		if decl, ok := a.analyzeClass(class, content); ok {
			decl.Entity.SourceFile = filename
			decls = append(decls, decl)
		}
	}

	a.logger.Debug("Analyzed behavior file",
		zap.String("file", filename),
		zap.Int("declarations", len(decls)),
	)
	return decls, nil
}

// parse returns the root node of content and a func that releases the tree.
func parse(ctx context.Context, content []byte) (*sitter.Node, func(), error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		parser.Close()
		return nil, nil, err
	}
	return tree.RootNode(), func() {
		tree.Close()
		parser.Close()
	}, nil
}

func (a *Analyzer) analyzeClass(class *sitter.Node, source []byte) (Declaration, bool) {
	body := class.ChildByFieldName("body")
	if body == nil {
		return Declaration{}, false
	}

	var (
		name, description string
		inherit           []string
		sqlConstraints    []schemas.SQLConstraint
	)
	members := namedChildren(body)

	// The identity attributes may appear anywhere in the class body.
	for _, stmt := range members {
		target, value := classAssignment(stmt, source)
		switch target {
		case attrName:
			if s, ok := plainString(value, source); ok {
				name = s
			}
		case attrInherit:
			if list, ok := stringList(value, source); ok {
				inherit = list
			}
		case attrDescription:
			if s, ok := messageArgument(value, source); ok {
				description = s
			}
		case attrSQLConstraints:
			sqlConstraints = parseSQLConstraints(value, source)
		}
	}

	entityName := name
	if entityName == "" && len(inherit) > 0 {
		entityName = inherit[0]
	}
	if entityName == "" {
		return Declaration{}, false
	}

	decl := Declaration{
		Entity: schemas.EntityDescription{
			EntityName:     entityName,
			Description:    description,
			Attributes:     []schemas.AttributeDescription{},
			Operations:     []schemas.OperationDescription{},
			Constraints:    []schemas.ConstraintDescription{},
			SQLConstraints: sqlConstraints,
		},
		DeclaredStates: map[string][]string{},
	}
	if len(inherit) > 0 {
		decl.Entity.Extends = strings.Join(inherit, ", ")
	}

	attrIndex := map[string]int{}
	opIndex := map[string]int{}
	for _, stmt := range members {
		switch stmt.Type() {
		case "expression_statement":
			target, value := classAssignment(stmt, source)
			if target == "" {
				continue
			}
			field, ok := parseField(target, unwrapParens(value), source)
			if !ok {
				continue
			}
			if i, dup := attrIndex[target]; dup {
				decl.Entity.Attributes[i] = field.attr
			} else {
				attrIndex[target] = len(decl.Entity.Attributes)
				decl.Entity.Attributes = append(decl.Entity.Attributes, field.attr)
			}
			if len(field.declaredStates) > 0 {
				decl.DeclaredStates[target] = field.declaredStates
			}

		case "function_definition", "decorated_definition":
			fn, decorators := unwrapDecorated(stmt)
			if fn == nil || fn.Type() != "function_definition" {
				continue
			}
			method, ok := parseMethod(fn, decorators, source)
			if !ok {
				continue
			}
			if i, dup := opIndex[method.op.Name]; dup {
				decl.Entity.Operations[i] = method.op
				decl.Entity.Constraints = removeConstraint(decl.Entity.Constraints, method.op.Name)
			} else {
				opIndex[method.op.Name] = len(decl.Entity.Operations)
				decl.Entity.Operations = append(decl.Entity.Operations, method.op)
			}
			if method.constraint != nil {
				decl.Entity.Constraints = append(decl.Entity.Constraints, *method.constraint)
			}
		}
	}
	return decl, true
}

// classAssignment returns the target name and value of `name = value`.
func classAssignment(stmt *sitter.Node, source []byte) (string, *sitter.Node) {
	if stmt == nil || stmt.Type() != "expression_statement" {
		return "", nil
	}
	children := namedChildren(stmt)
	if len(children) != 1 || children[0].Type() != "assignment" {
		return "", nil
	}
	assign := children[0]
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" {
		return "", nil
	}
	return NodeContent(left, source), right
}

func unwrapDecorated(stmt *sitter.Node) (*sitter.Node, []*sitter.Node) {
	if stmt.Type() != "decorated_definition" {
		return stmt, nil
	}
	var decorators []*sitter.Node
	for _, child := range namedChildren(stmt) {
		if child.Type() == "decorator" {
			decorators = append(decorators, child)
		}
	}
	return stmt.ChildByFieldName("definition"), decorators
}

// parseSQLConstraints reads [('name', 'definition', 'message'), ...].
func parseSQLConstraints(node *sitter.Node, source []byte) []schemas.SQLConstraint {
	node = unwrapParens(node)
	if node == nil || node.Type() != "list" {
		return nil
	}
	var out []schemas.SQLConstraint
	for _, el := range namedChildren(node) {
		if el.Type() != "tuple" {
			continue
		}
		items := namedChildren(el)
		if len(items) < 2 {
			continue
		}
		c := schemas.SQLConstraint{}
		c.Name, _ = plainString(items[0], source)
		c.Definition, _ = plainString(items[1], source)
		if len(items) > 2 {
			c.Message, _ = messageArgument(items[2], source)
		}
		out = append(out, c)
	}
	return out
}

func removeConstraint(constraints []schemas.ConstraintDescription, op string) []schemas.ConstraintDescription {
	out := constraints[:0]
	for _, c := range constraints {
		if c.Operation != op {
			out = append(out, c)
		}
	}
	return out
}
