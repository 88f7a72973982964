package python

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// fieldsNamespace is the factory namespace attribute declarations are called under.
const fieldsNamespace = "fields"

var fieldKinds = map[string]schemas.AttributeKind{
	"Char":      schemas.KindText,
	"Text":      schemas.KindText,
	"Html":      schemas.KindText,
	"Integer":   schemas.KindNumber,
	"Float":     schemas.KindNumber,
	"Monetary":  schemas.KindNumber,
	"Boolean":   schemas.KindBoolean,
	"Date":      schemas.KindDate,
	"Datetime":  schemas.KindDate,
	"Many2one":  schemas.KindRelation,
	"One2many":  schemas.KindRelation,
	"Many2many": schemas.KindRelation,
	"Reference": schemas.KindRelation,
	"Selection": schemas.KindSelection,
	"Binary":    schemas.KindBinary,
	"Image":     schemas.KindBinary,
}

// fieldDecl is a parsed attribute plus the option list declared with the
// selection keyword (or first positional list), used for state detection.
type fieldDecl struct {
	attr           schemas.AttributeDescription
	declaredStates []string
}

// parseField recognizes `name = fields.X(...)` and returns its description.
func parseField(name string, call *sitter.Node, source []byte) (fieldDecl, bool) {
	if call == nil || call.Type() != "call" {
		return fieldDecl{}, false
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return fieldDecl{}, false
	}
	ns := fn.ChildByFieldName("object")
	if ns == nil || ns.Type() != "identifier" || NodeContent(ns, source) != fieldsNamespace {
		return fieldDecl{}, false
	}

	fieldType := NodeContent(fn.ChildByFieldName("attribute"), source)
	kind, known := fieldKinds[fieldType]
	if !known {
		kind = schemas.KindOther
	}

	attr := schemas.AttributeDescription{
		Name:      name,
		Kind:      kind,
		FieldType: fieldType,
	}
	decl := fieldDecl{}

	positional, keywords := callArguments(call, source)

	switch kind {
	case schemas.KindRelation:
		if len(positional) > 0 {
			if comodel, ok := plainString(positional[0], source); ok {
				attr.RelatedModel = comodel
			}
		}
	case schemas.KindSelection:
		if len(positional) > 0 {
			if opts, ok := selectionOptions(positional[0], source); ok {
				attr.Options = opts
				decl.declaredStates = opts
			} else if label, ok := plainString(positional[0], source); ok {
				attr.Label = label
			}
			if len(positional) > 1 && attr.Label == "" {
				if label, ok := plainString(positional[1], source); ok {
					attr.Label = label
				}
			}
		}
	default:
		if len(positional) > 0 {
			if label, ok := plainString(positional[0], source); ok {
				attr.Label = label
			}
		}
	}

	if v, ok := keywords["string"]; ok {
		if label, ok := plainString(v, source); ok {
			attr.Label = label
		}
	}
	if v, ok := keywords["required"]; ok {
		attr.Required = isTrue(v)
	}
	if v, ok := keywords["readonly"]; ok {
		attr.Readonly = isTrue(v)
	}
	if v, ok := keywords["compute"]; ok {
		if method, ok := plainString(v, source); ok {
			attr.ComputedFrom = method
		} else if method := trailingName(v, source); method != "" {
			attr.ComputedFrom = method
		}
		if attr.ComputedFrom != "" {
			attr.Kind = schemas.KindComputed
		}
	}
	if v, ok := keywords["depends"]; ok {
		if deps, ok := stringList(v, source); ok {
			attr.Depends = deps
		}
	}
	if v, ok := keywords["related"]; ok {
		if related, ok := plainString(v, source); ok {
			attr.Related = related
		}
	}
	if v, ok := keywords["comodel_name"]; ok {
		if comodel, ok := plainString(v, source); ok {
			attr.RelatedModel = comodel
		}
	}
	if v, ok := keywords["selection"]; ok {
		if opts, ok := selectionOptions(v, source); ok {
			attr.Options = opts
			decl.declaredStates = opts
		}
	}
	if v, ok := keywords["selection_add"]; ok {
		if opts, ok := selectionOptions(v, source); ok {
			attr.Options = append(attr.Options, opts...)
		}
	}

	decl.attr = attr
	return decl, true
}

// selectionOptions reads [('key', 'Label'), ...] and returns the keys.
func selectionOptions(node *sitter.Node, source []byte) ([]string, bool) {
	node = unwrapParens(node)
	if node == nil || node.Type() != "list" {
		return nil, false
	}
	var keys []string
	for _, el := range namedChildren(node) {
		el = unwrapParens(el)
		if el.Type() != "tuple" {
			continue
		}
		items := namedChildren(el)
		if len(items) == 0 {
			continue
		}
		if key, ok := plainString(items[0], source); ok {
			keys = append(keys, key)
		}
	}
	return keys, true
}
