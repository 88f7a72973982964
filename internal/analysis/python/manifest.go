package python

import (
	"context"
	"errors"
	"fmt"
)

// Manifest is the module descriptor dict literal.
type Manifest struct {
	Name        string
	Version     string
	Summary     string
	Depends     []string
	Data        []string
	Installable bool
}

// ParseManifest reads the dict literal of a module descriptor file without
// evaluating it. Unknown keys and non-literal values are ignored.
func ParseManifest(ctx context.Context, content []byte) (Manifest, error) {
	m := Manifest{Installable: true}

	root, closeTree, err := parse(ctx, content)
	if err != nil {
		return m, fmt.Errorf("failed to parse manifest: %w", err)
	}
	defer closeTree()

	for _, stmt := range namedChildren(root) {
		if stmt.Type() != "expression_statement" {
			continue
		}
		exprs := namedChildren(stmt)
		if len(exprs) != 1 {
			continue
		}
		dict := unwrapParens(exprs[0])
		if dict.Type() != "dictionary" {
			continue
		}
		for _, pair := range namedChildren(dict) {
			if pair.Type() != "pair" {
				continue
			}
			key, ok := plainString(pair.ChildByFieldName("key"), content)
			if !ok {
				continue
			}
			value := pair.ChildByFieldName("value")
			switch key {
			case "name":
				m.Name, _ = plainString(value, content)
			case "version":
				m.Version, _ = plainString(value, content)
			case "summary":
				m.Summary, _ = plainString(value, content)
			case "depends":
				m.Depends, _ = stringList(value, content)
			case "data":
				m.Data, _ = stringList(value, content)
			case "installable":
				if v := unwrapParens(value); v != nil && v.Type() == "false" {
					m.Installable = false
				}
			}
		}
		return m, nil
	}
	return m, errors.New("manifest does not contain a dict literal")
}
