package source

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8000

// skippedDirs are never descended into, in addition to dot-directories.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"venv":         true,
	"__pycache__":  true,
}

// conventionalDirs maps the top-level module subdirectories that hold
// sources to the file class kept from them.
var conventionalDirs = map[string]schemas.FileClass{
	"models":   schemas.FileBehavior,
	"views":    schemas.FileMarkup,
	"data":     schemas.FileMarkup,
	"security": schemas.FileAccess,
}

// isManifest reports whether name is a module descriptor file.
func isManifest(name string) bool {
	return schemas.Classify(name) == schemas.FileManifest
}

// wanted reports whether a module-relative path belongs in a SourceTree.
func wanted(rel string) bool {
	rel = path.Clean(rel)
	dir, rest, nested := strings.Cut(rel, "/")
	if !nested {
		return isManifest(rel)
	}
	class, ok := conventionalDirs[dir]
	if !ok {
		return false
	}
	return schemas.Classify(rest) == class
}

// skipDir reports whether a directory name is excluded from walks.
func skipDir(name string) bool {
	return (strings.HasPrefix(name, ".") && name != ".") || skippedDirs[name]
}

// isBinary reports whether content looks like a binary file.
func isBinary(content []byte) bool {
	sniff := content
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	return bytes.IndexByte(sniff, 0) >= 0 || !utf8.Valid(content)
}

// readTree loads the conventional source files of the module rooted at root.
func readTree(ctx context.Context, root string, logger *zap.Logger) (schemas.SourceTree, error) {
	tree := schemas.SourceTree{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !d.Type().IsRegular() || !wanted(rel) {
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if isBinary(content) {
			logger.Debug("Skipping binary file", zap.String("file", rel))
			return nil
		}
		tree[rel] = string(content)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// hasManifest reports whether tree contains a descriptor at its root.
func hasManifest(tree schemas.SourceTree) bool {
	for p := range tree {
		if !strings.Contains(p, "/") && isManifest(p) {
			return true
		}
	}
	return false
}
