package schemas

import (
	"path"
	"sort"
	"strings"
)

// FileClass partitions a source tree.
type FileClass int

const (
	FileOther FileClass = iota
	FileBehavior
	FileMarkup
	FileAccess
	FileManifest
)

// SourceTree maps relative slash-separated paths to file content.
// It is not mutated after the fetcher returns it.
type SourceTree map[string]string

// Classify returns the class of a relative path.
func Classify(rel string) FileClass {
	base := path.Base(rel)
	switch {
	case base == "__manifest__.py" || base == "__openerp__.py":
		return FileManifest
	case base == "ir.model.access.csv":
		return FileAccess
	case strings.HasSuffix(base, ".py"):
		return FileBehavior
	case strings.HasSuffix(base, ".xml"):
		return FileMarkup
	}
	return FileOther
}

// Paths returns the paths of the given class in sorted order.
func (t SourceTree) Paths(class FileClass) []string {
	var out []string
	for p := range t {
		if Classify(p) == class {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// CommitInfo identifies the revision a tree was fetched at.
type CommitInfo struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
}

// ModuleInfo describes a module discovered in a repository checkout.
type ModuleInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Version     string   `json:"version,omitempty"`
	Path        string   `json:"path"`
	Depends     []string `json:"depends,omitempty"`
	ModelCount  int      `json:"model_count"`
	ViewCount   int      `json:"view_count"`
}
