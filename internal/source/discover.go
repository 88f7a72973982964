package source

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/analysis/python"
)

// DiscoverModules walks root and returns every module directory below it,
// sorted by path. A directory holding a manifest is a module; its
// subdirectories are not searched further.
func DiscoverModules(ctx context.Context, root string) ([]schemas.ModuleInfo, error) {
	root, err := expandPath(root)
	if err != nil {
		return nil, err
	}
	var modules []schemas.ModuleInfo
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		manifest, ok := findManifest(p)
		if !ok {
			return nil
		}
		modules = append(modules, describeModule(ctx, p, manifest))
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].Path < modules[j].Path })
	return modules, nil
}

func findManifest(dir string) (string, bool) {
	for _, name := range []string{"__manifest__.py", "__openerp__.py"} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

func describeModule(ctx context.Context, dir, manifestPath string) schemas.ModuleInfo {
	info := schemas.ModuleInfo{
		Name:        filepath.Base(dir),
		DisplayName: filepath.Base(dir),
		Path:        dir,
		ModelCount:  countFiles(filepath.Join(dir, "models"), ".py"),
		ViewCount:   countFiles(filepath.Join(dir, "views"), ".xml"),
	}
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return info
	}
	m, err := python.ParseManifest(ctx, content)
	if err != nil {
		return info
	}
	if m.Name != "" {
		info.DisplayName = m.Name
	}
	info.Version = m.Version
	info.Depends = m.Depends
	return info
}

// countFiles counts the files with ext directly inside dir, ignoring dunder files.
func countFiles(dir, ext string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ext) && !strings.HasPrefix(e.Name(), "__") {
			n++
		}
	}
	return n
}
