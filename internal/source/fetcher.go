// Filename: source/fetcher.go
// Source fetcher: produces the SourceTree of one module from a local
// directory, a git clone, or a hosting provider's API.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/config"
)

// Snapshot is a fetched module.
type Snapshot struct {
	Tree   schemas.SourceTree
	Commit schemas.CommitInfo
	// Module is the module directory name, when known.
	Module string
}

// Fetcher obtains module sources.
type Fetcher struct {
	cfg       config.SourceConfig
	logger    *zap.Logger
	transport http.RoundTripper
	limiter   *rate.Limiter
}

// NewFetcher creates a fetcher. transport is the base HTTP transport for
// hosting API calls; nil uses http.DefaultTransport.
func NewFetcher(cfg config.SourceConfig, transport http.RoundTripper, logger *zap.Logger) *Fetcher {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Fetcher{
		cfg:       cfg,
		logger:    logger.Named("source_fetcher"),
		transport: transport,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Fetch returns the sources of the module at loc. Every failure wraps
// schemas.ErrSourceUnavailable. Transient clones are removed before Fetch returns.
func (f *Fetcher) Fetch(ctx context.Context, loc Location) (*Snapshot, error) {
	f.logger.Debug("Fetching sources", zap.Stringer("location", loc))

	var (
		snap *Snapshot
		err  error
	)
	switch loc.Provider {
	case config.SourceLocal, "":
		snap, err = f.fetchLocal(ctx, loc)
	case config.SourceGit:
		snap, err = f.fetchClone(ctx, loc)
	case config.SourceGitHub, config.SourceGitLab, config.SourceBitbucket, config.SourceCustom:
		snap, err = f.fetchAPI(ctx, loc)
	default:
		err = fmt.Errorf("unsupported provider %q", loc.Provider)
	}
	if err != nil {
		if errors.Is(err, schemas.ErrSourceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", schemas.ErrSourceUnavailable, err)
	}

	f.logger.Info("Fetched module sources",
		zap.String("module", snap.Module),
		zap.Int("files", len(snap.Tree)),
		zap.String("commit", snap.Commit.Hash),
	)
	return snap, nil
}

func (f *Fetcher) fetchLocal(ctx context.Context, loc Location) (*Snapshot, error) {
	root, err := expandPath(loc.LocalPath)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", root, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return f.readModule(ctx, root, loc.ModuleName)
}

func (f *Fetcher) fetchClone(ctx context.Context, loc Location) (*Snapshot, error) {
	if f.cfg.CloneTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.CloneTimeout)
		defer cancel()
	}
	wc, err := clone(ctx, loc, f.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := wc.Close(); err != nil {
			f.logger.Warn("Failed to remove working copy", zap.String("dir", wc.Dir), zap.Error(err))
		}
	}()

	snap, err := f.readModule(ctx, wc.Dir, loc.ModuleName)
	if err != nil {
		return nil, err
	}
	snap.Commit = wc.Commit
	return snap, nil
}

// readModule resolves the module directory under root and reads its tree.
func (f *Fetcher) readModule(ctx context.Context, root, module string) (*Snapshot, error) {
	dir, name, err := resolveModule(ctx, root, module)
	if err != nil {
		return nil, err
	}
	tree, err := readTree(ctx, dir, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	if !hasManifest(tree) {
		return nil, fmt.Errorf("%w: no module manifest in %s", schemas.ErrSourceUnavailable, dir)
	}
	return &Snapshot{Tree: tree, Module: name}, nil
}

// resolveModule picks the module directory under root: root itself when it
// holds a manifest, the named module, or the only module found.
func resolveModule(ctx context.Context, root, module string) (string, string, error) {
	if _, ok := findManifest(root); ok {
		name := module
		if name == "" {
			name = filepath.Base(root)
		}
		return root, name, nil
	}
	modules, err := DiscoverModules(ctx, root)
	if err != nil {
		return "", "", err
	}
	if module != "" {
		for _, m := range modules {
			if m.Name == module {
				return m.Path, m.Name, nil
			}
		}
		return "", "", fmt.Errorf("%w: module %q not found under %s", schemas.ErrSourceUnavailable, module, root)
	}
	switch len(modules) {
	case 0:
		return "", "", fmt.Errorf("%w: no module manifest found under %s", schemas.ErrSourceUnavailable, root)
	case 1:
		return modules[0].Path, modules[0].Name, nil
	}
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, m.Name)
	}
	return "", "", fmt.Errorf("%w: %d modules found under %s (%s); select one", schemas.ErrSourceUnavailable, len(modules), root, strings.Join(names, ", "))
}

func (f *Fetcher) fetchAPI(ctx context.Context, loc Location) (*Snapshot, error) {
	ref, err := parseRepoURL(loc.URL)
	if err != nil {
		return nil, err
	}
	base, err := apiBase(loc, ref)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{
		Transport: newAuthTransport(f.transport, loc),
		Timeout:   f.cfg.RequestTimeout,
	}
	branch := loc.Branch
	if branch == "" {
		branch = "main"
	}

	var api hostingAPI
	switch loc.Provider {
	case config.SourceGitLab:
		api = newGitLabAPI(hc, base, ref, branch)
	case config.SourceBitbucket:
		api = newBitbucketAPI(hc, base, ref, branch)
	default:
		if api, err = newGitHubAPI(hc, base, ref, branch); err != nil {
			return nil, err
		}
	}

	root := ""
	if loc.ModuleName != "" {
		root = loc.modulePath()
	}
	tree, err := fetchRemote(ctx, api, root, f.limiter, f.logger)
	if err != nil {
		return nil, err
	}
	if !hasManifest(tree) {
		return nil, fmt.Errorf("%w: no module manifest at %s/%s", schemas.ErrSourceUnavailable, ref.Repo, root)
	}

	snap := &Snapshot{Tree: tree, Module: loc.ModuleName}
	if snap.Module == "" {
		snap.Module = ref.Repo
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if commit, err := api.Commit(ctx); err != nil {
		f.logger.Warn("Could not resolve branch head", zap.String("branch", branch), zap.Error(err))
	} else {
		snap.Commit = commit
	}
	return snap, nil
}

// expandPath resolves a leading "~" to the user's home directory.
func expandPath(p string) (string, error) {
	if p == "" {
		return "", errors.New("no local path given")
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", p, err)
	}
	return expanded, nil
}
