// Filename: source/location.go
package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xkilldash9x/testforge/internal/config"
)

// Location describes where a module's sources live.
type Location struct {
	Provider config.SourceProvider
	// URL is the repository URL for every provider but local.
	URL      string
	APIBase  string
	Branch   string
	Token    string
	Username string
	Password string
	// LocalPath is a filesystem path for the local provider; "~" is expanded.
	LocalPath string
	// ModuleName selects one module inside a repository holding several.
	ModuleName string
	// ModulePathPattern locates ModuleName inside a remote repository.
	ModulePathPattern string
}

// NewLocation builds a Location for target using cfg for everything the
// target does not say itself. A target that looks like a URL keeps the
// configured remote provider (git when the configured one is local); any
// other target is a local path.
func NewLocation(cfg config.SourceConfig, target, module string) Location {
	loc := Location{
		Provider:          cfg.Provider,
		URL:               cfg.URL,
		APIBase:           cfg.APIBase,
		Branch:            cfg.Branch,
		Token:             cfg.Token,
		Username:          cfg.Username,
		Password:          cfg.Password,
		ModuleName:        module,
		ModulePathPattern: cfg.ModulePathPattern,
	}
	switch {
	case target == "":
	case isRemote(target):
		loc.URL = target
		if loc.Provider == config.SourceLocal || loc.Provider == "" {
			loc.Provider = config.SourceGit
		}
	default:
		loc.Provider = config.SourceLocal
		loc.LocalPath = target
	}
	if loc.Provider == config.SourceLocal && loc.LocalPath == "" {
		loc.LocalPath = loc.URL
	}
	return loc
}

// String renders the location without credentials.
func (l Location) String() string {
	if l.Provider == config.SourceLocal {
		return fmt.Sprintf("local:%s", l.LocalPath)
	}
	return fmt.Sprintf("%s:%s@%s", l.Provider, redact(l.URL), l.Branch)
}

func isRemote(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "git@")
}

// modulePath returns the repository-relative directory of ModuleName.
func (l Location) modulePath() string {
	pattern := l.ModulePathPattern
	if pattern == "" {
		pattern = "{module_name}"
	}
	return strings.Trim(strings.ReplaceAll(pattern, "{module_name}", l.ModuleName), "/")
}

// repoRef is a repository coordinate parsed from a clone URL.
type repoRef struct {
	Scheme string
	Host   string
	// Owner may hold several path segments for hosts with nested groups.
	Owner string
	Repo  string
}

// parseRepoURL accepts https://host/owner/repo(.git) and git@host:owner/repo(.git).
func parseRepoURL(raw string) (repoRef, error) {
	raw = strings.TrimSpace(raw)
	var ref repoRef
	var path string
	if strings.HasPrefix(raw, "git@") {
		hostPath := strings.TrimPrefix(raw, "git@")
		host, p, ok := strings.Cut(hostPath, ":")
		if !ok {
			return repoRef{}, fmt.Errorf("invalid repository url %q", raw)
		}
		ref.Scheme, ref.Host, path = "https", host, p
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return repoRef{}, fmt.Errorf("invalid repository url %q: %w", raw, err)
		}
		ref.Scheme, ref.Host, path = u.Scheme, u.Host, u.Path
	}
	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	i := strings.LastIndex(path, "/")
	if ref.Host == "" || i <= 0 || i == len(path)-1 {
		return repoRef{}, fmt.Errorf("repository url %q must name an owner and a repository", raw)
	}
	ref.Owner, ref.Repo = path[:i], path[i+1:]
	return ref, nil
}

// redact strips user info from a URL for logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}
