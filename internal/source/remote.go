package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/testforge/api/schemas"
	"github.com/xkilldash9x/testforge/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// remoteEntry is one item of a hosting API directory listing.
type remoteEntry struct {
	Path  string
	IsDir bool
}

// hostingAPI is the subset of a hosting provider's API the fetcher needs.
// Paths are repository-relative and slash-separated.
type hostingAPI interface {
	List(ctx context.Context, dir string) ([]remoteEntry, error)
	Download(ctx context.Context, file string) ([]byte, error)
	Commit(ctx context.Context) (schemas.CommitInfo, error)
}

// authTransport sets the provider's auth header on every request.
type authTransport struct {
	base     http.RoundTripper
	header   string
	value    string
	username string
	password string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	switch {
	case t.header != "":
		req.Header.Set(t.header, t.value)
	case t.username != "":
		req.SetBasicAuth(t.username, t.password)
	}
	return t.base.RoundTrip(req)
}

// newAuthTransport applies the auth convention of provider.
func newAuthTransport(base http.RoundTripper, loc Location) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &authTransport{base: base}
	switch {
	case loc.Token == "":
		t.username, t.password = loc.Username, loc.Password
	case loc.Provider == config.SourceGitHub:
		t.header, t.value = "Authorization", "token "+loc.Token
	case loc.Provider == config.SourceGitLab:
		t.header, t.value = "PRIVATE-TOKEN", loc.Token
	default:
		t.header, t.value = "Authorization", "Bearer "+loc.Token
	}
	return t
}

// apiBase derives the provider's API root for a repository.
func apiBase(loc Location, ref repoRef) (string, error) {
	if loc.APIBase != "" {
		return strings.TrimRight(loc.APIBase, "/"), nil
	}
	switch loc.Provider {
	case config.SourceGitHub:
		return "https://api.github.com", nil
	case config.SourceGitLab:
		return fmt.Sprintf("%s://%s/api/v4", ref.Scheme, ref.Host), nil
	case config.SourceBitbucket:
		return "https://api.bitbucket.org/2.0", nil
	}
	return "", fmt.Errorf("provider %s needs an explicit api_base", loc.Provider)
}

// fetchRemote downloads the conventional files of the module at root
// through api, waiting on limiter before every request.
func fetchRemote(ctx context.Context, api hostingAPI, root string, limiter *rate.Limiter, logger *zap.Logger) (schemas.SourceTree, error) {
	tree := schemas.SourceTree{}

	var walk func(dir string) error
	walk = func(dir string) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		entries, err := api.List(ctx, dir)
		if err != nil {
			return fmt.Errorf("listing %q: %w", dir, err)
		}
		for _, e := range entries {
			rel := strings.TrimPrefix(strings.TrimPrefix(e.Path, root), "/")
			if rel == "" {
				continue
			}
			if e.IsDir {
				top, _, _ := strings.Cut(rel, "/")
				if _, ok := conventionalDirs[top]; !ok || skipDir(path.Base(rel)) {
					continue
				}
				if err := walk(e.Path); err != nil {
					return err
				}
				continue
			}
			if !wanted(rel) {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			content, err := api.Download(ctx, e.Path)
			if err != nil {
				return fmt.Errorf("downloading %q: %w", e.Path, err)
			}
			if isBinary(content) {
				logger.Debug("Skipping binary file", zap.String("file", rel))
				continue
			}
			tree[rel] = string(content)
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	return tree, nil
}

// restClient is the plain JSON-over-HTTP client used by providers without an SDK.
type restClient struct {
	http *http.Client
	base string
}

func (c *restClient) get(ctx context.Context, endpoint string) (*http.Response, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = c.base + endpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d: %s", redact(endpoint), resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

func (c *restClient) getJSON(ctx context.Context, endpoint string, out interface{}) (http.Header, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", redact(endpoint), err)
	}
	return resp.Header, nil
}

func (c *restClient) getRaw(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// gitlabAPI speaks the GitLab v4 repository API.
type gitlabAPI struct {
	rest   *restClient
	branch string
}

func newGitLabAPI(hc *http.Client, base string, ref repoRef, branch string) *gitlabAPI {
	project := url.PathEscape(ref.Owner + "/" + ref.Repo)
	return &gitlabAPI{
		rest:   &restClient{http: hc, base: fmt.Sprintf("%s/projects/%s", base, project)},
		branch: branch,
	}
}

func (g *gitlabAPI) List(ctx context.Context, dir string) ([]remoteEntry, error) {
	var out []remoteEntry
	page := "1"
	for page != "" {
		q := url.Values{"path": {dir}, "ref": {g.branch}, "per_page": {"100"}, "page": {page}}
		var items []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		}
		header, err := g.rest.getJSON(ctx, "/repository/tree?"+q.Encode(), &items)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			out = append(out, remoteEntry{Path: it.Path, IsDir: it.Type == "tree"})
		}
		page = header.Get("X-Next-Page")
	}
	return out, nil
}

func (g *gitlabAPI) Download(ctx context.Context, file string) ([]byte, error) {
	q := url.Values{"ref": {g.branch}}
	return g.rest.getRaw(ctx, "/repository/files/"+url.PathEscape(file)+"/raw?"+q.Encode())
}

func (g *gitlabAPI) Commit(ctx context.Context) (schemas.CommitInfo, error) {
	var c struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	if _, err := g.rest.getJSON(ctx, "/repository/commits/"+url.PathEscape(g.branch), &c); err != nil {
		return schemas.CommitInfo{}, err
	}
	return schemas.CommitInfo{Hash: c.ID, Message: strings.TrimSpace(c.Message)}, nil
}

// bitbucketAPI speaks the Bitbucket Cloud 2.0 source API.
type bitbucketAPI struct {
	rest   *restClient
	branch string
}

func newBitbucketAPI(hc *http.Client, base string, ref repoRef, branch string) *bitbucketAPI {
	return &bitbucketAPI{
		rest:   &restClient{http: hc, base: fmt.Sprintf("%s/repositories/%s/%s", base, ref.Owner, ref.Repo)},
		branch: branch,
	}
}

func (b *bitbucketAPI) List(ctx context.Context, dir string) ([]remoteEntry, error) {
	var out []remoteEntry
	next := fmt.Sprintf("/src/%s/", url.PathEscape(b.branch))
	if dir != "" {
		next += escapePath(dir) + "/"
	}
	next += "?pagelen=100"
	for next != "" {
		var page struct {
			Values []struct {
				Path string `json:"path"`
				Type string `json:"type"`
			} `json:"values"`
			Next string `json:"next"`
		}
		if _, err := b.rest.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		for _, v := range page.Values {
			out = append(out, remoteEntry{Path: v.Path, IsDir: v.Type == "commit_directory"})
		}
		next = page.Next
	}
	return out, nil
}

func (b *bitbucketAPI) Download(ctx context.Context, file string) ([]byte, error) {
	return b.rest.getRaw(ctx, fmt.Sprintf("/src/%s/%s", url.PathEscape(b.branch), escapePath(file)))
}

func (b *bitbucketAPI) Commit(ctx context.Context) (schemas.CommitInfo, error) {
	var c struct {
		Hash    string `json:"hash"`
		Message string `json:"message"`
	}
	if _, err := b.rest.getJSON(ctx, "/commit/"+url.PathEscape(b.branch), &c); err != nil {
		return schemas.CommitInfo{}, err
	}
	return schemas.CommitInfo{Hash: c.Hash, Message: strings.TrimSpace(c.Message)}, nil
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
