package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v58/github"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// githubAPI reads repository contents through the GitHub REST API. The
// custom provider reuses it against any server speaking the same API.
type githubAPI struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

func newGitHubAPI(hc *http.Client, base string, ref repoRef, branch string) (*githubAPI, error) {
	client := github.NewClient(hc)
	u, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api base %q: %w", base, err)
	}
	client.BaseURL = u
	return &githubAPI{client: client, owner: ref.Owner, repo: ref.Repo, branch: branch}, nil
}

func (g *githubAPI) options() *github.RepositoryContentGetOptions {
	return &github.RepositoryContentGetOptions{Ref: g.branch}
}

func (g *githubAPI) List(ctx context.Context, dir string) ([]remoteEntry, error) {
	file, entries, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, dir, g.options())
	if err != nil {
		return nil, err
	}
	if file != nil {
		return nil, fmt.Errorf("%q is a file, not a directory", dir)
	}
	out := make([]remoteEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, remoteEntry{Path: e.GetPath(), IsDir: e.GetType() == "dir"})
	}
	return out, nil
}

func (g *githubAPI) Download(ctx context.Context, file string) ([]byte, error) {
	content, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, file, g.options())
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("%q is a directory, not a file", file)
	}
	text, err := content.GetContent()
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

func (g *githubAPI) Commit(ctx context.Context) (schemas.CommitInfo, error) {
	c, _, err := g.client.Repositories.GetCommit(ctx, g.owner, g.repo, g.branch, nil)
	if err != nil {
		return schemas.CommitInfo{}, err
	}
	return schemas.CommitInfo{
		Hash:    c.GetSHA(),
		Message: strings.TrimSpace(c.GetCommit().GetMessage()),
	}, nil
}
