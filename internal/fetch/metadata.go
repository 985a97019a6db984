package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/repopackd/internal/config"
)

// MetadataClient reports the declared size of a repository in bytes.
type MetadataClient interface {
	RepoSize(ctx context.Context, src Source) (int64, error)
}

// GitHubMetadata queries the GitHub REST API for repository size.
type GitHubMetadata struct {
	client *github.Client
}

// NewGitHubMetadata creates a metadata client. An empty baseURL targets
// api.github.com; otherwise it must be the full API root, for example
// https://ghe.example.com/api/v3/. A set token raises rate limits only.
func NewGitHubMetadata(ctx context.Context, token config.Secret, baseURL string) (*GitHubMetadata, error) {
	var hc *http.Client
	if token.IsSet() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
		hc = oauth2.NewClient(ctx, ts)
	}
	client := github.NewClient(hc)

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API base url: %w", err)
		}
		client.BaseURL = u
	}
	return &GitHubMetadata{client: client}, nil
}

// RepoSize returns the repository's reported size. GitHub reports
// kilobytes; the result is converted to bytes.
func (g *GitHubMetadata) RepoSize(ctx context.Context, src Source) (int64, error) {
	repo, _, err := g.client.Repositories.Get(ctx, src.Owner, src.Repo)
	if err != nil {
		return 0, newError(KindMetadataUnavailable, err, "failed to query %s", src)
	}
	if repo.Size == nil {
		return 0, newError(KindMetadataUnavailable, nil, "no size reported for %s", src)
	}
	return int64(repo.GetSize()) * 1024, nil
}
