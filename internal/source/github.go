// Package source turns raw fetched payloads into the typed snapshots the
// change detectors consume.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vigilbot/vigil/internal/fetch"
	"github.com/vigilbot/vigil/internal/watch"
)

const githubAPIBase = "https://api.github.com"

// RawFetcher is the single-tier fetch contract the sources use.
type RawFetcher interface {
	FetchRaw(ctx context.Context, url string) (string, error)
}

// GitHub reads repository metadata through the public REST API.
type GitHub struct {
	fetcher RawFetcher
	base    string
}

// NewGitHub builds a client over the fetch pipeline.
func NewGitHub(fetcher RawFetcher) *GitHub {
	return &GitHub{fetcher: fetcher, base: githubAPIBase}
}

// NewGitHubWithBase overrides the API base URL, for tests.
func NewGitHubWithBase(fetcher RawFetcher, base string) *GitHub {
	return &GitHub{fetcher: fetcher, base: base}
}

// Snapshot fetches the latest release and current star count. A repository
// without releases is a clean no-release snapshot, not an error.
func (g *GitHub) Snapshot(ctx context.Context, owner, name string) (watch.RepoSnapshot, error) {
	var snap watch.RepoSnapshot

	repoBody, err := g.fetcher.FetchRaw(ctx, fmt.Sprintf("%s/repos/%s/%s", g.base, owner, name))
	if err != nil {
		return snap, fmt.Errorf("fetch repo %s/%s: %w", owner, name, err)
	}
	var repo struct {
		StargazersCount int `json:"stargazers_count"`
	}
	if err := json.Unmarshal([]byte(repoBody), &repo); err != nil {
		return snap, fmt.Errorf("decode repo %s/%s: %w", owner, name, err)
	}
	snap.StarCount = repo.StargazersCount

	releaseBody, err := g.fetcher.FetchRaw(ctx, fmt.Sprintf("%s/repos/%s/%s/releases/latest", g.base, owner, name))
	if err != nil {
		if fetch.IsNotFound(err) {
			return snap, nil
		}
		return snap, fmt.Errorf("fetch latest release %s/%s: %w", owner, name, err)
	}
	var release struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.Unmarshal([]byte(releaseBody), &release); err != nil {
		return snap, fmt.Errorf("decode latest release %s/%s: %w", owner, name, err)
	}
	if release.TagName != "" {
		snap.HasRelease = true
		snap.Release = &watch.Release{
			TagName: release.TagName,
			Name:    release.Name,
			URL:     release.HTMLURL,
		}
	}
	return snap, nil
}
