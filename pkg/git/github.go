package git

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

const (
	githubAccept    = "application/vnd.github+json"
	githubAPI       = "https://api.github.com"
	pollerUserAgent = "host-deployer"
)

// GitHubPoller polls the GitHub commits API.
type GitHubPoller struct {
	client    *http.Client
	endpoint  string
	authToken string
}

// NewGitHubPoller creates and returns a new GitHub poller.
//
// If the endpoint is empty, the public GitHub API is used.
func NewGitHubPoller(c *http.Client, endpoint, authToken string) *GitHubPoller {
	if endpoint == "" {
		endpoint = githubAPI
	}
	return &GitHubPoller{client: c, endpoint: endpoint, authToken: authToken}
}

// Poll is an implementation of the CommitPoller interface.
//
// A 304 Not Modified response returns the provided PollStatus and a nil
// Commit.
func (g GitHubPoller) Poll(ctx context.Context, repo string, pr PollStatus) (PollStatus, Commit, error) {
	requestURL, err := makeGitHubURL(g.endpoint, repo, pr.Ref)
	if err != nil {
		return PollStatus{}, nil, fmt.Errorf("failed to make the request URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return PollStatus{}, nil, fmt.Errorf("failed to make the request: %w", err)
	}
	if pr.ETag != "" {
		req.Header.Add("If-None-Match", pr.ETag)
	}
	req.Header.Add("Accept", githubAccept)
	req.Header.Add("User-Agent", pollerUserAgent)
	if g.authToken != "" {
		req.Header.Add("Authorization", fmt.Sprintf("token %s", g.authToken))
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return PollStatus{}, nil, fmt.Errorf("failed to get current commit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotModified {
		return pr, nil, nil
	}
	if err := checkStatus(resp.StatusCode); err != nil {
		return PollStatus{}, nil, err
	}

	gc, err := decodeCommit(resp.Body)
	if err != nil {
		return PollStatus{}, nil, err
	}
	sha, ok := gc["sha"].(string)
	if !ok || sha == "" {
		return PollStatus{}, nil, fmt.Errorf("failed to decode response body: no sha in commit")
	}
	return PollStatus{Ref: pr.Ref, SHA: sha, ETag: resp.Header.Get("ETag")}, gc, nil
}

func decodeCommit(r io.Reader) (Commit, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	var gc Commit
	if err := json.Unmarshal(body, &gc); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return gc, nil
}

func makeGitHubURL(endpoint, repo, ref string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	parsed.Path = path.Join("/", parsed.Path, "repos", repo, "commits", ref)
	return parsed.String(), nil
}
