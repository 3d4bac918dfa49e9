package git

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GitLabPoller polls the GitLab commits API.
type GitLabPoller struct {
	client    *http.Client
	endpoint  string
	authToken string
}

// NewGitLabPoller creates a new GitLab poller.
//
// If the endpoint is empty, https://gitlab.com is used.
func NewGitLabPoller(c *http.Client, endpoint, authToken string) *GitLabPoller {
	if endpoint == "" {
		endpoint = "https://gitlab.com"
	}
	return &GitLabPoller{client: c, endpoint: endpoint, authToken: authToken}
}

// Poll is an implementation of the CommitPoller interface.
//
// GitLab identifies commits by "id", this is copied to "sha" in the returned
// Commit so that filters can be written the same way for both hosts.
func (g GitLabPoller) Poll(ctx context.Context, repo string, pr PollStatus) (PollStatus, Commit, error) {
	requestURL := makeGitLabURL(g.endpoint, repo, pr.Ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return PollStatus{}, nil, fmt.Errorf("failed to make the request: %w", err)
	}
	if pr.ETag != "" {
		req.Header.Add("If-None-Match", pr.ETag)
	}
	req.Header.Add("User-Agent", pollerUserAgent)
	if g.authToken != "" {
		req.Header.Add("Private-Token", g.authToken)
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
	id, ok := gc["id"].(string)
	if !ok || id == "" {
		return PollStatus{}, nil, fmt.Errorf("failed to decode response body: no id in commit")
	}
	gc["sha"] = id
	return PollStatus{Ref: pr.Ref, SHA: id, ETag: resp.Header.Get("ETag")}, gc, nil
}

func makeGitLabURL(endpoint, repo, ref string) string {
	return fmt.Sprintf("%s/api/v4/projects/%s/repository/commits/%s",
		strings.TrimSuffix(endpoint, "/"), strings.Replace(repo, "/", "%2F", -1),
		url.PathEscape(ref))
}
