package git

import (
	"fmt"
	"net/url"
	"strings"
)

// RepositoryRef identifies the repository that is being watched.
type RepositoryRef struct {
	// URL is the repository URL as configured, used for cloning.
	URL string
	// Endpoint is the scheme and host of the URL, e.g. https://github.com
	Endpoint string
	Author   string
	Name     string
}

// FullName returns the "author/name" form of the repository.
func (r RepositoryRef) FullName() string {
	return r.Author + "/" + r.Name
}

// ParseRepositoryURL parses an HTTP(S) repository URL into a RepositoryRef.
//
// GitLab subgroups are supported, everything before the last path element is
// the author.
func ParseRepositoryURL(s string) (RepositoryRef, error) {
	parsed, err := url.Parse(s)
	if err != nil {
		return RepositoryRef{}, fmt.Errorf("failed to parse repo from URL %#v: %s", s, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return RepositoryRef{}, fmt.Errorf("unsupported repository URL %#v: must be http or https", s)
	}
	repoPath := strings.Trim(strings.TrimSuffix(parsed.Path, ".git"), "/")
	idx := strings.LastIndex(repoPath, "/")
	if idx <= 0 || idx == len(repoPath)-1 {
		return RepositoryRef{}, fmt.Errorf("invalid repository URL %#v: want <host>/<author>/<name>", s)
	}
	return RepositoryRef{
		URL:      s,
		Endpoint: fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host),
		Author:   repoPath[:idx],
		Name:     repoPath[idx+1:],
	}, nil
}

// CloneURL returns the URL to clone the repository from.
func (r RepositoryRef) CloneURL() string {
	return fmt.Sprintf("%s/%s.git", r.Endpoint, r.FullName())
}
