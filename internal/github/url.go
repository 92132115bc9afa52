package github

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PullsEndpoint is a parsed ".../repos/OWNER/REPO/pulls" API URL
type PullsEndpoint struct {
	BaseURL string // API root with trailing slash, e.g. https://api.github.com/
	Owner   string
	Repo    string
}

// ParsePullsURL splits a pulls listing URL into API root and repository.
// Query parameters are ignored; the client always lists open PRs.
// GitHub Enterprise roots such as https://ghe.example.com/api/v3/ are kept.
func ParsePullsURL(raw string) (*PullsEndpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse pulls URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("pulls URL %q must be absolute", raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	idx := -1
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == "repos" {
			idx = i
			break
		}
	}
	if idx < 0 || len(segments) < idx+4 || segments[idx+3] != "pulls" {
		return nil, fmt.Errorf("pulls URL %q is not of the form .../repos/OWNER/REPO/pulls", raw)
	}
	owner, repo := segments[idx+1], segments[idx+2]
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("pulls URL %q is missing owner or repository", raw)
	}

	root := *u
	root.RawQuery = ""
	root.Fragment = ""
	root.Path = "/" + strings.Join(segments[:idx], "/")
	if !strings.HasSuffix(root.Path, "/") {
		root.Path += "/"
	}

	return &PullsEndpoint{
		BaseURL: root.String(),
		Owner:   owner,
		Repo:    repo,
	}, nil
}

// PullRef identifies one pull request by repository and number
type PullRef struct {
	Owner  string
	Repo   string
	Number int
}

// ParsePullURL splits a pull request API URL ".../repos/OWNER/REPO/pulls/N"
func ParsePullURL(raw string) (*PullRef, error) {
	n, err := numberFromURL(raw)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(raw)
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// segments end in repos, OWNER, REPO, pulls, N
	if len(segments) < 5 || segments[len(segments)-5] != "repos" {
		return nil, fmt.Errorf("no repository in %q", raw)
	}
	owner, repo := segments[len(segments)-4], segments[len(segments)-3]
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("no repository in %q", raw)
	}
	return &PullRef{Owner: owner, Repo: repo, Number: n}, nil
}

// numberFromURL extracts the PR number from ".../pulls/123"
func numberFromURL(raw string) (int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[len(segments)-2] != "pulls" {
		return 0, fmt.Errorf("no pull request number in %q", raw)
	}
	n, err := strconv.Atoi(segments[len(segments)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid pull request number in %q", raw)
	}
	return n, nil
}
