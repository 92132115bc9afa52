package git

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

var (
	httpsRemote = regexp.MustCompile(`^(?:https?|git|ssh)://(?:[^@/]+@)?[^/]+/([^/]+)/([^/]+?)/?$`)
	scpRemote   = regexp.MustCompile(`^[^@/]+@[^:]+:([^/]+)/([^/]+?)/?$`)
)

// ParseRepoURL extracts owner and repo name from git remote URL
// Supports multiple URL formats:
//   - HTTPS: https://github.com/owner/repo.git
//   - SSH: git@github.com:owner/repo.git, ssh://git@github.com/owner/repo
//   - Git protocol: git://github.com/owner/repo.git
func ParseRepoURL(remoteURL string) (owner, repo string, err error) {
	u := strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")

	for _, re := range []*regexp.Regexp{httpsRemote, scpRemote} {
		if m := re.FindStringSubmatch(u); len(m) == 3 {
			return m[1], m[2], nil
		}
	}
	return "", "", fmt.Errorf("unrecognized git URL format: %s", remoteURL)
}

// RemoteURL returns the URL of remote in the repository at dir
// ("" means the working directory)
func RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	args := []string{"config", "--get", "remote." + remote + ".url"}
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	output, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return "", fmt.Errorf("no remote %q configured (not a git repository?): %w", remote, err)
	}

	url := strings.TrimSpace(string(output))
	if url == "" {
		return "", fmt.Errorf("remote.%s.url is empty", remote)
	}
	return url, nil
}

// PullsURL builds the API pulls listing URL for owner/repo under apiBase
func PullsURL(apiBase, owner, repo string) string {
	return fmt.Sprintf("%s/repos/%s/%s/pulls", strings.TrimSuffix(apiBase, "/"), owner, repo)
}

// DetectRepository resolves owner and repo name from remote of the
// repository at dir
func DetectRepository(ctx context.Context, dir, remote string) (owner, repo string, err error) {
	url, err := RemoteURL(ctx, dir, remote)
	if err != nil {
		return "", "", err
	}
	return ParseRepoURL(url)
}
