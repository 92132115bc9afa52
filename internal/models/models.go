package models

import (
	"time"
)

// PullRequest represents an open GitHub pull request
type PullRequest struct {
	Number    int       `json:"number" yaml:"number" db:"number"`
	Title     string    `json:"title" yaml:"title" db:"title"`
	URL       string    `json:"url" yaml:"url" db:"url"`                // API URL, files live under URL + "/files"
	HTMLURL   string    `json:"html_url" yaml:"html_url" db:"html_url"` // Browser URL
	Author    string    `json:"author,omitempty" yaml:"author,omitempty" db:"author"`
	State     string    `json:"state,omitempty" yaml:"state,omitempty" db:"state"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" db:"updated_at"`
}

// HasReference reports whether the PR carries something a fetcher can resolve
func (pr *PullRequest) HasReference() bool {
	return pr != nil && (pr.Number > 0 || pr.URL != "")
}

// ChangedFile represents a single file touched by a pull request
type ChangedFile struct {
	Filename  string `json:"filename" yaml:"filename"`
	Status    string `json:"status,omitempty" yaml:"status,omitempty"`
	Additions int    `json:"additions" yaml:"additions"`
	Deletions int    `json:"deletions" yaml:"deletions"`
	Changes   int    `json:"changes" yaml:"changes"` // additions + deletions
}

// FileSet is the set of distinct filenames touched by a PR.
// Filenames compare case-sensitively.
type FileSet map[string]struct{}

// NewFileSet collapses a changed-file list into its distinct filenames
func NewFileSet(files []ChangedFile) FileSet {
	set := make(FileSet, len(files))
	for _, f := range files {
		set[f.Filename] = struct{}{}
	}
	return set
}

// Contains reports whether filename is in the set
func (s FileSet) Contains(filename string) bool {
	_, ok := s[filename]
	return ok
}

// Intersects reports whether the two sets share at least one filename
func (s FileSet) Intersects(other FileSet) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for name := range small {
		if _, ok := large[name]; ok {
			return true
		}
	}
	return false
}

// RankedEntry is one non-conflicting PR with its size scores
type RankedEntry struct {
	Number        int    `json:"number" yaml:"number"`
	Title         string `json:"title" yaml:"title"`
	HTMLURL       string `json:"html_url,omitempty" yaml:"html_url,omitempty"`
	ModifiedFiles int    `json:"modified_files" yaml:"modified_files"`
	ModifiedLines int    `json:"modified_lines" yaml:"modified_lines"`
	Complexity    int    `json:"complexity" yaml:"complexity"` // ModifiedFiles * ModifiedLines
}

// CacheMetadata describes a stored PR list
type CacheMetadata struct {
	Version   int       `json:"version" db:"version"`
	Size      int       `json:"size" db:"size"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	// OWNER/REPO the list was fetched from, empty in older entries
	Repository string `json:"repository,omitempty" db:"repository"`
}

// CachedPRs is the on-disk shape of the PR cache
type CachedPRs struct {
	Meta CacheMetadata `json:"meta"`
	PRs  []PullRequest `json:"prs"`
}
