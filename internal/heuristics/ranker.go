// Package heuristics ranks open pull requests by how independent and how
// small they are, so the least entangled PRs can be reviewed first.
package heuristics

import (
	"context"
	"sort"

	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Progress phases
const (
	PhaseFetch = "fetch"
	PhaseScore = "score"
)

// DefaultWorkers is the fetch concurrency used when Options.Workers is unset
const DefaultWorkers = 1

// FileFetcher returns the changed files of one pull request
type FileFetcher interface {
	GetChangedFiles(ctx context.Context, pr models.PullRequest) ([]models.ChangedFile, error)
}

// FileFetcherFunc adapts a plain function to FileFetcher
type FileFetcherFunc func(ctx context.Context, pr models.PullRequest) ([]models.ChangedFile, error)

// GetChangedFiles calls f
func (f FileFetcherFunc) GetChangedFiles(ctx context.Context, pr models.PullRequest) ([]models.ChangedFile, error) {
	return f(ctx, pr)
}

// ProgressFunc receives (phase, done, total) updates. It must not block for long.
type ProgressFunc func(phase string, done, total int)

// Options tunes a ranking run without affecting its result
type Options struct {
	Workers  int
	Progress ProgressFunc
	Logger   *logrus.Logger
}

// prFiles holds everything fetched for one PR
type prFiles struct {
	pr    models.PullRequest
	files []models.ChangedFile
	set   models.FileSet
}

// Rank classifies prs into unique and conflicting ones and returns the unique
// ones ordered by (modified files, complexity), simplest first.
//
// A PR is unique when no more than maxFileConflicts other PRs touch any of
// its filenames. Conflicting PRs are dropped from the result.
// A fetch failure for any PR aborts the run with no partial result.
func Rank(ctx context.Context, prs []models.PullRequest, fetcher FileFetcher, maxFileConflicts int, opts Options) ([]models.RankedEntry, error) {
	if maxFileConflicts < 0 {
		return nil, errors.InvalidInput("max file conflicts must be >= 0, got %d", maxFileConflicts)
	}

	snap, err := Collect(ctx, prs, fetcher, opts)
	if err != nil {
		return nil, err
	}

	return snap.Rank(maxFileConflicts, opts)
}

// Snapshot holds every PR's fetched files for one run. Ranking a snapshot
// never triggers another fetch.
type Snapshot struct {
	fetched []prFiles
}

// Collect fetches the changed files of every PR and returns the snapshot
func Collect(ctx context.Context, prs []models.PullRequest, fetcher FileFetcher, opts Options) (*Snapshot, error) {
	for i := range prs {
		if !prs[i].HasReference() {
			return nil, errors.InvalidInput("pull request at index %d has no number or URL", i)
		}
	}
	if len(prs) == 0 {
		return &Snapshot{}, nil
	}
	if fetcher == nil {
		return nil, errors.InvalidInput("file fetcher is required")
	}

	fetched, err := fetchAll(ctx, prs, fetcher, opts)
	if err != nil {
		return nil, err
	}
	return &Snapshot{fetched: fetched}, nil
}

// Len returns the number of PRs in the snapshot
func (s *Snapshot) Len() int {
	return len(s.fetched)
}

// Rank scores the snapshot against maxFileConflicts
func (s *Snapshot) Rank(maxFileConflicts int, opts Options) ([]models.RankedEntry, error) {
	if maxFileConflicts < 0 {
		return nil, errors.InvalidInput("max file conflicts must be >= 0, got %d", maxFileConflicts)
	}
	return score(s.fetched, maxFileConflicts, opts), nil
}

// ConflictReport lists, for one PR, every other PR it shares a file with
type ConflictReport struct {
	Number        int   `json:"number" yaml:"number"`
	ConflictsWith []int `json:"conflicts_with" yaml:"conflicts_with"`
}

// Conflicts computes the full conflict relation without short-circuiting.
// It is a diagnostic view and has no effect on Rank.
func (s *Snapshot) Conflicts() []ConflictReport {
	reports := make([]ConflictReport, 0, len(s.fetched))
	for i := range s.fetched {
		report := ConflictReport{Number: s.fetched[i].pr.Number, ConflictsWith: []int{}}
		for j := range s.fetched {
			if i != j && s.fetched[i].set.Intersects(s.fetched[j].set) {
				report.ConflictsWith = append(report.ConflictsWith, s.fetched[j].pr.Number)
			}
		}
		reports = append(reports, report)
	}
	return reports
}

// fetchAll retrieves every PR's files. Each worker writes only its own slot,
// and Wait is the barrier before any scoring starts.
func fetchAll(ctx context.Context, prs []models.PullRequest, fetcher FileFetcher, opts Options) ([]prFiles, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}

	results := make([]prFiles, len(prs))
	progress := newCounter(PhaseFetch, len(prs), opts.Progress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range prs {
		g.Go(func() error {
			pr := prs[i]
			files, err := fetcher.GetChangedFiles(gctx, pr)
			if err != nil {
				if errors.IsFetchError(err) || errors.IsInvalidInput(err) {
					return err
				}
				return errors.FetchErrorf(err, "failed to fetch files for PR #%d", pr.Number)
			}
			results[i] = prFiles{pr: pr, files: files, set: models.NewFileSet(files)}
			progress.inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Logger != nil {
		opts.Logger.WithField("prs", len(prs)).Debug("Fetched changed files for all pull requests")
	}
	return results, nil
}

// score counts conflicts, filters and sorts. It never observes a partial fetch.
func score(fetched []prFiles, maxFileConflicts int, opts Options) []models.RankedEntry {
	result := make([]models.RankedEntry, 0, len(fetched))
	progress := newCounter(PhaseScore, len(fetched), opts.Progress)

	for i := range fetched {
		p := &fetched[i]
		conflicts := countConflicts(fetched, i, maxFileConflicts)

		if conflicts <= maxFileConflicts {
			result = append(result, entryFor(p))
		} else if opts.Logger != nil {
			opts.Logger.WithFields(logrus.Fields{
				"pr":        p.pr.Number,
				"conflicts": conflicts,
			}).Debug("Dropping conflicting pull request")
		}
		progress.inc()
	}

	sort.SliceStable(result, func(a, b int) bool {
		if result[a].ModifiedFiles != result[b].ModifiedFiles {
			return result[a].ModifiedFiles < result[b].ModifiedFiles
		}
		return result[a].Complexity < result[b].Complexity
	})
	return result
}

// countConflicts counts the other PRs sharing a file with fetched[idx],
// stopping as soon as the count exceeds limit.
func countConflicts(fetched []prFiles, idx, limit int) int {
	own := fetched[idx].set
	count := 0
	for j := range fetched {
		if j == idx {
			continue
		}
		if own.Intersects(fetched[j].set) {
			count++
			if count > limit {
				break
			}
		}
	}
	return count
}

func entryFor(p *prFiles) models.RankedEntry {
	lines := 0
	for _, f := range p.files {
		if p.set.Contains(f.Filename) {
			lines += f.Changes
		}
	}
	files := len(p.set)
	return models.RankedEntry{
		Number:        p.pr.Number,
		Title:         p.pr.Title,
		HTMLURL:       p.pr.HTMLURL,
		ModifiedFiles: files,
		ModifiedLines: lines,
		Complexity:    files * lines,
	}
}
