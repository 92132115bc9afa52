package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rohankatakam/prhelper/internal/cache"
	"github.com/rohankatakam/prhelper/internal/config"
	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/rohankatakam/prhelper/internal/git"
	"github.com/rohankatakam/prhelper/internal/github"
	"github.com/rohankatakam/prhelper/internal/heuristics"
	"github.com/rohankatakam/prhelper/internal/models"
	"github.com/rohankatakam/prhelper/internal/output"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	noCache       bool
	showConflicts bool
	fromGit       bool
)

func addRankFlags(cmd *cobra.Command) {
	def := config.Default()
	flags := cmd.Flags()
	flags.String("url", def.GitHub.PullsURL, "GitHub API pulls URL of the repository")
	flags.Int("per-page", def.GitHub.PerPage, "PRs per page when listing (max 100)")
	flags.Int("cache-time-sec", int(def.Cache.TTL/time.Second), "seconds the cached PR list stays fresh")
	flags.Int("max-mutual-pr-conflicts", def.Ranking.MaxFileConflicts, "how many other PRs may share a file with a PR it still counts as unique")
	flags.Int("workers", def.Ranking.Workers, "concurrent file list fetches")
	flags.String("format", def.Output.Format, "output format: text, json or yaml")
	flags.BoolVar(&noCache, "no-cache", false, "ignore the cached PR list and refresh it")
	flags.BoolVar(&showConflicts, "show-conflicts", false, "also report which PRs share files")
	flags.BoolVar(&fromGit, "from-git", false, "rank the GitHub repository of the current checkout's origin remote")
}

func applyRankFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		c.GitHub.PullsURL, _ = flags.GetString("url")
	}
	if flags.Changed("per-page") {
		c.GitHub.PerPage, _ = flags.GetInt("per-page")
	}
	if flags.Changed("cache-time-sec") {
		secs, _ := flags.GetInt("cache-time-sec")
		c.Cache.TTL = time.Duration(secs) * time.Second
	}
	if flags.Changed("max-mutual-pr-conflicts") {
		c.Ranking.MaxFileConflicts, _ = flags.GetInt("max-mutual-pr-conflicts")
	}
	if flags.Changed("workers") {
		c.Ranking.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("format") {
		c.Output.Format, _ = flags.GetString("format")
	}
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fromGit {
		if err := useGitRemote(ctx, cmd); err != nil {
			return err
		}
	}

	runLog := logger.WithFields(logrus.Fields{
		"run_id":  uuid.NewString(),
		"project": cfg.ProjectID,
	})

	formatter, err := output.NewFormatter(cfg.Output.Format)
	if err != nil {
		return errors.ValidationError(err.Error())
	}

	endpoint, err := github.ParsePullsURL(cfg.GitHub.PullsURL)
	if err != nil {
		return errors.ValidationError(err.Error())
	}

	client, err := newGitHubClient(endpoint, runLog)
	if err != nil {
		return err
	}

	manager, store, err := openManager()
	if err != nil {
		return err
	}
	defer store.Close()

	prs, err := loadPullRequests(ctx, manager, client, endpoint, runLog)
	if err != nil {
		return err
	}

	progress := output.NewProgressReporter(os.Stderr, logger.Logger)
	opts := heuristics.Options{
		Workers:  cfg.Ranking.Workers,
		Progress: progress.Update,
		Logger:   logger.Logger,
	}

	started := time.Now()
	snap, err := heuristics.Collect(ctx, prs, client.Repo(endpoint.Owner, endpoint.Repo), opts)
	if err != nil {
		progress.Done()
		return err
	}
	entries, err := snap.Rank(cfg.Ranking.MaxFileConflicts, opts)
	progress.Done()
	if err != nil {
		return err
	}
	runLog.WithFields(logrus.Fields{
		"prs":      len(prs),
		"unique":   len(entries),
		"duration": time.Since(started).Round(time.Millisecond).String(),
	}).Debug("Ranking complete")

	report := &output.Report{
		Project:          cfg.ProjectID,
		MaxFileConflicts: cfg.Ranking.MaxFileConflicts,
		GeneratedAt:      time.Now().UTC(),
		TotalPRs:         len(prs),
		Entries:          entries,
	}
	if showConflicts {
		report.Conflicts = snap.Conflicts()
		for _, c := range report.Conflicts {
			runLog.WithFields(logrus.Fields{"pr": c.Number, "conflicts_with": c.ConflictsWith}).Debug("File name based conflicts")
		}
	}

	return formatter.Format(report, cmd.OutOrStdout())
}

// useGitRemote points the run at the origin remote of the working directory,
// under the configured API root. The repository name becomes the project id
// unless one was given.
func useGitRemote(ctx context.Context, cmd *cobra.Command) error {
	owner, repo, err := git.DetectRepository(ctx, "", "origin")
	if err != nil {
		return errors.ConfigErrorf("cannot use --from-git: %v", err)
	}
	apiURL := cfg.GitHub.APIURL
	if apiURL == "" {
		apiURL = github.DefaultAPIURL
	}
	cfg.GitHub.PullsURL = git.PullsURL(apiURL, owner, repo)
	if !cmd.Flags().Changed("project-id") {
		cfg.ProjectID = repo
	}
	logger.WithField("repo", owner+"/"+repo).Debug("Using repository of origin remote")
	return nil
}

// newGitHubClient resolves the token and builds the API client. A missing
// token only produces a warning.
func newGitHubClient(endpoint *github.PullsEndpoint, log *logrus.Entry) (*github.Client, error) {
	creds := config.NewCredentialManager(cfg.GitHub.TokenFile, config.NewKeyringManager(logger.Logger))
	token, source, err := creds.GetGitHubToken()
	switch {
	case err == nil:
		log.WithField("source", source).Info("Using token based GitHub access")
	case errors.GetSeverity(err) == errors.SeverityLow:
		log.Warn(err.Error())
		log.Warn("Set up an access token at: https://github.com/settings/tokens")
	default:
		return nil, err
	}

	return github.NewClient(github.ClientConfig{
		Token:         token,
		BaseURL:       endpoint.BaseURL,
		PerPage:       cfg.GitHub.PerPage,
		RateLimit:     cfg.GitHub.RateLimit,
		RetryAttempts: cfg.GitHub.RetryAttempts,
		ProxyURL:      cfg.GitHub.Proxy,
		Timeout:       cfg.GitHub.Timeout,
		UserAgent:     fmt.Sprintf("prhelper/%s", Version),
	}, logger.Logger)
}

// loadPullRequests serves the PR list from the cache when fresh, otherwise
// fetches it and refreshes the cache
func loadPullRequests(ctx context.Context, manager *cache.Manager, client *github.Client, endpoint *github.PullsEndpoint, log *logrus.Entry) ([]models.PullRequest, error) {
	if !noCache {
		prs, ok, err := manager.Load(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			log.WithField("prs", len(prs)).Info("Using previously downloaded PR data")
			return prs, nil
		}
	}

	log.WithField("repo", endpoint.Owner+"/"+endpoint.Repo).Info("Downloading PR data")
	prs, err := client.ListOpenPullRequests(ctx, endpoint.Owner, endpoint.Repo)
	if err != nil {
		return nil, err
	}
	log.WithField("prs", len(prs)).Info("Fetched open PRs")

	if err := manager.Store(ctx, prs); err != nil {
		// Ranking can go on without the cache
		log.WithError(err).Warn("Failed to save PR data")
	} else {
		log.WithField("location", manager.Location()).Info("New PR data saved")
	}
	return prs, nil
}
