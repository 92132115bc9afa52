package main

import (
	"fmt"
	"time"

	"github.com/rohankatakam/prhelper/internal/cache"
	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/rohankatakam/prhelper/internal/github"
	"github.com/rohankatakam/prhelper/internal/storage"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the cached PR list",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show age, size and freshness of the cached PR list",
	Args:  cobra.NoArgs,
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the cached PR list of the project",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openManager opens the configured backend; the caller closes the store.
// The manager is bound to the repository of the configured pulls URL.
func openManager() (*cache.Manager, storage.Store, error) {
	store, err := storage.Open(cfg.Cache.Backend, cfg.Cache.Directory, logger.Logger)
	if err != nil {
		return nil, nil, errors.FileSystemError(err, "failed to open PR cache")
	}
	manager := cache.NewManager(store, cfg.ProjectID, cfg.Cache.TTL, logger.Logger)
	if endpoint, err := github.ParsePullsURL(cfg.GitHub.PullsURL); err == nil {
		manager.ForRepository(endpoint.Owner + "/" + endpoint.Repo)
	}
	return manager, store, nil
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	manager, store, err := openManager()
	if err != nil {
		return err
	}
	defer store.Close()

	status, err := manager.Status(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project:  %s\n", cfg.ProjectID)
	fmt.Fprintf(out, "Backend:  %s\n", cfg.Cache.Backend)
	fmt.Fprintf(out, "Location: %s\n", status.Location)
	if !status.Present {
		fmt.Fprintln(out, "Status:   empty")
		return nil
	}

	freshness := "stale"
	if status.Fresh {
		freshness = "fresh"
	}
	fmt.Fprintf(out, "Status:   %s (window %s)\n", freshness, cfg.Cache.TTL)
	if status.Repository != "" {
		fmt.Fprintf(out, "Repo:     %s\n", status.Repository)
	}
	fmt.Fprintf(out, "Version:  %d (current %d)\n", status.Version, cache.CurrentVersion)
	fmt.Fprintf(out, "PRs:      %d\n", status.Size)
	fmt.Fprintf(out, "Saved:    %s (%s ago)\n", status.Saved.Local().Format("2006-01-02 15:04:05"), status.Age.Round(time.Second))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	manager, store, err := openManager()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := manager.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared cached PR data for %s\n", cfg.ProjectID)
	return nil
}
