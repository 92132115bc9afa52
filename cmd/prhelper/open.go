package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/browser"
	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/spf13/cobra"
)

// openURL is swapped out in tests
var openURL = browser.OpenURL

var openCmd = &cobra.Command{
	Use:   "open <number>",
	Short: "Open a cached pull request in the browser",
	Long: `Open a pull request from the cached PR list in the default browser.

Only the local cache is consulted; run a ranking first.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func runOpen(cmd *cobra.Command, args []string) error {
	number, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil || number <= 0 {
		return errors.ValidationErrorf("invalid PR number %q", args[0])
	}

	manager, store, err := openManager()
	if err != nil {
		return err
	}
	defer store.Close()

	pr, err := manager.Lookup(cmd.Context(), number)
	if err != nil {
		return err
	}
	if pr.HTMLURL == "" {
		return errors.ValidationErrorf("PR #%d has no browser URL in the cache", number)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Opening PR #%d: %s\n", pr.Number, pr.Title)
	if err := openURL(pr.HTMLURL); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
