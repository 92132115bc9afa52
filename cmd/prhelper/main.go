package main

import (
	"fmt"
	"os"

	"github.com/rohankatakam/prhelper/internal/config"
	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/rohankatakam/prhelper/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logging.Logger
	cfg     *config.Config
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		logger.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "prhelper",
	Short: "Find open pull requests that are easy to merge first",
	Long: `prhelper fetches the open pull requests of a GitHub repository, keeps a
local copy of the list, and shows the PRs that touch files no other PR
touches, least complex first.

It only reads from GitHub.`,
	Version:           Version,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runRank,
}

// setup loads configuration, applies flags and builds the logger.
// A config that exists but cannot be decoded stops the run.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return errors.ConfigErrorf("%v", err)
	}
	applyFlags(cmd, cfg)

	level := cfg.Log.Level
	if verbose {
		level = logrus.DebugLevel.String()
	}
	logger, err = logging.NewLogger(logging.Config{
		Level:      level,
		OutputFile: cfg.Log.File,
		JSONFormat: cfg.Log.JSON,
	})
	if err != nil {
		logger, _ = logging.NewLogger(logging.Config{})
		logger.WithError(err).Warn("Failed to set up logging, using defaults")
	}

	result := cfg.Validate()
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	return result.Err()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .prhelper/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("project-id", config.DefaultProjectID, "project name, used as the cache key")
	rootCmd.PersistentFlags().String("cache-backend", "json", "cache backend: json, bolt or sqlite")

	rootCmd.SetVersionTemplate(`prhelper {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	addRankFlags(rootCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(openCmd)
}

// applyFlags copies explicitly set flags over the loaded configuration
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("project-id") {
		c.ProjectID, _ = flags.GetString("project-id")
	}
	if flags.Changed("cache-backend") {
		c.Cache.Backend, _ = flags.GetString("cache-backend")
	}
	if !cmd.HasParent() {
		applyRankFlags(cmd, c)
	}
}
