// Repopackd clones public repositories and packs them into one annotated
// text document, streaming progress and pausing for an interactive
// exclusion step.
//
// Usage:
//
//	# Serve the streaming HTTP API
//	repopackd serve
//
//	# Pack one repository locally, answering the selection on stdin
//	repopackd pack https://github.com/owner/repo -o repo.md
//
//	# Delete expired stored artifacts once
//	repopackd sweep
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/repopackd/internal/config"
	"github.com/fyrsmithlabs/repopackd/internal/logging"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configPath overrides the default config file location.
var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repopackd",
	Short: "Pack source repositories into a single annotated document",
	Long: `repopackd fetches a public repository, lets the caller exclude large files,
and packs the rest into one Markdown or XML document.

Configuration is read from ~/.config/repopackd/config.yaml and REPOPACKD_*
environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/repopackd/config.yaml)")
	rootCmd.AddCommand(serveCmd, packCmd, sweepCmd, versionCmd)
}

// loadConfig loads configuration and builds the process logger.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	lc := logging.NewDefaultConfig()
	lc.Level = cfg.Logging.Level
	lc.Format = cfg.Logging.Format
	lc.Output = cfg.Logging.Output
	lc.Fields["version"] = version
	logger, err := logging.NewLogger(lc, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "repopackd %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  Git commit: %s\n", gitCommit)
		fmt.Fprintf(cmd.OutOrStdout(), "  Build date: %s\n", buildDate)
	},
}
