// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Amr112345/yanu/internal/config"
	"github.com/Amr112345/yanu/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug-level logging
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "yanu",
		Short: "Apply game updates to NSP archives",
		Long: TitleStyle.Render("yanu") + SubtitleStyle.Render(" - Yet Another NSP Updater") + `

yanu merges a base game archive with its update archive into a single
patched NSP, driving the hactool family of external tools for container
extraction, classification, and packing. Tools are acquired on first use
(cached, embedded, or built from source) and kept in a per-user cache.

A prod.keys keyset is required; the well-known ~/.switch location is used
unless configured otherwise.

` + SubtitleStyle.Render("Examples:") + `
  yanu patch --base base.nsp --update update.nsp
  yanu repack --controlnca control.nca --titleid 0100deadbeef0000 \
      --romfsdir ./romfs --exefsdir ./exefs
  yanu config show           Show current configuration
  yanu backends list         Show tool cache state`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the platform config dir)")

	// Add subcommands
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(repackCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(backendsCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		// fang already rendered the headline; surface remediation hints
		// separately so they survive the styled error card.
		var ae *issue.ActionableError
		if errors.As(err, &ae) && ae.HasSuggestions() {
			for _, s := range ae.Suggestions {
				fmt.Fprintln(os.Stderr, WarningStyle.Render("  • ")+s)
			}
		}

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig applies global flags before any subcommand runs.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// loadConfig loads and validates the effective configuration for subcommands
// that drive the pipeline.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}
