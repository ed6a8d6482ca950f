// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pydiscover/internal/config"
	"pydiscover/internal/issue"
	"pydiscover/pkg/cache"
	"pydiscover/pkg/discovery"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables diagnostic output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// noCache disables the on-disk metadata cache
	noCache bool
	// hintDirs are extra directories searched before anything else
	hintDirs []string

	// cfg is the loaded configuration, set by initRootConfig.
	cfg *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "pydiscover",
		Short: "Locate Python interpreters matching a requirement",
		Long: TitleStyle.Render("pydiscover") + SubtitleStyle.Render(" - find Python interpreters on this host") + `

pydiscover searches the places interpreters actually live - PATH, the
Windows registry, pyenv/mise/asdf installs and shims, uv toolchains -
verifies candidates by running them, and caches their metadata so repeat
lookups are cheap.

` + SubtitleStyle.Render("Examples:") + `
  pydiscover find python3.12          First CPython 3.12 on this host
  pydiscover find pypy3.9 python3     PyPy 3.9, falling back to any python3
  pydiscover find ">=3.11,<3.13"      Any interpreter in the version range
  pydiscover info /usr/bin/python3    Probe one executable
  pydiscover list                     Every interpreter, newest first
  pydiscover cache clear              Drop cached metadata`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.cue in the platform pydiscover config directory)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "probe every candidate fresh, store nothing")
	rootCmd.PersistentFlags().StringArrayVar(&hintDirs, "hint", nil, "directory to search before all providers (repeatable)")

	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(cacheCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// initRootConfig loads the configuration file, warning instead of failing so
// a broken config never blocks discovery.
func initRootConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		loaded = config.DefaultConfig()
	}
	cfg = loaded

	if !verbose && cfg.UI.Verbose {
		verbose = true
	}
}

// buildLogger creates the CLI's diagnostics logger; debug level when
// verbose.
func buildLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "pydiscover",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

// buildOptions assembles discovery options from config and flags.
func buildOptions(logger *log.Logger) discovery.Options {
	opts := discovery.Options{
		TryFirstWith: append(append([]string{}, hintDirs...), cfg.TryFirstWith...),
		Timeout:      time.Duration(cfg.ProbeTimeoutSeconds) * time.Second,
		Logger:       logger,
		Sink:         discovery.LogSink{Logger: logger},
	}
	if store := buildCache(); store != nil {
		opts.Cache = store
	}
	return opts
}

// buildCache returns the disk cache, or nil when caching is disabled by
// flag or unconfigured.
func buildCache() cache.Cache {
	if noCache || cfg.CacheDir == "" {
		return nil
	}
	return cache.NewDisk(cfg.CacheDir)
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// render their suggestions in verbose mode.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
