package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vulnmap/internal/config"
	"vulnmap/internal/gitfetch"
	"vulnmap/internal/logging"
	"vulnmap/internal/version"
)

var (
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// logFormatFlag is the CLI --log-format flag value
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "vulnmap",
	Short: "vulnmap - dependency graph and attack surface analyzer",
	Long: `vulnmap analyzes a Python codebase: it reconstructs the module
dependency graph, computes structural risk metrics (hubs, bridges, cycles),
detects dangerous code patterns per module, and maps the attack surface from
web entry points to the modules containing those patterns.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("vulnmap version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, or error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json (default from config)")
}

// newLogger builds the logger for a command. CLI flags override the
// config file, which overrides the defaults.
func newLogger(cfg *config.Config) *logging.Logger {
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(format),
		Level:  logging.LogLevel(level),
		Output: os.Stderr,
	})
}

// isRemote reports whether the analysis target is a repository URL
// rather than a local directory.
func isRemote(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "git@")
}

// resolveTarget turns the analysis target into a local directory,
// cloning it first when it is remote. The second return is the label
// used for run history.
func resolveTarget(ctx context.Context, target string, cfg *config.Config, logger *logging.Logger) (string, string, error) {
	if !isRemote(target) {
		return target, target, nil
	}

	fetcher := gitfetch.New(cfg.Fetch.WorkDir,
		time.Duration(cfg.Fetch.CloneTimeoutMs)*time.Millisecond, logger)
	dir, err := fetcher.Clone(ctx, target)
	if err != nil {
		return "", "", err
	}
	return dir, target, nil
}
