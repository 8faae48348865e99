package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"vulnmap/internal/analyzer"
	"vulnmap/internal/config"
	"vulnmap/internal/logging"
	"vulnmap/internal/pymanifest"
	"vulnmap/internal/report"
	"vulnmap/internal/rules"
	"vulnmap/internal/source"
	"vulnmap/internal/store"
)

var (
	analyzeJSON    bool
	analyzeNoSave  bool
	analyzeWorkers int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path-or-repo-url>",
	Short: "Analyze a Python project",
	Long: `Analyze a local directory or a remote git repository.

Examples:
  vulnmap analyze ./myproject
  vulnmap analyze https://github.com/example/project.git
  vulnmap analyze ./myproject --json > result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit the full result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeNoSave, "no-save", false, "Skip recording the run in history")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "File-scan worker pool size (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	// Ctrl-C cancels the run cooperatively between file scans and
	// pipeline stages.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	root, repoLabel, err := resolveTarget(ctx, args[0], cfg, logger)
	if err != nil {
		return err
	}

	tree, err := source.LoadDir(ctx, root, source.LoadOptions{
		Ignore:           cfg.Scan.Ignore,
		MaxFileSizeBytes: int64(cfg.Scan.MaxFileSizeBytes),
		MaxFiles:         cfg.Scan.MaxFiles,
	}, logger)
	if err != nil {
		return err
	}

	rs, err := rules.Load(root)
	if err != nil {
		return err
	}

	workers := cfg.Scan.Workers
	if analyzeWorkers > 0 {
		workers = analyzeWorkers
	}

	result, err := analyzer.Analyze(ctx, tree, analyzer.Options{
		Rules:             rs,
		Workers:           workers,
		MaxCycles:         cfg.Analysis.MaxCycles,
		MaxAttackDistance: cfg.Analysis.MaxAttackDistance,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	if analyzeJSON {
		if err := report.WriteJSON(result, os.Stdout, true); err != nil {
			return err
		}
	} else {
		if err := report.RenderText(result, os.Stdout); err != nil {
			return err
		}
		printUndeclared(root, result, logger)
	}

	if cfg.Storage.Enabled && !analyzeNoSave {
		s, err := store.Open(".", logger)
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := s.SaveRun(ctx, repoLabel, result)
		if err != nil {
			return err
		}
		if !analyzeJSON {
			fmt.Printf("\nRun saved as %s\n", id)
		}
	}

	return nil
}

// printUndeclared cross-checks observed external imports against the
// project's declared dependencies.
func printUndeclared(root string, result *analyzer.Result, logger *logging.Logger) {
	manifest, err := pymanifest.Load(root)
	if err != nil {
		logger.Warn("Failed to read project manifest", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if manifest.Source == "" {
		return
	}

	missing := manifest.Undeclared(result.Externals)
	if len(missing) == 0 {
		return
	}

	fmt.Println()
	fmt.Printf("Imported but not declared in %s:\n", manifest.Source)
	for _, name := range missing {
		fmt.Printf("  %s\n", name)
	}
}
