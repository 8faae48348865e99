package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vulnmap/internal/config"
	"vulnmap/internal/report"
	"vulnmap/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a recorded run as gzip-compressed JSON",
	Long: `Export a run from history for archival or external tooling.

Examples:
  vulnmap export 4f1c... --out result.json.gz`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "result.json.gz", "Output file path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	s, err := store.Open(".", logger)
	if err != nil {
		return err
	}
	defer s.Close()

	_, result, err := s.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if err := report.ExportGzipJSON(result, exportOut); err != nil {
		return err
	}

	fmt.Printf("Exported run %s to %s\n", args[0], exportOut)
	return nil
}
