package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vulnmap/internal/config"
	"vulnmap/internal/report"
	"vulnmap/internal/store"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded analysis run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Emit the stored result as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
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

	meta, result, err := s.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if showJSON {
		return report.WriteJSON(result, os.Stdout, true)
	}

	fmt.Printf("Run %s  (%s, %s)\n\n", meta.ID, meta.Repo, meta.CreatedAt.Local())
	return report.RenderText(result, os.Stdout)
}
