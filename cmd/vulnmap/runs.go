package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vulnmap/internal/config"
	"vulnmap/internal/store"
)

var (
	runsRepo  string
	runsLimit int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded analysis runs",
	Long: `List analysis runs stored in the local run history.

Examples:
  vulnmap runs
  vulnmap runs --repo https://github.com/example/project.git
  vulnmap runs --limit 5`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsRepo, "repo", "", "Only show runs for this repository")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
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

	runs, err := s.ListRuns(cmd.Context(), runsRepo, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREPO\tWHEN\tMODULES\tFINDINGS\tCRITICAL")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.Repo, r.CreatedAt.Local().Format(time.DateTime),
			r.Modules, r.Findings, r.Critical)
	}
	return tw.Flush()
}
