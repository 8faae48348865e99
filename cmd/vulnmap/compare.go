package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vulnmap/internal/compare"
	"vulnmap/internal/config"
	"vulnmap/internal/store"
)

var compareCmd = &cobra.Command{
	Use:   "compare <before-run-id> <after-run-id>",
	Short: "Compare two recorded analysis runs",
	Long: `Compare two runs from history and report whether the project's
security posture improved or regressed.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
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

	_, before, err := s.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	_, after, err := s.GetRun(cmd.Context(), args[1])
	if err != nil {
		return err
	}

	diff := compare.Runs(before, after)

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tBEFORE\tAFTER\tDELTA\tTREND")
	for _, m := range diff.Metrics {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%+d\t%s\n", m.Name, m.Before, m.After, m.Delta, m.Trend)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(diff.AddedModules) > 0 {
		fmt.Printf("\nAdded modules: %s\n", strings.Join(diff.AddedModules, ", "))
	}
	if len(diff.RemovedModules) > 0 {
		fmt.Printf("Removed modules: %s\n", strings.Join(diff.RemovedModules, ", "))
	}

	if regressions := diff.Regressions(); len(regressions) > 0 {
		fmt.Printf("\n%d metric(s) regressed.\n", len(regressions))
	} else {
		fmt.Println("\nNo regressions.")
	}

	return nil
}
