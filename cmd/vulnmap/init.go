package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vulnmap/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Create .vulnmap/config.json with the default settings so they can be edited.`,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if err := cfg.Save("."); err != nil {
		return err
	}
	fmt.Println("Wrote .vulnmap/config.json")
	return nil
}
