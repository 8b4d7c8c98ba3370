package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/anvers/jobrelay/internal/history"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Browse recorded sync runs (TUI)",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		logger.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	runs, err := store.Recent(runsLimit)
	if err != nil {
		logger.Error("failed to load runs", "error", err)
		os.Exit(1)
	}

	return history.RunBrowser(runs)
}
