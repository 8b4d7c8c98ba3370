package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anvers/jobrelay/internal/history"
	"github.com/anvers/jobrelay/internal/model"
	"github.com/anvers/jobrelay/internal/pipeline"
)

var dryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one synchronization and exit",
	Long:  "Fetches jobs once, signs the payload, and delivers it to the webhook. With --dry-run no delivery happens and no history is recorded.",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "fetch and sign but do not deliver or record history")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var store history.Store
	var driver *pipeline.Driver
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be delivered or recorded")
		store = history.NewNopStore()
		driver = buildDryRunDriver(cfg, store, logger)
	} else {
		sqlStore, err := openHistory(cfg, logger)
		if err != nil {
			logger.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		store = sqlStore
		driver = buildDriver(cfg, store, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := driver.Run(ctx, model.SourceManual)
	if err != nil {
		logger.Error("sync run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("sync finished",
		"method", summary.Method,
		"jobs", summary.JobCount,
		"delivered", summary.Delivered,
		"duration", summary.Duration.String(),
	)
	return nil
}
