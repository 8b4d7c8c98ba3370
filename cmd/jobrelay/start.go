package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/anvers/jobrelay/internal/model"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the sync daemon",
	Long:  "Runs one immediate synchronization, then keeps syncing on the configured cron schedule or interval until interrupted.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := openHistory(cfg, logger)
	if err != nil {
		logger.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	driver := buildDriver(cfg, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func(source model.JobSource) {
		if _, err := driver.Run(ctx, source); err != nil {
			logger.Error("sync run failed", "error", err)
		}
	}

	// One immediate run at startup, then the schedule takes over.
	runOnce(model.SourceManual)

	if cfg.Schedule.Cron != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.Schedule.Cron, func() { runOnce(model.SourceScheduled) }); err != nil {
			logger.Error("invalid cron schedule", "cron", cfg.Schedule.Cron, "error", err)
			os.Exit(1)
		}
		logger.Info("daemon started", "cron", cfg.Schedule.Cron)
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		logger.Info("shutting down")
		return nil
	}

	logger.Info("daemon started", "interval", cfg.Schedule.Interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-time.After(cfg.Schedule.Interval):
			runOnce(model.SourceScheduled)
		}
	}
}
