package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anvers/jobrelay/internal/model"
	"github.com/anvers/jobrelay/internal/webhook"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Send a signed test payload to the webhook",
	Long:  "Builds a one-job test payload, signs it, and delivers it so the receiving end can verify signature handling.",
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	testJob := model.NormalizedJob{
		ID:          "verify-001",
		Title:       "Webhook Verification — Integration Test",
		Location:    "Everywhere",
		ApplyURL:    "https://example.com/jobs/verify-001",
		Source:      model.SourceManual,
		PostedAt:    now,
		ProcessedAt: now,
	}

	env, err := webhook.BuildEnvelope([]model.NormalizedJob{testJob}, model.SourceManual, cfg.Webhook.Secret)
	if err != nil {
		logger.Error("failed to build test payload", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.Delivery.Timeout}
	client := webhook.NewClient(cfg.Webhook.URL, httpClient, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Delivery.Timeout)
	defer cancel()

	res, err := client.Deliver(ctx, env)
	if err != nil {
		logger.Error("test delivery failed", "status", res.StatusCode, "error", err)
		os.Exit(1)
	}

	logger.Info("test delivery accepted", "request_id", res.RequestID, "status", res.StatusCode)
	return nil
}
