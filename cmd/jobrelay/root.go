package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/anvers/jobrelay/internal/config"
	"github.com/anvers/jobrelay/internal/fetch"
	"github.com/anvers/jobrelay/internal/history"
	"github.com/anvers/jobrelay/internal/model"
	"github.com/anvers/jobrelay/internal/pipeline"
	"github.com/anvers/jobrelay/internal/retry"
	"github.com/anvers/jobrelay/internal/strategy"
	"github.com/anvers/jobrelay/internal/telemetry"
	"github.com/anvers/jobrelay/internal/webhook"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobrelay",
	Short: "Relay job listings to a CMS webhook",
	Long:  "jobrelay pulls job listings from the career-site platform and delivers a signed, normalized copy to the downstream CMS webhook.",
	// Default to `start` so that `jobrelay` with no args runs the daemon.
	// This preserves compatibility with systemd unit files that invoke the binary directly.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBRELAY_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBRELAY_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBRELAY_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupTelemetry(cfg *config.Config, logger *slog.Logger) telemetry.Telemetry {
	if cfg.Telemetry {
		return telemetry.NewLog(logger)
	}
	return telemetry.NewNop()
}

// buildStrategies assembles the fallback chain in priority order: cheapest and
// most reliable first, rendered-page scrape last.
func buildStrategies(cfg *config.Config) []model.FetchStrategy {
	return []model.FetchStrategy{
		strategy.NewAuthAPI(cfg.Platform.BaseURL, cfg.CompanyID, cfg.Platform.APIToken),
		strategy.NewPublicAPI(cfg.Platform.BaseURL, cfg.CompanyID),
		strategy.NewPageScrape(cfg.Platform.CareersURL),
	}
}

// buildDriver wires the full pipeline from config.
func buildDriver(cfg *config.Config, store history.Store, logger *slog.Logger) *pipeline.Driver {
	httpClient := &http.Client{Timeout: cfg.Delivery.Timeout}

	orchestrator := fetch.New(
		buildStrategies(cfg),
		httpClient,
		setupTelemetry(cfg, logger),
		cfg.Fetch.StrategyTimeout,
		logger,
	)

	var deliverer webhook.Deliverer = webhook.NewClient(cfg.Webhook.URL, httpClient, logger)
	deliverer = retry.NewRetryDeliverer(deliverer, cfg.Delivery.MaxRetries, cfg.Delivery.BaseDelay, logger)

	return pipeline.NewDriver(orchestrator, deliverer, store, cfg.CompanyID, cfg.Webhook.Secret, logger)
}

// dryRunDeliverer validates the signed envelope locally instead of sending it.
type dryRunDeliverer struct {
	secret string
	logger *slog.Logger
}

func (d *dryRunDeliverer) Deliver(_ context.Context, env *webhook.Envelope) (webhook.DeliveryResult, error) {
	verified := webhook.VerifySignature(env.Body, d.secret, env.Headers["X-Webhook-Signature"])
	d.logger.Info("dry-run delivery",
		"request_id", env.RequestID,
		"bytes", len(env.Body),
		"signature_ok", verified,
	)
	return webhook.DeliveryResult{Success: true, RequestID: env.RequestID}, nil
}

// buildDryRunDriver wires a driver whose delivery step stays local.
func buildDryRunDriver(cfg *config.Config, store history.Store, logger *slog.Logger) *pipeline.Driver {
	httpClient := &http.Client{Timeout: cfg.Delivery.Timeout}

	orchestrator := fetch.New(
		buildStrategies(cfg),
		httpClient,
		setupTelemetry(cfg, logger),
		cfg.Fetch.StrategyTimeout,
		logger,
	)

	deliverer := &dryRunDeliverer{secret: cfg.Webhook.Secret, logger: logger}
	return pipeline.NewDriver(orchestrator, deliverer, store, cfg.CompanyID, cfg.Webhook.Secret, logger)
}

// openHistory opens the configured run-history store and prunes stale rows.
func openHistory(cfg *config.Config, logger *slog.Logger) (history.Store, error) {
	store, err := history.NewSQLiteStore(cfg.History.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Prune(cfg.History.Retention); err != nil {
		logger.Warn("pruning run history failed", "error", err)
	}
	return store, nil
}
