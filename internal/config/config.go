package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// minSecretLength is the minimum accepted webhook shared-secret length.
const minSecretLength = 32

// Config is the root configuration for the jobrelay pipeline.
type Config struct {
	Environment string
	CompanyID   string
	Platform    PlatformConfig
	Webhook     WebhookConfig
	Fetch       FetchConfig
	Delivery    DeliveryConfig
	Schedule    ScheduleConfig
	History     HistoryConfig
	Telemetry   bool
}

// PlatformConfig describes the upstream career-site platform and which
// acquisition strategies are available against it.
type PlatformConfig struct {
	BaseURL    string `yaml:"base_url"`    // public + admin API root
	APIToken   string `yaml:"api_token"`   // enables the authenticated API strategy
	CareersURL string `yaml:"careers_url"` // enables the page-scrape strategy
}

// WebhookConfig describes the downstream delivery target.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"` // HMAC shared secret, expanded from env by Load
}

// FetchConfig controls the fetch orchestration.
type FetchConfig struct {
	StrategyTimeout time.Duration // per-strategy attempt budget
}

// DeliveryConfig controls the delivery retry decorator.
type DeliveryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration // per HTTP request
}

// ScheduleConfig controls the daemon trigger. Cron takes precedence over
// Interval when both are set.
type ScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Interval time.Duration
}

// HistoryConfig controls the run-history store.
type HistoryConfig struct {
	DBPath    string        `yaml:"db_path"`
	Retention time.Duration // runs older than this are pruned on startup
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Environment string            `yaml:"environment"`
	CompanyID   string            `yaml:"company_id"`
	Platform    PlatformConfig    `yaml:"platform"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	Fetch       rawFetchConfig    `yaml:"fetch"`
	Delivery    rawDeliveryConfig `yaml:"delivery"`
	Schedule    rawScheduleConfig `yaml:"schedule"`
	History     rawHistoryConfig  `yaml:"history"`
	Telemetry   bool              `yaml:"telemetry"`
}

type rawFetchConfig struct {
	StrategyTimeout string `yaml:"strategy_timeout"`
}

type rawDeliveryConfig struct {
	MaxRetries int    `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
	Timeout    string `yaml:"timeout"`
}

type rawScheduleConfig struct {
	Cron     string `yaml:"cron"`
	Interval string `yaml:"interval"`
}

type rawHistoryConfig struct {
	DBPath    string `yaml:"db_path"`
	Retention string `yaml:"retention"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables (secrets are normally ${VAR} references).
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	strategyTimeout, err := durationOr(raw.Fetch.StrategyTimeout, 30*time.Second, "fetch.strategy_timeout")
	if err != nil {
		return nil, err
	}
	baseDelay, err := durationOr(raw.Delivery.BaseDelay, 5*time.Second, "delivery.base_delay")
	if err != nil {
		return nil, err
	}
	deliveryTimeout, err := durationOr(raw.Delivery.Timeout, 30*time.Second, "delivery.timeout")
	if err != nil {
		return nil, err
	}
	interval, err := durationOr(raw.Schedule.Interval, 1*time.Hour, "schedule.interval")
	if err != nil {
		return nil, err
	}
	retention, err := durationOr(raw.History.Retention, 30*24*time.Hour, "history.retention")
	if err != nil {
		return nil, err
	}

	maxRetries := raw.Delivery.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}

	dbPath := raw.History.DBPath
	if dbPath == "" {
		dbPath = "jobrelay.db"
	}

	environment := raw.Environment
	if environment == "" {
		environment = "production"
	}

	cfg := &Config{
		Environment: environment,
		CompanyID:   raw.CompanyID,
		Platform:    raw.Platform,
		Webhook:     raw.Webhook,
		Fetch:       FetchConfig{StrategyTimeout: strategyTimeout},
		Delivery: DeliveryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  baseDelay,
			Timeout:    deliveryTimeout,
		},
		Schedule: ScheduleConfig{
			Cron:     raw.Schedule.Cron,
			Interval: interval,
		},
		History: HistoryConfig{
			DBPath:    dbPath,
			Retention: retention,
		},
		Telemetry: raw.Telemetry,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationOr(raw string, fallback time.Duration, field string) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if cfg.CompanyID == "" {
		return fmt.Errorf("company_id is required")
	}
	if _, err := uuid.Parse(cfg.CompanyID); err != nil {
		return fmt.Errorf("company_id must be a UUID, got %q", cfg.CompanyID)
	}

	if cfg.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required")
	}
	if cfg.Environment == "production" && !strings.HasPrefix(cfg.Webhook.URL, "https://") {
		return fmt.Errorf("webhook.url must use https in production, got %q", cfg.Webhook.URL)
	}

	if len(cfg.Webhook.Secret) < minSecretLength {
		return fmt.Errorf("webhook.secret must be at least %d characters, got %d", minSecretLength, len(cfg.Webhook.Secret))
	}

	if cfg.Platform.BaseURL == "" && cfg.Platform.CareersURL == "" {
		return fmt.Errorf("at least one of platform.base_url or platform.careers_url must be set")
	}

	if cfg.Fetch.StrategyTimeout <= 0 {
		return fmt.Errorf("fetch.strategy_timeout must be positive, got %v", cfg.Fetch.StrategyTimeout)
	}
	if cfg.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be positive, got %v", cfg.Schedule.Interval)
	}

	return nil
}
