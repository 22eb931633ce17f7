package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pricewatch/crawler/internal/types"
)

// envBindings pairs each config key with the literal environment
// variable name operators set, rather than a namespaced prefix.
var envBindings = map[string]string{
	"database_url":                "DATABASE_URL",
	"redis_url":                   "REDIS_URL",
	"proxy_list":                  "PROXY_LIST",
	"scheduler_interval_seconds":  "SCHEDULER_INTERVAL_SECONDS",
	"scheduler_metrics_port":      "SCHEDULER_METRICS_PORT",
	"scraper_metrics_port":        "SCRAPER_METRICS_PORT",
	"log_level":                   "LOG_LEVEL",
	"discord_webhook_url":         "DISCORD_WEBHOOK_URL",
	"telegram_bot_token":          "TELEGRAM_BOT_TOKEN",
	"telegram_chat_id":            "TELEGRAM_CHAT_ID",
}

// Load reads configuration from a local .env file (if present) and the
// process environment, falling back to DefaultConfig's values.
func Load() (*Config, error) {
	// A missing .env is expected in production, where real env vars are
	// injected directly; only log-worthy if present but unreadable.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetDefault("scheduler_interval_seconds", cfg.SchedulerIntervalSeconds)
	v.SetDefault("scheduler_metrics_port", cfg.SchedulerMetricsPort)
	v.SetDefault("scraper_metrics_port", cfg.ScraperMetricsPort)
	v.SetDefault("log_level", cfg.LogLevel)

	for key, envVar := range envBindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", envVar, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate enforces the configuration invariants startup depends on.
// A missing DATABASE_URL is a fatal_config error: the process should
// exit immediately rather than start against no durable store.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return types.ErrMissingDSN
	}
	return nil
}
