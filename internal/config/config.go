// Package config loads the fleet's settings from environment variables
// (and an optional local .env file), using the literal names operators
// deploy with rather than a namespaced prefix.
package config

import (
	"strings"
	"time"
)

// Config is the root configuration shared by cmd/scheduler and
// cmd/worker; each binary only reads the fields it needs.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`
	ProxyList   string `mapstructure:"proxy_list"`

	SchedulerIntervalSeconds int `mapstructure:"scheduler_interval_seconds"`
	SchedulerMetricsPort     int `mapstructure:"scheduler_metrics_port"`
	ScraperMetricsPort       int `mapstructure:"scraper_metrics_port"`

	LogLevel string `mapstructure:"log_level"`

	DiscordWebhookURL string `mapstructure:"discord_webhook_url"`
	TelegramBotToken  string `mapstructure:"telegram_bot_token"`
	TelegramChatID    string `mapstructure:"telegram_chat_id"`
}

// DefaultConfig returns a Config with the fleet's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		RedisURL:                 "redis://localhost:6379/0",
		SchedulerIntervalSeconds: 300,
		SchedulerMetricsPort:     8002,
		ScraperMetricsPort:       8001,
		LogLevel:                 "info",
	}
}

// SchedulerInterval is SchedulerIntervalSeconds as a time.Duration.
func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.SchedulerIntervalSeconds) * time.Second
}

// ProxyURLs splits the comma-separated PROXY_LIST into individual proxy
// URL strings, skipping empty entries.
func (c *Config) ProxyURLs() []string {
	var out []string
	for _, raw := range strings.Split(c.ProxyList, ",") {
		if url := strings.TrimSpace(raw); url != "" {
			out = append(out, url)
		}
	}
	return out
}
