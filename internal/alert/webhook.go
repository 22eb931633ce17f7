package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookConfig names the outbound transports a Sink dispatches to. Any
// field left empty disables that transport.
type WebhookConfig struct {
	DiscordWebhookURL string
	TelegramBotToken  string
	TelegramChatID    string
}

// Webhook sends rendered alerts to Discord (embed) and Telegram
// (Markdown) webhooks over plain net/http, with a bounded client
// timeout so a slow webhook can never stall the dispatch goroutine for
// long.
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
	logger *slog.Logger
}

// NewWebhook builds a Webhook sender from the given configuration.
func NewWebhook(cfg WebhookConfig, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With("component", "alert_webhook"),
	}
}

// Send posts title/message to every configured transport. Failures are
// logged and otherwise swallowed.
func (w *Webhook) Send(title, message string, color int) {
	if w.cfg.DiscordWebhookURL != "" {
		if err := w.sendDiscord(title, message, color); err != nil {
			w.logger.Error("discord alert failed", "error", err)
		}
	}
	if w.cfg.TelegramBotToken != "" && w.cfg.TelegramChatID != "" {
		if err := w.sendTelegram(fmt.Sprintf("%s\n\n%s", title, message)); err != nil {
			w.logger.Error("telegram alert failed", "error", err)
		}
	}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

func (w *Webhook) sendDiscord(title, message string, color int) error {
	payload := discordPayload{Embeds: []discordEmbed{{
		Title:       title,
		Description: message,
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}}}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	resp, err := w.client.Post(w.cfg.DiscordWebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type telegramPayload struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (w *Webhook) sendTelegram(message string) error {
	payload := telegramPayload{
		ChatID:    w.cfg.TelegramChatID,
		Text:      message,
		ParseMode: "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", w.cfg.TelegramBotToken)
	resp, err := w.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
