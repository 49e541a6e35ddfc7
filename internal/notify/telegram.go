package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BradenHooton/loginguard/internal/models"
)

// maxErrorBody caps how much of a rejected response is kept in the error
const maxErrorBody = 512

// TelegramChannel posts messages through the Telegram Bot API.
// Credentials come from the security config on every delivery.
type TelegramChannel struct {
	baseURL string
	client  *http.Client
}

// NewTelegramChannel creates a channel against baseURL (normally https://api.telegram.org)
func NewTelegramChannel(baseURL string, client *http.Client) *TelegramChannel {
	if client == nil {
		client = http.DefaultClient
	}
	return &TelegramChannel{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Enabled(cfg *models.SecurityConfig) bool {
	return cfg != nil && cfg.HasTelegram()
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Deliver sends msg once; a non-2xx answer is returned as an error carrying the response body
func (c *TelegramChannel) Deliver(ctx context.Context, cfg *models.SecurityConfig, msg Message) error {
	if !c.Enabled(cfg) {
		return models.ErrNotificationNotConfigured
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    *cfg.TelegramChatID,
		Text:      msg.Text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, *cfg.TelegramBotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// url.Error embeds the URL, which carries the bot token
		return fmt.Errorf("%w: telegram request failed", models.ErrDispatchFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: telegram API error (status %d): %s", models.ErrDispatchFailure, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
