package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agrilink/crm-sync/internal/config"
)

// Sender emits a single formatted message to the notification sink.
type Sender interface {
	SendHTML(ctx context.Context, text string) error
}

// TelegramClient posts messages to a Telegram chat via the Bot API.
type TelegramClient struct {
	cfg        config.TelegramConfig
	httpClient *http.Client
}

// NewTelegramClient builds a client, defaulting the transport when nil.
func NewTelegramClient(cfg config.TelegramConfig, httpClient *http.Client) *TelegramClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TelegramClient{cfg: cfg, httpClient: httpClient}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendHTML delivers one HTML-formatted message to the configured chat.
func (c *TelegramClient) SendHTML(ctx context.Context, text string) error {
	if c.cfg.BotToken == "" || c.cfg.ChatID == "" {
		return errors.New("telegram: bot token or chat id not configured")
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    c.cfg.ChatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.cfg.APIBase, "/"), c.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram: sendMessage failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
