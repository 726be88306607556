package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agrilink/crm-sync/internal/config"
)

func TestTelegramClient_SendsExpectedPayload(t *testing.T) {
	var capturedPath string
	var captured sendMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewTelegramClient(config.TelegramConfig{
		BotToken: "bot-token",
		ChatID:   "-100123",
		APIBase:  server.URL,
	}, server.Client())

	err := client.SendHTML(context.Background(), "<b>hello</b>")
	require.NoError(t, err)
	require.Equal(t, "/botbot-token/sendMessage", capturedPath)
	require.Equal(t, "-100123", captured.ChatID)
	require.Equal(t, "<b>hello</b>", captured.Text)
	require.Equal(t, "HTML", captured.ParseMode)
}

func TestTelegramClient_NonSuccessIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	client := NewTelegramClient(config.TelegramConfig{
		BotToken: "bot-token",
		ChatID:   "-100123",
		APIBase:  server.URL,
	}, server.Client())

	err := client.SendHTML(context.Background(), "text")
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat not found")
}

func TestTelegramClient_MissingConfigIsError(t *testing.T) {
	client := NewTelegramClient(config.TelegramConfig{}, nil)
	err := client.SendHTML(context.Background(), "text")
	require.Error(t, err)
}
