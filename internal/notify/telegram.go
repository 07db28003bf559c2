package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Telegram posts messages to a chat through the Telegram Bot API. Delivery is
// best-effort: callers log a failed send and move on.
type Telegram struct {
	http   *resty.Client
	chatID string
}

// NewTelegram builds a Telegram notifier for the given bot token and chat.
func NewTelegram(botToken, chatID string) *Telegram {
	http := resty.New().
		SetBaseURL(fmt.Sprintf("https://api.telegram.org/bot%s", botToken))

	return &Telegram{http: http, chatID: chatID}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Send posts one plain-text message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: t.chatID, Text: text}).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram send: status %s", resp.Status())
	}
	return nil
}
