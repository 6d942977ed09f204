// Package notification posts pipeline events to an operator webhook so an
// overnight batch can report its outcome without anyone watching the console.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"
)

const sendTimeout = 10 * time.Second

// Send posts a notification message to the webhook URL.
// Fire-and-forget: never blocks the pipeline, silent on failure.
// No-op when the webhook is empty.
func Send(webhook, event, message string) {
	if webhook == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{
		"event":   event,
		"message": message,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// WebhookFromEnv returns the configured notification webhook, if any.
func WebhookFromEnv() string {
	return os.Getenv("YTF_NOTIFY_WEBHOOK")
}
