package notification

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsJSONPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
	}))
	defer srv.Close()

	Send(srv.URL, EventUploaded, "project uploaded")

	assert.Equal(t, EventUploaded, got["event"])
	assert.Equal(t, "project uploaded", got["message"])
}

func TestSendNoopWithoutWebhook(t *testing.T) {
	// Must not panic or block.
	Send("", EventStepFailed, "msg")
}

func TestSendSwallowsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	Send(srv.URL, EventBatchDone, "msg")
}

func TestWebhookFromEnv(t *testing.T) {
	t.Setenv("YTF_NOTIFY_WEBHOOK", "https://hooks.example/ytf")
	assert.Equal(t, "https://hooks.example/ytf", WebhookFromEnv())
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		event string
		want  string
	}{
		{EventUploaded, "✅ proj uploaded: detail"},
		{EventStepFailed, "❌ proj failed: detail"},
		{EventBatchDone, "📦 batch proj finished: detail"},
		{EventQueueRunDone, "📋 queue run proj finished: detail"},
		{"other", "ℹ️ proj: detail"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEvent(tt.event, "proj", "detail"))
	}
}
