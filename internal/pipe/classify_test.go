package pipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestClassifyKindPrecedence(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", errors.New("HTTP 401 unauthorized"), KindAuth},
		{"forbidden", errors.New("request forbidden by policy"), KindAuth},
		{"rate limit by status", errors.New("HTTP 429 from api"), KindRateLimit},
		{"quota", errors.New("daily quota exceeded"), KindRateLimit},
		{"timeout message", errors.New("request timed out"), KindTimeout},
		{"deadline exceeded", fmt.Errorf("poll: %w", context.DeadlineExceeded), KindTimeout},
		{"ffmpeg", errors.New("ffmpeg failed: exit status 1"), KindFFmpeg},
		{"ffprobe", errors.New("ffprobe output unparseable"), KindFFmpeg},
		{"validation", errors.New("validation: project plan not found"), KindValidation},
		{"invalid", errors.New("invalid channel profile"), KindValidation},
		{
			"provider http without other markers",
			&HTTPError{Provider: "suno", Operation: "submit", StatusCode: 500, Body: "boom"},
			KindProviderHTTP,
		},
		{"unknown", errors.New("something odd happened"), KindUnknown},

		// Precedence: earlier kinds win when several substrings match.
		{"auth beats rate limit", errors.New("401 unauthorized after rate limit"), KindAuth},
		{"rate limit beats timeout", errors.New("HTTP 429: request timed out waiting for quota"), KindRateLimit},
		{"timeout beats ffmpeg", errors.New("ffmpeg timed out"), KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err)
			require.NotNil(t, ce)
			assert.Equal(t, tt.want, ce.Kind)
		})
	}
}

func TestClassifyDetectsProvider(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"gemini returned nothing", ProviderGemini},
		{"generativelanguage.googleapis.com: 503", ProviderGemini},
		{"sunoapi.org refused connection", ProviderSuno},
		{"youtube insert rejected", ProviderYouTube},
		{"googleapi: Error 403", ProviderYouTube},
		{"disk full", ""},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(errors.New(tt.msg)).Provider)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassifyRawFromHTTPError(t *testing.T) {
	he := &HTTPError{Provider: "suno", Operation: "poll", StatusCode: 503, Body: `{"msg":"overloaded"}`}
	ce := Classify(fmt.Errorf("poll task: %w", he))

	assert.Contains(t, ce.Raw, "HTTP 503")
	assert.Contains(t, ce.Raw, "overloaded")
	assert.Contains(t, ce.Raw, "poll task")
}

func TestClassifyRawFromGoogleAPIError(t *testing.T) {
	ge := &googleapi.Error{Code: 403, Body: "quotaExceeded"}
	ce := Classify(fmt.Errorf("upload: %w", ge))

	assert.Contains(t, ce.Raw, "HTTP 403")
	assert.Contains(t, ce.Raw, "quotaExceeded")
}

func TestClassifyTruncatesRaw(t *testing.T) {
	he := &HTTPError{
		Provider:   "suno",
		Operation:  "submit",
		StatusCode: 500,
		Body:       strings.Repeat("b", 5000),
	}
	ce := Classify(he)

	// The body is capped at maxBodyLen and the message at maxMessageLen, so
	// the raw detail stays bounded no matter how large the response was.
	assert.LessOrEqual(t, len(ce.Raw), maxRawLen)
	assert.Contains(t, ce.Raw, "HTTP 500")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestAsClassifiedReturnsExistingError(t *testing.T) {
	ce := &Error{Kind: KindRateLimit, Provider: ProviderSuno, Message: "slow down"}
	wrapped := fmt.Errorf("submit: %w", ce)

	got := AsClassified(wrapped)
	assert.Same(t, ce, got)
}

func TestAsClassifiedClassifiesPlainErrors(t *testing.T) {
	got := AsClassified(errors.New("gemini quota exceeded"))
	assert.Equal(t, KindRateLimit, got.Kind)
	assert.Equal(t, ProviderGemini, got.Provider)
}

func TestErrorStringIncludesTaxonomy(t *testing.T) {
	withProvider := &Error{Kind: KindTimeout, Provider: ProviderSuno, Message: "poll gave up"}
	assert.Equal(t, "poll gave up (suno/timeout)", withProvider.Error())

	withoutProvider := &Error{Kind: KindUnknown, Message: "weird"}
	assert.Equal(t, "weird (unknown)", withoutProvider.Error())
}

func TestHTTPErrorUnwrapsThroughChain(t *testing.T) {
	he := &HTTPError{Provider: "suno", Operation: "submit", StatusCode: 429, Body: "limit"}
	wrapped := fmt.Errorf("layer: %w", fmt.Errorf("inner: %w", he))

	var got *HTTPError
	require.True(t, errors.As(wrapped, &got))
	assert.Equal(t, 429, got.StatusCode)
}
