// Package pipe defines the pipeline failure taxonomy: a classified error type
// carrying (kind, provider, raw detail) plus the classifier that builds it
// from arbitrary errors. Classification happens once; the resulting *Error is
// either stored on a per-unit record or wrapped and re-raised for step-level
// failures, never re-parsed.
package pipe

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Error kinds, in classification precedence order.
const (
	KindAuth         = "auth"
	KindRateLimit    = "rate_limit"
	KindTimeout      = "timeout"
	KindFFmpeg       = "ffmpeg"
	KindValidation   = "validation"
	KindProviderHTTP = "provider_http"
	KindUnknown      = "unknown"
)

// Known providers.
const (
	ProviderGemini  = "gemini"
	ProviderSuno    = "suno"
	ProviderYouTube = "youtube"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind     string
	Provider string
	Message  string
	Raw      string // diagnostic only, truncated; never used for control flow
	Stack    string
	Err      error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s (%s/%s)", e.Message, e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPError carries an HTTP failure from a provider call. Body is kept for
// diagnostics and truncated during classification.
type HTTPError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Provider, e.Operation, e.StatusCode, e.Body)
}

// AsClassified returns err as a *Error, classifying it first if needed.
func AsClassified(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return Classify(err)
}

// Stack captures the current goroutine stack for error records.
func Stack() string {
	return string(debug.Stack())
}
