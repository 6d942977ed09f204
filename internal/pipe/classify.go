package pipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

const (
	maxBodyLen    = 500
	maxMessageLen = 1000
	maxRawLen     = 2000
)

// Classify maps an arbitrary error to the failure taxonomy. The kind rules
// are applied in a fixed precedence order and the first match wins; messages
// often contain several matching substrings, so the order is load-bearing.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	ce := &Error{
		Kind:     classifyKind(err, lower),
		Provider: detectProvider(lower),
		Message:  msg,
		Raw:      extractRaw(err, msg),
		Stack:    Stack(),
		Err:      err,
	}
	return ce
}

func classifyKind(err error, lower string) string {
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "forbidden") ||
		strings.Contains(lower, "authentication"):
		return KindAuth
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota") || strings.Contains(lower, "too many requests"):
		return KindRateLimit
	case errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return KindTimeout
	case strings.Contains(lower, "ffmpeg") || strings.Contains(lower, "ffprobe"):
		return KindFFmpeg
	case strings.Contains(lower, "validation") || strings.Contains(lower, "invalid"):
		return KindValidation
	case hasHTTPStatus(err):
		return KindProviderHTTP
	default:
		return KindUnknown
	}
}

func detectProvider(lower string) string {
	switch {
	case strings.Contains(lower, "gemini") || strings.Contains(lower, "generativelanguage"):
		return ProviderGemini
	case strings.Contains(lower, "suno") || strings.Contains(lower, "sunoapi"):
		return ProviderSuno
	case strings.Contains(lower, "youtube") || strings.Contains(lower, "googleapi"):
		return ProviderYouTube
	default:
		return ""
	}
}

func hasHTTPStatus(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return true
	}
	var ge *googleapi.Error
	return errors.As(err, &ge)
}

// extractRaw builds a best-effort diagnostic string: HTTP status and response
// body first (truncated), then the error message (truncated), joined and
// capped with a truncation marker.
func extractRaw(err error, msg string) string {
	var parts []string

	var he *HTTPError
	var ge *googleapi.Error
	switch {
	case errors.As(err, &he):
		parts = append(parts, fmt.Sprintf("HTTP %d: %s", he.StatusCode, truncate(he.Body, maxBodyLen)))
	case errors.As(err, &ge):
		parts = append(parts, fmt.Sprintf("HTTP %d: %s", ge.Code, truncate(ge.Body, maxBodyLen)))
	}

	if msg != "" {
		parts = append(parts, truncate(msg, maxMessageLen))
	}

	raw := strings.Join(parts, " | ")
	if len(raw) > maxRawLen {
		raw = raw[:maxRawLen] + "... (truncated)"
	}
	return raw
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
