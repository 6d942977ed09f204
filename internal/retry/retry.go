// Package retry provides bounded exponential-backoff retry for pipeline
// steps and provider calls. Only transient failures are retried; auth and
// validation failures cannot succeed on replay and fail immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/JustinDumasCarr/yt-factory/internal/pipe"
)

// Defaults match the batch retry policy.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 60 * time.Second
)

// Config configures exponential backoff behavior.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       bool
	OnRetry      func(attempt int, delay time.Duration, err error)
	IsRetriable  func(error) bool // defaults to IsRetriable
}

// Do runs fn with retry on transient errors.
// Delays: InitialDelay, InitialDelay*2, InitialDelay*4, ... capped at MaxDelay.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	check := cfg.IsRetriable
	if check == nil {
		check = IsRetriable
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !check(lastErr) {
			return lastErr
		}
		if attempt >= cfg.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
		}

		delay := cfg.InitialDelay << uint(attempt)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		if cfg.Jitter {
			delay += time.Duration(rand.Int63n(int64(delay)/5 + 1))
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// retriableHTTPStatuses are the provider HTTP statuses worth replaying.
var retriableHTTPStatuses = map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true}

var retriablePatterns = []string{
	"rate limit",
	"quota",
	"too many requests",
	"service unavailable",
	"internal server error",
	"bad gateway",
	"gateway timeout",
	"timeout",
	"timed out",
	"connection",
}

// IsRetriable reports whether an error is transient. Rate limit and timeout
// classifications always are; provider HTTP failures only with a retriable
// status code; auth and validation never are.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}

	var he *pipe.HTTPError
	if errors.As(err, &he) {
		return retriableHTTPStatuses[he.StatusCode]
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return retriableHTTPStatuses[ge.Code]
	}

	switch pipe.AsClassified(err).Kind {
	case pipe.KindRateLimit, pipe.KindTimeout:
		return true
	case pipe.KindAuth, pipe.KindValidation:
		return false
	}

	lower := strings.ToLower(err.Error())
	for _, pattern := range retriablePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
