// Package signal cancels the run context on SIGINT or SIGTERM so in-flight
// steps can persist state and exit cleanly.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler watches for SIGINT and SIGTERM in a background goroutine.
// On the first signal it runs onInterrupt (when non-nil) and cancels the
// context; steps see the cancellation through ctx and stop at the next safe
// point, leaving project.json current for resume. The goroutine also exits
// when ctx is canceled by anything else.
func SetupSignalHandler(ctx context.Context, cancel context.CancelFunc, onInterrupt func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			if onInterrupt != nil {
				onInterrupt()
			}
			cancel()
		case <-ctx.Done():
		}
	}()
}
