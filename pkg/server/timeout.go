package server

import (
	"context"
	"fmt"
	"time"

	"boardhost/pkg/config"
	"boardhost/pkg/retry"
)

// OperationTimeouts bounds how long GameServerCore lets a single request or
// background operation run before giving up, and optionally retries
// transient failures within that bound. One instance lives on
// GameServerCore and is shared by every request the core handles — there is
// no global/package-level config, since every other stateful piece of this
// server (registry, store, matchmaker) is instance-scoped too.
type OperationTimeouts struct {
	// Request bounds a single inbound REST/WebSocket mutation, including any
	// store round-trip it triggers.
	Request time.Duration

	// Shutdown bounds how long one session is given to persist during a
	// graceful core shutdown before that session is abandoned.
	Shutdown time.Duration

	retry retry.RetryConfig
}

// NewOperationTimeouts derives an OperationTimeouts from process config.
func NewOperationTimeouts(cfg *config.Config) *OperationTimeouts {
	retryConfig := retry.RetryConfig{MaxAttempts: 1}
	if cfg.RetryEnabled {
		retryConfig = retry.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialDelay:      cfg.RetryInitialDelay,
			MaxDelay:          cfg.RetryMaxDelay,
			BackoffMultiplier: cfg.RetryBackoffMultiplier,
			JitterMaxPercent:  cfg.RetryJitterPercent,
			RetryableErrors:   []error{context.DeadlineExceeded},
		}
	}

	return &OperationTimeouts{
		Request:  cfg.RequestTimeout,
		Shutdown: cfg.SessionTimeout,
		retry:    retryConfig,
	}
}

// Run executes operation under a deadline of timeout, retrying transient
// failures per the configured retry policy when one is enabled.
func (t *OperationTimeouts) Run(ctx context.Context, timeout time.Duration, operation func(context.Context) error) error {
	boundedCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if t.retry.MaxAttempts <= 1 {
		return operation(boundedCtx)
	}
	return retry.NewRetrier(t.retry).Execute(boundedCtx, operation)
}

// RunRequest executes operation under the configured request timeout. Every
// store round-trip a REST handler triggers (game creation, matchmaking
// join) is wrapped this way so a slow or wedged store backend can't hold an
// HTTP handler open indefinitely.
func (t *OperationTimeouts) RunRequest(ctx context.Context, operation func(context.Context) error) error {
	return t.Run(ctx, t.Request, operation)
}

// Validate checks the derived timeouts are usable.
func (t *OperationTimeouts) Validate() error {
	if t.Request < time.Second {
		return fmt.Errorf("request timeout must be at least 1 second, got %v", t.Request)
	}
	if t.Shutdown < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", t.Shutdown)
	}
	return nil
}
