// Package retry wraps a call in exponential backoff with jitter, bailing
// out early when the context is done. Every non-nil error is retried,
// whether or not it is in the configured retryable set. It's the backoff
// half of the resilience story;
// pkg/resilience supplies the circuit-breaking half, and
// pkg/integration composes the two around a single operation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryConfig tunes one Retrier's backoff schedule.
type RetryConfig struct {
	// MaxAttempts counts the initial attempt plus every retry, so 1 means
	// "never retry."
	MaxAttempts int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff so it never grows unbounded.
	MaxDelay time.Duration

	// BackoffMultiplier scales the delay after each failed attempt.
	BackoffMultiplier float64

	// JitterMaxPercent randomizes the delay by up to this percentage in
	// either direction, spreading out retries from callers that failed at
	// the same instant.
	JitterMaxPercent int

	// RetryableErrors are matched against a failure with errors.Is; a match
	// permits a retry. An empty set still retries, since most transient
	// failures in this codebase (timeouts, locked files) aren't pre-declared
	// sentinel errors.
	RetryableErrors []error
}

// DefaultRetryConfig suits most in-process operations: three attempts,
// doubling from 100ms, capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterMaxPercent:  10,
		RetryableErrors:   []error{context.DeadlineExceeded},
	}
}

// NetworkRetryConfig gives network calls more attempts and a longer ceiling,
// since transient network failures often clear up over tens of seconds.
func NetworkRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialDelay:      200 * time.Millisecond,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2.0,
		JitterMaxPercent:  15,
		RetryableErrors:   []error{context.DeadlineExceeded},
	}
}

// FileSystemRetryConfig is tuned for local disk contention (e.g. a
// FileLock briefly held by a sibling process): short delays, gentler
// backoff, since the contention this targets usually resolves in
// milliseconds.
func FileSystemRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      50 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 1.5,
		JitterMaxPercent:  5,
		RetryableErrors:   []error{context.DeadlineExceeded},
	}
}

// Retrier runs an operation under a RetryConfig's backoff schedule.
type Retrier struct {
	config RetryConfig
	logger *logrus.Entry
}

// NewRetrier builds a Retrier bound to config.
func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{
		config: config,
		logger: logrus.WithField("component", "retrier"),
	}
}

// Execute runs operation, retrying per r.config until it succeeds, the
// context ends, or attempts run out.
func (r *Retrier) Execute(ctx context.Context, operation func(context.Context) error) error {
	return r.ExecuteWithResult(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, operation(ctx)
	})
}

// ExecuteWithResult is Execute for an operation that also produces a value;
// the value itself isn't surfaced (every current caller discards it), but
// the signature keeps Retrier usable for calls that return one.
func (r *Retrier) ExecuteWithResult(ctx context.Context, operation func(context.Context) (interface{}, error)) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		log := r.logger.WithFields(logrus.Fields{"attempt": attempt, "max_attempts": r.config.MaxAttempts})
		_, err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("operation succeeded after retry")
			}
			return nil
		}
		lastErr = err
		log.WithError(err).Debug("attempt failed")

		final := attempt == r.config.MaxAttempts
		retryable := r.isRetryable(err)
		if final || !retryable {
			if final {
				log.WithError(err).Warn("all retry attempts exhausted")
			} else {
				log.WithError(err).Debug("error not retryable, stopping")
			}
			break
		}

		delay := r.calculateDelay(attempt)
		log.WithField("delay", delay).Debug("waiting before retry")
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", r.config.MaxAttempts, lastErr)
}

// isRetryable reports whether err matches one of r.config.RetryableErrors.
// A non-nil error with no configured matches is still treated as retryable,
// since this codebase rarely has a closed set of "don't retry" sentinels —
// callers that need to stop early rely on MaxAttempts or ctx cancellation.
func (r *Retrier) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range r.config.RetryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return true
}

// calculateDelay computes the backoff for the given attempt number
// (1-indexed), applying the multiplier, the max-delay cap, and jitter.
func (r *Retrier) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
	if max := float64(r.config.MaxDelay); delay > max {
		delay = max
	}

	if r.config.JitterMaxPercent > 0 {
		spread := delay * float64(r.config.JitterMaxPercent) / 100.0
		delay += (rand.Float64()*2 - 1) * spread
		if delay < 0 {
			delay = float64(r.config.InitialDelay)
		}
	}
	return time.Duration(delay)
}

// isTimeoutError reports whether err self-identifies as a timeout (via a
// Timeout() bool method, the convention net and os errors follow) or wraps
// context.DeadlineExceeded.
func isTimeoutError(err error) bool {
	var t interface{ Timeout() bool }
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Shared retriers for the three profiles every caller in this codebase
// reaches for, so pkg/integration and pkg/server don't each construct and
// configure their own.
var (
	DefaultRetrier    = NewRetrier(DefaultRetryConfig())
	NetworkRetrier    = NewRetrier(NetworkRetryConfig())
	FileSystemRetrier = NewRetrier(FileSystemRetryConfig())
)

// Execute runs operation under DefaultRetrier.
func Execute(ctx context.Context, operation func(context.Context) error) error {
	return DefaultRetrier.Execute(ctx, operation)
}

// ExecuteNetwork runs operation under NetworkRetrier.
func ExecuteNetwork(ctx context.Context, operation func(context.Context) error) error {
	return NetworkRetrier.Execute(ctx, operation)
}

// ExecuteFileSystem runs operation under FileSystemRetrier.
func ExecuteFileSystem(ctx context.Context, operation func(context.Context) error) error {
	return FileSystemRetrier.Execute(ctx, operation)
}
