// Package resilience implements the circuit-breaking half of this server's
// fault-tolerance story: wrap a flaky dependency call (disk I/O, a config
// reload) so that once it's failing consistently, callers fail fast instead
// of piling up on a call that's unlikely to succeed. pkg/retry supplies the
// backoff half; pkg/integration composes the two around one call.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CircuitBreakerState is one of Closed (healthy), Open (failing fast), or
// HalfOpen (probing recovery).
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{StateClosed: "Closed", StateOpen: "Open", StateHalfOpen: "HalfOpen"}

func (s CircuitBreakerState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// CircuitBreakerConfig tunes one breaker's failure threshold and recovery
// probing.
type CircuitBreakerConfig struct {
	// Name identifies this breaker in logs and GetStats output.
	Name string

	// MaxFailures is the consecutive-failure count (while Closed) that trips
	// the breaker to Open.
	MaxFailures int

	// Timeout is how long a breaker stays Open before it moves to HalfOpen
	// and admits up to MaxRequests probe calls.
	Timeout time.Duration

	// MaxRequests is how many successful HalfOpen probes are required before
	// the breaker closes again.
	MaxRequests int
}

// DefaultCircuitBreakerConfig is a moderate default: five failures trips it,
// a 30s cooldown, three clean probes to close again.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{Name: name, MaxFailures: 5, Timeout: 30 * time.Second, MaxRequests: 3}
}

// ErrCircuitBreakerOpen is wrapped into the error Execute returns when it
// refuses to run fn because the breaker is tripped.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards a single dependency. All state lives behind mu;
// transitions happen inside recordOutcome so Execute never has to reason
// about the state machine directly.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.RWMutex
	state       CircuitBreakerState
	failures    int
	probes      int
	lastFailure time.Time

	log *logrus.Entry
}

// NewCircuitBreaker builds a breaker starting Closed.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{
		config: config,
		state:  StateClosed,
		log:    logrus.WithField("circuit_breaker", config.Name),
	}
	cb.log.Debug("circuit breaker created")
	return cb
}

// Execute runs fn if the breaker currently permits it, recording the
// outcome (and any recovered panic, surfaced as an error) against the
// breaker's state. A context already done is itself recorded as a failure
// before being returned, since a caller that keeps timing out looks the
// same as a caller that keeps erroring.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		cb.recordOutcome(err)
		return err
	}

	if !cb.admit() {
		cb.log.WithField("state", cb.GetState()).Warn("circuit breaker rejected call")
		return fmt.Errorf("%w: %s", ErrCircuitBreakerOpen, cb.config.Name)
	}

	err := cb.runProtected(ctx, fn)
	cb.recordOutcome(err)
	return err
}

// runProtected invokes fn, converting a panic into an error rather than
// letting it unwind through the breaker.
func (cb *CircuitBreaker) runProtected(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cb.log.WithField("panic", r).Error("protected call panicked")
			err = fmt.Errorf("function panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// admit decides whether a call may proceed right now, advancing Open→HalfOpen
// and counting the HalfOpen probe as a side effect when it does.
func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.config.Timeout {
		cb.log.Info("cooldown elapsed, probing with half-open request")
		cb.state = StateHalfOpen
		cb.probes = 0
	}

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.probes >= cb.config.MaxRequests {
			return false
		}
		cb.probes++
		return true
	default:
		return false
	}
}

// recordOutcome applies a completed call's result to the state machine.
func (cb *CircuitBreaker) recordOutcome(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.config.MaxFailures {
				cb.log.WithField("failures", cb.failures).Warn("tripping circuit breaker open")
				cb.state = StateOpen
			}
		case StateHalfOpen:
			cb.log.Info("probe failed, reopening circuit breaker")
			cb.state = StateOpen
			cb.probes = 0
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		if cb.probes >= cb.config.MaxRequests {
			cb.log.Info("probes succeeded, closing circuit breaker")
			cb.state = StateClosed
			cb.failures = 0
			cb.probes = 0
		}
	}
}

// GetState reports the breaker's current state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats snapshots the breaker for a health/debug endpoint.
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return map[string]interface{}{
		"name":         cb.config.Name,
		"state":        cb.state.String(),
		"failures":     cb.failures,
		"max_failures": cb.config.MaxFailures,
		"requests":     cb.probes,
		"max_requests": cb.config.MaxRequests,
		"last_failure": cb.lastFailure,
		"timeout":      cb.config.Timeout,
	}
}

// Reset forces the breaker back to Closed with a clean slate.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.log.WithField("previous_state", cb.state.String()).Info("circuit breaker reset")
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.lastFailure = time.Time{}
}
