package server

import (
	"context"

	"boardhost/pkg/resilience"
)

// This server package leans on pkg/resilience for the actual breaker state
// machine and only adds the bits specific to wiring it into an HTTP server:
// a shared manager reachable from health checks, and one convenience
// wrapper per dependency this server protects with a breaker.

type (
	CircuitBreakerState   = resilience.CircuitBreakerState
	CircuitBreakerConfig  = resilience.CircuitBreakerConfig
	CircuitBreaker        = resilience.CircuitBreaker
	CircuitBreakerManager = resilience.CircuitBreakerManager
)

const (
	StateClosed   = resilience.StateClosed
	StateOpen     = resilience.StateOpen
	StateHalfOpen = resilience.StateHalfOpen
)

var ErrCircuitBreakerOpen = resilience.ErrCircuitBreakerOpen

// NewCircuitBreaker builds a standalone breaker, bypassing the shared
// manager — used by tests and by callers that want a breaker's lifetime
// scoped to something narrower than the process.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return resilience.NewCircuitBreaker(config)
}

// DefaultCircuitBreakerConfig returns resilience's default tuning for a
// breaker named name.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return resilience.DefaultCircuitBreakerConfig(name)
}

// NewCircuitBreakerManager builds an empty, independent breaker registry.
func NewCircuitBreakerManager() *CircuitBreakerManager {
	return resilience.NewCircuitBreakerManager()
}

// Predefined configs for three dependencies: the durable on-disk store,
// WebSocket fan-out, and config file loading. WebSocket sends do not go
// through a breaker; Session.broadcastLocked writes to each Sender directly.
var (
	FileSystemConfig   = resilience.FileSystemConfig
	WebSocketConfig    = resilience.WebSocketConfig
	ConfigLoaderConfig = resilience.ConfigLoaderConfig
)

// GetCircuitBreakerManager returns the process-wide manager the health
// checker reports breaker state from.
func GetCircuitBreakerManager() *CircuitBreakerManager {
	return resilience.GetGlobalCircuitBreakerManager()
}

// ExecuteWithServerCircuitBreaker runs fn behind the shared WebSocket
// breaker. Nothing in this server calls it: broadcasting a move writes to
// each connection's Sender without a breaker.
func ExecuteWithServerCircuitBreaker(ctx context.Context, fn func(context.Context) error) error {
	return resilience.ExecuteWithWebSocketCircuitBreaker(ctx, fn)
}

// ExecuteWithFileSystemCircuitBreaker runs fn behind the shared filesystem
// breaker. pkg/store's durable backend uses a separate breaker of its own,
// built by pkg/integration's FileSystemExecutor.
func ExecuteWithFileSystemCircuitBreaker(ctx context.Context, fn func(context.Context) error) error {
	return resilience.ExecuteWithFileSystemCircuitBreaker(ctx, fn)
}

// ExecuteWithConfigLoaderCircuitBreaker runs fn behind the shared
// config-loader breaker. pkg/config's loader uses a separate breaker of its
// own, built by pkg/integration's ConfigLoaderExecutor.
func ExecuteWithConfigLoaderCircuitBreaker(ctx context.Context, fn func(context.Context) error) error {
	return resilience.ExecuteWithConfigLoaderCircuitBreaker(ctx, fn)
}
