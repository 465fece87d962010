package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CircuitBreakerManager is a named registry of breakers, one per protected
// dependency, so callers don't each have to thread a *CircuitBreaker
// through their own plumbing.
type CircuitBreakerManager struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	log      *logrus.Entry
}

// NewCircuitBreakerManager builds an empty registry.
func NewCircuitBreakerManager() *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*CircuitBreaker),
		log:      logrus.WithField("component", "circuit_breaker_manager"),
	}
}

// GetOrCreate returns name's breaker, creating it with config (or a default
// config derived from name, if config is nil) on first reference.
func (cbm *CircuitBreakerManager) GetOrCreate(name string, config *CircuitBreakerConfig) *CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if cb, ok := cbm.breakers[name]; ok {
		return cb
	}

	cfg := DefaultCircuitBreakerConfig(name)
	if config != nil {
		cfg = *config
		cfg.Name = name
	}

	cb := NewCircuitBreaker(cfg)
	cbm.breakers[name] = cb
	cbm.log.WithField("circuit_breaker", name).Info("registered new circuit breaker")
	return cb
}

// Get returns name's breaker without creating one.
func (cbm *CircuitBreakerManager) Get(name string) (*CircuitBreaker, bool) {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()
	cb, ok := cbm.breakers[name]
	return cb, ok
}

// Remove drops name's breaker from the registry.
func (cbm *CircuitBreakerManager) Remove(name string) {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()
	delete(cbm.breakers, name)
	cbm.log.WithField("circuit_breaker", name).Info("removed circuit breaker")
}

// GetAllStats reports every registered breaker's GetStats, keyed by name.
func (cbm *CircuitBreakerManager) GetAllStats() map[string]interface{} {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()
	stats := make(map[string]interface{}, len(cbm.breakers))
	for name, cb := range cbm.breakers {
		stats[name] = cb.GetStats()
	}
	return stats
}

// ResetAll resets every registered breaker to Closed.
func (cbm *CircuitBreakerManager) ResetAll() {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()
	for name, cb := range cbm.breakers {
		cb.Reset()
		cbm.log.WithField("circuit_breaker", name).Info("reset circuit breaker")
	}
}

// GetBreakerNames lists every registered breaker's name.
func (cbm *CircuitBreakerManager) GetBreakerNames() []string {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()
	names := make([]string, 0, len(cbm.breakers))
	for name := range cbm.breakers {
		names = append(names, name)
	}
	return names
}

// Predefined configs for three dependencies: the on-disk durable store,
// WebSocket fan-out, and config file loading. pkg/integration builds its
// executors' breakers from them; no WebSocket send goes through a breaker.
var (
	FileSystemConfig = CircuitBreakerConfig{
		Name:        "filesystem",
		MaxFailures: 3,
		Timeout:     10 * time.Second,
		MaxRequests: 2,
	}

	WebSocketConfig = CircuitBreakerConfig{
		Name:        "websocket",
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 3,
	}

	ConfigLoaderConfig = CircuitBreakerConfig{
		Name:        "config_loader",
		MaxFailures: 2,
		Timeout:     15 * time.Second,
		MaxRequests: 1,
	}
)

var (
	globalManager     *CircuitBreakerManager
	globalManagerOnce sync.Once
)

// GetGlobalCircuitBreakerManager returns the process-wide manager backing
// the ExecuteWith*CircuitBreaker convenience functions, created on first
// call.
func GetGlobalCircuitBreakerManager() *CircuitBreakerManager {
	globalManagerOnce.Do(func() { globalManager = NewCircuitBreakerManager() })
	return globalManager
}

// ExecuteWithFileSystemCircuitBreaker runs fn behind the shared filesystem
// breaker. pkg/store's durable backend does not go through it: it uses
// pkg/integration's FileSystemExecutor, which builds its own breaker from
// FileSystemConfig.
func ExecuteWithFileSystemCircuitBreaker(ctx context.Context, fn func(context.Context) error) error {
	return GetGlobalCircuitBreakerManager().GetOrCreate(FileSystemConfig.Name, &FileSystemConfig).Execute(ctx, fn)
}

// ExecuteWithWebSocketCircuitBreaker runs fn behind the shared WebSocket
// breaker.
func ExecuteWithWebSocketCircuitBreaker(ctx context.Context, fn func(context.Context) error) error {
	return GetGlobalCircuitBreakerManager().GetOrCreate(WebSocketConfig.Name, &WebSocketConfig).Execute(ctx, fn)
}

// ExecuteWithConfigLoaderCircuitBreaker runs fn behind the shared config-
// loader breaker. pkg/config's LoadThinkBudgets does not go through it: it
// uses pkg/integration's ConfigLoaderExecutor, which builds its own breaker
// from ConfigLoaderConfig.
func ExecuteWithConfigLoaderCircuitBreaker(ctx context.Context, fn func(context.Context) error) error {
	return GetGlobalCircuitBreakerManager().GetOrCreate(ConfigLoaderConfig.Name, &ConfigLoaderConfig).Execute(ctx, fn)
}
