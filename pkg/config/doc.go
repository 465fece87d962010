// Package config provides configuration management for the game server.
//
// This package handles environment variable loading with type-safe parsing,
// applies secure production defaults, and performs extensive validation of
// all configuration values.
//
// # Loading Configuration
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variables
//
// Server settings:
//   - SERVER_PORT: HTTP port (default: 8080)
//   - WEB_DIR: Static file directory (default: "./web")
//   - LOG_LEVEL: Logging verbosity (default: "info")
//
// Timeouts:
//   - SESSION_TIMEOUT: Session inactivity timeout (default: 30m)
//   - REQUEST_TIMEOUT: HTTP request timeout (default: 30s)
//
// Security:
//   - ENABLE_DEV_MODE: Enable development mode (default: true)
//   - ALLOWED_ORIGINS: CORS/WebSocket allowed origins (comma-separated)
//   - MAX_REQUEST_SIZE: Maximum request body size (default: 1MB)
//
// Rate limiting:
//   - RATE_LIMIT_ENABLED, RATE_LIMIT_REQUESTS_PER_SECOND, RATE_LIMIT_BURST
//
// Retry policy:
//   - RETRY_ENABLED, RETRY_MAX_ATTEMPTS, RETRY_INITIAL_DELAY, RETRY_MAX_DELAY,
//     RETRY_BACKOFF_MULTIPLIER, RETRY_JITTER_PERCENT
//
// Session/game domain (spec §6.4):
//   - THINK_TIMEOUT_MS: max AI wall-clock per move (default: 10000)
//   - CHECKPOINT_INTERVAL: actions between checkpoints (default: 10)
//   - CHECKPOINT_WINDOW: checkpoints retained per session (default: 5)
//   - CONNECTION_IDLE_S: idle-connection close threshold (default: 60s)
//   - MATCHMAKING_TTL_S: matchmaking queue entry TTL (default: 300s)
//   - STORAGE_BACKEND: "memory" or "durable" (default: "memory")
//   - STORAGE_PATH: durable GameStore root directory, required when durable
//
// # Validation
//
// All configuration values are validated on load, including the session
// domain knobs above (positive timeouts, a recognized storage backend, and
// a non-empty storage path when the backend is durable).
//
// # CORS / Origin Support
//
// Use OriginAllowed to check WebSocket origins:
//
//	if cfg.OriginAllowed(origin) {
//	    // Allow connection
//	}
//
// In development mode (EnableDevMode=true), all origins are allowed.
//
// # Retry Configuration
//
// GetRetryConfig returns a retry.RetryConfig that can be used directly with
// the retry package:
//
//	retryConfig := cfg.GetRetryConfig()
//	retrier := retry.NewRetrier(retryConfig)
package config
