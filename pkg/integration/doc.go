// Package integration combines circuit breaker and retry patterns for comprehensive
// fault tolerance in the board game hosting server.
//
// This package provides ResilientExecutor which layers retry logic on top of
// circuit breaker protection, giving operations the benefits of both mechanisms:
// automatic retries for transient failures and fast-fail for persistent outages.
//
// # Execution Flow
//
// When executing an operation:
//
//  1. The retrier makes an attempt, and every attempt goes through the circuit breaker
//  2. If the circuit is open, the attempt fails with ErrCircuitBreakerOpen without running the operation
//  3. If the circuit allows, the operation runs and the breaker records its success or failure
//  4. A failed attempt, including one the open breaker rejected, is retried with
//     exponential backoff until MaxAttempts is used up or the context ends
//
// # Creating Executors
//
// Create a custom executor with specific configuration:
//
//	cbConfig := resilience.CircuitBreakerConfig{
//	    MaxFailures: 5,
//	    Timeout:     30 * time.Second,
//	}
//	retryConfig := retry.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 100 * time.Millisecond,
//	}
//	executor := integration.NewResilientExecutor(cbConfig, retryConfig)
//
// # Executing Operations
//
// Wrap operations with combined protection:
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalAPI(ctx)
//	})
//
// # Pre-configured Executors
//
// Global executors for common operation types:
//
//	// File system operations
//	err := integration.ExecuteFileSystemOperation(ctx, operation)
//
//	// Network/WebSocket operations
//	err := integration.ExecuteNetworkOperation(ctx, operation)
//
//	// Configuration loading
//	err := integration.ExecuteConfigOperation(ctx, operation)
//
// # Ad-hoc Execution
//
// For one-off operations with custom options:
//
//	err := integration.ExecuteResilient(ctx, operation,
//	    integration.ConfigureRetry(retryConfig),
//	    integration.ConfigureCircuitBreaker(cbConfig),
//	)
//
// # Disabling Mechanisms
//
// Run with only one protection mechanism:
//
//	// Circuit breaker only, no retry
//	err := integration.WithRetryDisabled(cbConfig).Execute(ctx, operation)
//
//	// Retry only, behind a breaker that never trips
//	err := integration.WithCircuitBreakerDisabled(retryConfig).Execute(ctx, operation)
//
// # Statistics
//
// Query the executor's circuit breaker statistics:
//
//	stats := executor.GetStats()
//	// Circuit breaker stats, each key prefixed "circuit_breaker_"; no retry metrics are included
//
// # Testing
//
// Reset global executors between tests:
//
//	integration.ResetExecutorsForTesting()
package integration
