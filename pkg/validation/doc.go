// Package validation provides comprehensive input validation for the HTTP
// and WebSocket surface of the game server.
//
// This package ensures all user inputs are sanitized and validated before
// reaching a GameSession, to prevent security vulnerabilities, injection
// attacks, and denial-of-service conditions.
//
// # Creating a Validator
//
// Create an InputValidator with a maximum request size limit:
//
//	validator := validation.NewInputValidator(1024 * 1024) // 1MB limit
//
// # Validating Requests
//
// Validate incoming operations before dispatching them to a session:
//
//	err := validator.ValidateRequest(operation, params, requestSize)
//	if err != nil {
//	    return fmt.Errorf("invalid request: %w", err)
//	}
//
// # Supported Operations
//
// The validator includes built-in validation for every HTTP and WebSocket
// operation the session layer accepts:
//
// Game lifecycle:
//   - createGame, action, undo, restart, rewind
//
// Lobby slot lifecycle:
//   - claimSeat, updateName, setReady, addSlot, removeSlot, setSlotAI,
//     leaveSeat, kickPlayer, updatePlayerOptions, updateSlotPlayerOptions,
//     updateGameOptions
//
// Multi-step actions:
//   - startAction, selectionStep, cancelAction
//
// Matchmaking:
//   - matchmakingJoin, matchmakingLeave
//
// # Validation Rules
//
// Common validation patterns enforced:
//   - gameIds: Must match 8-4-4-4-12 hexadecimal UUID format
//   - Names: 1-50 characters, UTF-8, alphanumeric with limited punctuation
//   - Seats: non-negative integers
//   - AI levels: easy, medium, hard, expert
//
// # Security Features
//
//   - Request size enforcement prevents DoS via large payloads
//   - Type validation prevents type confusion vulnerabilities
//   - Range validation prevents seat/player-count overflow abuse
package validation
