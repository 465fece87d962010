// Package main implements the board game hosting server application.
//
// This is the entry point for a hosting server that runs turn-based board
// and card games behind a shared session core: lobby formation, seat
// management, per-seat AI fill-in, matchmaking, and a REST + WebSocket API
// for real-time play.
//
// # Architecture
//
// The server application follows a clean separation of concerns:
//
//   - Configuration loading and validation (via pkg/config)
//   - Logging setup and initialization
//   - Game type registration (via pkg/registry)
//   - Server lifecycle management with graceful shutdown
//   - Signal handling for SIGINT and SIGTERM
//
// # Startup Sequence
//
// 1. Load configuration from environment variables with secure defaults
// 2. Configure logging based on LOG_LEVEL setting
// 3. Register every supported game type and build the server core
// 4. Start listening for HTTP and WebSocket connections
// 5. Handle shutdown signals gracefully, persisting every live session
//
// # Environment Variables
//
// The server supports the following environment variables:
//
//   - SERVER_PORT: HTTP server port (default: 8080)
//   - WEB_DIR: Static web file directory (default: ./web)
//   - SESSION_TIMEOUT: Session expiration time (default: 30m)
//   - LOG_LEVEL: Logging verbosity (debug, info, warn, error; default: info)
//   - ENABLE_DEV_MODE: Development mode flag (default: true)
//   - STORAGE_BACKEND: Game store backend, "memory" or "durable" (default: memory)
//   - STORAGE_PATH: Root directory for the durable store (default: ./data/games)
//
// # Usage
//
// Run the server with default settings:
//
//	./server
//
// Run with custom port and debug logging:
//
//	SERVER_PORT=9000 LOG_LEVEL=debug ./server
//
// # Graceful Shutdown
//
// The server handles SIGINT (Ctrl+C) and SIGTERM signals gracefully:
//
// 1. Stop accepting new connections and wait for in-flight HTTP requests
// 2. Persist every live session to the game store
// 3. Exit cleanly
//
// Open WebSocket connections are not closed by a separate step.
//
// The shutdown process has a 30-second timeout before forcing exit.
package main
