// Package server implements the REST and WebSocket transport for the board
// game hosting core.
//
// This package provides the complete backend surface for turn-based board
// and card game play: game creation, lobby formation, per-seat AI fill-in,
// matchmaking, real-time WebSocket updates, and operational monitoring.
//
// # Server Architecture
//
// GameServerCore is the main server instance that coordinates:
//
//   - Game session lifecycle (session.Registry, store.GameStore)
//
//   - Lobby and matchmaking state ahead of game start
//
//   - WebSocket broadcasting for real-time state updates
//
//   - Request validation, rate limiting, and metrics collection
//
//     cfg, _ := config.Load()
//     core, _ := server.NewGameServerCore(cfg, cfg.WebDir, gameDefinitions)
//     core.Start()
//     http.ListenAndServe(addr, core.Routes())
//
// # REST API
//
// The server exposes one route family per game, rooted at /games/{id}:
//   - Game lifecycle: create, get state, perform action, undo, restart, rewind
//   - Lobby management: claim/leave seat, ready up, add/remove slot, AI fill-in
//   - Multi-step actions: start-action, selection-step, cancel-action
//   - Matchmaking: join, leave, status
//
// # Real-time Communication
//
// A WebSocket upgrade on GET /games/{id} enables bi-directional communication:
// every inbound message resolves the session and mutates it, and the resulting
// broadcast reaches every attached connection, including the one that sent it.
//
// # Operational Features
//
//   - Health checks at /health, /ready, /live endpoints
//   - Prometheus metrics at /metrics
//   - Request rate limiting with configurable thresholds
//   - Pprof profiling when enabled
//
// # Thread Safety
//
// Every mutation to a game's state runs on that session's single mutation
// lane; the transport layer never locks session state directly.
package server
