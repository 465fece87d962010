// Package ai schedules, bounds, and cancels AI turns on behalf of a
// GameSession. The aiLevel->iteration budget table is the map handed to
// NewController (DefaultBudgets when nil), and the wall-clock cap is the
// timeout handed to it alongside (Config.ThinkTimeout in this server).
// pkg/config.LoadThinkBudgets reads a per-level millisecond timeout table,
// not iteration budgets, and this package does not consume it.
package ai
