// Package engine fixes the contract between GameSession and a concrete game
// rules implementation. See pkg/engine/demoengine for a minimal, deterministic
// reference implementation used by this repository's own tests.
package engine
