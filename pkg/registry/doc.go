// Package registry implements GameRegistry: the pure lookup table from a
// game-type identifier to its factory and metadata (player bounds, option
// schema). Registration happens once at server startup; lookups happen on
// every game creation and are safe for concurrent use.
package registry
