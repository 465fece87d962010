// Package snapshot implements the Snapshotter: capturing a game's complete
// state plus action log for later restore, and producing per-player filtered
// views for broadcast. Visibility policy is delegated to the engine (see
// engine.Game.PlayerView) since the engine is a black box; this package
// orchestrates capture/restore and view fan-out, it does not interpret rules.
package snapshot

import (
	"time"

	"boardhost/pkg/engine"
	"boardhost/pkg/wire"
)

// Snapshot is a timestamped capture of a session's durable state.
type Snapshot struct {
	GameType      string
	Seed          int64
	EngineBlob    []byte
	ActionHistory []wire.SerializedAction
	TakenAt       time.Time
}

// Create captures game's internal state alongside the action history taken
// so far, for storage or checkpointing.
func Create(game engine.Game, gameType string, actionHistory []wire.SerializedAction, seed int64) (Snapshot, error) {
	blob, err := game.Snapshot()
	if err != nil {
		return Snapshot{}, err
	}
	history := make([]wire.SerializedAction, len(actionHistory))
	copy(history, actionHistory)
	return Snapshot{
		GameType:      gameType,
		Seed:          seed,
		EngineBlob:    blob,
		ActionHistory: history,
		TakenAt:       time.Now(),
	}, nil
}

// Restore replaces game's internal state with the snapshot's engine blob.
// The caller is responsible for replaying any actions beyond the snapshot's
// action history (see pkg/checkpoint for the checkpoint-then-replay pattern).
func Restore(game engine.Game, snap Snapshot) error {
	return game.Restore(snap.EngineBlob)
}

// CreatePlayerView returns the filtered state visible to seat (0=spectator).
func CreatePlayerView(game engine.Game, seat int) engine.PlayerView {
	return game.PlayerView(seat)
}

// CreateAllPlayerViews returns the filtered view for every seat 1..n plus the
// spectator view at index 0.
func CreateAllPlayerViews(game engine.Game, playerCount int) []engine.PlayerView {
	views := make([]engine.PlayerView, 0, playerCount+1)
	views = append(views, game.PlayerView(0))
	for seat := 1; seat <= playerCount; seat++ {
		views = append(views, game.PlayerView(seat))
	}
	return views
}
