package ai

import (
	"context"
	"fmt"

	"boardhost/pkg/engine"
)

var errNoLegalMoves = fmt.Errorf("ai: no legal moves available")

// SimpleBot is a reference Bot implementation: it "deepens" for up to
// iterationBudget ticks, checking ctx for cancellation between each one (so
// cancellation is observed within a single iteration), then commits to the
// first legal move in engine.Game.LegalMoves' deterministic order. It never
// returns an error for a non-terminal position with at least one legal move.
func SimpleBot(ctx context.Context, game engine.Game, seat int, iterationBudget int) (engine.Move, error) {
	moves := game.LegalMoves(seat)
	if len(moves) == 0 {
		return engine.Move{}, errNoLegalMoves
	}

	for i := 0; i < iterationBudget; i++ {
		select {
		case <-ctx.Done():
			return moves[0], nil
		default:
		}
	}
	return moves[0], nil
}
