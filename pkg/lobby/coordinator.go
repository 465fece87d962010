package lobby

import (
	"fmt"

	"boardhost/pkg/registry"
)

// Coordinator builds Lobby values from a registered game type, applying the
// player-option conflict policy (e.g. "color" must be unique per game)
// uniformly across every game type the server hosts.
type Coordinator struct {
	conflictOptionKeys []string
}

// NewCoordinator returns a Coordinator that treats each of conflictOptionKeys
// as a player option requiring a unique value across slots.
func NewCoordinator(conflictOptionKeys ...string) *Coordinator {
	return &Coordinator{conflictOptionKeys: conflictOptionKeys}
}

// NewLobby constructs a Lobby for def with slotCount seats, rejecting a seat
// count outside def's configured player bounds.
func (c *Coordinator) NewLobby(def registry.Definition, creatorID string, slotCount int) (*Lobby, error) {
	if slotCount < def.MinPlayers || slotCount > def.MaxPlayers {
		return nil, fmt.Errorf("lobby: %d seats outside %s bounds [%d,%d]", slotCount, def.GameType, def.MinPlayers, def.MaxPlayers)
	}
	return New(creatorID, slotCount, def.MinPlayers, def.MaxPlayers, def.GameOptions, c.conflictOptionKeys), nil
}
