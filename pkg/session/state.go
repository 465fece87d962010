package session

import (
	"time"

	"boardhost/pkg/engine"
)

// Liveness is a Connection's observed socket health.
type Liveness string

const (
	LivenessActive       Liveness = "active"
	LivenessAwaitingPong Liveness = "awaiting_pong"
	LivenessClosed       Liveness = "closed"
)

// Sender delivers one broadcast frame to a connected socket. The transport
// layer (pkg/server) implements this; GameSession never touches the wire
// directly.
type Sender interface {
	Send(frame interface{}) error
	Close() error
}

// Connection is one live or recently-live socket attached to a seat (0 for
// spectators). A seat may have more than one Connection during a reconnect
// race; broadcastLocked sends every frame to each of them, and an older
// Connection is neither superseded nor closed when a newer one attaches.
type Connection struct {
	PlayerID string
	Seat     int
	Liveness Liveness
	LastPing time.Time
	Sender   Sender
}

// PlayerGameState is the per-seat broadcast payload produced after every
// successful mutation.
type PlayerGameState struct {
	Phase                string                  `json:"phase"`
	Players              []engine.PlayerInfo     `json:"players"`
	CurrentPlayer        int                     `json:"currentPlayer"`
	IsComplete           bool                    `json:"isComplete"`
	AvailableActions     []engine.ActionMetadata `json:"availableActions"`
	IsMyTurn             bool                    `json:"isMyTurn"`
	View                 interface{}             `json:"view"`
	AnimationEvents      []engine.AnimationEvent `json:"animationEvents,omitempty"`
	LastAnimationEventID int                     `json:"lastAnimationEventId,omitempty"`
	ActionMetadata       []engine.ActionMetadata `json:"actionMetadata,omitempty"`
	CanUndo              bool                    `json:"canUndo"`
	ActionsThisTurn      int                     `json:"actionsThisTurn"`
	TurnStartActionIndex int                     `json:"turnStartActionIndex"`
}

// buildStateLocked renders the broadcast payload for seat using the game's
// current (post-mutation) state plus the animation events produced by the
// mutation that just committed. Callers must hold s.mu (or be on the lane,
// which already implies exclusive access to s.game).
func (s *Session) buildStateLocked(seat int, events []engine.AnimationEvent) PlayerGameState {
	pv := s.game.PlayerView(seat)
	state := PlayerGameState{
		Phase:                pv.Phase,
		Players:              pv.Players,
		CurrentPlayer:        pv.CurrentPlayer,
		IsComplete:           pv.IsComplete,
		AvailableActions:     pv.AvailableActions,
		IsMyTurn:             seat != 0 && pv.CurrentPlayer == seat,
		View:                 pv.View,
		AnimationEvents:      events,
		ActionMetadata:       pv.AvailableActions,
		CanUndo:              len(s.actionHistory) > s.turnStartIdx,
		ActionsThisTurn:      len(s.actionHistory) - s.turnStartIdx,
		TurnStartActionIndex: s.turnStartIdx,
	}
	if n := len(events); n > 0 {
		state.LastAnimationEventID = events[n-1].ID
	}
	return state
}
