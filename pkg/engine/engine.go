// Package engine defines the black-box game contract that GameSession drives:
// performAction, per-seat filtered views, snapshot/restore, and the metadata
// needed to drive multi-step ("pending") actions. Game rules and content are
// out of scope; this package only fixes the shape other components build on.
package engine

import (
	"boardhost/pkg/wire"
)

// AnimationEvent is an ephemeral, ordered fact appended by rules during an
// action, delivered once to observers and cleared before the next action.
type AnimationEvent struct {
	ID   int                    `json:"id"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// SelectionDef describes one pending choice in a multi-step action.
type SelectionDef struct {
	Name          string        `json:"name"`
	Choices       []interface{} `json:"choices,omitempty"`
	ValidElements []interface{} `json:"validElements,omitempty"`
	MultiSelect   bool          `json:"multiSelect"`
}

// ActionMetadata describes one action a game exposes, including whether it
// requires pending multi-step selection composition before it can commit.
type ActionMetadata struct {
	Name       string         `json:"name"`
	Selections []SelectionDef `json:"selections,omitempty"`
}

// HasRepeatingSelections reports whether this action must be driven through
// PendingActionManager rather than committed in one performAction call.
func (m ActionMetadata) HasRepeatingSelections() bool {
	return len(m.Selections) > 0
}

// PlayerInfo is the lightweight per-seat roster entry included in every view.
type PlayerInfo struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
	IsAI bool   `json:"isAI"`
}

// PlayerView is the per-seat filtered projection of game state, with hidden
// information redacted according to element visibility attributes.
type PlayerView struct {
	Phase             string           `json:"phase"`
	Players           []PlayerInfo     `json:"players"`
	CurrentPlayer     int              `json:"currentPlayer"`
	IsComplete        bool             `json:"isComplete"`
	View              interface{}      `json:"view"`
	AvailableActions  []ActionMetadata `json:"availableActions"`
}

// Options is the configuration a factory uses to construct a fresh game
// instance for a new session.
type Options struct {
	Seed        int64
	PlayerNames []string
	AIseats     map[int]bool
	GameOptions map[string]interface{}
}

// Game is the contract a concrete rules implementation must satisfy. It is
// exclusively owned by one GameSession; no method is safe for concurrent use
// without the session's mutation lane serializing callers.
type Game interface {
	wire.Resolver

	// PerformAction executes name on behalf of seat with args already
	// resolved to live engine values. A non-nil error means the rules
	// rejected the attempt and state is unchanged.
	PerformAction(seat int, name string, args map[string]interface{}) error

	// CurrentSeat returns whose turn it is, or 0 if turn order is not
	// applicable (e.g. the game has ended).
	CurrentSeat() int

	// IsComplete reports whether the game has reached a terminal state.
	IsComplete() bool

	// PlayerView renders the filtered state visible to seat (0 = spectator).
	PlayerView(seat int) PlayerView

	// AvailableActions lists the actions seat may currently attempt.
	AvailableActions(seat int) []ActionMetadata

	// ActionMetadataFor looks up the metadata for a named action.
	ActionMetadataFor(name string) (ActionMetadata, bool)

	// SelectionChoices computes the valid choices for one pending selection
	// step of a multi-step action, given the selections already accumulated
	// in partialArgs.
	SelectionChoices(actionName, selectionName string, seat int, partialArgs map[string]interface{}) (SelectionDef, error)

	// DrainAnimationEvents returns and clears events appended by the most
	// recent PerformAction call.
	DrainAnimationEvents() []AnimationEvent

	// Snapshot captures complete internal state as an opaque, versioned blob.
	Snapshot() ([]byte, error)

	// Restore replaces internal state with a previously captured snapshot.
	Restore(blob []byte) error

	// LegalMoves enumerates every concrete, immediately performable action
	// for seat, in a stable order. Used by AI bots and fallback move
	// selection; games with very large branching factors may cap this list.
	LegalMoves(seat int) []Move
}

// Move is one concrete, ready-to-perform action: a name plus fully resolved
// arguments (no pending selections required).
type Move struct {
	ActionName string
	Args       map[string]interface{}
}

// Factory constructs a fresh Game instance for a new session.
type Factory func(opts Options) (Game, error)
