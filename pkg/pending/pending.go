// Package pending implements PendingActionManager: composition of multi-step
// ("repeating selection") actions, one active per player. The session never
// hands a partially-selected action to the engine; only the final step calls
// engine.Game.PerformAction.
package pending

import (
	"fmt"
	"sync"
	"time"

	"boardhost/pkg/engine"
)

// ErrInvalidStep is returned when a step's selection name does not match the
// pending action's current expected selection.
var ErrInvalidStep = fmt.Errorf("pending: selection name does not match current step")

// ErrInvalidChoice is returned when a step's value is not a member of the
// current selection's choice set.
var ErrInvalidChoice = fmt.Errorf("pending: value is not a valid choice")

// ErrNoPending is returned when a seat has no active pending action.
var ErrNoPending = fmt.Errorf("pending: no pending action for seat")

// State is the externally visible shape of one seat's in-progress action.
type State struct {
	ActionName    string
	PlayerSeat    int
	PartialArgs   map[string]interface{}
	NextSelection *engine.SelectionDef // nil once every selection is resolved
	ExpiresAt     *time.Time
}

// StepResult is returned by ProcessStep. When ActionComplete is true,
// CommittedAction and CommittedArgs describe the action just applied to the
// engine, for the caller's own history bookkeeping.
type StepResult struct {
	Done            bool
	NextChoices     *engine.SelectionDef
	ActionComplete  bool
	State           *State
	CommittedAction string
	CommittedArgs   map[string]interface{}
}

// Manager tracks at most one pending multi-step action per seat.
type Manager struct {
	mu      sync.Mutex
	pending map[int]*State
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{pending: make(map[int]*State)}
}

// HasRepeatingSelections reports whether meta requires pending composition.
func HasRepeatingSelections(meta engine.ActionMetadata) bool {
	return meta.HasRepeatingSelections()
}

// Start begins composing actionName for seat, optionally pre-filled with
// initialArgs for selections already known by the caller. A seat with an
// existing pending action has it replaced.
func (m *Manager) Start(game engine.Game, actionName string, seat int, initialArgs map[string]interface{}) (State, error) {
	meta, ok := game.ActionMetadataFor(actionName)
	if !ok {
		return State{}, fmt.Errorf("pending: unknown action %q", actionName)
	}
	if !meta.HasRepeatingSelections() {
		return State{}, fmt.Errorf("pending: action %q has no pending selections", actionName)
	}

	partial := make(map[string]interface{}, len(initialArgs))
	for k, v := range initialArgs {
		partial[k] = v
	}

	state := &State{ActionName: actionName, PlayerSeat: seat, PartialArgs: partial}

	next, err := nextPendingSelection(game, meta, actionName, seat, partial)
	if err != nil {
		return State{}, err
	}
	state.NextSelection = next

	m.mu.Lock()
	m.pending[seat] = state
	m.mu.Unlock()

	return copyState(state), nil
}

// nextPendingSelection returns the first selection in meta.Selections order
// not already present in partial, or nil if all are satisfied.
func nextPendingSelection(game engine.Game, meta engine.ActionMetadata, actionName string, seat int, partial map[string]interface{}) (*engine.SelectionDef, error) {
	for _, sel := range meta.Selections {
		if _, done := partial[sel.Name]; done {
			continue
		}
		resolved, err := game.SelectionChoices(actionName, sel.Name, seat, partial)
		if err != nil {
			return nil, err
		}
		return &resolved, nil
	}
	return nil, nil
}

// ProcessStep validates and applies one selection step. When every selection
// has been supplied, it commits the action via game.PerformAction and clears
// the pending state regardless of outcome (the session surfaces any engine
// error as ILLEGAL_ACTION; no partial state is retained either way).
func (m *Manager) ProcessStep(game engine.Game, seat int, selectionName string, value interface{}) (StepResult, error) {
	m.mu.Lock()
	state, ok := m.pending[seat]
	m.mu.Unlock()
	if !ok {
		return StepResult{}, ErrNoPending
	}
	if state.NextSelection == nil || state.NextSelection.Name != selectionName {
		return StepResult{}, ErrInvalidStep
	}
	if !isValidChoice(*state.NextSelection, value) {
		return StepResult{}, ErrInvalidChoice
	}

	state.PartialArgs[selectionName] = value

	meta, ok := game.ActionMetadataFor(state.ActionName)
	if !ok {
		m.clear(seat)
		return StepResult{}, fmt.Errorf("pending: action %q no longer registered", state.ActionName)
	}

	next, err := nextPendingSelection(game, meta, state.ActionName, seat, state.PartialArgs)
	if err != nil {
		m.clear(seat)
		return StepResult{}, err
	}

	if next == nil {
		args := state.PartialArgs
		actionName := state.ActionName
		m.clear(seat)
		if err := game.PerformAction(seat, actionName, args); err != nil {
			return StepResult{}, err
		}
		return StepResult{
			Done:            true,
			ActionComplete:  true,
			CommittedAction: actionName,
			CommittedArgs:   args,
		}, nil
	}

	state.NextSelection = next
	result := copyState(state)
	return StepResult{Done: false, NextChoices: next, State: &result}, nil
}

func isValidChoice(sel engine.SelectionDef, value interface{}) bool {
	if len(sel.Choices) == 0 && len(sel.ValidElements) == 0 {
		return true
	}
	for _, c := range sel.Choices {
		if c == value {
			return true
		}
	}
	for _, v := range sel.ValidElements {
		if v == value {
			return true
		}
	}
	return false
}

// Cancel drops seat's pending action, if any.
func (m *Manager) Cancel(seat int) {
	m.clear(seat)
}

func (m *Manager) clear(seat int) {
	m.mu.Lock()
	delete(m.pending, seat)
	m.mu.Unlock()
}

// Get returns seat's pending action, if any.
func (m *Manager) Get(seat int) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.pending[seat]
	if !ok {
		return State{}, false
	}
	return copyState(state), true
}

func copyState(s *State) State {
	args := make(map[string]interface{}, len(s.PartialArgs))
	for k, v := range s.PartialArgs {
		args[k] = v
	}
	return State{
		ActionName:    s.ActionName,
		PlayerSeat:    s.PlayerSeat,
		PartialArgs:   args,
		NextSelection: s.NextSelection,
		ExpiresAt:     s.ExpiresAt,
	}
}
