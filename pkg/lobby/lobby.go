// Package lobby implements the Lobby: slot lifecycle (claim, leave, set-AI,
// kick, readiness, options) that precedes a game starting. A Lobby value
// only exists while its game is in the waiting state; once play starts it is
// discarded by the owning GameSession.
package lobby

import (
	"fmt"
	"sync"

	"boardhost/pkg/registry"
)

// State is the lobby's own lifecycle stage, independent of the session's.
type State string

const (
	StateWaiting  State = "waiting"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

var (
	ErrNotWaiting       = fmt.Errorf("lobby: not accepting changes (game already started)")
	ErrSlotNotFound     = fmt.Errorf("lobby: slot not found")
	ErrSlotNotOpen      = fmt.Errorf("lobby: slot is not open")
	ErrSlotClaimed      = fmt.Errorf("lobby: slot is already claimed")
	ErrPlayerAlreadyIn  = fmt.Errorf("lobby: player already occupies a slot")
	ErrPlayerNotFound   = fmt.Errorf("lobby: player does not occupy any slot")
	ErrNotCreator       = fmt.Errorf("lobby: caller is not the lobby creator")
	ErrSlotCountBounds  = fmt.Errorf("lobby: slot count would violate player bounds")
	ErrCannotRemoveSeat = fmt.Errorf("lobby: cannot remove the creator's seat")
	ErrOptionConflict   = fmt.Errorf("lobby: option value conflicts with another slot")
	ErrNotReady         = fmt.Errorf("lobby: not every slot is ready")
	ErrUnknownOption    = fmt.Errorf("lobby: unknown option")
)

// SlotStatus is one LobbySlot's occupancy state.
type SlotStatus string

const (
	SlotOpen    SlotStatus = "open"
	SlotAI      SlotStatus = "ai"
	SlotClaimed SlotStatus = "claimed"
)

// Slot is one seat's lobby-time state.
type Slot struct {
	Seat          int                    `json:"seat"`
	Status        SlotStatus             `json:"status"`
	Name          string                 `json:"name"`
	PlayerID      string                 `json:"playerId"`
	AILevel       string                 `json:"aiLevel,omitempty"`
	PlayerOptions map[string]interface{} `json:"playerOptions,omitempty"`
	Ready         bool                   `json:"ready"`
	Connected     bool                   `json:"connected"`
}

// Lobby tracks slot assignment for one pre-game session.
type Lobby struct {
	mu          sync.Mutex
	state       State
	slots       []*Slot
	creatorID   string
	minPlayers  int
	maxPlayers  int
	gameOptions map[string]interface{}
	optionDefs  map[string]registry.OptionDef
	// conflictOptionKeys names the player-option keys (e.g. "color") that
	// must be unique across claimed/ai slots.
	conflictOptionKeys []string
}

// New constructs a Lobby with slotCount open slots, all initially open. The
// creator is recorded as host but is not seated; claiming a seat, seat 1
// included, is a separate ClaimSeat call.
func New(creatorID string, slotCount, minPlayers, maxPlayers int, optionDefs map[string]registry.OptionDef, conflictOptionKeys []string) *Lobby {
	slots := make([]*Slot, slotCount)
	for i := range slots {
		slots[i] = &Slot{Seat: i + 1, Status: SlotOpen, PlayerOptions: map[string]interface{}{}}
	}
	return &Lobby{
		state:              StateWaiting,
		slots:              slots,
		creatorID:          creatorID,
		minPlayers:         minPlayers,
		maxPlayers:         maxPlayers,
		gameOptions:        map[string]interface{}{},
		optionDefs:         optionDefs,
		conflictOptionKeys: conflictOptionKeys,
	}
}

func (l *Lobby) requireWaiting() error {
	if l.state != StateWaiting {
		return ErrNotWaiting
	}
	return nil
}

func (l *Lobby) findSlot(seat int) *Slot {
	for _, s := range l.slots {
		if s.Seat == seat {
			return s
		}
	}
	return nil
}

func (l *Lobby) findSlotByPlayer(playerID string) *Slot {
	for _, s := range l.slots {
		if s.Status == SlotClaimed && s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

func (l *Lobby) requireCreator(playerID string) error {
	if playerID != l.creatorID {
		return ErrNotCreator
	}
	return nil
}

// ClaimSeat assigns playerId/name to an open slot.
func (l *Lobby) ClaimSeat(seat int, playerID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	slot := l.findSlot(seat)
	if slot == nil {
		return ErrSlotNotFound
	}
	if slot.Status != SlotOpen {
		return ErrSlotClaimed
	}
	if l.findSlotByPlayer(playerID) != nil {
		return ErrPlayerAlreadyIn
	}
	slot.Status = SlotClaimed
	slot.PlayerID = playerID
	slot.Name = name
	slot.Connected = true
	slot.Ready = false
	return nil
}

// LeaveSeat releases playerId's slot. The creator may not leave.
func (l *Lobby) LeaveSeat(playerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	slot := l.findSlotByPlayer(playerID)
	if slot == nil {
		return ErrPlayerNotFound
	}
	if playerID == l.creatorID {
		return ErrCannotRemoveSeat
	}
	l.resetSlot(slot)
	return nil
}

func (l *Lobby) resetSlot(slot *Slot) {
	slot.Status = SlotOpen
	slot.PlayerID = ""
	slot.Name = ""
	slot.AILevel = ""
	slot.Ready = false
	slot.Connected = false
	slot.PlayerOptions = map[string]interface{}{}
}

// SetReady updates playerId's readiness.
func (l *Lobby) SetReady(playerID string, ready bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	slot := l.findSlotByPlayer(playerID)
	if slot == nil {
		return ErrPlayerNotFound
	}
	slot.Ready = ready
	return nil
}

// UpdateSlotName renames playerId's own slot.
func (l *Lobby) UpdateSlotName(playerID, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	slot := l.findSlotByPlayer(playerID)
	if slot == nil {
		return ErrPlayerNotFound
	}
	slot.Name = name
	return nil
}

// AddSlot appends one open slot. hostId must be the creator.
func (l *Lobby) AddSlot(hostID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	if err := l.requireCreator(hostID); err != nil {
		return err
	}
	if len(l.slots) >= l.maxPlayers {
		return ErrSlotCountBounds
	}
	l.slots = append(l.slots, &Slot{Seat: len(l.slots) + 1, Status: SlotOpen, PlayerOptions: map[string]interface{}{}})
	return nil
}

// RemoveSlot drops seat and renumbers subsequent slots. hostId must be the
// creator; the slot count must stay >= minPlayers; a claimed slot other than
// an empty one cannot be silently removed mid-lobby unless it is open or AI.
func (l *Lobby) RemoveSlot(hostID string, seat int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	if err := l.requireCreator(hostID); err != nil {
		return err
	}
	if len(l.slots) <= l.minPlayers {
		return ErrSlotCountBounds
	}
	idx := -1
	for i, s := range l.slots {
		if s.Seat == seat {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSlotNotFound
	}
	if l.slots[idx].Status == SlotClaimed {
		return ErrSlotClaimed
	}
	l.slots = append(l.slots[:idx], l.slots[idx+1:]...)
	for i, s := range l.slots {
		s.Seat = i + 1
	}
	return nil
}

// SetSlotAI toggles seat between open and ai. hostId must be the creator;
// the slot must not be claimed by a human.
func (l *Lobby) SetSlotAI(hostID string, seat int, isAI bool, aiLevel string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	if err := l.requireCreator(hostID); err != nil {
		return err
	}
	slot := l.findSlot(seat)
	if slot == nil {
		return ErrSlotNotFound
	}
	if slot.Status == SlotClaimed {
		return ErrSlotClaimed
	}
	if isAI {
		slot.Status = SlotAI
		slot.AILevel = aiLevel
		slot.Ready = true
	} else {
		slot.Status = SlotOpen
		slot.AILevel = ""
		slot.Ready = false
	}
	return nil
}

// KickPlayer forces a claimed seat back to open. hostId must be the creator
// and cannot kick its own seat.
func (l *Lobby) KickPlayer(hostID string, seat int) (playerID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return "", err
	}
	if err := l.requireCreator(hostID); err != nil {
		return "", err
	}
	slot := l.findSlot(seat)
	if slot == nil {
		return "", ErrSlotNotFound
	}
	if slot.Status != SlotClaimed {
		return "", ErrSlotNotOpen
	}
	if slot.PlayerID == hostID {
		return "", ErrCannotRemoveSeat
	}
	kicked := slot.PlayerID
	l.resetSlot(slot)
	return kicked, nil
}

// UpdatePlayerOptions merges opts into playerId's own slot options, rejecting
// any value that conflicts with another slot's value for a conflict-tracked
// key (e.g. color).
func (l *Lobby) UpdatePlayerOptions(playerID string, opts map[string]interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	slot := l.findSlotByPlayer(playerID)
	if slot == nil {
		return ErrPlayerNotFound
	}
	return l.applyOptions(slot, opts)
}

// UpdateSlotPlayerOptions lets the creator merge opts into any slot.
func (l *Lobby) UpdateSlotPlayerOptions(hostID string, seat int, opts map[string]interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	if err := l.requireCreator(hostID); err != nil {
		return err
	}
	slot := l.findSlot(seat)
	if slot == nil {
		return ErrSlotNotFound
	}
	return l.applyOptions(slot, opts)
}

func (l *Lobby) applyOptions(slot *Slot, opts map[string]interface{}) error {
	for _, key := range l.conflictOptionKeys {
		val, present := opts[key]
		if !present {
			continue
		}
		for _, other := range l.slots {
			if other.Seat == slot.Seat || other.Status == SlotOpen {
				continue
			}
			if other.PlayerOptions[key] == val {
				return ErrOptionConflict
			}
		}
	}
	for k, v := range opts {
		slot.PlayerOptions[k] = v
	}
	return nil
}

// UpdateGameOptions validates opts against optionDefs and, if valid, replaces
// the lobby's game-level option values. hostId must be the creator.
func (l *Lobby) UpdateGameOptions(hostID string, opts map[string]interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return err
	}
	if err := l.requireCreator(hostID); err != nil {
		return err
	}
	for name, value := range opts {
		def, ok := l.optionDefs[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownOption, name)
		}
		if err := def.Validate(value); err != nil {
			return err
		}
	}
	for k, v := range opts {
		l.gameOptions[k] = v
	}
	return nil
}

// IsReady reports whether every slot is non-open and every human slot is ready.
func (l *Lobby) IsReady() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isReadyLocked()
}

func (l *Lobby) isReadyLocked() bool {
	for _, s := range l.slots {
		if s.Status == SlotOpen {
			return false
		}
		if s.Status == SlotClaimed && !s.Ready {
			return false
		}
	}
	return true
}

// Start transitions waiting->playing if hostId is the creator and IsReady
// holds, returning a snapshot of the final slot assignment for the session
// to hand to the game factory.
func (l *Lobby) Start(hostID string) ([]Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireWaiting(); err != nil {
		return nil, err
	}
	if err := l.requireCreator(hostID); err != nil {
		return nil, err
	}
	if !l.isReadyLocked() {
		return nil, ErrNotReady
	}
	l.state = StatePlaying
	return l.snapshotLocked(), nil
}

// Snapshot returns a read-only copy of every slot for broadcast/persistence.
func (l *Lobby) Snapshot() []Slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Lobby) snapshotLocked() []Slot {
	out := make([]Slot, len(l.slots))
	for i, s := range l.slots {
		cp := *s
		cp.PlayerOptions = make(map[string]interface{}, len(s.PlayerOptions))
		for k, v := range s.PlayerOptions {
			cp.PlayerOptions[k] = v
		}
		out[i] = cp
	}
	return out
}

// State returns the lobby's current lifecycle stage.
func (l *Lobby) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// SetConnected updates a claimed slot's liveness echo.
func (l *Lobby) SetConnected(playerID string, connected bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if slot := l.findSlotByPlayer(playerID); slot != nil {
		slot.Connected = connected
	}
}
