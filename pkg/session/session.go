// Package session implements GameSession: the single-writer owner of one
// live engine.Game instance, its lobby (while waiting), its action history,
// and the checkpoint/pending/AI machinery layered on top of it. Every
// mutating call is funneled through one goroutine's lane so the engine,
// which is not safe for concurrent use, only ever sees one caller at a time.
package session

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"boardhost/pkg/ai"
	"boardhost/pkg/checkpoint"
	"boardhost/pkg/engine"
	"boardhost/pkg/lobby"
	"boardhost/pkg/pending"
	"boardhost/pkg/registry"
	"boardhost/pkg/snapshot"
	"boardhost/pkg/store"
	"boardhost/pkg/wire"
)

// Config bundles the tunables a Session needs at construction, mirroring
// pkg/config's session/game domain settings.
type Config struct {
	CheckpointInterval int
	CheckpointWindow   int
	ThinkTimeout       time.Duration
	AIBudgets          map[string]int
	Metrics            Metrics
}

// Metrics receives counters for session mutation activity. pkg/server's
// *Metrics satisfies this; a nil Metrics is valid and every call becomes a
// no-op, so tests and callers that don't care about metrics can omit it.
type Metrics interface {
	RecordPlayerAction(actionType, status string)
	RecordGameEvent(eventType string)
}

// NewGameParams describes a session to be created. When UseLobby is true the
// engine is not constructed until the lobby's host calls Start; otherwise
// the engine is built immediately from PlayerNames/AISeats/GameOptions.
type NewGameParams struct {
	GameID      string
	GameType    string
	Seed        int64
	PlayerNames []string
	PlayerIDs   map[int]string
	AISeats     map[int]string // seat -> aiLevel
	GameOptions map[string]interface{}
	UseLobby    bool
	CreatorID   string
}

// Session owns one game's live engine instance plus everything layered on
// top of it: lobby slot assignment before the game starts, the action
// history and checkpoint window, pending multi-step action composition, and
// AI scheduling. No field below the lane is safe to touch except from a
// function submitted to it.
type Session struct {
	gameID      string
	gameType    string
	createdAt   time.Time
	seed        int64
	playerNames []string
	playerIDs   map[int]string
	aiSeats     map[int]string
	gameOptions map[string]interface{}

	def   registry.Definition
	store store.GameStore
	log   *logrus.Entry

	checkpoints *checkpoint.Manager
	pendingMgr  *pending.Manager
	aiCtrl      *ai.Controller
	metrics     Metrics

	lane          chan func()
	closeLaneOnce sync.Once

	mu            sync.Mutex
	game          engine.Game
	lob           *lobby.Lobby
	actionHistory []wire.SerializedAction
	turnStartIdx  int
	lastActivity  time.Time
	connections   []*Connection
	closed        bool
}

// New constructs a Session and starts its lane goroutine.
func New(def registry.Definition, st store.GameStore, cfg Config, params NewGameParams, coordinator *lobby.Coordinator) (*Session, error) {
	s := &Session{
		gameID:      params.GameID,
		gameType:    params.GameType,
		createdAt:   time.Now(),
		seed:        params.Seed,
		playerNames: params.PlayerNames,
		playerIDs:   params.PlayerIDs,
		aiSeats:     params.AISeats,
		gameOptions: params.GameOptions,
		def:         def,
		store:       st,
		log:         logrus.WithField("gameId", params.GameID),
		checkpoints: checkpoint.NewManager(cfg.CheckpointInterval, cfg.CheckpointWindow),
		pendingMgr:  pending.NewManager(),
		metrics:     cfg.Metrics,
		lane:        make(chan func(), 64),
		lastActivity: time.Now(),
	}
	s.aiCtrl = ai.NewController(ai.SimpleBot, cfg.AIBudgets, cfg.ThinkTimeout)

	if params.UseLobby {
		lob, err := coordinator.NewLobby(def, params.CreatorID, len(params.PlayerNames))
		if err != nil {
			return nil, newErr(ErrCodeInvalidArgs, "%v", err)
		}
		s.lob = lob
	} else {
		game, err := def.Factory(s.engineOptionsLocked())
		if err != nil {
			return nil, newErr(ErrCodeInvalidArgs, "%v", err)
		}
		s.game = game
	}

	go s.run()
	return s, nil
}

// recordAction reports a player or AI mutation outcome, a no-op if no
// Metrics was configured.
func (s *Session) recordAction(actionType, status string) {
	if s.metrics != nil {
		s.metrics.RecordPlayerAction(actionType, status)
	}
}

// recordEvent reports a game-level event (checkpoint taken, rewind applied),
// a no-op if no Metrics was configured.
func (s *Session) recordEvent(eventType string) {
	if s.metrics != nil {
		s.metrics.RecordGameEvent(eventType)
	}
}

// GameID returns the session's game id, set at construction and immutable.
func (s *Session) GameID() string { return s.gameID }

// GameType returns the session's registered game type, immutable.
func (s *Session) GameType() string { return s.gameType }

func (s *Session) run() {
	for fn := range s.lane {
		fn()
	}
}

// submit runs fn on the lane and blocks until it completes. It fails with
// ErrCodeConflict once the session has begun shutting down.
func (s *Session) submit(fn func()) *Error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return newErr(ErrCodeConflict, "session %s is shutting down", s.gameID)
	}

	done := make(chan struct{})
	s.lane <- func() {
		fn()
		close(done)
	}
	<-done
	return nil
}

// Shutdown persists the session's final state and stops accepting further
// work. It is safe to call more than once.
func (s *Session) Shutdown(ctx context.Context) error {
	var persistErr error
	err := s.submit(func() {
		s.mu.Lock()
		alreadyClosed := s.closed
		s.closed = true
		s.mu.Unlock()
		if alreadyClosed || s.game == nil {
			return
		}
		persistErr = s.store.Persist(ctx, s.gameID)
	})
	if err != nil {
		return nil // a concurrent or prior call already closed the lane
	}
	s.closeLaneOnce.Do(func() { close(s.lane) })
	return persistErr
}

func aiSeatsToBoolMap(aiSeats map[int]string) map[int]bool {
	out := make(map[int]bool, len(aiSeats))
	for seat := range aiSeats {
		out[seat] = true
	}
	return out
}

func (s *Session) engineOptionsLocked() engine.Options {
	return engine.Options{
		Seed:        s.seed,
		PlayerNames: s.playerNames,
		AIseats:     aiSeatsToBoolMap(s.aiSeats),
		GameOptions: s.gameOptions,
	}
}

func (s *Session) rebuildFreshLocked() (engine.Game, error) {
	return s.def.Factory(s.engineOptionsLocked())
}

// ---- lobby-to-playing transition ----

// Start finalizes the lobby's slot assignment and constructs the live engine,
// called once every slot is ready. hostID must be the lobby's creator.
func (s *Session) Start(hostID string) (map[int]PlayerGameState, error) {
	var out map[int]PlayerGameState
	var opErr error
	if err := s.submit(func() { out, opErr = s.startLocked(hostID) }); err != nil {
		return nil, err
	}
	return out, opErr
}

func (s *Session) startLocked(hostID string) (map[int]PlayerGameState, error) {
	if s.lob == nil {
		return nil, newErr(ErrCodeConflict, "game has already started")
	}
	slots, err := s.lob.Start(hostID)
	if err != nil {
		return nil, newErr(ErrCodeForbidden, "%v", err)
	}

	names := make([]string, len(slots))
	playerIDs := make(map[int]string, len(slots))
	aiSeats := make(map[int]string, len(slots))
	for i, slot := range slots {
		names[i] = slot.Name
		switch slot.Status {
		case lobby.SlotClaimed:
			playerIDs[slot.Seat] = slot.PlayerID
		case lobby.SlotAI:
			aiSeats[slot.Seat] = slot.AILevel
		}
	}
	s.playerNames = names
	s.playerIDs = playerIDs
	s.aiSeats = aiSeats

	game, ferr := s.rebuildFreshLocked()
	if ferr != nil {
		return nil, newErr(ErrCodeInternal, "%v", ferr)
	}
	s.game = game
	s.lob = nil

	if err := s.store.PersistLobby(context.Background(), s.gameID, nil, ""); err != nil {
		s.log.WithError(err).Warn("failed to clear persisted lobby state")
	}

	states := s.broadcastLocked(nil)
	s.evaluateAILocked()
	return states, nil
}

// ---- action mutation ----

// PerformAction applies name on behalf of seat with raw (wire-form) args,
// returning the post-mutation broadcast state for every connected seat.
func (s *Session) PerformAction(seat int, name string, rawArgs map[string]interface{}) (map[int]PlayerGameState, error) {
	var out map[int]PlayerGameState
	var opErr error
	if err := s.submit(func() { out, opErr = s.performActionLocked(seat, name, rawArgs) }); err != nil {
		return nil, err
	}
	return out, opErr
}

func (s *Session) performActionLocked(seat int, name string, rawArgs map[string]interface{}) (map[int]PlayerGameState, error) {
	if err := s.requirePlayingLocked(); err != nil {
		return nil, err
	}
	if s.game.CurrentSeat() != seat {
		return nil, newErr(ErrCodeForbidden, "not seat %d's turn", seat)
	}
	meta, ok := s.game.ActionMetadataFor(name)
	if !ok {
		return nil, newErr(ErrCodeInvalidArgs, "unknown action %q", name)
	}
	if meta.HasRepeatingSelections() {
		return nil, newErr(ErrCodeInvalidArgs, "action %q requires startPendingAction", name)
	}

	args, err := s.resolveArgsLocked(rawArgs)
	if err != nil {
		return nil, newErr(ErrCodeInvalidArgs, "%v", err)
	}
	if err := s.game.PerformAction(seat, name, args); err != nil {
		return nil, newErr(ErrCodeIllegalAction, "%v", err)
	}
	return s.commitLocked(name, seat, args)
}

func (s *Session) requirePlayingLocked() *Error {
	if s.lob != nil || s.game == nil {
		return newErr(ErrCodeConflict, "game has not started")
	}
	if s.game.IsComplete() {
		return newErr(ErrCodeGameOver, "game is already over")
	}
	return nil
}

func (s *Session) resolveArgsLocked(rawArgs map[string]interface{}) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(rawArgs))
	for k, v := range rawArgs {
		dv, err := wire.DeserializeValue(v, s.game)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", k, err)
		}
		resolved[k] = dv
	}
	return resolved, nil
}

// commitLocked runs the bookkeeping pipeline shared by every successful
// mutation path (direct action, completed pending action, AI move): wire
// serialization, durable persistence with rollback on failure, history and
// checkpoint bookkeeping, broadcast, and AI re-evaluation.
func (s *Session) commitLocked(actionName string, seat int, args map[string]interface{}) (map[int]PlayerGameState, error) {
	sa, err := wire.SerializeAction(actionName, seat, args, s.game, time.Now().UnixMilli())
	if err != nil {
		s.rollbackLocked()
		s.recordAction(actionName, "error")
		return nil, newErr(ErrCodeInternal, "serializing action: %v", err)
	}

	ctx := context.Background()
	if err := s.store.AppendAction(ctx, s.gameID, sa); err != nil {
		s.rollbackLocked()
		s.recordAction(actionName, "error")
		return nil, newErr(ErrCodeInternal, "persisting action: %v", err)
	}

	newSeat := s.game.CurrentSeat()
	s.actionHistory = append(s.actionHistory, sa)
	if newSeat != seat {
		s.turnStartIdx = len(s.actionHistory)
	}
	s.lastActivity = time.Now()
	s.recordAction(actionName, "success")

	beforeCheckpoints := len(s.checkpoints.All())
	if err := s.checkpoints.MaybeCapture(len(s.actionHistory), s.game, s.gameType, s.actionHistory, s.seed); err != nil {
		s.log.WithError(err).Warn("failed to capture checkpoint")
	} else if len(s.checkpoints.All()) > beforeCheckpoints {
		s.recordEvent("checkpoint")
	}

	events := s.game.DrainAnimationEvents()
	states := s.broadcastLocked(events)
	s.evaluateAILocked()
	return states, nil
}

// rollbackLocked undoes a live engine mutation that was applied but could
// not be durably recorded. It restores the nearest checkpoint (or rebuilds a
// fresh engine if none exists yet) and replays actionHistory, which has not
// yet had the failed action appended to it.
func (s *Session) rollbackLocked() {
	cp, ok := s.checkpoints.Nearest(len(s.actionHistory))
	from := 0
	if ok {
		if err := snapshot.Restore(s.game, cp.Snapshot); err != nil {
			s.log.WithError(err).Error("rollback: failed to restore checkpoint")
			return
		}
		from = cp.AtActionIndex
	} else {
		fresh, err := s.rebuildFreshLocked()
		if err != nil {
			s.log.WithError(err).Error("rollback: failed to rebuild fresh engine")
			return
		}
		s.game = fresh
	}
	if err := replayActions(s.game, s.actionHistory[from:]); err != nil {
		s.log.WithError(err).Error("rollback: replay failed")
	}
}

// replayActions applies each recorded action to game in order, resolving its
// wire-form args back to live values first. Used for both rollback (same
// instance) and time-travel (a throwaway shadow instance).
func replayActions(game engine.Game, actions []wire.SerializedAction) error {
	for _, sa := range actions {
		name, seat, args, err := wire.DeserializeAction(sa, game)
		if err != nil {
			return fmt.Errorf("resolving action %q: %w", sa.Name, err)
		}
		if err := game.PerformAction(seat, name, args); err != nil {
			return fmt.Errorf("replaying action %q: %w", name, err)
		}
	}
	return nil
}

// ---- AI ----

// evaluateAILocked hands control to the AI controller if it is now an AI
// seat's turn. aiCommitLocked is passed as the Commit callback; because
// OnMutation's think goroutine calls it asynchronously from outside the
// lane, it re-submits onto the lane itself.
//
// The engine is not safe for concurrent use (only one caller at a time), and
// the lane can mutate s.game again before a think finishes. So the
// controller never sees the live instance: it gets an isolated copy, built
// the same way GetStateAtAction builds its throwaway replay instance.
func (s *Session) evaluateAILocked() {
	if s.game == nil || s.game.IsComplete() {
		return
	}
	seat := s.game.CurrentSeat()
	level := s.aiSeats[seat]
	if level == "" {
		return
	}

	shadow, err := s.snapshotGameLocked()
	if err != nil {
		s.log.WithError(err).Warn("failed to snapshot game for AI think, skipping turn")
		return
	}
	s.aiCtrl.OnMutation(shadow, seat, level, s.aiCommit)
}

// snapshotGameLocked returns a freshly constructed engine instance holding an
// independent copy of s.game's current state, safe to hand to a goroutine
// that outlives the caller's hold on the lane.
func (s *Session) snapshotGameLocked() (engine.Game, error) {
	snap, err := snapshot.Create(s.game, s.gameType, nil, s.seed)
	if err != nil {
		return nil, fmt.Errorf("capturing engine state: %w", err)
	}
	shadow, err := s.rebuildFreshLocked()
	if err != nil {
		return nil, fmt.Errorf("constructing throwaway engine: %w", err)
	}
	if err := snapshot.Restore(shadow, snap); err != nil {
		return nil, fmt.Errorf("restoring throwaway engine: %w", err)
	}
	return shadow, nil
}

// aiCommit implements ai.Commit. It runs on the lane so the chosen move goes
// through the exact same validation and bookkeeping pipeline a player's own
// performAction call would.
func (s *Session) aiCommit(seat int, move engine.Move) error {
	var opErr error
	err := s.submit(func() {
		if verr := s.requirePlayingLocked(); verr != nil {
			opErr = verr
			return
		}
		if s.game.CurrentSeat() != seat {
			opErr = newErr(ErrCodeConflict, "stale AI move: no longer seat %d's turn", seat)
			return
		}
		if gerr := s.game.PerformAction(seat, move.ActionName, move.Args); gerr != nil {
			opErr = newErr(ErrCodeIllegalAction, "%v", gerr)
			return
		}
		if _, cerr := s.commitLocked(move.ActionName, seat, move.Args); cerr != nil {
			opErr = cerr
			return
		}
		s.recordEvent("ai_turn")
	})
	if err != nil {
		return err
	}
	return opErr
}

// ---- broadcast ----

func (s *Session) broadcastLocked(events []engine.AnimationEvent) map[int]PlayerGameState {
	seats := map[int]struct{}{0: {}}
	for _, c := range s.connections {
		seats[c.Seat] = struct{}{}
	}
	states := make(map[int]PlayerGameState, len(seats))
	for seat := range seats {
		state := s.buildStateLocked(seat, events)
		states[seat] = state
		for _, c := range s.connections {
			if c.Seat != seat || c.Sender == nil {
				continue
			}
			if err := c.Sender.Send(state); err != nil {
				s.log.WithError(err).WithField("seat", seat).Warn("closing connection after failed send")
				c.Liveness = LivenessClosed
			}
		}
	}
	return states
}

// AttachConnection registers a connected socket for seat (0 = spectator).
func (s *Session) AttachConnection(conn *Connection) {
	s.mu.Lock()
	s.connections = append(s.connections, conn)
	s.mu.Unlock()
}

// DetachConnection removes conn from the session's connection list.
func (s *Session) DetachConnection(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.connections {
		if c == conn {
			s.connections = append(s.connections[:i], s.connections[i+1:]...)
			return
		}
	}
}

// ---- reads ----

// GetState returns seat's current view. Reads queue behind writes on the
// same lane rather than racing a concurrent mutation, since engine.Game
// offers no cheap copy-on-read primitive (only a full Snapshot/Restore
// round-trip through an opaque blob).
func (s *Session) GetState(seat int) (PlayerGameState, error) {
	var out PlayerGameState
	var opErr error
	if err := s.submit(func() {
		if verr := s.requirePlayingLocked(); verr != nil {
			opErr = verr
			return
		}
		out = s.buildStateLocked(seat, nil)
	}); err != nil {
		return PlayerGameState{}, err
	}
	return out, opErr
}

// GetHistory returns every committed action so far.
func (s *Session) GetHistory() ([]wire.SerializedAction, error) {
	var out []wire.SerializedAction
	if err := s.submit(func() {
		out = make([]wire.SerializedAction, len(s.actionHistory))
		copy(out, s.actionHistory)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStateAtAction renders seat's view as of just after action idx, by
// restoring the nearest checkpoint into a throwaway engine instance and
// forward-replaying the remainder. It never mutates the live session.
func (s *Session) GetStateAtAction(seat, idx int) (PlayerGameState, error) {
	var out PlayerGameState
	var opErr error
	if err := s.submit(func() { out, opErr = s.getStateAtActionLocked(seat, idx) }); err != nil {
		return PlayerGameState{}, err
	}
	return out, opErr
}

func (s *Session) getStateAtActionLocked(seat, idx int) (PlayerGameState, error) {
	if s.lob != nil || s.game == nil {
		return PlayerGameState{}, newErr(ErrCodeConflict, "game has not started")
	}
	if idx < 0 || idx > len(s.actionHistory) {
		return PlayerGameState{}, newErr(ErrCodeOutOfRange, "action index %d out of range [0,%d]", idx, len(s.actionHistory))
	}

	shadow, err := s.rebuildFreshLocked()
	if err != nil {
		return PlayerGameState{}, newErr(ErrCodeInternal, "%v", err)
	}
	from := 0
	if cp, ok := s.checkpoints.Nearest(idx); ok {
		if err := snapshot.Restore(shadow, cp.Snapshot); err != nil {
			return PlayerGameState{}, newErr(ErrCodeInternal, "%v", err)
		}
		from = cp.AtActionIndex
	}
	if err := replayActions(shadow, s.actionHistory[from:idx]); err != nil {
		return PlayerGameState{}, newErr(ErrCodeInternal, "replay: %v", err)
	}

	pv := shadow.PlayerView(seat)
	return PlayerGameState{
		Phase:            pv.Phase,
		Players:          pv.Players,
		CurrentPlayer:    pv.CurrentPlayer,
		IsComplete:       pv.IsComplete,
		AvailableActions: pv.AvailableActions,
		IsMyTurn:         seat != 0 && pv.CurrentPlayer == seat,
		View:             pv.View,
	}, nil
}

// GetStateDiff reports which top-level view fields changed between action
// indices from and to, from seat's perspective. Fields the view doesn't
// expose as a map are returned as an opaque before/after pair.
func (s *Session) GetStateDiff(seat, from, to int) (map[string]interface{}, error) {
	beforeState, err := s.GetStateAtAction(seat, from)
	if err != nil {
		return nil, err
	}
	afterState, err := s.GetStateAtAction(seat, to)
	if err != nil {
		return nil, err
	}
	return diffViews(beforeState.View, afterState.View), nil
}

func diffViews(before, after interface{}) map[string]interface{} {
	beforeMap, beforeOK := before.(map[string]interface{})
	afterMap, afterOK := after.(map[string]interface{})
	if !beforeOK || !afterOK {
		if reflect.DeepEqual(before, after) {
			return map[string]interface{}{}
		}
		return map[string]interface{}{"view": map[string]interface{}{"from": before, "to": after}}
	}

	changed := map[string]interface{}{}
	seen := map[string]struct{}{}
	for k := range beforeMap {
		seen[k] = struct{}{}
	}
	for k := range afterMap {
		seen[k] = struct{}{}
	}
	for k := range seen {
		if !reflect.DeepEqual(beforeMap[k], afterMap[k]) {
			changed[k] = map[string]interface{}{"from": beforeMap[k], "to": afterMap[k]}
		}
	}
	return changed
}

// ---- undo / rewind ----

// UndoToTurnStart discards every action recorded since the current turn
// began, restoring the engine to that point.
func (s *Session) UndoToTurnStart(seat int) (map[int]PlayerGameState, error) {
	var out map[int]PlayerGameState
	var opErr error
	if err := s.submit(func() {
		if verr := s.requirePlayingLocked(); verr != nil {
			opErr = verr
			return
		}
		if s.turnStartIdx >= len(s.actionHistory) {
			opErr = newErr(ErrCodeConflict, "nothing to undo")
			return
		}
		out, _, opErr = s.rewindLocked(s.turnStartIdx)
	}); err != nil {
		return nil, err
	}
	return out, opErr
}

// RewindToAction truncates history back to idx and rebuilds the engine
// accordingly. Debug-only: unlike undo, it allows any index, not just the
// start of the current turn.
func (s *Session) RewindToAction(idx int) (map[int]PlayerGameState, int, error) {
	var out map[int]PlayerGameState
	var discarded int
	var opErr error
	if err := s.submit(func() {
		if verr := s.requirePlayingLocked(); verr != nil {
			opErr = verr
			return
		}
		out, discarded, opErr = s.rewindLocked(idx)
	}); err != nil {
		return nil, 0, err
	}
	return out, discarded, opErr
}

func (s *Session) rewindLocked(idx int) (map[int]PlayerGameState, int, error) {
	if idx < 0 || idx > len(s.actionHistory) {
		return nil, 0, newErr(ErrCodeOutOfRange, "action index %d out of range", idx)
	}
	discarded := len(s.actionHistory) - idx
	s.checkpoints.DiscardFrom(idx)

	from := 0
	if cp, ok := s.checkpoints.Nearest(idx); ok {
		if err := snapshot.Restore(s.game, cp.Snapshot); err != nil {
			return nil, 0, newErr(ErrCodeInternal, "%v", err)
		}
		from = cp.AtActionIndex
	} else {
		fresh, err := s.rebuildFreshLocked()
		if err != nil {
			return nil, 0, newErr(ErrCodeInternal, "%v", err)
		}
		s.game = fresh
	}

	s.actionHistory = s.actionHistory[:idx]
	if err := replayActions(s.game, s.actionHistory[from:]); err != nil {
		return nil, 0, newErr(ErrCodeInternal, "replay: %v", err)
	}
	if err := s.store.TruncateActions(context.Background(), s.gameID, idx); err != nil {
		s.log.WithError(err).Warn("failed to truncate persisted action log")
	}

	// A turn boundary mid-history is not recoverable without re-deriving it
	// from the replayed seats; treat the rewind point as a fresh turn start.
	s.turnStartIdx = len(s.actionHistory)
	s.pendingMgr = pending.NewManager()

	events := s.game.DrainAnimationEvents()
	states := s.broadcastLocked(events)
	s.evaluateAILocked()
	s.recordEvent("rewind")
	return states, discarded, nil
}

// ---- pending multi-step actions ----

// StartPendingAction begins composing a multi-step action for seat.
func (s *Session) StartPendingAction(seat int, name string, rawArgs map[string]interface{}) (pending.State, error) {
	var out pending.State
	var opErr error
	if err := s.submit(func() { out, opErr = s.startPendingActionLocked(seat, name, rawArgs) }); err != nil {
		return pending.State{}, err
	}
	return out, opErr
}

func (s *Session) startPendingActionLocked(seat int, name string, rawArgs map[string]interface{}) (pending.State, error) {
	if verr := s.requirePlayingLocked(); verr != nil {
		return pending.State{}, verr
	}
	if s.game.CurrentSeat() != seat {
		return pending.State{}, newErr(ErrCodeForbidden, "not seat %d's turn", seat)
	}
	args, err := s.resolveArgsLocked(rawArgs)
	if err != nil {
		return pending.State{}, newErr(ErrCodeInvalidArgs, "%v", err)
	}
	st, err := s.pendingMgr.Start(s.game, name, seat, args)
	if err != nil {
		return pending.State{}, newErr(ErrCodeIllegalAction, "%v", err)
	}
	return st, nil
}

// ProcessSelectionStep supplies one selection value toward seat's pending
// action. When this was the final selection, the action commits and the
// returned states map is populated; otherwise it is nil and the returned
// pending.StepResult carries the next selection to prompt for.
func (s *Session) ProcessSelectionStep(seat int, selectionName string, rawValue interface{}) (pending.StepResult, map[int]PlayerGameState, error) {
	var step pending.StepResult
	var states map[int]PlayerGameState
	var opErr error
	if err := s.submit(func() { step, states, opErr = s.processSelectionStepLocked(seat, selectionName, rawValue) }); err != nil {
		return pending.StepResult{}, nil, err
	}
	return step, states, opErr
}

func (s *Session) processSelectionStepLocked(seat int, selectionName string, rawValue interface{}) (pending.StepResult, map[int]PlayerGameState, error) {
	if verr := s.requirePlayingLocked(); verr != nil {
		return pending.StepResult{}, nil, verr
	}
	value, err := wire.DeserializeValue(rawValue, s.game)
	if err != nil {
		return pending.StepResult{}, nil, newErr(ErrCodeInvalidArgs, "%v", err)
	}

	step, err := s.pendingMgr.ProcessStep(s.game, seat, selectionName, value)
	if err != nil {
		switch err {
		case pending.ErrNoPending:
			return pending.StepResult{}, nil, newErr(ErrCodeConflict, "%v", err)
		case pending.ErrInvalidStep, pending.ErrInvalidChoice:
			return pending.StepResult{}, nil, newErr(ErrCodeInvalidStep, "%v", err)
		default:
			return pending.StepResult{}, nil, newErr(ErrCodeIllegalAction, "%v", err)
		}
	}
	if !step.ActionComplete {
		return step, nil, nil
	}

	states, cerr := s.commitLocked(step.CommittedAction, seat, step.CommittedArgs)
	if cerr != nil {
		return step, nil, cerr
	}
	return step, states, nil
}

// CancelPendingAction drops seat's in-progress multi-step action, if any.
func (s *Session) CancelPendingAction(seat int) error {
	return s.submit(func() { s.pendingMgr.Cancel(seat) })
}

// GetPendingAction reports the in-progress multi-step action for seat, if
// any. The bool result mirrors pending.Manager.Get: false means seat has no
// action awaiting further selections.
func (s *Session) GetPendingAction(seat int) (pending.State, bool, error) {
	var out pending.State
	var found bool
	err := s.submit(func() { out, found = s.pendingMgr.Get(seat) })
	return out, found, err
}

// GetSelectionChoices computes the valid choices for one pending selection
// step without mutating any pending state.
func (s *Session) GetSelectionChoices(actionName, selectionName string, seat int, rawArgs map[string]interface{}) (engine.SelectionDef, error) {
	var out engine.SelectionDef
	var opErr error
	if err := s.submit(func() {
		if verr := s.requirePlayingLocked(); verr != nil {
			opErr = verr
			return
		}
		args, rerr := s.resolveArgsLocked(rawArgs)
		if rerr != nil {
			opErr = newErr(ErrCodeInvalidArgs, "%v", rerr)
			return
		}
		sel, gerr := s.game.SelectionChoices(actionName, selectionName, seat, args)
		if gerr != nil {
			opErr = newErr(ErrCodeInvalidArgs, "%v", gerr)
			return
		}
		out = sel
	}); err != nil {
		return engine.SelectionDef{}, err
	}
	return out, opErr
}

// ---- lobby passthroughs ----
// Each wraps the matching *lobby.Lobby method on the lane, since the lobby
// is owned by this session while the game is waiting to start.

func (s *Session) lobbyLocked() (*lobby.Lobby, *Error) {
	if s.lob == nil {
		return nil, newErr(ErrCodeConflict, "game has already started")
	}
	return s.lob, nil
}

// lobbyOp runs fn against the session's lobby on the lane, persists the
// resulting slot state on success, and maps any lobby error to a session
// Error so callers see a consistent error type across every session method.
func (s *Session) lobbyOp(fn func(lob *lobby.Lobby) error) error {
	var opErr error
	if err := s.submit(func() {
		lob, verr := s.lobbyLocked()
		if verr != nil {
			opErr = verr
			return
		}
		if lerr := fn(lob); lerr != nil {
			opErr = newErr(ErrCodeConflict, "%v", lerr)
			return
		}
		s.persistLobbyLocked()
	}); err != nil {
		return err
	}
	return opErr
}

func (s *Session) ClaimSeat(seat int, playerID, name string) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.ClaimSeat(seat, playerID, name) })
}

func (s *Session) LeaveSeat(playerID string) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.LeaveSeat(playerID) })
}

func (s *Session) SetReady(playerID string, ready bool) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.SetReady(playerID, ready) })
}

func (s *Session) UpdateSlotName(playerID, name string) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.UpdateSlotName(playerID, name) })
}

func (s *Session) AddSlot(hostID string) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.AddSlot(hostID) })
}

func (s *Session) RemoveSlot(hostID string, seat int) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.RemoveSlot(hostID, seat) })
}

func (s *Session) SetSlotAI(hostID string, seat int, isAI bool, aiLevel string) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.SetSlotAI(hostID, seat, isAI, aiLevel) })
}

func (s *Session) KickPlayer(hostID string, seat int) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error {
		_, err := lob.KickPlayer(hostID, seat)
		return err
	})
}

func (s *Session) UpdatePlayerOptions(playerID string, opts map[string]interface{}) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.UpdatePlayerOptions(playerID, opts) })
}

func (s *Session) UpdateSlotPlayerOptions(hostID string, seat int, opts map[string]interface{}) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.UpdateSlotPlayerOptions(hostID, seat, opts) })
}

func (s *Session) UpdateGameOptions(hostID string, opts map[string]interface{}) error {
	return s.lobbyOp(func(lob *lobby.Lobby) error { return lob.UpdateGameOptions(hostID, opts) })
}

// GetLobby returns the current lobby slot assignment, or nil once started.
func (s *Session) GetLobby() ([]lobby.Slot, error) {
	var out []lobby.Slot
	if err := s.submit(func() {
		if s.lob != nil {
			out = s.lob.Snapshot()
		}
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) persistLobbyLocked() {
	if s.lob == nil {
		return
	}
	if err := s.store.PersistLobby(context.Background(), s.gameID, s.lob.Snapshot(), string(s.lob.State())); err != nil {
		s.log.WithError(err).Warn("failed to persist lobby state")
	}
}
