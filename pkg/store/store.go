// Package store implements GameStore: persistence of session bookkeeping,
// the append-only action log, and lobby state, behind one interface with
// in-memory and durable implementations.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"boardhost/pkg/lobby"
	"boardhost/pkg/wire"
)

// ErrAlreadyExists is returned by CreateGame when gameId is already present.
var ErrAlreadyExists = fmt.Errorf("store: game already exists")

// ErrNotFound is returned when gameId has no record.
var ErrNotFound = fmt.Errorf("store: game not found")

// Record is the durable bookkeeping row for one session (the "games" table).
type Record struct {
	GameID       string
	GameType     string
	Seed         int64
	PlayerCount  int
	CreatedAt    time.Time
	LastActivity time.Time
	GameOptions  map[string]interface{}
	PlayerIDs    map[int]string // seat -> playerId, the "player_ids" table
	LobbySlots   []lobby.Slot   // nil once the game has started
	LobbyState   string         // "waiting" | "" (started)
}

// GameStore persists session state. Implementations must make CreateGame,
// AppendAction, and Persist safe for concurrent use across different
// gameIds; correctness for a single gameId relies on the caller's session
// mutation lane serializing writes.
type GameStore interface {
	// CreateGame inserts a new record. Fails ErrAlreadyExists if present.
	CreateGame(ctx context.Context, rec Record) error
	// GetGame loads a record and its full action history, in order.
	GetGame(ctx context.Context, gameID string) (Record, []wire.SerializedAction, error)
	// DeleteGame removes a record and its action log. Fails ErrNotFound.
	DeleteGame(ctx context.Context, gameID string) error
	// ListActive returns every known gameId.
	ListActive(ctx context.Context) ([]string, error)
	// AppendAction durably appends one action to gameId's log and updates
	// LastActivity. Implementations must make both changes atomically (or
	// not at all) relative to a crash between them.
	AppendAction(ctx context.Context, gameID string, action wire.SerializedAction) error
	// TruncateActions discards log entries at index >= fromIndex, used by
	// undo/rewind.
	TruncateActions(ctx context.Context, gameID string, fromIndex int) error
	// PersistLobby writes the current lobby slot assignment, or clears it
	// (pass nil slots, state "") once the game has started.
	PersistLobby(ctx context.Context, gameID string, slots []lobby.Slot, state string) error
	// Persist is an idempotent flush; a no-op for in-memory stores.
	Persist(ctx context.Context, gameID string) error
}

// MemoryStore is an in-process GameStore. Persist is a no-op; nothing
// survives process restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	actions map[string][]wire.SerializedAction
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		actions: make(map[string][]wire.SerializedAction),
	}
}

var _ GameStore = (*MemoryStore)(nil)

func (m *MemoryStore) CreateGame(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.GameID]; exists {
		return ErrAlreadyExists
	}
	m.records[rec.GameID] = rec
	m.actions[rec.GameID] = nil
	return nil
}

func (m *MemoryStore) GetGame(ctx context.Context, gameID string) (Record, []wire.SerializedAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[gameID]
	if !ok {
		return Record{}, nil, ErrNotFound
	}
	actions := make([]wire.SerializedAction, len(m.actions[gameID]))
	copy(actions, m.actions[gameID])
	return rec, actions, nil
}

func (m *MemoryStore) DeleteGame(ctx context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[gameID]; !ok {
		return ErrNotFound
	}
	delete(m.records, gameID)
	delete(m.actions, gameID)
	return nil
}

func (m *MemoryStore) ListActive(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.records))
	for id := range m.records {
		out = append(out, id)
	}
	return out, nil
}

func (m *MemoryStore) AppendAction(ctx context.Context, gameID string, action wire.SerializedAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[gameID]
	if !ok {
		return ErrNotFound
	}
	m.actions[gameID] = append(m.actions[gameID], action)
	rec.LastActivity = time.Now()
	m.records[gameID] = rec
	return nil
}

func (m *MemoryStore) TruncateActions(ctx context.Context, gameID string, fromIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions, ok := m.actions[gameID]
	if !ok {
		return ErrNotFound
	}
	if fromIndex < len(actions) {
		m.actions[gameID] = actions[:fromIndex]
	}
	return nil
}

func (m *MemoryStore) PersistLobby(ctx context.Context, gameID string, slots []lobby.Slot, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[gameID]
	if !ok {
		return ErrNotFound
	}
	rec.LobbySlots = slots
	rec.LobbyState = state
	m.records[gameID] = rec
	return nil
}

func (m *MemoryStore) Persist(ctx context.Context, gameID string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.records[gameID]; !ok {
		return ErrNotFound
	}
	return nil
}
