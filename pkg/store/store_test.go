package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardhost/pkg/integration"
	"boardhost/pkg/lobby"
	"boardhost/pkg/wire"
)

// storeFactory builds a fresh, empty GameStore for a subtest.
type storeFactory func(t *testing.T) GameStore

func factories(t *testing.T) map[string]storeFactory {
	t.Helper()
	return map[string]storeFactory{
		"MemoryStore": func(t *testing.T) GameStore {
			return NewMemoryStore()
		},
		"DurableStore": func(t *testing.T) GameStore {
			integration.ResetExecutorsForTesting()
			s, err := NewDurableStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}
}

func sampleRecord(id string) Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return Record{
		GameID:      id,
		GameType:    "pilegame",
		Seed:        42,
		PlayerCount: 2,
		CreatedAt:   now,
		LastActivity: now,
		GameOptions: map[string]interface{}{"pileCount": 3},
		PlayerIDs:   map[int]string{1: "alice", 2: "bob"},
	}
}

func TestGameStoreContract(t *testing.T) {
	for name, newStore := range factories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			rec := sampleRecord("game-1")
			require.NoError(t, s.CreateGame(ctx, rec))

			err := s.CreateGame(ctx, rec)
			assert.ErrorIs(t, err, ErrAlreadyExists)

			got, actions, err := s.GetGame(ctx, "game-1")
			require.NoError(t, err)
			assert.Empty(t, actions)
			assert.Equal(t, rec.GameType, got.GameType)
			assert.Equal(t, rec.Seed, got.Seed)
			assert.Equal(t, rec.PlayerIDs, got.PlayerIDs)

			_, _, err = s.GetGame(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			a1 := wire.SerializedAction{Name: "take", Player: 1, Args: map[string]interface{}{"pileId": float64(1), "count": float64(1)}, Timestamp: time.Now().UnixMilli()}
			a2 := wire.SerializedAction{Name: "take", Player: 2, Args: map[string]interface{}{"pileId": float64(2), "count": float64(2)}, Timestamp: time.Now().UnixMilli()}
			require.NoError(t, s.AppendAction(ctx, "game-1", a1))
			require.NoError(t, s.AppendAction(ctx, "game-1", a2))

			_, actions, err = s.GetGame(ctx, "game-1")
			require.NoError(t, err)
			require.Len(t, actions, 2)
			assert.Equal(t, a1.Player, actions[0].Player)
			assert.Equal(t, a2.Player, actions[1].Player)

			err = s.AppendAction(ctx, "missing", a1)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.TruncateActions(ctx, "game-1", 1))
			_, actions, err = s.GetGame(ctx, "game-1")
			require.NoError(t, err)
			require.Len(t, actions, 1)

			ids, err := s.ListActive(ctx)
			require.NoError(t, err)
			assert.Contains(t, ids, "game-1")

			slots := []lobby.Slot{{Seat: 1, Status: lobby.SlotClaimed, PlayerID: "alice"}}
			require.NoError(t, s.PersistLobby(ctx, "game-1", slots, "waiting"))

			got, _, err = s.GetGame(ctx, "game-1")
			require.NoError(t, err)
			assert.Equal(t, "waiting", got.LobbyState)
			require.Len(t, got.LobbySlots, 1)
			assert.Equal(t, "alice", got.LobbySlots[0].PlayerID)

			require.NoError(t, s.PersistLobby(ctx, "game-1", nil, ""))
			got, _, err = s.GetGame(ctx, "game-1")
			require.NoError(t, err)
			assert.Empty(t, got.LobbyState)

			require.NoError(t, s.Persist(ctx, "game-1"))
			assert.ErrorIs(t, s.Persist(ctx, "missing"), ErrNotFound)

			require.NoError(t, s.DeleteGame(ctx, "game-1"))
			assert.ErrorIs(t, s.DeleteGame(ctx, "game-1"), ErrNotFound)

			_, _, err = s.GetGame(ctx, "game-1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

// TestDurableStoreSurvivesRestart exercises the recovery contract specific to
// the durable backend: a fresh DurableStore pointed at the same directory
// must replay bookkeeping and action history bit-exact.
func TestDurableStoreSurvivesRestart(t *testing.T) {
	integration.ResetExecutorsForTesting()
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := NewDurableStore(dir)
	require.NoError(t, err)

	rec := sampleRecord("restart-1")
	require.NoError(t, s1.CreateGame(ctx, rec))
	a1 := wire.SerializedAction{Name: "take", Player: 1, Args: map[string]interface{}{"pileId": float64(1), "count": float64(1)}, Timestamp: time.Now().UnixMilli()}
	require.NoError(t, s1.AppendAction(ctx, "restart-1", a1))
	require.NoError(t, s1.PersistLobby(ctx, "restart-1", []lobby.Slot{{Seat: 1, Status: lobby.SlotClaimed, PlayerID: "alice"}}, "waiting"))

	s2, err := NewDurableStore(dir)
	require.NoError(t, err)

	got, actions, err := s2.GetGame(ctx, "restart-1")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, a1.Name, actions[0].Name)
	assert.Equal(t, a1.Player, actions[0].Player)
	assert.Equal(t, rec.GameType, got.GameType)
	assert.Equal(t, "waiting", got.LobbyState)
	require.Len(t, got.LobbySlots, 1)
	assert.Equal(t, "alice", got.LobbySlots[0].PlayerID)

	ids, err := s2.ListActive(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "restart-1")
}

func TestDurableStoreRejectsCorruptActionLog(t *testing.T) {
	integration.ResetExecutorsForTesting()
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewDurableStore(dir)
	require.NoError(t, err)

	rec := sampleRecord("corrupt-1")
	require.NoError(t, s.CreateGame(ctx, rec))

	f, err := os.OpenFile(s.actionsPath("corrupt-1"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = s.GetGame(ctx, "corrupt-1")
	assert.Error(t, err)
}
