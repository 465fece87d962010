package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardhost/pkg/engine"
	"boardhost/pkg/engine/demoengine"
	"boardhost/pkg/wire"
)

func newGame(t *testing.T) engine.Game {
	t.Helper()
	g, err := demoengine.New(engine.Options{Seed: 1, PlayerNames: []string{"a", "b"}})
	require.NoError(t, err)
	return g
}

func TestCreateAndRestore(t *testing.T) {
	game := newGame(t)
	history := []wire.SerializedAction{{Name: "take", Player: 1}}

	snap, err := Create(game, "pilegame", history, 1)
	require.NoError(t, err)
	assert.Equal(t, "pilegame", snap.GameType)
	assert.Len(t, snap.ActionHistory, 1)
	assert.NotEmpty(t, snap.EngineBlob)

	restored := newGame(t)
	require.NoError(t, Restore(restored, snap))
}

func TestCreateSnapshotCopiesHistorySlice(t *testing.T) {
	game := newGame(t)
	history := []wire.SerializedAction{{Name: "take", Player: 1}}

	snap, err := Create(game, "pilegame", history, 1)
	require.NoError(t, err)

	history[0].Name = "mutated"
	assert.Equal(t, "take", snap.ActionHistory[0].Name)
}

func TestCreateAllPlayerViews(t *testing.T) {
	game := newGame(t)
	views := CreateAllPlayerViews(game, 2)
	require.Len(t, views, 3)
}
