package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardhost/pkg/engine"
	"boardhost/pkg/engine/demoengine"
)

func newGame(t *testing.T) engine.Game {
	t.Helper()
	g, err := demoengine.New(engine.Options{Seed: 1, PlayerNames: []string{"a", "b"}})
	require.NoError(t, err)
	return g
}

func TestMaybeCaptureOnlyOnInterval(t *testing.T) {
	m := NewManager(10, 5)
	game := newGame(t)

	require.NoError(t, m.MaybeCapture(1, game, "pilegame", nil, 1))
	assert.Empty(t, m.All())

	require.NoError(t, m.MaybeCapture(10, game, "pilegame", nil, 1))
	assert.Len(t, m.All(), 1)
}

func TestWindowEvictsOldest(t *testing.T) {
	m := NewManager(1, 2)
	game := newGame(t)

	for i := 1; i <= 3; i++ {
		require.NoError(t, m.MaybeCapture(i, game, "pilegame", nil, 1))
	}

	all := m.All()
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[0].AtActionIndex)
	assert.Equal(t, 3, all[1].AtActionIndex)
}

func TestNearestFindsLatestLessOrEqual(t *testing.T) {
	m := NewManager(1, 5)
	game := newGame(t)
	for _, idx := range []int{1, 2, 3, 5} {
		require.NoError(t, m.MaybeCapture(idx, game, "pilegame", nil, 1))
	}

	cp, ok := m.Nearest(4)
	require.True(t, ok)
	assert.Equal(t, 3, cp.AtActionIndex)

	_, ok = m.Nearest(0)
	assert.False(t, ok)
}

func TestDiscardFromDropsBoundaryAndLater(t *testing.T) {
	m := NewManager(1, 5)
	game := newGame(t)
	for _, idx := range []int{1, 2, 3} {
		require.NoError(t, m.MaybeCapture(idx, game, "pilegame", nil, 1))
	}

	m.DiscardFrom(2)

	all := m.All()
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].AtActionIndex)
}

func TestDefaultsAppliedForNonPositiveArgs(t *testing.T) {
	m := NewManager(0, -1)
	assert.Equal(t, DefaultInterval, m.interval)
	assert.Equal(t, DefaultWindow, m.window)
}
