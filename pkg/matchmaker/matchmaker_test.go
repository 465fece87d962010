package matchmaker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() GameIDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("game-%d", n)
	}
}

func TestJoinWaitsUntilFull(t *testing.T) {
	m := New(time.Minute, sequentialIDs())

	res, err := m.Join("pilegame", 2, "p1", "Alice")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, 1, res.Position)
	assert.Equal(t, 1, res.PlayersNeeded)
}

func TestJoinCompletesGroupInFIFOOrder(t *testing.T) {
	m := New(time.Minute, sequentialIDs())

	_, err := m.Join("pilegame", 2, "p1", "Alice")
	require.NoError(t, err)

	res, err := m.Join("pilegame", 2, "p2", "Bob")
	require.NoError(t, err)
	require.True(t, res.Matched)
	assert.Equal(t, "game-1", res.GameID)
	require.Len(t, res.Players, 2)
	assert.Equal(t, "p1", res.Players[0].PlayerID)
	assert.Equal(t, 1, res.Players[0].Seat)
	assert.Equal(t, "p2", res.Players[1].PlayerID)
	assert.Equal(t, 2, res.Players[1].Seat)
	assert.Equal(t, 2, res.PlayerPosition)
}

func TestJoinSeparatesQueuesByGameTypeAndCount(t *testing.T) {
	m := New(time.Minute, sequentialIDs())

	_, err := m.Join("pilegame", 2, "p1", "Alice")
	require.NoError(t, err)

	res, err := m.Join("pilegame", 3, "p2", "Bob")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, 1, res.Position)

	res, err = m.Join("othergame", 2, "p3", "Carl")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestJoinRejectsDuplicatePlayer(t *testing.T) {
	m := New(time.Minute, sequentialIDs())

	_, err := m.Join("pilegame", 2, "p1", "Alice")
	require.NoError(t, err)

	_, err = m.Join("pilegame", 2, "p1", "Alice")
	assert.Error(t, err)
}

func TestStatusReflectsQueuePosition(t *testing.T) {
	m := New(time.Minute, sequentialIDs())

	_, err := m.Join("pilegame", 3, "p1", "Alice")
	require.NoError(t, err)
	_, err = m.Join("pilegame", 3, "p2", "Bob")
	require.NoError(t, err)

	res, err := m.Status("p2")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Position)
	assert.Equal(t, 1, res.PlayersNeeded)
}

func TestStatusUnknownPlayer(t *testing.T) {
	m := New(time.Minute, sequentialIDs())
	_, err := m.Status("ghost")
	assert.ErrorIs(t, err, ErrNotQueued)
}

func TestLeaveRemovesPlayerAndAllowsRequeue(t *testing.T) {
	m := New(time.Minute, sequentialIDs())

	_, err := m.Join("pilegame", 2, "p1", "Alice")
	require.NoError(t, err)
	require.NoError(t, m.Leave("p1"))

	_, err = m.Status("p1")
	assert.ErrorIs(t, err, ErrNotQueued)

	res, err := m.Join("pilegame", 2, "p1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Position)
}

func TestLeaveUnknownPlayer(t *testing.T) {
	m := New(time.Minute, sequentialIDs())
	assert.ErrorIs(t, m.Leave("ghost"), ErrNotQueued)
}

func TestEvictionDropsStaleEntries(t *testing.T) {
	m := New(10*time.Millisecond, sequentialIDs())

	_, err := m.Join("pilegame", 2, "p1", "Alice")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	res, err := m.Join("pilegame", 2, "p2", "Bob")
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Equal(t, 1, res.Position)
}

func TestJoinRejectsNonPositivePlayerCount(t *testing.T) {
	m := New(time.Minute, sequentialIDs())
	_, err := m.Join("pilegame", 0, "p1", "Alice")
	assert.Error(t, err)
}
