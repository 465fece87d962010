package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardhost/pkg/store"
)

func TestRegistryPutGetDeleteCount(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Count())

	s := newTestSession(t, store.NewMemoryStore(), NewGameParams{
		GameID:      "reg1",
		GameType:    "pilegame",
		Seed:        1,
		PlayerNames: []string{"alice", "bob"},
		GameOptions: map[string]interface{}{"pileCount": 1},
	})
	r.Put(s)

	got, ok := r.Get("reg1")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Count())
	assert.Contains(t, r.List(), "reg1")
	assert.Len(t, r.All(), 1)

	r.Delete("reg1")
	_, ok = r.Get("reg1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("missing")
	assert.False(t, ok)
}
