package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElement struct {
	id   int
	path string
}

type fakePlayer struct {
	seat int
}

type fakeGame struct {
	elementsByID   map[int]*fakeElement
	elementsByPath map[string]*fakeElement
	players        map[int]*fakePlayer
}

func newFakeGame() *fakeGame {
	return &fakeGame{
		elementsByID:   make(map[int]*fakeElement),
		elementsByPath: make(map[string]*fakeElement),
		players:        make(map[int]*fakePlayer),
	}
}

func (g *fakeGame) addElement(id int, path string) *fakeElement {
	el := &fakeElement{id: id, path: path}
	g.elementsByID[id] = el
	g.elementsByPath[path] = el
	return el
}

func (g *fakeGame) addPlayer(seat int) *fakePlayer {
	p := &fakePlayer{seat: seat}
	g.players[seat] = p
	return p
}

func (g *fakeGame) ElementIDOf(v interface{}) (int, bool) {
	el, ok := v.(*fakeElement)
	if !ok {
		return 0, false
	}
	return el.id, true
}

func (g *fakeGame) ElementRefOf(v interface{}) (string, bool) {
	el, ok := v.(*fakeElement)
	if !ok {
		return "", false
	}
	return el.path, true
}

func (g *fakeGame) ElementByID(id int) (interface{}, bool) {
	el, ok := g.elementsByID[id]
	return el, ok
}

func (g *fakeGame) ElementByRef(ref string) (interface{}, bool) {
	el, ok := g.elementsByPath[ref]
	return el, ok
}

func (g *fakeGame) SeatOf(v interface{}) (int, bool) {
	p, ok := v.(*fakePlayer)
	if !ok {
		return 0, false
	}
	return p.seat, true
}

func (g *fakeGame) PlayerBySeat(seat int) (interface{}, bool) {
	p, ok := g.players[seat]
	return p, ok
}

func TestSerializeValuePrimitives(t *testing.T) {
	g := newFakeGame()
	v, err := SerializeValue("hello", g, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	v, err = SerializeValue(float64(42), g, Options{})
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)
}

func TestSerializeElementByID(t *testing.T) {
	g := newFakeGame()
	el := g.addElement(7, "board/cell/3")

	v, err := SerializeValue(el, g, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{keyElementID: 7}, v)
}

func TestSerializeElementByBranchPath(t *testing.T) {
	g := newFakeGame()
	el := g.addElement(7, "board/cell/3")

	v, err := SerializeValue(el, g, Options{UseBranchPaths: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{keyElementRef: "board/cell/3"}, v)
}

func TestSerializePlayer(t *testing.T) {
	g := newFakeGame()
	p := g.addPlayer(2)

	v, err := SerializeValue(p, g, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{keyPlayerRef: 2}, v)
}

func TestSerializeNestedArrayAndObject(t *testing.T) {
	g := newFakeGame()
	el := g.addElement(1, "x")

	in := map[string]interface{}{
		"list": []interface{}{el, "literal"},
	}
	v, err := SerializeValue(in, g, Options{})
	require.NoError(t, err)

	out, ok := v.(map[string]interface{})
	require.True(t, ok)
	list, ok := out["list"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{keyElementID: 1}, list[0])
	assert.Equal(t, "literal", list[1])
}

func TestDeserializeElementByID(t *testing.T) {
	g := newFakeGame()
	el := g.addElement(3, "path")

	v, err := DeserializeValue(map[string]interface{}{keyElementID: float64(3)}, g)
	require.NoError(t, err)
	assert.Same(t, el, v)
}

func TestDeserializeDanglingElementRef(t *testing.T) {
	g := newFakeGame()
	_, err := DeserializeValue(map[string]interface{}{keyElementID: float64(999)}, g)
	assert.ErrorIs(t, err, ErrDanglingRef)
}

func TestDeserializePlayerRef(t *testing.T) {
	g := newFakeGame()
	p := g.addPlayer(1)

	v, err := DeserializeValue(map[string]interface{}{keyPlayerRef: float64(1)}, g)
	require.NoError(t, err)
	assert.Same(t, p, v)
}

func TestIsSerializedReference(t *testing.T) {
	assert.True(t, IsSerializedReference(map[string]interface{}{keyElementID: 1}))
	assert.False(t, IsSerializedReference(map[string]interface{}{"x": 1}))
	assert.False(t, IsSerializedReference("not a map"))
}

func TestSerializeAndDeserializeAction(t *testing.T) {
	g := newFakeGame()
	el := g.addElement(5, "target")

	sa, err := SerializeAction("move", 1, map[string]interface{}{"target": el}, g, 1000)
	require.NoError(t, err)
	assert.Equal(t, "move", sa.Name)
	assert.Equal(t, map[string]interface{}{keyElementID: 5}, sa.Args["target"])

	name, player, args, err := DeserializeAction(sa, g)
	require.NoError(t, err)
	assert.Equal(t, "move", name)
	assert.Equal(t, 1, player)
	assert.Same(t, el, args["target"])
}
