// Package demoengine implements pilegame, a minimal deterministic
// multiplayer game used to exercise pkg/session, pkg/snapshot,
// pkg/checkpoint, pkg/pending, and pkg/ai against a real engine.Game without
// depending on any particular rules corpus.
//
// Pilegame is a misère Nim variant: players alternate taking 1-3 tokens from
// a pile, or splitting a pile of 2+ tokens into two smaller piles via a
// two-step pending action. The player forced to take the last token loses.
// Each player also holds a private "token" number, visible only to its
// owner, used to exercise hidden-information view filtering.
package demoengine

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"boardhost/pkg/engine"
)

// Pile is an addressable game element: one heap of tokens.
type Pile struct {
	ID    int `json:"id"`
	Count int `json:"count"`
}

// Player is an addressable game element: one seat's public+private state.
type Player struct {
	Seat      int    `json:"seat"`
	Name      string `json:"name"`
	IsAI      bool   `json:"isAI"`
	AIlevel   string `json:"aiLevel,omitempty"`
	HandToken int    `json:"handToken"` // hidden: only visible to owner
}

// Game is the pilegame engine.Game implementation.
type Game struct {
	piles       []*Pile
	players     []*Player
	currentSeat int
	complete    bool
	winnerSeat  int
	nextPileID  int
	events      []engine.AnimationEvent
	nextEventID int
	rng         *rand.Rand
}

var _ engine.Game = (*Game)(nil)

// New constructs a fresh pilegame for opts.PlayerNames, seeded deterministically.
func New(opts engine.Options) (engine.Game, error) {
	if len(opts.PlayerNames) < 2 {
		return nil, fmt.Errorf("demoengine: pilegame requires at least 2 players")
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	pileCount := 3
	if raw, ok := opts.GameOptions["pileCount"]; ok {
		if n, ok := toInt(raw); ok && n > 0 {
			pileCount = n
		}
	}

	g := &Game{rng: rng}
	for i := 0; i < pileCount; i++ {
		g.nextPileID++
		g.piles = append(g.piles, &Pile{ID: g.nextPileID, Count: 3 + rng.Intn(5)})
	}
	for i, name := range opts.PlayerNames {
		seat := i + 1
		isAI := opts.AIseats != nil && opts.AIseats[seat]
		g.players = append(g.players, &Player{
			Seat:      seat,
			Name:      name,
			IsAI:      isAI,
			HandToken: rng.Intn(100),
		})
	}
	g.currentSeat = 1
	return g, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func (g *Game) findPile(id int) *Pile {
	for _, p := range g.piles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) findPlayer(seat int) *Player {
	for _, p := range g.players {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}

func (g *Game) advanceTurn() {
	idx := -1
	for j, p := range g.players {
		if p.Seat == g.currentSeat {
			idx = j
			break
		}
	}
	if idx < 0 {
		return
	}
	g.currentSeat = g.players[(idx+1)%len(g.players)].Seat
}

func (g *Game) totalTokens() int {
	total := 0
	for _, p := range g.piles {
		total += p.Count
	}
	return total
}

func (g *Game) emit(eventType string, data map[string]interface{}) {
	g.nextEventID++
	g.events = append(g.events, engine.AnimationEvent{ID: g.nextEventID, Type: eventType, Data: data})
}

// PerformAction implements engine.Game.
func (g *Game) PerformAction(seat int, name string, args map[string]interface{}) error {
	if g.complete {
		return fmt.Errorf("demoengine: game is over")
	}
	if seat != g.currentSeat {
		return fmt.Errorf("demoengine: not seat %d's turn", seat)
	}

	switch name {
	case "take":
		return g.performTake(seat, args)
	case "split":
		return g.performSplit(seat, args)
	default:
		return fmt.Errorf("demoengine: unknown action %q", name)
	}
}

func (g *Game) performTake(seat int, args map[string]interface{}) error {
	pile, ok := args["pile"].(*Pile)
	if !ok {
		return fmt.Errorf("demoengine: take requires a pile reference")
	}
	count, ok := toInt(args["count"])
	if !ok || count < 1 || count > 3 || count > pile.Count {
		return fmt.Errorf("demoengine: invalid take count")
	}
	if g.findPile(pile.ID) == nil {
		return fmt.Errorf("demoengine: unknown pile")
	}

	pile.Count -= count
	g.emit("tokensTaken", map[string]interface{}{"pileId": pile.ID, "count": count, "seat": seat})

	if g.totalTokens() == 0 {
		g.complete = true
		g.winnerSeat = otherSeats(g.players, seat)
		g.emit("gameOver", map[string]interface{}{"loser": seat, "winner": g.winnerSeat})
		return nil
	}
	g.advanceTurn()
	return nil
}

func otherSeats(players []*Player, loser int) int {
	for _, p := range players {
		if p.Seat != loser {
			return p.Seat
		}
	}
	return 0
}

func (g *Game) performSplit(seat int, args map[string]interface{}) error {
	pile, ok := args["sourcePile"].(*Pile)
	if !ok {
		return fmt.Errorf("demoengine: split requires a sourcePile reference")
	}
	count, ok := toInt(args["splitCount"])
	if !ok || count < 1 || count >= pile.Count {
		return fmt.Errorf("demoengine: invalid splitCount")
	}
	if g.findPile(pile.ID) == nil {
		return fmt.Errorf("demoengine: unknown pile")
	}

	remainder := pile.Count - count
	pile.Count = count
	g.nextPileID++
	newPile := &Pile{ID: g.nextPileID, Count: remainder}
	g.piles = append(g.piles, newPile)

	g.emit("pileSplit", map[string]interface{}{"sourcePileId": pile.ID, "newPileId": newPile.ID})
	g.advanceTurn()
	return nil
}

// CurrentSeat implements engine.Game.
func (g *Game) CurrentSeat() int {
	if g.complete {
		return 0
	}
	return g.currentSeat
}

// IsComplete implements engine.Game.
func (g *Game) IsComplete() bool { return g.complete }

// AvailableActions implements engine.Game.
func (g *Game) AvailableActions(seat int) []engine.ActionMetadata {
	if g.complete || seat != g.currentSeat {
		return nil
	}
	actions := []engine.ActionMetadata{{Name: "take"}}
	for _, p := range g.piles {
		if p.Count >= 2 {
			actions = append(actions, engine.ActionMetadata{
				Name: "split",
				Selections: []engine.SelectionDef{
					{Name: "sourcePile"},
					{Name: "splitCount"},
				},
			})
			break
		}
	}
	return actions
}

// ActionMetadataFor implements engine.Game.
func (g *Game) ActionMetadataFor(name string) (engine.ActionMetadata, bool) {
	switch name {
	case "take":
		return engine.ActionMetadata{Name: "take"}, true
	case "split":
		return engine.ActionMetadata{
			Name: "split",
			Selections: []engine.SelectionDef{
				{Name: "sourcePile"},
				{Name: "splitCount"},
			},
		}, true
	}
	return engine.ActionMetadata{}, false
}

// SelectionChoices implements engine.Game.
func (g *Game) SelectionChoices(actionName, selectionName string, seat int, partialArgs map[string]interface{}) (engine.SelectionDef, error) {
	if actionName != "split" {
		return engine.SelectionDef{}, fmt.Errorf("demoengine: %q has no selections", actionName)
	}
	switch selectionName {
	case "sourcePile":
		var valid []interface{}
		for _, p := range g.piles {
			if p.Count >= 2 {
				valid = append(valid, p)
			}
		}
		return engine.SelectionDef{Name: "sourcePile", ValidElements: valid}, nil
	case "splitCount":
		pile, ok := partialArgs["sourcePile"].(*Pile)
		if !ok {
			return engine.SelectionDef{}, fmt.Errorf("demoengine: splitCount requires sourcePile chosen first")
		}
		choices := make([]interface{}, 0, pile.Count-1)
		for i := 1; i < pile.Count; i++ {
			choices = append(choices, i)
		}
		return engine.SelectionDef{Name: "splitCount", Choices: choices}, nil
	}
	return engine.SelectionDef{}, fmt.Errorf("demoengine: unknown selection %q", selectionName)
}

// LegalMoves implements engine.Game. Moves are ordered by pile id then by
// count, giving a deterministic "first move" for fallback selection.
func (g *Game) LegalMoves(seat int) []engine.Move {
	if g.complete || seat != g.currentSeat {
		return nil
	}
	var moves []engine.Move
	for _, p := range g.piles {
		max := p.Count
		if max > 3 {
			max = 3
		}
		for c := 1; c <= max; c++ {
			moves = append(moves, engine.Move{
				ActionName: "take",
				Args:       map[string]interface{}{"pile": p, "count": c},
			})
		}
	}
	for _, p := range g.piles {
		for c := 1; c < p.Count; c++ {
			moves = append(moves, engine.Move{
				ActionName: "split",
				Args:       map[string]interface{}{"sourcePile": p, "splitCount": c},
			})
		}
	}
	return moves
}

// DrainAnimationEvents implements engine.Game.
func (g *Game) DrainAnimationEvents() []engine.AnimationEvent {
	events := g.events
	g.events = nil
	return events
}

// publicPileView strips nothing: piles are always public.
type publicPileView struct {
	ID    int `json:"id"`
	Count int `json:"count"`
}

type boardView struct {
	Piles   []publicPileView `json:"piles"`
	Players []playerView     `json:"players"`
}

type playerView struct {
	Seat      int    `json:"seat"`
	Name      string `json:"name"`
	IsAI      bool   `json:"isAI"`
	HandToken *int   `json:"handToken,omitempty"`
}

// PlayerView implements engine.Game. A player's HandToken is visible only to
// its owner; spectators (seat 0) and other players never see it.
func (g *Game) PlayerView(seat int) engine.PlayerView {
	view := boardView{}
	for _, p := range g.piles {
		view.Piles = append(view.Piles, publicPileView{ID: p.ID, Count: p.Count})
	}
	for _, p := range g.players {
		pv := playerView{Seat: p.Seat, Name: p.Name, IsAI: p.IsAI}
		if p.Seat == seat {
			token := p.HandToken
			pv.HandToken = &token
		}
		view.Players = append(view.Players, pv)
	}

	phase := "playing"
	if g.complete {
		phase = "finished"
	}

	var players []engine.PlayerInfo
	for _, p := range g.players {
		players = append(players, engine.PlayerInfo{Seat: p.Seat, Name: p.Name, IsAI: p.IsAI})
	}

	return engine.PlayerView{
		Phase:            phase,
		Players:          players,
		CurrentPlayer:    g.CurrentSeat(),
		IsComplete:       g.complete,
		View:             view,
		AvailableActions: g.AvailableActions(seat),
	}
}

// snapshotBlob is the JSON-serializable form of complete internal state.
type snapshotBlob struct {
	Piles       []*Pile   `json:"piles"`
	Players     []*Player `json:"players"`
	CurrentSeat int       `json:"currentSeat"`
	Complete    bool      `json:"complete"`
	WinnerSeat  int       `json:"winnerSeat"`
	NextPileID  int       `json:"nextPileId"`
}

// Snapshot implements engine.Game.
func (g *Game) Snapshot() ([]byte, error) {
	blob := snapshotBlob{
		Piles:       g.piles,
		Players:     g.players,
		CurrentSeat: g.currentSeat,
		Complete:    g.complete,
		WinnerSeat:  g.winnerSeat,
		NextPileID:  g.nextPileID,
	}
	return json.Marshal(blob)
}

// Restore implements engine.Game.
func (g *Game) Restore(data []byte) error {
	var blob snapshotBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("demoengine: restore: %w", err)
	}
	g.piles = blob.Piles
	g.players = blob.Players
	g.currentSeat = blob.CurrentSeat
	g.complete = blob.Complete
	g.winnerSeat = blob.WinnerSeat
	g.nextPileID = blob.NextPileID
	g.events = nil
	return nil
}

// --- wire.Resolver ---

// ElementIDOf implements wire.Resolver.
func (g *Game) ElementIDOf(v interface{}) (int, bool) {
	if p, ok := v.(*Pile); ok {
		return p.ID, true
	}
	return 0, false
}

// ElementRefOf implements wire.Resolver.
func (g *Game) ElementRefOf(v interface{}) (string, bool) {
	if p, ok := v.(*Pile); ok {
		return fmt.Sprintf("pile/%d", p.ID), true
	}
	return "", false
}

// ElementByID implements wire.Resolver.
func (g *Game) ElementByID(id int) (interface{}, bool) {
	p := g.findPile(id)
	if p == nil {
		return nil, false
	}
	return p, true
}

// ElementByRef implements wire.Resolver.
func (g *Game) ElementByRef(ref string) (interface{}, bool) {
	var id int
	if _, err := fmt.Sscanf(ref, "pile/%d", &id); err != nil {
		return nil, false
	}
	return g.ElementByID(id)
}

// SeatOf implements wire.Resolver.
func (g *Game) SeatOf(v interface{}) (int, bool) {
	if p, ok := v.(*Player); ok {
		return p.Seat, true
	}
	return 0, false
}

// PlayerBySeat implements wire.Resolver.
func (g *Game) PlayerBySeat(seat int) (interface{}, bool) {
	p := g.findPlayer(seat)
	if p == nil {
		return nil, false
	}
	return p, true
}
