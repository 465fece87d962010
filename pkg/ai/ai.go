// Package ai implements AIController: the per-session state machine that
// schedules AI turns, bounds think time, and cancels promptly whenever the
// game mutates out from under an in-flight think.
package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"boardhost/pkg/engine"
)

// State is one node of the AIController state machine.
type State int

const (
	Idle State = iota
	Thinking
	Committing
	Canceled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Thinking:
		return "thinking"
	case Committing:
		return "committing"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Default iteration budgets per aiLevel, used when NewController is given a
// nil budgets map.
var DefaultBudgets = map[string]int{
	"easy":   100,
	"medium": 1000,
	"hard":   10000,
	"expert": 100000,
}

// Bot is the black-box move-choosing function. Implementations must respect
// ctx cancellation promptly (checked at least once per internal iteration)
// and should always return a legal move even when cancelled mid-search,
// falling back to their current best candidate.
type Bot func(ctx context.Context, game engine.Game, seat int, iterationBudget int) (engine.Move, error)

// Controller owns the AI think/commit/cancel lifecycle for one session.
type Controller struct {
	mu         sync.Mutex
	state      State
	generation uint64
	budgets    map[string]int
	timeout    time.Duration
	bot        Bot
	logger     *logrus.Entry
}

// NewController constructs a Controller. A nil budgets map uses DefaultBudgets.
func NewController(bot Bot, budgets map[string]int, timeout time.Duration) *Controller {
	if budgets == nil {
		budgets = DefaultBudgets
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Controller{
		bot:     bot,
		budgets: budgets,
		timeout: timeout,
		logger:  logrus.WithField("component", "AIController"),
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) budgetFor(aiLevel string) int {
	if n, ok := c.budgets[aiLevel]; ok {
		return n
	}
	return DefaultBudgets["medium"]
}

// Commit applies a chosen move on behalf of seat and reports whether the
// engine accepted it. The session implements Commit so the think goroutine
// never touches the engine directly: every mutation still passes through
// the session's single-writer lane and its usual bookkeeping (history,
// persistence, checkpoints, broadcast).
type Commit func(seat int, move engine.Move) error

// OnMutation must be called after every committed session mutation. It
// invalidates any in-flight think (advancing the generation counter cancels
// the prior think's eventual commit, whether or not its goroutine notices
// promptly) and, if seat is an AI seat whose turn it now is, spawns a new
// bounded think. commit is how the chosen move reaches the engine.
func (c *Controller) OnMutation(game engine.Game, seat int, aiLevel string, commit Commit) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	wasThinking := c.state == Thinking
	c.state = Idle
	c.mu.Unlock()

	if wasThinking {
		c.logger.WithField("generation", gen).Debug("in-flight think superseded by mutation")
	}

	if aiLevel == "" || game == nil || game.IsComplete() || seat != game.CurrentSeat() {
		return
	}

	budget := c.budgetFor(aiLevel)

	c.mu.Lock()
	c.state = Thinking
	c.mu.Unlock()

	go c.think(game, seat, budget, gen, commit)
}

func (c *Controller) think(game engine.Game, seat int, budget int, gen uint64, commit Commit) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	move, err := c.bot(ctx, game, seat, budget)

	if c.isStale(gen) {
		return // CANCELED: a later mutation already superseded this think.
	}

	if err != nil {
		c.logger.WithError(err).WithField("seat", seat).Warn("AI bot failed to choose a move")
		c.mu.Lock()
		if c.generation == gen {
			c.state = Idle
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.state = Committing
	c.mu.Unlock()

	if cerr := commit(seat, move); cerr != nil {
		c.logger.WithError(cerr).WithField("seat", seat).Warn("AI move rejected by engine")
	}

	c.mu.Lock()
	if c.generation == gen {
		c.state = Idle
	}
	c.mu.Unlock()
}

func (c *Controller) isStale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation != gen
}

// Fallback returns a deterministic legal move for seat: the first entry of
// LegalMoves, used when a Bot implementation cannot produce a choice at all.
func Fallback(game engine.Game, seat int) (engine.Move, error) {
	moves := game.LegalMoves(seat)
	if len(moves) == 0 {
		return engine.Move{}, fmt.Errorf("ai: no legal moves available for seat %d", seat)
	}
	return moves[0], nil
}
