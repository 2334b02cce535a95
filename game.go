/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"sync"
)

// GameState is the lifecycle of one engine: accepting participants,
// mid-round, or finished with a single survivor.
type GameState int8

const (
	Waiting GameState = iota
	InProgress
	RoundOver
)

func (s GameState) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case InProgress:
		return "in progress"
	case RoundOver:
		return "round over"
	default:
		return "unknown"
	}
}

// Participant is one player for the lifetime of a single round.
type Participant struct {
	Name string
	Conn *Conn
}

// ShotResult describes one resolved trigger pull.
type ShotResult struct {
	Actor      string
	Fired      bool
	Eliminated bool
	Winner     string
}

// Engine holds one room's round: the ordered surviving participants, the
// current-turn index, and the outcome source. The turn index is always
// valid for the current participant count.
//
// Turn rule: a miss advances the index by one modulo the count. A hit
// removes the current participant, so the participant who logically
// follows inherits the vacated index (the index is only clamped, never
// advanced, on a hit).
type Engine struct {
	mu           sync.Mutex
	state        GameState
	participants []Participant
	turn         int
	draw         func() bool
}

// NewEngine builds an engine around an outcome source. The source returns
// true when a shot is live.
func NewEngine(draw func() bool) *Engine {
	return &Engine{
		state: Waiting,
		draw:  draw,
	}
}

func (e *Engine) State() GameState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// StartRound begins a round over the given participants in order. Fewer
// than two participants fail with ErrInsufficientPlayers, a round already
// in progress fails with ErrInvalidState, and both leave the engine
// untouched. Starting from RoundOver implicitly resets.
func (e *Engine) StartRound(participants []Participant) error {
	if len(participants) < 2 {
		return ErrInsufficientPlayers
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == InProgress {
		return ErrInvalidState
	}

	e.participants = make([]Participant, len(participants))
	copy(e.participants, participants)
	e.turn = 0
	e.state = InProgress

	return nil
}

// Fire resolves one shot for the current participant. Outside InProgress
// it fails with ErrInvalidState.
func (e *Engine) Fire() (ShotResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.fireLocked()
}

// FireAs resolves one shot on behalf of the named participant. The turn
// check and the shot happen under one lock, so a concurrent removal that
// shifts the turn index cannot let the shot resolve for someone other than
// the validated actor. Out of turn, the result carries the actual
// turn-holder's name alongside ErrOutOfTurn.
func (e *Engine) FireAs(name string) (ShotResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != InProgress {
		return ShotResult{}, ErrInvalidState
	}
	if current := e.participants[e.turn]; current.Name != name {
		return ShotResult{Actor: current.Name}, ErrOutOfTurn
	}

	return e.fireLocked()
}

func (e *Engine) fireLocked() (ShotResult, error) {
	if e.state != InProgress {
		return ShotResult{}, ErrInvalidState
	}
	if len(e.participants) == 0 {
		// The round ends at exactly one survivor, so this is unreachable.
		panic("fire with no participants")
	}

	actor := e.participants[e.turn]
	result := ShotResult{
		Actor: actor.Name,
		Fired: e.draw(),
	}

	if !result.Fired {
		e.turn = (e.turn + 1) % len(e.participants)
		return result, nil
	}

	result.Eliminated = true
	e.participants = append(e.participants[:e.turn], e.participants[e.turn+1:]...)

	if len(e.participants) == 1 {
		e.state = RoundOver
		result.Winner = e.participants[0].Name
		return result, nil
	}

	e.turn %= len(e.participants)
	return result, nil
}

// RemoveParticipant drops a disconnected player from the round. If only
// one participant remains afterwards the round ends and the survivor's
// name is returned as winner; if none remain the engine returns to
// Waiting. Removing an unknown name is a no-op.
func (e *Engine) RemoveParticipant(name string) (winner string, removed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != InProgress {
		return "", false
	}

	index := -1
	for i, p := range e.participants {
		if p.Name == name {
			index = i
			break
		}
	}
	if index == -1 {
		return "", false
	}

	e.participants = append(e.participants[:index], e.participants[index+1:]...)

	switch {
	case len(e.participants) == 0:
		e.state = Waiting
		e.turn = 0
	case len(e.participants) == 1:
		e.state = RoundOver
		winner = e.participants[0].Name
	case index < e.turn:
		e.turn--
	default:
		e.turn %= len(e.participants)
	}

	return winner, true
}

// Current reports whose turn it is.
func (e *Engine) Current() (Participant, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != InProgress {
		return Participant{}, false
	}
	return e.participants[e.turn], true
}

// Remaining returns the surviving participant names in turn order.
func (e *Engine) Remaining() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.participants))
	for _, p := range e.participants {
		names = append(names, p.Name)
	}
	return names
}

// Reset returns the engine to Waiting, discarding any finished round.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.participants = nil
	e.turn = 0
	e.state = Waiting
}

func randByte() byte {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return b[0]
}

// randIndex returns a uniform value in [0, n). Bytes from the biased tail
// of the 0-255 range are rejected and redrawn, so every residue is equally
// likely.
func randIndex(n int) int {
	limit := 256 - 256%n
	for {
		b := int(randByte())
		if b < limit {
			return b % n
		}
	}
}

// independentDraw resolves each shot as an independent num-in-den chance.
func independentDraw(num, den int) func() bool {
	return func() bool {
		return randIndex(den) < num
	}
}

// chamberDraw models a physical cylinder: den slots of which num are live,
// shuffled once and consumed front to back. An exhausted chamber is
// refilled and reshuffled.
func chamberDraw(num, den int) func() bool {
	var chamber []bool

	return func() bool {
		if len(chamber) == 0 {
			chamber = make([]bool, den)
			for i := 0; i < num; i++ {
				chamber[i] = true
			}
			// Fisher-Yates shuffle using crypto/rand
			for i := len(chamber) - 1; i > 0; i-- {
				j := randIndex(i + 1)
				chamber[i], chamber[j] = chamber[j], chamber[i]
			}
		}

		shot := chamber[0]
		chamber = chamber[1:]
		return shot
	}
}
