package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
)

// ErrIllegalMove is returned by Rules.ApplyMove for malformed moves and moves
// that the current state does not allow.
var ErrIllegalMove = errors.New("illegal move")

// Type names a rule module ("tic-tac-toe", "chess", ...).
type Type string

// Seat is one of the two participant slots of a match.
type Seat string

const (
	NoSeat  Seat = ""
	Player1 Seat = "player1"
	Player2 Seat = "player2"
)

// Other returns the opposing seat. NoSeat has no opponent.
func (s Seat) Other() Seat {
	switch s {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return NoSeat
}

// Valid reports whether s is Player1 or Player2.
func (s Seat) Valid() bool {
	return s == Player1 || s == Player2
}

// Index maps Player1 to 0 and Player2 to 1, for per-seat arrays.
func (s Seat) Index() int {
	if s == Player2 {
		return 1
	}
	return 0
}

// SeatAt is the inverse of Index.
func SeatAt(i int) Seat {
	if i == 1 {
		return Player2
	}
	return Player1
}

// OutcomeKind classifies the result of evaluating a state.
type OutcomeKind string

const (
	InProgress OutcomeKind = "in_progress"
	Won        OutcomeKind = "win"
	Drawn      OutcomeKind = "draw"
)

// Outcome is InProgress, Win(seat) or Draw.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner Seat        `json:"winner,omitempty"`
}

func Ongoing() Outcome      { return Outcome{Kind: InProgress} }
func Win(seat Seat) Outcome { return Outcome{Kind: Won, Winner: seat} }
func Draw() Outcome         { return Outcome{Kind: Drawn} }

// Terminal reports whether the round is over.
func (o Outcome) Terminal() bool { return o.Kind != InProgress }

// Info describes a rule module for the lobby.
type Info struct {
	Type    Type     `json:"type"`
	Title   string   `json:"title"`
	Aliases []string `json:"aliases,omitempty"`
}

// State is the game-specific value a rule module interprets. Each rule
// module has exactly one concrete State type.
type State interface {
	GameType() Type
}

// Move is one player's action, interpreted by the rule module that owns
// the matching State.
type Move interface {
	GameType() Type
}

// Rules is the contract every game implements. Implementations are pure:
// ApplyMove never mutates its input state. Turn order is not the rule
// module's concern; it only validates a single transition for seat.
type Rules interface {
	Info() Info
	// NewState returns the opening state of a round that first opens.
	NewState(rng *rand.Rand, first Seat) State
	ApplyMove(s State, m Move, seat Seat) (State, error)
	Outcome(s State) Outcome
	// LegalMoves lists moves seat may make; every entry is accepted by ApplyMove.
	LegalMoves(s State, seat Seat) []Move
	DecodeState(data []byte) (State, error)
	DecodeMove(data []byte) (Move, error)
}

// Redactor is implemented by rules whose state carries answers the players
// must not see. Redact returns the client view and leaves s untouched.
type Redactor interface {
	Redact(s State) State
}

// Cast asserts the concrete type of a state or move handed to a rule module.
// A mismatch is reported as ErrIllegalMove.
func Cast[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: unexpected %T, want %T", ErrIllegalMove, v, zero)
	}
	return t, nil
}

// ScoreOutcome compares two seat scores once a game is complete.
func ScoreOutcome(p1, p2 int) Outcome {
	switch {
	case p1 > p2:
		return Win(Player1)
	case p2 > p1:
		return Win(Player2)
	}
	return Draw()
}

// DecodeMoveJSON unmarshals a move payload into T. Malformed payloads are
// illegal moves rather than server errors.
func DecodeMoveJSON[T any](data []byte) (T, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: invalid move payload: %v", ErrIllegalMove, err)
	}
	return m, nil
}

// DecodeStateJSON unmarshals a persisted state into a fresh *T.
func DecodeStateJSON[T any](data []byte) (*T, error) {
	s := new(T)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}
