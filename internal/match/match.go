// Package match owns the lifecycle of a best-of-N match: turn order, move
// acceptance, turn timeouts, round and series bookkeeping, and the AI seat.
package match

import (
	"errors"
	"fmt"
	"time"

	"arcade/internal/ai"
	"arcade/internal/game"
)

var (
	ErrNotFound       = errors.New("match not found")
	ErrWrongTurn      = errors.New("not your turn")
	ErrNotSeated      = errors.New("not a participant in this match")
	ErrFinished       = errors.New("match is finished")
	ErrTurnNotExpired = errors.New("turn has not expired")
	ErrInvalidMode    = errors.New("invalid mode")
	// ErrConflict is returned by a Store when a conditional update lost the
	// race against another writer.
	ErrConflict = errors.New("match was modified concurrently")
)

// Mode is the series length.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeTriple Mode = "triple"
	ModeFive   Mode = "five"
)

// ParseMode validates a mode string. Empty means ModeNormal.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeNormal, nil
	case ModeNormal, ModeTriple, ModeFive:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Rounds is the scheduled number of rounds.
func (m Mode) Rounds() int {
	switch m {
	case ModeTriple:
		return 3
	case ModeFive:
		return 5
	}
	return 1
}

// RequiredWins is the round-win count that decides the series.
func (m Mode) RequiredWins() int {
	return (m.Rounds() + 1) / 2
}

type Status string

const (
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// AIPlayerID is the id shown for the synthetic opponent. It is reserved:
// identity never resolves an account to it.
const AIPlayerID = "ai"

// Player is one participant.
type Player struct {
	ID    string `json:"id"`
	Guest bool   `json:"guest,omitempty"`
	AI    bool   `json:"ai,omitempty"`
}

// AIPlayer is the engine-played seat.
func AIPlayer() Player { return Player{ID: AIPlayerID, AI: true} }

// IsAI reports whether the seat is played by the engine. Only the AI flag
// counts; an account that happens to be named like the AI is still human.
func (p Player) IsAI() bool { return p.AI }

// Human reports whether the player is a real, authenticated account.
func (p Player) Human() bool { return !p.IsAI() && !p.Guest }

// Match is the aggregate the Engine mutates.
type Match struct {
	ID           string        `json:"id"`
	GameType     game.Type     `json:"gameType"`
	Mode         Mode          `json:"mode"`
	Players      [2]Player     `json:"players"`
	Difficulty   ai.Difficulty `json:"difficulty,omitempty"`
	State        game.State    `json:"state"`
	Turn         game.Seat     `json:"turn,omitempty"`
	Round        int           `json:"round"`
	RoundStarter game.Seat     `json:"roundStarter"`
	Wins         [2]int        `json:"wins"`
	Status       Status        `json:"status"`
	Winner       game.Seat     `json:"winner,omitempty"`
	TurnDeadline time.Time     `json:"turnDeadline"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Player returns the participant in seat.
func (m *Match) Player(seat game.Seat) Player {
	return m.Players[seat.Index()]
}

// SeatOf returns the seat playerID occupies, or game.NoSeat.
func (m *Match) SeatOf(playerID string) game.Seat {
	switch playerID {
	case "":
		return game.NoSeat
	case m.Players[0].ID:
		return game.Player1
	case m.Players[1].ID:
		return game.Player2
	}
	return game.NoSeat
}

// AISeat returns the seat the engine plays, or game.NoSeat for PvP.
func (m *Match) AISeat() game.Seat {
	for i, p := range m.Players {
		if p.IsAI() {
			return game.SeatAt(i)
		}
	}
	return game.NoSeat
}

// Playing reports whether the match still accepts moves.
func (m *Match) Playing() bool { return m.Status == StatusPlaying }

// Opponent returns the player facing playerID.
func (m *Match) Opponent(playerID string) Player {
	seat := m.SeatOf(playerID)
	if seat == game.NoSeat {
		return Player{}
	}
	return m.Player(seat.Other())
}
