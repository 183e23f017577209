// Package checkers implements 8x8 draughts with single steps, single jumps
// and kinging. Captures are not compulsory and a jump ends the move.
package checkers

import (
	"fmt"
	"math/rand"
	"strings"

	"arcade/internal/game"
)

const Type game.Type = "checkers"

// MaxPlies ends a round in a draw.
const MaxPlies = 200

// Board squares: index = row*8 + col, row 0 at the dark side. "d"/"D" are
// dark men/kings, "l"/"L" light, "." empty.
const startBoard = ".d.d.d.d" + "d.d.d.d." + ".d.d.d.d" + "........" + "........" + "l.l.l.l." + ".l.l.l.l" + "l.l.l.l."

// Rules implements game.Rules.
type Rules struct{}

// State is the board plus which seat plays dark and who moves next.
type State struct {
	Board string    `json:"board"`
	Dark  game.Seat `json:"dark"`
	Next  game.Seat `json:"next"`
	Plies int       `json:"plies"`
}

func (s *State) GameType() game.Type { return Type }

// Move is a step or jump between two square indexes.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (Move) GameType() game.Type { return Type }

func (Rules) Info() game.Info {
	return game.Info{Type: Type, Title: "Checkers", Aliases: []string{"draughts"}}
}

func (Rules) NewState(_ *rand.Rand, first game.Seat) game.State {
	return &State{Board: startBoard, Dark: first, Next: first}
}

func (s *State) owner(p byte) game.Seat {
	switch p {
	case 'd', 'D':
		return s.Dark
	case 'l', 'L':
		return s.Dark.Other()
	}
	return game.NoSeat
}

// forward is the row direction men of seat advance in.
func (s *State) forward(seat game.Seat) int {
	if seat == s.Dark {
		return 1
	}
	return -1
}

func (Rules) ApplyMove(s game.State, m game.Move, seat game.Seat) (game.State, error) {
	st, err := game.Cast[*State](s)
	if err != nil {
		return nil, err
	}
	mv, err := game.Cast[Move](m)
	if err != nil {
		return nil, err
	}
	if !seat.Valid() {
		return nil, fmt.Errorf("%w: invalid seat %q", game.ErrIllegalMove, seat)
	}
	if mv.From < 0 || mv.From >= 64 || mv.To < 0 || mv.To >= 64 {
		return nil, fmt.Errorf("%w: square out of range", game.ErrIllegalMove)
	}
	if st.owner(st.Board[mv.From]) != seat {
		return nil, fmt.Errorf("%w: no piece of yours on %d", game.ErrIllegalMove, mv.From)
	}
	captured, ok := st.check(mv.From, mv.To, seat)
	if !ok {
		return nil, fmt.Errorf("%w: cannot move %d-%d", game.ErrIllegalMove, mv.From, mv.To)
	}

	b := []byte(st.Board)
	piece := b[mv.From]
	b[mv.From] = '.'
	if captured >= 0 {
		b[captured] = '.'
	}
	row := mv.To / 8
	if piece == 'd' && row == 7 {
		piece = 'D'
	}
	if piece == 'l' && row == 0 {
		piece = 'L'
	}
	b[mv.To] = piece
	return &State{Board: string(b), Dark: st.Dark, Next: seat.Other(), Plies: st.Plies + 1}, nil
}

// check validates a step or jump and returns the captured square (-1 for a
// plain step).
func (s *State) check(from, to int, seat game.Seat) (int, bool) {
	if s.Board[to] != '.' {
		return -1, false
	}
	piece := s.Board[from]
	king := piece == 'D' || piece == 'L'
	dr, dc := to/8-from/8, to%8-from%8
	if abs(dr) != abs(dc) || (abs(dr) != 1 && abs(dr) != 2) {
		return -1, false
	}
	if !king && sign(dr) != s.forward(seat) {
		return -1, false
	}
	if abs(dr) == 1 {
		return -1, true
	}
	mid := (from + to) / 2
	if owner := s.owner(s.Board[mid]); owner == game.NoSeat || owner == seat {
		return -1, false
	}
	return mid, true
}

func (Rules) Outcome(s game.State) game.Outcome {
	st, ok := s.(*State)
	if !ok {
		return game.Ongoing()
	}
	darkLeft := strings.ContainsAny(st.Board, "dD")
	lightLeft := strings.ContainsAny(st.Board, "lL")
	switch {
	case !darkLeft:
		return game.Win(st.Dark.Other())
	case !lightLeft:
		return game.Win(st.Dark)
	}
	if len(st.moves(st.Next)) == 0 {
		return game.Win(st.Next.Other())
	}
	if st.Plies >= MaxPlies {
		return game.Draw()
	}
	return game.Ongoing()
}

func (s *State) moves(seat game.Seat) []game.Move {
	var moves []game.Move
	for from := 0; from < 64; from++ {
		if s.owner(s.Board[from]) != seat {
			continue
		}
		for _, d := range []int{7, 9, 14, 18} {
			for _, to := range []int{from + d, from - d} {
				if to < 0 || to >= 64 {
					continue
				}
				if _, ok := s.check(from, to, seat); ok {
					moves = append(moves, Move{From: from, To: to})
				}
			}
		}
	}
	return moves
}

func (Rules) LegalMoves(s game.State, seat game.Seat) []game.Move {
	st, ok := s.(*State)
	if !ok {
		return nil
	}
	return st.moves(seat)
}

func (Rules) DecodeState(data []byte) (game.State, error) {
	st, err := game.DecodeStateJSON[State](data)
	if err != nil {
		return nil, err
	}
	if len(st.Board) != 64 {
		return nil, fmt.Errorf("decode state: board has %d squares", len(st.Board))
	}
	return st, nil
}

func (Rules) DecodeMove(data []byte) (game.Move, error) {
	return game.DecodeMoveJSON[Move](data)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
