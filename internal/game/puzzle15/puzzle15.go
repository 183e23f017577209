// Package puzzle15 implements a 15-puzzle race: both seats get the same
// shuffled board and take turns sliding tiles on their own copy. The first
// seat to restore the ordering wins.
package puzzle15

import (
	"fmt"
	"math/rand"

	"arcade/internal/game"
)

const Type game.Type = "puzzle15"

const (
	Side  = 4
	Cells = Side * Side
	// MaxMovesPerSeat ends the race in a draw when neither seat solves it.
	MaxMovesPerSeat = 400
)

// Board holds tile numbers 1-15 in row-major order with 0 as the blank.
type Board [Cells]int

// Solved reports whether the tiles are in order with the blank last.
func (b Board) Solved() bool {
	for i := 0; i < Cells-1; i++ {
		if b[i] != i+1 {
			return false
		}
	}
	return b[Cells-1] == 0
}

func (b Board) blank() int {
	for i, v := range b {
		if v == 0 {
			return i
		}
	}
	return -1
}

// Solvable applies the inversion parity rule for even-width boards.
func (b Board) Solvable() bool {
	inversions := 0
	for i := 0; i < Cells; i++ {
		for j := i + 1; j < Cells; j++ {
			if b[i] != 0 && b[j] != 0 && b[i] > b[j] {
				inversions++
			}
		}
	}
	rowFromBottom := Side - b.blank()/Side
	return (inversions+rowFromBottom)%2 == 1
}

// State has one board per seat.
type State struct {
	Boards [2]Board `json:"boards"`
	Moves  [2]int   `json:"moves"`
}

func (s *State) GameType() game.Type { return Type }

// Move slides Tile into the blank.
type Move struct {
	Tile int `json:"tile"`
}

func (Move) GameType() game.Type { return Type }

// Rules implements game.Rules.
type Rules struct{}

func (Rules) Info() game.Info {
	return game.Info{Type: Type, Title: "15 Puzzle Race", Aliases: []string{"fifteen", "15-puzzle"}}
}

func (Rules) NewState(rng *rand.Rand, _ game.Seat) game.State {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	var b Board
	for {
		perm := rng.Perm(Cells)
		copy(b[:], perm)
		if b.Solvable() && !b.Solved() {
			break
		}
	}
	return &State{Boards: [2]Board{b, b}}
}

func adjacent(a, b int) bool {
	ar, ac := a/Side, a%Side
	br, bc := b/Side, b%Side
	dr, dc := ar-br, ac-bc
	return dr*dr+dc*dc == 1
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
	if mv.Tile < 1 || mv.Tile >= Cells {
		return nil, fmt.Errorf("%w: no tile %d", game.ErrIllegalMove, mv.Tile)
	}
	i := seat.Index()
	b := st.Boards[i]
	if b.Solved() {
		return nil, fmt.Errorf("%w: board already solved", game.ErrIllegalMove)
	}
	blank := b.blank()
	pos := -1
	for p, v := range b {
		if v == mv.Tile {
			pos = p
		}
	}
	if !adjacent(pos, blank) {
		return nil, fmt.Errorf("%w: tile %d is not next to the blank", game.ErrIllegalMove, mv.Tile)
	}
	next := *st
	next.Boards[i][blank], next.Boards[i][pos] = mv.Tile, 0
	next.Moves[i]++
	return &next, nil
}

// Outcome awards the first solved board. Seats alternate, so only the seat
// that just moved can have newly solved; if both ever read solved the one
// with fewer moves wins.
func (Rules) Outcome(s game.State) game.Outcome {
	st, ok := s.(*State)
	if !ok {
		return game.Ongoing()
	}
	p1, p2 := st.Boards[0].Solved(), st.Boards[1].Solved()
	switch {
	case p1 && p2:
		return game.ScoreOutcome(st.Moves[1], st.Moves[0])
	case p1:
		return game.Win(game.Player1)
	case p2:
		return game.Win(game.Player2)
	}
	if st.Moves[0] >= MaxMovesPerSeat && st.Moves[1] >= MaxMovesPerSeat {
		return game.Draw()
	}
	return game.Ongoing()
}

func (Rules) LegalMoves(s game.State, seat game.Seat) []game.Move {
	st, ok := s.(*State)
	if !ok || !seat.Valid() {
		return nil
	}
	b := st.Boards[seat.Index()]
	blank := b.blank()
	var moves []game.Move
	for p, v := range b {
		if v != 0 && adjacent(p, blank) {
			moves = append(moves, Move{Tile: v})
		}
	}
	return moves
}

func (Rules) DecodeState(data []byte) (game.State, error) {
	st, err := game.DecodeStateJSON[State](data)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (Rules) DecodeMove(data []byte) (game.Move, error) {
	return game.DecodeMoveJSON[Move](data)
}
