// Package sudoku implements a shared-grid sudoku duel. Seats alternate
// placing digits; a placement must not repeat a digit in its row, column or
// box, and only placements that match the solution fill the cell and score.
package sudoku

import (
	"fmt"
	"math/rand"

	"arcade/internal/game"
)

const Type game.Type = "sudoku"

// DefaultHoles is how many cells a generated puzzle leaves open.
const DefaultHoles = 30

// Rules implements game.Rules.
type Rules struct {
	Holes int
}

// State is the 81-cell grid (0 = open), the solution, who filled each cell
// and the running scores.
type State struct {
	Cells    [81]int       `json:"cells"`
	Solution [81]int       `json:"solution"`
	Owners   [81]game.Seat `json:"owners"`
	Scores   [2]int        `json:"scores"`
	Misses   [2]int        `json:"misses"`
}

func (s *State) GameType() game.Type { return Type }

// Move writes Value (1-9) into Cell (0-80).
type Move struct {
	Cell  int `json:"cell"`
	Value int `json:"value"`
}

func (Move) GameType() game.Type { return Type }

func (Rules) Info() game.Info {
	return game.Info{Type: Type, Title: "Sudoku Duel"}
}

func (r Rules) NewState(rng *rand.Rand, _ game.Seat) game.State {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	holes := r.Holes
	if holes <= 0 || holes > 81 {
		holes = DefaultHoles
	}
	st := &State{Solution: solved(rng)}
	st.Cells = st.Solution
	for _, idx := range rng.Perm(81)[:holes] {
		st.Cells[idx] = 0
	}
	return st
}

// solved builds a random complete grid by relabelling digits and permuting
// rows within bands, bands, columns within stacks and stacks of the base
// pattern. Each of those preserves validity.
func solved(rng *rand.Rand) [81]int {
	digits := rng.Perm(9)
	rows := permuteGroups(rng)
	cols := permuteGroups(rng)
	var g [81]int
	for r := 0; r < 9; r++ {
		for c := 0; c < 9; c++ {
			br, bc := rows[r], cols[c]
			base := (br*3 + br/3 + bc) % 9
			g[r*9+c] = digits[base] + 1
		}
	}
	return g
}

func permuteGroups(rng *rand.Rand) [9]int {
	var out [9]int
	groups := rng.Perm(3)
	for i, grp := range groups {
		inner := rng.Perm(3)
		for j, k := range inner {
			out[i*3+j] = grp*3 + k
		}
	}
	return out
}

// Conflicts reports whether value already appears in the row, column or box
// of cell.
func Conflicts(cells [81]int, cell, value int) bool {
	row, col := cell/9, cell%9
	for i := 0; i < 9; i++ {
		if cells[row*9+i] == value || cells[i*9+col] == value {
			return true
		}
	}
	br, bc := row/3*3, col/3*3
	for r := br; r < br+3; r++ {
		for c := bc; c < bc+3; c++ {
			if cells[r*9+c] == value {
				return true
			}
		}
	}
	return false
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
	if mv.Cell < 0 || mv.Cell >= 81 {
		return nil, fmt.Errorf("%w: cell %d out of range", game.ErrIllegalMove, mv.Cell)
	}
	if mv.Value < 1 || mv.Value > 9 {
		return nil, fmt.Errorf("%w: value %d out of range", game.ErrIllegalMove, mv.Value)
	}
	if st.Cells[mv.Cell] != 0 {
		return nil, fmt.Errorf("%w: cell %d already filled", game.ErrIllegalMove, mv.Cell)
	}
	if Conflicts(st.Cells, mv.Cell, mv.Value) {
		return nil, fmt.Errorf("%w: %d repeats in row, column or box", game.ErrIllegalMove, mv.Value)
	}
	next := *st
	if st.Solution[mv.Cell] == mv.Value {
		next.Cells[mv.Cell] = mv.Value
		next.Owners[mv.Cell] = seat
		next.Scores[seat.Index()]++
	} else {
		next.Misses[seat.Index()]++
	}
	return &next, nil
}

func (Rules) Outcome(s game.State) game.Outcome {
	st, ok := s.(*State)
	if !ok {
		return game.Ongoing()
	}
	for _, v := range st.Cells {
		if v == 0 {
			return game.Ongoing()
		}
	}
	return game.ScoreOutcome(st.Scores[0], st.Scores[1])
}

func (Rules) LegalMoves(s game.State, _ game.Seat) []game.Move {
	st, ok := s.(*State)
	if !ok {
		return nil
	}
	var moves []game.Move
	for cell, v := range st.Cells {
		if v != 0 {
			continue
		}
		for value := 1; value <= 9; value++ {
			if !Conflicts(st.Cells, cell, value) {
				moves = append(moves, Move{Cell: cell, Value: value})
			}
		}
	}
	return moves
}

// Board is the player view of a State: everything but the solution.
type Board struct {
	Cells  [81]int       `json:"cells"`
	Owners [81]game.Seat `json:"owners"`
	Scores [2]int        `json:"scores"`
	Misses [2]int        `json:"misses"`
}

func (*Board) GameType() game.Type { return Type }

func (Rules) Redact(s game.State) game.State {
	st, ok := s.(*State)
	if !ok {
		return s
	}
	return &Board{Cells: st.Cells, Owners: st.Owners, Scores: st.Scores, Misses: st.Misses}
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
