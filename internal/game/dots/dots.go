// Package dots implements dots-and-boxes. Drawing the fourth side of a box
// claims it; the seat with more boxes once every line is drawn wins.
package dots

import (
	"fmt"
	"math/rand"

	"arcade/internal/game"
)

const Type game.Type = "dots"

// DefaultSize is the number of boxes per side.
const DefaultSize = 3

// Rules implements game.Rules for a square grid of Size×Size boxes.
type Rules struct {
	Size int
}

// State tracks drawn lines and claimed boxes. Horizontal lines are indexed
// row*Size+col for rows 0..Size, vertical lines row*(Size+1)+col.
type State struct {
	Size  int         `json:"size"`
	H     []game.Seat `json:"h"`
	V     []game.Seat `json:"v"`
	Boxes []game.Seat `json:"boxes"`
}

func (s *State) GameType() game.Type { return Type }

// Move draws one line.
type Move struct {
	Orientation string `json:"orientation"` // "h" or "v"
	Row         int    `json:"row"`
	Col         int    `json:"col"`
}

func (Move) GameType() game.Type { return Type }

func (Rules) Info() game.Info {
	return game.Info{Type: Type, Title: "Dots and Boxes", Aliases: []string{"dots-and-boxes"}}
}

func (r Rules) size() int {
	if r.Size <= 0 {
		return DefaultSize
	}
	return r.Size
}

func (r Rules) NewState(_ *rand.Rand, _ game.Seat) game.State {
	n := r.size()
	return &State{
		Size:  n,
		H:     make([]game.Seat, (n+1)*n),
		V:     make([]game.Seat, n*(n+1)),
		Boxes: make([]game.Seat, n*n),
	}
}

func (s *State) clone() *State {
	return &State{
		Size:  s.Size,
		H:     append([]game.Seat(nil), s.H...),
		V:     append([]game.Seat(nil), s.V...),
		Boxes: append([]game.Seat(nil), s.Boxes...),
	}
}

// line resolves a move to the slice and index it draws in.
func (s *State) line(mv Move) ([]game.Seat, int, bool) {
	n := s.Size
	switch mv.Orientation {
	case "h":
		if mv.Row < 0 || mv.Row > n || mv.Col < 0 || mv.Col >= n {
			return nil, 0, false
		}
		return s.H, mv.Row*n + mv.Col, true
	case "v":
		if mv.Row < 0 || mv.Row >= n || mv.Col < 0 || mv.Col > n {
			return nil, 0, false
		}
		return s.V, mv.Row*(n+1) + mv.Col, true
	}
	return nil, 0, false
}

func (s *State) closed(row, col int) bool {
	n := s.Size
	return s.H[row*n+col] != game.NoSeat &&
		s.H[(row+1)*n+col] != game.NoSeat &&
		s.V[row*(n+1)+col] != game.NoSeat &&
		s.V[row*(n+1)+col+1] != game.NoSeat
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
	next := st.clone()
	lines, idx, ok := next.line(mv)
	if !ok {
		return nil, fmt.Errorf("%w: no %q line at %d,%d", game.ErrIllegalMove, mv.Orientation, mv.Row, mv.Col)
	}
	if lines[idx] != game.NoSeat {
		return nil, fmt.Errorf("%w: line already drawn", game.ErrIllegalMove)
	}
	lines[idx] = seat

	n := next.Size
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if next.Boxes[row*n+col] == game.NoSeat && next.closed(row, col) {
				next.Boxes[row*n+col] = seat
			}
		}
	}
	return next, nil
}

// Score counts boxes claimed by seat.
func (s *State) Score(seat game.Seat) int {
	n := 0
	for _, b := range s.Boxes {
		if b == seat {
			n++
		}
	}
	return n
}

func (Rules) Outcome(s game.State) game.Outcome {
	st, ok := s.(*State)
	if !ok {
		return game.Ongoing()
	}
	for _, b := range st.Boxes {
		if b == game.NoSeat {
			return game.Ongoing()
		}
	}
	return game.ScoreOutcome(st.Score(game.Player1), st.Score(game.Player2))
}

func (Rules) LegalMoves(s game.State, _ game.Seat) []game.Move {
	st, ok := s.(*State)
	if !ok {
		return nil
	}
	var moves []game.Move
	n := st.Size
	for i, v := range st.H {
		if v == game.NoSeat {
			moves = append(moves, Move{Orientation: "h", Row: i / n, Col: i % n})
		}
	}
	for i, v := range st.V {
		if v == game.NoSeat {
			moves = append(moves, Move{Orientation: "v", Row: i / (n + 1), Col: i % (n + 1)})
		}
	}
	return moves
}

func (Rules) DecodeState(data []byte) (game.State, error) {
	st, err := game.DecodeStateJSON[State](data)
	if err != nil {
		return nil, err
	}
	n := st.Size
	if n <= 0 || len(st.H) != (n+1)*n || len(st.V) != n*(n+1) || len(st.Boxes) != n*n {
		return nil, fmt.Errorf("decode state: inconsistent %dx%d grid", n, n)
	}
	return st, nil
}

func (Rules) DecodeMove(data []byte) (game.Move, error) {
	return game.DecodeMoveJSON[Move](data)
}
