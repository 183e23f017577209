// Package tictactoe implements grid-capture games: an n×n board where the
// first seat to place winLength consecutive marks in a row, column or
// diagonal wins.
package tictactoe

import (
	"fmt"
	"math/rand"
	"sync"

	"arcade/internal/game"
)

const (
	Classic game.Type = "tic-tac-toe"
	Five    game.Type = "tic-tac-toe-5x5"
	Seven   game.Type = "tic-tac-toe-7x7"
)

// Config sets the board size and how many marks in a line win.
type Config struct {
	Type      game.Type
	Title     string
	Aliases   []string
	Size      int
	WinLength int
}

// Variants are the board configurations the opponent AI is tuned for.
var Variants = []Config{
	{Type: Classic, Title: "Tic-Tac-Toe", Aliases: []string{"tictactoe", "ttt"}, Size: 3, WinLength: 3},
	{Type: Five, Title: "Tic-Tac-Toe 5×5", Aliases: []string{"tictactoe5"}, Size: 5, WinLength: 4},
	{Type: Seven, Title: "Tic-Tac-Toe 7×7", Aliases: []string{"tictactoe7"}, Size: 7, WinLength: 5},
}

// Rules implements game.Rules for one board configuration.
type Rules struct {
	cfg Config
}

// New returns rules for cfg.
func New(cfg Config) Rules {
	return Rules{cfg: cfg}
}

// State is the board, row-major. Empty cells hold game.NoSeat.
type State struct {
	Type      game.Type   `json:"type"`
	Size      int         `json:"size"`
	WinLength int         `json:"winLength"`
	Board     []game.Seat `json:"board"`
	First     game.Seat   `json:"first"`
}

func (s *State) GameType() game.Type { return s.Type }

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Board = append([]game.Seat(nil), s.Board...)
	return &c
}

// Move places the mover's mark on Index.
type Move struct {
	Type  game.Type `json:"-"`
	Index int       `json:"index"`
}

func (m Move) GameType() game.Type { return m.Type }

func (r Rules) Info() game.Info {
	return game.Info{Type: r.cfg.Type, Title: r.cfg.Title, Aliases: r.cfg.Aliases}
}

func (r Rules) NewState(_ *rand.Rand, first game.Seat) game.State {
	return &State{
		Type:      r.cfg.Type,
		Size:      r.cfg.Size,
		WinLength: r.cfg.WinLength,
		Board:     make([]game.Seat, r.cfg.Size*r.cfg.Size),
		First:     first,
	}
}

func (r Rules) ApplyMove(s game.State, m game.Move, seat game.Seat) (game.State, error) {
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
	if mv.Index < 0 || mv.Index >= len(st.Board) {
		return nil, fmt.Errorf("%w: cell %d out of range", game.ErrIllegalMove, mv.Index)
	}
	if st.Board[mv.Index] != game.NoSeat {
		return nil, fmt.Errorf("%w: cell %d already occupied", game.ErrIllegalMove, mv.Index)
	}
	next := st.Clone()
	next.Board[mv.Index] = seat
	return next, nil
}

func (r Rules) Outcome(s game.State) game.Outcome {
	st, ok := s.(*State)
	if !ok {
		return game.Ongoing()
	}
	return Evaluate(st.Board, st.Size, st.WinLength)
}

func (r Rules) LegalMoves(s game.State, _ game.Seat) []game.Move {
	st, ok := s.(*State)
	if !ok {
		return nil
	}
	var moves []game.Move
	for i, v := range st.Board {
		if v == game.NoSeat {
			moves = append(moves, Move{Type: st.Type, Index: i})
		}
	}
	return moves
}

func (r Rules) DecodeState(data []byte) (game.State, error) {
	st, err := game.DecodeStateJSON[State](data)
	if err != nil {
		return nil, err
	}
	if len(st.Board) != st.Size*st.Size {
		return nil, fmt.Errorf("decode state: board has %d cells, want %d", len(st.Board), st.Size*st.Size)
	}
	return st, nil
}

func (r Rules) DecodeMove(data []byte) (game.Move, error) {
	mv, err := game.DecodeMoveJSON[Move](data)
	if err != nil {
		return nil, err
	}
	mv.Type = r.cfg.Type
	return mv, nil
}

// Evaluate scans every line of winLength cells for a single owner. A full
// board without such a line is a draw.
func Evaluate(board []game.Seat, size, winLength int) game.Outcome {
	for _, line := range Lines(size, winLength) {
		first := board[line[0]]
		if first == game.NoSeat {
			continue
		}
		complete := true
		for _, idx := range line[1:] {
			if board[idx] != first {
				complete = false
				break
			}
		}
		if complete {
			return game.Win(first)
		}
	}
	for _, v := range board {
		if v == game.NoSeat {
			return game.Ongoing()
		}
	}
	return game.Draw()
}

type lineKey struct{ size, win int }

var (
	linesMu    sync.Mutex
	linesCache = map[lineKey][][]int{}
)

// Lines returns the cell indexes of every window of winLength consecutive
// cells along rows, columns, diagonals and anti-diagonals. The result is
// shared and must not be modified.
func Lines(size, winLength int) [][]int {
	key := lineKey{size, winLength}
	linesMu.Lock()
	defer linesMu.Unlock()
	if lines, ok := linesCache[key]; ok {
		return lines
	}
	dirs := [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	var lines [][]int
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			for _, d := range dirs {
				endR, endC := r+d[0]*(winLength-1), c+d[1]*(winLength-1)
				if endR < 0 || endR >= size || endC < 0 || endC >= size {
					continue
				}
				line := make([]int, winLength)
				for k := 0; k < winLength; k++ {
					line[k] = (r+d[0]*k)*size + c + d[1]*k
				}
				lines = append(lines, line)
			}
		}
	}
	linesCache[key] = lines
	return lines
}
