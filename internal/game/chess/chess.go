// Package chess implements a casual chess variant: standard piece movement
// and pawn promotion to queen, but no castling, en passant or check. A round
// is won by capturing the opposing king.
package chess

import (
	"fmt"
	"math/rand"
	"strings"

	"arcade/internal/game"
)

const Type game.Type = "chess"

// MaxPlies ends a round in a draw when neither king has fallen.
const MaxPlies = 300

const startRows = "RNBQKBNR" + "PPPPPPPP" + "........" + "........" + "........" + "........" + "pppppppp" + "rnbqkbnr"

// Rules implements game.Rules.
type Rules struct{}

// State holds the board as 64 squares, a1 first, h8 last. Uppercase pieces
// belong to White, lowercase to Black, "." is empty.
type State struct {
	Board string    `json:"board"`
	White game.Seat `json:"white"`
	Next  game.Seat `json:"next,omitempty"`
	Plies int       `json:"plies"`
}

func (s *State) GameType() game.Type { return Type }

// ToMove is the seat whose turn it is. States saved without Next fall back
// to ply parity, White having moved first.
func (s *State) ToMove() game.Seat {
	if s.Next.Valid() {
		return s.Next
	}
	if s.Plies%2 == 0 {
		return s.White
	}
	return s.White.Other()
}

// Move is a from/to square pair in algebraic notation ("e2", "e4").
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (Move) GameType() game.Type { return Type }

func (Rules) Info() game.Info {
	return game.Info{Type: Type, Title: "Chess"}
}

func (Rules) NewState(_ *rand.Rand, first game.Seat) game.State {
	return &State{Board: startRows, White: first, Next: first}
}

// isOwn reports whether piece p belongs to seat.
func (s *State) isOwn(p byte, seat game.Seat) bool {
	if p == '.' {
		return false
	}
	upper := p >= 'A' && p <= 'Z'
	return upper == (seat == s.White)
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
	from, ok := ParseSquare(mv.From)
	if !ok {
		return nil, fmt.Errorf("%w: bad square %q", game.ErrIllegalMove, mv.From)
	}
	to, ok := ParseSquare(mv.To)
	if !ok {
		return nil, fmt.Errorf("%w: bad square %q", game.ErrIllegalMove, mv.To)
	}
	if !st.isOwn(st.Board[from], seat) {
		return nil, fmt.Errorf("%w: no piece of yours on %s", game.ErrIllegalMove, mv.From)
	}
	if !st.canReach(from, to, seat) {
		return nil, fmt.Errorf("%w: %c cannot move %s-%s", game.ErrIllegalMove, st.Board[from], mv.From, mv.To)
	}
	return st.move(from, to, seat), nil
}

func (s *State) move(from, to int, seat game.Seat) *State {
	b := []byte(s.Board)
	piece := b[from]
	b[from] = '.'
	switch {
	case piece == 'P' && to/8 == 7:
		piece = 'Q'
	case piece == 'p' && to/8 == 0:
		piece = 'q'
	}
	b[to] = piece
	return &State{Board: string(b), White: s.White, Next: seat.Other(), Plies: s.Plies + 1}
}

func (s *State) canReach(from, to int, seat game.Seat) bool {
	if from == to || s.isOwn(s.Board[to], seat) {
		return false
	}
	fr, ff := from/8, from%8
	tr, tf := to/8, to%8
	dr, df := tr-fr, tf-ff
	target := s.Board[to]
	switch strings.ToLower(string(s.Board[from])) {
	case "p":
		dir, home := 1, 1
		if seat != s.White {
			dir, home = -1, 6
		}
		switch {
		case df == 0 && dr == dir:
			return target == '.'
		case df == 0 && dr == 2*dir && fr == home:
			return target == '.' && s.Board[from+8*dir] == '.'
		case abs(df) == 1 && dr == dir:
			return target != '.'
		}
		return false
	case "n":
		return (abs(dr) == 1 && abs(df) == 2) || (abs(dr) == 2 && abs(df) == 1)
	case "b":
		return abs(dr) == abs(df) && s.pathClear(from, to)
	case "r":
		return (dr == 0 || df == 0) && s.pathClear(from, to)
	case "q":
		return (dr == 0 || df == 0 || abs(dr) == abs(df)) && s.pathClear(from, to)
	case "k":
		return abs(dr) <= 1 && abs(df) <= 1
	}
	return false
}

// pathClear checks the squares strictly between from and to on a straight
// or diagonal line.
func (s *State) pathClear(from, to int) bool {
	dr, df := sign(to/8-from/8), sign(to%8-from%8)
	step := dr*8 + df
	for sq := from + step; sq != to; sq += step {
		if s.Board[sq] != '.' {
			return false
		}
	}
	return true
}

func (Rules) Outcome(s game.State) game.Outcome {
	st, ok := s.(*State)
	if !ok {
		return game.Ongoing()
	}
	whiteKing := strings.IndexByte(st.Board, 'K') >= 0
	blackKing := strings.IndexByte(st.Board, 'k') >= 0
	switch {
	case whiteKing && !blackKing:
		return game.Win(st.White)
	case blackKing && !whiteKing:
		return game.Win(st.White.Other())
	}
	if st.Plies >= MaxPlies || strings.Trim(st.Board, ".Kk") == "" {
		return game.Draw()
	}
	// A side whose pieces are all boxed in cannot lose its king, so the
	// round can never end otherwise.
	if !st.canMove(st.ToMove()) {
		return game.Draw()
	}
	return game.Ongoing()
}

func (s *State) canMove(seat game.Seat) bool {
	for from := 0; from < 64; from++ {
		if !s.isOwn(s.Board[from], seat) {
			continue
		}
		for to := 0; to < 64; to++ {
			if s.canReach(from, to, seat) {
				return true
			}
		}
	}
	return false
}

func (r Rules) LegalMoves(s game.State, seat game.Seat) []game.Move {
	st, ok := s.(*State)
	if !ok {
		return nil
	}
	var moves []game.Move
	for from := 0; from < 64; from++ {
		if !st.isOwn(st.Board[from], seat) {
			continue
		}
		for to := 0; to < 64; to++ {
			if st.canReach(from, to, seat) {
				moves = append(moves, Move{From: SquareName(from), To: SquareName(to)})
			}
		}
	}
	return moves
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

// ParseSquare converts "a1".."h8" to 0..63.
func ParseSquare(name string) (int, bool) {
	if len(name) != 2 {
		return 0, false
	}
	file, rank := name[0]|0x20, name[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return 0, false
	}
	return int(rank-'1')*8 + int(file-'a'), true
}

// SquareName is the inverse of ParseSquare.
func SquareName(sq int) string {
	return string([]byte{byte('a' + sq%8), byte('1' + sq/8)})
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
