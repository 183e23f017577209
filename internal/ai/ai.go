// Package ai picks moves for the synthetic opponent seat. Grid-capture boards
// get a depth-limited minimax search with alpha-beta pruning; every other
// game plays a uniformly random legal move.
package ai

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"arcade/internal/game"
	"arcade/internal/game/tictactoe"
)

// Difficulty selects how hard the opponent plays.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

// ParseDifficulty maps a request value to a Difficulty. Empty means Normal.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case "":
		return Normal, nil
	case Easy, Normal, Hard:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}

// easyRandomShare is the fraction of easy turns played at random.
const easyRandomShare = 0.8

// depthCaps maps board size to the search depth for normal and hard.
var depthCaps = map[int][2]int{
	3: {6, 9},
	5: {4, 6},
	7: {3, 4},
}

// DepthCap returns the search depth used for a board of the given size.
func DepthCap(size int, d Difficulty) int {
	caps, ok := depthCaps[size]
	if !ok {
		caps = depthCaps[7]
	}
	if d == Hard {
		return caps[1]
	}
	return caps[0]
}

const (
	winScore   = 10000
	maxHeur    = 9000
	oneAway    = 1000
	twoAway    = 100
	centerMark = 30
)

// Opponent chooses moves. It is safe for concurrent use.
type Opponent struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an Opponent drawing randomness from rng.
func New(rng *rand.Rand) *Opponent {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Opponent{rng: rng}
}

func (o *Opponent) intn(n int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Intn(n)
}

func (o *Opponent) float() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Float64()
}

// Choose returns the move seat should play. ok is false when seat has no
// legal move.
func (o *Opponent) Choose(rules game.Rules, st game.State, seat game.Seat, d Difficulty) (game.Move, bool) {
	if board, isGrid := st.(*tictactoe.State); isGrid {
		idx := o.ChooseCell(board, seat, d)
		if idx < 0 {
			return nil, false
		}
		return tictactoe.Move{Type: board.Type, Index: idx}, true
	}
	moves := rules.LegalMoves(st, seat)
	if len(moves) == 0 {
		return nil, false
	}
	return moves[o.intn(len(moves))], true
}

// ChooseCell returns the board index to mark, or -1 when the board is full or
// already decided.
func (o *Opponent) ChooseCell(st *tictactoe.State, seat game.Seat, d Difficulty) int {
	var empty []int
	for i, v := range st.Board {
		if v == game.NoSeat {
			empty = append(empty, i)
		}
	}
	if len(empty) == 0 || tictactoe.Evaluate(st.Board, st.Size, st.WinLength).Terminal() {
		return -1
	}
	if d == Easy && o.float() < easyRandomShare {
		return empty[o.intn(len(empty))]
	}
	s := searcher{
		board: append([]game.Seat(nil), st.Board...),
		size:  st.Size,
		win:   st.WinLength,
		me:    seat,
		lines: tictactoe.Lines(st.Size, st.WinLength),
	}
	return s.best(DepthCap(st.Size, d))
}

type searcher struct {
	board []game.Seat
	size  int
	win   int
	me    game.Seat
	lines [][]int
}

func (s *searcher) best(maxDepth int) int {
	bestIdx, bestScore := -1, -winScore-1
	alpha, beta := -winScore-1, winScore+1
	for _, idx := range s.candidates() {
		s.board[idx] = s.me
		score := s.minimax(1, maxDepth, false, alpha, beta)
		s.board[idx] = game.NoSeat
		if score > bestScore {
			bestIdx, bestScore = idx, score
		}
		if score > alpha {
			alpha = score
		}
	}
	return bestIdx
}

func (s *searcher) minimax(depth, maxDepth int, maximizing bool, alpha, beta int) int {
	out := tictactoe.Evaluate(s.board, s.size, s.win)
	switch {
	case out.Kind == game.Won && out.Winner == s.me:
		return winScore - depth
	case out.Kind == game.Won:
		return -winScore + depth
	case out.Kind == game.Drawn:
		return 0
	}
	if depth >= maxDepth {
		return s.heuristic()
	}

	mover := s.me
	if !maximizing {
		mover = s.me.Other()
	}
	best := winScore + 1
	if maximizing {
		best = -winScore - 1
	}
	for _, idx := range s.candidates() {
		s.board[idx] = mover
		score := s.minimax(depth+1, maxDepth, !maximizing, alpha, beta)
		s.board[idx] = game.NoSeat
		if maximizing {
			best = max(best, score)
			alpha = max(alpha, score)
		} else {
			best = min(best, score)
			beta = min(beta, score)
		}
		if beta <= alpha {
			break
		}
	}
	return best
}

// candidates lists empty cells in index order. Past 3×3 only cells touching
// an existing mark are searched, or the centre on an empty board.
func (s *searcher) candidates() []int {
	var out []int
	if s.size <= 3 {
		for i, v := range s.board {
			if v == game.NoSeat {
				out = append(out, i)
			}
		}
		return out
	}
	marked := false
	for i, v := range s.board {
		if v != game.NoSeat {
			marked = true
			continue
		}
		if s.touchesMark(i) {
			out = append(out, i)
		}
	}
	if !marked {
		return []int{s.size * s.size / 2}
	}
	return out
}

func (s *searcher) touchesMark(i int) bool {
	r, c := i/s.size, i%s.size
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			nr, nc := r+dr, c+dc
			if (dr == 0 && dc == 0) || nr < 0 || nr >= s.size || nc < 0 || nc >= s.size {
				continue
			}
			if s.board[nr*s.size+nc] != game.NoSeat {
				return true
			}
		}
	}
	return false
}

// heuristic scores open lines for each side, weighting lines one mark from
// completion far above lines two away.
func (s *searcher) heuristic() int {
	score := 0
	for _, line := range s.lines {
		mine, theirs := 0, 0
		for _, idx := range line {
			switch s.board[idx] {
			case s.me:
				mine++
			case game.NoSeat:
			default:
				theirs++
			}
		}
		switch {
		case mine > 0 && theirs == 0:
			score += lineValue(s.win - mine)
		case theirs > 0 && mine == 0:
			score -= lineValue(s.win - theirs)
		}
	}
	if s.size%2 == 1 {
		switch s.board[s.size*s.size/2] {
		case s.me:
			score += centerMark
		case game.NoSeat:
		default:
			score -= centerMark
		}
	}
	return max(-maxHeur, min(maxHeur, score))
}

func lineValue(missing int) int {
	switch missing {
	case 1:
		return oneAway
	case 2:
		return twoAway
	}
	return 1
}
