// Package crossword implements a mini crossword duel on word squares. Each
// move answers one open clue: a correct answer fills it and scores, a wrong
// one burns it and reveals the word.
package crossword

import (
	"fmt"
	"math/rand"
	"strings"

	"arcade/internal/game"
)

const Type game.Type = "crossword"

// puzzle is a word square: row i reads the same as column i.
type puzzle []string

var puzzles = []puzzle{
	{"bat", "are", "ten"},
	{"cat", "age", "ten"},
	{"sun", "use", "net"},
	{"card", "area", "rear", "dart"},
	{"ball", "area", "lead", "lady"},
}

var clues = map[string]string{
	"bat":  "Flying mammal, or a cricket tool",
	"are":  "Plural form of \"is\"",
	"ten":  "Number of fingers",
	"cat":  "Purring pet",
	"age":  "Years lived",
	"sun":  "Star at the centre of our system",
	"use":  "Put into service",
	"net":  "Goal mesh",
	"card": "Playing ___",
	"area": "Length times width",
	"rear": "Back end",
	"dart": "Pub game missile",
	"ball": "Round plaything",
	"lead": "Heavy metal, Pb",
	"lady": "Gentleman's counterpart",
}

// Clue is one across or down entry.
type Clue struct {
	Number    int       `json:"number"`
	Direction string    `json:"direction"` // "across" or "down"
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Text      string    `json:"text"`
	Answer    string    `json:"answer,omitempty"`
	SolvedBy  game.Seat `json:"solvedBy,omitempty"`
	Burned    bool      `json:"burned,omitempty"`
}

// Open reports whether the clue can still be answered.
func (c Clue) Open() bool { return c.SolvedBy == game.NoSeat && !c.Burned }

// State is the grid of revealed letters ("." hidden), the clues and scores.
type State struct {
	Size   int      `json:"size"`
	Grid   []string `json:"grid"`
	Clues  []Clue   `json:"clues"`
	Scores [2]int   `json:"scores"`
}

func (s *State) GameType() game.Type { return Type }

// Move answers clue index Clue.
type Move struct {
	Clue   int    `json:"clue"`
	Answer string `json:"answer"`
}

func (Move) GameType() game.Type { return Type }

// Rules implements game.Rules.
type Rules struct{}

func (Rules) Info() game.Info {
	return game.Info{Type: Type, Title: "Mini Crossword"}
}

func (Rules) NewState(rng *rand.Rand, _ game.Seat) game.State {
	p := puzzles[0]
	if rng != nil {
		p = puzzles[rng.Intn(len(puzzles))]
	}
	n := len(p)
	st := &State{Size: n, Grid: make([]string, n)}
	for i := range st.Grid {
		st.Grid[i] = strings.Repeat(".", n)
	}
	for i, word := range p {
		st.Clues = append(st.Clues, Clue{Number: i + 1, Direction: "across", Row: i, Text: clues[word], Answer: word})
	}
	for i := 0; i < n; i++ {
		var col strings.Builder
		for _, row := range p {
			col.WriteByte(row[i])
		}
		word := col.String()
		st.Clues = append(st.Clues, Clue{Number: i + 1, Direction: "down", Col: i, Text: clues[word], Answer: word})
	}
	return st
}

func (s *State) clone() *State {
	return &State{
		Size:   s.Size,
		Grid:   append([]string(nil), s.Grid...),
		Clues:  append([]Clue(nil), s.Clues...),
		Scores: s.Scores,
	}
}

// reveal writes a clue's answer into the grid.
func (s *State) reveal(c Clue) {
	for k := 0; k < len(c.Answer); k++ {
		r, col := c.Row, c.Col+k
		if c.Direction == "down" {
			r, col = c.Row+k, c.Col
		}
		row := []byte(s.Grid[r])
		row[col] = c.Answer[k]
		s.Grid[r] = string(row)
	}
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
	if mv.Clue < 0 || mv.Clue >= len(st.Clues) {
		return nil, fmt.Errorf("%w: no clue %d", game.ErrIllegalMove, mv.Clue)
	}
	c := st.Clues[mv.Clue]
	if !c.Open() {
		return nil, fmt.Errorf("%w: clue %d %s is already resolved", game.ErrIllegalMove, c.Number, c.Direction)
	}
	answer := strings.ToLower(strings.TrimSpace(mv.Answer))
	if len(answer) != len(c.Answer) {
		return nil, fmt.Errorf("%w: answer must have %d letters", game.ErrIllegalMove, len(c.Answer))
	}

	next := st.clone()
	if answer == c.Answer {
		next.Clues[mv.Clue].SolvedBy = seat
		next.Scores[seat.Index()]++
	} else {
		next.Clues[mv.Clue].Burned = true
	}
	next.reveal(c)
	return next, nil
}

func (Rules) Outcome(s game.State) game.Outcome {
	st, ok := s.(*State)
	if !ok {
		return game.Ongoing()
	}
	for _, c := range st.Clues {
		if c.Open() {
			return game.Ongoing()
		}
	}
	return game.ScoreOutcome(st.Scores[0], st.Scores[1])
}

// LegalMoves offers the answer and a same-length miss for every open clue.
func (Rules) LegalMoves(s game.State, _ game.Seat) []game.Move {
	st, ok := s.(*State)
	if !ok {
		return nil
	}
	var moves []game.Move
	for i, c := range st.Clues {
		if !c.Open() {
			continue
		}
		moves = append(moves,
			Move{Clue: i, Answer: c.Answer},
			Move{Clue: i, Answer: strings.Repeat("x", len(c.Answer))},
		)
	}
	return moves
}

// Redact hides the words of clues that are still open.
func (Rules) Redact(s game.State) game.State {
	st, ok := s.(*State)
	if !ok {
		return s
	}
	v := st.clone()
	for i := range v.Clues {
		if v.Clues[i].Open() {
			v.Clues[i].Answer = ""
		}
	}
	return v
}

func (Rules) DecodeState(data []byte) (game.State, error) {
	st, err := game.DecodeStateJSON[State](data)
	if err != nil {
		return nil, err
	}
	if len(st.Grid) != st.Size {
		return nil, fmt.Errorf("decode state: grid has %d rows, want %d", len(st.Grid), st.Size)
	}
	return st, nil
}

func (Rules) DecodeMove(data []byte) (game.Move, error) {
	return game.DecodeMoveJSON[Move](data)
}
