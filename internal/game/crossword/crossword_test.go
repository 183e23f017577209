package crossword

import (
	"errors"
	"math/rand"
	"testing"

	"arcade/internal/game"
)

func TestPuzzlesAreWordSquares(t *testing.T) {
	for _, p := range puzzles {
		for i := range p {
			if len(p[i]) != len(p) {
				t.Fatalf("%v: row %d has wrong length", p, i)
			}
			for j := range p {
				if p[i][j] != p[j][i] {
					t.Fatalf("%v: row %d and column %d differ", p, i, j)
				}
			}
			if clues[p[i]] == "" {
				t.Fatalf("missing clue for %q", p[i])
			}
		}
	}
}

func TestSolveAndBurn(t *testing.T) {
	r := Rules{}
	st := r.NewState(nil, game.Player1).(*State) // bat/are/ten
	if len(st.Clues) != 6 {
		t.Fatalf("expected 6 clues, got %d", len(st.Clues))
	}

	next, err := r.ApplyMove(st, Move{Clue: 0, Answer: "BAT"}, game.Player1)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	ns := next.(*State)
	if ns.Scores[0] != 1 || ns.Clues[0].SolvedBy != game.Player1 {
		t.Fatalf("expected player1 to solve 1 across, got %+v", ns.Clues[0])
	}
	if ns.Grid[0] != "bat" {
		t.Fatalf("expected first row revealed, got %q", ns.Grid[0])
	}

	next, err = r.ApplyMove(next, Move{Clue: 4, Answer: "axe"}, game.Player2)
	if err != nil {
		t.Fatalf("wrong answer is still a legal move: %v", err)
	}
	ns = next.(*State)
	if !ns.Clues[4].Burned || ns.Scores[1] != 0 {
		t.Fatalf("expected 2 down burned without score, got %+v", ns.Clues[4])
	}
	if ns.Grid[1] != ".r." || ns.Grid[2] != ".e." {
		t.Fatalf("expected 2 down revealed, got %v", ns.Grid)
	}
	if st.Grid[0] != "..." {
		t.Fatal("input state was mutated")
	}
}

func TestRejectsMalformedAnswers(t *testing.T) {
	r := Rules{}
	st := r.NewState(nil, game.Player1)
	next, _ := r.ApplyMove(st, Move{Clue: 0, Answer: "bat"}, game.Player1)
	cases := []Move{
		{Clue: 0, Answer: "bat"},  // already solved
		{Clue: 1, Answer: "area"}, // wrong length
		{Clue: 9, Answer: "ten"},  // no such clue
	}
	for _, mv := range cases {
		if _, err := r.ApplyMove(next, mv, game.Player2); !errors.Is(err, game.ErrIllegalMove) {
			t.Fatalf("%+v: expected ErrIllegalMove, got %v", mv, err)
		}
	}
}

func TestCompletes(t *testing.T) {
	r := Rules{}
	var st game.State = r.NewState(rand.New(rand.NewSource(3)), game.Player1)
	seat := game.Player1
	for r.Outcome(st).Kind == game.InProgress {
		moves := r.LegalMoves(st, seat)
		if len(moves) == 0 {
			t.Fatal("no legal moves while in progress")
		}
		next, err := r.ApplyMove(st, moves[0], seat)
		if err != nil {
			t.Fatalf("legal move rejected: %v", err)
		}
		st = next
		seat = seat.Other()
	}
	ns := st.(*State)
	if ns.Scores[0]+ns.Scores[1] != len(ns.Clues) {
		t.Fatalf("expected every clue solved by the first legal move, got %v", ns.Scores)
	}
}

func TestRedactHidesOpenClues(t *testing.T) {
	r := Rules{}
	st := r.NewState(nil, game.Player1).(*State)
	next, err := r.ApplyMove(st, Move{Clue: 0, Answer: "bat"}, game.Player1)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	full := next.(*State)
	view := r.Redact(full).(*State)
	if view.Clues[0].Answer != "bat" {
		t.Fatalf("solved clue should stay visible, got %q", view.Clues[0].Answer)
	}
	for i := 1; i < len(view.Clues); i++ {
		if view.Clues[i].Answer != "" {
			t.Fatalf("open clue %d leaked %q", i, view.Clues[i].Answer)
		}
		if full.Clues[i].Answer == "" {
			t.Fatalf("stored clue %d lost its answer", i)
		}
	}
}
