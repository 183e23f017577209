package ai

import (
	"errors"
	"math/rand"
	"testing"

	"arcade/internal/game"
	"arcade/internal/game/chess"
	"arcade/internal/game/tictactoe"
)

const (
	x = game.Player1
	o = game.Player2
)

func board3(cells ...game.Seat) *tictactoe.State {
	return &tictactoe.State{Type: tictactoe.Classic, Size: 3, WinLength: 3, Board: cells, First: x}
}

func TestHardBlocksOpenRow(t *testing.T) {
	st := board3(x, x, "", "", o, "", "", "", "")
	got := New(rand.New(rand.NewSource(1))).ChooseCell(st, o, Hard)
	if got != 2 {
		t.Fatalf("expected block at 2, got %d", got)
	}
}

func TestTakesImmediateWin(t *testing.T) {
	// O can win at 5 or block at 2; winning is scored higher.
	st := board3(x, x, "", o, o, "", x, "", "")
	for _, d := range []Difficulty{Normal, Hard} {
		if got := New(nil).ChooseCell(st, o, d); got != 5 {
			t.Fatalf("%s: expected win at 5, got %d", d, got)
		}
	}
}

func TestFullOrDecidedBoardHasNoMove(t *testing.T) {
	full := board3(x, o, x, x, o, o, o, x, x)
	if got := New(nil).ChooseCell(full, o, Hard); got != -1 {
		t.Fatalf("expected no move on a full board, got %d", got)
	}
	won := board3(x, x, x, o, o, "", "", "", "")
	if got := New(nil).ChooseCell(won, o, Hard); got != -1 {
		t.Fatalf("expected no move on a decided board, got %d", got)
	}
	if _, ok := New(nil).Choose(tictactoe.New(tictactoe.Variants[0]), full, o, Normal); ok {
		t.Fatal("Choose should report no move")
	}
}

func TestEveryVariantAndDifficultyPicksEmptyCell(t *testing.T) {
	opp := New(rand.New(rand.NewSource(3)))
	for _, cfg := range tictactoe.Variants {
		rules := tictactoe.New(cfg)
		for _, d := range []Difficulty{Easy, Normal, Hard} {
			st := rules.NewState(nil, x).(*tictactoe.State)
			center := cfg.Size * cfg.Size / 2
			st.Board[center] = x
			if cfg.Size > 3 {
				st.Board[center+1] = o
				st.Board[center-cfg.Size] = x
			}
			idx := opp.ChooseCell(st, o, d)
			if idx < 0 || idx >= len(st.Board) || st.Board[idx] != game.NoSeat {
				t.Fatalf("%s/%s: chose %d, not an empty cell", cfg.Type, d, idx)
			}
		}
	}
}

func TestEmptyLargeBoardOpensCentre(t *testing.T) {
	st := tictactoe.New(tictactoe.Variants[2]).NewState(nil, o).(*tictactoe.State)
	if got := New(nil).ChooseCell(st, o, Hard); got != 24 {
		t.Fatalf("expected centre 24, got %d", got)
	}
}

func TestBlocksOnFiveByFive(t *testing.T) {
	rules := tictactoe.New(tictactoe.Variants[1])
	st := rules.NewState(nil, x).(*tictactoe.State)
	// X holds 6, 7, 8 on row 1; 5 and 9 both complete four.
	st.Board[6], st.Board[7], st.Board[8] = x, x, x
	st.Board[5] = o
	st.Board[12] = o
	if got := New(nil).ChooseCell(st, o, Normal); got != 9 {
		t.Fatalf("expected block at 9, got %d", got)
	}
}

func TestDepthCaps(t *testing.T) {
	cases := []struct {
		size int
		d    Difficulty
		want int
	}{
		{3, Normal, 6}, {5, Normal, 4}, {7, Normal, 3},
		{3, Hard, 9}, {5, Hard, 6}, {7, Hard, 4},
		{3, Easy, 6},
	}
	for _, c := range cases {
		if got := DepthCap(c.size, c.d); got != c.want {
			t.Fatalf("DepthCap(%d, %s) = %d, want %d", c.size, c.d, got, c.want)
		}
	}
}

func TestRandomForOtherGames(t *testing.T) {
	rules := chess.Rules{}
	st := rules.NewState(nil, x)
	opp := New(rand.New(rand.NewSource(5)))
	for i := 0; i < 20; i++ {
		mv, ok := opp.Choose(rules, st, x, Hard)
		if !ok {
			t.Fatal("expected an opening move")
		}
		if _, err := rules.ApplyMove(st, mv, x); err != nil {
			t.Fatalf("random move rejected: %v", err)
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty(""); err != nil || d != Normal {
		t.Fatalf("empty: got %q, %v", d, err)
	}
	if d, err := ParseDifficulty("hard"); err != nil || d != Hard {
		t.Fatalf("hard: got %q, %v", d, err)
	}
	if _, err := ParseDifficulty("impossible"); !errors.Is(err, ErrUnknownDifficulty) {
		t.Fatalf("expected ErrUnknownDifficulty, got %v", err)
	}
}
