package chess

import (
	"errors"
	"strings"
	"testing"

	"arcade/internal/game"
)

func apply(t *testing.T, st game.State, seat game.Seat, from, to string) game.State {
	t.Helper()
	next, err := Rules{}.ApplyMove(st, Move{From: from, To: to}, seat)
	if err != nil {
		t.Fatalf("%s %s-%s: %v", seat, from, to, err)
	}
	return next
}

// emptyBoard returns a board with only the pieces given as square:piece pairs.
func emptyBoard(pieces map[string]byte) *State {
	b := []byte(strings.Repeat(".", 64))
	for sq, p := range pieces {
		idx, _ := ParseSquare(sq)
		b[idx] = p
	}
	return &State{Board: string(b), White: game.Player1}
}

func TestOpeningMoves(t *testing.T) {
	st := Rules{}.NewState(nil, game.Player1)
	moves := Rules{}.LegalMoves(st, game.Player1)
	// 16 pawn moves + 4 knight moves
	if len(moves) != 20 {
		t.Fatalf("expected 20 opening moves, got %d", len(moves))
	}
	st = apply(t, st, game.Player1, "e2", "e4")
	st = apply(t, st, game.Player2, "e7", "e5")
	st = apply(t, st, game.Player1, "g1", "f3")
	if got := st.(*State).Plies; got != 3 {
		t.Fatalf("expected 3 plies, got %d", got)
	}
	if got := st.(*State).ToMove(); got != game.Player2 {
		t.Fatalf("expected black to move, got %s", got)
	}
}

func TestSecondSeatCanPlayWhite(t *testing.T) {
	st := Rules{}.NewState(nil, game.Player2)
	if _, err := (Rules{}).ApplyMove(st, Move{From: "e2", To: "e4"}, game.Player1); !errors.Is(err, game.ErrIllegalMove) {
		t.Fatalf("player1 is black here, expected ErrIllegalMove, got %v", err)
	}
	apply(t, st, game.Player2, "e2", "e4")
}

func TestIllegalMoves(t *testing.T) {
	st := Rules{}.NewState(nil, game.Player1)
	cases := []Move{
		{From: "e2", To: "e5"}, // pawn too far
		{From: "f1", To: "c4"}, // bishop blocked
		{From: "e7", To: "e5"}, // opponent's piece
		{From: "a1", To: "a2"}, // own piece on target
		{From: "z9", To: "a3"}, // bad square
		{From: "e3", To: "e4"}, // empty square
		{From: "e2", To: "d3"}, // pawn diagonal without capture
	}
	for _, mv := range cases {
		if _, err := (Rules{}).ApplyMove(st, mv, game.Player1); !errors.Is(err, game.ErrIllegalMove) {
			t.Fatalf("%s-%s: expected ErrIllegalMove, got %v", mv.From, mv.To, err)
		}
	}
}

func TestKingCaptureWins(t *testing.T) {
	st := emptyBoard(map[string]byte{"e1": 'K', "e8": 'k', "a8": 'R'})
	if out := (Rules{}).Outcome(st); out.Kind != game.InProgress {
		t.Fatalf("expected in progress, got %+v", out)
	}
	next := apply(t, st, game.Player1, "a8", "e8")
	if out := (Rules{}).Outcome(next); out != game.Win(game.Player1) {
		t.Fatalf("expected Win(player1), got %+v", out)
	}
}

func TestBareKingsDraw(t *testing.T) {
	st := emptyBoard(map[string]byte{"e1": 'K', "e8": 'k'})
	if out := (Rules{}).Outcome(st); out != game.Draw() {
		t.Fatalf("expected draw, got %+v", out)
	}
}

func TestBoxedInSideDraws(t *testing.T) {
	r := Rules{}
	pieces := map[string]byte{"e1": 'k'}
	for i, p := range []byte("RBQKRBRR") {
		file := string(rune('a' + i))
		pieces[file+"8"] = p
		pieces[file+"7"] = 'P'
	}
	st := emptyBoard(pieces)
	st.Next = game.Player1
	if moves := r.LegalMoves(st, game.Player1); len(moves) != 0 {
		t.Fatalf("expected white to be boxed in, got %v", moves)
	}
	if out := r.Outcome(st); out != game.Draw() {
		t.Fatalf("expected draw when the side to move is stuck, got %+v", out)
	}
	st.Next = game.Player2
	if out := r.Outcome(st); out.Kind != game.InProgress {
		t.Fatalf("black can still move, expected in progress, got %+v", out)
	}
}

func TestSideToMoveFallsBackToParity(t *testing.T) {
	st, err := Rules{}.DecodeState([]byte(`{"board":"` + startRows + `","white":"player2","plies":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := st.(*State).ToMove(); got != game.Player1 {
		t.Fatalf("expected player1 (black) after one ply, got %s", got)
	}
}

func TestPromotion(t *testing.T) {
	st := emptyBoard(map[string]byte{"e1": 'K', "h8": 'k', "a7": 'P'})
	next := apply(t, st, game.Player1, "a7", "a8")
	sq, _ := ParseSquare("a8")
	if got := next.(*State).Board[sq]; got != 'Q' {
		t.Fatalf("expected promotion to Q, got %c", got)
	}
}

func TestPlyCapDraw(t *testing.T) {
	st := Rules{}.NewState(nil, game.Player1).(*State)
	st.Plies = MaxPlies
	if out := (Rules{}).Outcome(st); out != game.Draw() {
		t.Fatalf("expected draw at ply cap, got %+v", out)
	}
}

func TestSquareNames(t *testing.T) {
	for sq := 0; sq < 64; sq++ {
		back, ok := ParseSquare(SquareName(sq))
		if !ok || back != sq {
			t.Fatalf("square %d round-trips to %d", sq, back)
		}
	}
}
