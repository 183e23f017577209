package matchmaking_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"arcade/internal/ai"
	"arcade/internal/game"
	"arcade/internal/game/catalog"
	"arcade/internal/game/chess"
	"arcade/internal/game/tictactoe"
	"arcade/internal/identity"
	"arcade/internal/match"
	"arcade/internal/matchmaking"
	"arcade/internal/storage"
)

type sent struct {
	playerID, event, matchID string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sent
}

func (p *recordingPublisher) Publish(playerID, event string, m *match.Match) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sent{playerID, event, m.ID})
}

type fixture struct {
	queue  *matchmaking.Queue
	engine *match.Engine
	store  *storage.SQLite
	pub    *recordingPublisher
	now    time.Time
}

func newFixture(t *testing.T, types ...game.Type) *fixture {
	t.Helper()
	reg := catalog.NewRegistry()
	store, err := storage.NewSQLite(":memory:", reg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	f := &fixture{store: store, pub: &recordingPublisher{}, now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time {
		f.now = f.now.Add(time.Second)
		return f.now
	}
	f.engine = match.NewEngine(store, reg, match.Options{
		Rand:      rand.New(rand.NewSource(1)),
		Now:       clock,
		Publisher: f.pub,
	})
	f.queue = matchmaking.NewQueue(store, f.engine, matchmaking.Options{
		RandomTypes: types,
		Publisher:   f.pub,
		Rand:        rand.New(rand.NewSource(1)),
		Now:         clock,
	})
	return f
}

func account(id string, rating int) identity.Caller {
	return identity.Caller{ID: id, Rating: rating}
}

func TestPairsWithinWindow(t *testing.T) {
	f := newFixture(t, tictactoe.Classic)
	ctx := context.Background()

	res, err := f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("A", 1000)})
	if err != nil || res.Status != matchmaking.StatusSearching || res.Match != nil {
		t.Fatalf("expected A to wait, got %+v, %v", res, err)
	}
	if e, _ := f.queue.Entry(ctx, "A"); e == nil || e.Rating != 1000 || e.Mode != match.ModeNormal {
		t.Fatalf("expected A queued, got %+v", e)
	}

	res, err = f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("B", 1050)})
	if err != nil || res.Status != matchmaking.StatusFound {
		t.Fatalf("expected B to be paired, got %+v, %v", res, err)
	}
	m := res.Match
	if m.Players[0].ID != "B" || m.Players[1].ID != "A" || m.Turn != game.Player1 {
		t.Fatalf("unexpected seating %+v turn %s", m.Players, m.Turn)
	}
	if m.GameType != tictactoe.Classic || !m.Playing() {
		t.Fatalf("unexpected match %s/%s", m.GameType, m.Status)
	}
	for _, id := range []string{"A", "B"} {
		if e, _ := f.queue.Entry(ctx, id); e != nil {
			t.Fatalf("%s should have left the queue", id)
		}
	}
	stored, err := f.engine.Get(ctx, m.ID)
	if err != nil || stored.Players != m.Players {
		t.Fatalf("match not persisted: %v", err)
	}
	if len(f.pub.events) != 1 || f.pub.events[0] != (sent{"A", match.EventMatchFound, m.ID}) {
		t.Fatalf("expected match_found for A, got %+v", f.pub.events)
	}
}

func TestOutsideWindowKeepsSearching(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("A", 1000)})

	res, err := f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("C", 1200)})
	if err != nil || res.Status != matchmaking.StatusSearching {
		t.Fatalf("expected C to wait, got %+v, %v", res, err)
	}
	n, err := f.store.QueueLength(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected both queued, got %d, %v", n, err)
	}
}

func TestModesDoNotMix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("A", 1000), Mode: "five"})
	res, _ := f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("B", 1000), Mode: "triple"})
	if res.Status != matchmaking.StatusSearching {
		t.Fatalf("different modes must not pair, got %+v", res)
	}
	res, _ = f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("C", 1000), Mode: "five"})
	if res.Status != matchmaking.StatusFound || res.Match.Mode != match.ModeFive || res.Match.Players[1].ID != "A" {
		t.Fatalf("expected C to pair with A in five, got %+v", res)
	}
}

func TestRepeatedSearchKeepsOneEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("A", 1000)})
		if err != nil || res.Status != matchmaking.StatusSearching {
			t.Fatalf("search %d: %+v, %v", i, res, err)
		}
	}
	if n, _ := f.store.QueueLength(ctx); n != 1 {
		t.Fatalf("expected a single entry, got %d", n)
	}
}

func TestGameTypeChoice(t *testing.T) {
	f := newFixture(t, tictactoe.Classic)
	ctx := context.Background()

	f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("A", 1000), GameType: "chess"})
	res, err := f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("B", 1000)})
	if err != nil || res.Match == nil || res.Match.GameType != chess.Type {
		t.Fatalf("expected the waiting player's hint, got %+v, %v", res, err)
	}

	f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("C", 1000), GameType: "chess"})
	res, err = f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("D", 1000), GameType: "ttt"})
	if err != nil || res.Match == nil || res.Match.GameType != tictactoe.Classic {
		t.Fatalf("expected the caller's hint to win, got %+v, %v", res, err)
	}

	f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("E", 1000)})
	res, err = f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("F", 1000)})
	if err != nil || res.Match == nil || res.Match.GameType != tictactoe.Classic {
		t.Fatalf("expected a random pick from the configured list, got %+v, %v", res, err)
	}
}

func TestGuestPlaysAI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := identity.Guest("")

	res, err := f.queue.FindMatch(ctx, matchmaking.Request{Caller: guest, GameType: "tic-tac-toe", Difficulty: "hard"})
	if err != nil || res.Status != matchmaking.StatusFound {
		t.Fatalf("expected an immediate ai match, got %+v, %v", res, err)
	}
	m := res.Match
	if !m.Players[0].Guest || m.Players[0].ID != guest.ID || !m.Players[1].IsAI() {
		t.Fatalf("unexpected seating %+v", m.Players)
	}
	if m.Difficulty != ai.Hard || m.Turn != game.Player1 {
		t.Fatalf("expected hard ai with the guest to move, got %q/%s", m.Difficulty, m.Turn)
	}
	if e, _ := f.queue.Entry(ctx, guest.ID); e != nil {
		t.Fatal("guests never enter the queue")
	}
	if _, err := f.engine.Get(ctx, m.ID); err != nil {
		t.Fatalf("ai match not persisted: %v", err)
	}
}

func TestGuestDefaultsToNormal(t *testing.T) {
	f := newFixture(t, tictactoe.Classic)
	res, err := f.queue.FindMatch(context.Background(), matchmaking.Request{Caller: identity.Caller{ID: "guest-x", Guest: true}})
	if err != nil || res.Match.Difficulty != ai.Normal || res.Match.GameType != tictactoe.Classic {
		t.Fatalf("unexpected ai match %+v, %v", res.Match, err)
	}
}

func TestFindMatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("A", 1000), GameType: "pinball"}); !errors.Is(err, game.ErrUnknownGame) {
		t.Fatalf("expected ErrUnknownGame, got %v", err)
	}
	if _, err := f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("A", 1000), Mode: "seven"}); !errors.Is(err, match.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
	guest := identity.Caller{ID: "guest-y", Guest: true}
	if _, err := f.queue.FindMatch(ctx, matchmaking.Request{Caller: guest, Difficulty: "brutal"}); !errors.Is(err, ai.ErrUnknownDifficulty) {
		t.Fatalf("expected ErrUnknownDifficulty, got %v", err)
	}
	if n, _ := f.store.QueueLength(ctx); n != 0 {
		t.Fatalf("rejected requests must not queue, got %d", n)
	}
}

func TestCancelSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("A", 1000)})
	for i := 0; i < 2; i++ {
		if err := f.queue.CancelSearch(ctx, "A"); err != nil {
			t.Fatalf("cancel %d: %v", i, err)
		}
	}
	if e, _ := f.queue.Entry(ctx, "A"); e != nil {
		t.Fatal("entry should be gone")
	}
	res, _ := f.queue.FindMatch(ctx, matchmaking.Request{Caller: account("B", 1000)})
	if res.Status != matchmaking.StatusSearching {
		t.Fatal("a cancelled player must not be paired")
	}
}

func TestCompatible(t *testing.T) {
	a := matchmaking.Entry{PlayerID: "a", Rating: 1000, Mode: match.ModeNormal}
	cases := []struct {
		other matchmaking.Entry
		want  bool
	}{
		{matchmaking.Entry{PlayerID: "b", Rating: 1100, Mode: match.ModeNormal}, true},
		{matchmaking.Entry{PlayerID: "b", Rating: 899, Mode: match.ModeNormal}, false},
		{matchmaking.Entry{PlayerID: "b", Rating: 1000, Mode: match.ModeFive}, false},
		{matchmaking.Entry{PlayerID: "a", Rating: 1000, Mode: match.ModeNormal}, false},
	}
	for i, c := range cases {
		if got := a.Compatible(c.other, matchmaking.RatingWindow); got != c.want {
			t.Fatalf("case %d: got %v want %v", i, got, c.want)
		}
	}
}
