package server

import (
	"net/http"
	"testing"

	"arcade/internal/match"
)

func TestWSPushesMatchFound(t *testing.T) {
	env := setupTestEnv(t)
	aliceTok := env.token(t, "alice", 1000)
	alice := bearer(aliceTok)
	bob := bearer(env.token(t, "bob", 1000))

	conn := wsConnect(t, env.ts, "token="+aliceTok, nil)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	env.expect(t, http.StatusOK, "POST", "/api/matchmaking", `{"gameType":"tic-tac-toe"}`, alice, nil)
	var res findResult
	env.expect(t, http.StatusOK, "POST", "/api/matchmaking", "", bob, &res)

	ev := wsRead(ctx, t, conn)
	if ev.Type != match.EventMatchFound || ev.Match == nil || ev.Match.ID != res.Match.ID {
		t.Fatalf("expected match_found for %s, got %+v", res.Match.ID, ev)
	}

	env.expect(t, http.StatusOK, "POST", "/api/matches/"+res.Match.ID+"/moves", cell(4), bob, nil)
	ev = wsRead(ctx, t, conn)
	if ev.Type != match.EventMatchUpdated || ev.Match.Turn != "player2" {
		t.Fatalf("expected match_updated with alice to move, got %+v", ev)
	}
	if marks := ev.Match.marks(t); marks["player1"] != 1 {
		t.Fatalf("expected bob's mark in the pushed state, got %v", marks)
	}
}

func TestWSGuestByHeaderAndQuery(t *testing.T) {
	env := setupTestEnv(t)
	byHeader := wsConnect(t, env.ts, "", guest("g7"))
	byQuery := wsConnect(t, env.ts, "guest=g7", nil)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	var res findResult
	env.expect(t, http.StatusOK, "POST", "/api/matchmaking", `{"gameType":"ttt"}`, guest("g7"), &res)
	env.expect(t, http.StatusOK, "POST", "/api/matches/"+res.Match.ID+"/moves", cell(0), guest("g7"), nil)

	for i, ev := range []wsEvent{wsRead(ctx, t, byHeader), wsRead(ctx, t, byQuery)} {
		if ev.Type != match.EventMatchUpdated || ev.Match.ID != res.Match.ID {
			t.Fatalf("connection %d: unexpected event %+v", i, ev)
		}
	}
	if env.hub.Connected("guest-g7") != 2 {
		t.Fatalf("expected two live connections, got %d", env.hub.Connected("guest-g7"))
	}
}

func TestWSRejectsBadToken(t *testing.T) {
	env := setupTestEnv(t)
	resp, _ := env.do(t, "GET", "/api/ws?token=nope", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
