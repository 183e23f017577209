package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"arcade/internal/ai"
	"arcade/internal/game/catalog"
	"arcade/internal/identity"
	"arcade/internal/match"
	"arcade/internal/matchmaking"
	"arcade/internal/notify"
	"arcade/internal/progress"
	"arcade/internal/storage"
)

const testSecret = "test-secret"

// --- Test environment ---

type testEnv struct {
	ts       *httptest.Server
	engine   *match.Engine
	hub      *notify.Hub
	verifier *identity.Verifier
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg := catalog.NewRegistry()
	store, err := storage.NewSQLite(":memory:", reg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := notify.NewHub()
	tracker := progress.NewTracker(store)
	engine := match.NewEngine(store, reg, match.Options{
		Rand:      rand.New(rand.NewSource(3)),
		Opponent:  ai.New(rand.New(rand.NewSource(3))),
		Publisher: hub,
		Recorder:  tracker,
	})
	queue := matchmaking.NewQueue(store, engine, matchmaking.Options{
		RandomTypes: catalog.BaseTypes,
		Publisher:   hub,
		Rand:        rand.New(rand.NewSource(3)),
	})
	verifier := identity.NewVerifier(testSecret)
	srv := New(Deps{Engine: engine, Queue: queue, Tracker: tracker, Hub: hub, Verifier: verifier})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, engine: engine, hub: hub, verifier: verifier}
}

func timeoutCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// --- REST API helpers ---

func (e *testEnv) token(t *testing.T, playerID string, rating int) string {
	t.Helper()
	tok, err := e.verifier.Issue(playerID, rating, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func bearer(tok string) http.Header {
	return http.Header{"Authorization": {"Bearer " + tok}}
}

func guest(id string) http.Header {
	return http.Header{identity.GuestHeader: {id}}
}

// do sends a request and returns the response with its body read.
func (e *testEnv) do(t *testing.T, method, path, body string, h http.Header) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range h {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

// expect asserts the status code and decodes the body into v when non-nil.
func (e *testEnv) expect(t *testing.T, want int, method, path, body string, h http.Header, v any) {
	t.Helper()
	resp, data := e.do(t, method, path, body, h)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, want, resp.StatusCode, data)
	}
	if v != nil {
		if err := json.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
	}
}

// matchView mirrors the match JSON with the state left raw.
type matchView struct {
	ID       string `json:"id"`
	GameType string `json:"gameType"`
	Mode     string `json:"mode"`
	Players  []struct {
		ID    string `json:"id"`
		Guest bool   `json:"guest"`
	} `json:"players"`
	Difficulty string          `json:"difficulty"`
	State      json.RawMessage `json:"state"`
	Turn       string          `json:"turn"`
	Round      int             `json:"round"`
	Wins       [2]int          `json:"wins"`
	Status     string          `json:"status"`
	Winner     string          `json:"winner"`
	Version    int64           `json:"version"`
}

type findResult struct {
	Status string     `json:"status"`
	Match  *matchView `json:"match"`
}

func (v matchView) marks(t *testing.T) map[string]int {
	t.Helper()
	var st struct {
		Board []string `json:"board"`
	}
	if err := json.Unmarshal(v.State, &st); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	out := map[string]int{}
	for _, c := range st.Board {
		if c != "" {
			out[c]++
		}
	}
	return out
}

func cell(i int) string {
	b, _ := json.Marshal(map[string]int{"index": i})
	return string(b)
}

// --- WebSocket helpers ---

type wsEvent struct {
	Type     string     `json:"type"`
	PlayerID string     `json:"playerId"`
	Match    *matchView `json:"match"`
}

func wsURL(ts *httptest.Server, query string) string {
	u := strings.Replace(ts.URL, "http://", "ws://", 1) + "/api/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

// wsConnect dials the push endpoint and consumes the connected frame, so the
// subscription is live once it returns.
func wsConnect(t *testing.T, ts *httptest.Server, query string, h http.Header) *websocket.Conn {
	t.Helper()
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(ts, query), &websocket.DialOptions{HTTPHeader: h})
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	if ev := wsRead(ctx, t, conn); ev.Type != EventConnected {
		t.Fatalf("expected connected frame, got %+v", ev)
	}
	return conn
}

func wsRead(ctx context.Context, t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("ws read: %v", err)
	}
	var ev wsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal ws event: %v", err)
	}
	return ev
}
