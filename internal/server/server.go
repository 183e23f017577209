package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"

	"arcade/internal/ai"
	"arcade/internal/game"
	"arcade/internal/identity"
	"arcade/internal/match"
	"arcade/internal/matchmaking"
	"arcade/internal/notify"
	"arcade/internal/progress"
)

// maxBody bounds request bodies; moves and queue requests are tiny.
const maxBody = 64 << 10

var errBadBody = errors.New("invalid request body")

// Deps are the services the HTTP layer fronts.
type Deps struct {
	Engine   *match.Engine
	Queue    *matchmaking.Queue
	Tracker  *progress.Tracker
	Hub      *notify.Hub
	Verifier *identity.Verifier
	// WebFS, when set, is served at /.
	WebFS fs.FS
}

// Server is the HTTP server.
type Server struct {
	mux *http.ServeMux
	Deps
}

// New creates a server with all routes.
func New(d Deps) *Server {
	s := &Server{mux: http.NewServeMux(), Deps: d}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("POST /api/matchmaking", s.handleFindMatch)
	s.mux.HandleFunc("DELETE /api/matchmaking", s.handleCancelSearch)
	s.mux.HandleFunc("GET /api/matches/{id}", s.handleGetMatch)
	s.mux.HandleFunc("POST /api/matches/{id}/moves", s.handleMove)
	s.mux.HandleFunc("POST /api/matches/{id}/timeout", s.handleTimeout)
	s.mux.HandleFunc("GET /api/players/{id}/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)

	if s.WebFS != nil {
		s.mux.Handle("/", http.FileServer(http.FS(s.WebFS)))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// caller resolves the identity of r and echoes guest ids back so clients
// can keep them.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (identity.Caller, bool) {
	c, err := s.Verifier.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return identity.Caller{}, false
	}
	if c.Guest {
		w.Header().Set(identity.GuestHeader, c.ID)
	}
	return c, true
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Registry().List())
}

type findMatchRequest struct {
	GameType   string `json:"gameType"`
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
}

func (s *Server) handleFindMatch(w http.ResponseWriter, r *http.Request) {
	c, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req findMatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.Queue.FindMatch(r.Context(), matchmaking.Request{
		Caller:     c,
		GameType:   req.GameType,
		Mode:       req.Mode,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	res.Match = s.Engine.View(res.Match)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCancelSearch(w http.ResponseWriter, r *http.Request) {
	c, ok := s.caller(w, r)
	if !ok {
		return
	}
	if err := s.Queue.CancelSearch(r.Context(), c.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	m, err := s.Engine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.View(m))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	c, ok := s.caller(w, r)
	if !ok {
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil || !json.Valid(payload) {
		writeError(w, errBadBody)
		return
	}
	m, err := s.Engine.MakeMove(r.Context(), r.PathValue("id"), c.ID, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.View(m))
}

func (s *Server) handleTimeout(w http.ResponseWriter, r *http.Request) {
	m, err := s.Engine.ResolveTimeout(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Engine.View(m))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Tracker.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// decodeBody reads an optional JSON object; an empty body leaves v zero.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errBadBody
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, match.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, match.ErrWrongTurn),
		errors.Is(err, match.ErrFinished),
		errors.Is(err, match.ErrTurnNotExpired):
		return http.StatusConflict
	case errors.Is(err, match.ErrNotSeated):
		return http.StatusForbidden
	case errors.Is(err, game.ErrIllegalMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrUnknownGame),
		errors.Is(err, match.ErrInvalidMode),
		errors.Is(err, ai.ErrUnknownDifficulty),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("server: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
