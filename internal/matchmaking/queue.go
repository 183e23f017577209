// Package matchmaking pairs waiting players into matches. Accounts wait in a
// rating-windowed FIFO queue; guests are paired with the AI immediately.
package matchmaking

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"arcade/internal/ai"
	"arcade/internal/game"
	"arcade/internal/identity"
	"arcade/internal/match"
)

// RatingWindow is the largest rating gap two queued players may have.
const RatingWindow = 100

// Result statuses.
const (
	StatusSearching = "searching"
	StatusFound     = "found"
)

// Entry is a waiting player. At most one exists per player.
type Entry struct {
	PlayerID   string     `json:"playerId"`
	Rating     int        `json:"rating"`
	GameType   game.Type  `json:"gameType,omitempty"`
	Mode       match.Mode `json:"mode"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
}

// Compatible reports whether other may be paired with e under a rating
// window.
func (e Entry) Compatible(other Entry, window int) bool {
	gap := e.Rating - other.Rating
	if gap < 0 {
		gap = -gap
	}
	return other.PlayerID != e.PlayerID && other.Mode == e.Mode && gap <= window
}

// BuildFunc turns a claimed opponent into the match to insert.
type BuildFunc func(opponent Entry) (*match.Match, error)

// Store persists queue entries. Pair must run as one transaction: upsert
// entry, then claim the oldest compatible waiting entry within window. If
// one is claimed it calls build, inserts the match and removes both entries,
// returning the match. Otherwise the upserted entry stays and Pair returns
// nil. A candidate already claimed by a concurrent Pair must be skipped.
type Store interface {
	Pair(ctx context.Context, entry Entry, window int, build BuildFunc) (*match.Match, error)
	DeleteEntry(ctx context.Context, playerID string) error
	GetEntry(ctx context.Context, playerID string) (*Entry, error)
}

// Request is one find-match call.
type Request struct {
	Caller     identity.Caller
	GameType   string
	Mode       string
	Difficulty string
}

// Result is what FindMatch returns to its caller.
type Result struct {
	Status string       `json:"status"`
	Match  *match.Match `json:"match,omitempty"`
}

// Queue implements find-match and cancel.
type Queue struct {
	store     Store
	engine    *match.Engine
	publisher match.Publisher
	types     []game.Type
	now       func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Options configures a Queue.
type Options struct {
	// RandomTypes is the list drawn from when no game type was requested.
	RandomTypes []game.Type
	Publisher   match.Publisher
	Rand        *rand.Rand
	Now         func() time.Time
}

func NewQueue(store Store, engine *match.Engine, opts Options) *Queue {
	q := &Queue{
		store:     store,
		engine:    engine,
		publisher: opts.Publisher,
		types:     opts.RandomTypes,
		now:       opts.Now,
		rng:       opts.Rand,
	}
	if q.now == nil {
		q.now = time.Now
	}
	if q.rng == nil {
		q.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if len(q.types) == 0 {
		for _, info := range engine.Registry().List() {
			q.types = append(q.types, info.Type)
		}
	}
	return q
}

func (q *Queue) randomType() game.Type {
	q.rngMu.Lock()
	defer q.rngMu.Unlock()
	return q.types[q.rng.Intn(len(q.types))]
}

// FindMatch either returns a freshly created match ("found") or leaves the
// caller queued ("searching"). It never waits for an opponent.
func (q *Queue) FindMatch(ctx context.Context, req Request) (Result, error) {
	mode, err := match.ParseMode(req.Mode)
	if err != nil {
		return Result{}, err
	}
	var hint game.Type
	if req.GameType != "" {
		if hint, err = q.engine.Registry().Lookup(req.GameType); err != nil {
			return Result{}, err
		}
	}
	if req.Caller.Guest {
		return q.againstAI(ctx, req, hint, mode)
	}

	rating := req.Caller.Rating
	if rating <= 0 {
		rating = identity.DefaultRating
	}
	entry := Entry{
		PlayerID:   req.Caller.ID,
		Rating:     rating,
		GameType:   hint,
		Mode:       mode,
		EnqueuedAt: q.now(),
	}
	m, err := q.store.Pair(ctx, entry, RatingWindow, func(opponent Entry) (*match.Match, error) {
		gameType := q.pickType(hint, opponent.GameType)
		caller := match.Player{ID: entry.PlayerID}
		return q.engine.Prepare(gameType, mode, caller, match.Player{ID: opponent.PlayerID}, "")
	})
	if err != nil {
		return Result{}, fmt.Errorf("pair: %w", err)
	}
	if m == nil {
		return Result{Status: StatusSearching}, nil
	}
	log.Printf("matchmaking: paired %s with %s in %s (%s)", m.Players[0].ID, m.Players[1].ID, m.ID, m.GameType)
	if q.publisher != nil {
		q.publisher.Publish(m.Players[1].ID, match.EventMatchFound, q.engine.View(m))
	}
	return Result{Status: StatusFound, Match: m}, nil
}

func (q *Queue) pickType(hint, opponentHint game.Type) game.Type {
	switch {
	case hint != "":
		return hint
	case opponentHint != "":
		return opponentHint
	}
	return q.randomType()
}

func (q *Queue) againstAI(ctx context.Context, req Request, hint game.Type, mode match.Mode) (Result, error) {
	difficulty, err := ai.ParseDifficulty(req.Difficulty)
	if err != nil {
		return Result{}, err
	}
	guest := match.Player{ID: req.Caller.ID, Guest: true}
	m, err := q.engine.Prepare(q.pickType(hint, ""), mode, guest, match.AIPlayer(), difficulty)
	if err != nil {
		return Result{}, err
	}
	if err := q.engine.Create(ctx, m); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusFound, Match: m}, nil
}

// CancelSearch removes the caller's entry. Cancelling without an entry is
// not an error.
func (q *Queue) CancelSearch(ctx context.Context, playerID string) error {
	return q.store.DeleteEntry(ctx, playerID)
}

// Entry returns the caller's waiting entry, or nil when not queued.
func (q *Queue) Entry(ctx context.Context, playerID string) (*Entry, error) {
	return q.store.GetEntry(ctx, playerID)
}
