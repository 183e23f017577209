package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"arcade/internal/ai"
	"arcade/internal/game"
)

// DefaultTurnTimeout is the budget for one turn.
const DefaultTurnTimeout = 60 * time.Second

// Push event names.
const (
	EventMatchFound   = "match_found"
	EventMatchUpdated = "match_updated"
)

// Store persists matches. UpdateMatch must only succeed when the stored
// version equals m.Version and the row is still playing; on success it
// increments m.Version. Otherwise it returns ErrConflict.
type Store interface {
	CreateMatch(ctx context.Context, m *Match) error
	GetMatch(ctx context.Context, id string) (*Match, error)
	UpdateMatch(ctx context.Context, m *Match) error
	ExpiredMatches(ctx context.Context, now time.Time) ([]string, error)
}

// Publisher pushes an event about a match to one player.
type Publisher interface {
	Publish(playerID, event string, m *Match)
}

// Recorder receives series results for authenticated players.
type Recorder interface {
	RecordResult(ctx context.Context, gameType game.Type, playerID string, won bool) error
}

// Options configures an Engine. Zero values get defaults.
type Options struct {
	TurnTimeout time.Duration
	Rand        *rand.Rand
	Now         func() time.Time
	Opponent    *ai.Opponent
	Publisher   Publisher
	Recorder    Recorder
}

// Engine applies moves and timeouts to stored matches. Each call is one
// read-modify-write guarded by the store's version check, so concurrent
// writers for the same match cannot both succeed.
type Engine struct {
	store       Store
	registry    *game.Registry
	opponent    *ai.Opponent
	publisher   Publisher
	recorder    Recorder
	turnTimeout time.Duration
	now         func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewEngine creates an engine over store.
func NewEngine(store Store, registry *game.Registry, opts Options) *Engine {
	e := &Engine{
		store:       store,
		registry:    registry,
		opponent:    opts.Opponent,
		publisher:   opts.Publisher,
		recorder:    opts.Recorder,
		turnTimeout: opts.TurnTimeout,
		now:         opts.Now,
		rng:         opts.Rand,
	}
	if e.turnTimeout <= 0 {
		e.turnTimeout = DefaultTurnTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.opponent == nil {
		e.opponent = ai.New(rand.New(rand.NewSource(e.int63())))
	}
	return e
}

func (e *Engine) int63() int64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Int63()
}

// roundRand gives each generated state its own source so state generation
// never holds the shared lock.
func (e *Engine) roundRand() *rand.Rand {
	return rand.New(rand.NewSource(e.int63()))
}

// Registry returns the rule registry the engine plays with.
func (e *Engine) Registry() *game.Registry { return e.registry }

// View is m as players may see it: a copy whose state has hidden answers
// stripped. The store always keeps the full state.
func (e *Engine) View(m *Match) *Match {
	if m == nil {
		return nil
	}
	v := *m
	v.State = e.registry.View(m.State)
	return &v
}

// Prepare builds a new playing match without persisting it. p1 holds the
// first turn of round one.
func (e *Engine) Prepare(gameType game.Type, mode Mode, p1, p2 Player, difficulty ai.Difficulty) (*Match, error) {
	rules, ok := e.registry.Get(gameType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownGame, gameType)
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	now := e.now()
	m := &Match{
		ID:           uuid.NewString(),
		GameType:     gameType,
		Mode:         mode,
		Players:      [2]Player{p1, p2},
		State:        rules.NewState(e.roundRand(), game.Player1),
		Turn:         game.Player1,
		Round:        1,
		RoundStarter: game.Player1,
		Status:       StatusPlaying,
		TurnDeadline: now.Add(e.turnTimeout),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if m.AISeat() != game.NoSeat {
		if difficulty == "" {
			difficulty = ai.Normal
		}
		m.Difficulty = difficulty
	}
	return m, nil
}

// Create lets the AI move if it holds the opening turn, then persists a
// prepared match.
func (e *Engine) Create(ctx context.Context, m *Match) error {
	if rules, ok := e.registry.Get(m.GameType); ok {
		e.playAI(m, rules)
	}
	if err := e.store.CreateMatch(ctx, m); err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

// Get loads a match.
func (e *Engine) Get(ctx context.Context, id string) (*Match, error) {
	return e.store.GetMatch(ctx, id)
}

// MakeMove decodes a move payload for the match's game and plays it for
// playerID.
func (e *Engine) MakeMove(ctx context.Context, id, playerID string, payload json.RawMessage) (*Match, error) {
	m, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	mv, err := e.registry.DecodeMove(m.GameType, payload)
	if err != nil {
		return nil, err
	}
	return e.play(ctx, m, playerID, mv)
}

// Play applies an already decoded move for playerID.
func (e *Engine) Play(ctx context.Context, id, playerID string, mv game.Move) (*Match, error) {
	m, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.play(ctx, m, playerID, mv)
}

func (e *Engine) load(ctx context.Context, id string) (*Match, error) {
	m, err := e.store.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Playing() {
		return nil, ErrFinished
	}
	return m, nil
}

func (e *Engine) play(ctx context.Context, m *Match, playerID string, mv game.Move) (*Match, error) {
	seat := m.SeatOf(playerID)
	if seat == game.NoSeat {
		return nil, ErrNotSeated
	}
	if seat != m.Turn {
		return nil, ErrWrongTurn
	}
	rules, err := e.rules(m)
	if err != nil {
		return nil, err
	}
	next, err := rules.ApplyMove(m.State, mv, seat)
	if err != nil {
		return nil, err
	}
	e.advance(m, rules, next)
	e.playAI(m, rules)
	if err := e.commit(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ResolveTimeout forfeits the current round for the seat holding the turn
// once its deadline has passed.
func (e *Engine) ResolveTimeout(ctx context.Context, id string) (*Match, error) {
	m, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.now().Before(m.TurnDeadline) {
		return nil, ErrTurnNotExpired
	}
	rules, err := e.rules(m)
	if err != nil {
		return nil, err
	}
	log.Printf("match %s: %s timed out in round %d", m.ID, m.Turn, m.Round)
	e.endRound(m, rules, game.Win(m.Turn.Other()))
	e.playAI(m, rules)
	if err := e.commit(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SweepExpired resolves every playing match whose turn deadline has passed
// and returns how many were resolved.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	ids, err := e.store.ExpiredMatches(ctx, e.now())
	if err != nil {
		return 0, fmt.Errorf("list expired matches: %w", err)
	}
	resolved := 0
	for _, id := range ids {
		_, err := e.ResolveTimeout(ctx, id)
		switch {
		case err == nil:
			resolved++
		case errors.Is(err, ErrWrongTurn), errors.Is(err, ErrFinished), errors.Is(err, ErrTurnNotExpired):
			// a move or another sweep got there first
		default:
			log.Printf("sweep: resolve match %s: %v", id, err)
		}
	}
	return resolved, nil
}

func (e *Engine) rules(m *Match) (game.Rules, error) {
	rules, ok := e.registry.Get(m.GameType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownGame, m.GameType)
	}
	return rules, nil
}

// advance stores the new state and either hands the turn over or closes the
// round.
func (e *Engine) advance(m *Match, rules game.Rules, next game.State) {
	m.State = next
	out := rules.Outcome(next)
	if !out.Terminal() {
		m.Turn = m.Turn.Other()
		m.TurnDeadline = e.now().Add(e.turnTimeout)
		return
	}
	e.endRound(m, rules, out)
}

// endRound books a terminal outcome and either finishes the series or opens
// the next round with the other seat starting.
func (e *Engine) endRound(m *Match, rules game.Rules, out game.Outcome) {
	required := m.Mode.RequiredWins()
	if out.Kind == game.Won {
		i := out.Winner.Index()
		m.Wins[i]++
		if m.Wins[i] >= required {
			e.finish(m, out.Winner)
			return
		}
	}
	if m.Round >= m.Mode.Rounds() {
		e.finish(m, game.ScoreOutcome(m.Wins[0], m.Wins[1]).Winner)
		return
	}
	m.Round++
	m.RoundStarter = m.RoundStarter.Other()
	m.State = rules.NewState(e.roundRand(), m.RoundStarter)
	m.Turn = m.RoundStarter
	m.TurnDeadline = e.now().Add(e.turnTimeout)
}

func (e *Engine) finish(m *Match, winner game.Seat) {
	m.Status = StatusFinished
	m.Winner = winner
	m.Turn = game.NoSeat
}

// playAI moves for the AI seat until a human holds the turn or the series
// ends. An AI with no legal move draws the round.
func (e *Engine) playAI(m *Match, rules game.Rules) {
	seat := m.AISeat()
	if seat == game.NoSeat {
		return
	}
	for m.Playing() && m.Turn == seat {
		mv, ok := e.opponent.Choose(rules, m.State, seat, m.Difficulty)
		if !ok {
			e.endRound(m, rules, game.Draw())
			continue
		}
		next, err := rules.ApplyMove(m.State, mv, seat)
		if err != nil {
			log.Printf("match %s: ai move rejected: %v", m.ID, err)
			e.endRound(m, rules, game.Draw())
			continue
		}
		e.advance(m, rules, next)
	}
}

// commit writes the match back and fans the result out.
func (e *Engine) commit(ctx context.Context, m *Match) error {
	m.UpdatedAt = e.now()
	if err := e.store.UpdateMatch(ctx, m); err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrWrongTurn
		}
		return fmt.Errorf("update match: %w", err)
	}
	e.notify(m, EventMatchUpdated)
	if !m.Playing() {
		e.record(ctx, m)
	}
	return nil
}

func (e *Engine) notify(m *Match, event string) {
	if e.publisher == nil {
		return
	}
	view := e.View(m)
	for _, p := range m.Players {
		if !p.IsAI() {
			e.publisher.Publish(p.ID, event, view)
		}
	}
}

func (e *Engine) record(ctx context.Context, m *Match) {
	if e.recorder == nil || m.Winner == game.NoSeat {
		return
	}
	for i, p := range m.Players {
		if !p.Human() {
			continue
		}
		won := game.SeatAt(i) == m.Winner
		if err := e.recorder.RecordResult(ctx, m.GameType, p.ID, won); err != nil {
			log.Printf("match %s: record result for %s: %v", m.ID, p.ID, err)
		}
	}
}
