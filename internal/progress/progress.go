// Package progress keeps per-game win/loss records for accounts.
package progress

import (
	"context"
	"time"

	"arcade/internal/game"
	"arcade/internal/identity"
	"arcade/internal/match"
)

// Stats is one player's record in one game.
type Stats struct {
	PlayerID  string    `json:"playerId"`
	GameType  game.Type `json:"gameType"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is a player's records across games.
type Summary struct {
	PlayerID string  `json:"playerId"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Games    []Stats `json:"games"`
}

// Store persists stats. AddResult must be an atomic increment.
type Store interface {
	AddResult(ctx context.Context, playerID string, gameType game.Type, won bool, at time.Time) error
	PlayerStats(ctx context.Context, playerID string) ([]Stats, error)
}

// Tracker implements match.Recorder on top of a Store.
type Tracker struct {
	store Store
	now   func() time.Time
}

var _ match.Recorder = (*Tracker)(nil)

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// RecordResult counts a series win or loss. Guests and the AI keep no
// server-side record.
func (t *Tracker) RecordResult(ctx context.Context, gameType game.Type, playerID string, won bool) error {
	if playerID == "" || playerID == match.AIPlayerID || identity.IsGuest(playerID) {
		return nil
	}
	return t.store.AddResult(ctx, playerID, gameType, won, t.now())
}

// Summary totals a player's records.
func (t *Tracker) Summary(ctx context.Context, playerID string) (Summary, error) {
	stats, err := t.store.PlayerStats(ctx, playerID)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{PlayerID: playerID, Games: stats}
	if s.Games == nil {
		s.Games = []Stats{}
	}
	for _, st := range stats {
		s.Wins += st.Wins
		s.Losses += st.Losses
	}
	return s, nil
}
