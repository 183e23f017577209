package storage

import (
	"fmt"
	"time"

	"arcade/internal/ai"
	"arcade/internal/game"
	"arcade/internal/match"
	"arcade/internal/matchmaking"
	"arcade/internal/progress"
)

// Row shapes shared by both stores. Times are unix nanoseconds so ordering
// and comparisons behave the same in SQLite and Postgres.

type matchRecord struct {
	ID           string `gorm:"primaryKey"`
	GameType     string `gorm:"not null"`
	Mode         string `gorm:"not null"`
	Player1ID    string `gorm:"not null;index"`
	Player1Guest bool
	Player1AI    bool `gorm:"column:player1_ai"`
	Player2ID    string `gorm:"not null;index"`
	Player2Guest bool
	Player2AI    bool `gorm:"column:player2_ai"`
	Difficulty   string
	StateJSON    string `gorm:"type:text;not null"`
	Turn         string
	Round        int
	RoundStarter string
	Player1Wins  int
	Player2Wins  int
	Status       string `gorm:"not null;index:idx_matches_status_deadline,priority:1"`
	Winner       string
	TurnDeadline int64 `gorm:"index:idx_matches_status_deadline,priority:2"`
	Version      int64
	CreatedAt    int64 `gorm:"autoCreateTime:false"`
	UpdatedAt    int64 `gorm:"autoUpdateTime:false"`
}

func (matchRecord) TableName() string { return "matches" }

type queueRecord struct {
	PlayerID   string `gorm:"primaryKey"`
	Rating     int    `gorm:"not null"`
	GameType   string
	Mode       string `gorm:"not null;index"`
	EnqueuedAt int64  `gorm:"not null;index"`
}

func (queueRecord) TableName() string { return "queue_entries" }

type statsRecord struct {
	PlayerID  string `gorm:"primaryKey"`
	GameType  string `gorm:"primaryKey"`
	Wins      int
	Losses    int
	UpdatedAt int64 `gorm:"autoUpdateTime:false"`
}

func (statsRecord) TableName() string { return "player_stats" }

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func encodeMatch(reg *game.Registry, m *match.Match) (matchRecord, error) {
	state, err := reg.EncodeState(m.State)
	if err != nil {
		return matchRecord{}, fmt.Errorf("encode state: %w", err)
	}
	return matchRecord{
		ID:           m.ID,
		GameType:     string(m.GameType),
		Mode:         string(m.Mode),
		Player1ID:    m.Players[0].ID,
		Player1Guest: m.Players[0].Guest,
		Player1AI:    m.Players[0].AI,
		Player2ID:    m.Players[1].ID,
		Player2Guest: m.Players[1].Guest,
		Player2AI:    m.Players[1].AI,
		Difficulty:   string(m.Difficulty),
		StateJSON:    string(state),
		Turn:         string(m.Turn),
		Round:        m.Round,
		RoundStarter: string(m.RoundStarter),
		Player1Wins:  m.Wins[0],
		Player2Wins:  m.Wins[1],
		Status:       string(m.Status),
		Winner:       string(m.Winner),
		TurnDeadline: unixNano(m.TurnDeadline),
		Version:      m.Version,
		CreatedAt:    unixNano(m.CreatedAt),
		UpdatedAt:    unixNano(m.UpdatedAt),
	}, nil
}

func decodeMatch(reg *game.Registry, r matchRecord) (*match.Match, error) {
	gt := game.Type(r.GameType)
	state, err := reg.DecodeState(gt, []byte(r.StateJSON))
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", r.ID, err)
	}
	return &match.Match{
		ID:       r.ID,
		GameType: gt,
		Mode:     match.Mode(r.Mode),
		Players: [2]match.Player{
			{ID: r.Player1ID, Guest: r.Player1Guest, AI: r.Player1AI},
			{ID: r.Player2ID, Guest: r.Player2Guest, AI: r.Player2AI},
		},
		Difficulty:   ai.Difficulty(r.Difficulty),
		State:        state,
		Turn:         game.Seat(r.Turn),
		Round:        r.Round,
		RoundStarter: game.Seat(r.RoundStarter),
		Wins:         [2]int{r.Player1Wins, r.Player2Wins},
		Status:       match.Status(r.Status),
		Winner:       game.Seat(r.Winner),
		TurnDeadline: fromUnixNano(r.TurnDeadline),
		Version:      r.Version,
		CreatedAt:    fromUnixNano(r.CreatedAt),
		UpdatedAt:    fromUnixNano(r.UpdatedAt),
	}, nil
}

func encodeEntry(e matchmaking.Entry) queueRecord {
	return queueRecord{
		PlayerID:   e.PlayerID,
		Rating:     e.Rating,
		GameType:   string(e.GameType),
		Mode:       string(e.Mode),
		EnqueuedAt: unixNano(e.EnqueuedAt),
	}
}

func decodeEntry(r queueRecord) matchmaking.Entry {
	return matchmaking.Entry{
		PlayerID:   r.PlayerID,
		Rating:     r.Rating,
		GameType:   game.Type(r.GameType),
		Mode:       match.Mode(r.Mode),
		EnqueuedAt: fromUnixNano(r.EnqueuedAt),
	}
}

func decodeStats(r statsRecord) progress.Stats {
	return progress.Stats{
		PlayerID:  r.PlayerID,
		GameType:  game.Type(r.GameType),
		Wins:      r.Wins,
		Losses:    r.Losses,
		UpdatedAt: fromUnixNano(r.UpdatedAt),
	}
}
