package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"arcade/internal/game"
	"arcade/internal/match"
	"arcade/internal/matchmaking"
	"arcade/internal/progress"
)

// Postgres is the gorm-backed store used when DATABASE_URL is set. Queue
// candidates are claimed with FOR UPDATE SKIP LOCKED so concurrent pairings
// never pick the same waiter.
type Postgres struct {
	db  *gorm.DB
	reg *game.Registry
}

var (
	_ match.Store       = (*Postgres)(nil)
	_ matchmaking.Store = (*Postgres)(nil)
	_ progress.Store    = (*Postgres)(nil)
)

// NewPostgres connects to dsn and migrates the schema.
func NewPostgres(dsn string, reg *game.Registry) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresFromDB(db, reg)
}

// NewPostgresFromDB wraps an open gorm handle.
func NewPostgresFromDB(db *gorm.DB, reg *game.Registry) (*Postgres, error) {
	if err := db.AutoMigrate(&matchRecord{}, &queueRecord{}, &statsRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db, reg: reg}, nil
}

func (p *Postgres) CreateMatch(ctx context.Context, m *match.Match) error {
	r, err := encodeMatch(p.reg, m)
	if err != nil {
		return err
	}
	return p.db.WithContext(ctx).Create(&r).Error
}

func (p *Postgres) GetMatch(ctx context.Context, id string) (*match.Match, error) {
	var r matchRecord
	err := p.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, match.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeMatch(p.reg, r)
}

func (p *Postgres) UpdateMatch(ctx context.Context, m *match.Match) error {
	r, err := encodeMatch(p.reg, m)
	if err != nil {
		return err
	}
	res := p.db.WithContext(ctx).Model(&matchRecord{}).
		Where("id = ? AND version = ? AND status = ?", r.ID, r.Version, string(match.StatusPlaying)).
		Updates(map[string]interface{}{
			"state_json":    r.StateJSON,
			"turn":          r.Turn,
			"round":         r.Round,
			"round_starter": r.RoundStarter,
			"player1_wins":  r.Player1Wins,
			"player2_wins":  r.Player2Wins,
			"status":        r.Status,
			"winner":        r.Winner,
			"turn_deadline": r.TurnDeadline,
			"updated_at":    r.UpdatedAt,
			"version":       gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return match.ErrConflict
	}
	m.Version++
	return nil
}

func (p *Postgres) ExpiredMatches(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := p.db.WithContext(ctx).Model(&matchRecord{}).
		Where("status = ? AND turn_deadline <= ?", string(match.StatusPlaying), now.UnixNano()).
		Order("turn_deadline").
		Pluck("id", &ids).Error
	return ids, err
}

func (p *Postgres) FinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*match.Match, error) {
	var records []matchRecord
	err := p.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(match.StatusFinished), cutoff.UnixNano()).
		Order("updated_at").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]*match.Match, 0, len(records))
	for _, r := range records {
		m, err := decodeMatch(p.reg, r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (p *Postgres) DeleteMatch(ctx context.Context, id string) error {
	return p.db.WithContext(ctx).Where("id = ?", id).Delete(&matchRecord{}).Error
}

func (p *Postgres) Pair(ctx context.Context, entry matchmaking.Entry, window int, build matchmaking.BuildFunc) (*match.Match, error) {
	var paired *match.Match
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := encodeEntry(entry)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "game_type", "mode", "enqueued_at"}),
		}).Create(&q).Error; err != nil {
			return fmt.Errorf("upsert entry: %w", err)
		}

		var candidate queueRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("mode = ? AND player_id <> ? AND rating BETWEEN ? AND ?", q.Mode, q.PlayerID, q.Rating-window, q.Rating+window).
			Order("enqueued_at, player_id").
			Take(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select candidate: %w", err)
		}

		m, err := build(decodeEntry(candidate))
		if err != nil {
			return err
		}
		if err := tx.Where("player_id IN ?", []string{candidate.PlayerID, q.PlayerID}).Delete(&queueRecord{}).Error; err != nil {
			return fmt.Errorf("remove entries: %w", err)
		}
		r, err := encodeMatch(p.reg, m)
		if err != nil {
			return err
		}
		if err := tx.Create(&r).Error; err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
		paired = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paired, nil
}

func (p *Postgres) DeleteEntry(ctx context.Context, playerID string) error {
	return p.db.WithContext(ctx).Where("player_id = ?", playerID).Delete(&queueRecord{}).Error
}

func (p *Postgres) GetEntry(ctx context.Context, playerID string) (*matchmaking.Entry, error) {
	var r queueRecord
	err := p.db.WithContext(ctx).Where("player_id = ?", playerID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e := decodeEntry(r)
	return &e, nil
}

// QueueLength returns how many players are waiting.
func (p *Postgres) QueueLength(ctx context.Context) (int, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&queueRecord{}).Count(&n).Error
	return int(n), err
}

func (p *Postgres) AddResult(ctx context.Context, playerID string, gameType game.Type, won bool, at time.Time) error {
	r := statsRecord{PlayerID: playerID, GameType: string(gameType), UpdatedAt: at.UnixNano()}
	if won {
		r.Wins = 1
	} else {
		r.Losses = 1
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "game_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"wins":       gorm.Expr("player_stats.wins + EXCLUDED.wins"),
			"losses":     gorm.Expr("player_stats.losses + EXCLUDED.losses"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(&r).Error
}

func (p *Postgres) PlayerStats(ctx context.Context, playerID string) ([]progress.Stats, error) {
	var records []statsRecord
	if err := p.db.WithContext(ctx).Where("player_id = ?", playerID).Order("game_type").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]progress.Stats, 0, len(records))
	for _, r := range records {
		out = append(out, decodeStats(r))
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
