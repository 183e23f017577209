// Package storage persists matches, queue entries and player stats.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"arcade/internal/game"
	"arcade/internal/match"
	"arcade/internal/matchmaking"
	"arcade/internal/progress"
)

// SQLite is the default store. All access goes through one connection, so
// each transaction is serialized against every other statement.
type SQLite struct {
	db  *sql.DB
	reg *game.Registry
}

var (
	_ match.Store       = (*SQLite)(nil)
	_ matchmaking.Store = (*SQLite)(nil)
	_ progress.Store    = (*SQLite)(nil)
)

// NewSQLite opens (or creates) the database at path and runs migrations.
// ":memory:" gives a private in-memory database.
func NewSQLite(path string, reg *game.Registry) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &SQLite{db: db, reg: reg}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id            TEXT PRIMARY KEY,
			game_type     TEXT NOT NULL,
			mode          TEXT NOT NULL,
			player1_id    TEXT NOT NULL,
			player1_guest INTEGER NOT NULL DEFAULT 0,
			player1_ai    INTEGER NOT NULL DEFAULT 0,
			player2_id    TEXT NOT NULL,
			player2_guest INTEGER NOT NULL DEFAULT 0,
			player2_ai    INTEGER NOT NULL DEFAULT 0,
			difficulty    TEXT NOT NULL DEFAULT '',
			state_json    TEXT NOT NULL,
			turn          TEXT NOT NULL DEFAULT '',
			round         INTEGER NOT NULL DEFAULT 1,
			round_starter TEXT NOT NULL DEFAULT '',
			player1_wins  INTEGER NOT NULL DEFAULT 0,
			player2_wins  INTEGER NOT NULL DEFAULT 0,
			status        TEXT NOT NULL DEFAULT 'playing',
			winner        TEXT NOT NULL DEFAULT '',
			turn_deadline INTEGER NOT NULL DEFAULT 0,
			version       INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_matches_status_deadline ON matches(status, turn_deadline);
		CREATE TABLE IF NOT EXISTS queue_entries (
			player_id   TEXT PRIMARY KEY,
			rating      INTEGER NOT NULL,
			game_type   TEXT NOT NULL DEFAULT '',
			mode        TEXT NOT NULL,
			enqueued_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_queue_mode_enqueued ON queue_entries(mode, enqueued_at);
		CREATE TABLE IF NOT EXISTS player_stats (
			player_id  TEXT NOT NULL,
			game_type  TEXT NOT NULL,
			wins       INTEGER NOT NULL DEFAULT 0,
			losses     INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (player_id, game_type)
		);
	`)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const matchColumns = `id, game_type, mode, player1_id, player1_guest, player1_ai, player2_id, player2_guest, player2_ai,
	difficulty, state_json, turn, round, round_starter, player1_wins, player2_wins,
	status, winner, turn_deadline, version, created_at, updated_at`

func insertMatch(ctx context.Context, ex execer, r matchRecord) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GameType, r.Mode, r.Player1ID, r.Player1Guest, r.Player1AI, r.Player2ID, r.Player2Guest, r.Player2AI,
		r.Difficulty, r.StateJSON, r.Turn, r.Round, r.RoundStarter, r.Player1Wins, r.Player2Wins,
		r.Status, r.Winner, r.TurnDeadline, r.Version, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(sc scanner) (matchRecord, error) {
	var r matchRecord
	err := sc.Scan(&r.ID, &r.GameType, &r.Mode, &r.Player1ID, &r.Player1Guest, &r.Player1AI, &r.Player2ID, &r.Player2Guest, &r.Player2AI,
		&r.Difficulty, &r.StateJSON, &r.Turn, &r.Round, &r.RoundStarter, &r.Player1Wins, &r.Player2Wins,
		&r.Status, &r.Winner, &r.TurnDeadline, &r.Version, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateMatch inserts a new match row.
func (s *SQLite) CreateMatch(ctx context.Context, m *match.Match) error {
	r, err := encodeMatch(s.reg, m)
	if err != nil {
		return err
	}
	return insertMatch(ctx, s.db, r)
}

// GetMatch retrieves a match by id.
func (s *SQLite) GetMatch(ctx context.Context, id string) (*match.Match, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+matchColumns+" FROM matches WHERE id = ?", id)
	r, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, match.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeMatch(s.reg, r)
}

// UpdateMatch writes m if nobody else has since the version it was read at.
func (s *SQLite) UpdateMatch(ctx context.Context, m *match.Match) error {
	r, err := encodeMatch(s.reg, m)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE matches SET
			state_json = ?, turn = ?, round = ?, round_starter = ?,
			player1_wins = ?, player2_wins = ?, status = ?, winner = ?,
			turn_deadline = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND status = 'playing'`,
		r.StateJSON, r.Turn, r.Round, r.RoundStarter,
		r.Player1Wins, r.Player2Wins, r.Status, r.Winner,
		r.TurnDeadline, r.UpdatedAt,
		r.ID, r.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return match.ErrConflict
	}
	m.Version++
	return nil
}

// ExpiredMatches lists playing matches whose turn deadline is at or before now.
func (s *SQLite) ExpiredMatches(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM matches WHERE status = 'playing' AND turn_deadline <= ? ORDER BY turn_deadline",
		now.UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FinishedBefore returns up to limit finished matches last updated before
// cutoff, oldest first.
func (s *SQLite) FinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*match.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+matchColumns+" FROM matches WHERE status = 'finished' AND updated_at < ? ORDER BY updated_at LIMIT ?",
		cutoff.UnixNano(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []matchRecord
	for rows.Next() {
		r, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*match.Match, 0, len(records))
	for _, r := range records {
		m, err := decodeMatch(s.reg, r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// DeleteMatch removes a match row.
func (s *SQLite) DeleteMatch(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM matches WHERE id = ?", id)
	return err
}

// Pair upserts entry and claims the oldest compatible waiter in one
// transaction.
func (s *SQLite) Pair(ctx context.Context, entry matchmaking.Entry, window int, build matchmaking.BuildFunc) (*match.Match, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	q := encodeEntry(entry)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO queue_entries (player_id, rating, game_type, mode, enqueued_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			rating = excluded.rating, game_type = excluded.game_type,
			mode = excluded.mode, enqueued_at = excluded.enqueued_at
	`, q.PlayerID, q.Rating, q.GameType, q.Mode, q.EnqueuedAt); err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}

	candidates, err := queueCandidates(ctx, tx, q, window)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		opponent := decodeEntry(c)
		if !entry.Compatible(opponent, window) {
			continue
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM queue_entries WHERE player_id = ? AND enqueued_at = ?", c.PlayerID, c.EnqueuedAt)
		if err != nil {
			return nil, fmt.Errorf("claim entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		m, err := build(opponent)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM queue_entries WHERE player_id = ?", q.PlayerID); err != nil {
			return nil, fmt.Errorf("remove entry: %w", err)
		}
		r, err := encodeMatch(s.reg, m)
		if err != nil {
			return nil, err
		}
		if err := insertMatch(ctx, tx, r); err != nil {
			return nil, fmt.Errorf("insert match: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, tx.Commit()
}

func queueCandidates(ctx context.Context, tx *sql.Tx, q queueRecord, window int) ([]queueRecord, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT player_id, rating, game_type, mode, enqueued_at FROM queue_entries
		WHERE mode = ? AND player_id <> ? AND rating BETWEEN ? AND ?
		ORDER BY enqueued_at, player_id`,
		q.Mode, q.PlayerID, q.Rating-window, q.Rating+window,
	)
	if err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	defer rows.Close()
	var out []queueRecord
	for rows.Next() {
		var r queueRecord
		if err := rows.Scan(&r.PlayerID, &r.Rating, &r.GameType, &r.Mode, &r.EnqueuedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteEntry removes a player's queue entry, if any.
func (s *SQLite) DeleteEntry(ctx context.Context, playerID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM queue_entries WHERE player_id = ?", playerID)
	return err
}

// GetEntry returns a player's queue entry, or nil when absent.
func (s *SQLite) GetEntry(ctx context.Context, playerID string) (*matchmaking.Entry, error) {
	var r queueRecord
	err := s.db.QueryRowContext(ctx,
		"SELECT player_id, rating, game_type, mode, enqueued_at FROM queue_entries WHERE player_id = ?", playerID,
	).Scan(&r.PlayerID, &r.Rating, &r.GameType, &r.Mode, &r.EnqueuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e := decodeEntry(r)
	return &e, nil
}

// CountEntries returns how many entries exist for playerID.
func (s *SQLite) CountEntries(ctx context.Context, playerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue_entries WHERE player_id = ?", playerID).Scan(&n)
	return n, err
}

// QueueLength returns how many players are waiting.
func (s *SQLite) QueueLength(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue_entries").Scan(&n)
	return n, err
}

// AddResult increments a player's win or loss count for a game.
func (s *SQLite) AddResult(ctx context.Context, playerID string, gameType game.Type, won bool, at time.Time) error {
	wins, losses := 0, 1
	if won {
		wins, losses = 1, 0
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player_stats (player_id, game_type, wins, losses, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(player_id, game_type) DO UPDATE SET
			wins = wins + excluded.wins, losses = losses + excluded.losses, updated_at = excluded.updated_at
	`, playerID, string(gameType), wins, losses, at.UnixNano())
	return err
}

// PlayerStats lists a player's records ordered by game type.
func (s *SQLite) PlayerStats(ctx context.Context, playerID string) ([]progress.Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT player_id, game_type, wins, losses, updated_at FROM player_stats WHERE player_id = ? ORDER BY game_type",
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []progress.Stats
	for rows.Next() {
		var r statsRecord
		if err := rows.Scan(&r.PlayerID, &r.GameType, &r.Wins, &r.Losses, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, decodeStats(r))
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
