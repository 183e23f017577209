// Package archive moves finished matches out of the primary store into
// object storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"arcade/internal/match"
)

// DefaultBatch caps how many matches one Run archives.
const DefaultBatch = 100

// Source lists and removes finished matches.
type Source interface {
	FinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*match.Match, error)
	DeleteMatch(ctx context.Context, id string) error
}

// Uploader writes one object.
type Uploader interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Archiver uploads finished matches older than After and deletes them from
// the source once the upload succeeded.
type Archiver struct {
	Source   Source
	Uploader Uploader
	After    time.Duration
	Batch    int
	Now      func() time.Time
}

// Key is the object key for m.
func Key(m *match.Match) string {
	return fmt.Sprintf("matches/%s/%s.json", m.GameType, m.ID)
}

// Run archives one batch and returns how many matches were moved. A failed
// upload leaves the match in place for the next run.
func (a *Archiver) Run(ctx context.Context) (int, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	batch := a.Batch
	if batch <= 0 {
		batch = DefaultBatch
	}
	matches, err := a.Source.FinishedBefore(ctx, now().Add(-a.After), batch)
	if err != nil {
		return 0, fmt.Errorf("list finished matches: %w", err)
	}
	moved := 0
	for _, m := range matches {
		body, err := json.Marshal(m)
		if err != nil {
			log.Printf("archive: marshal match %s: %v", m.ID, err)
			continue
		}
		if err := a.Uploader.Put(ctx, Key(m), body, "application/json"); err != nil {
			log.Printf("archive: upload match %s: %v", m.ID, err)
			continue
		}
		if err := a.Source.DeleteMatch(ctx, m.ID); err != nil {
			log.Printf("archive: delete match %s: %v", m.ID, err)
			continue
		}
		moved++
	}
	if moved > 0 {
		log.Printf("archive: moved %d matches", moved)
	}
	return moved, nil
}
