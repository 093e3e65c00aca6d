package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncRun records one completed fetch-reconcile-persist cycle.
type SyncRun struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Games       int       `json:"games"`
	Expansions  int       `json:"expansions"`
	Accessories int       `json:"accessories"`
	Plays       int       `json:"plays"`
}

// RecordRun appends one sync run to the history.
func (s *Store) RecordRun(ctx context.Context, run *SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, username, started_at, finished_at, games, expansions, accessories, plays)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Username,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Games,
		run.Expansions,
		run.Accessories,
		run.Plays,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recently finished sync run, or nil when no
// run has completed yet.
func (s *Store) LastRun(ctx context.Context) (*SyncRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, started_at, finished_at, games, expansions, accessories, plays
		FROM sync_runs ORDER BY finished_at DESC LIMIT 1`)

	var (
		run      SyncRun
		started  string
		finished string
	)
	err := row.Scan(&run.ID, &run.Username, &started, &finished,
		&run.Games, &run.Expansions, &run.Accessories, &run.Plays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}

	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}
	return &run, nil
}

// Stats summarizes the stored snapshot for the API.
type Stats struct {
	Games       int      `json:"games"`
	Expansions  int      `json:"expansions"`
	Accessories int      `json:"accessories"`
	Plays       int      `json:"plays"`
	LastSync    *SyncRun `json:"last_sync,omitzero"`
}

// Stats returns snapshot counters plus the last sync run. Child counts
// come from the run record; a snapshot without any run history reports
// the stored game count only.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	games, err := s.CountGames(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Games: games}
	run, err := s.LastRun(ctx)
	if err != nil {
		return nil, err
	}
	if run != nil {
		stats.Expansions = run.Expansions
		stats.Accessories = run.Accessories
		stats.Plays = run.Plays
		stats.LastSync = run
	}
	return stats, nil
}
