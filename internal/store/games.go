package store

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/gameshelfapp/gameshelf-server/internal/game"
	"github.com/gameshelfapp/gameshelf-server/internal/normalize"
)

// ReplaceGames swaps the stored snapshot for the given record set in one
// transaction. Either every record lands or none does.
func (s *Store) ReplaceGames(ctx context.Context, games []*game.BoardGame) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM games`); err != nil {
		return fmt.Errorf("clear games: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO games (id, name, sort_name, rank, rating, numplays, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range games {
		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("marshal game %d: %w", g.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			g.ID,
			normalize.NaturalTitle(g.Name),
			g.Name,
			nullInt(g.Rank),
			g.Rating,
			g.NumPlays,
			string(data),
		)
		if err != nil {
			return fmt.Errorf("insert game %d: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	s.logger.Info("snapshot replaced", "games", len(games))
	return nil
}

// Games returns every stored record ordered by sort name.
func (s *Store) Games(ctx context.Context) ([]*game.BoardGame, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM games ORDER BY sort_name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var games []*game.BoardGame
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		var g game.BoardGame
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, fmt.Errorf("unmarshal game: %w", err)
		}
		games = append(games, &g)
	}
	return games, rows.Err()
}

// Game returns one stored record by id. Returns ErrNotFound when the id
// is not in the snapshot.
func (s *Store) Game(ctx context.Context, id int64) (*game.BoardGame, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM games WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query game %d: %w", id, err)
	}

	var g game.BoardGame
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, fmt.Errorf("unmarshal game %d: %w", id, err)
	}
	return &g, nil
}

// CountGames returns the number of stored display games.
func (s *Store) CountGames(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}
