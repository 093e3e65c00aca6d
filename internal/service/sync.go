package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gameshelfapp/gameshelf-server/internal/fetch"
	"github.com/gameshelfapp/gameshelf-server/internal/game"
	"github.com/gameshelfapp/gameshelf-server/internal/id"
	"github.com/gameshelfapp/gameshelf-server/internal/reconcile"
	"github.com/gameshelfapp/gameshelf-server/internal/store"
)

// SyncService runs the fetch-reconcile-persist pipeline for one user
// and owns the snapshot database for the duration of the run.
type SyncService struct {
	fetcher *fetch.Fetcher
	engine  *reconcile.Engine
	store   *store.Store
	logger  *slog.Logger
}

// NewSyncService creates a sync service.
func NewSyncService(fetcher *fetch.Fetcher, engine *reconcile.Engine, st *store.Store, logger *slog.Logger) *SyncService {
	return &SyncService{
		fetcher: fetcher,
		engine:  engine,
		store:   st,
		logger:  logger,
	}
}

// ParseQueries converts raw collection query strings ("own=1",
// "wishlist=1&wishlistpriority=1") into parameter sets for the fetcher.
func ParseQueries(raw []string) ([]url.Values, error) {
	var sets []url.Values
	for _, q := range raw {
		vals, err := url.ParseQuery(q)
		if err != nil {
			return nil, fmt.Errorf("invalid collection query %q: %w", q, err)
		}
		sets = append(sets, vals)
	}
	return sets, nil
}

// Run executes one full sync: fetch the collection, reconcile it into
// display games, replace the stored snapshot, record the run and write
// the archive. The archive is written last; watchers treat its change
// as the run-complete signal.
func (s *SyncService) Run(ctx context.Context, username string, queries []url.Values) (*store.SyncRun, error) {
	started := time.Now()
	s.logger.Info("sync started", "username", username, "queries", len(queries))

	// Fetcher errors already name the failing request.
	result, err := s.fetcher.Fetch(ctx, username, queries)
	if err != nil {
		return nil, err
	}

	games := s.engine.Reconcile(result)
	expansions, accessories := countChildren(games)

	if err := s.store.ReplaceGames(ctx, games); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	run := &store.SyncRun{
		ID:          id.MustGenerate("sync"),
		Username:    username,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Games:       len(games),
		Expansions:  expansions,
		Accessories: accessories,
		Plays:       len(result.Plays),
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	archivePath, err := s.store.WriteArchive(ctx)
	if err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}

	s.logger.Info("sync finished",
		"run_id", run.ID,
		"games", run.Games,
		"expansions", run.Expansions,
		"accessories", run.Accessories,
		"plays", run.Plays,
		"archive", archivePath,
		"took", time.Since(started).Round(time.Millisecond),
	)
	return run, nil
}

func countChildren(games []*game.BoardGame) (expansions, accessories int) {
	for _, g := range games {
		expansions += len(g.Expansions)
		accessories += len(g.Accessories)
	}
	return expansions, accessories
}
