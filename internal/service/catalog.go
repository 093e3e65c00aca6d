// Package service ties the pipeline, the snapshot sinks and the HTTP
// API together.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	domainerrors "github.com/gameshelfapp/gameshelf-server/internal/errors"
	"github.com/gameshelfapp/gameshelf-server/internal/game"
	"github.com/gameshelfapp/gameshelf-server/internal/search"
	"github.com/gameshelfapp/gameshelf-server/internal/store"
)

// ListParams control pagination and ordering for collection listings.
type ListParams struct {
	Sort   string // name, rank, rating, year
	Order  string // asc, desc
	Limit  int
	Offset int
	Tag    string // restrict to games carrying this collection tag
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Normalize clamps paging values and fills ordering defaults. Rank
// sorts ascending by default (rank 1 is the top game); rating and year
// descending.
func (p *ListParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = defaultListLimit
	}
	if p.Limit > maxListLimit {
		p.Limit = maxListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	switch p.Sort {
	case "rank", "rating", "year", "name":
	default:
		p.Sort = "name"
	}

	if p.Order == "" {
		switch p.Sort {
		case "rating", "year":
			p.Order = "desc"
		default:
			p.Order = "asc"
		}
	}
}

// GameList is one page of the collection.
type GameList struct {
	Games  []*game.BoardGame
	Total  int
	Limit  int
	Offset int
}

// CatalogStats extends the stored counters with serving-side state.
type CatalogStats struct {
	*store.Stats
	IndexedGames     uint64    `json:"indexed_games"`
	SnapshotLoadedAt time.Time `json:"snapshot_loaded_at,omitzero"`
}

// CatalogService serves the collection snapshot to the API. Reads come
// from an immutable in-memory view; Reload swaps the view atomically
// after the sync process has replaced the database.
type CatalogService struct {
	store  *store.Store
	index  *search.SearchIndex
	logger *slog.Logger
	snap   atomic.Pointer[catalogSnapshot]
}

type catalogSnapshot struct {
	games    []*game.BoardGame // sorted by sort title
	byID     map[int64]*game.BoardGame
	loadedAt time.Time
}

// NewCatalogService creates a catalog service. Call Reload before
// serving; reads fail with an unavailable error until the first
// snapshot is in.
func NewCatalogService(st *store.Store, index *search.SearchIndex, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  st,
		index:  index,
		logger: logger,
	}
}

// Reload reads the stored snapshot, reindexes it and swaps the
// in-memory view. Readers keep the previous view until the swap, so a
// failed reload leaves the catalog serving the old snapshot.
func (s *CatalogService) Reload(ctx context.Context) error {
	started := time.Now()

	games, err := s.store.Games(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	byID := make(map[int64]*game.BoardGame, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}

	if err := s.index.ReplaceAll(games); err != nil {
		return fmt.Errorf("reindex snapshot: %w", err)
	}

	s.snap.Store(&catalogSnapshot{
		games:    games,
		byID:     byID,
		loadedAt: time.Now(),
	})

	s.logger.Info("catalog snapshot loaded",
		"games", len(games),
		"took", time.Since(started).Round(time.Millisecond),
	)
	return nil
}

// Ready reports whether a snapshot has been loaded.
func (s *CatalogService) Ready() bool {
	return s.snap.Load() != nil
}

// LoadedAt returns the time of the last successful reload, or the zero
// time when no snapshot is in yet.
func (s *CatalogService) LoadedAt() time.Time {
	if snap := s.snap.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

func errNotLoaded() error {
	return domainerrors.Unavailable("collection snapshot not loaded yet")
}

// Games returns one page of the collection.
func (s *CatalogService) Games(_ context.Context, params ListParams) (*GameList, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, errNotLoaded()
	}
	params.Normalize()

	games := snap.games
	if params.Tag != "" {
		games = filterByTag(games, params.Tag)
	}
	games = sortGames(games, params.Sort, params.Order)

	total := len(games)
	start := min(params.Offset, total)
	end := min(start+params.Limit, total)

	return &GameList{
		Games:  games[start:end],
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}

// Game returns one record by catalog id. Expansions and accessories are
// nested under their base game and have no record of their own.
func (s *CatalogService) Game(_ context.Context, id int64) (*game.BoardGame, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, errNotLoaded()
	}
	g, ok := snap.byID[id]
	if !ok {
		return nil, domainerrors.NotFoundf("game %d not in collection", id)
	}
	return g, nil
}

// Search runs a faceted query against the index.
func (s *CatalogService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.snap.Load() == nil {
		return nil, errNotLoaded()
	}
	return s.index.Search(ctx, params)
}

// Stats returns snapshot counters, index state and reload time.
func (s *CatalogService) Stats(ctx context.Context) (*CatalogStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	docs, err := s.index.DocumentCount()
	if err != nil {
		return nil, fmt.Errorf("count indexed games: %w", err)
	}

	cs := &CatalogStats{
		Stats:        stats,
		IndexedGames: docs,
	}
	if snap := s.snap.Load(); snap != nil {
		cs.SnapshotLoadedAt = snap.loadedAt
	}
	return cs, nil
}

// filterByTag keeps games carrying the given collection tag.
func filterByTag(games []*game.BoardGame, tag string) []*game.BoardGame {
	var filtered []*game.BoardGame
	for _, g := range games {
		if slices.ContainsFunc(g.Tags, func(t string) bool { return strings.EqualFold(t, tag) }) {
			filtered = append(filtered, g)
		}
	}
	return filtered
}

// sortGames returns the games in the requested order. The input is
// already ascending by sort title and is never mutated; unranked,
// unrated and undated games go last regardless of direction.
func sortGames(games []*game.BoardGame, sortBy, order string) []*game.BoardGame {
	if sortBy == "name" && order == "asc" {
		return games
	}

	sorted := slices.Clone(games)
	desc := order == "desc"

	switch sortBy {
	case "name":
		slices.Reverse(sorted)
	case "rank":
		slices.SortStableFunc(sorted, func(a, b *game.BoardGame) int {
			return compareMissingLast(a.Rank, b.Rank, desc)
		})
	case "rating":
		slices.SortStableFunc(sorted, func(a, b *game.BoardGame) int {
			return compareMissingLast(a.Rating, b.Rating, desc)
		})
	case "year":
		slices.SortStableFunc(sorted, func(a, b *game.BoardGame) int {
			return compareMissingLast(a.Year, b.Year, desc)
		})
	}
	return sorted
}

// compareMissingLast orders by value with zero values (missing data)
// always last.
func compareMissingLast[T int | float64](a, b T, desc bool) int {
	if a == 0 && b == 0 {
		return 0
	}
	if a == 0 {
		return 1
	}
	if b == 0 {
		return -1
	}
	if desc {
		a, b = b, a
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
