package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gameshelfapp/gameshelf-server/internal/store"
)

func (s *Server) registerStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Collection stats",
		Description: "Returns collection counters and the last sync run",
		Tags:        []string{"Stats"},
	}, s.handleGetStats)
}

// === DTOs ===

// SyncRunInfo describes one sync run.
type SyncRunInfo struct {
	ID          string    `json:"id" doc:"Run ID"`
	Username    string    `json:"username" doc:"Synced account"`
	StartedAt   time.Time `json:"started_at" doc:"Run start"`
	FinishedAt  time.Time `json:"finished_at" doc:"Run end"`
	Games       int       `json:"games" doc:"Games in the snapshot"`
	Expansions  int       `json:"expansions" doc:"Nested expansions"`
	Accessories int       `json:"accessories" doc:"Nested accessories"`
	Plays       int       `json:"plays" doc:"Logged plays fetched"`
}

// StatsResponse contains collection counters.
type StatsResponse struct {
	Games            int          `json:"games" doc:"Games in the snapshot"`
	Expansions       int          `json:"expansions" doc:"Nested expansions"`
	Accessories      int          `json:"accessories" doc:"Nested accessories"`
	Plays            int          `json:"plays" doc:"Logged plays in the last run"`
	IndexedGames     uint64       `json:"indexed_games" doc:"Documents in the search index"`
	SnapshotLoadedAt time.Time    `json:"snapshot_loaded_at,omitzero" doc:"When the serving snapshot was loaded"`
	LastSync         *SyncRunInfo `json:"last_sync,omitempty" doc:"Most recent sync run"`
}

// StatsOutput wraps the stats response for Huma.
type StatsOutput struct {
	Body StatsResponse
}

// === Handlers ===

func (s *Server) handleGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	stats, err := s.catalog.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &StatsOutput{
		Body: StatsResponse{
			Games:            stats.Games,
			Expansions:       stats.Expansions,
			Accessories:      stats.Accessories,
			Plays:            stats.Plays,
			IndexedGames:     stats.IndexedGames,
			SnapshotLoadedAt: stats.SnapshotLoadedAt,
			LastSync:         toSyncRunInfo(stats.LastSync),
		},
	}, nil
}

// === Mapping ===

func toSyncRunInfo(run *store.SyncRun) *SyncRunInfo {
	if run == nil {
		return nil
	}
	return &SyncRunInfo{
		ID:          run.ID,
		Username:    run.Username,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Games:       run.Games,
		Expansions:  run.Expansions,
		Accessories: run.Accessories,
		Plays:       run.Plays,
	}
}
