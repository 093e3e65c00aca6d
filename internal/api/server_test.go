package api

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameshelfapp/gameshelf-server/internal/config"
	"github.com/gameshelfapp/gameshelf-server/internal/game"
	"github.com/gameshelfapp/gameshelf-server/internal/search"
	"github.com/gameshelfapp/gameshelf-server/internal/service"
	"github.com/gameshelfapp/gameshelf-server/internal/store"
)

// testGames returns a small reconciled snapshot. Names are sort titles,
// as the pipeline stores them.
func testGames() []*game.BoardGame {
	return []*game.BoardGame{
		{
			ID: 230802, Name: "Azul", Year: 2017, Rank: 80, Rating: 7.5,
			Weight: "Light Medium", PlayingTime: "30min - 1h",
			MinPlayers: 2, MaxPlayers: 4, NumPlays: 7,
			Tags:       []string{"own"},
			Categories: []string{"Abstract Strategy"},
			Publishers: []game.Publisher{{ID: 29313, Name: "Plan B Games", Own: true}},
			Players: []game.Facet{
				{Count: "2", Level: "recommended"},
				{Count: "3", Level: "best"},
			},
		},
		{
			ID: 284083, Name: "Crew: The Quest for Planet Nine, The",
			Year: 2019, Rank: 50, Rating: 8.0,
			Tags:       []string{"own"},
			Expansions: []*game.BoardGame{{ID: 330862, Name: "Mission Deep Sea"}},
		},
		{
			ID: 266192, Name: "Wingspan", Year: 2019, Rank: 30, Rating: 8.5,
			Tags: []string{"wishlist"},
		},
	}
}

func setupTestServer(t *testing.T, seed bool) (*Server, *store.Store) {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.Open(filepath.Join(dir, "gameshelf.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewSearchIndex(search.Options{DataPath: dir, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	catalog := service.NewCatalogService(st, idx, logger)

	if seed {
		ctx := context.Background()
		require.NoError(t, st.ReplaceGames(ctx, testGames()))
		require.NoError(t, st.RecordRun(ctx, &store.SyncRun{
			ID:         "sync-V1StGXR8_Z5jdHi6BmyT1",
			Username:   "boardfan",
			StartedAt:  time.Now().Add(-time.Minute),
			FinishedAt: time.Now(),
			Games:      3,
			Expansions: 1,
			Plays:      12,
		}))
		require.NoError(t, catalog.Reload(ctx))
	}

	cfg := &config.Config{Server: config.ServerConfig{CORSOrigins: []string{"*"}}}
	srv := NewServer(cfg, st, idx, catalog, logger)
	t.Cleanup(srv.Close)
	return srv, st
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

// apiErrorBody mirrors the JSON shape of APIError.
type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestHealth_Healthy(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool           `json:"success"`
		Data    HealthResponse `json:"data"`
	}
	decodeBody(t, rec, &body)

	assert.True(t, body.Success)
	assert.Equal(t, "healthy", body.Data.Status)
	assert.Equal(t, Version, body.Data.Version)
	assert.Equal(t, "healthy", body.Data.Components["database"].Status)
	assert.Equal(t, "healthy", body.Data.Components["search"].Status)
	assert.Equal(t, "healthy", body.Data.Components["snapshot"].Status)
}

func TestHealth_DegradedBeforeFirstSync(t *testing.T) {
	s, _ := setupTestServer(t, false)

	rec := doRequest(t, s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool           `json:"success"`
		Data    HealthResponse `json:"data"`
	}
	decodeBody(t, rec, &body)

	assert.True(t, body.Success)
	assert.Equal(t, "degraded", body.Data.Status)
	assert.Equal(t, "healthy", body.Data.Components["database"].Status)
	assert.Equal(t, "degraded", body.Data.Components["search"].Status)
	assert.Equal(t, "degraded", body.Data.Components["snapshot"].Status)
}

func TestListGames(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/games")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ListGamesResponse
	decodeBody(t, rec, &body)

	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 50, body.Limit)
	require.Len(t, body.Games, 3)

	// Sort-title order, natural display names.
	assert.Equal(t, "Azul", body.Games[0].Name)
	assert.Equal(t, "The Crew: The Quest for Planet Nine", body.Games[1].Name)
	assert.Equal(t, "Crew: The Quest for Planet Nine, The", body.Games[1].SortName)
	assert.Equal(t, "Wingspan", body.Games[2].Name)

	assert.Equal(t, 1, body.Games[1].Expansions)
	assert.Equal(t, []string{"own"}, body.Games[0].Tags)
}

func TestListGames_FilterAndSort(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/games?tag=own&sort=rating&order=desc")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ListGamesResponse
	decodeBody(t, rec, &body)

	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Games, 2)
	assert.Equal(t, int64(284083), body.Games[0].ID)
	assert.Equal(t, int64(230802), body.Games[1].ID)
}

func TestListGames_Paging(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/games?limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ListGamesResponse
	decodeBody(t, rec, &body)

	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 1, body.Limit)
	assert.Equal(t, 1, body.Offset)
	require.Len(t, body.Games, 1)
	assert.Equal(t, int64(284083), body.Games[0].ID)
}

func TestListGames_BeforeFirstSync(t *testing.T) {
	s, _ := setupTestServer(t, false)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/games")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body apiErrorBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "UNAVAILABLE", body.Code)
	assert.Equal(t, "collection snapshot not loaded yet", body.Message)
}

func TestGetGame(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/games/284083")
	require.Equal(t, http.StatusOK, rec.Code)

	var body GameResponse
	decodeBody(t, rec, &body)

	assert.Equal(t, int64(284083), body.ID)
	assert.Equal(t, "The Crew: The Quest for Planet Nine", body.Name)
	require.Len(t, body.Expansions, 1)
	assert.Equal(t, "Mission Deep Sea", body.Expansions[0].Name)
}

func TestGetGame_PublishersAndPlayers(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/games/230802")
	require.Equal(t, http.StatusOK, rec.Code)

	var body GameResponse
	decodeBody(t, rec, &body)

	require.Len(t, body.Publishers, 1)
	assert.Equal(t, "Plan B Games", body.Publishers[0].Name)
	assert.True(t, body.Publishers[0].Own)
	require.Len(t, body.Players, 2)
	assert.Equal(t, PlayerFacet{Count: "3", Level: "best"}, body.Players[1])
}

func TestGetGame_NotFound(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/games/424242")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apiErrorBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "NOT_FOUND", body.Code)
	assert.Equal(t, "game 424242 not in collection", body.Message)
}

func TestSearch(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/search?q=azul")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SearchResponse
	decodeBody(t, rec, &body)

	assert.Equal(t, "azul", body.Query)
	require.NotEmpty(t, body.Hits)
	assert.Equal(t, int64(230802), body.Hits[0].ID)
	assert.Equal(t, "Azul", body.Hits[0].Name)

	// Facets are on by default.
	require.NotNil(t, body.Facets)
}

func TestSearch_FacetsDisabled(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/search?q=azul&facets=false")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SearchResponse
	decodeBody(t, rec, &body)
	assert.Nil(t, body.Facets)
}

func TestGetStats(t *testing.T) {
	s, _ := setupTestServer(t, true)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body StatsResponse
	decodeBody(t, rec, &body)

	assert.Equal(t, 3, body.Games)
	assert.Equal(t, 1, body.Expansions)
	assert.Equal(t, 12, body.Plays)
	assert.Equal(t, uint64(3), body.IndexedGames)
	assert.False(t, body.SnapshotLoadedAt.IsZero())
	require.NotNil(t, body.LastSync)
	assert.Equal(t, "sync-V1StGXR8_Z5jdHi6BmyT1", body.LastSync.ID)
	assert.Equal(t, "boardfan", body.LastSync.Username)
}

func TestDownloadArchive_NotFound(t *testing.T) {
	s, _ := setupTestServer(t, false)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/archive")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decodeBody(t, rec, &body)
	assert.False(t, body.Success)
	assert.Equal(t, "no snapshot archive yet", body.Error)
}

func TestDownloadArchive(t *testing.T) {
	s, st := setupTestServer(t, true)

	_, err := st.WriteArchive(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/archive")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "gameshelf.db.gz")
	assert.Equal(t, CacheNoStore, rec.Header().Get("Cache-Control"))
	assert.NotZero(t, rec.Body.Len())
}

func TestCORSPreflight(t *testing.T) {
	s, _ := setupTestServer(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/games", nil)
	req.Header.Set("Origin", "https://shelf.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusToCode(t *testing.T) {
	assert.Equal(t, "VALIDATION", statusToCode(http.StatusBadRequest))
	assert.Equal(t, "VALIDATION", statusToCode(http.StatusUnprocessableEntity))
	assert.Equal(t, "NOT_FOUND", statusToCode(http.StatusNotFound))
	assert.Equal(t, "UNAVAILABLE", statusToCode(http.StatusServiceUnavailable))
	assert.Equal(t, "INTERNAL", statusToCode(http.StatusInternalServerError))
}
