package service

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameshelfapp/gameshelf-server/internal/bgg"
	"github.com/gameshelfapp/gameshelf-server/internal/fetch"
	"github.com/gameshelfapp/gameshelf-server/internal/game"
	"github.com/gameshelfapp/gameshelf-server/internal/normalize"
	"github.com/gameshelfapp/gameshelf-server/internal/reconcile"
	"github.com/gameshelfapp/gameshelf-server/internal/store"
)

// fakeCatalog serves a canned collection. Accessory-subtype queries
// return nothing, like a user who owns no accessories.
type fakeCatalog struct {
	entries       []bgg.CollectionEntry
	details       []bgg.ItemDetail
	plays         []bgg.PlayEntry
	collectionErr error
}

func (f *fakeCatalog) Collection(_ context.Context, _ string, params url.Values) ([]bgg.CollectionEntry, error) {
	if f.collectionErr != nil {
		return nil, f.collectionErr
	}
	if params.Get("subtype") == bgg.TypeAccessory {
		return nil, nil
	}
	return f.entries, nil
}

func (f *fakeCatalog) Things(_ context.Context, _ []int64) ([]bgg.ItemDetail, error) {
	return f.details, nil
}

func (f *fakeCatalog) Plays(_ context.Context, _ string) ([]bgg.PlayEntry, error) {
	return f.plays, nil
}

func setupSyncService(t *testing.T, catalog fetch.Catalog) (*SyncService, *store.Store) {
	t.Helper()

	logger := discardLogger()
	st, err := store.Open(filepath.Join(t.TempDir(), "gameshelf.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	fetcher := fetch.New(catalog, logger)
	engine := reconcile.NewEngine(reconcile.DefaultTable(), normalize.DefaultAliases(), logger)

	return NewSyncService(fetcher, engine, st, logger), st
}

func TestSyncService_Run(t *testing.T) {
	catalog := &fakeCatalog{
		entries: []bgg.CollectionEntry{
			{ID: 230802, CollectionID: 1001, Name: "Azul", Tags: []string{"own"}, NumPlays: 7},
		},
		details: []bgg.ItemDetail{
			{ID: 230802, Type: bgg.TypeBoardGame, Name: "Azul", Year: 2017},
			{
				ID: 287954, Type: bgg.TypeExpansion, Name: "Azul: Crystal Mosaic",
				Edges: []bgg.RelationshipEdge{
					{Kind: bgg.EdgeExpansion, ID: 230802, Inbound: true},
				},
			},
		},
		plays: []bgg.PlayEntry{
			{PlayID: 1, GameID: 230802, Players: []string{"Ada"}},
			{PlayID: 2, GameID: 230802, Players: []string{"Ada", "Grace"}},
		},
	}
	svc, st := setupSyncService(t, catalog)
	ctx := context.Background()

	run, err := svc.Run(ctx, "boardfan", nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(run.ID, "sync-"), "run id %q", run.ID)
	assert.Equal(t, "boardfan", run.Username)
	assert.Equal(t, 1, run.Games)
	assert.Equal(t, 1, run.Expansions)
	assert.Equal(t, 0, run.Accessories)
	assert.Equal(t, 2, run.Plays)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	// Snapshot landed.
	g, err := st.Game(ctx, 230802)
	require.NoError(t, err)
	assert.Equal(t, "Azul", g.Name)
	require.Len(t, g.Expansions, 1)

	// Run history landed.
	last, err := st.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, run.ID, last.ID)

	// Archive written next to the database.
	_, err = os.Stat(st.Path() + ".gz")
	assert.NoError(t, err)
}

func TestSyncService_Run_FetchError(t *testing.T) {
	catalog := &fakeCatalog{collectionErr: errors.New("upstream down")}
	svc, st := setupSyncService(t, catalog)
	ctx := context.Background()

	_, err := svc.Run(ctx, "boardfan", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch collection")

	// Nothing persisted.
	n, err := st.CountGames(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	last, err := st.LastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestParseQueries(t *testing.T) {
	sets, err := ParseQueries([]string{"own=1", "wishlist=1&wishlistpriority=1"})
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "1", sets[0].Get("own"))
	assert.Equal(t, "1", sets[1].Get("wishlist"))
	assert.Equal(t, "1", sets[1].Get("wishlistpriority"))

	sets, err = ParseQueries(nil)
	require.NoError(t, err)
	assert.Empty(t, sets)

	_, err = ParseQueries([]string{"own=%zz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid collection query")
}

func TestCountChildren(t *testing.T) {
	games := []*game.BoardGame{
		{
			ID:         1,
			Expansions: []*game.BoardGame{{ID: 2}, {ID: 3}},
			Accessories: []*game.BoardGame{
				{ID: 4},
			},
		},
		{ID: 5, Expansions: []*game.BoardGame{{ID: 6}}},
		{ID: 7},
	}

	expansions, accessories := countChildren(games)
	assert.Equal(t, 3, expansions)
	assert.Equal(t, 1, accessories)
}
