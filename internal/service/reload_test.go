package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameshelfapp/gameshelf-server/internal/watcher"
)

func TestReloadWorker_ReloadsOnArchiveChange(t *testing.T) {
	catalog, st := setupCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, st.ReplaceGames(ctx, catalogGames()[:1]))

	w, err := watcher.New(discardLogger(), watcher.Options{SettleDelay: 50 * time.Millisecond})
	require.NoError(t, err)
	trigger := st.Path() + ".gz"
	worker := NewReloadWorker(w, catalog, trigger, discardLogger())

	go func() { _ = worker.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})

	assert.False(t, catalog.Ready())

	// Give the watcher a moment to register before the first write.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(trigger, []byte("archive"), 0o644))

	require.Eventually(t, catalog.Ready, 3*time.Second, 25*time.Millisecond)

	list, err := catalog.Games(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	// A later sync replaces the database; rewriting the archive must
	// swap in the new snapshot without reopening anything.
	require.NoError(t, st.ReplaceGames(ctx, catalogGames()[:3]))
	require.NoError(t, os.WriteFile(trigger, []byte("archive v2"), 0o644))

	require.Eventually(t, func() bool {
		list, err := catalog.Games(ctx, ListParams{})
		return err == nil && list.Total == 3
	}, 3*time.Second, 25*time.Millisecond)
}

func TestReloadWorker_KeepsCatalogOnRemoval(t *testing.T) {
	catalog, st := setupCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, st.ReplaceGames(ctx, catalogGames()[:2]))

	w, err := watcher.New(discardLogger(), watcher.Options{SettleDelay: 50 * time.Millisecond})
	require.NoError(t, err)
	trigger := st.Path() + ".gz"
	worker := NewReloadWorker(w, catalog, trigger, discardLogger())

	go func() { _ = worker.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(trigger, []byte("archive"), 0o644))
	require.Eventually(t, catalog.Ready, 3*time.Second, 25*time.Millisecond)

	require.NoError(t, os.Remove(trigger))
	time.Sleep(300 * time.Millisecond)

	// Removal is logged, not acted on.
	assert.True(t, catalog.Ready())
	list, err := catalog.Games(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
}

func TestReloadWorker_WatchError(t *testing.T) {
	catalog, _ := setupCatalog(t)

	w, err := watcher.New(discardLogger(), watcher.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	worker := NewReloadWorker(w, catalog, "/nonexistent/dir/gameshelf.db.gz", discardLogger())
	err = worker.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch /nonexistent/dir/gameshelf.db.gz")
}
