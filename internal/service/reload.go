package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gameshelfapp/gameshelf-server/internal/watcher"
)

// ReloadWorker reloads the catalog when the sync process finishes a
// run. It watches the snapshot archive, which the sync writes last, so
// the database and the run record are already in place when the
// archive settles.
type ReloadWorker struct {
	watcher *watcher.Watcher
	catalog *CatalogService
	trigger string
	logger  *slog.Logger
}

// NewReloadWorker creates a reload worker watching the given trigger
// file.
func NewReloadWorker(w *watcher.Watcher, catalog *CatalogService, trigger string, logger *slog.Logger) *ReloadWorker {
	return &ReloadWorker{
		watcher: w,
		catalog: catalog,
		trigger: trigger,
		logger:  logger,
	}
}

// Run watches the trigger file and reloads on every settled change.
// Blocks until the context is cancelled.
func (r *ReloadWorker) Run(ctx context.Context) error {
	if err := r.watcher.Watch(r.trigger); err != nil {
		return fmt.Errorf("watch %s: %w", r.trigger, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-r.watcher.Events():
				if !ok {
					return
				}
				r.handleEvent(ctx, ev)
			case err, ok := <-r.watcher.Errors():
				if !ok {
					return
				}
				r.logger.Error("snapshot watcher error", "error", err)
			}
		}
	}()

	return r.watcher.Start(ctx)
}

func (r *ReloadWorker) handleEvent(ctx context.Context, ev watcher.Event) {
	if ev.Type == watcher.EventRemoved {
		r.logger.Warn("snapshot archive removed, keeping current catalog", "path", ev.Path)
		return
	}

	r.logger.Info("snapshot changed, reloading catalog",
		"path", ev.Path,
		"event", ev.Type.String(),
	)
	if err := r.catalog.Reload(ctx); err != nil {
		r.logger.Error("catalog reload failed", "error", err)
	}
}
