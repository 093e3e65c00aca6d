package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/gameshelfapp/gameshelf-server/internal/config"
	"github.com/gameshelfapp/gameshelf-server/internal/logger"
	"github.com/gameshelfapp/gameshelf-server/internal/service"
	"github.com/gameshelfapp/gameshelf-server/internal/watcher"
)

// ReloadWorkerHandle wraps the snapshot reload worker with shutdown capability.
type ReloadWorkerHandle struct {
	watcher *watcher.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ReloadWorkerHandle) Shutdown() error {
	h.cancel()
	return h.watcher.Stop()
}

// ProvideReloadWorker starts the worker that reloads the catalog when
// the sync process replaces the snapshot archive.
func ProvideReloadWorker(i do.Injector) (*ReloadWorkerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalog := do.MustInvoke[*service.CatalogService](i)

	w, err := watcher.New(log.Logger, watcher.Options{})
	if err != nil {
		return nil, err
	}

	// The sync writes the archive last, so a settled archive change
	// means the database underneath is already complete.
	trigger := cfg.DatabasePath() + ".gz"
	worker := service.NewReloadWorker(w, catalog, trigger, log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := worker.Run(ctx); err != nil {
			log.Error("Reload worker error", "error", err)
		}
	}()

	log.Info("Snapshot reload worker started", "trigger", trigger)

	return &ReloadWorkerHandle{
		watcher: w,
		cancel:  cancel,
	}, nil
}
