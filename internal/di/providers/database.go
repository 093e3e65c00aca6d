package providers

import (
	"github.com/samber/do/v2"

	"github.com/gameshelfapp/gameshelf-server/internal/config"
	"github.com/gameshelfapp/gameshelf-server/internal/logger"
	"github.com/gameshelfapp/gameshelf-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the snapshot database. The serving process only
// reads it; the sync process replaces its contents and the reload
// worker picks the new snapshot up.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.Open(cfg.DatabasePath(), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Snapshot database opened", "path", cfg.DatabasePath())

	return &StoreHandle{Store: db}, nil
}
