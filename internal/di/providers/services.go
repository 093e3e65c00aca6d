package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/gameshelfapp/gameshelf-server/internal/logger"
	"github.com/gameshelfapp/gameshelf-server/internal/service"
)

// ProvideCatalogService provides the catalog read service and loads the
// stored snapshot when one exists.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewCatalogService(storeHandle.Store, indexHandle.SearchIndex, log.Logger)

	// A fresh data directory has no snapshot yet. The catalog reports
	// unavailable until the first sync run lands and the reload worker
	// picks it up.
	ctx := context.Background()
	count, err := storeHandle.CountGames(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		log.Info("No collection snapshot yet - run gameshelf-sync to populate it")
		return svc, nil
	}

	if err := svc.Reload(ctx); err != nil {
		return nil, err
	}

	return svc, nil
}
