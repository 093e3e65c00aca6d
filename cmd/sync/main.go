// Package main provides the GameShelf collection sync tool.
//
// It pulls the configured BoardGameGeek collection through the XML API,
// reconciles the responses into display records, and replaces the
// snapshot database the API server serves from. Run it from cron or by
// hand; a running server picks up the new snapshot on its own.
//
// Usage:
//
//	gameshelf-sync --username=boardfan --data-dir=~/GameShelf/data
//	gameshelf-sync --bgg-queries="own=1,wishlist=1&wishlistpriority=1"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gameshelfapp/gameshelf-server/internal/bgg"
	"github.com/gameshelfapp/gameshelf-server/internal/cache"
	"github.com/gameshelfapp/gameshelf-server/internal/config"
	"github.com/gameshelfapp/gameshelf-server/internal/fetch"
	"github.com/gameshelfapp/gameshelf-server/internal/logger"
	"github.com/gameshelfapp/gameshelf-server/internal/normalize"
	"github.com/gameshelfapp/gameshelf-server/internal/reconcile"
	"github.com/gameshelfapp/gameshelf-server/internal/service"
	"github.com/gameshelfapp/gameshelf-server/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Sync failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queries, err := service.ParseQueries(cfg.BGG.Queries)
	if err != nil {
		return err
	}

	respCache, err := cache.New(cfg.CacheDir(), cfg.Cache.TTL, log.Logger)
	if err != nil {
		return fmt.Errorf("open response cache: %w", err)
	}
	defer respCache.Close()

	st, err := store.Open(cfg.DatabasePath(), log.Logger)
	if err != nil {
		return fmt.Errorf("open snapshot database: %w", err)
	}
	defer st.Close()

	client := bgg.New(log.Logger, bgg.WithCache(respCache))
	defer client.Close()

	fetcher := fetch.New(client, log.Logger)
	engine := reconcile.NewEngine(reconcile.DefaultTable(), normalize.DefaultAliases(), log.Logger)
	svc := service.NewSyncService(fetcher, engine, st, log.Logger)

	if _, err := svc.Run(ctx, cfg.BGG.Username, queries); err != nil {
		return err
	}
	return nil
}
