// Package cache persists raw catalog responses between sync runs so a
// re-run after a partial failure replays from disk instead of hammering
// the upstream again.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL keeps responses long enough to restart a failed sync but
// short enough that a routine daily run sees fresh data.
const DefaultTTL = 12 * time.Hour

// Cache is a Badger-backed response cache keyed by request URL. Entries
// expire on their own; a cache directory can always be deleted outright.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// New opens (or creates) a response cache at path.
func New(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logging
	// Cache entries are expendable, so writes stay async.

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open response cache: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{
		db:     db,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get returns the cached body for a request URL, if present and not
// expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	var body []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return body, true
}

// Set stores a response body under the request URL with the cache's TTL.
func (c *Cache) Set(key string, body []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), body).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
