package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gameshelfapp/gameshelf-server/internal/bgg"
)

// Catalog is the slice of the catalog client the fetcher depends on.
type Catalog interface {
	Collection(ctx context.Context, username string, params url.Values) ([]bgg.CollectionEntry, error)
	Things(ctx context.Context, ids []int64) ([]bgg.ItemDetail, error)
	Plays(ctx context.Context, username string) ([]bgg.PlayEntry, error)
}

// Result is one user's deduplicated collection snapshot, indexed for
// reconciliation.
type Result struct {
	Entries []bgg.CollectionEntry
	Details []bgg.ItemDetail
	Plays   []bgg.PlayEntry

	// EntriesByItem groups collection entries by item id. One item can
	// appear as several entries when the user owns multiple versions.
	EntriesByItem map[int64][]bgg.CollectionEntry
}

// ItemEntries returns the collection entries for one item id.
func (r *Result) ItemEntries(id int64) []bgg.CollectionEntry {
	return r.EntriesByItem[id]
}

// Fetcher runs the query plan for one user: one collection query per
// parameter set, an accessory query, chunked item-detail fetches and the
// paginated play log.
type Fetcher struct {
	catalog Catalog
	logger  *slog.Logger
}

func New(catalog Catalog, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		catalog: catalog,
		logger:  logger,
	}
}

// defaultParams is used when the caller passes no parameter sets.
var defaultParams = url.Values{"own": {"1"}}

// Fetch downloads and indexes the full snapshot. Requests run strictly
// sequentially; the upstream queues collection generation per user and
// punishes parallel callers.
func (f *Fetcher) Fetch(ctx context.Context, username string, paramSets []url.Values) (*Result, error) {
	if len(paramSets) == 0 {
		paramSets = []url.Values{defaultParams}
	}

	var entries []bgg.CollectionEntry
	for _, params := range paramSets {
		batch, err := f.catalog.Collection(ctx, username, params)
		if err != nil {
			return nil, fmt.Errorf("fetch collection: %w", err)
		}
		entries = append(entries, batch...)
	}

	// Accessories live under their own subtype and never show up in the
	// main queries. They ride along with the first parameter set.
	accessoryParams := cloneParams(paramSets[0])
	accessoryParams.Set("subtype", bgg.TypeAccessory)
	accessories, err := f.catalog.Collection(ctx, username, accessoryParams)
	if err != nil {
		return nil, fmt.Errorf("fetch accessories: %w", err)
	}
	entries = append(entries, accessories...)
	entries = dedupeEntries(entries)

	details, err := f.catalog.Things(ctx, itemIDs(entries))
	if err != nil {
		return nil, fmt.Errorf("fetch item details: %w", err)
	}
	details = dedupeDetails(details)

	plays, err := f.catalog.Plays(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("fetch plays: %w", err)
	}
	plays = dedupePlays(plays)
	mergePlayers(entries, plays)

	result := &Result{
		Entries:       entries,
		Details:       details,
		Plays:         plays,
		EntriesByItem: make(map[int64][]bgg.CollectionEntry, len(entries)),
	}
	for _, entry := range entries {
		result.EntriesByItem[entry.ID] = append(result.EntriesByItem[entry.ID], entry)
	}

	f.logger.Info("collection snapshot fetched",
		"user", username,
		"entries", len(entries),
		"items", len(details),
		"plays", len(plays))

	return result, nil
}

func cloneParams(params url.Values) url.Values {
	clone := make(url.Values, len(params)+1)
	for k, vs := range params {
		clone[k] = append([]string(nil), vs...)
	}
	return clone
}

// itemIDs returns the distinct item ids behind the entries, in first-seen
// order.
func itemIDs(entries []bgg.CollectionEntry) []int64 {
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		seen[entry.ID] = struct{}{}
		ids = append(ids, entry.ID)
	}
	return ids
}

// Disjoint status queries can still return overlapping rows; the first
// occurrence wins everywhere.

func dedupeEntries(entries []bgg.CollectionEntry) []bgg.CollectionEntry {
	seen := make(map[int64]struct{}, len(entries))
	out := entries[:0]
	for _, entry := range entries {
		if _, ok := seen[entry.CollectionID]; ok {
			continue
		}
		seen[entry.CollectionID] = struct{}{}
		out = append(out, entry)
	}
	return out
}

func dedupeDetails(details []bgg.ItemDetail) []bgg.ItemDetail {
	seen := make(map[int64]struct{}, len(details))
	out := details[:0]
	for _, detail := range details {
		if _, ok := seen[detail.ID]; ok {
			continue
		}
		seen[detail.ID] = struct{}{}
		out = append(out, detail)
	}
	return out
}

func dedupePlays(plays []bgg.PlayEntry) []bgg.PlayEntry {
	seen := make(map[int64]struct{}, len(plays))
	out := plays[:0]
	for _, play := range plays {
		if _, ok := seen[play.PlayID]; ok {
			continue
		}
		seen[play.PlayID] = struct{}{}
		out = append(out, play)
	}
	return out
}

// mergePlayers fills each entry's player list from the play log: every
// name that ever sat down for that game, once, in first-seen order.
func mergePlayers(entries []bgg.CollectionEntry, plays []bgg.PlayEntry) {
	players := make(map[int64][]string)
	seen := make(map[int64]map[string]struct{})
	for _, play := range plays {
		if seen[play.GameID] == nil {
			seen[play.GameID] = make(map[string]struct{})
		}
		for _, name := range play.Players {
			if _, ok := seen[play.GameID][name]; ok {
				continue
			}
			seen[play.GameID][name] = struct{}{}
			players[play.GameID] = append(players[play.GameID], name)
		}
	}

	for i := range entries {
		entries[i].Players = players[entries[i].ID]
	}
}
