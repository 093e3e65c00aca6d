// Package reconcile links fetched catalog items into the final nested
// game structure: expansions and accessories attach to the owned game
// their inbound edges point at, correction links patch catalog gaps,
// and whatever remains lands on a synthetic placeholder split into
// alphabetical buckets.
package reconcile

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/gameshelfapp/gameshelf-server/internal/bgg"
	"github.com/gameshelfapp/gameshelf-server/internal/fetch"
	"github.com/gameshelfapp/gameshelf-server/internal/game"
	"github.com/gameshelfapp/gameshelf-server/internal/normalize"
)

type Engine struct {
	table   Table
	aliases []normalize.AliasRule
	logger  *slog.Logger
}

func NewEngine(table Table, aliases []normalize.AliasRule, logger *slog.Logger) *Engine {
	return &Engine{
		table:   table,
		aliases: aliases,
		logger:  logger,
	}
}

// accumulator collects the children attaching to one base game.
type accumulator struct {
	expansions  []*bgg.ItemDetail
	accessories []*bgg.ItemDetail
}

func (a *accumulator) add(item *bgg.ItemDetail) {
	if item.Type == bgg.TypeAccessory {
		a.accessories = append(a.accessories, item)
	} else {
		a.expansions = append(a.expansions, item)
	}
}

func (a *accumulator) empty() bool {
	return len(a.expansions) == 0 && len(a.accessories) == 0
}

// Reconcile builds the final record set from a fetched snapshot. One
// record per distinct item id; a game owned in several versions takes
// its collection fields from the first entry.
func (e *Engine) Reconcile(input *fetch.Result) []*game.BoardGame {
	details := make(map[int64]*bgg.ItemDetail, len(input.Details))
	items := make([]*bgg.ItemDetail, len(input.Details))
	for i := range input.Details {
		items[i] = &input.Details[i]
		details[items[i].ID] = items[i]
	}

	e.applyCorrections(details)

	var games, nonGames []*bgg.ItemDetail
	for _, item := range items {
		if item.Type == bgg.TypeBoardGame {
			games = append(games, item)
		} else {
			nonGames = append(nonGames, item)
		}
	}

	owners := make(map[int64]*accumulator, len(games))
	for _, g := range games {
		owners[g.ID] = &accumulator{}
	}

	// Promo boxes collect promos for many different games; they stand
	// as their own base game and stay out of the edge walk.
	var promoted, walkable []*bgg.ItemDetail
	for _, item := range nonGames {
		if e.isPromoBox(item) {
			owners[item.ID] = &accumulator{}
			promoted = append(promoted, item)
			continue
		}
		walkable = append(walkable, item)
	}

	// First pass: direct inbound edges. Each item attaches to at most
	// one owner.
	placedUnder := make(map[int64]int64)
	var unplaced []*bgg.ItemDetail
	for _, item := range walkable {
		if owner, ok := firstOwnedTarget(item, owners); ok {
			owners[owner].add(item)
			placedUnder[item.ID] = owner
		} else {
			unplaced = append(unplaced, item)
		}
	}

	// Second pass: an expansion's own children inherit to its base
	// game.
	var orphans []*bgg.ItemDetail
	for _, item := range unplaced {
		if owner, ok := transitiveTarget(item, placedUnder); ok {
			owners[owner].add(item)
			placedUnder[item.ID] = owner
		} else {
			orphans = append(orphans, item)
		}
	}

	// Whatever is left lands on the placeholder. Orphaned expansions
	// lose their poll data, a placeholder is not a recommendation.
	placeholder := &accumulator{}
	for _, item := range orphans {
		if item.Type == bgg.TypeExpansion {
			item.SuggestedCounts = nil
		}
		placeholder.add(item)
	}

	built := make([]*game.BoardGame, 0, len(games)+len(promoted)+3)
	for _, g := range games {
		built = append(built, e.buildGame(g, owners[g.ID], input))
	}
	for _, p := range promoted {
		built = append(built, e.buildGame(p, owners[p.ID], input))
	}
	built = append(built, e.buildPlaceholders(placeholder, input)...)

	slices.SortFunc(built, func(a, b *game.BoardGame) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	e.logger.Info("collection reconciled",
		"games", len(games),
		"promoted", len(promoted),
		"linked", len(placedUnder),
		"orphans", len(orphans))

	return built
}

// applyCorrections prepends the asserted edges so they outrank whatever
// the catalog reports. A correction for an item that was not fetched is
// ignored.
func (e *Engine) applyCorrections(details map[int64]*bgg.ItemDetail) {
	for _, link := range e.table.Links {
		item, ok := details[link.Source]
		if !ok {
			continue
		}
		edge := bgg.RelationshipEdge{
			Kind:    bgg.EdgeExpansion,
			ID:      link.Target,
			Inbound: true,
		}
		item.Edges = append([]bgg.RelationshipEdge{edge}, item.Edges...)
	}
}

func (e *Engine) isPromoBox(item *bgg.ItemDetail) bool {
	for _, id := range e.table.PromoBoxFamilies {
		if item.InFamily(id) {
			return true
		}
	}
	return false
}

// firstOwnedTarget walks the item's edges in order and returns the
// first inbound target that is an owned base game.
func firstOwnedTarget(item *bgg.ItemDetail, owners map[int64]*accumulator) (int64, bool) {
	for _, edge := range item.Edges {
		if !edge.Inbound || !linkingEdge(edge.Kind) {
			continue
		}
		if _, ok := owners[edge.ID]; ok {
			return edge.ID, true
		}
	}
	return 0, false
}

// transitiveTarget resolves an item whose inbound edge points at an
// expansion that has already found its base game.
func transitiveTarget(item *bgg.ItemDetail, placedUnder map[int64]int64) (int64, bool) {
	for _, edge := range item.Edges {
		if !edge.Inbound || !linkingEdge(edge.Kind) {
			continue
		}
		if owner, ok := placedUnder[edge.ID]; ok {
			return owner, true
		}
	}
	return 0, false
}

func linkingEdge(kind string) bool {
	return kind == bgg.EdgeExpansion || kind == bgg.EdgeAccessory
}

func (e *Engine) buildGame(detail *bgg.ItemDetail, acc *accumulator, input *fetch.Result) *game.BoardGame {
	entry := firstEntry(input, detail.ID)
	ownerNames := normalize.AlternateNames(entry.Name, detail.Name, detail.AltNames, e.aliases)

	expansions := e.buildChildren(acc.expansions, ownerNames, input)
	accessories := e.buildChildren(acc.accessories, ownerNames, input)

	return game.Build(detail, entry, e.aliases, expansions, accessories)
}

// buildChildren builds nested records and rewrites their names against
// the owner's title set.
func (e *Engine) buildChildren(items []*bgg.ItemDetail, ownerNames []string, input *fetch.Result) []*game.BoardGame {
	if len(items) == 0 {
		return nil
	}

	children := make([]*game.BoardGame, 0, len(items))
	for _, item := range items {
		entry := firstEntry(input, item.ID)
		child := game.Build(item, entry, e.aliases, nil, nil)
		child.Name = normalize.SortTitle(normalize.ChildName(ownerNames, displayName(item, entry)))
		children = append(children, child)
	}
	return children
}

// buildPlaceholders splits the placeholder's children into alphabetical
// buckets: A-I stays on the placeholder itself, J-Q and R-Z become
// display-level games of their own. Empty buckets are skipped.
func (e *Engine) buildPlaceholders(acc *accumulator, input *fetch.Result) []*game.BoardGame {
	if acc.empty() {
		return nil
	}

	base := e.table.Placeholder
	buckets := [3]*accumulator{{}, {}, {}}
	names := [3]string{
		base.Name,
		fmt.Sprintf("%s J-Q", base.Name),
		fmt.Sprintf("%s R-Z", base.Name),
	}

	for _, item := range acc.expansions {
		buckets[bucketIndex(displayName(item, firstEntry(input, item.ID)))].add(item)
	}
	for _, item := range acc.accessories {
		buckets[bucketIndex(displayName(item, firstEntry(input, item.ID)))].add(item)
	}

	var out []*game.BoardGame
	for i, bucket := range buckets {
		if bucket.empty() {
			continue
		}
		detail := &bgg.ItemDetail{
			ID:   base.ID - int64(i),
			Type: bgg.TypeBoardGame,
			Name: names[i],
		}
		out = append(out, e.buildGame(detail, bucket, input))
	}
	return out
}

// bucketIndex buckets by uppercased first character: digits and A-I on
// the placeholder, J-Q and R-Z (plus anything beyond) on the overflow
// games.
func bucketIndex(name string) int {
	for _, r := range name {
		r = unicode.ToUpper(r)
		switch {
		case r <= 'I':
			return 0
		case r <= 'Q':
			return 1
		default:
			return 2
		}
	}
	return 0
}

func displayName(item *bgg.ItemDetail, entry bgg.CollectionEntry) string {
	if entry.Name != "" {
		return entry.Name
	}
	return item.Name
}

func firstEntry(input *fetch.Result, id int64) bgg.CollectionEntry {
	entries := input.ItemEntries(id)
	if len(entries) == 0 {
		return bgg.CollectionEntry{}
	}
	return entries[0]
}
