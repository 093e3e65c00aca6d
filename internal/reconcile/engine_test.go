package reconcile

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameshelfapp/gameshelf-server/internal/bgg"
	"github.com/gameshelfapp/gameshelf-server/internal/fetch"
	"github.com/gameshelfapp/gameshelf-server/internal/game"
	"github.com/gameshelfapp/gameshelf-server/internal/normalize"
)

func testEngine() *Engine {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return NewEngine(DefaultTable(), normalize.DefaultAliases(), logger)
}

// snapshot builds a fetch result the way the fetcher would index it.
func snapshot(entries []bgg.CollectionEntry, details []bgg.ItemDetail) *fetch.Result {
	byItem := make(map[int64][]bgg.CollectionEntry, len(entries))
	for _, e := range entries {
		byItem[e.ID] = append(byItem[e.ID], e)
	}
	return &fetch.Result{Entries: entries, Details: details, EntriesByItem: byItem}
}

func ownedGame(id int64, name string) bgg.ItemDetail {
	return bgg.ItemDetail{ID: id, Type: bgg.TypeBoardGame, Name: name}
}

func expansionOf(id int64, name string, targets ...int64) bgg.ItemDetail {
	return bgg.ItemDetail{
		ID:    id,
		Type:  bgg.TypeExpansion,
		Name:  name,
		Edges: inboundEdges(bgg.EdgeExpansion, targets),
	}
}

func accessoryOf(id int64, name string, targets ...int64) bgg.ItemDetail {
	return bgg.ItemDetail{
		ID:    id,
		Type:  bgg.TypeAccessory,
		Name:  name,
		Edges: inboundEdges(bgg.EdgeAccessory, targets),
	}
}

func inboundEdges(kind string, targets []int64) []bgg.RelationshipEdge {
	var edges []bgg.RelationshipEdge
	for _, t := range targets {
		edges = append(edges, bgg.RelationshipEdge{Kind: kind, ID: t, Inbound: true})
	}
	return edges
}

func entryFor(id int64, name string) bgg.CollectionEntry {
	return bgg.CollectionEntry{ID: id, CollectionID: id * 1000, Name: name}
}

func findGame(t *testing.T, games []*game.BoardGame, id int64) *game.BoardGame {
	t.Helper()
	for _, g := range games {
		if g.ID == id {
			return g
		}
	}
	t.Fatalf("no record with id %d", id)
	return nil
}

func childNames(children []*game.BoardGame) []string {
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name)
	}
	return names
}

func TestReconcile_LinksExpansionsAndAccessories(t *testing.T) {
	result := snapshot(
		[]bgg.CollectionEntry{
			entryFor(10, "Scythe"),
			entryFor(11, "Scythe: Invaders from Afar"),
			entryFor(12, "Scythe: Metal Coins"),
		},
		[]bgg.ItemDetail{
			ownedGame(10, "Scythe"),
			expansionOf(11, "Scythe: Invaders from Afar", 10),
			accessoryOf(12, "Scythe: Metal Coins", 10),
		},
	)

	games := testEngine().Reconcile(result)
	require.Len(t, games, 1)

	scythe := games[0]
	assert.Equal(t, int64(10), scythe.ID)
	assert.Equal(t, "Scythe", scythe.Name)
	assert.Equal(t, []string{"Invaders from Afar"}, childNames(scythe.Expansions))
	assert.Equal(t, []string{"Metal Coins"}, childNames(scythe.Accessories))
	assert.Equal(t, int64(11), scythe.Expansions[0].ID)
	assert.Empty(t, scythe.Expansions[0].Expansions)
}

func TestReconcile_CorrectionOutranksCatalogEdges(t *testing.T) {
	// The catalog reports this expansion under the wrong base game; the
	// correction table pins it to the right one.
	result := snapshot(
		[]bgg.CollectionEntry{
			entryFor(183394, "Viticulture World"),
			entryFor(5000, "Viticulture"),
			entryFor(147101, "Cooperative Expansion"),
		},
		[]bgg.ItemDetail{
			ownedGame(183394, "Viticulture World"),
			ownedGame(5000, "Viticulture"),
			expansionOf(147101, "Cooperative Expansion", 5000),
		},
	)

	games := testEngine().Reconcile(result)
	require.Len(t, games, 2)

	corrected := findGame(t, games, 183394)
	require.Len(t, corrected.Expansions, 1)
	assert.Equal(t, int64(147101), corrected.Expansions[0].ID)
	assert.Empty(t, findGame(t, games, 5000).Expansions)
}

func TestReconcile_ExactlyOneOwner(t *testing.T) {
	// An expansion usable with two owned games still nests under exactly
	// one of them, the first the catalog lists.
	result := snapshot(
		[]bgg.CollectionEntry{
			entryFor(20, "King of Tokyo"),
			entryFor(30, "King of New York"),
			entryFor(21, "King of Tokyo: Power Up!"),
		},
		[]bgg.ItemDetail{
			ownedGame(20, "King of Tokyo"),
			ownedGame(30, "King of New York"),
			expansionOf(21, "King of Tokyo: Power Up!", 20, 30),
		},
	)

	games := testEngine().Reconcile(result)
	require.Len(t, games, 2)

	assert.Len(t, findGame(t, games, 20).Expansions, 1)
	assert.Empty(t, findGame(t, games, 30).Expansions)
}

func TestReconcile_TransitiveThroughExpansion(t *testing.T) {
	// An expansion of an expansion inherits to the base game.
	result := snapshot(
		[]bgg.CollectionEntry{
			entryFor(40, "Root"),
			entryFor(41, "Root: The Riverfolk Expansion"),
			entryFor(42, "Root: Riverfolk Hirelings"),
		},
		[]bgg.ItemDetail{
			ownedGame(40, "Root"),
			expansionOf(41, "Root: The Riverfolk Expansion", 40),
			expansionOf(42, "Root: Riverfolk Hirelings", 41),
		},
	)

	games := testEngine().Reconcile(result)
	require.Len(t, games, 1)

	root := games[0]
	assert.Equal(t, []string{"Riverfolk Expansion, The", "Riverfolk Hirelings"},
		childNames(root.Expansions))
}

func TestReconcile_PromoBoxStandsAlone(t *testing.T) {
	// A promo box belongs to the promo-box family and holds promos for
	// many games. It becomes its own display game even when its edges
	// point at an owned game, and collects its own children.
	box := accessoryOf(60, "Treasure Chest", 50)
	box.Families = []bgg.LinkRef{{ID: 39378, Name: "Promotional: Promo Boxes"}}

	result := snapshot(
		[]bgg.CollectionEntry{
			entryFor(50, "Carcassonne"),
			entryFor(60, "Treasure Chest"),
			entryFor(61, "Treasure Chest: Mini Expansion"),
		},
		[]bgg.ItemDetail{
			ownedGame(50, "Carcassonne"),
			box,
			expansionOf(61, "Treasure Chest: Mini Expansion", 60),
		},
	)

	games := testEngine().Reconcile(result)
	require.Len(t, games, 2)

	assert.Empty(t, findGame(t, games, 50).Accessories)
	chest := findGame(t, games, 60)
	assert.Equal(t, "Treasure Chest", chest.Name)
	assert.Equal(t, []string{"Mini Expansion"}, childNames(chest.Expansions))
}

func TestReconcile_OrphansSplitAcrossPlaceholders(t *testing.T) {
	crystal := expansionOf(80, "Crystal Mosaic", 9999)
	crystal.MinPlayers = 2
	crystal.MaxPlayers = 4
	crystal.SuggestedCounts = []bgg.SuggestedCount{{Count: "2", Label: bgg.LabelBest}}

	result := snapshot(
		[]bgg.CollectionEntry{
			entryFor(70, "Azul"),
			entryFor(80, "Crystal Mosaic"),
			entryFor(81, "Joker Tiles"),
			entryFor(82, "Rainbow Set"),
			entryFor(83, "Zebra Sleeves"),
		},
		[]bgg.ItemDetail{
			ownedGame(70, "Azul"),
			crystal,
			expansionOf(81, "Joker Tiles", 9999),
			expansionOf(82, "Rainbow Set"),
			accessoryOf(83, "Zebra Sleeves"),
		},
	)

	games := testEngine().Reconcile(result)
	require.Len(t, games, 4)

	assert.Equal(t, int64(-1), games[0].ID)
	assert.Equal(t, "Assorted Extras", games[0].Name)
	assert.Equal(t, int64(-2), games[1].ID)
	assert.Equal(t, "Assorted Extras J-Q", games[1].Name)
	assert.Equal(t, int64(-3), games[2].ID)
	assert.Equal(t, "Assorted Extras R-Z", games[2].Name)
	assert.Equal(t, "Azul", games[3].Name)

	assert.Equal(t, []string{"Crystal Mosaic"}, childNames(games[0].Expansions))
	assert.Equal(t, []string{"Joker Tiles"}, childNames(games[1].Expansions))
	assert.Equal(t, []string{"Rainbow Set"}, childNames(games[2].Expansions))
	assert.Equal(t, []string{"Zebra Sleeves"}, childNames(games[2].Accessories))

	// An orphaned expansion drops its poll labels: a placeholder is not
	// a recommendation, so only the supported range survives.
	for _, f := range games[0].Expansions[0].Players {
		assert.Equal(t, game.LevelSupported, f.Level, "count %s", f.Count)
	}

	assert.Equal(t, "Unknown", games[0].Weight)
	assert.Equal(t, float64(-1), games[0].WeightRating)
	assert.Equal(t, "Unknown", games[0].PlayingTime)
	assert.Empty(t, findGame(t, games, 70).Expansions)
}

func TestReconcile_OnlyNonEmptyBucketsMaterialize(t *testing.T) {
	result := snapshot(
		[]bgg.CollectionEntry{
			entryFor(70, "Azul"),
			entryFor(81, "Joker Tiles"),
		},
		[]bgg.ItemDetail{
			ownedGame(70, "Azul"),
			expansionOf(81, "Joker Tiles"),
		},
	)

	games := testEngine().Reconcile(result)
	require.Len(t, games, 2)
	assert.Equal(t, int64(-2), games[0].ID)
	assert.Equal(t, "Assorted Extras J-Q", games[0].Name)
}

func TestReconcile_SortedOutput(t *testing.T) {
	result := snapshot(
		[]bgg.CollectionEntry{
			entryFor(90, "Zombicide"),
			entryFor(91, "azul"),
			entryFor(92, "Brass: Birmingham"),
			entryFor(93, "The Crew"),
		},
		[]bgg.ItemDetail{
			ownedGame(90, "Zombicide"),
			ownedGame(91, "azul"),
			ownedGame(92, "Brass: Birmingham"),
			ownedGame(93, "The Crew"),
		},
	)

	games := testEngine().Reconcile(result)
	require.Len(t, games, 4)

	names := make([]string, len(games))
	for i, g := range games {
		names[i] = g.Name
	}
	assert.Equal(t, []string{"azul", "Brass: Birmingham", "Crew, The", "Zombicide"}, names)
}

func TestReconcile_MultipleCopiesSingleRecord(t *testing.T) {
	first := entryFor(100, "Alhambra")
	first.CollectionID = 1
	first.VersionName = "First printing"
	first.NumPlays = 12
	second := entryFor(100, "Alhambra")
	second.CollectionID = 2
	second.VersionName = "Big Box edition"

	result := snapshot(
		[]bgg.CollectionEntry{first, second},
		[]bgg.ItemDetail{ownedGame(100, "Alhambra")},
	)

	games := testEngine().Reconcile(result)
	require.Len(t, games, 1)

	assert.Equal(t, int64(1), games[0].CollectionID)
	assert.Equal(t, "First printing", games[0].VersionName)
	assert.Equal(t, 12, games[0].NumPlays)
}
