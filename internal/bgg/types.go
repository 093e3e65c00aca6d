package bgg

import "time"

// Item types reported by the catalog.
const (
	TypeBoardGame = "boardgame"
	TypeExpansion = "boardgameexpansion"
	TypeAccessory = "boardgameaccessory"
)

// Relationship edge kinds. These mirror the catalog's link types.
const (
	EdgeExpansion      = "boardgameexpansion"
	EdgeAccessory      = "boardgameaccessory"
	EdgeImplementation = "boardgameimplementation"
)

// Recommendation labels for a suggested player count.
const (
	LabelBest           = "best"
	LabelRecommended    = "recommended"
	LabelNotRecommended = "not_recommended"
)

// CollectionEntry is one physical copy in a user's collection. Two copies
// of the same game share an item ID but have distinct collection IDs.
type CollectionEntry struct {
	ID           int64 // catalog item id
	CollectionID int64 // unique per physical copy

	Name         string
	Image        string // thumbnail reported for the item
	ImageVersion string // thumbnail of the specific owned version, if any

	VersionName        string
	VersionYear        int
	VersionPublisherID int64

	Tags     []string // ownership statuses reported as "1" (own, wishlist, ...)
	NumPlays int

	Comment         string
	WishlistComment string
	LastModified    time.Time

	// Unique player names from the user's logged plays of this item.
	// Populated by the fetcher, not by the collection query itself.
	Players []string
}

// BestImage returns the best available cover for the entry, preferring
// the owned version's art over the generic item art.
func (e *CollectionEntry) BestImage(fallback string) string {
	if e.ImageVersion != "" {
		return e.ImageVersion
	}
	if e.Image != "" {
		return e.Image
	}
	return fallback
}

// HasTag reports whether the entry carries the given ownership status.
func (e *CollectionEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RelationshipEdge is a directed link between two catalog items. Inbound
// edges are recorded on the expansion/accessory side and point at the base
// item they belong to.
type RelationshipEdge struct {
	Kind    string
	ID      int64
	Name    string
	Inbound bool
}

// LinkRef is a named reference to another catalog entity (publisher,
// family, and so on).
type LinkRef struct {
	ID   int64
	Name string
}

// SuggestedCount is one candidate player count with its vote-derived
// recommendation label. Counts are strings because the catalog reports
// open-ended values like "4+".
type SuggestedCount struct {
	Count string
	Label string
}

// AgeVote is one bucket of the suggested-player-age poll.
type AgeVote struct {
	Age   int
	Votes int
}

// RankEntry is one entry of the catalog's rank listing for an item.
type RankEntry struct {
	ID    string
	Name  string // friendly display label
	Value string // numeric rank, or "Not Ranked"
}

// ItemDetail is the catalog's full metadata for one item (game, expansion
// or accessory).
type ItemDetail struct {
	ID          int64
	Type        string
	Name        string
	AltNames    []string
	Description string
	Image       string
	Year        int

	MinPlayers  int
	MaxPlayers  int
	PlayingTime int
	MinAge      int

	Categories []string
	Mechanics  []string
	Families   []LinkRef
	Designers  []string
	Artists    []string
	Publishers []LinkRef

	// Outbound relationship edges as reported by the catalog, plus any
	// corrections applied before linking.
	Edges []RelationshipEdge

	SuggestedCounts []SuggestedCount
	AgeVotes        []AgeVote

	Weight     float64
	HasWeight  bool // false when the catalog reports no weight at all
	Average    float64
	Rating     float64 // bayes average
	UsersRated int
	NumOwned   int
	Rank       string // global rank, empty when unranked
	OtherRanks []RankEntry
}

// InboundTargets returns the ids of the items this detail declares itself
// a part of, for the given edge kind.
func (d *ItemDetail) InboundTargets(kind string) []int64 {
	var ids []int64
	for _, e := range d.Edges {
		if e.Inbound && e.Kind == kind {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// InFamily reports whether the item belongs to the family with the given id.
func (d *ItemDetail) InFamily(id int64) bool {
	for _, f := range d.Families {
		if f.ID == id {
			return true
		}
	}
	return false
}

// PlayEntry is one logged play session.
type PlayEntry struct {
	PlayID   int64
	GameID   int64
	GameName string
	Players  []string
}
