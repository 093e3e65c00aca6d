// Package game assembles display-ready records from catalog detail and
// collection entries.
package game

import (
	"strconv"
	"time"

	"github.com/gameshelfapp/gameshelf-server/internal/bgg"
	"github.com/gameshelfapp/gameshelf-server/internal/normalize"
)

// PublicDomainPublisher is the catalog id that attributes a work to the
// public domain instead of a publisher.
const PublicDomainPublisher int64 = 171

type Publisher struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Own  bool   `json:"own,omitempty"`
}

// Rank is a secondary rank entry (family or subdomain rank).
type Rank struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BoardGame is the reconciled record for one collection item.
// Expansions and accessories nest the same type one level down; nested
// records carry no children of their own.
type BoardGame struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	AltNames        []string     `json:"alternate_names,omitempty"`
	Description     string       `json:"description,omitempty"`
	Year            int          `json:"year,omitzero"`
	Image           string       `json:"image,omitempty"`
	Categories      []string     `json:"categories,omitempty"`
	Mechanics       []string     `json:"mechanics,omitempty"`
	Families        []string     `json:"families,omitempty"`
	Designers       []string     `json:"designers,omitempty"`
	Artists         []string     `json:"artists,omitempty"`
	Publishers      []Publisher  `json:"publishers,omitempty"`
	Reimplements    []string     `json:"reimplements,omitempty"`
	ReimplementedBy []string     `json:"reimplementedby,omitempty"`
	Players         []Facet      `json:"players,omitempty"`
	MinPlayers      int          `json:"min_players,omitzero"`
	MaxPlayers      int          `json:"max_players,omitzero"`
	Weight          string       `json:"weight"`
	WeightRating    float64      `json:"weight_rating"`
	PlayingTime     string       `json:"playing_time"`
	MinAge          int          `json:"min_age,omitzero"`
	SuggestedAge    float64      `json:"suggested_age,omitzero"`
	Rank            int          `json:"rank,omitzero"`
	OtherRanks      []Rank       `json:"other_ranks,omitempty"`
	UsersRated      int          `json:"usersrated"`
	NumOwned        int          `json:"numowned"`
	Average         float64      `json:"average"`
	Rating          float64      `json:"rating"`
	NumPlays        int          `json:"numplays"`
	Tags            []string     `json:"tags,omitempty"`
	PreviousPlayers []string     `json:"previous_players,omitempty"`
	Comment         string       `json:"comment,omitempty"`
	WishlistComment string       `json:"wishlist_comment,omitempty"`
	Expansions      []*BoardGame `json:"expansions,omitempty"`
	Accessories     []*BoardGame `json:"accessories,omitempty"`
	LastModified    time.Time    `json:"last_modified,omitzero"`
	CollectionID    int64        `json:"collection_id,omitzero"`
	VersionName     string       `json:"version_name,omitempty"`
	VersionYear     int          `json:"version_year,omitzero"`
}

// Build assembles one record. Child records must already be built; the
// caller rewrites their names against the owner's title set.
func Build(detail *bgg.ItemDetail, entry bgg.CollectionEntry, aliases []normalize.AliasRule, expansions, accessories []*BoardGame) *BoardGame {
	name := entry.Name
	if name == "" {
		name = detail.Name
	}
	rank, _ := strconv.Atoi(detail.Rank)

	return &BoardGame{
		ID:              detail.ID,
		Name:            normalize.SortTitle(name),
		AltNames:        normalize.AlternateNames(entry.Name, detail.Name, detail.AltNames, aliases),
		Description:     detail.Description,
		Year:            detail.Year,
		Image:           entry.BestImage(detail.Image),
		Categories:      detail.Categories,
		Mechanics:       detail.Mechanics,
		Families:        displayFamilies(detail.Families),
		Designers:       detail.Designers,
		Artists:         detail.Artists,
		Publishers:      buildPublishers(detail.Publishers, entry.VersionPublisherID),
		Reimplements:    implementationNames(detail, true),
		ReimplementedBy: implementationNames(detail, false),
		Players:         playerFacets(detail, expansions),
		MinPlayers:      detail.MinPlayers,
		MaxPlayers:      detail.MaxPlayers,
		Weight:          weightBucket(detail.Weight, detail.HasWeight),
		WeightRating:    weightRating(detail),
		PlayingTime:     timeBucket(detail.PlayingTime),
		MinAge:          detail.MinAge,
		SuggestedAge:    suggestedAge(detail.AgeVotes),
		Rank:            rank,
		OtherRanks:      displayRanks(detail.OtherRanks),
		UsersRated:      detail.UsersRated,
		NumOwned:        detail.NumOwned,
		Average:         detail.Average,
		Rating:          detail.Rating,
		NumPlays:        entry.NumPlays,
		Tags:            entry.Tags,
		PreviousPlayers: entry.Players,
		Comment:         entry.Comment,
		WishlistComment: entry.WishlistComment,
		Expansions:      expansions,
		Accessories:     accessories,
		LastModified:    entry.LastModified,
		CollectionID:    entry.CollectionID,
		VersionName:     entry.VersionName,
		VersionYear:     entry.VersionYear,
	}
}

// buildPublishers collapses the list to the public-domain entry when one
// is present; otherwise the publisher behind the owned version is
// flagged.
func buildPublishers(publishers []bgg.LinkRef, versionPublisher int64) []Publisher {
	for _, p := range publishers {
		if p.ID == PublicDomainPublisher {
			return []Publisher{{ID: p.ID, Name: p.Name}}
		}
	}

	out := make([]Publisher, 0, len(publishers))
	for _, p := range publishers {
		out = append(out, Publisher{
			ID:   p.ID,
			Name: p.Name,
			Own:  versionPublisher != 0 && p.ID == versionPublisher,
		})
	}
	return out
}

func implementationNames(detail *bgg.ItemDetail, inbound bool) []string {
	var names []string
	for _, edge := range detail.Edges {
		if edge.Kind == bgg.EdgeImplementation && edge.Inbound == inbound {
			names = append(names, edge.Name)
		}
	}
	return names
}
