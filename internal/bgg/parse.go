package bgg

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Raw wire structs for the three document schemas the catalog returns.
// The field paths are fixed; anything beyond them is ignored.

type rawCollection struct {
	XMLName xml.Name            `xml:"items"`
	Items   []rawCollectionItem `xml:"item"`
}

type rawCollectionItem struct {
	ObjectID        int64      `xml:"objectid,attr"`
	CollID          int64      `xml:"collid,attr"`
	Name            string     `xml:"name"`
	Thumbnail       string     `xml:"thumbnail"`
	Version         rawVersion `xml:"version"`
	Status          rawStatus  `xml:"status"`
	NumPlays        int        `xml:"numplays"`
	Comment         string     `xml:"comment"`
	WishlistComment string     `xml:"wishlistcomment"`
}

type rawVersion struct {
	Item struct {
		Thumbnail string         `xml:"thumbnail"`
		Names     []rawValueName `xml:"name"`
		Year      rawValue       `xml:"yearpublished"`
		Links     []rawLink      `xml:"link"`
	} `xml:"item"`
}

type rawStatus struct {
	ForTrade     string `xml:"fortrade,attr"`
	Own          string `xml:"own,attr"`
	Preordered   string `xml:"preordered,attr"`
	PrevOwned    string `xml:"prevowned,attr"`
	Want         string `xml:"want,attr"`
	WantToBuy    string `xml:"wanttobuy,attr"`
	WantToPlay   string `xml:"wanttoplay,attr"`
	Wishlist     string `xml:"wishlist,attr"`
	LastModified string `xml:"lastmodified,attr"`
}

// tags returns the status attributes reported as "1", in a fixed order.
func (s rawStatus) tags() []string {
	var tags []string
	for _, st := range []struct {
		name  string
		value string
	}{
		{"fortrade", s.ForTrade},
		{"own", s.Own},
		{"preordered", s.Preordered},
		{"prevowned", s.PrevOwned},
		{"want", s.Want},
		{"wanttobuy", s.WantToBuy},
		{"wanttoplay", s.WantToPlay},
		{"wishlist", s.Wishlist},
	} {
		if st.value == "1" {
			tags = append(tags, st.name)
		}
	}
	return tags
}

type rawThings struct {
	XMLName xml.Name   `xml:"items"`
	Items   []rawThing `xml:"item"`
}

type rawThing struct {
	ID          int64          `xml:"id,attr"`
	Type        string         `xml:"type,attr"`
	Image       string         `xml:"thumbnail"`
	Names       []rawValueName `xml:"name"`
	Description string         `xml:"description"`
	Year        rawValue       `xml:"yearpublished"`
	MinPlayers  rawValue       `xml:"minplayers"`
	MaxPlayers  rawValue       `xml:"maxplayers"`
	PlayingTime rawValue       `xml:"playingtime"`
	MinAge      rawValue       `xml:"minage"`
	Links       []rawLink      `xml:"link"`
	Polls       []rawPoll      `xml:"poll"`
	Statistics  rawStatistics  `xml:"statistics"`
}

// validate checks the fields every usable item must carry.
func (it *rawThing) validate() error {
	if it.ID == 0 {
		return fmt.Errorf("%w: missing item id", ErrMalformedRecord)
	}
	if it.Type == "" {
		return fmt.Errorf("%w: item %d has no type", ErrMalformedRecord, it.ID)
	}
	if it.primaryName() == "" {
		return fmt.Errorf("%w: item %d has no primary name", ErrMalformedRecord, it.ID)
	}
	return nil
}

func (it *rawThing) primaryName() string {
	for _, n := range it.Names {
		if n.Type == "primary" {
			return n.Value
		}
	}
	return ""
}

func (it *rawThing) alternateNames() []string {
	var names []string
	for _, n := range it.Names {
		if n.Type == "alternate" && n.Value != "" {
			names = append(names, n.Value)
		}
	}
	return names
}

type rawValue struct {
	Value string `xml:"value,attr"`
}

type rawValueName struct {
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type rawLink struct {
	Type    string `xml:"type,attr"`
	ID      int64  `xml:"id,attr"`
	Value   string `xml:"value,attr"`
	Inbound bool   `xml:"inbound,attr"`
}

type rawPoll struct {
	Name    string       `xml:"name,attr"`
	Results []rawResults `xml:"results"`
}

type rawResults struct {
	NumPlayers string      `xml:"numplayers,attr"`
	Results    []rawResult `xml:"result"`
}

type rawResult struct {
	Value    string `xml:"value,attr"`
	NumVotes int    `xml:"numvotes,attr"`
}

type rawStatistics struct {
	Ratings struct {
		UsersRated rawValue  `xml:"usersrated"`
		Average    rawValue  `xml:"average"`
		Bayes      rawValue  `xml:"bayesaverage"`
		Owned      rawValue  `xml:"owned"`
		Weight     rawValue  `xml:"averageweight"`
		Ranks      []rawRank `xml:"ranks>rank"`
	} `xml:"ratings"`
}

type rawRank struct {
	ID           string `xml:"id,attr"`
	FriendlyName string `xml:"friendlyname,attr"`
	Value        string `xml:"value,attr"`
}

type rawPlays struct {
	XMLName xml.Name  `xml:"plays"`
	Plays   []rawPlay `xml:"play"`
}

type rawPlay struct {
	ID   int64 `xml:"id,attr"`
	Item struct {
		Name     string `xml:"name,attr"`
		ObjectID int64  `xml:"objectid,attr"`
	} `xml:"item"`
	Players []struct {
		Name string `xml:"name,attr"`
	} `xml:"players>player"`
}

const lastModifiedLayout = "2006-01-02 15:04:05"

// parseCollection maps a collection document into entries. Entries with
// no item id are dropped, never the whole batch.
func (c *Client) parseCollection(data []byte) ([]CollectionEntry, error) {
	var doc rawCollection
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode collection document: %w", err)
	}

	entries := make([]CollectionEntry, 0, len(doc.Items))
	for _, it := range doc.Items {
		if it.ObjectID == 0 {
			c.logger.Warn("dropping collection entry without item id", "name", it.Name)
			continue
		}

		entry := CollectionEntry{
			ID:              it.ObjectID,
			CollectionID:    it.CollID,
			Name:            it.Name,
			Image:           it.Thumbnail,
			ImageVersion:    it.Version.Item.Thumbnail,
			VersionYear:     atoi(it.Version.Item.Year.Value),
			Tags:            it.Status.tags(),
			NumPlays:        it.NumPlays,
			Comment:         it.Comment,
			WishlistComment: it.WishlistComment,
		}
		for _, n := range it.Version.Item.Names {
			if n.Type == "primary" {
				entry.VersionName = n.Value
				break
			}
		}
		for _, l := range it.Version.Item.Links {
			if l.Type == "publisher" || l.Type == "boardgameversionpublisher" {
				entry.VersionPublisherID = l.ID
				break
			}
		}
		if it.Status.LastModified != "" {
			if ts, err := time.Parse(lastModifiedLayout, it.Status.LastModified); err == nil {
				entry.LastModified = ts
			}
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// parseItems maps an item-detail document into ItemDetail records. An
// item missing a required field is dropped and logged.
func (c *Client) parseItems(data []byte) ([]ItemDetail, error) {
	var doc rawThings
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode item document: %w", err)
	}

	items := make([]ItemDetail, 0, len(doc.Items))
	for i := range doc.Items {
		it := &doc.Items[i]
		if err := it.validate(); err != nil {
			c.logger.Warn("dropping catalog item", "id", it.ID, "error", err)
			continue
		}

		detail := ItemDetail{
			ID:          it.ID,
			Type:        it.Type,
			Name:        it.primaryName(),
			AltNames:    it.alternateNames(),
			Description: cleanDescription(it.Description),
			Image:       it.Image,
			Year:        atoi(it.Year.Value),
			MinPlayers:  atoi(it.MinPlayers.Value),
			MaxPlayers:  atoi(it.MaxPlayers.Value),
			PlayingTime: atoi(it.PlayingTime.Value),
			MinAge:      atoi(it.MinAge.Value),
		}

		for _, l := range it.Links {
			switch l.Type {
			case "boardgamecategory":
				detail.Categories = append(detail.Categories, l.Value)
			case "boardgamemechanic":
				detail.Mechanics = append(detail.Mechanics, l.Value)
			case "boardgamefamily":
				detail.Families = append(detail.Families, LinkRef{ID: l.ID, Name: l.Value})
			case "boardgamedesigner":
				detail.Designers = append(detail.Designers, l.Value)
			case "boardgameartist":
				detail.Artists = append(detail.Artists, l.Value)
			case "boardgamepublisher":
				detail.Publishers = append(detail.Publishers, LinkRef{ID: l.ID, Name: l.Value})
			case EdgeExpansion, EdgeAccessory, EdgeImplementation:
				detail.Edges = append(detail.Edges, RelationshipEdge{
					Kind:    l.Type,
					ID:      l.ID,
					Name:    l.Value,
					Inbound: l.Inbound,
				})
			}
		}

		for _, poll := range it.Polls {
			switch poll.Name {
			case "suggested_numplayers":
				detail.SuggestedCounts = suggestedCounts(poll)
			case "suggested_playerage":
				detail.AgeVotes = ageVotes(poll)
			}
		}

		ratings := it.Statistics.Ratings
		detail.UsersRated = atoi(ratings.UsersRated.Value)
		detail.NumOwned = atoi(ratings.Owned.Value)
		detail.Average = atof(ratings.Average.Value)
		detail.Rating = atof(ratings.Bayes.Value)
		if w := strings.TrimSpace(ratings.Weight.Value); w != "" {
			detail.Weight = atof(w)
			detail.HasWeight = true
		}
		for _, r := range ratings.Ranks {
			if r.FriendlyName == "Board Game Rank" && r.Value != "Not Ranked" {
				detail.Rank = r.Value
			}
			detail.OtherRanks = append(detail.OtherRanks, RankEntry{
				ID:    r.ID,
				Name:  r.FriendlyName,
				Value: r.Value,
			})
		}

		items = append(items, detail)
	}

	return items, nil
}

// parsePlays maps one page of the play log. Plays that reference no item
// are dropped.
func (c *Client) parsePlays(data []byte) ([]PlayEntry, error) {
	var doc rawPlays
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode plays document: %w", err)
	}

	plays := make([]PlayEntry, 0, len(doc.Plays))
	for _, p := range doc.Plays {
		if p.ID == 0 || p.Item.ObjectID == 0 {
			c.logger.Warn("dropping play without id", "play", p.ID, "item", p.Item.ObjectID)
			continue
		}

		entry := PlayEntry{
			PlayID:   p.ID,
			GameID:   p.Item.ObjectID,
			GameName: p.Item.Name,
		}
		for _, pl := range p.Players {
			name := pl.Name
			if name == "" {
				name = "Unknown"
			}
			entry.Players = append(entry.Players, name)
		}

		plays = append(plays, entry)
	}

	return plays, nil
}

// suggestedCounts reduces the player-count poll to the counts worth
// showing: each candidate count gets a vote-derived label, counts voted
// not_recommended are removed, and a single surviving count is promoted
// to best (it is the only way the game is played).
func suggestedCounts(poll rawPoll) []SuggestedCount {
	counts := make([]SuggestedCount, 0, len(poll.Results))
	for _, res := range poll.Results {
		if res.NumPlayers == "" {
			continue
		}
		label := labelVotes(res.Results)
		if label == LabelNotRecommended {
			continue
		}
		counts = append(counts, SuggestedCount{Count: res.NumPlayers, Label: label})
	}

	if len(counts) == 1 {
		counts[0].Label = LabelBest
	}
	return counts
}

// labelVotes collapses the vote tuple for one candidate count into a
// single label. No votes at all counts as not recommended.
func labelVotes(results []rawResult) string {
	votes := make(map[string]int, len(results))
	for _, r := range results {
		key := strings.ReplaceAll(strings.ToLower(r.Value), " ", "_")
		votes[key] = r.NumVotes
	}

	best, recommended, not := votes[LabelBest], votes[LabelRecommended], votes[LabelNotRecommended]
	if best+recommended <= not {
		return LabelNotRecommended
	}
	if best > 10 && best > recommended {
		return LabelBest
	}
	return LabelRecommended
}

// ageVotes extracts the suggested-age poll. Age values are numeric except
// the open-ended top bucket ("21 and up"), which keeps its leading number.
func ageVotes(poll rawPoll) []AgeVote {
	var votes []AgeVote
	for _, res := range poll.Results {
		for _, r := range res.Results {
			age, ok := leadingInt(r.Value)
			if !ok {
				continue
			}
			votes = append(votes, AgeVote{Age: age, Votes: r.NumVotes})
		}
	}
	return votes
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// leadingInt parses the integer prefix of s, if any.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}
