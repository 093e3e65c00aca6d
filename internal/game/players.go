package game

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gameshelfapp/gameshelf-server/internal/bgg"
)

// Facet levels, from the game's own poll down to counts an expansion
// merely supports.
const (
	LevelBest         = bgg.LabelBest
	LevelRecommended  = bgg.LabelRecommended
	LevelSupported    = "supported"
	LevelExpansion    = "expansion"
	LevelExpSupported = "exp_supported"
)

// Facet is one player count with the strength of its recommendation.
type Facet struct {
	Count string `json:"count"`
	Level string `json:"level"`
}

// playerFacets merges the game's own poll labels, the supported
// min/max range, and counts its expansions unlock. The first writer
// wins per count. Expansion counts go through two passes per expansion
// so a recommendation beats a merely supported count for the same value.
func playerFacets(detail *bgg.ItemDetail, expansions []*BoardGame) []Facet {
	var facets []Facet
	seen := make(map[string]struct{})
	add := func(count, level string) {
		if count == "" {
			return
		}
		if _, ok := seen[count]; ok {
			return
		}
		seen[count] = struct{}{}
		facets = append(facets, Facet{Count: count, Level: level})
	}

	for _, sc := range detail.SuggestedCounts {
		add(sc.Count, sc.Label)
	}
	for n := detail.MinPlayers; n <= detail.MaxPlayers; n++ {
		if n > 0 {
			add(strconv.Itoa(n), LevelSupported)
		}
	}
	for _, expansion := range expansions {
		for _, f := range expansion.Players {
			if f.Level != LevelSupported {
				add(f.Count, LevelExpansion)
			}
		}
		for _, f := range expansion.Players {
			if f.Level == LevelSupported {
				add(f.Count, LevelExpSupported)
			}
		}
	}

	slices.SortStableFunc(facets, func(a, b Facet) int {
		return countValue(a.Count) - countValue(b.Count)
	})

	// Open-ended counts and anything from 14 players up only keep a
	// spot as the final element, so "1-100 players" lists 1-13 and 100.
	if len(facets) > 1 {
		last := facets[len(facets)-1]
		kept := facets[:0]
		for _, f := range facets[:len(facets)-1] {
			if strings.HasSuffix(f.Count, "+") || countValue(f.Count) >= 14 {
				continue
			}
			kept = append(kept, f)
		}
		facets = append(kept, last)
	}

	return facets
}

// countValue is the numeric prefix of a count, with any trailing "+"
// stripped.
func countValue(count string) int {
	n, _ := strconv.Atoi(strings.TrimSuffix(count, "+"))
	return n
}
