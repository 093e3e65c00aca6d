package normalize

import (
	"regexp"
	"strings"
)

// AliasRule links catalog entries that name the same physical product
// under different regional or series titles. When any Match title shows
// up among a game's candidate names, the Prepend titles go to the front
// of the list and the Append titles to the back. Rules are evaluated in
// order and only the first match applies.
type AliasRule struct {
	Match   []string
	Prepend []string
	Append  []string
}

func (r AliasRule) matches(candidates []string) bool {
	for _, m := range r.Match {
		for _, c := range candidates {
			if c == m {
				return true
			}
		}
	}
	return false
}

// DefaultAliases returns the built-in cross-language/series alias table.
// Prepended titles are the ones child-name stripping must try first.
func DefaultAliases() []AliasRule {
	return []AliasRule{
		{Match: []string{"Burgle Bros."}, Append: []string{"Burgle Bros 2"}},
		{Match: []string{"Burgle Bros 2"}, Append: []string{"Burgle Bros."}},
		{
			Match:  []string{"Cartographers Heroes"},
			Append: []string{"Cartographers: A Roll Player Tale", "Cartographers"},
		},
		{
			Match:   []string{"Chronicles of Crime"},
			Prepend: []string{"Chronicles of Crime: The Millennium Series", "The Millennium Series"},
		},
		{
			Match:  []string{"DC Comics Deck-Building Game"},
			Append: []string{"DC Deck-Building Game", "DC Deck Building Game"},
		},
		{
			Match:  []string{"DC Deck-Building Game"},
			Append: []string{"DC Comics Deck-Building Game", "DC Deck Building Game"},
		},
		{Match: []string{"Hive Pocket"}, Append: []string{"Hive"}},
		{
			Match:   []string{"King of Tokyo", "King of New York"},
			Prepend: []string{"King of Tokyo/King of New York", "King of Tokyo/New York"},
		},
		{Match: []string{"Legends of Andor"}, Append: []string{"Die Legenden von Andor"}},
		{Match: []string{"No Thanks!"}, Append: []string{"Schöne Sch#!?e"}},
		{Match: []string{"Power Grid Deluxe"}, Append: []string{"Power Grid"}},
		{Match: []string{"Queendomino"}, Append: []string{"Kingdomino"}},
		{
			Match:  []string{"Rivals for Catan"},
			Append: []string{"The Rivals for Catan", "Die Fürsten von Catan", "Catan: Das Duell"},
		},
		{Match: []string{"Rococo"}, Append: []string{"Rokoko"}},
		{Match: []string{"Small World Underground"}, Append: []string{"Small World"}},
		{
			Match:   []string{"Tournament at Avalon", "Tournament at Camelot"},
			Prepend: []string{"Tournament at Camelot/Avalon"},
		},
		{Match: []string{"Viticulture Essential Edition"}, Append: []string{"Viticulture"}},
	}
}

//nolint:gochecknoglobals // Static pattern, compiled once
var bigBoxPattern = regexp.MustCompile(`(?i)\s*\(?Big Box.*`)

// AlternateNames builds the candidate title list for one owned game: the
// collection display name, the canonical catalog name and its dash-,
// colon- and parenthesis-truncated forms, a Big Box variant when the
// title carries one, the first matching alias rule, and finally the
// catalog-declared alternates. Duplicates keep their first position.
func AlternateNames(collectionName, canonicalName string, catalogAlternates []string, rules []AliasRule) []string {
	var candidates []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			candidates = append(candidates, s)
		}
	}

	add(collectionName)
	add(canonicalName)
	add(truncateAt(canonicalName, "–"))
	add(truncateAt(canonicalName, ":"))
	add(truncateAt(canonicalName, "("))

	for _, title := range candidates {
		if strings.Contains(title, "Big Box") {
			add(bigBoxPattern.ReplaceAllString(canonicalName, ""))
			break
		}
	}

	for _, rule := range rules {
		if !rule.matches(candidates) {
			continue
		}
		withAliases := make([]string, 0, len(candidates)+len(rule.Prepend)+len(rule.Append))
		withAliases = append(withAliases, rule.Prepend...)
		withAliases = append(withAliases, candidates...)
		withAliases = append(withAliases, rule.Append...)
		candidates = withAliases
		break
	}

	for _, alt := range catalogAlternates {
		add(alt)
	}

	return dedupe(candidates)
}

func truncateAt(name, sep string) string {
	before, _, _ := strings.Cut(name, sep)
	return before
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
