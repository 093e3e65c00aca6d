// Package normalize provides the text rules that turn raw catalog names
// into display names: sort-friendly titles, de-prefixed child names and
// alternate-name generation.
package normalize

import (
	"regexp"
	"slices"
	"strings"
)

//nolint:gochecknoglobals // Static article list for title transforms
var articles = []string{"A", "An", "The"}

// SortTitle moves a leading article behind the title, so "The Crew"
// sorts under C as "Crew, The".
func SortTitle(name string) string {
	first, rest, found := strings.Cut(name, " ")
	if !found {
		return name
	}
	if slices.Contains(articles, first) {
		return rest + ", " + first
	}
	return name
}

// NaturalTitle is the inverse of SortTitle: the trailing article moves
// back to the front. Titles without a trailing article pass through.
func NaturalTitle(name string) string {
	idx := strings.LastIndex(name, ", ")
	if idx < 0 {
		return name
	}
	article := name[idx+2:]
	if slices.Contains(articles, article) {
		return article + " " + name[:idx]
	}
	return name
}

// The cleanup pipeline for child names, applied in this order after the
// base-game prefix is stripped.
//
//nolint:gochecknoglobals // Static patterns, compiled once
var (
	promoPattern     = regexp.MustCompile(`(?i)\s*\(?\bpromo(?:tional)?\b\)?:?\s*`)
	packPattern      = regexp.MustCompile(`^(.+?)\s+([A-Za-z]+)\s+Packs?$`)
	subtitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*[:–—-]?\s*A Roll Player Tale`),
		regexp.MustCompile(`(?i)\s*[:–—-]?\s*The Millennium Series`),
	}
	separatorRuns = regexp.MustCompile(`[:–—]\s*(?:[:–—]\s*)+`)
	edgePunct     = regexp.MustCompile(`^[\s:,–—-]+|[\s:,–—-]+$`)
)

// ChildName rewrites a nested expansion/accessory name for display under
// its base game. The longest matching base-game title is stripped off the
// front, then the pipeline cleans what remains: promo markers become a
// bracketed suffix, "<Name> <Category> Pack" flips to "<Category>: <Name>",
// known redundant subtitles disappear, separator runs collapse and stray
// punctuation is trimmed. If that leaves nothing (or a bare "Promo"), the
// original name is kept.
func ChildName(ownerNames []string, name string) string {
	cleaned := stripOwnerPrefix(ownerNames, name)

	if promoPattern.MatchString(cleaned) {
		cleaned = strings.TrimSpace(promoPattern.ReplaceAllString(cleaned, " "))
		cleaned = edgePunct.ReplaceAllString(cleaned, "")
		if cleaned != "" {
			cleaned += " [Promo]"
		}
	}
	if m := packPattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[2] + ": " + m[1]
	}
	for _, pattern := range subtitlePatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = separatorRuns.ReplaceAllString(cleaned, ": ")
	cleaned = edgePunct.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" || strings.EqualFold(cleaned, "promo") || strings.EqualFold(cleaned, "[promo]") {
		return name
	}
	return cleaned
}

// stripOwnerPrefix removes the longest base-game title prefixing the
// name. Longer titles are tried first so "Burgle Bros 2" wins over
// "Burgle Bros." when both would match.
func stripOwnerPrefix(ownerNames []string, name string) string {
	sorted := slices.Clone(ownerNames)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return len(b) - len(a)
	})

	for _, owner := range sorted {
		if owner == "" || len(name) <= len(owner) {
			continue
		}
		if strings.EqualFold(name[:len(owner)], owner) {
			return name[len(owner):]
		}
	}
	return name
}
