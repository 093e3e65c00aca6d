package game

import (
	"math"
	"strings"

	"github.com/gameshelfapp/gameshelf-server/internal/bgg"
)

//nolint:gochecknoglobals // Static bucket tables
var (
	weightLabels = map[int]string{
		0: "Light",
		1: "Light",
		2: "Light Medium",
		3: "Medium",
		4: "Medium Heavy",
		5: "Heavy",
	}

	playingTimeBuckets = []struct {
		below int
		label string
	}{
		{30, "< 30min"},
		{60, "30min - 1h"},
		{120, "1-2h"},
		{180, "2-3h"},
		{240, "3-4h"},
	}
)

const unknownBucket = "Unknown"

// weightBucket maps the average-weight statistic to its display label.
// Halves round to the even neighbor, so 2.5 stays "Light Medium" while
// 3.5 lands on "Medium Heavy".
func weightBucket(weight float64, voted bool) string {
	if !voted {
		return unknownBucket
	}
	return weightLabels[int(math.RoundToEven(weight))]
}

// weightRating keeps the raw statistic for sorting, -1 when nobody has
// voted.
func weightRating(detail *bgg.ItemDetail) float64 {
	if !detail.HasWeight {
		return -1
	}
	return detail.Weight
}

// timeBucket maps playing minutes to the first bucket whose threshold
// exceeds the value.
func timeBucket(minutes int) string {
	if minutes <= 0 {
		return unknownBucket
	}
	for _, bucket := range playingTimeBuckets {
		if bucket.below > minutes {
			return bucket.label
		}
	}
	return "> 4h"
}

// suggestedAge is the votes-weighted mean of the age poll, rounded to
// two decimals. Zero when nobody voted.
func suggestedAge(votes []bgg.AgeVote) float64 {
	var sum, total int
	for _, v := range votes {
		sum += v.Age * v.Votes
		total += v.Votes
	}
	if total == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(total)*100) / 100
}

// displayRanks drops the global rank (surfaced separately) and unranked
// entries, and trims the redundant " Rank" suffix from the labels.
func displayRanks(ranks []bgg.RankEntry) []Rank {
	var out []Rank
	for _, r := range ranks {
		if r.ID == "1" || r.Value == "Not Ranked" {
			continue
		}
		out = append(out, Rank{
			Name:  strings.ReplaceAll(r.Name, " Rank", ""),
			Value: r.Value,
		})
	}
	return out
}

// displayFamilies keeps family names, minus the catalog's
// administrative buckets.
func displayFamilies(families []bgg.LinkRef) []string {
	var out []string
	for _, f := range families {
		if strings.HasPrefix(f.Name, "Admin:") {
			continue
		}
		out = append(out, f.Name)
	}
	return out
}
