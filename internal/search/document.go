// Package search provides full-text search over the collection using
// Bleve: fuzzy title matching with alternate and expansion names
// denormalized into each game's document, plus faceted filtering on
// categories, mechanics, player counts, weight and playing time.
package search

import (
	"strconv"

	"github.com/gameshelfapp/gameshelf-server/internal/game"
	"github.com/gameshelfapp/gameshelf-server/internal/normalize"
)

// Document is the index representation of one display game. Child names
// are denormalized in so a search for an expansion surfaces the game it
// lives under.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"` // natural title

	AltNames    []string `json:"alternate_names,omitempty"`
	Expansions  []string `json:"expansions,omitempty"`
	Description string   `json:"description,omitempty"`
	Designers   []string `json:"designers,omitempty"`
	Artists     []string `json:"artists,omitempty"`

	// Facet fields, exact-match keywords.
	Categories  []string `json:"categories,omitempty"`
	Mechanics   []string `json:"mechanics,omitempty"`
	Players     []string `json:"players,omitempty"`
	Weight      string   `json:"weight,omitempty"`
	PlayingTime string   `json:"playing_time,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Numeric fields for sorting and range filters.
	Year     int     `json:"year,omitempty"`
	Rank     int     `json:"rank,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
	NumPlays int     `json:"numplays"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but the
// mapping uses lowercase names, so we convert explicitly.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":       d.ID,
		"name":     d.Name,
		"numplays": d.NumPlays,
	}

	if len(d.AltNames) > 0 {
		m["alternate_names"] = d.AltNames
	}
	if len(d.Expansions) > 0 {
		m["expansions"] = d.Expansions
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Designers) > 0 {
		m["designers"] = d.Designers
	}
	if len(d.Artists) > 0 {
		m["artists"] = d.Artists
	}
	if len(d.Categories) > 0 {
		m["categories"] = d.Categories
	}
	if len(d.Mechanics) > 0 {
		m["mechanics"] = d.Mechanics
	}
	if len(d.Players) > 0 {
		m["players"] = d.Players
	}
	if d.Weight != "" {
		m["weight"] = d.Weight
	}
	if d.PlayingTime != "" {
		m["playing_time"] = d.PlayingTime
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.Year > 0 {
		m["year"] = d.Year
	}
	if d.Rank > 0 {
		m["rank"] = d.Rank
	}
	if d.Rating > 0 {
		m["rating"] = d.Rating
	}

	return m
}

// GameToDocument converts one display game to its index document.
func GameToDocument(g *game.BoardGame) *Document {
	doc := &Document{
		ID:          strconv.FormatInt(g.ID, 10),
		Name:        normalize.NaturalTitle(g.Name),
		AltNames:    g.AltNames,
		Description: g.Description,
		Designers:   g.Designers,
		Artists:     g.Artists,
		Categories:  g.Categories,
		Mechanics:   g.Mechanics,
		Weight:      g.Weight,
		PlayingTime: g.PlayingTime,
		Tags:        g.Tags,
		Year:        g.Year,
		Rank:        g.Rank,
		Rating:      g.Rating,
		NumPlays:    g.NumPlays,
	}

	for _, f := range g.Players {
		doc.Players = append(doc.Players, f.Count)
	}
	for _, e := range g.Expansions {
		doc.Expansions = append(doc.Expansions, normalize.NaturalTitle(e.Name))
	}
	for _, a := range g.Accessories {
		doc.Expansions = append(doc.Expansions, normalize.NaturalTitle(a.Name))
	}

	return doc
}
