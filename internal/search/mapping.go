package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for game documents.
//
// Text fields analyze with English stemming so "dragons" finds "Dragon".
// Facet fields use the keyword analyzer: values like "Card Game" or
// "30min - 1h" stay intact for exact filtering and facet counts.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	altNamesFieldMapping := bleve.NewTextFieldMapping()
	altNamesFieldMapping.Analyzer = en.AnalyzerName
	altNamesFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("alternate_names", altNamesFieldMapping)

	expansionsFieldMapping := bleve.NewTextFieldMapping()
	expansionsFieldMapping.Analyzer = en.AnalyzerName
	expansionsFieldMapping.Store = true
	expansionsFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("expansions", expansionsFieldMapping)

	// Description - searchable but not stored (too large)
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// Designers/artists - people names, no stemming
	designersFieldMapping := bleve.NewTextFieldMapping()
	designersFieldMapping.Analyzer = simple.Name
	designersFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("designers", designersFieldMapping)

	artistsFieldMapping := bleve.NewTextFieldMapping()
	artistsFieldMapping.Analyzer = simple.Name
	artistsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("artists", artistsFieldMapping)

	// --- Keyword fields (exact match, facetable) ---

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	for _, field := range []string{"categories", "mechanics", "players", "tags"} {
		fieldMapping := bleve.NewTextFieldMapping()
		fieldMapping.Analyzer = keyword.Name
		fieldMapping.Store = true
		docMapping.AddFieldMappingsAt(field, fieldMapping)
	}

	weightFieldMapping := bleve.NewTextFieldMapping()
	weightFieldMapping.Analyzer = keyword.Name
	weightFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("weight", weightFieldMapping)

	playingTimeFieldMapping := bleve.NewTextFieldMapping()
	playingTimeFieldMapping.Analyzer = keyword.Name
	playingTimeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("playing_time", playingTimeFieldMapping)

	// --- Numeric fields (range queries, sorting) ---

	for _, field := range []string{"year", "rank", "rating", "numplays"} {
		fieldMapping := bleve.NewNumericFieldMapping()
		fieldMapping.Store = true
		docMapping.AddFieldMappingsAt(field, fieldMapping)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
