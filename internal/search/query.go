package search

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a search query. Filters combine with AND
// across fields and OR within a field.
type SearchParams struct {
	Query string // User's search query

	Categories   []string
	Mechanics    []string
	Players      []string
	Weights      []string
	PlayingTimes []string
	Tags         []string
	MinRating    float64

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "name", "rank", "rating", "year"
	SortOrder string // "asc", "desc"

	// Options
	IncludeFacets bool
	FacetFields   []string // Which fields to facet on
	Highlight     bool
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		Offset:        0,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
		FacetFields:   []string{"categories", "mechanics", "players", "weight", "playing_time"},
		Highlight:     true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SearchHit  `json:"hits"`
	Facets SearchFacets `json:"facets,omitzero"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	ID          int64             `json:"id"`
	Score       float64           `json:"score"`
	Name        string            `json:"name"`
	Year        int               `json:"year,omitzero"`
	Rank        int               `json:"rank,omitzero"`
	Rating      float64           `json:"rating,omitzero"`
	Weight      string            `json:"weight,omitempty"`
	PlayingTime string            `json:"playing_time,omitempty"`
	Highlights  map[string]string `json:"highlights,omitempty"`
}

// SearchFacets contains facet counts.
type SearchFacets struct {
	Categories   []FacetCount `json:"categories,omitempty"`
	Mechanics    []FacetCount `json:"mechanics,omitempty"`
	Players      []FacetCount `json:"players,omitempty"`
	Weights      []FacetCount `json:"weights,omitempty"`
	PlayingTimes []FacetCount `json:"playing_times,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a search query.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Build the query
	searchQuery := buildSearchQuery(params)

	// Create search request
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	// Add sorting
	addSorting(searchRequest, params)

	// Add facets
	if params.IncludeFacets {
		addFacets(searchRequest, params)
	}

	// Add highlighting
	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("name")
		searchRequest.Highlight.AddField("expansions")
	}

	// Request stored fields
	searchRequest.Fields = []string{
		"id", "name", "year", "rank", "rating", "weight", "playing_time",
	}

	// Execute search
	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	// Convert results
	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		searchHit := SearchHit{
			Score: hit.Score,
		}
		searchHit.ID, _ = strconv.ParseInt(hit.ID, 10, 64)

		// Extract stored fields
		if n, ok := hit.Fields["name"].(string); ok {
			searchHit.Name = n
		}
		if y, ok := hit.Fields["year"].(float64); ok {
			searchHit.Year = int(y)
		}
		if r, ok := hit.Fields["rank"].(float64); ok {
			searchHit.Rank = int(r)
		}
		if r, ok := hit.Fields["rating"].(float64); ok {
			searchHit.Rating = r
		}
		if w, ok := hit.Fields["weight"].(string); ok {
			searchHit.Weight = w
		}
		if pt, ok := hit.Fields["playing_time"].(string); ok {
			searchHit.PlayingTime = pt
		}

		// Extract highlights
		if len(hit.Fragments) > 0 {
			searchHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					searchHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, searchHit)
	}

	// Extract facets
	if params.IncludeFacets {
		result.Facets = extractFacets(searchResult)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	// Main text query
	// Search strategy:
	// - Title and alternate titles carry the highest boosts
	// - Expansion names are searchable so that a query for an expansion
	//   surfaces the base game it is filed under
	if params.Query != "" {
		textQueries := []query.Query{}

		// Name/title match with highest boost
		nameMatch := bleve.NewMatchQuery(params.Query)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		// Alternate title match (localized editions, prior names)
		altMatch := bleve.NewMatchQuery(params.Query)
		altMatch.SetField("alternate_names")
		altMatch.SetBoost(2.0)
		textQueries = append(textQueries, altMatch)

		// Expansion name match (owner carries the expansion's name)
		expansionMatch := bleve.NewMatchQuery(params.Query)
		expansionMatch.SetField("expansions")
		expansionMatch.SetBoost(1.5)
		textQueries = append(textQueries, expansionMatch)

		// Add fuzzy matching for typo tolerance on name
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		// Combine with OR (match any field)
		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Category filter (exact match, OR across values)
	if len(params.Categories) > 0 {
		categoryQueries := make([]query.Query, len(params.Categories))
		for i, c := range params.Categories {
			cq := bleve.NewTermQuery(c)
			cq.SetField("categories")
			categoryQueries[i] = cq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(categoryQueries...))
	}

	// Mechanic filter
	if len(params.Mechanics) > 0 {
		mechanicQueries := make([]query.Query, len(params.Mechanics))
		for i, m := range params.Mechanics {
			mq := bleve.NewTermQuery(m)
			mq.SetField("mechanics")
			mechanicQueries[i] = mq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(mechanicQueries...))
	}

	// Player count filter
	if len(params.Players) > 0 {
		playerQueries := make([]query.Query, len(params.Players))
		for i, p := range params.Players {
			pq := bleve.NewTermQuery(p)
			pq.SetField("players")
			playerQueries[i] = pq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(playerQueries...))
	}

	// Weight filter
	if len(params.Weights) > 0 {
		weightQueries := make([]query.Query, len(params.Weights))
		for i, w := range params.Weights {
			wq := bleve.NewTermQuery(w)
			wq.SetField("weight")
			weightQueries[i] = wq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(weightQueries...))
	}

	// Playing time filter
	if len(params.PlayingTimes) > 0 {
		timeQueries := make([]query.Query, len(params.PlayingTimes))
		for i, pt := range params.PlayingTimes {
			tq := bleve.NewTermQuery(pt)
			tq.SetField("playing_time")
			timeQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(timeQueries...))
	}

	// Collection tag filter
	if len(params.Tags) > 0 {
		tagQueries := make([]query.Query, len(params.Tags))
		for i, tag := range params.Tags {
			tq := bleve.NewTermQuery(tag)
			tq.SetField("tags")
			tagQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(tagQueries...))
	}

	// Rating floor filter
	if params.MinRating > 0 {
		min := params.MinRating
		max := math.MaxFloat64
		rangeQuery := bleve.NewNumericRangeQuery(&min, &max)
		rangeQuery.SetField("rating")
		queries = append(queries, rangeQuery)
	}

	// Combine all queries with AND
	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "title", "name":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-name"})
		} else {
			req.SortBy([]string{"name"})
		}
	case "rank":
		// Rank 1 is the top game, so ascending is the natural order.
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-rank"})
		} else {
			req.SortBy([]string{"rank"})
		}
	case "rating":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"rating"})
		} else {
			req.SortBy([]string{"-rating"})
		}
	case "year":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"year"})
		} else {
			req.SortBy([]string{"-year"})
		}
	default:
		// Relevance (score) is default - Bleve handles this
		req.SortBy([]string{"-_score"})
	}
}

// addFacets configures facet requests.
func addFacets(req *bleve.SearchRequest, params SearchParams) {
	for _, field := range params.FacetFields {
		facetReq := bleve.NewFacetRequest(field, 20) // Top 20 values
		req.AddFacet(field, facetReq)
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) SearchFacets {
	facets := SearchFacets{}

	if categoryFacet, ok := result.Facets["categories"]; ok {
		for _, term := range categoryFacet.Terms.Terms() {
			facets.Categories = append(facets.Categories, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if mechanicFacet, ok := result.Facets["mechanics"]; ok {
		for _, term := range mechanicFacet.Terms.Terms() {
			facets.Mechanics = append(facets.Mechanics, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if playerFacet, ok := result.Facets["players"]; ok {
		for _, term := range playerFacet.Terms.Terms() {
			facets.Players = append(facets.Players, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if weightFacet, ok := result.Facets["weight"]; ok {
		for _, term := range weightFacet.Terms.Terms() {
			facets.Weights = append(facets.Weights, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	if timeFacet, ok := result.Facets["playing_time"]; ok {
		for _, term := range timeFacet.Terms.Terms() {
			facets.PlayingTimes = append(facets.PlayingTimes, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	return facets
}
