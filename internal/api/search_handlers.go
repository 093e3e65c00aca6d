package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gameshelfapp/gameshelf-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search collection",
		Description: "Full-text search over the collection with faceted filtering",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the collection.
type SearchInput struct {
	Query        string  `query:"q" validate:"required,min=1,max=200" doc:"Search query"`
	Categories   string  `query:"categories" validate:"omitempty,max=300" doc:"Comma-separated category filters"`
	Mechanics    string  `query:"mechanics" validate:"omitempty,max=300" doc:"Comma-separated mechanic filters"`
	Players      string  `query:"players" validate:"omitempty,max=100" doc:"Comma-separated player counts (e.g. 2,5+)"`
	Weights      string  `query:"weights" validate:"omitempty,max=100" doc:"Comma-separated complexity buckets"`
	PlayingTimes string  `query:"playing_times" validate:"omitempty,max=100" doc:"Comma-separated playing time buckets"`
	Tags         string  `query:"tags" validate:"omitempty,max=100" doc:"Comma-separated collection status tags"`
	MinRating    float64 `query:"min_rating" validate:"omitempty,gte=0,lte=10" doc:"Minimum community rating"`
	Limit        int     `query:"limit" validate:"omitempty,gte=1,lte=100" doc:"Max results (default 20)"`
	Offset       int     `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset (default 0)"`
	Sort         string  `query:"sort" validate:"omitempty,oneof=relevance name rank rating year" doc:"Sort field (default relevance)"`
	Order        string  `query:"order" validate:"omitempty,oneof=asc desc" doc:"Sort direction"`
	Facets       bool    `query:"facets" default:"true" doc:"Include facet counts in the response"`
	Highlight    bool    `query:"highlight" doc:"Include highlighted match fragments"`
}

// SearchHitResult contains a single search result.
type SearchHitResult struct {
	ID          int64             `json:"id" doc:"Catalog ID"`
	Score       float64           `json:"score" doc:"Search relevance score"`
	Name        string            `json:"name" doc:"Display name"`
	Year        int               `json:"year,omitzero" doc:"Publication year"`
	Rank        int               `json:"rank,omitzero" doc:"Overall catalog rank"`
	Rating      float64           `json:"rating,omitzero" doc:"Average community rating"`
	Weight      string            `json:"weight,omitempty" doc:"Complexity bucket"`
	PlayingTime string            `json:"playing_time,omitempty" doc:"Playing time bucket"`
	Highlights  map[string]string `json:"highlights,omitempty" doc:"Highlighted matches"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value" doc:"Facet value"`
	Count int    `json:"count" doc:"Number of matches"`
}

// SearchFacetsResponse contains facet counts for filtering.
type SearchFacetsResponse struct {
	Categories   []FacetCount `json:"categories,omitempty" doc:"Category facets"`
	Mechanics    []FacetCount `json:"mechanics,omitempty" doc:"Mechanic facets"`
	Players      []FacetCount `json:"players,omitempty" doc:"Player count facets"`
	Weights      []FacetCount `json:"weights,omitempty" doc:"Complexity facets"`
	PlayingTimes []FacetCount `json:"playing_times,omitempty" doc:"Playing time facets"`
}

// SearchResponse contains search results.
type SearchResponse struct {
	Query  string                `json:"query" doc:"Original search query"`
	Total  int64                 `json:"total" doc:"Total matches"`
	TookMs int64                 `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult     `json:"hits" doc:"Search results"`
	Facets *SearchFacetsResponse `json:"facets,omitempty" doc:"Facet counts for filtering"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.Categories = splitCSV(input.Categories)
	params.Mechanics = splitCSV(input.Mechanics)
	params.Players = splitCSV(input.Players)
	params.Weights = splitCSV(input.Weights)
	params.PlayingTimes = splitCSV(input.PlayingTimes)
	params.Tags = splitCSV(input.Tags)
	params.MinRating = input.MinRating
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	if input.Sort != "" {
		params.SortBy = input.Sort
	}
	if input.Order != "" {
		params.SortOrder = input.Order
	}
	params.IncludeFacets = input.Facets
	params.Highlight = input.Highlight

	result, err := s.catalog.Search(ctx, params)
	if err != nil {
		s.logger.Error("Search failed", "error", err, "query", input.Query)
		return nil, err
	}

	resp := SearchResponse{
		Query:  result.Query,
		Total:  int64(result.Total), //nolint:gosec // Safe: total count won't exceed int64
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResult, 0, len(result.Hits)),
	}
	for i := range result.Hits {
		hit := &result.Hits[i]
		resp.Hits = append(resp.Hits, SearchHitResult{
			ID:          hit.ID,
			Score:       hit.Score,
			Name:        hit.Name,
			Year:        hit.Year,
			Rank:        hit.Rank,
			Rating:      hit.Rating,
			Weight:      hit.Weight,
			PlayingTime: hit.PlayingTime,
			Highlights:  hit.Highlights,
		})
	}
	if input.Facets {
		resp.Facets = toSearchFacets(result.Facets)
	}

	return &SearchOutput{Body: resp}, nil
}

// === Mapping ===

func toSearchFacets(f search.SearchFacets) *SearchFacetsResponse {
	resp := &SearchFacetsResponse{
		Categories:   toFacetCounts(f.Categories),
		Mechanics:    toFacetCounts(f.Mechanics),
		Players:      toFacetCounts(f.Players),
		Weights:      toFacetCounts(f.Weights),
		PlayingTimes: toFacetCounts(f.PlayingTimes),
	}
	return resp
}

func toFacetCounts(counts []search.FacetCount) []FacetCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]FacetCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, FacetCount{Value: c.Value, Count: c.Count})
	}
	return out
}

// splitCSV splits a comma-separated query value, dropping empties.
func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
