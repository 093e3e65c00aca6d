package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gameshelfapp/gameshelf-server/internal/game"
	"github.com/gameshelfapp/gameshelf-server/internal/normalize"
	"github.com/gameshelfapp/gameshelf-server/internal/service"
)

func (s *Server) registerGameRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGames",
		Method:      http.MethodGet,
		Path:        "/api/v1/games",
		Summary:     "List collection",
		Description: "Returns the collection snapshot, sorted and paged",
		Tags:        []string{"Games"},
	}, s.handleListGames)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGame",
		Method:      http.MethodGet,
		Path:        "/api/v1/games/{id}",
		Summary:     "Get game",
		Description: "Returns one game with its owned expansions and accessories nested",
		Tags:        []string{"Games"},
	}, s.handleGetGame)
}

// === DTOs ===

// ListGamesInput contains parameters for listing the collection.
type ListGamesInput struct {
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=500" doc:"Max games per page (default 50)"`
	Offset int    `query:"offset" validate:"omitempty,gte=0" doc:"Pagination offset (default 0)"`
	Sort   string `query:"sort" validate:"omitempty,oneof=name rank rating year" doc:"Sort field (default name)"`
	Order  string `query:"order" validate:"omitempty,oneof=asc desc" doc:"Sort direction (rating and year default desc, the rest asc)"`
	Tag    string `query:"tag" validate:"omitempty,max=64" doc:"Filter by collection status tag (own, wishlist, ...)"`
}

// GameSummary is the list-view projection of a game.
type GameSummary struct {
	ID          int64    `json:"id" doc:"Catalog ID"`
	Name        string   `json:"name" doc:"Display name"`
	SortName    string   `json:"sort_name" doc:"Article-shifted sort title"`
	Year        int      `json:"year,omitzero" doc:"Publication year"`
	Image       string   `json:"image,omitempty" doc:"Cover image URL"`
	MinPlayers  int      `json:"min_players,omitzero" doc:"Minimum supported players"`
	MaxPlayers  int      `json:"max_players,omitzero" doc:"Maximum supported players"`
	PlayingTime string   `json:"playing_time,omitempty" doc:"Playing time bucket"`
	Weight      string   `json:"weight,omitempty" doc:"Complexity bucket"`
	Rank        int      `json:"rank,omitzero" doc:"Overall catalog rank"`
	Rating      float64  `json:"rating,omitzero" doc:"Average community rating"`
	NumPlays    int      `json:"numplays,omitzero" doc:"Logged plays"`
	Tags        []string `json:"tags,omitempty" doc:"Collection status tags"`
	Expansions  int      `json:"expansions,omitzero" doc:"Owned expansion count"`
	Accessories int      `json:"accessories,omitzero" doc:"Owned accessory count"`
}

// ListGamesResponse contains one page of the collection.
type ListGamesResponse struct {
	Games  []GameSummary `json:"games" doc:"Games on this page"`
	Total  int           `json:"total" doc:"Total games matching the filter"`
	Limit  int           `json:"limit" doc:"Applied page size"`
	Offset int           `json:"offset" doc:"Applied offset"`
}

// ListGamesOutput wraps the list response for Huma.
type ListGamesOutput struct {
	Body ListGamesResponse
}

// GetGameInput identifies one game.
type GetGameInput struct {
	ID int64 `path:"id" doc:"Catalog ID"`
}

// PublisherInfo is one publisher credit.
type PublisherInfo struct {
	ID   int64  `json:"id" doc:"Publisher catalog ID"`
	Name string `json:"name" doc:"Publisher name"`
	Own  bool   `json:"own,omitempty" doc:"True for the publisher of the owned version"`
}

// PlayerFacet is a per-count recommendation label.
type PlayerFacet struct {
	Count string `json:"count" doc:"Player count, possibly open-ended (\"5+\")"`
	Level string `json:"level" doc:"best, recommended, expansion, supported, ..."`
}

// RankInfo is a secondary rank entry.
type RankInfo struct {
	Name  string `json:"name" doc:"Rank family name"`
	Value string `json:"value" doc:"Position within the family"`
}

// GameResponse is the full record for one game. Expansions and
// accessories nest the same shape one level down.
type GameResponse struct {
	ID              int64           `json:"id" doc:"Catalog ID"`
	Name            string          `json:"name" doc:"Display name"`
	SortName        string          `json:"sort_name" doc:"Article-shifted sort title"`
	AltNames        []string        `json:"alternate_names,omitempty" doc:"Alternate titles used for matching"`
	Description     string          `json:"description,omitempty" doc:"Catalog description, markup stripped"`
	Year            int             `json:"year,omitzero" doc:"Publication year"`
	Image           string          `json:"image,omitempty" doc:"Cover image URL"`
	Categories      []string        `json:"categories,omitempty" doc:"Catalog categories"`
	Mechanics       []string        `json:"mechanics,omitempty" doc:"Catalog mechanics"`
	Families        []string        `json:"families,omitempty" doc:"Catalog families"`
	Designers       []string        `json:"designers,omitempty" doc:"Designer credits"`
	Artists         []string        `json:"artists,omitempty" doc:"Artist credits"`
	Publishers      []PublisherInfo `json:"publishers,omitempty" doc:"Publisher credits"`
	Reimplements    []string        `json:"reimplements,omitempty" doc:"Games this one reimplements"`
	ReimplementedBy []string        `json:"reimplementedby,omitempty" doc:"Games reimplementing this one"`
	Players         []PlayerFacet   `json:"players,omitempty" doc:"Per-count recommendation labels"`
	MinPlayers      int             `json:"min_players,omitzero" doc:"Minimum supported players"`
	MaxPlayers      int             `json:"max_players,omitzero" doc:"Maximum supported players"`
	Weight          string          `json:"weight" doc:"Complexity bucket"`
	WeightRating    float64         `json:"weight_rating" doc:"Raw average complexity"`
	PlayingTime     string          `json:"playing_time" doc:"Playing time bucket"`
	MinAge          int             `json:"min_age,omitzero" doc:"Publisher minimum age"`
	SuggestedAge    float64         `json:"suggested_age,omitzero" doc:"Community suggested age"`
	Rank            int             `json:"rank,omitzero" doc:"Overall catalog rank"`
	OtherRanks      []RankInfo      `json:"other_ranks,omitempty" doc:"Family and subdomain ranks"`
	UsersRated      int             `json:"usersrated" doc:"Number of community ratings"`
	NumOwned        int             `json:"numowned" doc:"Copies owned catalog-wide"`
	Average         float64         `json:"average" doc:"Plain average rating"`
	Rating          float64         `json:"rating" doc:"Bayesian average rating"`
	NumPlays        int             `json:"numplays,omitzero" doc:"Logged plays"`
	Tags            []string        `json:"tags,omitempty" doc:"Collection status tags"`
	PreviousPlayers []string        `json:"previous_players,omitempty" doc:"Players from logged plays"`
	Comment         string          `json:"comment,omitempty" doc:"Collection comment"`
	WishlistComment string          `json:"wishlist_comment,omitempty" doc:"Wishlist comment"`
	Expansions      []GameResponse  `json:"expansions,omitempty" doc:"Owned expansions"`
	Accessories     []GameResponse  `json:"accessories,omitempty" doc:"Owned accessories"`
	LastModified    time.Time       `json:"last_modified,omitzero" doc:"Collection entry last modified"`
	CollectionID    int64           `json:"collection_id,omitzero" doc:"Collection entry ID of the owned copy"`
	VersionName     string          `json:"version_name,omitempty" doc:"Owned version name"`
	VersionYear     int             `json:"version_year,omitzero" doc:"Owned version year"`
}

// GetGameOutput wraps the game response for Huma.
type GetGameOutput struct {
	Body GameResponse
}

// === Handlers ===

func (s *Server) handleListGames(ctx context.Context, input *ListGamesInput) (*ListGamesOutput, error) {
	list, err := s.catalog.Games(ctx, service.ListParams{
		Sort:   input.Sort,
		Order:  input.Order,
		Limit:  input.Limit,
		Offset: input.Offset,
		Tag:    input.Tag,
	})
	if err != nil {
		return nil, err
	}

	resp := ListGamesResponse{
		Games:  make([]GameSummary, 0, len(list.Games)),
		Total:  list.Total,
		Limit:  list.Limit,
		Offset: list.Offset,
	}
	for _, g := range list.Games {
		resp.Games = append(resp.Games, toGameSummary(g))
	}

	return &ListGamesOutput{Body: resp}, nil
}

func (s *Server) handleGetGame(ctx context.Context, input *GetGameInput) (*GetGameOutput, error) {
	g, err := s.catalog.Game(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &GetGameOutput{Body: toGameResponse(g)}, nil
}

// === Mapping ===

// Records carry sort titles; responses show the natural form and keep
// the sort title alongside for client-side ordering.
func toGameSummary(g *game.BoardGame) GameSummary {
	return GameSummary{
		ID:          g.ID,
		Name:        normalize.NaturalTitle(g.Name),
		SortName:    g.Name,
		Year:        g.Year,
		Image:       g.Image,
		MinPlayers:  g.MinPlayers,
		MaxPlayers:  g.MaxPlayers,
		PlayingTime: g.PlayingTime,
		Weight:      g.Weight,
		Rank:        g.Rank,
		Rating:      g.Rating,
		NumPlays:    g.NumPlays,
		Tags:        g.Tags,
		Expansions:  len(g.Expansions),
		Accessories: len(g.Accessories),
	}
}

func toGameResponse(g *game.BoardGame) GameResponse {
	resp := GameResponse{
		ID:              g.ID,
		Name:            normalize.NaturalTitle(g.Name),
		SortName:        g.Name,
		AltNames:        g.AltNames,
		Description:     g.Description,
		Year:            g.Year,
		Image:           g.Image,
		Categories:      g.Categories,
		Mechanics:       g.Mechanics,
		Families:        g.Families,
		Designers:       g.Designers,
		Artists:         g.Artists,
		Reimplements:    g.Reimplements,
		ReimplementedBy: g.ReimplementedBy,
		MinPlayers:      g.MinPlayers,
		MaxPlayers:      g.MaxPlayers,
		Weight:          g.Weight,
		WeightRating:    g.WeightRating,
		PlayingTime:     g.PlayingTime,
		MinAge:          g.MinAge,
		SuggestedAge:    g.SuggestedAge,
		Rank:            g.Rank,
		UsersRated:      g.UsersRated,
		NumOwned:        g.NumOwned,
		Average:         g.Average,
		Rating:          g.Rating,
		NumPlays:        g.NumPlays,
		Tags:            g.Tags,
		PreviousPlayers: g.PreviousPlayers,
		Comment:         g.Comment,
		WishlistComment: g.WishlistComment,
		LastModified:    g.LastModified,
		CollectionID:    g.CollectionID,
		VersionName:     g.VersionName,
		VersionYear:     g.VersionYear,
	}

	for _, p := range g.Publishers {
		resp.Publishers = append(resp.Publishers, PublisherInfo{ID: p.ID, Name: p.Name, Own: p.Own})
	}
	for _, f := range g.Players {
		resp.Players = append(resp.Players, PlayerFacet{Count: f.Count, Level: f.Level})
	}
	for _, r := range g.OtherRanks {
		resp.OtherRanks = append(resp.OtherRanks, RankInfo{Name: r.Name, Value: r.Value})
	}
	for _, e := range g.Expansions {
		resp.Expansions = append(resp.Expansions, toGameResponse(e))
	}
	for _, a := range g.Accessories {
		resp.Accessories = append(resp.Accessories, toGameResponse(a))
	}

	return resp
}
