package reconcile

// Link asserts an inbound relationship edge the catalog is missing or
// reports wrong: Source is the expansion/accessory, Target the base
// game it belongs to. Asserted links take priority over catalog edges.
type Link struct {
	Source int64 `json:"source"`
	Target int64 `json:"target"`
}

// Placeholder identifies the synthetic game that collects expansions
// and accessories with no owned base game.
type Placeholder struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Table is the data-driven correction set applied before linking. It is
// loaded once and versioned so fixtures can stand in during tests.
type Table struct {
	Version int `json:"version"`

	// Links are edges the catalog omits or gets wrong.
	Links []Link `json:"links"`

	// PromoBoxFamilies mark grab-bag promo collections that act as
	// their own base game instead of expanding one specific title.
	PromoBoxFamilies []int64 `json:"promo_box_families"`

	Placeholder Placeholder `json:"placeholder"`
}

// DefaultTable returns the built-in correction set.
func DefaultTable() Table {
	return Table{
		Version: 1,
		Links: []Link{
			// The catalog carries no inbound edge for this expansion.
			{Source: 147101, Target: 183394},
		},
		PromoBoxFamilies: []int64{39378},
		Placeholder:      Placeholder{ID: -1, Name: "Assorted Extras"},
	}
}
