package model

// RawListing is an untyped listing payload as returned by a third-party source.
// Field names and nesting vary between sources and API versions.
type RawListing map[string]any

// PropertyCard is the canonical, shape-independent listing record. Every field
// is always serialized (null when unknown) so consumers never branch on
// missing keys.
type PropertyCard struct {
	ID           *string  `json:"id"`
	Title        *string  `json:"title"`
	Price        *string  `json:"price"`
	PriceValue   *float64 `json:"price_value"`
	Location     *string  `json:"location"`
	Bedrooms     *int     `json:"bedrooms"`
	Bathrooms    *int     `json:"bathrooms"`
	SizeSqft     *float64 `json:"size_sqft"`
	Amenities    []string `json:"amenities"`
	Verified     bool     `json:"is_verified"`
	URL          *string  `json:"url"`
	RawReference *string  `json:"raw_reference"`
}

// Clone returns a deep copy of the card
func (c PropertyCard) Clone() PropertyCard {
	out := c
	out.ID = cloneString(c.ID)
	out.Title = cloneString(c.Title)
	out.Price = cloneString(c.Price)
	out.Location = cloneString(c.Location)
	out.URL = cloneString(c.URL)
	out.RawReference = cloneString(c.RawReference)
	if c.PriceValue != nil {
		v := *c.PriceValue
		out.PriceValue = &v
	}
	if c.Bedrooms != nil {
		v := *c.Bedrooms
		out.Bedrooms = &v
	}
	if c.Bathrooms != nil {
		v := *c.Bathrooms
		out.Bathrooms = &v
	}
	if c.SizeSqft != nil {
		v := *c.SizeSqft
		out.SizeSqft = &v
	}
	out.Amenities = append([]string{}, c.Amenities...)
	return out
}

// Recommendation is a property card scored against the client's preferences
type Recommendation struct {
	PropertyCard
	Score          float64  `json:"score"`
	MatchedReasons []string `json:"matched_reasons"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
