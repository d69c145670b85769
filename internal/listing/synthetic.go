package listing

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/neuraestate/property-matcher/internal/model"
)

const (
	syntheticDefaultLocation = "Dubai Marina"
	syntheticDefaultBedrooms = 2
	syntheticDefaultBudget   = 2_000_000.0
	syntheticDefaultType     = "apartment"
	syntheticMaxListings     = 3
)

// Approximate community centroids used to place synthetic listings on a map
var districtCentroids = map[string][2]float64{
	"dubai marina":    {25.0805, 55.1403},
	"downtown":        {25.1972, 55.2744},
	"jlt":             {25.0693, 55.1413},
	"business bay":    {25.1857, 55.2627},
	"palm":            {25.1124, 55.1390},
	"dubai hills":     {25.1030, 55.2450},
	"jumeirah":        {25.2048, 55.2410},
	"arabian ranches": {25.0530, 55.2680},
}

var syntheticHighlights = []string{"Developer incentives available", "Proximity to metro"}

// SyntheticSource derives deterministic listings from the preferences alone.
// It stands in for a live provider when no Bayut key is configured.
type SyntheticSource struct{}

// NewSyntheticSource creates a new synthetic listings source
func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{}
}

// Search returns up to three listings, one per preferred location, each
// priced ten percent below the previous one.
func (s *SyntheticSource) Search(_ context.Context, prefs model.Preferences) ([]model.RawListing, error) {
	locations := prefs.Locations
	if len(locations) == 0 {
		locations = []string{syntheticDefaultLocation}
	}
	if len(locations) > syntheticMaxListings {
		locations = locations[:syntheticMaxListings]
	}

	bedrooms := syntheticDefaultBedrooms
	if prefs.Bedrooms != nil {
		bedrooms = *prefs.Bedrooms
	}
	budget := syntheticDefaultBudget
	if prefs.BudgetAED != nil {
		budget = *prefs.BudgetAED
	}
	propertyType := syntheticDefaultType
	if prefs.PropertyType != nil {
		propertyType = *prefs.PropertyType
	}

	title := cases.Title(language.English)
	listings := make([]model.RawListing, 0, len(locations))
	for idx, location := range locations {
		name := title.String(location)
		price := float64(int64(budget - float64(idx)*0.1*budget))

		raw := model.RawListing{
			"id":             fmt.Sprintf("synthetic-%d", idx+1),
			"title":          fmt.Sprintf("%d-bed %s in %s", bedrooms, title.String(propertyType), name),
			"location_title": name,
			"price":          price,
			"price_currency": defaultCurrency,
			"rooms":          bedrooms,
			"amenities":      toAnySlice(syntheticHighlights),
		}
		if centroid, ok := districtCentroids[strings.ToLower(location)]; ok {
			raw["geography"] = map[string]any{"lat": centroid[0], "lng": centroid[1]}
		}
		listings = append(listings, raw)
	}
	return listings, nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
