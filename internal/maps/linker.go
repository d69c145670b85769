package maps

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/neuraestate/property-matcher/internal/model"
)

const searchBaseURL = "https://www.google.com/maps/search/?api=1&query="

// SearchLinker builds generic map-search links. It works without credentials.
type SearchLinker struct{}

// MapURL links to the coordinates on a public map search page
func (SearchLinker) MapURL(_ context.Context, c model.Coordinates) (string, error) {
	return CoordinatesURL(c), nil
}

// CoordinatesURL returns a map-search link for a position
func CoordinatesURL(c model.Coordinates) string {
	query := fmt.Sprintf("%s,%s", formatCoord(c.Latitude), formatCoord(c.Longitude))
	return searchBaseURL + url.QueryEscape(query)
}

// QueryURL returns a map-search link for a textual location such as
// "Dubai Marina, Dubai"
func QueryURL(query string) string {
	return searchBaseURL + url.QueryEscape(query)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
