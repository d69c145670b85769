package model

// TravelMode is a transport mode used for travel-time estimates
type TravelMode string

const (
	ModeWalking TravelMode = "walking"
	ModeCycling TravelMode = "cycling"
	ModeDriving TravelMode = "driving"
	ModeTransit TravelMode = "transit"
)

// Coordinates is a WGS84 latitude/longitude pair
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PointOfInterest is a destination the client cares about (office, school...)
type PointOfInterest struct {
	Name      string   `json:"name"`
	Category  string   `json:"category,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Coordinates returns the point's position when both components are known
func (p PointOfInterest) Coordinates() (Coordinates, bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}, true
}

// TravelEstimate is one origin → destination estimate for a transport mode
type TravelEstimate struct {
	Mode            TravelMode `json:"mode"`
	DistanceMeters  *float64   `json:"distance_meters"`
	DurationMinutes *float64   `json:"duration_minutes"`
	Source          string     `json:"source"` // "mapbox" or "haversine"
}

// MapEnrichment describes the map context derived for one listing. Provider
// unavailability is expressed through FallbackNotice / Error, never as a Go error.
type MapEnrichment struct {
	ListingID      *string                     `json:"listing_id"`
	Latitude       *float64                    `json:"latitude"`
	Longitude      *float64                    `json:"longitude"`
	MapURL         *string                     `json:"map_url"`
	Place          *string                     `json:"place"`
	TravelTimes    map[string][]TravelEstimate `json:"travel_times"`
	FallbackNotice *string                     `json:"fallback_notice"`
	Error          *string                     `json:"error"`
}
