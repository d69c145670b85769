package maps

import (
	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/utils"
)

type coordinateStrategy func(payload map[string]any) (lat, lon *float64)

var p = utils.Path

// nestedStrategy reads lat/lon keys from one nested object, or from the top level
func nestedStrategy(prefix ...string) coordinateStrategy {
	at := func(key string) utils.Extractor {
		return p(append(append([]string{}, prefix...), key)...)
	}
	return func(payload map[string]any) (*float64, *float64) {
		lat := utils.FirstFloat(payload, at("lat"), at("latitude"))
		lon := utils.FirstFloat(payload, at("lon"), at("lng"), at("longitude"))
		return lat, lon
	}
}

// pairStrategy reads a GeoJSON style [lon, lat] array
func pairStrategy(key string) coordinateStrategy {
	return func(payload map[string]any) (*float64, *float64) {
		value, ok := p(key)(payload)
		if !ok {
			return nil, nil
		}
		pair, ok := value.([]any)
		if !ok || len(pair) < 2 {
			return nil, nil
		}
		lon, lonOK := utils.AsFloat(pair[0])
		lat, latOK := utils.AsFloat(pair[1])
		if !lonOK || !latOK {
			return nil, nil
		}
		return &lat, &lon
	}
}

// Candidate coordinate shapes in priority order
var coordinateStrategies = []coordinateStrategy{
	nestedStrategy(),
	nestedStrategy("geography"),
	nestedStrategy("location"),
	pairStrategy("coordinates"),
	nestedStrategy("coordinates"),
	nestedStrategy("geo"),
}

// ExtractCoordinates resolves a position from a raw listing. Out of range
// values are rejected.
func ExtractCoordinates(raw model.RawListing) (model.Coordinates, bool) {
	if raw == nil {
		return model.Coordinates{}, false
	}
	for _, strategy := range coordinateStrategies {
		lat, lon := strategy(raw)
		if lat == nil || lon == nil {
			continue
		}
		if *lat < -90 || *lat > 90 || *lon < -180 || *lon > 180 {
			continue
		}
		return model.Coordinates{Latitude: *lat, Longitude: *lon}, true
	}
	return model.Coordinates{}, false
}
