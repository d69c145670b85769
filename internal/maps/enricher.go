// Package maps derives map context for listings: coordinates, a shareable
// map link and travel-time estimates to points of interest.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/listing"
	"github.com/neuraestate/property-matcher/internal/model"
)

const (
	missingCoordinatesError = "Missing coordinates on listing; unable to plot on map."
	serviceUnavailableError = "Unable to reach the map service at the moment."
	defaultFallbackMessage  = "We're temporarily unable to load live map details. You'll still see the property information while we reconnect to the map service."
)

// MapLinker produces a shareable map reference for a position
type MapLinker interface {
	MapURL(ctx context.Context, pos model.Coordinates) (string, error)
}

// TravelEstimator returns one estimate per destination for a mode
type TravelEstimator interface {
	Estimate(ctx context.Context, origin model.Coordinates, destinations []model.Coordinates, mode model.TravelMode) ([]model.TravelEstimate, error)
}

// Geocoder resolves a human readable place for a position
type Geocoder interface {
	ReverseGeocode(ctx context.Context, pos model.Coordinates) (*string, error)
}

// Enricher combines the configured strategies. Provider failures degrade to
// the local strategies and a fallback notice; Enrich never returns an error.
type Enricher struct {
	linker          MapLinker
	estimator       TravelEstimator
	geocoder        Geocoder
	local           HaversineEstimator
	modes           []model.TravelMode
	fallbackMessage string
}

// NewEnricher selects strategies from configuration. A mapbox provider
// without a token returns config.ErrMissingMapCredential.
func NewEnricher(cfg *config.MapsConfig) (*Enricher, error) {
	switch cfg.Provider {
	case "", "local", "none":
		return NewLocalEnricher(cfg), nil
	case "mapbox":
		client, err := NewMapboxClient(cfg)
		if err != nil {
			return nil, err
		}
		e := NewLocalEnricher(cfg)
		e.linker = client
		e.estimator = client
		if cfg.ReverseGeocode {
			e.geocoder = client
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown maps provider %q", cfg.Provider)
	}
}

// NewLocalEnricher uses search links and great-circle estimates only
func NewLocalEnricher(cfg *config.MapsConfig) *Enricher {
	message := cfg.FallbackMessage
	if message == "" {
		message = defaultFallbackMessage
	}
	return &Enricher{
		linker:          SearchLinker{},
		estimator:       HaversineEstimator{},
		modes:           ParseTravelModes(cfg.Modes),
		fallbackMessage: message,
	}
}

// Modes returns the travel modes estimated for each point of interest
func (e *Enricher) Modes() []model.TravelMode {
	return append([]model.TravelMode(nil), e.modes...)
}

// Enrich derives map context for one raw listing
func (e *Enricher) Enrich(ctx context.Context, raw model.RawListing, pois []model.PointOfInterest) model.MapEnrichment {
	enrichment := model.MapEnrichment{
		ListingID:   listing.ListingID(raw),
		TravelTimes: map[string][]model.TravelEstimate{},
	}

	pos, ok := ExtractCoordinates(raw)
	if !ok {
		enrichment.FallbackNotice = strPtr(e.fallbackMessage)
		enrichment.Error = strPtr(missingCoordinatesError)
		return enrichment
	}
	enrichment.Latitude = &pos.Latitude
	enrichment.Longitude = &pos.Longitude

	degraded := false
	mapURL, err := e.linker.MapURL(ctx, pos)
	if err != nil {
		log.Debug().Err(err).Msg("Map link unavailable, using search link")
		mapURL = CoordinatesURL(pos)
		degraded = true
	}
	enrichment.MapURL = &mapURL

	if e.geocoder != nil {
		place, err := e.geocoder.ReverseGeocode(ctx, pos)
		if err != nil {
			log.Debug().Err(err).Msg("Reverse geocoding failed")
			degraded = true
		}
		enrichment.Place = place
	}

	names, destinations := resolvablePOIs(pois)
	if len(destinations) > 0 {
		for _, mode := range e.modes {
			estimates, live := e.estimate(ctx, pos, destinations, mode)
			if !live {
				degraded = true
			}
			for i, estimate := range estimates {
				enrichment.TravelTimes[names[i]] = append(enrichment.TravelTimes[names[i]], estimate)
			}
		}
	}

	if degraded {
		enrichment.FallbackNotice = strPtr(e.fallbackMessage)
		enrichment.Error = strPtr(serviceUnavailableError)
	}
	return enrichment
}

// EnrichAll enriches listings sequentially, one result per listing
func (e *Enricher) EnrichAll(ctx context.Context, raws []model.RawListing, pois []model.PointOfInterest) []model.MapEnrichment {
	out := make([]model.MapEnrichment, 0, len(raws))
	for _, raw := range raws {
		out = append(out, e.Enrich(ctx, raw, pois))
	}
	return out
}

// estimate runs the configured strategy and falls back to the local one.
// live is false when the configured strategy failed for a reason other than
// not supporting the mode.
func (e *Enricher) estimate(ctx context.Context, origin model.Coordinates, destinations []model.Coordinates, mode model.TravelMode) (estimates []model.TravelEstimate, live bool) {
	estimates, err := e.estimator.Estimate(ctx, origin, destinations, mode)
	if err == nil && len(estimates) == len(destinations) {
		return estimates, true
	}

	live = errors.Is(err, ErrUnsupportedMode)
	if !live {
		log.Warn().Err(err).Str("mode", string(mode)).Msg("Travel estimate failed, using great-circle estimate")
	}
	estimates, err = e.local.Estimate(ctx, origin, destinations, mode)
	if err != nil {
		return nil, live
	}
	return estimates, live
}

func resolvablePOIs(pois []model.PointOfInterest) ([]string, []model.Coordinates) {
	var names []string
	var coords []model.Coordinates
	for _, poi := range pois {
		if c, ok := poi.Coordinates(); ok {
			names = append(names, poi.Name)
			coords = append(coords, c)
		}
	}
	return names, coords
}

// ParseTravelModes keeps the known modes, defaulting to driving
func ParseTravelModes(values []string) []model.TravelMode {
	var modes []model.TravelMode
	for _, v := range values {
		mode := model.TravelMode(strings.ToLower(strings.TrimSpace(v)))
		if _, ok := averageSpeedKmh[mode]; !ok {
			log.Warn().Str("mode", v).Msg("Ignoring unknown travel mode")
			continue
		}
		modes = append(modes, mode)
	}
	if len(modes) == 0 {
		return []model.TravelMode{model.ModeDriving}
	}
	return modes
}

// ParsePointsOfInterest reads "Name:lat,lon;Name:lat,lon". Malformed entries
// are skipped.
func ParsePointsOfInterest(value string) []model.PointOfInterest {
	var pois []model.PointOfInterest
	for _, entry := range strings.Split(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idx := strings.LastIndex(entry, ":")
		if idx <= 0 {
			log.Warn().Str("entry", entry).Msg("Ignoring malformed point of interest")
			continue
		}
		parts := strings.Split(entry[idx+1:], ",")
		if len(parts) != 2 {
			log.Warn().Str("entry", entry).Msg("Ignoring malformed point of interest")
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLat != nil || errLon != nil {
			log.Warn().Str("entry", entry).Msg("Ignoring point of interest with invalid coordinates")
			continue
		}
		pois = append(pois, model.PointOfInterest{
			Name:      strings.TrimSpace(entry[:idx]),
			Latitude:  &lat,
			Longitude: &lon,
		})
	}
	return pois
}

func strPtr(s string) *string {
	return &s
}
