package maps

import (
	"context"
	"fmt"
	"math"

	"github.com/neuraestate/property-matcher/internal/model"
)

const (
	earthRadiusKm   = 6371.0
	sourceHaversine = "haversine"
)

// Average speeds in km/h for the great-circle estimate
var averageSpeedKmh = map[model.TravelMode]float64{
	model.ModeWalking: 5,
	model.ModeCycling: 15,
	model.ModeDriving: 40,
	model.ModeTransit: 25,
}

// HaversineKm returns the great-circle distance between two points
func HaversineKm(a, b model.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// HaversineEstimator estimates travel as straight-line distance over a fixed
// average speed. It needs no network and never fails for a known mode.
type HaversineEstimator struct{}

// Estimate returns one estimate per destination, in order
func (HaversineEstimator) Estimate(_ context.Context, origin model.Coordinates, destinations []model.Coordinates, mode model.TravelMode) ([]model.TravelEstimate, error) {
	speed, ok := averageSpeedKmh[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
	estimates := make([]model.TravelEstimate, 0, len(destinations))
	for _, dest := range destinations {
		km := HaversineKm(origin, dest)
		meters := round1(km * 1000)
		minutes := round1(km / speed * 60)
		estimates = append(estimates, model.TravelEstimate{
			Mode:            mode,
			DistanceMeters:  &meters,
			DurationMinutes: &minutes,
			Source:          sourceHaversine,
		})
	}
	return estimates, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
