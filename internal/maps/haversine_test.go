package maps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraestate/property-matcher/internal/model"
)

// 10 km along a meridian is 10/6371 radians of latitude
const tenKmLatitude = 0.08993216059187306

func TestHaversineKm(t *testing.T) {
	a := model.Coordinates{Latitude: 25.0, Longitude: 55.0}
	b := model.Coordinates{Latitude: 25.0 + tenKmLatitude, Longitude: 55.0}

	assert.InDelta(t, 10.0, HaversineKm(a, b), 1e-6)
	assert.Equal(t, 0.0, HaversineKm(a, a))
}

func TestHaversineEstimator_PerMode(t *testing.T) {
	origin := model.Coordinates{Latitude: 25.0, Longitude: 55.0}
	dest := model.Coordinates{Latitude: 25.0 + tenKmLatitude, Longitude: 55.0}

	tests := []struct {
		mode    model.TravelMode
		minutes float64
	}{
		{mode: model.ModeDriving, minutes: 15.0},
		{mode: model.ModeWalking, minutes: 120.0},
		{mode: model.ModeCycling, minutes: 40.0},
		{mode: model.ModeTransit, minutes: 24.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			estimates, err := HaversineEstimator{}.Estimate(context.Background(), origin, []model.Coordinates{dest}, tt.mode)
			require.NoError(t, err)
			require.Len(t, estimates, 1)
			assert.InDelta(t, tt.minutes, *estimates[0].DurationMinutes, 0.05)
			assert.InDelta(t, 10000.0, *estimates[0].DistanceMeters, 0.5)
			assert.Equal(t, "haversine", estimates[0].Source)
		})
	}
}

func TestHaversineEstimator_UnknownMode(t *testing.T) {
	_, err := HaversineEstimator{}.Estimate(context.Background(), model.Coordinates{}, []model.Coordinates{{}}, "teleport")
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}
