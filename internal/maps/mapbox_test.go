package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/model"
)

func testMapsConfig(baseURL string) *config.MapsConfig {
	return &config.MapsConfig{
		Provider:          "mapbox",
		AccessToken:       "pk.test",
		BaseURL:           baseURL,
		StaticStyle:       "mapbox/streets-v12",
		StaticZoom:        14,
		StaticWidth:       640,
		StaticHeight:      360,
		TimeoutSeconds:    5,
		RequestsPerSecond: 100,
		Modes:             []string{"driving"},
	}
}

func TestNewMapboxClient_MissingToken(t *testing.T) {
	cfg := testMapsConfig("https://api.mapbox.com")
	cfg.AccessToken = ""

	_, err := NewMapboxClient(cfg)
	assert.ErrorIs(t, err, config.ErrMissingMapCredential)
}

func TestMapboxClient_MapURL(t *testing.T) {
	client, err := NewMapboxClient(testMapsConfig("https://api.mapbox.com"))
	require.NoError(t, err)

	got, err := client.MapURL(context.Background(), model.Coordinates{Latitude: 25.08, Longitude: 55.14})
	require.NoError(t, err)
	assert.Equal(t,
		"https://api.mapbox.com/styles/v1/mapbox/streets-v12/static/pin-s-A+2F855A(55.140000,25.080000)/55.140000,25.080000,14/640x360@2x?access_token=pk.test",
		got)
}

func TestMapboxClient_Estimate(t *testing.T) {
	var gotPath, gotAnnotations string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAnnotations = r.URL.Query().Get("annotations")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code": "Ok", "durations": [[0, 905.0, null]], "distances": [[0, 10012.34, 8000]]}`))
	}))
	defer server.Close()

	client, err := NewMapboxClient(testMapsConfig(server.URL))
	require.NoError(t, err)

	origin := model.Coordinates{Latitude: 25.0, Longitude: 55.0}
	dests := []model.Coordinates{{Latitude: 25.1, Longitude: 55.1}, {Latitude: 25.2, Longitude: 55.2}}
	estimates, err := client.Estimate(context.Background(), origin, dests, model.ModeDriving)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotPath, "/directions-matrix/v1/mapbox/driving/55.000000,25.000000;"))
	assert.Equal(t, "duration,distance", gotAnnotations)
	require.Len(t, estimates, 2)
	assert.Equal(t, 15.1, *estimates[0].DurationMinutes)
	assert.Equal(t, 10012.3, *estimates[0].DistanceMeters)
	assert.Equal(t, "mapbox", estimates[0].Source)
	assert.Nil(t, estimates[1].DurationMinutes)
	assert.Equal(t, 8000.0, *estimates[1].DistanceMeters)
}

func TestMapboxClient_TransitUnsupported(t *testing.T) {
	client, err := NewMapboxClient(testMapsConfig("http://127.0.0.1:1"))
	require.NoError(t, err)

	_, err = client.Estimate(context.Background(), model.Coordinates{}, []model.Coordinates{{}}, model.ModeTransit)
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestMapboxClient_UnauthorizedDisablesProvider(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewMapboxClient(testMapsConfig(server.URL))
	require.NoError(t, err)

	dests := []model.Coordinates{{Latitude: 25.1, Longitude: 55.1}}
	_, err = client.Estimate(context.Background(), model.Coordinates{Latitude: 25, Longitude: 55}, dests, model.ModeDriving)
	assert.ErrorIs(t, err, ErrProviderDisabled)
	assert.True(t, client.Disabled())

	_, err = client.Estimate(context.Background(), model.Coordinates{Latitude: 25, Longitude: 55}, dests, model.ModeDriving)
	assert.ErrorIs(t, err, ErrProviderDisabled)
	_, err = client.MapURL(context.Background(), model.Coordinates{})
	assert.ErrorIs(t, err, ErrProviderDisabled)

	assert.Equal(t, int32(1), calls.Load(), "disabled provider must not be called again")
}

func TestMapboxClient_ReverseGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoding/v5/mapbox.places/55.140000,25.080000.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"features": [{"place_name": "Dubai Marina, Dubai, United Arab Emirates"}]}`))
	}))
	defer server.Close()

	client, err := NewMapboxClient(testMapsConfig(server.URL))
	require.NoError(t, err)

	place, err := client.ReverseGeocode(context.Background(), model.Coordinates{Latitude: 25.08, Longitude: 55.14})
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "Dubai Marina, Dubai, United Arab Emirates", *place)
}
