package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/model"
)

const (
	sourceMapbox = "mapbox"
	markerColor  = "2F855A"
	markerLabel  = "A"
)

var (
	// ErrProviderDisabled is returned once the provider rejected our credentials
	ErrProviderDisabled = errors.New("map provider disabled")
	// ErrUnsupportedMode is returned for a travel mode a strategy cannot serve
	ErrUnsupportedMode = errors.New("unsupported travel mode")
)

// Mapbox routing profiles per travel mode. Mapbox has no transit profile.
var mapboxProfiles = map[model.TravelMode]string{
	model.ModeWalking: "mapbox/walking",
	model.ModeCycling: "mapbox/cycling",
	model.ModeDriving: "mapbox/driving",
}

// MapboxClient handles Mapbox static image, matrix and geocoding calls.
// A 401 or 403 response disables it for the rest of the process.
type MapboxClient struct {
	token      string
	baseURL    string
	style      string
	zoom       int
	width      int
	height     int
	httpClient *http.Client
	limiter    *rate.Limiter
	disabled   atomic.Bool
}

// NewMapboxClient creates a new Mapbox client from configuration
func NewMapboxClient(cfg *config.MapsConfig) (*MapboxClient, error) {
	token, err := cfg.RequireMapboxToken()
	if err != nil {
		return nil, err
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &MapboxClient{
		token:   token,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		style:   cfg.StaticStyle,
		zoom:    cfg.StaticZoom,
		width:   max(1, cfg.StaticWidth),
		height:  max(1, cfg.StaticHeight),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
	}, nil
}

// Disabled reports whether the provider has been switched off
func (c *MapboxClient) Disabled() bool {
	return c.disabled.Load()
}

// MapURL returns a static map image URL centred on the position
func (c *MapboxClient) MapURL(_ context.Context, pos model.Coordinates) (string, error) {
	if c.Disabled() {
		return "", ErrProviderDisabled
	}
	lon, lat := formatCoord(pos.Longitude), formatCoord(pos.Latitude)
	marker := fmt.Sprintf("pin-s-%s+%s(%s,%s)", markerLabel, markerColor, lon, lat)
	return fmt.Sprintf("%s/styles/v1/%s/static/%s/%s,%s,%d/%dx%d@2x?access_token=%s",
		c.baseURL, c.style, marker, lon, lat, c.zoom, c.width, c.height, url.QueryEscape(c.token)), nil
}

type matrixResponse struct {
	Code      string       `json:"code"`
	Durations [][]*float64 `json:"durations"`
	Distances [][]*float64 `json:"distances"`
}

// Estimate calls the directions matrix with the origin at index 0
func (c *MapboxClient) Estimate(ctx context.Context, origin model.Coordinates, destinations []model.Coordinates, mode model.TravelMode) ([]model.TravelEstimate, error) {
	profile, ok := mapboxProfiles[mode]
	if !ok {
		return nil, fmt.Errorf("%w: mapbox has no %s profile", ErrUnsupportedMode, mode)
	}
	if len(destinations) == 0 {
		return []model.TravelEstimate{}, nil
	}

	points := make([]string, 0, len(destinations)+1)
	points = append(points, formatCoord(origin.Longitude)+","+formatCoord(origin.Latitude))
	for _, d := range destinations {
		points = append(points, formatCoord(d.Longitude)+","+formatCoord(d.Latitude))
	}
	endpoint := fmt.Sprintf("%s/directions-matrix/v1/%s/%s", c.baseURL, profile, strings.Join(points, ";"))

	var resp matrixResponse
	if err := c.get(ctx, endpoint, url.Values{"annotations": {"duration,distance"}}, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" && resp.Code != "Ok" {
		return nil, fmt.Errorf("mapbox matrix returned code %s", resp.Code)
	}

	estimates := make([]model.TravelEstimate, 0, len(destinations))
	for i := range destinations {
		estimate := model.TravelEstimate{Mode: mode, Source: sourceMapbox}
		if v := matrixCell(resp.Durations, i+1); v != nil {
			minutes := round1(*v / 60)
			estimate.DurationMinutes = &minutes
		}
		if v := matrixCell(resp.Distances, i+1); v != nil {
			meters := round1(*v)
			estimate.DistanceMeters = &meters
		}
		estimates = append(estimates, estimate)
	}
	return estimates, nil
}

type geocodeResponse struct {
	Features []struct {
		PlaceName string `json:"place_name"`
	} `json:"features"`
}

// ReverseGeocode returns the place name of a position, or nil when unknown
func (c *MapboxClient) ReverseGeocode(ctx context.Context, pos model.Coordinates) (*string, error) {
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s,%s.json",
		c.baseURL, formatCoord(pos.Longitude), formatCoord(pos.Latitude))
	params := url.Values{
		"types":    {"address,place,locality,region"},
		"language": {"en"},
		"limit":    {"1"},
	}

	var resp geocodeResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Features) == 0 || resp.Features[0].PlaceName == "" {
		return nil, nil
	}
	return &resp.Features[0].PlaceName, nil
}

func (c *MapboxClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.Disabled() {
		return ErrProviderDisabled
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mapbox rate limiter: %w", err)
	}

	params.Set("access_token", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the access token; keep it out of errors and logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("mapbox request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if c.disabled.CompareAndSwap(false, true) {
			log.Error().Int("status", resp.StatusCode).Msg("Mapbox rejected credentials, disabling provider")
		}
		return fmt.Errorf("%w: status %d", ErrProviderDisabled, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("mapbox request failed with status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func matrixCell(rows [][]*float64, col int) *float64 {
	if len(rows) == 0 || len(rows[0]) <= col {
		return nil
	}
	return rows[0][col]
}
