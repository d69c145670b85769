package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/utils"
)

const searchEndpoint = "properties_search"

// DefaultAllowedFilters are the request body keys accepted by /properties_search
var DefaultAllowedFilters = []string{
	"purpose", "category", "rooms", "baths", "price_min", "price_max",
	"area_min", "area_max", "locations_ids", "query", "amenities",
	"is_completed", "rent_frequency", "sort_order", "reference_ids", "similar_property_id",
}

// AuditLog receives one record per raw provider exchange
type AuditLog interface {
	Append(record any) error
}

// SearchResult is one Bayut response plus the request that produced it
type SearchResult struct {
	Listings       []model.RawListing   `json:"listings"`
	Cards          []model.PropertyCard `json:"cards"`
	Raw            map[string]any       `json:"raw"`
	RequestPayload map[string]any       `json:"request_payload"`
	QueryParams    map[string]string    `json:"query_params"`
}

// BayutClient searches listings through the Bayut RapidAPI endpoints
type BayutClient struct {
	baseURL        string
	apiKey         string
	apiHost        string
	language       string
	allowedFilters map[string]bool
	httpClient     *http.Client
	limiter        *rate.Limiter
	audit          AuditLog
}

// NewBayutClient creates a new Bayut client. audit may be nil.
func NewBayutClient(cfg *config.BayutConfig, audit AuditLog) *BayutClient {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 15
	}
	filters := cfg.AllowedFilters
	if len(filters) == 0 {
		filters = DefaultAllowedFilters
	}
	allowed := make(map[string]bool, len(filters))
	for _, f := range filters {
		allowed[f] = true
	}

	return &BayutClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		apiHost:        cfg.APIHost,
		language:       cfg.Language,
		allowedFilters: allowed,
		httpClient:     &http.Client{Timeout: time.Duration(timeout) * time.Second},
		limiter:        rate.NewLimiter(rate.Limit(2), 2),
		audit:          audit,
	}
}

// Search implements the listings source used by the search persona
func (c *BayutClient) Search(ctx context.Context, prefs model.Preferences) ([]model.RawListing, error) {
	result, err := c.SearchProperties(ctx, BuildFilters(prefs), nil)
	if err != nil {
		return nil, err
	}
	return result.Listings, nil
}

// SearchProperties calls /properties_search with the given body filters.
// Unsupported or null filters are dropped before the request is sent.
func (c *BayutClient) SearchProperties(ctx context.Context, filters map[string]any, page *int) (*SearchResult, error) {
	body := c.preparePayload(filters)
	params := c.prepareQuery(page)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("bayut rate limiter: %w", err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, searchEndpoint)
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		endpoint += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)
	req.Header.Set("content-type", "application/json")

	log.Debug().Interface("body", body).Interface("params", params).Msg("Calling Bayut properties_search")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bayut API error (status %d): %s", resp.StatusCode, utils.TruncateRunes(string(raw), 200))
	}

	payload, err := utils.TryParseJSONObject(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode bayut response: %w", err)
	}

	listings := ExtractResults(payload)
	result := &SearchResult{
		Listings:       listings,
		Cards:          NormalizeBatch(listings),
		Raw:            payload,
		RequestPayload: body,
		QueryParams:    params,
	}
	c.persistRaw(searchEndpoint, result)
	return result, nil
}

// RecommendSimilar reuses the search endpoint anchored on one property.
// Caller-supplied anchor keys are kept.
func (c *BayutClient) RecommendSimilar(ctx context.Context, anchorID int64, filters map[string]any, page *int) (*SearchResult, error) {
	combined := make(map[string]any, len(filters)+2)
	for k, v := range filters {
		combined[k] = v
	}
	if _, ok := combined["reference_ids"]; !ok {
		combined["reference_ids"] = []int64{anchorID}
	}
	if _, ok := combined["similar_property_id"]; !ok {
		combined["similar_property_id"] = anchorID
	}
	return c.SearchProperties(ctx, combined, page)
}

// BuildFilters maps structured preferences onto Bayut body filters
func BuildFilters(prefs model.Preferences) map[string]any {
	filters := map[string]any{"purpose": "for-sale"}
	if prefs.Bedrooms != nil {
		filters["rooms"] = []int{*prefs.Bedrooms}
	}
	if prefs.BudgetAED != nil {
		filters["price_max"] = *prefs.BudgetAED
	}
	if prefs.PropertyType != nil {
		filters["category"] = *prefs.PropertyType
	}
	if len(prefs.Locations) > 0 {
		filters["query"] = strings.Join(prefs.Locations, ", ")
	}
	return filters
}

func (c *BayutClient) preparePayload(filters map[string]any) map[string]any {
	payload := make(map[string]any, len(filters))
	for key, value := range filters {
		if value == nil {
			continue
		}
		if len(c.allowedFilters) > 0 && !c.allowedFilters[key] {
			log.Debug().Str("key", key).Msg("Ignoring unsupported Bayut filter")
			continue
		}
		payload[key] = value
	}
	return payload
}

func (c *BayutClient) prepareQuery(page *int) map[string]string {
	params := map[string]string{}
	if page != nil {
		params["page"] = strconv.Itoa(*page)
	}
	if c.language != "" {
		params["langs"] = c.language
	}
	return params
}

func (c *BayutClient) persistRaw(endpoint string, result *SearchResult) {
	if c.audit == nil {
		return
	}
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"endpoint":  endpoint,
		"request": map[string]any{
			"payload": result.RequestPayload,
			"params":  result.QueryParams,
		},
		"response": result.Raw,
	}
	if err := c.audit.Append(entry); err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to persist Bayut audit record")
	}
}
