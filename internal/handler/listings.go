package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/neuraestate/property-matcher/internal/maps"
	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/service"
)

// ListingHandler handles listing normalization, map and similarity requests
type ListingHandler struct {
	listingService *service.ListingService
	defaultLimit   int
	maxLimit       int
}

// NewListingHandler creates a new listing handler
func NewListingHandler(listingService *service.ListingService, defaultLimit, maxLimit int) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		defaultLimit:   defaultLimit,
		maxLimit:       maxLimit,
	}
}

// Normalize handles POST /api/v1/listings/normalize
func (h *ListingHandler) Normalize(c *gin.Context) {
	var req model.NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if len(req.Listings) == 0 && req.Payload == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide listings or a search payload"})
		return
	}

	cards := h.listingService.Normalize(&req)
	c.JSON(http.StatusOK, model.NormalizeResponse{Cards: cards, Count: len(cards)})
}

// Enrich handles POST /api/v1/maps/enrich
func (h *ListingHandler) Enrich(c *gin.Context) {
	var req model.EnrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.EnrichResponse{
		Enrichments: h.listingService.Enrich(c.Request.Context(), &req),
	})
}

// MapLink handles GET /api/v1/maps/link?lat=&lon= or ?q=
func (h *ListingHandler) MapLink(c *gin.Context) {
	if q := c.Query("q"); q != "" {
		c.JSON(http.StatusOK, gin.H{"map_url": maps.QueryURL(q)})
		return
	}

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide q, or lat and lon within range"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"map_url": maps.CoordinatesURL(model.Coordinates{Latitude: lat, Longitude: lon}),
	})
}

// GetListing handles GET /api/v1/listings/:id
func (h *ListingHandler) GetListing(c *gin.Context) {
	card, err := h.listingService.Card(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrIndexUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get listing: " + err.Error()})
		return
	}

	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	c.JSON(http.StatusOK, card)
}

// Similar handles GET /api/v1/listings/:id/similar?limit=
func (h *ListingHandler) Similar(c *gin.Context) {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	id := c.Param("id")
	cards, source, err := h.listingService.Similar(c.Request.Context(), id, limit)
	if err != nil {
		if errors.Is(err, service.ErrSimilarUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.SimilarResponse{ID: id, Source: source, Cards: cards})
}
