package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/service"
)

// EmbeddingHandler handles card index HTTP requests
type EmbeddingHandler struct {
	listingService *service.ListingService
	dimensions     int
}

// NewEmbeddingHandler creates a new embedding handler. Embeddings must have
// the given number of dimensions.
func NewEmbeddingHandler(listingService *service.ListingService, dimensions int) *EmbeddingHandler {
	return &EmbeddingHandler{
		listingService: listingService,
		dimensions:     dimensions,
	}
}

// BatchUpdate handles POST /api/v1/cards/index
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req model.CardIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Cards) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No cards provided"})
		return
	}

	for i, item := range req.Cards {
		if item.Card.ID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Card at index %d has no id", i)})
			return
		}
		if item.Embedding != nil && len(item.Embedding) != h.dimensions {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid embedding dimension at index %d, expected %d", i, h.dimensions),
			})
			return
		}
	}

	success, errs, err := h.listingService.Index(c.Request.Context(), req.Cards)
	if err != nil {
		if errors.Is(err, service.ErrIndexUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := model.CardIndexResponse{
		Success: success,
		Failed:  len(req.Cards) - success,
		Errors:  errs,
	}

	if len(errs) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
