package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/service"
)

// FeedbackHandler handles lead and feedback submissions
type FeedbackHandler struct {
	chatService *service.ChatService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(chatService *service.ChatService) *FeedbackHandler {
	return &FeedbackHandler{
		chatService: chatService,
	}
}

// Submit handles POST /api/v1/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if _, err := h.chatService.SubmitFeedback(c.Request.Context(), &req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log feedback: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.SubmitResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}

// SubmitLead handles POST /api/v1/leads
func (h *FeedbackHandler) SubmitLead(c *gin.Context) {
	var req model.LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	lead, err := h.chatService.SubmitLead(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLead) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record lead: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, model.SubmitResponse{
		Success: true,
		Message: "Thanks! Our concierge will be in touch shortly.",
		Lead:    &lead,
	})
}
