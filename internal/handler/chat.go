package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/service"
)

// ChatHandler handles conversation HTTP requests
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Turn handles POST /api/v1/chat
func (h *ChatHandler) Turn(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := h.chatService.Turn(c.Request.Context(), &req)
	if err != nil {
		status := sessionErrorStatus(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("session", req.SessionID).Msg("Chat turn failed")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetSession handles GET /api/v1/chat/:id
func (h *ChatHandler) GetSession(c *gin.Context) {
	id := c.Param("id")
	state, err := h.chatService.Sessions().Get(id)
	if err != nil {
		c.JSON(sessionErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.SessionResponse{SessionID: id, State: state})
}

// Reset handles POST /api/v1/chat/:id/reset
func (h *ChatHandler) Reset(c *gin.Context) {
	id := c.Param("id")
	state, err := h.chatService.Sessions().Reset(id)
	if err != nil {
		c.JSON(sessionErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.SessionResponse{SessionID: id, State: state})
}

func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownPersona):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTurnInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
