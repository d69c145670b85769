package handler

import "github.com/gin-gonic/gin"

// Handlers groups the API handlers mounted by RegisterRoutes
type Handlers struct {
	Chat      *ChatHandler
	Feedback  *FeedbackHandler
	Listings  *ListingHandler
	Embedding *EmbeddingHandler
}

// RegisterRoutes mounts the API endpoints on group
func RegisterRoutes(group *gin.RouterGroup, h Handlers) {
	// Conversation endpoints
	group.POST("/chat", h.Chat.Turn)
	group.GET("/chat/:id", h.Chat.GetSession)
	group.POST("/chat/:id/reset", h.Chat.Reset)

	// Lead and feedback endpoints
	group.POST("/leads", h.Feedback.SubmitLead)
	group.POST("/feedback", h.Feedback.Submit)

	// Listing endpoints
	group.POST("/listings/normalize", h.Listings.Normalize)
	group.GET("/listings/:id", h.Listings.GetListing)
	group.GET("/listings/:id/similar", h.Listings.Similar)
	group.POST("/cards/index", h.Embedding.BatchUpdate)

	// Map endpoints
	group.POST("/maps/enrich", h.Listings.Enrich)
	group.GET("/maps/link", h.Listings.MapLink)
}
