package model

// ChatRequest runs one conversation turn
type ChatRequest struct {
	SessionID        string            `json:"session_id"`
	Message          string            `json:"message" binding:"required"`
	Personas         []string          `json:"personas,omitempty"`
	Model            string            `json:"model,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	PointsOfInterest []PointOfInterest `json:"points_of_interest,omitempty"`
}

// ChatResponse is the outcome of one turn
type ChatResponse struct {
	SessionID           string           `json:"session_id"`
	Reply               string           `json:"reply"`
	Replies             []Message        `json:"replies"`
	Preferences         Preferences      `json:"preferences"`
	PreferencesComplete bool             `json:"preferences_complete"`
	Recommendations     []Recommendation `json:"recommendations"`
	Enrichments         []MapEnrichment  `json:"enrichments"`
	Lead                *Lead            `json:"lead"`
	Feedback            *string          `json:"feedback"`
	NextAction          Action           `json:"next_action"`
	Took                int64            `json:"took_ms"`
}

// SessionResponse exposes the stored state of a conversation
type SessionResponse struct {
	SessionID string            `json:"session_id"`
	State     ConversationState `json:"state"`
}

// LeadRequest is a lead submitted through the contact form
type LeadRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
	SessionID string `json:"session_id"`
}

// FeedbackRequest is free-text feedback from the client
type FeedbackRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

// NormalizeRequest carries raw listings, or a whole search response payload
type NormalizeRequest struct {
	Listings []RawListing   `json:"listings"`
	Payload  map[string]any `json:"payload"`
}

// NormalizeResponse holds the normalized cards
type NormalizeResponse struct {
	Cards []PropertyCard `json:"cards"`
	Count int            `json:"count"`
}

// EnrichRequest asks for map context for raw listings
type EnrichRequest struct {
	Listings         []RawListing      `json:"listings" binding:"required"`
	PointsOfInterest []PointOfInterest `json:"points_of_interest"`
}

// EnrichResponse holds one enrichment per requested listing
type EnrichResponse struct {
	Enrichments []MapEnrichment `json:"enrichments"`
}

// SimilarResponse lists cards similar to an anchor listing
type SimilarResponse struct {
	ID     string         `json:"id"`
	Source string         `json:"source"` // index or bayut
	Cards  []PropertyCard `json:"cards"`
}

// CardIndexItem is one card to store, optionally with a precomputed embedding
type CardIndexItem struct {
	Card      PropertyCard `json:"card"`
	Embedding []float32    `json:"embedding,omitempty"`
}

// CardIndexRequest is a batch of cards to store in the card index
type CardIndexRequest struct {
	Cards []CardIndexItem `json:"cards" binding:"required"`
}

// CardIndexResponse reports a card index batch
type CardIndexResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// SubmitResponse acknowledges a lead or feedback submission
type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Lead    *Lead  `json:"lead,omitempty"`
}
