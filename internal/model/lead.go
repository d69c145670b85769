package model

import "time"

// Lead is contact information captured from chat or the lead form
type Lead struct {
	Source    string     `json:"source"` // chat, form
	Name      *string    `json:"name,omitempty"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	Notes     string     `json:"notes"`
	SessionID string     `json:"session_id,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"` // set by the event log
}

// Feedback is a free-text note, either from the user or raised by the
// orchestrator when a search produced nothing.
type Feedback struct {
	Message   string     `json:"message"`
	SessionID string     `json:"session_id,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// TurnRecord is the audit entry written after every chat turn
type TurnRecord struct {
	SessionID    string      `json:"session_id"`
	UserMessage  string      `json:"user_message"`
	Reply        string      `json:"reply"`
	Preferences  Preferences `json:"preferences"`
	ListingCount int         `json:"listing_count"`
	NextAction   Action      `json:"next_action"`
	TookMs       int64       `json:"took_ms"`
	Timestamp    *time.Time  `json:"timestamp,omitempty"`
}
