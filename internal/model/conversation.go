package model

// Role identifies the author of a conversation message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the conversation history
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Action names the next orchestrator step. Persona steps share their key with
// the persona that runs them.
type Action string

const (
	ActionElicitPreferences Action = "preference_elicitation"
	ActionSearch            Action = "bayut_search"
	ActionFollowUp          Action = "concierge_follow_up"
	ActionEnd               Action = "end"
)

// ConversationState is the whole-state value handed from one orchestrator step
// to the next. Steps never mutate the value they receive; they work on a Clone.
type ConversationState struct {
	Messages         []Message         `json:"messages"`
	Preferences      Preferences       `json:"preferences"`
	Listings         []PropertyCard    `json:"listings"`
	Enrichments      []MapEnrichment   `json:"enrichments,omitempty"`
	PointsOfInterest []PointOfInterest `json:"points_of_interest,omitempty"`
	Lead             *Lead             `json:"lead,omitempty"`
	Feedback         *string           `json:"feedback,omitempty"`
	NextAction       Action            `json:"next_action"`
	Context          string            `json:"context,omitempty"`
}

// NewConversationState creates the initial state for a conversation, seeding
// the history with the business context as a system message.
func NewConversationState(context string) ConversationState {
	state := ConversationState{
		Messages:   []Message{},
		Listings:   []PropertyCard{},
		NextAction: ActionElicitPreferences,
		Context:    context,
	}
	return state.EnsureContext()
}

// Clone returns a deep copy so the caller's slices are never aliased
func (s ConversationState) Clone() ConversationState {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Preferences = s.Preferences.Clone()
	out.Listings = make([]PropertyCard, len(s.Listings))
	for i, card := range s.Listings {
		out.Listings[i] = card.Clone()
	}
	if s.Enrichments != nil {
		out.Enrichments = append([]MapEnrichment(nil), s.Enrichments...)
	}
	if s.PointsOfInterest != nil {
		out.PointsOfInterest = append([]PointOfInterest(nil), s.PointsOfInterest...)
	}
	if s.Lead != nil {
		lead := *s.Lead
		out.Lead = &lead
	}
	if s.Feedback != nil {
		fb := *s.Feedback
		out.Feedback = &fb
	}
	return out
}

// WithMessage returns a copy of the state with one more message appended
func (s ConversationState) WithMessage(role Role, content string) ConversationState {
	out := s.Clone()
	out.Messages = append(out.Messages, Message{Role: role, Content: content})
	return out
}

// EnsureContext inserts Context as the leading system message when the history
// carries no system message yet.
func (s ConversationState) EnsureContext() ConversationState {
	out := s.Clone()
	if out.Context == "" {
		return out
	}
	for _, msg := range out.Messages {
		if msg.Role == RoleSystem {
			return out
		}
	}
	out.Messages = append([]Message{{Role: RoleSystem, Content: out.Context}}, out.Messages...)
	return out
}

// LastUserMessage returns the newest user message, if any
func (s ConversationState) LastUserMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// LastAssistantMessage returns the newest assistant reply, if any
func (s ConversationState) LastAssistantMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}
