package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/repository"
)

// ErrInvalidLead is returned when a submitted lead has no way to contact it
var ErrInvalidLead = errors.New("lead needs a name and an email or phone")

// EventRecorder persists leads, feedback and turn audits
type EventRecorder interface {
	RecordLead(ctx context.Context, lead model.Lead) (model.Lead, error)
	RecordFeedback(ctx context.Context, fb model.Feedback) (model.Feedback, error)
	RecordTurn(ctx context.Context, turn model.TurnRecord) error
}

// CardIndex stores normalized cards for similarity lookups
type CardIndex interface {
	UpsertCards(ctx context.Context, items []repository.CardEmbedding) (int, []string)
	GetCard(ctx context.Context, id string) (*model.PropertyCard, error)
	SimilarCards(ctx context.Context, id string, limit int) ([]model.PropertyCard, error)
}

var (
	_ EventRecorder = (*repository.JSONLEventLog)(nil)
	_ EventRecorder = (*repository.PostgresRepository)(nil)
	_ CardIndex     = (*repository.PostgresRepository)(nil)
)

// ChatService runs conversation turns against stored sessions
type ChatService struct {
	base         OrchestratorOptions
	orchestrator *Orchestrator
	sessions     *SessionStore
	events       EventRecorder
	ranker       *Ranker
	index        CardIndex
	embedder     Embedder
	pois         []model.PointOfInterest

	indexing sync.WaitGroup
}

// NewChatService creates a chat service. index and embedder may be nil;
// without an embedder cards are indexed without vectors.
func NewChatService(
	opts OrchestratorOptions,
	sessions *SessionStore,
	events EventRecorder,
	ranker *Ranker,
	index CardIndex,
	embedder Embedder,
	defaultPOIs []model.PointOfInterest,
) (*ChatService, error) {
	orchestrator, err := NewOrchestrator(opts)
	if err != nil {
		return nil, err
	}
	return &ChatService{
		base:         opts,
		orchestrator: orchestrator,
		sessions:     sessions,
		events:       events,
		ranker:       ranker,
		index:        index,
		embedder:     embedder,
		pois:         defaultPOIs,
	}, nil
}

// Sessions returns the session store
func (s *ChatService) Sessions() *SessionStore {
	return s.sessions
}

// Turn appends the user message to the session and runs one orchestrator turn
func (s *ChatService) Turn(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	startTime := time.Now()

	orchestrator, err := s.orchestratorFor(req)
	if err != nil {
		return nil, err
	}

	session, release, err := s.sessions.Acquire(req.SessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	state := session.State().EnsureContext()
	if len(req.PointsOfInterest) > 0 {
		state.PointsOfInterest = req.PointsOfInterest
	} else if len(state.PointsOfInterest) == 0 {
		state.PointsOfInterest = s.pois
	}
	previousLead := state.Lead
	state.Feedback = nil
	state = state.WithMessage(model.RoleUser, req.Message)
	firstReply := len(state.Messages)

	next := orchestrator.Run(ctx, state)

	if next.Lead != nil && !sameLead(previousLead, next.Lead) {
		lead := *next.Lead
		lead.SessionID = session.ID
		if recorded, err := s.events.RecordLead(ctx, lead); err != nil {
			log.Error().Err(err).Str("session", session.ID).Msg("Failed to record lead")
		} else {
			next.Lead = &recorded
		}
	}
	if next.Feedback != nil {
		fb := model.Feedback{Message: *next.Feedback, SessionID: session.ID}
		if _, err := s.events.RecordFeedback(ctx, fb); err != nil {
			log.Error().Err(err).Str("session", session.ID).Msg("Failed to record feedback")
		}
	}

	session.Store(next)

	replies := assistantReplies(next.Messages, firstReply)
	reply := ""
	if len(replies) > 0 {
		reply = replies[len(replies)-1].Content
	}
	took := time.Since(startTime).Milliseconds()

	if err := s.events.RecordTurn(ctx, model.TurnRecord{
		SessionID:    session.ID,
		UserMessage:  req.Message,
		Reply:        reply,
		Preferences:  next.Preferences,
		ListingCount: len(next.Listings),
		NextAction:   next.NextAction,
		TookMs:       took,
	}); err != nil {
		log.Warn().Err(err).Str("session", session.ID).Msg("Failed to record turn")
	}

	s.indexCards(next.Listings)

	enrichments := next.Enrichments
	if enrichments == nil {
		enrichments = []model.MapEnrichment{}
	}
	log.Info().
		Str("session", session.ID).
		Int("listings", len(next.Listings)).
		Bool("preferences_complete", next.Preferences.Complete()).
		Int64("took_ms", took).
		Msg("Chat turn finished")

	return &model.ChatResponse{
		SessionID:           session.ID,
		Reply:               reply,
		Replies:             replies,
		Preferences:         next.Preferences,
		PreferencesComplete: next.Preferences.Complete(),
		Recommendations:     s.ranker.RankCards(next.Listings, next.Preferences),
		Enrichments:         enrichments,
		Lead:                next.Lead,
		Feedback:            next.Feedback,
		NextAction:          next.NextAction,
		Took:                took,
	}, nil
}

// SubmitLead records a lead captured by the contact form
func (s *ChatService) SubmitLead(ctx context.Context, req *model.LeadRequest) (model.Lead, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || (email == "" && phone == "") {
		return model.Lead{}, ErrInvalidLead
	}

	lead := model.Lead{
		Source:    "form",
		Name:      &name,
		Notes:     strings.TrimSpace(req.Notes),
		SessionID: req.SessionID,
	}
	if email != "" {
		lead.Email = &email
	}
	if phone != "" {
		lead.Phone = &phone
	}
	return s.events.RecordLead(ctx, lead)
}

// SubmitFeedback records free-text feedback
func (s *ChatService) SubmitFeedback(ctx context.Context, req *model.FeedbackRequest) (model.Feedback, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return model.Feedback{}, fmt.Errorf("feedback message is empty")
	}
	return s.events.RecordFeedback(ctx, model.Feedback{Message: message, SessionID: req.SessionID})
}

// Wait blocks until background card indexing has finished
func (s *ChatService) Wait() {
	s.indexing.Wait()
}

func (s *ChatService) orchestratorFor(req *model.ChatRequest) (*Orchestrator, error) {
	orchestrator := s.orchestrator
	if len(req.Personas) > 0 {
		opts := s.base
		opts.Personas = req.Personas
		custom, err := NewOrchestrator(opts)
		if err != nil {
			return nil, err
		}
		orchestrator = custom
	}
	if req.Model != "" || req.Temperature != nil {
		orchestrator = orchestrator.WithReplySettings(req.Model, req.Temperature)
	}
	return orchestrator, nil
}

// indexCards stores the turn's cards for similarity lookups in the background
func (s *ChatService) indexCards(cards []model.PropertyCard) {
	if s.index == nil || len(cards) == 0 {
		return
	}
	items := make([]repository.CardEmbedding, len(cards))
	for i, card := range cards {
		items[i] = repository.CardEmbedding{Card: card.Clone()}
	}

	s.indexing.Add(1)
	go func() {
		defer s.indexing.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if s.embedder != nil {
			texts := make([]string, len(items))
			for i, item := range items {
				texts[i] = CardText(item.Card)
			}
			vectors, err := s.embedder.CreateEmbeddings(ctx, texts)
			if err != nil {
				log.Warn().Err(err).Msg("Card embedding failed, indexing without vectors")
			} else {
				for i := range items {
					if i < len(vectors) {
						items[i].Embedding = vectors[i]
					}
				}
			}
		}

		n, failures := s.index.UpsertCards(ctx, items)
		if len(failures) > 0 {
			log.Warn().Strs("failures", failures).Msg("Some cards were not indexed")
		}
		log.Debug().Int("indexed", n).Msg("Indexed property cards")
	}()
}

// CardText is the text embedded for a property card
func CardText(card model.PropertyCard) string {
	var parts []string
	for _, s := range []*string{card.Title, card.Location, card.Price} {
		if s != nil && *s != "" {
			parts = append(parts, *s)
		}
	}
	if card.Bedrooms != nil {
		parts = append(parts, fmt.Sprintf("%d bedrooms", *card.Bedrooms))
	}
	if len(card.Amenities) > 0 {
		parts = append(parts, strings.Join(card.Amenities, ", "))
	}
	return strings.Join(parts, ". ")
}

func assistantReplies(messages []model.Message, from int) []model.Message {
	replies := []model.Message{}
	if from > len(messages) {
		return replies
	}
	for _, msg := range messages[from:] {
		if msg.Role == model.RoleAssistant {
			replies = append(replies, msg)
		}
	}
	return replies
}

func sameLead(a, b *model.Lead) bool {
	if a == nil || b == nil {
		return a == b
	}
	return derefString(a.Email) == derefString(b.Email) &&
		derefString(a.Phone) == derefString(b.Phone) &&
		a.Notes == b.Notes
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
