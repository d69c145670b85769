package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/neuraestate/property-matcher/internal/extract"
	"github.com/neuraestate/property-matcher/internal/listing"
	"github.com/neuraestate/property-matcher/internal/model"
)

const (
	// NoListingsFeedback is attached when a search produced no cards
	NoListingsFeedback = "No listings available for the provided preferences."

	fallbackEchoRunes = 280
	searchContextHead = "Summaries should reference these structured Bayut-inspired listings:\n"
	followUpHead      = "Use this structured context to guide your concierge follow-up: "
)

// ListingsSource returns raw listings for a set of preferences
type ListingsSource interface {
	Search(ctx context.Context, prefs model.Preferences) ([]model.RawListing, error)
}

// MapEnricher derives map context for raw listings
type MapEnricher interface {
	EnrichAll(ctx context.Context, raws []model.RawListing, pois []model.PointOfInterest) []model.MapEnrichment
}

// OrchestratorOptions configures an Orchestrator
type OrchestratorOptions struct {
	// Personas selects persona keys; empty selects all three
	Personas         []string
	PersonaOverrides map[model.Action]Persona
	Generator        ReplyGenerator
	Source           ListingsSource
	Enricher         MapEnricher
	Vocabulary       extract.Vocabulary
	Model            string
	Temperature      *float64
	ReplyTimeout     time.Duration
}

// Orchestrator runs the persona state machine for one turn at a time
type Orchestrator struct {
	personas     []Persona
	byKey        map[model.Action]Persona
	selected     map[model.Action]bool
	generator    ReplyGenerator
	source       ListingsSource
	enricher     MapEnricher
	vocab        extract.Vocabulary
	model        string
	temperature  *float64
	replyTimeout time.Duration
}

// NewOrchestrator validates the persona selection and builds an orchestrator.
// Without a listings source it searches synthetic listings.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	personas, err := SelectPersonas(opts.Personas, opts.PersonaOverrides)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		personas:     personas,
		byKey:        make(map[model.Action]Persona, len(personas)),
		selected:     make(map[model.Action]bool, len(personas)),
		generator:    opts.Generator,
		source:       opts.Source,
		enricher:     opts.Enricher,
		vocab:        opts.Vocabulary,
		model:        opts.Model,
		temperature:  opts.Temperature,
		replyTimeout: opts.ReplyTimeout,
	}
	for _, p := range personas {
		o.byKey[p.Key] = p
		o.selected[p.Key] = true
	}
	if o.source == nil {
		o.source = listing.NewSyntheticSource()
	}
	if len(o.vocab.Gazetteer) == 0 && len(o.vocab.PropertyTypes) == 0 {
		o.vocab = extract.DefaultVocabulary()
	}
	return o, nil
}

// Personas returns the selected personas in step order
func (o *Orchestrator) Personas() []Persona {
	return append([]Persona(nil), o.personas...)
}

// WithReplySettings returns a copy using a different model or temperature
// for replies. Empty values keep the current settings.
func (o *Orchestrator) WithReplySettings(modelName string, temperature *float64) *Orchestrator {
	out := *o
	if modelName != "" {
		out.model = modelName
	}
	if temperature != nil {
		t := *temperature
		out.temperature = &t
	}
	return &out
}

// Run executes one turn, starting at the first selected persona and stepping
// until routing reaches End. The input state is not modified.
func (o *Orchestrator) Run(ctx context.Context, state model.ConversationState) model.ConversationState {
	current := state.EnsureContext()
	action := o.personas[0].Key

	for steps := 0; action != model.ActionEnd && steps < len(PersonaOrder); steps++ {
		current = o.Step(ctx, action, current)
		action = current.NextAction
	}
	current.NextAction = model.ActionEnd
	return current
}

// Step runs a single persona step and sets NextAction on the returned state
func (o *Orchestrator) Step(ctx context.Context, action model.Action, state model.ConversationState) model.ConversationState {
	persona, ok := o.byKey[action]
	if !ok {
		out := state.Clone()
		out.NextAction = model.ActionEnd
		return out
	}

	start := time.Now()
	var out model.ConversationState
	switch action {
	case model.ActionElicitPreferences:
		out = o.elicit(ctx, persona, state)
	case model.ActionSearch:
		out = o.search(ctx, persona, state)
	default:
		out = o.followUp(ctx, persona, state)
	}

	out.NextAction = remapUnselected(NextAction(action, out), o.selected)
	log.Debug().
		Str("step", string(action)).
		Str("next", string(out.NextAction)).
		Dur("took", time.Since(start)).
		Msg("Persona step finished")
	return out
}

func (o *Orchestrator) elicit(ctx context.Context, persona Persona, state model.ConversationState) model.ConversationState {
	out := state.Clone()
	if last, ok := out.LastUserMessage(); ok {
		out.Preferences = extract.Preferences(last.Content, out.Preferences, o.vocab)
	}
	reply := o.reply(ctx, persona, out, out.Context)
	return out.WithMessage(model.RoleAssistant, reply)
}

func (o *Orchestrator) search(ctx context.Context, persona Persona, state model.ConversationState) model.ConversationState {
	out := state.Clone()

	raws, err := o.source.Search(ctx, out.Preferences)
	if err != nil {
		log.Warn().Err(err).Msg("Listings source failed, continuing with no listings")
		raws = nil
	}

	out.Listings = listing.NormalizeBatch(raws)
	out.Enrichments = nil
	if o.enricher != nil && len(raws) > 0 {
		out.Enrichments = o.enricher.EnrichAll(ctx, raws, out.PointsOfInterest)
	}

	reply := o.reply(ctx, persona, out, searchContextHead+marshalContext(out.Listings, true))
	out = out.WithMessage(model.RoleAssistant, reply)

	if len(out.Listings) == 0 {
		out = withNoListings(out)
	}
	return out
}

func (o *Orchestrator) followUp(ctx context.Context, persona Persona, state model.ConversationState) model.ConversationState {
	out := state.Clone()

	highlights := marshalContext(map[string]any{
		"preferences": out.Preferences,
		"listings":    out.Listings,
	}, false)
	reply := o.reply(ctx, persona, out, followUpHead+highlights)
	out = out.WithMessage(model.RoleAssistant, reply)

	if lead := extract.DetectLead(out.Messages); lead != nil {
		out.Lead = lead
	}
	if len(out.Listings) == 0 {
		out = withNoListings(out)
	}
	return out
}

// withNoListings attaches the empty-result feedback and still captures a lead
func withNoListings(state model.ConversationState) model.ConversationState {
	feedback := NoListingsFeedback
	state.Feedback = &feedback
	if lead := extract.DetectLead(state.Messages); lead != nil {
		state.Lead = lead
	}
	return state
}

// reply asks the generator for a persona reply, substituting a labelled
// fallback when it is missing or fails.
func (o *Orchestrator) reply(ctx context.Context, persona Persona, state model.ConversationState, extraContext string) string {
	lastUser := ""
	if msg, ok := state.LastUserMessage(); ok {
		lastUser = firstRunes(msg.Content, fallbackEchoRunes)
	}

	if o.generator == nil || !o.generator.IsEnabled() {
		return fmt.Sprintf("[%s] Unable to reach the language model. Based on the latest message, here is a heuristic response: %s",
			persona.Name, lastUser)
	}

	callCtx := ctx
	if o.replyTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.replyTimeout)
		defer cancel()
	}

	text, err := o.generator.Generate(callCtx, ReplyRequest{
		SystemPrompt: persona.SystemPrompt,
		ExtraContext: extraContext,
		History:      state.Messages,
		Model:        o.model,
		Temperature:  o.temperature,
	})
	if err != nil {
		log.Warn().Err(err).Str("persona", string(persona.Key)).Msg("Reply generation failed, using fallback")
		return fmt.Sprintf("[%s] Encountered an error reaching the model (%v). Here's a heuristic echo of your last message: %s",
			persona.Name, err, lastUser)
	}
	return text
}

func marshalContext(v any, indent bool) string {
	var data []byte
	var err error
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to serialize persona context")
		return "{}"
	}
	return string(data)
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
