package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraestate/property-matcher/internal/model"
)

type stubGenerator struct {
	mu       sync.Mutex
	err      error
	disabled bool
	requests []ReplyRequest
}

func (g *stubGenerator) IsEnabled() bool { return !g.disabled }

func (g *stubGenerator) Generate(_ context.Context, req ReplyRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	return "reply " + strings.SplitN(req.SystemPrompt, " ", 5)[3], nil
}

type stubSource struct {
	listings []model.RawListing
	err      error
	calls    int
}

func (s *stubSource) Search(_ context.Context, _ model.Preferences) ([]model.RawListing, error) {
	s.calls++
	return s.listings, s.err
}

type stubEnricher struct {
	calls int
}

func (e *stubEnricher) EnrichAll(_ context.Context, raws []model.RawListing, _ []model.PointOfInterest) []model.MapEnrichment {
	e.calls++
	out := make([]model.MapEnrichment, len(raws))
	return out
}

func newTestOrchestrator(t *testing.T, opts OrchestratorOptions) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(opts)
	require.NoError(t, err)
	return o
}

func userState(messages ...string) model.ConversationState {
	state := model.NewConversationState("NeuraEstate test context")
	for _, m := range messages {
		state = state.WithMessage(model.RoleUser, m)
	}
	return state
}

func TestOrchestrator_CompletePreferencesRouteToSearch(t *testing.T) {
	gen := &stubGenerator{}
	o := newTestOrchestrator(t, OrchestratorOptions{Generator: gen})

	state := userState("Looking for a 2 bed apartment in Dubai Marina under 2.5m")
	out := o.Step(context.Background(), model.ActionElicitPreferences, state)

	require.NotNil(t, out.Preferences.Bedrooms)
	assert.Equal(t, 2, *out.Preferences.Bedrooms)
	require.NotNil(t, out.Preferences.PropertyType)
	assert.Equal(t, "apartment", *out.Preferences.PropertyType)
	assert.Equal(t, []string{"dubai marina"}, out.Preferences.Locations)
	require.NotNil(t, out.Preferences.BudgetAED)
	assert.Equal(t, 2_500_000.0, *out.Preferences.BudgetAED)
	assert.Equal(t, model.ActionSearch, out.NextAction)

	last, ok := out.LastAssistantMessage()
	require.True(t, ok)
	assert.Equal(t, "reply preference", last.Content)
	assert.Len(t, state.Messages, 2, "input state must not be modified")
}

func TestOrchestrator_RunFullTurn(t *testing.T) {
	gen := &stubGenerator{}
	enricher := &stubEnricher{}
	o := newTestOrchestrator(t, OrchestratorOptions{Generator: gen, Enricher: enricher})

	out := o.Run(context.Background(), userState("Looking for a 2 bed apartment in Dubai Marina under 2.5m"))

	assert.Equal(t, model.ActionEnd, out.NextAction)
	require.Len(t, out.Listings, 1)
	assert.Equal(t, "2-bed Apartment in Dubai Marina", *out.Listings[0].Title)
	assert.Len(t, out.Enrichments, 1)
	assert.Equal(t, 1, enricher.calls)
	assert.Nil(t, out.Feedback)
	assert.Nil(t, out.Lead)

	require.Len(t, out.Messages, 5)
	assert.Equal(t, model.RoleSystem, out.Messages[0].Role)
	assert.Equal(t, "reply preference", out.Messages[2].Content)
	assert.Equal(t, "reply research", out.Messages[3].Content)
	assert.Equal(t, "reply concierge", out.Messages[4].Content)

	require.Len(t, gen.requests, 3)
	assert.True(t, strings.HasPrefix(gen.requests[1].ExtraContext, searchContextHead))
	assert.Contains(t, gen.requests[1].ExtraContext, "synthetic-1")
	assert.True(t, strings.HasPrefix(gen.requests[2].ExtraContext, followUpHead))
}

func TestOrchestrator_IncompletePreferencesEndAfterElicitation(t *testing.T) {
	source := &stubSource{}
	o := newTestOrchestrator(t, OrchestratorOptions{Generator: &stubGenerator{}, Source: source})

	out := o.Run(context.Background(), userState("I want a 3 bedroom villa for 4m"))

	assert.Equal(t, model.ActionEnd, out.NextAction)
	assert.Empty(t, out.Listings)
	assert.Equal(t, 0, source.calls)
	require.Len(t, out.Messages, 3)
	assert.Equal(t, "reply preference", out.Messages[2].Content)
}

func TestOrchestrator_FollowUpDetectsLead(t *testing.T) {
	o := newTestOrchestrator(t, OrchestratorOptions{Generator: &stubGenerator{}})

	state := userState(
		"call me at 0501234567",
		"2 bed in downtown, budget 3m",
	)
	out := o.Run(context.Background(), state)

	require.NotNil(t, out.Lead)
	require.NotNil(t, out.Lead.Phone)
	assert.Equal(t, "0501234567", *out.Lead.Phone)
	assert.Equal(t, "chat", out.Lead.Source)
	assert.Equal(t, "call me at 0501234567", out.Lead.Notes)
}

func TestOrchestrator_EmptySearchAttachesFeedback(t *testing.T) {
	tests := []struct {
		name   string
		source *stubSource
	}{
		{name: "no results", source: &stubSource{}},
		{name: "source error", source: &stubSource{err: errors.New("upstream down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enricher := &stubEnricher{}
			o := newTestOrchestrator(t, OrchestratorOptions{
				Generator: &stubGenerator{},
				Source:    tt.source,
				Enricher:  enricher,
			})
			state := userState("reach me on agent@example.com. 1 bed in jlt for 900k")

			out := o.Run(context.Background(), state)

			assert.Equal(t, model.ActionEnd, out.NextAction)
			assert.Empty(t, out.Listings)
			assert.Equal(t, 0, enricher.calls)
			require.NotNil(t, out.Feedback)
			assert.Equal(t, NoListingsFeedback, *out.Feedback)
			require.NotNil(t, out.Lead, "lead detection still runs on empty results")
			assert.Equal(t, "agent@example.com", *out.Lead.Email)
			// elicitation and search replies only
			assert.Len(t, out.Messages, 4)
		})
	}
}

func TestOrchestrator_FallbackReplies(t *testing.T) {
	long := strings.Repeat("é", 300)

	t.Run("no generator", func(t *testing.T) {
		o := newTestOrchestrator(t, OrchestratorOptions{})
		out := o.Run(context.Background(), userState(long))

		last, ok := out.LastAssistantMessage()
		require.True(t, ok)
		assert.Equal(t,
			"[Preference Specialist] Unable to reach the language model. Based on the latest message, here is a heuristic response: "+
				strings.Repeat("é", 280),
			last.Content)
	})

	t.Run("disabled generator", func(t *testing.T) {
		o := newTestOrchestrator(t, OrchestratorOptions{Generator: &stubGenerator{disabled: true}})
		out := o.Run(context.Background(), userState("hello"))

		last, _ := out.LastAssistantMessage()
		assert.True(t, strings.HasPrefix(last.Content, "[Preference Specialist] Unable to reach the language model."))
	})

	t.Run("generator error", func(t *testing.T) {
		o := newTestOrchestrator(t, OrchestratorOptions{Generator: &stubGenerator{err: errors.New("boom")}})
		out := o.Run(context.Background(), userState("hello"))

		last, _ := out.LastAssistantMessage()
		assert.Equal(t,
			"[Preference Specialist] Encountered an error reaching the model (boom). Here's a heuristic echo of your last message: hello",
			last.Content)
	})
}

func TestOrchestrator_PersonaSubset(t *testing.T) {
	t.Run("elicitation only stops before search", func(t *testing.T) {
		source := &stubSource{}
		o := newTestOrchestrator(t, OrchestratorOptions{
			Personas:  []string{string(model.ActionElicitPreferences)},
			Generator: &stubGenerator{},
			Source:    source,
		})
		out := o.Run(context.Background(), userState("2 bed in dubai marina under 2.5m"))

		assert.Equal(t, model.ActionEnd, out.NextAction)
		assert.Equal(t, 0, source.calls)
		assert.True(t, out.Preferences.Complete())
	})

	t.Run("search and follow-up start at search", func(t *testing.T) {
		gen := &stubGenerator{}
		o := newTestOrchestrator(t, OrchestratorOptions{
			Personas:  []string{string(model.ActionFollowUp), string(model.ActionSearch)},
			Generator: gen,
		})
		out := o.Run(context.Background(), userState("hello"))

		require.Len(t, out.Listings, 1, "synthetic defaults fill the missing preferences")
		assert.Equal(t, "2-bed Apartment in Dubai Marina", *out.Listings[0].Title)
		require.Len(t, gen.requests, 2)
		assert.Equal(t, "reply research", out.Messages[2].Content)
		assert.Equal(t, "reply concierge", out.Messages[3].Content)
		assert.Nil(t, out.Preferences.Bedrooms, "preferences are not extracted without elicitation")
	})
}

func TestOrchestrator_StepOnUnselectedPersonaEnds(t *testing.T) {
	o := newTestOrchestrator(t, OrchestratorOptions{Personas: []string{string(model.ActionSearch)}})

	state := userState("hello")
	out := o.Step(context.Background(), model.ActionFollowUp, state)

	assert.Equal(t, model.ActionEnd, out.NextAction)
	assert.Equal(t, state.Messages, out.Messages)
}

func TestOrchestrator_UnknownPersona(t *testing.T) {
	_, err := NewOrchestrator(OrchestratorOptions{Personas: []string{"closer"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPersona)
	assert.Contains(t, err.Error(), "closer")
}

func TestOrchestrator_ReplySettings(t *testing.T) {
	gen := &stubGenerator{}
	base := newTestOrchestrator(t, OrchestratorOptions{Generator: gen, Model: "base-model"})
	temp := 0.9
	custom := base.WithReplySettings("other-model", &temp)

	base.Run(context.Background(), userState("hello"))
	custom.Run(context.Background(), userState("hello"))

	require.Len(t, gen.requests, 2)
	assert.Equal(t, "base-model", gen.requests[0].Model)
	assert.Nil(t, gen.requests[0].Temperature)
	assert.Equal(t, "other-model", gen.requests[1].Model)
	require.NotNil(t, gen.requests[1].Temperature)
	assert.Equal(t, 0.9, *gen.requests[1].Temperature)
}
