package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/neuraestate/property-matcher/internal/model"
)

// ErrUnknownPersona is returned when a persona selection names an unknown key
var ErrUnknownPersona = errors.New("unknown persona")

// Persona is the configuration of one orchestrator step
type Persona struct {
	Key          model.Action `json:"key"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	SystemPrompt string       `json:"system_prompt"`
}

// PersonaOrder is the canonical step order
var PersonaOrder = []model.Action{
	model.ActionElicitPreferences,
	model.ActionSearch,
	model.ActionFollowUp,
}

// DefaultPersonas returns the built-in personas keyed by step
func DefaultPersonas() map[model.Action]Persona {
	return map[model.Action]Persona{
		model.ActionElicitPreferences: {
			Key:         model.ActionElicitPreferences,
			Name:        "Preference Specialist",
			Description: "Understands the client's goals and collects property search preferences.",
			SystemPrompt: "You are NeuraEstate's preference specialist. Ask targeted questions " +
				"to clarify the client's needs for Dubai properties (location, budget, " +
				"bedrooms, amenities). Summarise what you know in bullet points and end " +
				"with one clarifying question if more detail is required.",
		},
		model.ActionSearch: {
			Key:         model.ActionSearch,
			Name:        "Bayut Scout",
			Description: "Searches Bayut listings and prepares a shortlist based on preferences.",
			SystemPrompt: "You are a research analyst with real-time knowledge of Bayut listings. " +
				"Propose 2-3 Dubai properties that match the client's stated preferences. " +
				"Return concise listing summaries with location, price, bedrooms, and " +
				"a compelling reason they match. If data is missing, clearly state the " +
				"assumptions made.",
		},
		model.ActionFollowUp: {
			Key:         model.ActionFollowUp,
			Name:        "Concierge",
			Description: "Schedules follow-ups, captures leads, and keeps the loop going.",
			SystemPrompt: "You are a concierge who nurtures the lead. Provide next steps, capture " +
				"contact information if offered, and encourage continued engagement. " +
				"Close with an invitation for further details or another preference update.",
		},
	}
}

// SelectPersonas resolves a selection to personas in canonical order.
// An empty selection selects every persona; duplicates are ignored.
func SelectPersonas(keys []string, overrides map[model.Action]Persona) ([]Persona, error) {
	available := DefaultPersonas()
	for key, p := range overrides {
		if _, ok := available[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPersona, key)
		}
		p.Key = key
		available[key] = p
	}

	if len(keys) == 0 {
		selected := make([]Persona, 0, len(PersonaOrder))
		for _, key := range PersonaOrder {
			selected = append(selected, available[key])
		}
		return selected, nil
	}

	wanted := make(map[model.Action]bool, len(keys))
	var unknown []string
	for _, raw := range keys {
		key := model.Action(strings.TrimSpace(raw))
		if _, ok := available[key]; !ok {
			unknown = append(unknown, string(key))
			continue
		}
		wanted[key] = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownPersona, strings.Join(unknown, ", "))
	}

	selected := make([]Persona, 0, len(wanted))
	for _, key := range PersonaOrder {
		if wanted[key] {
			selected = append(selected, available[key])
		}
	}
	return selected, nil
}
