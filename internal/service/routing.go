package service

import "github.com/neuraestate/property-matcher/internal/model"

// NextAction computes the step that follows step from the state it produced
func NextAction(step model.Action, state model.ConversationState) model.Action {
	switch step {
	case model.ActionElicitPreferences:
		if state.Preferences.Complete() {
			return model.ActionSearch
		}
		return model.ActionEnd
	case model.ActionSearch:
		if len(state.Listings) > 0 {
			return model.ActionFollowUp
		}
		return model.ActionEnd
	default:
		return model.ActionEnd
	}
}

// remapUnselected sends routing targets that are not selected to End
func remapUnselected(action model.Action, selected map[model.Action]bool) model.Action {
	if action == model.ActionEnd || selected[action] {
		return action
	}
	return model.ActionEnd
}
