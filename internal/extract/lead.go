package extract

import (
	"regexp"

	"github.com/neuraestate/property-matcher/internal/model"
)

var (
	emailRe = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?97[01]\d{7,9}|\b\d{7,12}\b`)
)

// LeadSourceChat tags leads detected in conversation history
const LeadSourceChat = "chat"

// DetectLead scans user messages newest-first and returns a lead for the
// first one carrying an email address or phone number. Older messages are not
// aggregated into the result.
func DetectLead(messages []model.Message) *model.Lead {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role != model.RoleUser {
			continue
		}
		email := emailRe.FindString(msg.Content)
		phone := phoneRe.FindString(msg.Content)
		if email == "" && phone == "" {
			continue
		}
		lead := &model.Lead{Source: LeadSourceChat, Notes: msg.Content}
		if email != "" {
			lead.Email = &email
		}
		if phone != "" {
			lead.Phone = &phone
		}
		return lead
	}
	return nil
}
