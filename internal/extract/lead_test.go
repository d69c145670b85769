package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraestate/property-matcher/internal/model"
)

func TestDetectLead(t *testing.T) {
	tests := []struct {
		name      string
		messages  []model.Message
		wantNil   bool
		wantEmail string
		wantPhone string
		wantNotes string
	}{
		{
			name: "Phone anywhere in history",
			messages: []model.Message{
				{Role: model.RoleUser, Content: "call me at 0501234567"},
				{Role: model.RoleAssistant, Content: "Sure!"},
				{Role: model.RoleUser, Content: "also show me villas"},
			},
			wantPhone: "0501234567",
			wantNotes: "call me at 0501234567",
		},
		{
			name: "Email and UAE phone",
			messages: []model.Message{
				{Role: model.RoleUser, Content: "Reach me: sara.k@example.ae or 971501234567"},
			},
			wantEmail: "sara.k@example.ae",
			wantPhone: "971501234567",
			wantNotes: "Reach me: sara.k@example.ae or 971501234567",
		},
		{
			name: "Newest message wins",
			messages: []model.Message{
				{Role: model.RoleUser, Content: "old@example.com"},
				{Role: model.RoleUser, Content: "new@example.com"},
			},
			wantEmail: "new@example.com",
			wantNotes: "new@example.com",
		},
		{
			name: "Assistant messages are ignored",
			messages: []model.Message{
				{Role: model.RoleAssistant, Content: "Our office: 0441234567"},
				{Role: model.RoleUser, Content: "ok"},
			},
			wantNil: true,
		},
		{
			name: "Short numbers are not phones",
			messages: []model.Message{
				{Role: model.RoleUser, Content: "2 bed under 2.5m"},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := DetectLead(tt.messages)
			if tt.wantNil {
				assert.Nil(t, lead)
				return
			}
			require.NotNil(t, lead)
			assert.Equal(t, LeadSourceChat, lead.Source)
			assert.Equal(t, tt.wantNotes, lead.Notes)
			if tt.wantEmail != "" {
				require.NotNil(t, lead.Email)
				assert.Equal(t, tt.wantEmail, *lead.Email)
			} else {
				assert.Nil(t, lead.Email)
			}
			if tt.wantPhone != "" {
				require.NotNil(t, lead.Phone)
				assert.Equal(t, tt.wantPhone, *lead.Phone)
			} else {
				assert.Nil(t, lead.Phone)
			}
		})
	}
}
