package service

import (
	"context"

	"github.com/neuraestate/property-matcher/internal/model"
)

// ReplyGenerator is the interface for reply-generation backends
type ReplyGenerator interface {
	// Generate returns one persona reply for the prompt
	Generate(ctx context.Context, req ReplyRequest) (string, error)

	// IsEnabled returns whether the backend is configured and ready
	IsEnabled() bool
}

// Embedder generates vector embeddings for texts
type Embedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ReplyRequest is a persona prompt plus the visible conversation
type ReplyRequest struct {
	SystemPrompt string
	ExtraContext string
	History      []model.Message
	Model        string
	Temperature  *float64
}

// Prompt assembles the messages sent to the model: the persona prompt, the
// optional extra context and the non-system history.
func (r ReplyRequest) Prompt() []model.Message {
	msgs := make([]model.Message, 0, len(r.History)+2)
	msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: r.SystemPrompt})
	if r.ExtraContext != "" {
		msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: r.ExtraContext})
	}
	for _, m := range r.History {
		if m.Role != model.RoleSystem {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// Ensure the backends implement ReplyGenerator
var (
	_ ReplyGenerator = (*OpenAIClient)(nil)
	_ ReplyGenerator = (*LangChainGenerator)(nil)
	_ Embedder       = (*OpenAIClient)(nil)
)
