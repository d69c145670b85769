package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/model"
)

var langchainRoles = map[model.Role]schema.ChatMessageType{
	model.RoleSystem:    schema.ChatMessageTypeSystem,
	model.RoleUser:      schema.ChatMessageTypeHuman,
	model.RoleAssistant: schema.ChatMessageTypeAI,
}

// LangChainGenerator generates replies through a langchaingo model
type LangChainGenerator struct {
	llm         llms.Model
	temperature float64
	maxTokens   int
}

// NewLangChainGenerator wraps an existing model
func NewLangChainGenerator(llm llms.Model, temperature float64, maxTokens int) *LangChainGenerator {
	return &LangChainGenerator{llm: llm, temperature: temperature, maxTokens: maxTokens}
}

// NewLangChainOpenAI builds a langchaingo OpenAI model from configuration.
// It returns a disabled generator when no API key is set.
func NewLangChainOpenAI(cfg *config.OpenAIConfig) (*LangChainGenerator, error) {
	if !cfg.Enabled {
		return NewLangChainGenerator(nil, cfg.ChatTemperature, cfg.ChatMaxTokens), nil
	}

	opts := []openai.Option{
		openai.WithModel(cfg.ChatModel),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.APIBase != "" {
		opts = append(opts, openai.WithBaseURL(cfg.APIBase))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain openai model: %w", err)
	}

	log.Info().Str("model", cfg.ChatModel).Msg("Configured langchain reply backend")
	return NewLangChainGenerator(llm, cfg.ChatTemperature, cfg.ChatMaxTokens), nil
}

// IsEnabled returns whether a model is attached
func (g *LangChainGenerator) IsEnabled() bool {
	return g.llm != nil
}

// Generate produces a persona reply
func (g *LangChainGenerator) Generate(ctx context.Context, req ReplyRequest) (string, error) {
	if g.llm == nil {
		return "", fmt.Errorf("langchain model is not configured")
	}

	prompt := req.Prompt()
	content := make([]llms.MessageContent, 0, len(prompt))
	for _, m := range prompt {
		role, ok := langchainRoles[m.Role]
		if !ok {
			role = schema.ChatMessageTypeGeneric
		}
		content = append(content, llms.TextParts(role, m.Content))
	}

	temperature := g.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}

	resp, err := g.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("langchain generate: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}
