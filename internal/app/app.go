// Package app wires configuration into the services shared by the server and
// the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/extract"
	"github.com/neuraestate/property-matcher/internal/listing"
	"github.com/neuraestate/property-matcher/internal/maps"
	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/repository"
	"github.com/neuraestate/property-matcher/internal/service"
)

// App holds the configured components
type App struct {
	Config    *config.Config
	Generator service.ReplyGenerator
	Embedder  service.Embedder
	Source    service.ListingsSource
	Bayut     *listing.BayutClient
	Enricher  *maps.Enricher
	Events    service.EventRecorder
	Postgres  *repository.PostgresRepository
	POIs      []model.PointOfInterest
}

// New builds the components selected by cfg
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	generator, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	a.Generator = generator
	if !generator.IsEnabled() {
		log.Warn().Msg("No language model configured, personas will reply with heuristic fallbacks")
	}

	if cfg.Bayut.APIKey != "" {
		audit := repository.NewJSONLWriter(cfg.Bayut.AuditLogPath)
		a.Bayut = listing.NewBayutClient(&cfg.Bayut, audit)
		a.Source = a.Bayut
		log.Info().Str("base", cfg.Bayut.BaseURL).Str("audit", audit.Path()).Msg("Using Bayut listings source")
	} else {
		a.Source = listing.NewSyntheticSource()
		log.Warn().Msg("BAYUT_API_KEY not set, using synthetic listings")
	}

	enricher, err := maps.NewEnricher(&cfg.Maps)
	if err != nil {
		if !errors.Is(err, config.ErrMissingMapCredential) {
			return nil, fmt.Errorf("failed to configure maps: %w", err)
		}
		log.Warn().Err(err).Msg("Map provider unavailable, using local map links and estimates")
		enricher = maps.NewLocalEnricher(&cfg.Maps)
	}
	a.Enricher = enricher
	a.POIs = maps.ParsePointsOfInterest(cfg.Maps.PointsOfInterest)

	if cfg.PostgreSQL.DSN != "" {
		repo, err := repository.NewPostgresRepository(
			cfg.PostgreSQL.DSN,
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		a.Postgres = repo
		a.Events = repo
		log.Info().Msg("Connected to PostgreSQL database")
	} else {
		a.Events = repository.NewJSONLEventLog(cfg.Events)
		log.Info().
			Str("leads", cfg.Events.LeadsPath).
			Str("feedback", cfg.Events.FeedbackPath).
			Msg("Recording events to JSONL files")
	}

	if cfg.OpenAI.Enabled && a.Postgres != nil {
		a.Embedder = service.NewOpenAIClient(&cfg.OpenAI)
	}

	return a, nil
}

func newGenerator(cfg *config.Config) (service.ReplyGenerator, error) {
	switch cfg.LLM.Backend {
	case "", "openai":
		return service.NewOpenAIClient(&cfg.OpenAI), nil
	case "langchain":
		return service.NewLangChainOpenAI(&cfg.OpenAI)
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND %q", cfg.LLM.Backend)
	}
}

// OrchestratorOptions returns the orchestrator settings for the configured components
func (a *App) OrchestratorOptions() service.OrchestratorOptions {
	return service.OrchestratorOptions{
		Personas:     a.Config.Personas.Selected,
		Generator:    a.Generator,
		Source:       a.Source,
		Enricher:     a.Enricher,
		Vocabulary:   extract.VocabularyFromConfig(a.Config.Extraction),
		Model:        a.Config.OpenAI.ChatModel,
		ReplyTimeout: time.Duration(a.Config.OpenAI.Timeout) * time.Second,
	}
}

// Orchestrator builds an orchestrator from the configured components
func (a *App) Orchestrator() (*service.Orchestrator, error) {
	return service.NewOrchestrator(a.OrchestratorOptions())
}

// ChatService builds the chat service with in-memory sessions
func (a *App) ChatService() (*service.ChatService, error) {
	ranking := a.Config.Ranking
	return service.NewChatService(
		a.OrchestratorOptions(),
		service.NewSessionStore(a.Config.Business.Context),
		a.Events,
		service.NewRanker(ranking.WeightPrice, ranking.WeightMatch, ranking.WeightVerified),
		a.cardIndex(),
		a.Embedder,
		a.POIs,
	)
}

// ListingService builds the listing service
func (a *App) ListingService() *service.ListingService {
	var similar service.SimilarFinder
	if a.Bayut != nil {
		similar = a.Bayut
	}
	return service.NewListingService(a.Enricher, a.cardIndex(), similar)
}

// cardIndex avoids handing out a typed nil interface
func (a *App) cardIndex() service.CardIndex {
	if a.Postgres == nil {
		return nil
	}
	return a.Postgres
}

// Close releases the database connection, if any
func (a *App) Close() error {
	if a.Postgres != nil {
		return a.Postgres.Close()
	}
	return nil
}
