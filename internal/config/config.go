package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ErrMissingMapCredential signals a selected map provider without credentials.
// It is a configuration error, not a transient failure.
var ErrMissingMapCredential = errors.New("map provider credentials missing")

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
	LLM        LLMConfig
	Personas   PersonaConfig
	Maps       MapsConfig
	Bayut      BayutConfig
	Extraction ExtractionConfig
	Events     EventsConfig
	Ranking    RankingConfig
	Business   BusinessConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration.
// The database is optional; without a DSN events go to JSONL files.
type PostgreSQLConfig struct {
	DSN                string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON string for extra_body
	EmbeddingModel      string
	EmbeddingDimensions int
	BatchSize           int
	Timeout             int
	Enabled             bool
}

// LLMConfig selects the reply-generation backend
type LLMConfig struct {
	Backend string // openai or langchain
}

// PersonaConfig holds the default persona selection
type PersonaConfig struct {
	Selected []string
}

// MapsConfig holds the mapping provider configuration
type MapsConfig struct {
	Provider          string // mapbox or local
	AccessToken       string
	BaseURL           string
	StaticStyle       string
	StaticZoom        int
	StaticWidth       int
	StaticHeight      int
	TimeoutSeconds    int
	RequestsPerSecond float64
	Modes             []string
	FallbackMessage   string
	ReverseGeocode    bool
	PointsOfInterest  string // name:lat,lon;name:lat,lon
}

// BayutConfig holds the Bayut RapidAPI listings source configuration
type BayutConfig struct {
	APIKey         string
	BaseURL        string
	APIHost        string
	Language       string
	AuditLogPath   string
	TimeoutSeconds int
	AllowedFilters []string
}

// ExtractionConfig holds the heuristic extraction vocabularies
type ExtractionConfig struct {
	Gazetteer     []string
	PropertyTypes []string
}

// EventsConfig holds the append-only event log locations
type EventsConfig struct {
	LeadsPath    string
	FeedbackPath string
	TurnsPath    string
}

// RankingConfig holds recommendation ranking weights
type RankingConfig struct {
	WeightPrice    float64
	WeightMatch    float64
	WeightVerified float64
}

// BusinessConfig holds the business context injected into conversations
type BusinessConfig struct {
	Context     string
	SummaryPath string
}

// DefaultGazetteer lists the Dubai districts recognised by the extractor
var DefaultGazetteer = []string{
	"dubai marina",
	"downtown",
	"jlt",
	"business bay",
	"palm",
	"dubai hills",
	"jumeirah",
	"arabian ranches",
}

// DefaultPropertyTypes is the property-type vocabulary in match priority order
var DefaultPropertyTypes = []string{"apartment", "villa", "townhouse", "penthouse"}

const defaultBusinessContext = "NeuraEstate is a Dubai-based AI real estate concierge service."

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.3),
			ChatTopP:            getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		LLM: LLMConfig{
			Backend: strings.ToLower(getEnv("LLM_BACKEND", "openai")),
		},
		Personas: PersonaConfig{
			Selected: getEnvAsList("PERSONAS", nil),
		},
		Maps: MapsConfig{
			Provider:          strings.ToLower(getEnv("MAPS_PROVIDER", "mapbox")),
			AccessToken:       getEnv("MAPBOX_ACCESS_TOKEN", ""),
			BaseURL:           getEnv("MAPBOX_BASE_URL", "https://api.mapbox.com"),
			StaticStyle:       getEnv("MAPBOX_STATIC_STYLE", "mapbox/streets-v12"),
			StaticZoom:        getEnvAsInt("MAPBOX_STATIC_ZOOM", 14),
			StaticWidth:       getEnvAsInt("MAPBOX_STATIC_WIDTH", 640),
			StaticHeight:      getEnvAsInt("MAPBOX_STATIC_HEIGHT", 360),
			TimeoutSeconds:    getEnvAsInt("MAPS_TIMEOUT_SECONDS", 12),
			RequestsPerSecond: getEnvAsFloat("MAPS_REQUESTS_PER_SECOND", 5),
			Modes:             getEnvAsList("MAPS_TRAVEL_MODES", []string{"driving"}),
			FallbackMessage: getEnv("MAPS_FALLBACK_MESSAGE",
				"We're temporarily unable to load live map details. You'll still see the "+
					"property information while we reconnect to the map service."),
			ReverseGeocode:   getEnvAsBool("MAPS_REVERSE_GEOCODE", false),
			PointsOfInterest: getEnv("MAPS_POINTS_OF_INTEREST", ""),
		},
		Bayut: BayutConfig{
			APIKey:         getEnv("BAYUT_API_KEY", ""),
			BaseURL:        getEnv("BAYUT_BASE_URL", "https://bayut-api1.p.rapidapi.com"),
			APIHost:        getEnv("BAYUT_API_HOST", "bayut-api1.p.rapidapi.com"),
			Language:       getEnv("BAYUT_LANGUAGE", "en"),
			AuditLogPath:   getEnv("BAYUT_AUDIT_LOG_PATH", "logs/bayut_raw.jsonl"),
			TimeoutSeconds: getEnvAsInt("BAYUT_TIMEOUT_SECONDS", 15),
			AllowedFilters: getEnvAsList("BAYUT_ALLOWED_FILTERS", nil),
		},
		Extraction: ExtractionConfig{
			Gazetteer:     getEnvAsList("EXTRACT_GAZETTEER", DefaultGazetteer),
			PropertyTypes: getEnvAsList("EXTRACT_PROPERTY_TYPES", DefaultPropertyTypes),
		},
		Events: EventsConfig{
			LeadsPath:    getEnv("LEADS_LOG_PATH", "customer_leads.jsonl"),
			FeedbackPath: getEnv("FEEDBACK_LOG_PATH", "customer_feedback.jsonl"),
			TurnsPath:    getEnv("TURNS_LOG_PATH", "logs/turns.jsonl"),
		},
		Ranking: RankingConfig{
			WeightPrice:    getEnvAsFloat("RANK_WEIGHT_PRICE", 0.4),
			WeightMatch:    getEnvAsFloat("RANK_WEIGHT_MATCH", 0.45),
			WeightVerified: getEnvAsFloat("RANK_WEIGHT_VERIFIED", 0.15),
		},
		Business: BusinessConfig{
			SummaryPath: getEnv("BUSINESS_SUMMARY_PATH", "me/business_summary.txt"),
		},
	}

	cfg.Business.Context = loadBusinessContext(cfg.Business.SummaryPath)

	if cfg.Maps.TimeoutSeconds <= 0 || cfg.Maps.TimeoutSeconds > 15 {
		log.Warn().Int("timeout", cfg.Maps.TimeoutSeconds).Msg("MAPS_TIMEOUT_SECONDS out of range, using 12")
		cfg.Maps.TimeoutSeconds = 12
	}

	return cfg, nil
}

// RequireMapboxToken returns the Mapbox token or ErrMissingMapCredential
func (c *MapsConfig) RequireMapboxToken() (string, error) {
	if c.AccessToken == "" {
		return "", fmt.Errorf("%w: set the MAPBOX_ACCESS_TOKEN environment variable", ErrMissingMapCredential)
	}
	return c.AccessToken, nil
}

func loadBusinessContext(path string) string {
	if path == "" {
		return defaultBusinessContext
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultBusinessContext
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return defaultBusinessContext
	}
	return text
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("Invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Bool("default", defaultValue).Msg("Invalid boolean value, using default")
		return defaultValue
	}
	return value
}

// getEnvAsList reads a comma separated list, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
