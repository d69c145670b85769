package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/neuraestate/property-matcher/internal/listing"
	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/repository"
)

var (
	// ErrSimilarUnavailable is returned when no backend can answer a similarity lookup
	ErrSimilarUnavailable = errors.New("similar listings are unavailable")
	// ErrIndexUnavailable is returned when no card index is configured
	ErrIndexUnavailable = errors.New("card index is not configured")
)

// SimilarFinder finds listings similar to a provider listing id
type SimilarFinder interface {
	RecommendSimilar(ctx context.Context, anchorID int64, filters map[string]any, page *int) (*listing.SearchResult, error)
}

// ListingService exposes normalization, enrichment and similarity lookups
type ListingService struct {
	enricher MapEnricher
	index    CardIndex
	similar  SimilarFinder
}

// NewListingService creates a listing service. index and similar may be nil.
func NewListingService(enricher MapEnricher, index CardIndex, similar SimilarFinder) *ListingService {
	return &ListingService{enricher: enricher, index: index, similar: similar}
}

// Normalize converts raw listings, or the results of a search payload, to cards
func (s *ListingService) Normalize(req *model.NormalizeRequest) []model.PropertyCard {
	raws := req.Listings
	if len(raws) == 0 && req.Payload != nil {
		raws = listing.ExtractResults(req.Payload)
	}
	return listing.NormalizeBatch(raws)
}

// Enrich derives map context for each raw listing
func (s *ListingService) Enrich(ctx context.Context, req *model.EnrichRequest) []model.MapEnrichment {
	if s.enricher == nil || len(req.Listings) == 0 {
		return []model.MapEnrichment{}
	}
	return s.enricher.EnrichAll(ctx, req.Listings, req.PointsOfInterest)
}

// Similar returns cards similar to id. The card index is preferred; the
// listings provider is asked when the index has nothing for a numeric id.
func (s *ListingService) Similar(ctx context.Context, id string, limit int) ([]model.PropertyCard, string, error) {
	if s.index != nil {
		cards, err := s.index.SimilarCards(ctx, id, limit)
		if err != nil {
			log.Warn().Err(err).Str("id", id).Msg("Card index lookup failed")
		} else if len(cards) > 0 {
			return cards, "index", nil
		}
	}

	if s.similar == nil {
		return nil, "", ErrSimilarUnavailable
	}
	anchor, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: listing id %q is not numeric", ErrSimilarUnavailable, id)
	}
	result, err := s.similar.RecommendSimilar(ctx, anchor, nil, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch similar listings: %w", err)
	}
	cards := result.Cards
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, "bayut", nil
}

// Card returns an indexed card, or nil when it is not stored
func (s *ListingService) Card(ctx context.Context, id string) (*model.PropertyCard, error) {
	if s.index == nil {
		return nil, ErrIndexUnavailable
	}
	return s.index.GetCard(ctx, id)
}

// Index stores cards with their optional embeddings
func (s *ListingService) Index(ctx context.Context, items []model.CardIndexItem) (int, []string, error) {
	if s.index == nil {
		return 0, nil, ErrIndexUnavailable
	}
	batch := make([]repository.CardEmbedding, len(items))
	for i, item := range items {
		batch[i] = repository.CardEmbedding{Card: item.Card, Embedding: item.Embedding}
	}
	success, errs := s.index.UpsertCards(ctx, batch)
	return success, errs, nil
}
