package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraestate/property-matcher/internal/listing"
	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/repository"
)

type stubFinder struct {
	anchor int64
	result *listing.SearchResult
	err    error
}

func (f *stubFinder) RecommendSimilar(_ context.Context, anchorID int64, _ map[string]any, _ *int) (*listing.SearchResult, error) {
	f.anchor = anchorID
	return f.result, f.err
}

func TestListingService_Normalize(t *testing.T) {
	svc := NewListingService(nil, nil, nil)

	cards := svc.Normalize(&model.NormalizeRequest{Payload: map[string]any{
		"data": map[string]any{"results": []any{
			map[string]any{"id": 1.0, "title": "Marina flat"},
			map[string]any{"id": 2.0, "title": "JLT studio"},
		}},
	}})
	require.Len(t, cards, 2)
	assert.Equal(t, "Marina flat", *cards[0].Title)

	cards = svc.Normalize(&model.NormalizeRequest{Listings: []model.RawListing{{"name": "Villa"}}})
	require.Len(t, cards, 1)
	assert.Equal(t, "Villa", *cards[0].Title)
}

func TestListingService_Enrich(t *testing.T) {
	enricher := &stubEnricher{}
	svc := NewListingService(enricher, nil, nil)

	out := svc.Enrich(context.Background(), &model.EnrichRequest{Listings: []model.RawListing{{"id": "1"}, {"id": "2"}}})
	assert.Len(t, out, 2)

	out = NewListingService(nil, nil, nil).Enrich(context.Background(), &model.EnrichRequest{Listings: []model.RawListing{{"id": "1"}}})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestListingService_Similar(t *testing.T) {
	ctx := context.Background()
	index := &memoryIndex{}
	index.UpsertCards(ctx, []repository.CardEmbedding{
		{Card: card("10", "A", "JLT", 1, 1, false)},
		{Card: card("11", "B", "JLT", 1, 1, false)},
	})

	t.Run("from index", func(t *testing.T) {
		svc := NewListingService(nil, index, &stubFinder{})
		cards, source, err := svc.Similar(ctx, "10", 5)
		require.NoError(t, err)
		assert.Equal(t, "index", source)
		require.Len(t, cards, 1)
		assert.Equal(t, "11", *cards[0].ID)
	})

	t.Run("falls back to provider", func(t *testing.T) {
		finder := &stubFinder{result: &listing.SearchResult{Cards: []model.PropertyCard{
			card("1", "A", "JLT", 1, 1, false),
			card("2", "B", "JLT", 1, 1, false),
		}}}
		svc := NewListingService(nil, &memoryIndex{}, finder)
		cards, source, err := svc.Similar(ctx, "4242", 1)
		require.NoError(t, err)
		assert.Equal(t, "bayut", source)
		assert.Equal(t, int64(4242), finder.anchor)
		assert.Len(t, cards, 1)
	})

	t.Run("provider error", func(t *testing.T) {
		svc := NewListingService(nil, nil, &stubFinder{err: errors.New("429")})
		_, _, err := svc.Similar(ctx, "4242", 1)
		assert.ErrorContains(t, err, "429")
	})

	t.Run("non numeric id", func(t *testing.T) {
		svc := NewListingService(nil, nil, &stubFinder{})
		_, _, err := svc.Similar(ctx, "synthetic-1", 1)
		assert.ErrorIs(t, err, ErrSimilarUnavailable)
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, _, err := NewListingService(nil, nil, nil).Similar(ctx, "1", 1)
		assert.ErrorIs(t, err, ErrSimilarUnavailable)
	})
}

func TestListingService_Index(t *testing.T) {
	ctx := context.Background()
	index := &memoryIndex{}
	svc := NewListingService(nil, index, nil)

	n, errs, err := svc.Index(ctx, []model.CardIndexItem{
		{Card: card("1", "A", "JLT", 1, 1, false), Embedding: []float32{0.1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, errs)

	stored, err := svc.Card(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "A", *stored.Title)

	_, _, err = NewListingService(nil, nil, nil).Index(ctx, nil)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}
