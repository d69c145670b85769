package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraestate/property-matcher/internal/model"
)

// Runs against a real database when TEST_DATABASE_URL points at one with
// the pgvector extension available.
func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	repo, err := NewPostgresRepository(dsn, 2, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func card(id, title string) model.PropertyCard {
	return model.PropertyCard{ID: &id, Title: &title, Amenities: []string{}}
}

func TestPostgresRepository_SimilarCards(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	n, errs := repo.UpsertCards(ctx, []CardEmbedding{
		{Card: card("it-anchor", "Anchor"), Embedding: []float32{1, 0, 0}},
		{Card: card("it-near", "Near"), Embedding: []float32{0.9, 0.1, 0}},
		{Card: card("it-far", "Far"), Embedding: []float32{0, 0, 1}},
		{Card: model.PropertyCard{Amenities: []string{}}},
	})
	require.Empty(t, errs)
	assert.Equal(t, 3, n)

	similar, err := repo.SimilarCards(ctx, "it-anchor", 2)
	require.NoError(t, err)
	require.NotEmpty(t, similar)
	assert.Equal(t, "it-near", *similar[0].ID)

	got, err := repo.GetCard(ctx, "it-far")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Far", *got.Title)

	missing, err := repo.GetCard(ctx, "it-missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresRepository_RecordEvents(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	email := "buyer@example.com"
	lead, err := repo.RecordLead(ctx, model.Lead{Source: "form", Email: &email, Notes: "integration"})
	require.NoError(t, err)
	assert.NotNil(t, lead.Timestamp)

	_, err = repo.RecordFeedback(ctx, model.Feedback{Message: "integration"})
	require.NoError(t, err)
	require.NoError(t, repo.RecordTurn(ctx, model.TurnRecord{SessionID: "it", NextAction: model.ActionEnd}))
}
