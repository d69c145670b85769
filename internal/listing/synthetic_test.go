package listing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraestate/property-matcher/internal/model"
)

func TestSyntheticSource_FromPreferences(t *testing.T) {
	beds := 2
	budget := 2_500_000.0
	prefs := model.Preferences{
		Bedrooms:  &beds,
		BudgetAED: &budget,
		Locations: []string{"downtown", "dubai marina"},
	}

	raws, err := NewSyntheticSource().Search(context.Background(), prefs)
	require.NoError(t, err)
	require.Len(t, raws, 2)

	cards := NormalizeBatch(raws)
	require.Len(t, cards, 2)
	assert.Equal(t, "2-bed Apartment in Downtown", *cards[0].Title)
	assert.Equal(t, "AED 2,500,000", *cards[0].Price)
	assert.Equal(t, "AED 2,250,000", *cards[1].Price)
	assert.Equal(t, "Dubai Marina", *cards[1].Location)
	assert.Equal(t, 2, *cards[1].Bedrooms)
	assert.Contains(t, raws[0], "geography")
}

func TestSyntheticSource_Defaults(t *testing.T) {
	raws, err := NewSyntheticSource().Search(context.Background(), model.Preferences{})
	require.NoError(t, err)
	require.Len(t, raws, 1)

	card := Normalize(raws[0])
	assert.Equal(t, "2-bed Apartment in Dubai Marina", *card.Title)
	assert.Equal(t, "AED 2,000,000", *card.Price)
}

func TestSyntheticSource_CapsAtThree(t *testing.T) {
	prefs := model.Preferences{Locations: []string{"business bay", "downtown", "jlt", "palm"}}

	raws, err := NewSyntheticSource().Search(context.Background(), prefs)
	require.NoError(t, err)
	assert.Len(t, raws, 3)
}
