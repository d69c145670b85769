package service

import (
	"sort"
	"strings"

	"github.com/neuraestate/property-matcher/internal/model"
)

// Match reason constants
const (
	ReasonBedroomsMatch     = "Bedrooms match"
	ReasonLocationMatch     = "Location match"
	ReasonPropertyTypeMatch = "Property type match"
	ReasonPriceMatch        = "Price within budget"
	ReasonVerified          = "Verified listing"
	ReasonGeneralMatch      = "General match"
)

// Ranker handles ranking and scoring of property cards
type Ranker struct {
	weightPrice    float64
	weightMatch    float64
	weightVerified float64
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightPrice, weightMatch, weightVerified float64) *Ranker {
	return &Ranker{
		weightPrice:    weightPrice,
		weightMatch:    weightMatch,
		weightVerified: weightVerified,
	}
}

// RankCards scores cards against the preferences, best first. Cards with
// equal scores keep their source order.
func (r *Ranker) RankCards(cards []model.PropertyCard, prefs model.Preferences) []model.Recommendation {
	results := make([]model.Recommendation, 0, len(cards))

	for _, card := range cards {
		priceScore := r.calculatePriceScore(card.PriceValue, prefs.BudgetAED)
		matchScore, reasons := r.calculateMatchScore(card, prefs)

		verifiedScore := 0.0
		if card.Verified {
			verifiedScore = 1.0
			reasons = append(reasons, ReasonVerified)
		}

		if prefs.BudgetAED != nil && card.PriceValue != nil && *card.PriceValue <= *prefs.BudgetAED {
			reasons = append(reasons, ReasonPriceMatch)
		}
		if len(reasons) == 0 {
			reasons = append(reasons, ReasonGeneralMatch)
		}

		results = append(results, model.Recommendation{
			PropertyCard: card.Clone(),
			Score: (r.weightPrice * priceScore) +
				(r.weightMatch * matchScore) +
				(r.weightVerified * verifiedScore),
			MatchedReasons: reasons,
		})
	}

	// Sort by score descending
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results
}

// calculatePriceScore calculates how well the price uses the client's budget
func (r *Ranker) calculatePriceScore(price, budget *float64) float64 {
	if price == nil {
		return 0.5 // Neutral score if no price
	}
	if budget == nil || *budget <= 0 {
		return 1.0 // Full score if no budget
	}
	if *price > *budget {
		return 0.0
	}
	// Closer to budget is better
	return *price / *budget
}

// calculateMatchScore returns the share of known preferences the card meets
func (r *Ranker) calculateMatchScore(card model.PropertyCard, prefs model.Preferences) (float64, []string) {
	reasons := []string{}
	known, met := 0, 0

	if prefs.Bedrooms != nil {
		known++
		if card.Bedrooms != nil && *card.Bedrooms == *prefs.Bedrooms {
			met++
			reasons = append(reasons, ReasonBedroomsMatch)
		}
	}

	if len(prefs.Locations) > 0 {
		known++
		if containsAny(card.Location, prefs.Locations) || containsAny(card.Title, prefs.Locations) {
			met++
			reasons = append(reasons, ReasonLocationMatch)
		}
	}

	if prefs.PropertyType != nil {
		known++
		if containsAny(card.Title, []string{*prefs.PropertyType}) {
			met++
			reasons = append(reasons, ReasonPropertyTypeMatch)
		}
	}

	if known == 0 {
		return 0.5, reasons
	}
	return float64(met) / float64(known), reasons
}

func containsAny(text *string, needles []string) bool {
	if text == nil {
		return false
	}
	lower := strings.ToLower(*text)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
