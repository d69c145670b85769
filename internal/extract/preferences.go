// Package extract implements the deterministic, pattern-based extraction of
// search preferences and contact leads from chat messages.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/model"
)

var (
	bedroomRe = regexp.MustCompile(`(\d+)\s*(bed|bedroom)`)
	// The first number-like token is taken as the budget, whatever it refers to.
	budgetRe   = regexp.MustCompile(`(\d+[\d,.]*\s*(?:m|million|k|aed)?)\s*(?:aed|dirham|dhs|million|m|k)?`)
	nonNumeric = regexp.MustCompile(`[^0-9.]`)
)

// Vocabulary holds the gazetteer and property-type keywords used for matching.
// PropertyTypes is scanned in declaration order; the first hit wins.
type Vocabulary struct {
	Gazetteer     []string
	PropertyTypes []string
}

// DefaultVocabulary returns the built-in Dubai vocabulary
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Gazetteer:     append([]string(nil), config.DefaultGazetteer...),
		PropertyTypes: append([]string(nil), config.DefaultPropertyTypes...),
	}
}

// VocabularyFromConfig builds a Vocabulary from the extraction config
func VocabularyFromConfig(cfg config.ExtractionConfig) Vocabulary {
	vocab := DefaultVocabulary()
	if len(cfg.Gazetteer) > 0 {
		vocab.Gazetteer = lowerAll(cfg.Gazetteer)
	}
	if len(cfg.PropertyTypes) > 0 {
		vocab.PropertyTypes = lowerAll(cfg.PropertyTypes)
	}
	return vocab
}

// Preferences extracts preferences from text and merges them over existing.
// Keys the text does not mention are preserved.
func Preferences(text string, existing model.Preferences, vocab Vocabulary) model.Preferences {
	lower := strings.ToLower(text)
	found := model.Preferences{}

	if m := bedroomRe.FindStringSubmatchIndex(lower); m != nil {
		if n, err := strconv.Atoi(lower[m[2]:m[3]]); err == nil {
			found.Bedrooms = &n
		}
		// Mask the bedroom phrase so its count is not read as the budget.
		lower = lower[:m[0]] + strings.Repeat(" ", m[1]-m[0]) + lower[m[1]:]
	}

	if budget, ok := parseBudget(lower); ok {
		found.BudgetAED = &budget
	}

	var locations []string
	seen := map[string]bool{}
	for _, loc := range vocab.Gazetteer {
		if loc != "" && !seen[loc] && strings.Contains(lower, loc) {
			seen[loc] = true
			locations = append(locations, loc)
		}
	}
	sort.Strings(locations)
	found.Locations = locations

	for _, keyword := range vocab.PropertyTypes {
		if keyword != "" && strings.Contains(lower, keyword) {
			pt := keyword
			found.PropertyType = &pt
			break
		}
	}

	return existing.Merge(found)
}

// parseBudget reads the first number-like token, applying its scale suffix
func parseBudget(lower string) (float64, bool) {
	m := budgetRe.FindStringSubmatch(lower)
	if m == nil {
		return 0, false
	}
	value := strings.ReplaceAll(m[1], ",", "")
	multiplier := 1.0
	switch {
	case strings.HasSuffix(value, "m") || strings.Contains(value, "million"):
		multiplier = 1_000_000
	case strings.HasSuffix(value, "k"):
		multiplier = 1_000
	}
	numeric, err := strconv.ParseFloat(nonNumeric.ReplaceAllString(value, ""), 64)
	if err != nil {
		return 0, false
	}
	return numeric * multiplier, true
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}
