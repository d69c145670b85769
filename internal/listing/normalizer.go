// Package listing turns heterogeneous third-party listing payloads into
// canonical property cards and provides the listing sources used by search.
package listing

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/utils"
)

const (
	defaultCurrency   = "AED"
	locationSeparator = " • "
)

var p = utils.Path

// Candidate fields per card attribute, in priority order.
var (
	idFields        = []utils.Extractor{p("id"), p("external_id"), p("reference")}
	titleFields     = []utils.Extractor{p("title"), p("name")}
	priceFields     = []utils.Extractor{p("price"), p("price_value"), p("list_price")}
	currencyFields  = []utils.Extractor{p("price_currency"), p("currency"), p("price_detail", "currency")}
	frequencyFields = []utils.Extractor{p("rent_frequency"), p("frequency")}
	locationFields  = []utils.Extractor{p("location_tree"), p("location")}
	locationText    = []utils.Extractor{p("location_title"), p("display_location")}
	bedroomFields   = []utils.Extractor{p("rooms"), p("bedrooms")}
	bathroomFields  = []utils.Extractor{p("baths"), p("bathrooms")}
	sizeFields      = []utils.Extractor{p("size"), p("area"), p("builtup_area")}
	amenityFields   = []utils.Extractor{p("amenities"), p("amenity_labels")}
	urlFields       = []utils.Extractor{p("meta", "url"), p("url")}
	referenceFields = []utils.Extractor{p("reference"), p("reference_number")}
	statusFields    = []utils.Extractor{p("verification", "status"), p("verification", "state")}
	verifiedAliases = []utils.Extractor{p("is_trucheck"), p("isTruChecked"), p("is_truchecked"), p("is_verified")}
	nodeNameFields  = []utils.Extractor{p("name"), p("location"), p("title")}
	amenityLabels   = []utils.Extractor{p("name"), p("label"), p("title")}
)

var (
	verifiedStatuses = map[string]bool{"truchecked": true, "approved": true, "verified": true, "true": true}
	verifiedValues   = map[string]bool{"true": true, "yes": true, "approved": true, "verified": true}
)

// Normalize maps one raw listing into a PropertyCard. It never panics on an
// unknown shape: every lookup degrades to nil. The same input always yields
// the same card.
func Normalize(raw model.RawListing) model.PropertyCard {
	payload := map[string]any(raw)

	card := model.PropertyCard{
		ID:           ListingID(raw),
		Title:        stringField(payload, titleFields),
		Location:     formatLocation(payload),
		Bedrooms:     utils.FirstInt(payload, bedroomFields...),
		Bathrooms:    utils.FirstInt(payload, bathroomFields...),
		SizeSqft:     utils.FirstFloat(payload, sizeFields...),
		Amenities:    extractAmenities(payload),
		Verified:     isVerified(payload),
		URL:          stringField(payload, urlFields),
		RawReference: stringField(payload, referenceFields),
	}
	card.Price, card.PriceValue = formatPrice(payload)
	return card
}

// NormalizeBatch normalizes listings one after another. A listing that cannot
// be normalized is logged and skipped; the rest of the batch still runs.
func NormalizeBatch(raws []model.RawListing) []model.PropertyCard {
	cards := make([]model.PropertyCard, 0, len(raws))
	for i, raw := range raws {
		card, err := normalizeIsolated(raw)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Skipping listing that failed normalization")
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

func normalizeIsolated(raw model.RawListing) (card model.PropertyCard, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("normalize listing: %v", r)
		}
	}()
	if raw == nil {
		return card, fmt.Errorf("normalize listing: nil payload")
	}
	return Normalize(raw), nil
}

// ListingID returns the listing identifier used across cards and enrichments
func ListingID(raw model.RawListing) *string {
	return stringField(raw, idFields)
}

// ExtractResults locates the listing array in a search response
// (data.results, results or hits). Entries that are not objects are skipped.
func ExtractResults(payload map[string]any) []model.RawListing {
	items, ok := utils.First(payload, p("data", "results"), p("results"), p("hits"))
	if !ok {
		return []model.RawListing{}
	}
	list, ok := items.([]any)
	if !ok {
		return []model.RawListing{}
	}
	listings := make([]model.RawListing, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			listings = append(listings, model.RawListing(obj))
		}
	}
	return listings
}

func stringField(payload map[string]any, fields []utils.Extractor) *string {
	return utils.FirstString(payload, fields...)
}

// formatPrice renders "AED 2,500,000 / monthly". Non-numeric prices are kept
// in their string form.
func formatPrice(payload map[string]any) (*string, *float64) {
	value, ok := utils.First(payload, priceFields...)
	if !ok {
		return nil, nil
	}
	numeric, isNumber := utils.AsFloat(value)
	if _, isBool := value.(bool); isBool || !isNumber {
		return utils.AsString(value), nil
	}

	currency := defaultCurrency
	if c := stringField(payload, currencyFields); c != nil {
		currency = *c
	}
	text := message.NewPrinter(language.English).Sprintf("%s %.0f", currency, numeric)
	if freq := stringField(payload, frequencyFields); freq != nil {
		text = fmt.Sprintf("%s / %s", text, strings.ReplaceAll(*freq, "_", " "))
	}
	return &text, &numeric
}

// formatLocation joins the names of a location tree, falling back to a
// single display string.
func formatLocation(payload map[string]any) *string {
	for _, field := range locationFields {
		value, ok := field(payload)
		if !ok {
			continue
		}
		if parts := locationParts(value); len(parts) > 0 {
			joined := strings.Join(parts, locationSeparator)
			return &joined
		}
	}
	return stringField(payload, locationText)
}

func locationParts(value any) []string {
	var parts []string
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	case []any:
		for _, item := range v {
			switch node := item.(type) {
			case map[string]any:
				if name := scalarString(node, nodeNameFields); name != nil {
					parts = append(parts, *name)
				}
			case string:
				if strings.TrimSpace(node) != "" {
					parts = append(parts, node)
				}
			}
		}
	case map[string]any:
		if name := scalarString(v, nodeNameFields); name != nil {
			parts = append(parts, *name)
		}
	}
	return parts
}

func extractAmenities(payload map[string]any) []string {
	amenities := []string{}
	for _, field := range amenityFields {
		value, ok := field(payload)
		if !ok {
			continue
		}
		list, ok := value.([]any)
		if !ok || len(list) == 0 {
			continue
		}
		for _, item := range list {
			switch v := item.(type) {
			case string:
				if strings.TrimSpace(v) != "" {
					amenities = append(amenities, v)
				}
			case map[string]any:
				if label := scalarString(v, amenityLabels); label != nil {
					amenities = append(amenities, *label)
				}
			}
		}
		break
	}
	return amenities
}

// isVerified is true for a positive verification status or any positive
// alias flag. Absence of every field means false.
func isVerified(payload map[string]any) bool {
	if status, ok := utils.First(payload, statusFields...); ok {
		if verified, known := utils.AsBool(status, verifiedStatuses); known && verified {
			return true
		}
	}
	for _, alias := range verifiedAliases {
		value, ok := alias(payload)
		if !ok {
			continue
		}
		if verified, known := utils.AsBool(value, verifiedValues); known && verified {
			return true
		}
	}
	return false
}

// scalarString returns the first candidate holding a string or number
func scalarString(payload map[string]any, fields []utils.Extractor) *string {
	for _, field := range fields {
		value, ok := field(payload)
		if !ok {
			continue
		}
		switch value.(type) {
		case map[string]any, []any, bool:
			continue
		}
		return utils.AsString(value)
	}
	return nil
}
