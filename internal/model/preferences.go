package model

import "sort"

// Preferences holds the structured search preferences extracted from chat.
// Keys are drawn from a closed vocabulary; a nil pointer means "not known yet".
type Preferences struct {
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	BudgetAED    *float64 `json:"budget_aed,omitempty"`
	PropertyType *string  `json:"property_type,omitempty"`
	Locations    []string `json:"locations,omitempty"`
}

// Complete reports whether enough is known to run a search
func (p Preferences) Complete() bool {
	return p.Bedrooms != nil && p.BudgetAED != nil && len(p.Locations) > 0
}

// IsEmpty reports whether no preference is known
func (p Preferences) IsEmpty() bool {
	return p.Bedrooms == nil && p.BudgetAED == nil && p.PropertyType == nil && len(p.Locations) == 0
}

// Merge overlays the keys present in update; keys absent from update are kept
func (p Preferences) Merge(update Preferences) Preferences {
	out := p.Clone()
	if update.Bedrooms != nil {
		v := *update.Bedrooms
		out.Bedrooms = &v
	}
	if update.BudgetAED != nil {
		v := *update.BudgetAED
		out.BudgetAED = &v
	}
	if update.PropertyType != nil {
		v := *update.PropertyType
		out.PropertyType = &v
	}
	if len(update.Locations) > 0 {
		out.Locations = append([]string(nil), update.Locations...)
		sort.Strings(out.Locations)
	}
	return out
}

// Clone returns a deep copy
func (p Preferences) Clone() Preferences {
	out := Preferences{}
	if p.Bedrooms != nil {
		v := *p.Bedrooms
		out.Bedrooms = &v
	}
	if p.BudgetAED != nil {
		v := *p.BudgetAED
		out.BudgetAED = &v
	}
	if p.PropertyType != nil {
		v := *p.PropertyType
		out.PropertyType = &v
	}
	if p.Locations != nil {
		out.Locations = append([]string(nil), p.Locations...)
	}
	return out
}
