package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Extractor pulls one candidate value out of an untyped payload.
// ok is false when the candidate is absent or null.
type Extractor func(payload map[string]any) (value any, ok bool)

// Path returns an Extractor that walks nested objects by key
func Path(keys ...string) Extractor {
	return func(payload map[string]any) (any, bool) {
		var current any = payload
		for _, key := range keys {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = obj[key]
			if !ok {
				return nil, false
			}
		}
		if isBlank(current) {
			return nil, false
		}
		return current, true
	}
}

// First tries each extractor in order and returns the first present value
func First(payload map[string]any, extractors ...Extractor) (any, bool) {
	if payload == nil {
		return nil, false
	}
	for _, extract := range extractors {
		if value, ok := extract(payload); ok {
			return value, true
		}
	}
	return nil, false
}

// FirstString is First followed by AsString
func FirstString(payload map[string]any, extractors ...Extractor) *string {
	value, ok := First(payload, extractors...)
	if !ok {
		return nil
	}
	return AsString(value)
}

// FirstFloat returns the first candidate that converts to a number
func FirstFloat(payload map[string]any, extractors ...Extractor) *float64 {
	for _, extract := range extractors {
		value, ok := extract(payload)
		if !ok {
			continue
		}
		if f, ok := AsFloat(value); ok {
			return &f
		}
	}
	return nil
}

// FirstInt returns the first candidate that converts to a whole number
func FirstInt(payload map[string]any, extractors ...Extractor) *int {
	for _, extract := range extractors {
		value, ok := extract(payload)
		if !ok {
			continue
		}
		if f, ok := AsFloat(value); ok && f == math.Trunc(f) {
			n := int(f)
			return &n
		}
	}
	return nil
}

// AsString renders scalars as text; composite values are rendered as JSON
func AsString(value any) *string {
	var s string
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case bool:
		s = strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		s = string(data)
	}
	return &s
}

// AsFloat converts numbers and numeric strings
func AsFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsBool interprets a bool, or a string looked up (lowercased) in truthy
func AsBool(value any, truthy map[string]bool) (result bool, known bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		return truthy[strings.ToLower(strings.TrimSpace(v))], true
	default:
		return false, false
	}
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
