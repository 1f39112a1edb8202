// Package convert provides lenient type coercion for operator input and
// loosely typed wire payloads.
package convert

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ToFloat64 converts various numeric types to float64.
// Returns 0 for unsupported types or parse failures.
func ToFloat64(v any) float64 {
	return ToFloat64Default(v, 0)
}

// ToFloat64Default converts like ToFloat64 but falls back to def when the
// value is absent or unparsable. Draft forms use this so leverage keeps its
// default of 1 while plain numeric fields fall back to 0.
func ToFloat64Default(v any, def float64) float64 {
	switch t := v.(type) {
	case nil:
		return def
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return def
		}
		return f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}
