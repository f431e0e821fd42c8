// Package convert provides tolerant numeric conversion for loosely typed feeds.
package convert

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ToFloat64 converts various numeric types to float64.
// Returns 0 for unsupported types or parse failures.
func ToFloat64(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}

// FirstFloat returns the first of keys on obj that holds a non-zero number,
// accepting numeric strings as well ("12.5").
func FirstFloat(obj gjson.Result, keys ...string) float64 {
	for _, k := range keys {
		r := obj.Get(k)
		switch r.Type {
		case gjson.Number:
			if r.Float() != 0 {
				return r.Float()
			}
		case gjson.String:
			if f := ToFloat64(r.Str); f != 0 {
				return f
			}
		}
	}
	return 0
}

// FirstString returns the first non-blank string among keys.
func FirstString(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		r := obj.Get(k)
		if !r.Exists() || r.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(r.String()); s != "" {
			return s
		}
	}
	return ""
}
