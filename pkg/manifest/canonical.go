package manifest

import (
	"encoding/json"
	"sort"
	"strings"
)

// Canonicalize renders a JSON-compatible value as a deterministic string:
// object keys are sorted ordinally, array order is preserved, scalars use
// standard JSON encoding. Two semantically equal values always produce
// identical output regardless of original key order.
func Canonicalize(v any) string {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(encodeString(k))
			b.WriteByte(':')
			b.WriteString(Canonicalize(val[k]))
		}
		b.WriteByte('}')
		return b.String()

	case []any:
		var b strings.Builder
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(Canonicalize(item))
		}
		b.WriteByte(']')
		return b.String()

	default:
		return encodeScalar(val)
	}
}

// canonicalValue converts an arbitrary struct into the map/slice/scalar form
// Canonicalize operates on, via a JSON round trip.
func canonicalValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeString(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(data)
}

func encodeScalar(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
