package internal

import (
	"encoding/json"
	"time"

	"github.com/strataodm/strata"
)

// Extended-type JSON codec for backends whose native values are plain
// strings. Values that JSON cannot represent natively round-trip through an
// envelope object; currently that is time values, carried as
// {"$date": "<RFC3339Nano>"}. Encoding and decoding are symmetric: decode
// of an encoded value yields the original (with JSON's usual number
// widening to float64).

// EncodeValue serializes one field value to its string form.
func EncodeValue(v any) (string, error) {
	b, err := json.Marshal(normalizeValue(v))
	if err != nil {
		return "", strata.NewInternalError("encode field value", err)
	}
	return string(b), nil
}

// DecodeValue reverses EncodeValue.
func DecodeValue(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, strata.NewInternalError("decode field value", err)
	}
	return denormalizeValue(v), nil
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return map[string]any{"$date": val.UTC().Format(time.RFC3339Nano)}
	case strata.Record:
		return normalizeMap(map[string]any(val))
	case map[string]any:
		return normalizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = normalizeValue(item)
	}
	return out
}

func denormalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if raw, ok := val["$date"].(string); ok && len(val) == 1 {
			if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				return t
			}
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = denormalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = denormalizeValue(item)
		}
		return out
	default:
		return v
	}
}

// NormalizeRecord prepares a record for JSON serialization.
func NormalizeRecord(rec strata.Record) map[string]any {
	return normalizeMap(rec)
}

// DenormalizeRecord reverses NormalizeRecord.
func DenormalizeRecord(m map[string]any) strata.Record {
	out := make(strata.Record, len(m))
	for k, v := range m {
		out[k] = denormalizeValue(v)
	}
	return out
}
