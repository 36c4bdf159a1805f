// Package ocat implements the value model for Ocat observation parameters:
// coercion of heterogeneous textual input into canonical typed values, the
// approximate-equality relation used for change detection, the parameter
// catalog, and the change-set builder that diffs a proposed parameter map
// against the authoritative one.
package ocat

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// OcatTimeFormat is the native display format of the source catalog. Ocat
// dates are recorded without a leading zero in the day, which Go's "2"
// token parses either way.
const OcatTimeFormat = "Jan 2 2006 3:04PM"

// UsintTimeFormat is the 24-hour display format used by Usint pages.
const UsintTimeFormat = "Jan 2 2006 15:04"

// StorageTimeFormat is the canonical ISO-8601 form used when persisting
// Original/Request values. Conversion between the source's native format and
// this one happens at the coercion boundary, never at storage.
const StorageTimeFormat = "2006-01-02T15:04:05Z"

// TimeFormats is the ordered list of accepted timestamp layouts across CXC
// tools and data sources. Order matters: the first successful parse wins.
var TimeFormats = []string{
	UsintTimeFormat,
	OcatTimeFormat,
	StorageTimeFormat,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"01:02:2006:15:04:05",
	"01:02:2006:15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// nullTokens is the full vocabulary of string sentinels the downstream
// systems use for "no value". Kept centralized; the exact set is load-bearing.
var nullTokens = map[string]struct{}{
	"":        {},
	" ":       {},
	"<Blank>": {},
	"N/A":     {},
	"NA":      {},
	"NONE":    {},
	"NULL":    {},
	"Na":      {},
	"None":    {},
	"Null":    {},
	"none":    {},
	"null":    {},
}

// IsNullToken reports whether a string is one of the recognized null sentinels.
func IsNullToken(s string) bool {
	_, ok := nullTokens[s]
	return ok
}

// CoerceNone maps the null vocabulary (and empty containers) to nil,
// recursing into lists and maps element-wise. Non-null values pass through
// unchanged.
func CoerceNone(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if IsNullToken(val) {
			return nil
		}
		return val
	case []any:
		if len(val) == 0 {
			return nil
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CoerceNone(item)
		}
		return out
	case map[string]any:
		if len(val) == 0 {
			return nil
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CoerceNone(item)
		}
		return out
	default:
		return v
	}
}

// CoerceNumber attempts an integer parse, then a float parse, returning the
// input unchanged when neither applies.
func CoerceNumber(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return int(parsed)
	}
	if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return parsed
	}
	return v
}

// CoerceTime parses a string against the accepted timestamp layouts,
// returning a time.Time on success and the input unchanged otherwise.
// Double colons and fractional seconds are stripped first; both appear in
// feeds from older CXC tooling.
func CoerceTime(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	cleaned := strings.ReplaceAll(s, "::", ":")
	if idx := strings.Index(cleaned, "."); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	for _, layout := range TimeFormats {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return parsed
		}
	}
	return v
}

// Coerce normalizes a raw parameter value into its canonical typed form:
// null vocabulary to nil, then integer, then float, then timestamp, falling
// back to the trimmed string. Lists and maps are coerced element-wise.
func Coerce(v any) any {
	switch val := v.(type) {
	case []any:
		if len(val) == 0 {
			return nil
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Coerce(item)
		}
		return out
	case map[string]any:
		if len(val) == 0 {
			return nil
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Coerce(item)
		}
		return out
	}
	v = CoerceNone(v)
	if v == nil {
		return nil
	}
	v = CoerceNumber(v)
	switch v.(type) {
	case int, int64, float64:
		return v
	}
	v = CoerceTime(v)
	if _, ok := v.(time.Time); ok {
		return v
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// EncodeValue serializes a coerced value to the string stored in
// Original/Request rows. Everything encodes as JSON, except timestamps
// which use the canonical storage format. Null values encode to an empty
// result and ok=false so callers can honor the absence-implies-null
// convention.
func EncodeValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		if IsNullToken(val) {
			return "", false
		}
		return encodeJSON(val), true
	case time.Time:
		return val.UTC().Format(StorageTimeFormat), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), true
	}
	return encodeJSON(normalizeTimes(v)), true
}

// DecodeValue reverses EncodeValue: JSON containers are unpacked first, then
// the scalar runs back through coercion. The absent flag maps to nil.
func DecodeValue(s string, present bool) any {
	if !present {
		return nil
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") || strings.HasPrefix(s, `"`) {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return Coerce(decoded)
		}
	}
	return Coerce(s)
}

func encodeJSON(v any) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func normalizeTimes(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(StorageTimeFormat)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeTimes(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeTimes(item)
		}
		return out
	default:
		return v
	}
}
