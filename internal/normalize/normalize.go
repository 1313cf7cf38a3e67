// Package normalize converts the raw heterogeneous values the host ships
// in observation payloads (stringified booleans and numbers, date strings,
// JSON blobs) into canonical typed values, and provides structural equality
// and recursive diffing over them.
//
// Canonical values are: nil, bool, int64, float64, string, time.Time,
// subject.Reference, map[string]any and []any of canonical values. Anything
// that fails to parse stays a string -- malformed input is never an error
// here, it self-heals to "the value is just text".
package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/logifywp/logify/internal/subject"
)

// dateTimeLayout is the host's stored datetime format.
const dateTimeLayout = "2006-01-02 15:04:05"

// intPattern matches strings that look like integers.
var intPattern = regexp.MustCompile(`^-?[0-9]+$`)

// datePattern matches the host's `YYYY-MM-DD HH:MM:SS` datetime strings.
var datePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2}$`)

// Normalizer applies the canonicalization rules. It carries the site's
// time zone so local datetime strings resolve to the right instant.
type Normalizer struct {
	loc *time.Location
}

// New creates a Normalizer for the given site-local zone. A nil location
// defaults to UTC.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Normalize converts a raw value into its canonical typed form. The key is
// consulted only for the UTC-marker suffix on datetime values. Heuristics
// for strings apply in order, first match wins: null, boolean, integer,
// float, datetime; anything else stays a string.
func (n *Normalizer) Normalize(key string, raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return n.normalizeString(key, v)
	case bool, int64, float64, time.Time, subject.Reference:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case json.Number:
		return n.normalizeNumber(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = n.Normalize(k, inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = n.Normalize(key, inner)
		}
		return out
	default:
		// Unknown concrete type from a decoder; keep it as-is rather than
		// guessing.
		return v
	}
}

// normalizeString applies the ordered string heuristics.
func (n *Normalizer) normalizeString(key, s string) any {
	// Serialized composite blobs are deserialized first, then normalized
	// recursively. A blob that fails to decode is just a string.
	if looksLikeBlob(s) {
		if decoded, ok := decodeBlob(s); ok {
			return n.Normalize(key, decoded)
		}
	}

	if strings.EqualFold(s, "null") {
		return nil
	}
	if strings.EqualFold(s, "true") {
		return true
	}
	if strings.EqualFold(s, "false") {
		return false
	}
	if intPattern.MatchString(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		// Overflows int64: keep the digits as text.
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, ".eE") {
		return f
	}
	if datePattern.MatchString(s) {
		loc := n.loc
		if isUTCKey(key) {
			loc = time.UTC
		}
		if t, err := time.ParseInLocation(dateTimeLayout, s, loc); err == nil {
			return t
		}
	}
	return s
}

// normalizeNumber converts a json.Number to int64 when it has no fraction,
// float64 otherwise.
func (n *Normalizer) normalizeNumber(num json.Number) any {
	if i, err := num.Int64(); err == nil {
		return i
	}
	if f, err := num.Float64(); err == nil {
		return f
	}
	return num.String()
}

// isUTCKey reports whether the property key marks its datetime value as
// UTC rather than site-local.
func isUTCKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.HasSuffix(lower, "_gmt") || strings.HasSuffix(lower, "_utc")
}

// looksLikeBlob reports whether a string plausibly holds a serialized
// composite value worth attempting to decode.
func looksLikeBlob(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

// decodeBlob attempts to parse a JSON composite. Numbers are decoded as
// json.Number so integer-ness survives the trip.
func decodeBlob(s string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	// Reject trailing garbage after the first value.
	if dec.More() {
		return nil, false
	}
	switch out.(type) {
	case map[string]any, []any:
		return out, true
	default:
		// A bare scalar in JSON syntax; the string heuristics handle those.
		return nil, false
	}
}
