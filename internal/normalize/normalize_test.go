package normalize

import (
	"testing"
	"time"

	"github.com/logifywp/logify/internal/subject"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("loading location %s: %v", name, err)
	}
	return loc
}

// --- Scalar heuristics ---

func TestNormalize_StringHeuristics(t *testing.T) {
	n := New(time.UTC)

	tests := []struct {
		name string
		in   string
		want any
	}{
		{"null literal", "null", nil},
		{"null uppercase", "NULL", nil},
		{"true", "true", true},
		{"false", "FALSE", false},
		{"integer", "42", int64(42)},
		{"negative integer", "-17", int64(-17)},
		{"zero", "0", int64(0)},
		{"float", "3.5", 3.5},
		{"scientific", "1e3", 1000.0},
		{"plain text", "draft", "draft"},
		{"empty string", "", ""},
		{"numeric-ish text", "42abc", "42abc"},
		{"version string stays text", "6.4.2", "6.4.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize("field", tt.in)
			if !Equal(got, tt.want) {
				t.Errorf("Normalize(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_IntegerOverflowStaysString(t *testing.T) {
	n := New(time.UTC)
	in := "99999999999999999999999999"
	got := n.Normalize("field", in)
	if got != in {
		t.Errorf("overflowing digits = %#v, want the original string", got)
	}
}

func TestNormalize_LeadingZeroDigitsParse(t *testing.T) {
	// Digit strings with leading zeros still satisfy the integer pattern;
	// they parse as their numeric value.
	n := New(time.UTC)
	got := n.Normalize("field", "007")
	if got != int64(7) {
		t.Errorf("Normalize(\"007\") = %#v, want int64(7)", got)
	}
}

// --- Datetime heuristics ---

func TestNormalize_DatetimeSiteLocal(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	n := New(loc)

	got := n.Normalize("post_modified", "2025-06-15 10:30:00")
	ts, ok := got.(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %T", got)
	}
	want := time.Date(2025, 6, 15, 10, 30, 0, 0, loc)
	if !ts.Equal(want) {
		t.Errorf("got %v, want %v", ts, want)
	}
}

func TestNormalize_DatetimeUTCSuffix(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	n := New(loc)

	for _, key := range []string{"post_modified_gmt", "created_utc", "POST_DATE_GMT"} {
		got := n.Normalize(key, "2025-06-15 10:30:00")
		ts, ok := got.(time.Time)
		if !ok {
			t.Fatalf("key %s: expected time.Time, got %T", key, got)
		}
		want := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
		if !ts.Equal(want) {
			t.Errorf("key %s: got %v, want %v", key, ts, want)
		}
	}
}

func TestNormalize_InvalidDateStaysString(t *testing.T) {
	n := New(time.UTC)
	// Matches the shape but not the calendar.
	got := n.Normalize("field", "2025-13-45 99:99:99")
	if got != "2025-13-45 99:99:99" {
		t.Errorf("invalid date = %#v, want the original string", got)
	}
}

// --- Composite blobs ---

func TestNormalize_JSONBlobDecodes(t *testing.T) {
	n := New(time.UTC)

	got := n.Normalize("field", `{"width":"150","crop":"false","label":"thumb"}`)
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	if m["width"] != int64(150) {
		t.Errorf("width = %#v, want int64(150)", m["width"])
	}
	if m["crop"] != false {
		t.Errorf("crop = %#v, want false", m["crop"])
	}
	if m["label"] != "thumb" {
		t.Errorf("label = %#v, want %q", m["label"], "thumb")
	}
}

func TestNormalize_JSONArrayDecodes(t *testing.T) {
	n := New(time.UTC)

	got := n.Normalize("field", `["1","2","three"]`)
	list, ok := got.([]any)
	if !ok {
		t.Fatalf("expected slice, got %T", got)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0] != int64(1) || list[1] != int64(2) || list[2] != "three" {
		t.Errorf("elements = %#v", list)
	}
}

func TestNormalize_MalformedBlobStaysString(t *testing.T) {
	n := New(time.UTC)

	for _, in := range []string{
		`{"broken":`,
		`{"a":1} trailing`,
		`[1,2`,
		`{not json at all}`,
	} {
		got := n.Normalize("field", in)
		if got != in {
			t.Errorf("Normalize(%q) = %#v, want the original string", in, got)
		}
	}
}

func TestNormalize_NestedBlobNormalizesRecursively(t *testing.T) {
	n := New(time.UTC)

	got := n.Normalize("field", `{"sizes":{"thumb":{"width":"150"}},"ids":["1","2"]}`)
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	sizes := m["sizes"].(map[string]any)
	thumb := sizes["thumb"].(map[string]any)
	if thumb["width"] != int64(150) {
		t.Errorf("nested width = %#v, want int64(150)", thumb["width"])
	}
	ids := m["ids"].([]any)
	if ids[0] != int64(1) {
		t.Errorf("nested id = %#v, want int64(1)", ids[0])
	}
}

// --- Pass-through types ---

func TestNormalize_TypedValuesPassThrough(t *testing.T) {
	n := New(time.UTC)

	ref := subject.Reference{Type: subject.TypePost, Key: "42", Name: "Hello"}
	if got := n.Normalize("f", ref); got != ref {
		t.Errorf("reference = %#v, want unchanged", got)
	}
	if got := n.Normalize("f", true); got != true {
		t.Errorf("bool = %#v, want true", got)
	}
	if got := n.Normalize("f", int64(9)); got != int64(9) {
		t.Errorf("int64 = %#v, want 9", got)
	}
	if got := n.Normalize("f", nil); got != nil {
		t.Errorf("nil = %#v, want nil", got)
	}
}

func TestNormalize_NarrowIntsWiden(t *testing.T) {
	n := New(time.UTC)
	if got := n.Normalize("f", int(7)); got != int64(7) {
		t.Errorf("int = %#v, want int64(7)", got)
	}
	if got := n.Normalize("f", int32(7)); got != int64(7) {
		t.Errorf("int32 = %#v, want int64(7)", got)
	}
	if got := n.Normalize("f", float32(1.5)); got != float64(1.5) {
		t.Errorf("float32 = %#v, want float64(1.5)", got)
	}
}

func TestNormalize_MapValuesUseInnerKeys(t *testing.T) {
	// The UTC-suffix rule applies to the inner key, not the outer one.
	loc := mustLoc(t, "America/New_York")
	n := New(loc)

	got := n.Normalize("outer", map[string]any{
		"modified_gmt": "2025-06-15 10:30:00",
	})
	m := got.(map[string]any)
	ts := m["modified_gmt"].(time.Time)
	want := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("inner timestamp = %v, want %v", ts, want)
	}
}
