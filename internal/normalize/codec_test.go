package normalize

import (
	"testing"
	"time"

	"github.com/logifywp/logify/internal/subject"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	data, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode(%#v): %v", v, err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(%s): %v", data, err)
	}
	return out
}

func TestCodec_ScalarRoundTrips(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"bool", true},
		{"int", int64(42)},
		{"negative int", int64(-9000)},
		{"large int", int64(1<<62 + 11)},
		{"float", 3.5},
		{"string", "hello world"},
		{"string that looks numeric", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.in)
			if got != tt.in {
				t.Errorf("round trip = %#v (%T), want %#v (%T)", got, got, tt.in, tt.in)
			}
		})
	}
}

func TestCodec_LargeIntNoPrecisionLoss(t *testing.T) {
	// Above 2^53 a float64 detour would corrupt the value.
	in := int64(9007199254740993)
	got := roundTrip(t, in)
	if got != in {
		t.Errorf("round trip = %v, want %v", got, in)
	}
}

func TestCodec_TimeRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}
	in := time.Date(2025, 6, 15, 10, 30, 45, 123456000, loc)

	got := roundTrip(t, in)
	ts, ok := got.(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %T", got)
	}
	// Instant is preserved; the zone comes back as a fixed offset.
	if !ts.Equal(in) {
		t.Errorf("round trip = %v, want instant %v", ts, in)
	}
}

func TestCodec_ReferenceRoundTrip(t *testing.T) {
	in := subject.Reference{Type: subject.TypePost, Key: "42", Name: "Hello World"}
	got := roundTrip(t, in)
	ref, ok := got.(subject.Reference)
	if !ok {
		t.Fatalf("expected subject.Reference, got %T", got)
	}
	if ref != in {
		t.Errorf("round trip = %#v, want %#v", ref, in)
	}
}

func TestCodec_CompositeRoundTrip(t *testing.T) {
	in := map[string]any{
		"count": int64(3),
		"tags":  []any{"a", "b"},
		"meta": map[string]any{
			"ref":  subject.Reference{Type: subject.TypeUser, Key: "7", Name: "Alice"},
			"gone": nil,
		},
	}

	got := roundTrip(t, in)
	if !Equal(got, in) {
		t.Errorf("round trip = %#v, want %#v", got, in)
	}
}

func TestCodec_EmptyComposites(t *testing.T) {
	if got := roundTrip(t, map[string]any{}); !Equal(got, map[string]any{}) {
		t.Errorf("empty map round trip = %#v", got)
	}
	if got := roundTrip(t, []any{}); !Equal(got, []any{}) {
		t.Errorf("empty list round trip = %#v", got)
	}
}

func TestCodec_NonCanonicalValueFails(t *testing.T) {
	type oddball struct{ X int }
	if _, err := Encode(oddball{X: 1}); err == nil {
		t.Error("expected error encoding non-canonical type")
	}
}

func TestCodec_DeterministicEncoding(t *testing.T) {
	// Map encodings must be byte-identical regardless of insertion order;
	// Equal depends on it.
	a := map[string]any{"x": int64(1), "y": "two", "z": true}
	b := map[string]any{"z": true, "y": "two", "x": int64(1)}

	ea, err := Encode(a)
	if err != nil {
		t.Fatalf("Encode(a): %v", err)
	}
	eb, err := Encode(b)
	if err != nil {
		t.Fatalf("Encode(b): %v", err)
	}
	if string(ea) != string(eb) {
		t.Errorf("encodings differ:\n%s\n%s", ea, eb)
	}
}

func TestDecode_GarbageFails(t *testing.T) {
	for _, in := range []string{`not json`, `{"t":"mystery"}`, `{"t":"int","v":"abc"}`} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("Decode(%q): expected error", in)
		}
	}
}
