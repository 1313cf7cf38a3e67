package normalize

import (
	"reflect"
	"testing"
	"time"

	"github.com/logifywp/logify/internal/subject"
)

func TestEqual_Scalars(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil nil", nil, nil, true},
		{"equal ints", int64(5), int64(5), true},
		{"unequal ints", int64(5), int64(6), false},
		{"int vs string", int64(5), "5", false},
		{"equal strings", "draft", "draft", true},
		{"bool mismatch", true, false, false},
		{"nil vs zero", nil, int64(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqual_TimesCompareByInstant(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}
	local := time.Date(2025, 6, 15, 10, 30, 0, 0, loc)
	utc := local.UTC()

	if !Equal(local, utc) {
		t.Error("same instant in different zones should be equal")
	}
	if Equal(local, local.Add(time.Second)) {
		t.Error("different instants should not be equal")
	}
	if Equal(local, "2025-06-15 10:30:00") {
		t.Error("time vs string should not be equal")
	}
}

func TestEqual_ReferencesByValue(t *testing.T) {
	a := subject.Reference{Type: subject.TypePost, Key: "42", Name: "Hello"}
	b := subject.Reference{Type: subject.TypePost, Key: "42", Name: "Hello"}
	c := subject.Reference{Type: subject.TypePost, Key: "43", Name: "Hello"}

	if !Equal(a, b) {
		t.Error("identical references should be equal")
	}
	if Equal(a, c) {
		t.Error("references with different keys should not be equal")
	}
}

func TestEqual_MapsIgnoreOrder(t *testing.T) {
	a := map[string]any{"x": int64(1), "y": "two"}
	b := map[string]any{"y": "two", "x": int64(1)}
	if !Equal(a, b) {
		t.Error("maps with the same entries should be equal")
	}
}

func TestDiff_ScalarsPassThrough(t *testing.T) {
	oldOut, newOut, changed := Diff("draft", "publish")
	if !changed {
		t.Fatal("expected changed")
	}
	if oldOut != "draft" || newOut != "publish" {
		t.Errorf("got (%#v, %#v)", oldOut, newOut)
	}

	_, _, changed = Diff("draft", "draft")
	if changed {
		t.Error("equal scalars should not report changed")
	}
}

func TestDiff_MapReducesToChangedKeys(t *testing.T) {
	oldVal := map[string]any{
		"status": "draft",
		"title":  "Hello",
		"count":  int64(3),
	}
	newVal := map[string]any{
		"status": "publish",
		"title":  "Hello",
		"count":  int64(3),
	}

	oldOut, newOut, changed := Diff(oldVal, newVal)
	if !changed {
		t.Fatal("expected changed")
	}
	wantOld := map[string]any{"status": "draft"}
	wantNew := map[string]any{"status": "publish"}
	if !reflect.DeepEqual(oldOut, wantOld) {
		t.Errorf("old reduced = %#v, want %#v", oldOut, wantOld)
	}
	if !reflect.DeepEqual(newOut, wantNew) {
		t.Errorf("new reduced = %#v, want %#v", newOut, wantNew)
	}
}

func TestDiff_MapAddedAndRemovedKeys(t *testing.T) {
	oldVal := map[string]any{"kept": "v", "removed": int64(1)}
	newVal := map[string]any{"kept": "v", "added": int64(2)}

	oldOut, newOut, changed := Diff(oldVal, newVal)
	if !changed {
		t.Fatal("expected changed")
	}
	if !reflect.DeepEqual(oldOut, map[string]any{"removed": int64(1)}) {
		t.Errorf("old reduced = %#v", oldOut)
	}
	if !reflect.DeepEqual(newOut, map[string]any{"added": int64(2)}) {
		t.Errorf("new reduced = %#v", newOut)
	}
}

func TestDiff_NestedMapsReduceRecursively(t *testing.T) {
	oldVal := map[string]any{
		"sizes": map[string]any{
			"thumb":  map[string]any{"width": int64(150), "crop": true},
			"medium": map[string]any{"width": int64(300)},
		},
	}
	newVal := map[string]any{
		"sizes": map[string]any{
			"thumb":  map[string]any{"width": int64(200), "crop": true},
			"medium": map[string]any{"width": int64(300)},
		},
	}

	oldOut, newOut, changed := Diff(oldVal, newVal)
	if !changed {
		t.Fatal("expected changed")
	}
	wantOld := map[string]any{"sizes": map[string]any{"thumb": map[string]any{"width": int64(150)}}}
	wantNew := map[string]any{"sizes": map[string]any{"thumb": map[string]any{"width": int64(200)}}}
	if !reflect.DeepEqual(oldOut, wantOld) {
		t.Errorf("old reduced = %#v, want %#v", oldOut, wantOld)
	}
	if !reflect.DeepEqual(newOut, wantNew) {
		t.Errorf("new reduced = %#v, want %#v", newOut, wantNew)
	}
}

func TestDiff_EqualMapsNotChanged(t *testing.T) {
	oldVal := map[string]any{"a": int64(1), "b": "two"}
	newVal := map[string]any{"b": "two", "a": int64(1)}

	_, _, changed := Diff(oldVal, newVal)
	if changed {
		t.Error("identical maps should not report changed")
	}
}

func TestDiff_MapVsScalarPassesThrough(t *testing.T) {
	oldVal := map[string]any{"a": int64(1)}
	oldOut, newOut, changed := Diff(oldVal, "gone")
	if !changed {
		t.Fatal("expected changed")
	}
	if !reflect.DeepEqual(oldOut, oldVal) || newOut != "gone" {
		t.Errorf("got (%#v, %#v), want originals unreduced", oldOut, newOut)
	}
}
