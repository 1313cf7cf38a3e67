package normalize

import (
	"bytes"
	"reflect"
	"time"
)

// Equal reports structural equality of two canonical values. Composite and
// object-like values are compared by canonical serialized form rather than
// identity, so two distinct references with identical type/key/name are
// equal. Timestamps compare by instant.
func Equal(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}

	ea, errA := Encode(a)
	eb, errB := Encode(b)
	if errA != nil || errB != nil {
		// Non-canonical input; fall back to deep equality.
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(ea, eb)
}

// Diff compares two canonical values and reduces composite pairs to the
// sub-fields that actually differ. For map-shaped values it recurses per
// inner key, dropping keys that are equal on both sides; the pair is
// "changed" if anything remains. Scalar pairs pass through unreduced.
//
// The reduced forms are for display only -- callers persisting values
// should keep the full originals.
func Diff(oldVal, newVal any) (oldOut, newOut any, changed bool) {
	oldMap, oldIsMap := oldVal.(map[string]any)
	newMap, newIsMap := newVal.(map[string]any)

	if oldIsMap && newIsMap {
		oldReduced := make(map[string]any)
		newReduced := make(map[string]any)

		for k, ov := range oldMap {
			nv, inNew := newMap[k]
			if !inNew {
				oldReduced[k] = ov
				continue
			}
			ro, rn, ch := Diff(ov, nv)
			if ch {
				oldReduced[k] = ro
				newReduced[k] = rn
			}
		}
		for k, nv := range newMap {
			if _, inOld := oldMap[k]; !inOld {
				newReduced[k] = nv
			}
		}

		if len(oldReduced) == 0 && len(newReduced) == 0 {
			return nil, nil, false
		}
		return oldReduced, newReduced, true
	}

	if Equal(oldVal, newVal) {
		return oldVal, newVal, false
	}
	return oldVal, newVal, true
}
