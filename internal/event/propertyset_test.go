package event

import (
	"testing"
)

func keys(ps *PropertySet) []string {
	out := make([]string, 0, ps.Len())
	for _, p := range ps.All() {
		out = append(out, p.Key)
	}
	return out
}

func TestPropertySet_InsertionOrder(t *testing.T) {
	ps := NewPropertySet()
	ps.Set("post_status", "posts", "draft", nil)
	ps.Set("post_title", "posts", "Hello", nil)
	ps.Set("post_author", "posts", int64(1), nil)

	got := keys(ps)
	want := []string{"post_status", "post_title", "post_author"}
	if len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPropertySet_SetOverwritesInPlace(t *testing.T) {
	ps := NewPropertySet()
	ps.Set("a", "", "1", nil)
	ps.Set("b", "", "2", nil)
	ps.Set("c", "", "3", nil)

	// Re-setting "b" must keep its middle position.
	ps.Set("b", "src", "old", "new")

	got := keys(ps)
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("keys = %v, want position preserved", got)
	}
	p := ps.Get("b")
	if p.Source != "src" || p.Value != "old" || p.NewValue != "new" {
		t.Errorf("overwritten property = %#v", p)
	}
	if ps.Len() != 3 {
		t.Errorf("Len = %d, want 3", ps.Len())
	}
}

func TestPropertySet_GetAbsent(t *testing.T) {
	ps := NewPropertySet()
	if ps.Get("missing") != nil {
		t.Error("expected nil for absent key")
	}
}

func TestPropertySet_Remove(t *testing.T) {
	ps := NewPropertySet()
	ps.Set("a", "", "1", nil)
	ps.Set("b", "", "2", nil)
	ps.Set("c", "", "3", nil)

	ps.Remove("b")
	if ps.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ps.Len())
	}
	got := keys(ps)
	if got[0] != "a" || got[1] != "c" {
		t.Errorf("keys = %v, want [a c]", got)
	}

	// Removing an absent key is a no-op.
	ps.Remove("missing")
	if ps.Len() != 2 {
		t.Errorf("Len after no-op remove = %d, want 2", ps.Len())
	}
}

func TestPropertySet_HasChanges(t *testing.T) {
	ps := NewPropertySet()
	if ps.HasChanges() {
		t.Error("empty set should have no changes")
	}

	ps.Set("status", "", "draft", nil)
	if ps.HasChanges() {
		t.Error("current-value-only property should not count as a change")
	}

	ps.Set("status", "", "draft", "publish")
	if !ps.HasChanges() {
		t.Error("non-nil NewValue should count as a change")
	}

	// Overwriting the change back to nil clears it.
	ps.Set("status", "", "draft", nil)
	if ps.HasChanges() {
		t.Error("cleared NewValue should leave no changes")
	}
}

func TestMetadataSet_OrderAndOverwrite(t *testing.T) {
	ms := NewMetadataSet()
	ms.Set("error_code", int64(403))
	ms.Set("attempts", int64(1))
	ms.Set("error_code", int64(500))

	if ms.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ms.Len())
	}
	all := ms.All()
	if all[0].Key != "error_code" || all[1].Key != "attempts" {
		t.Errorf("order = [%s %s], want [error_code attempts]", all[0].Key, all[1].Key)
	}
	if ms.Get("error_code").Value != int64(500) {
		t.Errorf("overwritten value = %#v, want 500", ms.Get("error_code").Value)
	}
}

func TestMetadataSet_Remove(t *testing.T) {
	ms := NewMetadataSet()
	ms.Set("a", "1")
	ms.Set("b", "2")
	ms.Remove("a")

	if ms.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ms.Len())
	}
	if ms.Get("a") != nil {
		t.Error("removed key should be absent")
	}
	if ms.All()[0].Key != "b" {
		t.Errorf("remaining key = %s, want b", ms.All()[0].Key)
	}
}

func TestEvent_HasSubjectAndRef(t *testing.T) {
	e := &Event{}
	if e.HasSubject() {
		t.Error("typeless event should have no subject")
	}

	e.ObjectType = "post"
	e.ObjectKey = "42"
	e.ObjectName = "Hello"
	if !e.HasSubject() {
		t.Error("typed event should have a subject")
	}
	ref := e.Ref()
	if string(ref.Type) != "post" || ref.Key != "42" || ref.Name != "Hello" {
		t.Errorf("Ref = %#v", ref)
	}
}
