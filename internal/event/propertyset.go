package event

// Property is one observed attribute of an event's subject: the value at
// observation time and, when the attribute changed, the value it became.
//
// A nil NewValue means "unchanged / current value only"; non-nil signals a
// change. Known limitation: this conflates "no change" with "changed to
// null" -- an attribute explicitly set to null never displays as a change.
// The conflation is inherited behavior; callers may rely on it, so it is
// documented rather than fixed.
type Property struct {
	// Key is the attribute name, source-specific (e.g. "post_status").
	Key string `json:"key"`

	// Source is the origin table or collection name, for traceability
	// only. Never enforced referentially.
	Source string `json:"source,omitempty"`

	// Value is the attribute's old/current canonical value.
	Value any `json:"value"`

	// NewValue is the changed-to canonical value, or nil if unchanged.
	NewValue any `json:"newValue,omitempty"`
}

// PropertySet is an insertion-ordered mapping of property key to Property.
// Insertion order is semantically meaningful -- it drives display order in
// the admin UI -- so the set is an explicit ordered map with a narrow
// update-in-place API rather than a plain Go map.
type PropertySet struct {
	order []string
	items map[string]*Property
}

// NewPropertySet creates an empty property set.
func NewPropertySet() *PropertySet {
	return &PropertySet{items: make(map[string]*Property)}
}

// Set records a property. If the key is already present its fields are
// overwritten in place (last-writer-wins within one accumulation window)
// and its position is kept; otherwise the property is appended.
func (ps *PropertySet) Set(key, source string, value, newValue any) {
	if existing, ok := ps.items[key]; ok {
		existing.Source = source
		existing.Value = value
		existing.NewValue = newValue
		return
	}
	ps.order = append(ps.order, key)
	ps.items[key] = &Property{Key: key, Source: source, Value: value, NewValue: newValue}
}

// Get returns the property for key, or nil if absent.
func (ps *PropertySet) Get(key string) *Property {
	return ps.items[key]
}

// Remove deletes the property for key, if present.
func (ps *PropertySet) Remove(key string) {
	if _, ok := ps.items[key]; !ok {
		return
	}
	delete(ps.items, key)
	for i, k := range ps.order {
		if k == key {
			ps.order = append(ps.order[:i], ps.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of properties in the set.
func (ps *PropertySet) Len() int {
	return len(ps.order)
}

// All returns the properties in insertion order. The returned slice is a
// copy; the pointed-to properties are live.
func (ps *PropertySet) All() []*Property {
	out := make([]*Property, 0, len(ps.order))
	for _, key := range ps.order {
		out = append(out, ps.items[key])
	}
	return out
}

// HasChanges reports whether any property carries a non-nil NewValue.
// Subject to the changed-to-null conflation documented on Property.
func (ps *PropertySet) HasChanges() bool {
	for _, p := range ps.items {
		if p.NewValue != nil {
			return true
		}
	}
	return false
}

// Metadata is one contextual key/value entry attached to an event.
type Metadata struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// MetadataSet is an insertion-ordered mapping of metadata key to value,
// with the same merge-by-key semantics as PropertySet.
type MetadataSet struct {
	order []string
	items map[string]*Metadata
}

// NewMetadataSet creates an empty metadata set.
func NewMetadataSet() *MetadataSet {
	return &MetadataSet{items: make(map[string]*Metadata)}
}

// Set records a metadata entry, overwriting in place if the key exists.
func (ms *MetadataSet) Set(key string, value any) {
	if existing, ok := ms.items[key]; ok {
		existing.Value = value
		return
	}
	ms.order = append(ms.order, key)
	ms.items[key] = &Metadata{Key: key, Value: value}
}

// Get returns the metadata entry for key, or nil if absent.
func (ms *MetadataSet) Get(key string) *Metadata {
	return ms.items[key]
}

// Remove deletes the entry for key, if present.
func (ms *MetadataSet) Remove(key string) {
	if _, ok := ms.items[key]; !ok {
		return
	}
	delete(ms.items, key)
	for i, k := range ms.order {
		if k == key {
			ms.order = append(ms.order[:i], ms.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries in the set.
func (ms *MetadataSet) Len() int {
	return len(ms.order)
}

// All returns the entries in insertion order. The returned slice is a
// copy; the pointed-to entries are live.
func (ms *MetadataSet) All() []*Metadata {
	out := make([]*Metadata, 0, len(ms.order))
	for _, key := range ms.order {
		out = append(out, ms.items[key])
	}
	return out
}
