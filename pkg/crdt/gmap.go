package crdt

// Merger is implemented by every value a GMap can hold: it must be able to
// merge with another instance of itself.
type Merger[T any] interface {
	Merge(other T) T
}

// GMap is a grow-only map whose values are themselves semilattices: a key
// is never removed, and two maps merge by merging their values key by key.
// This is what lets a Patch's revision table, or a Thread's comment table,
// converge even though revisions and comments are never deleted outright
// (see Redactable for how "deletion" is expressed).
type GMap[K comparable, V Merger[V]] struct {
	entries map[K]V
}

// NewGMap returns an empty map.
func NewGMap[K comparable, V Merger[V]]() GMap[K, V] {
	return GMap[K, V]{entries: make(map[K]V)}
}

// Get returns the value at key, if any.
func (m GMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Has reports whether key is present.
func (m GMap[K, V]) Has(key K) bool {
	_, ok := m.entries[key]
	return ok
}

// Len returns the number of keys, including any that are logically
// tombstoned via Redactable — callers that want to skip tombstones should
// filter on the value.
func (m GMap[K, V]) Len() int {
	return len(m.entries)
}

// Insert sets key to value if key is absent, and is a no-op otherwise.
// Overwriting an existing key must go through Merge so that two replicas
// that both insert the same key converge; Insert exists only for the
// "first writer creates the slot" case used by content-addressed keys.
func (m GMap[K, V]) Insert(key K, value V) GMap[K, V] {
	if _, ok := m.entries[key]; ok {
		return m
	}
	out := m.clone()
	out.entries[key] = value
	return out
}

// MergeAt merges value into whatever is already stored at key, inserting it
// if key was absent.
func (m GMap[K, V]) MergeAt(key K, value V) GMap[K, V] {
	out := m.clone()
	if cur, ok := out.entries[key]; ok {
		out.entries[key] = cur.Merge(value)
	} else {
		out.entries[key] = value
	}
	return out
}

// Iter calls fn for every key/value pair, in unspecified order.
func (m GMap[K, V]) Iter(fn func(K, V)) {
	for k, v := range m.entries {
		fn(k, v)
	}
}

// Merge merges other into m key by key.
func (m GMap[K, V]) Merge(other GMap[K, V]) GMap[K, V] {
	out := m.clone()
	for k, v := range other.entries {
		if cur, ok := out.entries[k]; ok {
			out.entries[k] = cur.Merge(v)
		} else {
			out.entries[k] = v
		}
	}
	return out
}

func (m GMap[K, V]) clone() GMap[K, V] {
	out := GMap[K, V]{entries: make(map[K]V, len(m.entries))}
	for k, v := range m.entries {
		out.entries[k] = v
	}
	return out
}
