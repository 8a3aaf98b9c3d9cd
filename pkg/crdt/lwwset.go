package crdt

// lwwSetEntry tracks one element's presence and the clock it was last
// touched at.
type lwwSetEntry struct {
	present bool
	clock   Lamport
}

// merge resolves two observations of the same element: the later clock
// wins; at equal clocks, removal wins over insertion, favouring the
// conservative (deleted) outcome.
func (e lwwSetEntry) merge(other lwwSetEntry) lwwSetEntry {
	if other.clock > e.clock {
		return other
	}
	if other.clock < e.clock {
		return e
	}
	if !e.present || !other.present {
		return lwwSetEntry{present: false, clock: e.clock}
	}
	return e
}

// LWWSet is a last-writer-wins set: every element carries a presence flag
// and the clock it was last toggled at, so concurrent add/remove of the
// same element converges deterministically.
type LWWSet[T comparable] struct {
	entries map[T]lwwSetEntry
}

// NewLWWSet returns an empty set.
func NewLWWSet[T comparable]() LWWSet[T] {
	return LWWSet[T]{entries: make(map[T]lwwSetEntry)}
}

// Insert adds v to the set at clock.
func (s LWWSet[T]) Insert(v T, clock Lamport) LWWSet[T] {
	return s.apply(v, lwwSetEntry{present: true, clock: clock})
}

// Remove removes v from the set at clock.
func (s LWWSet[T]) Remove(v T, clock Lamport) LWWSet[T] {
	return s.apply(v, lwwSetEntry{present: false, clock: clock})
}

func (s LWWSet[T]) apply(v T, next lwwSetEntry) LWWSet[T] {
	out := s.clone()
	if cur, ok := out.entries[v]; ok {
		out.entries[v] = cur.merge(next)
	} else {
		out.entries[v] = next
	}
	return out
}

// Contains reports whether v is currently present.
func (s LWWSet[T]) Contains(v T) bool {
	e, ok := s.entries[v]
	return ok && e.present
}

// Len returns the number of currently present elements.
func (s LWWSet[T]) Len() int {
	n := 0
	for _, e := range s.entries {
		if e.present {
			n++
		}
	}
	return n
}

// Iter calls fn for every currently present element. Iteration order is
// unspecified; callers needing a stable order should sort the result.
func (s LWWSet[T]) Iter(fn func(T)) {
	for v, e := range s.entries {
		if e.present {
			fn(v)
		}
	}
}

// Slice returns the currently present elements as a slice.
func (s LWWSet[T]) Slice() []T {
	out := make([]T, 0, len(s.entries))
	s.Iter(func(v T) { out = append(out, v) })
	return out
}

// Merge unions the two sets' histories, resolving each element's presence
// independently.
func (s LWWSet[T]) Merge(other LWWSet[T]) LWWSet[T] {
	out := s.clone()
	for v, e := range other.entries {
		if cur, ok := out.entries[v]; ok {
			out.entries[v] = cur.merge(e)
		} else {
			out.entries[v] = e
		}
	}
	return out
}

func (s LWWSet[T]) clone() LWWSet[T] {
	out := LWWSet[T]{entries: make(map[T]lwwSetEntry, len(s.entries))}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	return out
}
