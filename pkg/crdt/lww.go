package crdt

// LWWReg is a last-writer-wins register: the value written at the larger
// Lamport clock wins; ties are broken by the value's own ordering so that
// merge stays deterministic without consulting anything outside the
// register itself.
type LWWReg[T Ord[T]] struct {
	value T
	clock Lamport
}

// NewLWWReg constructs a register already set to value at clock.
func NewLWWReg[T Ord[T]](value T, clock Lamport) LWWReg[T] {
	return LWWReg[T]{value: value, clock: clock}
}

// Get returns the current value.
func (r LWWReg[T]) Get() T {
	return r.value
}

// Clock returns the clock the current value was written at.
func (r LWWReg[T]) Clock() Lamport {
	return r.clock
}

// Set writes value at clock, expressed as a merge against a singleton
// register so that Set obeys the same law as Merge.
func (r LWWReg[T]) Set(value T, clock Lamport) LWWReg[T] {
	return r.Merge(LWWReg[T]{value: value, clock: clock})
}

// Merge keeps whichever register was written at the larger clock; at equal
// clocks it keeps the greater value.
func (r LWWReg[T]) Merge(other LWWReg[T]) LWWReg[T] {
	if other.clock > r.clock {
		return other
	}
	if other.clock < r.clock {
		return r
	}
	if r.value.Less(other.value) {
		return other
	}
	return r
}
