/*
Package crdt provides the convergent-replicated-data-type primitives that
every collaborative object in this module is built from: grow-only sets
and maps, last-writer-wins registers and sets, a max-lattice wrapper, and
a redactable tombstone wrapper.

Every primitive exposes a pure Merge method that is commutative,
associative, and idempotent, and a zero value that acts as the identity
element. Mutating helpers (Set, Insert, Remove) are expressed in terms of
Merge so that the merge law is the only place semantics live.

# Design

Primitives are generic over the value they carry. Where tie-breaking on
value ordering matters (LWWReg), the value type must implement Ord, a
minimal total-order interface (LWWSet only needs comparable values; at
equal clocks its removal wins):

	type Ord[T any] interface {
		Less(other T) bool
	}

Max[T] adapts any cmp.Ordered scalar (strings, integers) to Ord. Enum-like
domain types declared as ordered integers go through Max, so their
declaration order breaks ties: a Verdict of Reject outranks Accept at
equal Lamport clocks. Struct types implement Ord directly and use MaxBy.

# Laws

crdt_test.go exercises the semilattice laws (commutativity, associativity,
idempotence) across every primitive with randomly generated operation
sequences merged in every permutation, mirroring the property tests a
CRDT library in this corpus is expected to carry.
*/
package crdt
