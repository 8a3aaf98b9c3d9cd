package cob

import (
	"fmt"

	"github.com/brambleworks/cob/pkg/crdt"
)

// Transaction accumulates actions to be committed as a single entry. All
// actions pushed to one Transaction share one EntryId, one author and one
// Lamport clock tick: the clock advances once per Commit, not once per
// Push.
type Transaction[S Folder[A], A any] struct {
	store    *Store[S, A]
	object   ObjectId
	creating bool
	clock    crdt.Lamport
	actions  []A
}

// Transaction opens a transaction against an existing object at its
// current clock.
func (s *Store[S, A]) Transaction(object ObjectId, clock crdt.Lamport) *Transaction[S, A] {
	return &Transaction[S, A]{store: s, object: object, clock: clock}
}

// Push appends an action to the transaction. It does not touch storage.
func (tx *Transaction[S, A]) Push(action A) {
	tx.actions = append(tx.actions, action)
}

// Commit signs and appends the accumulated actions as a single entry,
// returning the ops folded from it, the entry id, and the clock value
// after this commit. The returned ops can be applied directly to an
// in-memory state without a round trip through storage, for callers that
// want read-your-writes without re-folding the whole history.
func (tx *Transaction[S, A]) Commit(message string, timestamp int64, signer Signer) ([]Op[A], EntryId, crdt.Lamport, error) {
	if len(tx.actions) == 0 {
		return nil, EntryId{}, tx.clock, nil
	}
	entryID, objectID, newClock, err := tx.store.writeEntry(tx.object, tx.creating, tx.clock, timestamp, message, tx.actions, signer)
	if err != nil {
		return nil, EntryId{}, tx.clock, err
	}
	tx.object = objectID
	tx.clock = newClock

	ops := make([]Op[A], len(tx.actions))
	for i, a := range tx.actions {
		ops[i] = Op[A]{ID: entryID, Author: signer.PublicKey(), Clock: newClock, Timestamp: timestamp, Action: a}
	}
	tx.actions = nil
	return ops, entryID, newClock, nil
}

// Initial creates a brand-new object: build pushes the object's founding
// actions onto the transaction, and Initial signs and appends them as the
// object's first entry, whose id becomes the ObjectId. It then folds the
// single entry into a fresh state and returns it, so the caller does not
// need a second round trip to read back what it just wrote.
func (s *Store[S, A]) Initial(message string, timestamp int64, signer Signer, build func(tx *Transaction[S, A])) (ObjectId, S, crdt.Lamport, error) {
	tx := &Transaction[S, A]{store: s, creating: true}
	build(tx)
	if len(tx.actions) == 0 {
		var zero S
		return ObjectId{}, zero, 0, fmt.Errorf("cob: %s: initial transaction has no actions", s.typeName)
	}
	_, objectID, newClock, err := tx.store.writeEntry(ObjectId{}, true, 0, timestamp, message, tx.actions, signer)
	if err != nil {
		var zero S
		return ObjectId{}, zero, 0, err
	}
	state, clock, err := s.Get(objectID)
	if err != nil {
		return objectID, state, clock, err
	}
	return objectID, state, newClock, nil
}
