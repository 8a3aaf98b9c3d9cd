package cob

import (
	"github.com/brambleworks/cob/pkg/cobmetrics"
	"github.com/brambleworks/cob/pkg/crdt"
)

// Folder is implemented by the mutable state of a concrete COB type (a
// *patch.Patch, a *thread.Thread, ...). Apply folds a batch of ops —
// always everything committed together in one Transaction — into the
// receiver. It must return a *MissingError, unwrapped, when an action
// references a causal dependency not yet present in the receiver; any
// other error aborts the whole fold.
type Folder[A any] interface {
	Apply(ops []Op[A]) error
}

// Fold replays entries, in causal order, into a freshly constructed
// state. Entries with an invalid signature are dropped before sorting.
// Actions that fail with MissingError are buffered and retried after each
// further entry is applied; if a full sweep over the remaining buffer
// makes no progress, Fold fails with the first MissingError it saw on
// that sweep.
func Fold[S Folder[A], A any](
	typeName string,
	entries []Entry,
	newState func() S,
	decode func([]byte) ([]A, error),
) (S, crdt.Lamport, error) {
	state := newState()
	var clock crdt.Lamport

	valid := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.VerifySignature() {
			valid = append(valid, e)
		} else {
			cobmetrics.SignatureFailuresTotal.WithLabelValues(typeName).Inc()
		}
	}
	sorted := sortEntries(valid)

	type pending struct {
		entry Entry
		ops   []Op[A]
	}
	var buffered []pending

	applyOps := func(e Entry, ops []Op[A]) error {
		if err := state.Apply(ops); err != nil {
			return err
		}
		clock = clock.Max(e.Clock)
		return nil
	}

	for _, e := range sorted {
		actions, err := decode(e.Payload)
		if err != nil {
			return state, clock, err
		}
		ops := make([]Op[A], len(actions))
		for i, a := range actions {
			ops[i] = Op[A]{ID: e.ID, Author: e.Author, Clock: e.Clock, Timestamp: e.Timestamp, Action: a}
		}
		if err := applyOps(e, ops); err != nil {
			if isMissing(err) {
				buffered = append(buffered, pending{entry: e, ops: ops})
				continue
			}
			return state, clock, err
		}
		if len(buffered) > 0 {
			cobmetrics.FoldRetriesTotal.WithLabelValues(typeName).Inc()
			still := buffered[:0:0]
			for _, p := range buffered {
				if err := applyOps(p.entry, p.ops); err != nil {
					if !isMissing(err) {
						return state, clock, err
					}
					still = append(still, p)
				}
			}
			buffered = still
		}
	}

	for {
		if len(buffered) == 0 {
			break
		}
		cobmetrics.FoldRetriesTotal.WithLabelValues(typeName).Inc()
		progressed := false
		remaining := buffered[:0:0]
		var firstErr error
		for _, p := range buffered {
			if err := applyOps(p.entry, p.ops); err != nil {
				if isMissing(err) {
					remaining = append(remaining, p)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				return state, clock, err
			}
			progressed = true
		}
		buffered = remaining
		if !progressed {
			return state, clock, firstErr
		}
	}

	return state, clock, nil
}

func isMissing(err error) bool {
	_, ok := err.(*MissingError)
	return ok
}
