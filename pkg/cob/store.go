package cob

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/brambleworks/cob/pkg/cobmetrics"
	"github.com/brambleworks/cob/pkg/crdt"
	"github.com/brambleworks/cob/pkg/log"
)

// RawStore is the durable-storage side of a collaborative object: it
// knows nothing about actions or folding, only about appending and
// listing signed entries under a content-addressed object id. See
// pkg/cob/boltstore for the embedded-database implementation.
type RawStore interface {
	// Heads returns the current tips of the object's history: the
	// entries that have no children yet. A new entry's Parents must be
	// exactly the heads observed at write time.
	Heads(object ObjectId) ([]EntryId, error)

	// Append writes entry under object, creating the object if it does
	// not yet exist. It returns a *ConflictError if entry.Parents no
	// longer match the object's current heads (a concurrent writer won
	// the race), in which case the caller should re-read Heads and
	// retry.
	Append(object ObjectId, entry Entry) error

	// Entries returns every entry stored under object, in unspecified
	// order; Fold is responsible for ordering them causally.
	Entries(object ObjectId) ([]Entry, error)

	// Objects lists every object id known to this store.
	Objects() ([]ObjectId, error)

	Close() error
}

// ConflictError reports that Append lost a compare-and-swap race against
// the object's current heads.
type ConflictError struct {
	Object ObjectId
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cob: concurrent write to %s, retry", e.Object)
}

// EventSink receives notifications after a successful write. It lets
// Store publish without depending on any particular notification
// package; pkg/events.Broker implements it via Broker.Emit.
type EventSink interface {
	Emit(eventType, typeName string, object ObjectId, message string)
}

// Store is the typed façade over a RawStore for one concrete COB type: it
// knows how to fold a type's own action encoding into its own state type,
// but defers all durability to RawStore. S is normally a pointer type
// (e.g. *patch.Patch) so that Apply can mutate in place.
type Store[S Folder[A], A any] struct {
	raw      RawStore
	typeName string
	newState func() S
	encode   func([]A) ([]byte, error)
	decode   func([]byte) ([]A, error)
	sink     EventSink
}

// Open binds a RawStore to one concrete COB type's state constructor and
// action codec.
func Open[S Folder[A], A any](
	raw RawStore,
	typeName string,
	newState func() S,
	encode func([]A) ([]byte, error),
	decode func([]byte) ([]A, error),
) *Store[S, A] {
	return &Store[S, A]{raw: raw, typeName: typeName, newState: newState, encode: encode, decode: decode}
}

// SetEventSink wires sink to be notified after every successful write.
// Nil (the default) disables notifications.
func (s *Store[S, A]) SetEventSink(sink EventSink) {
	s.sink = sink
}

// Get folds an object's full history into its current state. It returns
// a *NotFoundError if the object has no entries.
func (s *Store[S, A]) Get(id ObjectId) (S, crdt.Lamport, error) {
	timer := cobmetrics.NewTimer()
	defer timer.ObserveDuration(cobmetrics.FoldDuration.WithLabelValues(s.typeName))

	entries, err := s.raw.Entries(id)
	if err != nil {
		var zero S
		return zero, 0, &IoError{Op: "entries", Err: err}
	}
	if len(entries) == 0 {
		var zero S
		return zero, 0, &NotFoundError{TypeName: s.typeName, Object: id}
	}
	return Fold[S, A](s.typeName, entries, s.newState, s.decode)
}

// All folds and returns every object of this type.
func (s *Store[S, A]) All() (map[ObjectId]S, error) {
	ids, err := s.raw.Objects()
	if err != nil {
		return nil, &IoError{Op: "objects", Err: err}
	}
	out := make(map[ObjectId]S, len(ids))
	for _, id := range ids {
		state, _, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		out[id] = state
	}
	return out, nil
}

// Filter folds every object of this type and returns the ids and states
// for which pred returns true. It grounds the "counts()"/"proposed()"
// style convenience queries concrete COB types expose over their store.
func (s *Store[S, A]) Filter(pred func(ObjectId, S) bool) (map[ObjectId]S, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	out := make(map[ObjectId]S)
	for id, state := range all {
		if pred(id, state) {
			out[id] = state
		}
	}
	return out, nil
}

// writeEntry signs and appends one entry carrying actions, retrying
// against the object's current heads if a concurrent writer raced it.
// For object creation, id is the zero value until the first entry is
// signed, at which point the entry's own id becomes the object id.
func (s *Store[S, A]) writeEntry(id ObjectId, creating bool, clock crdt.Lamport, timestamp int64, message string, actions []A, signer Signer) (EntryId, ObjectId, crdt.Lamport, error) {
	payload, err := s.encode(actions)
	if err != nil {
		return EntryId{}, id, clock, err
	}

	txID := uuid.NewString()
	logger := log.WithComponent(s.typeName).With().Str("tx_id", txID).Logger()
	if !creating {
		logger = log.WithObjectID(id).With().Str("tx_id", txID).Str("type", s.typeName).Logger()
	}

	const maxRetries = 8
	for attempt := 0; attempt < maxRetries; attempt++ {
		var parents []EntryId
		observed := clock
		if !creating {
			parents, err = s.raw.Heads(id)
			if err != nil {
				return EntryId{}, id, clock, &IoError{Op: "heads", Err: err}
			}
			headClock, err := s.headClock(id, parents)
			if err != nil {
				return EntryId{}, id, clock, err
			}
			observed = observed.Max(headClock)
		}
		nextClock := observed.Tick()
		entry, err := sign(signer, parents, nextClock, timestamp, message, payload)
		if err != nil {
			return EntryId{}, id, clock, err
		}

		objectID := id
		if creating {
			objectID = entry.ID
		}
		if err := s.raw.Append(objectID, entry); err != nil {
			if _, ok := err.(*ConflictError); ok {
				cobmetrics.AppendConflictsTotal.WithLabelValues(s.typeName).Inc()
				logger.Debug().Int("attempt", attempt).Msg("append conflict, retrying")
				continue
			}
			return EntryId{}, id, clock, &IoError{Op: "append", Err: err}
		}
		cobmetrics.EntriesAppendedTotal.WithLabelValues(s.typeName).Inc()
		logger.Debug().Str("entry_id", entry.ID.String()).Msg("entry appended")
		if s.sink != nil {
			eventType := "entry.appended"
			if creating {
				eventType = "object.created"
			}
			s.sink.Emit(eventType, s.typeName, objectID, entry.ID.String())
		}
		return entry.ID, objectID, nextClock, nil
	}
	return EntryId{}, id, clock, fmt.Errorf("cob: %s: too many write conflicts", s.typeName)
}

// headClock returns the highest clock value among the object's current
// head entries, so a retried commit observes whatever a concurrent writer
// just committed instead of replaying its own stale snapshot.
func (s *Store[S, A]) headClock(id ObjectId, heads []EntryId) (crdt.Lamport, error) {
	if len(heads) == 0 {
		return 0, nil
	}
	entries, err := s.raw.Entries(id)
	if err != nil {
		return 0, &IoError{Op: "entries", Err: err}
	}
	byID := make(map[EntryId]crdt.Lamport, len(entries))
	for _, e := range entries {
		byID[e.ID] = e.Clock
	}
	var max crdt.Lamport
	for _, h := range heads {
		max = max.Max(byID[h])
	}
	return max, nil
}
