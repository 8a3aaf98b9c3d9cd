// Package boltstore implements cob.RawStore on top of go.etcd.io/bbolt, the
// same embedded key/value store the teacher's pkg/storage uses for node,
// service and container records. Each COB type gets its own top-level
// bucket (named by type); within it, one nested bucket per object holds
// the object's entries keyed by entry id, plus a "heads" key recording the
// current tips for the compare-and-swap in Append.
package boltstore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/brambleworks/cob/pkg/cob"
)

var headsKey = []byte("\x00heads")

// Store is a cob.RawStore backed by a single bbolt database file, scoped
// to one COB type.
type Store struct {
	db       *bbolt.DB
	typeName string
}

// Open opens (creating if necessary) the bucket for typeName inside the
// bbolt database at path.
func Open(path string, typeName string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(typeName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: init bucket %s: %w", typeName, err)
	}
	return &Store{db: db, typeName: typeName}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Heads(object cob.ObjectId) ([]cob.EntryId, error) {
	var heads []cob.EntryId
	err := s.db.View(func(tx *bbolt.Tx) error {
		objects := tx.Bucket([]byte(s.typeName))
		obj := objects.Bucket(object[:])
		if obj == nil {
			return nil
		}
		raw := obj.Get(headsKey)
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &heads)
	})
	return heads, err
}

func (s *Store) Append(object cob.ObjectId, entry cob.Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		objects := tx.Bucket([]byte(s.typeName))
		obj, err := objects.CreateBucketIfNotExists(object[:])
		if err != nil {
			return err
		}

		currentHeads, err := readHeads(obj)
		if err != nil {
			return err
		}
		if !headsMatch(currentHeads, entry.Parents) {
			return &cob.ConflictError{Object: object}
		}

		if err := obj.Put(entry.ID[:], payload); err != nil {
			return err
		}

		newHeads := replaceHeads(currentHeads, entry.Parents, entry.ID)
		encoded, err := json.Marshal(newHeads)
		if err != nil {
			return err
		}
		return obj.Put(headsKey, encoded)
	})
}

func (s *Store) Entries(object cob.ObjectId) ([]cob.Entry, error) {
	var entries []cob.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		objects := tx.Bucket([]byte(s.typeName))
		obj := objects.Bucket(object[:])
		if obj == nil {
			return nil
		}
		return obj.ForEach(func(k, v []byte) error {
			if bytes.Equal(k, headsKey) {
				return nil
			}
			var e cob.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

func (s *Store) Objects() ([]cob.ObjectId, error) {
	var ids []cob.ObjectId
	err := s.db.View(func(tx *bbolt.Tx) error {
		objects := tx.Bucket([]byte(s.typeName))
		return objects.ForEach(func(k, v []byte) error {
			if v != nil {
				// Not a nested bucket: top-level keys are never used
				// directly under the type bucket.
				return nil
			}
			var id cob.ObjectId
			copy(id[:], k)
			ids = append(ids, id)
			return nil
		})
	})
	return ids, err
}

// readHeads returns the object's current heads, or nil if the object is
// brand new (no heads key yet).
func readHeads(obj *bbolt.Bucket) ([]cob.EntryId, error) {
	raw := obj.Get(headsKey)
	if raw == nil {
		return nil, nil
	}
	var heads []cob.EntryId
	if err := json.Unmarshal(raw, &heads); err != nil {
		return nil, err
	}
	return heads, nil
}

// headsMatch reports whether claimedParents is exactly currentHeads,
// order-insensitive. An entry's Parents must match the heads the writer
// observed, or it has raced a concurrent writer.
func headsMatch(currentHeads, claimedParents []cob.EntryId) bool {
	if len(currentHeads) != len(claimedParents) {
		return false
	}
	seen := make(map[cob.EntryId]bool, len(currentHeads))
	for _, h := range currentHeads {
		seen[h] = true
	}
	for _, p := range claimedParents {
		if !seen[p] {
			return false
		}
	}
	return true
}

// replaceHeads drops any head that the new entry names as a parent (it
// now has a child, so it is no longer a tip) and adds the new entry.
func replaceHeads(currentHeads, parents []cob.EntryId, newID cob.EntryId) []cob.EntryId {
	consumed := make(map[cob.EntryId]bool, len(parents))
	for _, p := range parents {
		consumed[p] = true
	}
	out := make([]cob.EntryId, 0, len(currentHeads)+1)
	for _, h := range currentHeads {
		if !consumed[h] {
			out = append(out, h)
		}
	}
	out = append(out, newID)
	return out
}
