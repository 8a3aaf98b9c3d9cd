// Package cobtest provides the fixtures every cob-backed package's tests
// share: a deterministic signer and an in-memory RawStore, so package
// tests don't each reinvent a mock store or touch the filesystem.
package cobtest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/crypto"
)

// Signer returns a deterministic cob.Signer seeded from n, so repeated
// test runs produce the same public key without touching crypto/rand.
func Signer(t *testing.T, n byte) cob.Signer {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = n
	}
	kp, err := crypto.FromSeed(seed)
	require.NoError(t, err)
	return kp
}

// MemStore is an in-memory cob.RawStore, grounded on the same
// heads-CAS/Append/Entries/Objects shape pkg/cob/boltstore implements
// over bbolt, for tests that don't need real durability.
type MemStore struct {
	mu      sync.Mutex
	heads   map[cob.ObjectId][]cob.EntryId
	entries map[cob.ObjectId]map[cob.EntryId]cob.Entry
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		heads:   make(map[cob.ObjectId][]cob.EntryId),
		entries: make(map[cob.ObjectId]map[cob.EntryId]cob.Entry),
	}
}

func (m *MemStore) Heads(object cob.ObjectId) ([]cob.EntryId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]cob.EntryId(nil), m.heads[object]...), nil
}

func (m *MemStore) Append(object cob.ObjectId, entry cob.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !headsMatch(m.heads[object], entry.Parents) {
		return &cob.ConflictError{Object: object}
	}
	if m.entries[object] == nil {
		m.entries[object] = make(map[cob.EntryId]cob.Entry)
	}
	m.entries[object][entry.ID] = entry
	m.heads[object] = replaceHeads(m.heads[object], entry.Parents, entry.ID)
	return nil
}

func (m *MemStore) Entries(object cob.ObjectId) ([]cob.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]cob.Entry, 0, len(m.entries[object]))
	for _, e := range m.entries[object] {
		out = append(out, e)
	}
	return out, nil
}

func (m *MemStore) Objects() ([]cob.ObjectId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]cob.ObjectId, 0, len(m.entries))
	for id := range m.entries {
		out = append(out, id)
	}
	return out, nil
}

func (m *MemStore) Close() error { return nil }

func headsMatch(current, parents []cob.EntryId) bool {
	if len(current) != len(parents) {
		return false
	}
	seen := make(map[cob.EntryId]bool, len(current))
	for _, h := range current {
		seen[h] = true
	}
	for _, p := range parents {
		if !seen[p] {
			return false
		}
	}
	return true
}

func replaceHeads(current, parents []cob.EntryId, next cob.EntryId) []cob.EntryId {
	out := make([]cob.EntryId, 0, len(current)+1)
	parentSet := make(map[cob.EntryId]bool, len(parents))
	for _, p := range parents {
		parentSet[p] = true
	}
	for _, h := range current {
		if !parentSet[h] {
			out = append(out, h)
		}
	}
	return append(out, next)
}
