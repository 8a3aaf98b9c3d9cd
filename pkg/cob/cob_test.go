package cob

import (
	"crypto/ed25519"
	"encoding/json"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testSigner is the minimal in-memory Signer used across this package's
// tests; pkg/crypto provides the same shape for production code and
// other packages' tests.
type testSigner struct {
	pub  PublicKey
	priv ed25519.PrivateKey
}

func newTestSigner(t *testing.T) testSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var pk PublicKey
	copy(pk[:], pub)
	return testSigner{pub: pk, priv: priv}
}

func (s testSigner) PublicKey() PublicKey { return s.pub }

func (s testSigner) Sign(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(s.priv, message))
	return sig
}

// memStore is an in-memory RawStore used to exercise Store/Transaction/Fold
// without a real database.
type memStore struct {
	mu      sync.Mutex
	heads   map[ObjectId][]EntryId
	entries map[ObjectId]map[EntryId]Entry
}

func newMemStore() *memStore {
	return &memStore{
		heads:   make(map[ObjectId][]EntryId),
		entries: make(map[ObjectId]map[EntryId]Entry),
	}
}

func (m *memStore) Heads(object ObjectId) ([]EntryId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EntryId(nil), m.heads[object]...), nil
}

func (m *memStore) Append(object ObjectId, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !headsMatch(m.heads[object], entry.Parents) {
		return &ConflictError{Object: object}
	}
	if m.entries[object] == nil {
		m.entries[object] = make(map[EntryId]Entry)
	}
	m.entries[object][entry.ID] = entry
	m.heads[object] = replaceHeads(m.heads[object], entry.Parents, entry.ID)
	return nil
}

func (m *memStore) Entries(object ObjectId) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries[object]))
	for _, e := range m.entries[object] {
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) Objects() ([]ObjectId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ObjectId, 0, len(m.entries))
	for id := range m.entries {
		out = append(out, id)
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

// headsMatch reports whether parents names exactly the current heads, in
// any order.
func headsMatch(current, parents []EntryId) bool {
	if len(current) != len(parents) {
		return false
	}
	for _, p := range parents {
		if !slices.Contains(current, p) {
			return false
		}
	}
	return true
}

// replaceHeads drops every head named in parents and appends next.
func replaceHeads(current, parents []EntryId, next EntryId) []EntryId {
	out := make([]EntryId, 0, len(current)+1)
	for _, h := range current {
		if !slices.Contains(parents, h) {
			out = append(out, h)
		}
	}
	return append(out, next)
}

// action is a toy COB action used only by this package's tests: "root"
// creates the node the object is named after, "child" attaches to an
// existing node and fails with MissingError if that node has not been
// applied yet.
type action struct {
	Kind string
	ID   string
	Ref  string
}

type graphState struct {
	nodes map[string]string // id -> ref ("" for roots)
}

func newGraphState() *graphState {
	return &graphState{nodes: make(map[string]string)}
}

func (g *graphState) Apply(ops []Op[action]) error {
	for _, op := range ops {
		switch op.Action.Kind {
		case "root":
			g.nodes[op.Action.ID] = ""
		case "child":
			if _, ok := g.nodes[op.Action.Ref]; !ok {
				return &MissingError{Entry: op.ID}
			}
			g.nodes[op.Action.ID] = op.Action.Ref
		}
	}
	return nil
}

func encodeActions(actions []action) ([]byte, error) { return json.Marshal(actions) }
func decodeActions(data []byte) ([]action, error) {
	var out []action
	err := json.Unmarshal(data, &out)
	return out, err
}

func openGraphStore(raw RawStore) *Store[*graphState, action] {
	return Open[*graphState, action](raw, "graph", newGraphState, encodeActions, decodeActions)
}

func TestInitialCreatesObjectAndFolds(t *testing.T) {
	signer := newTestSigner(t)
	store := openGraphStore(newMemStore())

	id, state, clock, err := store.Initial("create", 100, signer, func(tx *Transaction[*graphState, action]) {
		tx.Push(action{Kind: "root", ID: "a"})
	})
	require.NoError(t, err)
	require.False(t, id.IsZero())
	require.Equal(t, uint64(1), uint64(clock))
	require.Contains(t, state.nodes, "a")

	reread, rereadClock, err := store.Get(id)
	require.NoError(t, err)
	require.Equal(t, clock, rereadClock)
	require.Equal(t, state.nodes, reread.nodes)
}

func TestGetUnknownObjectIsNotFound(t *testing.T) {
	store := openGraphStore(newMemStore())
	_, _, err := store.Get(EntryId{0xaa})
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestTransactionCommitSharesOneClockTick(t *testing.T) {
	signer := newTestSigner(t)
	store := openGraphStore(newMemStore())

	id, _, clock, err := store.Initial("create", 100, signer, func(tx *Transaction[*graphState, action]) {
		tx.Push(action{Kind: "root", ID: "a"})
		tx.Push(action{Kind: "child", ID: "b", Ref: "a"})
		tx.Push(action{Kind: "child", ID: "c", Ref: "a"})
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), uint64(clock), "three actions in one transaction advance the clock once")

	tx := store.Transaction(id, clock)
	tx.Push(action{Kind: "child", ID: "d", Ref: "a"})
	ops, _, newClock, err := tx.Commit("more", 101, signer)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, uint64(2), uint64(newClock))

	state, foldedClock, err := store.Get(id)
	require.NoError(t, err)
	require.Equal(t, newClock, foldedClock)
	require.Equal(t, "a", state.nodes["d"])
}

func TestFoldBuffersAndRetriesMissingDependency(t *testing.T) {
	signer := newTestSigner(t)

	// The child entry carries no DAG parent edge to root (it references
	// it only by action value) and sorts first on clock, so the
	// topological sort alone puts it ahead of its dependency: Fold must
	// buffer it and retry after root is applied.
	root, err := sign(signer, nil, 2, 100, "root", mustEncode(t, action{Kind: "root", ID: "a"}))
	require.NoError(t, err)
	child, err := sign(signer, nil, 1, 101, "child", mustEncode(t, action{Kind: "child", ID: "b", Ref: "a"}))
	require.NoError(t, err)
	state, clock, err := Fold[*graphState, action]("test.graph", []Entry{child, root}, newGraphState, decodeActions)
	require.NoError(t, err)
	require.Equal(t, uint64(2), uint64(clock))
	require.Equal(t, "a", state.nodes["b"])
}

func TestFoldDropsInvalidSignature(t *testing.T) {
	signer := newTestSigner(t)
	other := newTestSigner(t)

	root, err := sign(signer, nil, 1, 100, "root", mustEncode(t, action{Kind: "root", ID: "a"}))
	require.NoError(t, err)
	root.Author = other.pub // forged author, signature no longer verifies

	state, _, err := Fold[*graphState, action]("test.graph", []Entry{root}, newGraphState, decodeActions)
	require.NoError(t, err)
	require.Empty(t, state.nodes)
}

func TestConcurrentTransactionsBothCommit(t *testing.T) {
	signer := newTestSigner(t)
	store := openGraphStore(newMemStore())

	id, _, clock, err := store.Initial("create", 100, signer, func(tx *Transaction[*graphState, action]) {
		tx.Push(action{Kind: "root", ID: "a"})
	})
	require.NoError(t, err)

	txA := store.Transaction(id, clock)
	txA.Push(action{Kind: "child", ID: "b", Ref: "a"})
	txB := store.Transaction(id, clock)
	txB.Push(action{Kind: "child", ID: "c", Ref: "a"})

	_, _, _, err = txA.Commit("b", 101, signer)
	require.NoError(t, err)
	// txB was opened at the same clock as txA, before txA committed;
	// writeEntry reads the current heads when it commits, so txB's entry
	// lands on top of txA's instead of surfacing a conflict to the caller.
	_, _, _, err = txB.Commit("c", 102, signer)
	require.NoError(t, err)

	state, _, err := store.Get(id)
	require.NoError(t, err)
	require.Equal(t, "a", state.nodes["b"])
	require.Equal(t, "a", state.nodes["c"])
}

func mustEncode(t *testing.T, a action) []byte {
	t.Helper()
	b, err := encodeActions([]action{a})
	require.NoError(t, err)
	return b
}
