package patch

import (
	"encoding/json"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/thread"
	"github.com/brambleworks/cob/pkg/crdt"
)

// Patches is the typed store for Patch objects: it binds a cob.RawStore
// (normally pkg/cob/boltstore) to Patch's state constructor and Action
// wire codec.
type Patches struct {
	store *cob.Store[*Patch, Action]
}

// Open binds raw to the Patch COB type.
func Open(raw cob.RawStore) *Patches {
	return &Patches{store: cob.Open[*Patch, Action](raw, TypeName, New, encodeActions, decodeActions)}
}

// SetEventSink wires sink to be notified after every successful write.
func (p *Patches) SetEventSink(sink cob.EventSink) {
	p.store.SetEventSink(sink)
}

func encodeActions(actions []Action) ([]byte, error) {
	return json.Marshal(actions)
}

func decodeActions(data []byte) ([]Action, error) {
	var actions []Action
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, &cob.ParseError{Reason: err.Error()}
	}
	return actions, nil
}

// Get folds and returns one patch's current state.
func (p *Patches) Get(id cob.ObjectId) (*Patch, crdt.Lamport, error) {
	return p.store.Get(id)
}

// All folds and returns every known patch.
func (p *Patches) All() (map[cob.ObjectId]*Patch, error) {
	return p.store.All()
}

// Filter folds every patch and keeps those for which pred returns true.
func (p *Patches) Filter(pred func(cob.ObjectId, *Patch) bool) (map[cob.ObjectId]*Patch, error) {
	return p.store.Filter(pred)
}

// Counts groups every known patch by lifecycle state.
func (p *Patches) Counts() (map[State]int, error) {
	all, err := p.All()
	if err != nil {
		return nil, err
	}
	counts := make(map[State]int, 3)
	for _, pt := range all {
		counts[pt.State()]++
	}
	return counts, nil
}

// Proposed returns every patch currently in the Proposed state.
func (p *Patches) Proposed() (map[cob.ObjectId]*Patch, error) {
	return p.Filter(func(_ cob.ObjectId, pt *Patch) bool { return pt.IsProposed() })
}

// ProposedBy returns every Proposed patch whose first revision was
// authored by author.
func (p *Patches) ProposedBy(author cob.PublicKey) (map[cob.ObjectId]*Patch, error) {
	return p.Filter(func(_ cob.ObjectId, pt *Patch) bool {
		if !pt.IsProposed() {
			return false
		}
		a, ok := pt.Author()
		return ok && a == author
	})
}

// Create opens a brand-new patch whose first revision is (base, head).
// The EntryId of this founding transaction becomes both the ObjectId
// and the first RevisionId.
func (p *Patches) Create(title, description string, target MergeTarget, base, head cob.Oid, timestamp int64, signer cob.Signer) (cob.ObjectId, *Patch, crdt.Lamport, error) {
	return p.store.Initial("Create patch", timestamp, signer, func(tx *cob.Transaction[*Patch, Action]) {
		tx.Push(RevisionAction("", base, head))
		tx.Push(EditAction(&title, &description, &target))
	})
}

// Mut opens a mutable handle on an existing patch: its current folded
// state plus the clock needed to commit further transactions against it.
// Mirrors the original implementation's PatchMut, which scopes a borrow
// of (id, state, clock, store) to the handle's lifetime.
func (p *Patches) Mut(id cob.ObjectId, signer cob.Signer) (*Mut, error) {
	state, clock, err := p.Get(id)
	if err != nil {
		return nil, err
	}
	return &Mut{id: id, state: state, clock: clock, patches: p, signer: signer}, nil
}

// Mut is a scoped handle for editing one patch: every method commits a
// single transaction with a short human message, then folds the
// resulting ops into the in-memory state directly so callers get
// read-your-writes without a second round trip through storage.
type Mut struct {
	id      cob.ObjectId
	state   *Patch
	clock   crdt.Lamport
	patches *Patches
	signer  cob.Signer
}

// ID returns the patch's object id.
func (m *Mut) ID() cob.ObjectId { return m.id }

// State returns the patch's current folded state.
func (m *Mut) State() *Patch { return m.state }

// Clock returns the clock value after the handle's most recent commit.
func (m *Mut) Clock() crdt.Lamport { return m.clock }

func (m *Mut) commit(message string, timestamp int64, actions ...Action) error {
	tx := m.patches.store.Transaction(m.id, m.clock)
	for _, a := range actions {
		tx.Push(a)
	}
	ops, _, newClock, err := tx.Commit(message, timestamp, m.signer)
	if err != nil {
		return err
	}
	if err := m.state.Apply(ops); err != nil {
		return err
	}
	m.clock = newClock
	return nil
}

// Edit updates title, description and/or target. A nil field leaves
// that part of the patch untouched.
func (m *Mut) Edit(title, description *string, target *MergeTarget, timestamp int64) error {
	return m.commit("Edit", timestamp, EditAction(title, description, target))
}

// Tag adds and/or removes tags.
func (m *Mut) Tag(add, remove []Tag, timestamp int64) error {
	return m.commit("Tag", timestamp, TagAction(add, remove))
}

// Update proposes a new revision (base, head) with description.
func (m *Mut) Update(description string, base, head cob.Oid, timestamp int64) error {
	return m.commit("Add revision", timestamp, RevisionAction(description, base, head))
}

// Comment posts a reply in the given revision's discussion.
func (m *Mut) Comment(revision RevisionId, body string, replyTo *thread.CommentId, timestamp int64) error {
	return m.commit("Comment", timestamp, ThreadAction(revision, thread.CommentAction(body, replyTo)))
}

// Review posts a (partial) review against a revision. A nil verdict or
// comment leaves that part of the reviewer's prior review untouched.
func (m *Mut) Review(revision RevisionId, verdict *Verdict, comment *string, inline []CodeComment, timestamp int64) error {
	return m.commit("Review", timestamp, ReviewAction(revision, verdict, comment, inline))
}

// Merge records that a revision was merged at commit.
func (m *Mut) Merge(revision RevisionId, commit cob.Oid, timestamp int64) error {
	return m.commit("Merge revision", timestamp, MergeAction(revision, commit))
}

// Redact tombstones a revision.
func (m *Mut) Redact(revision RevisionId, timestamp int64) error {
	return m.commit("Redact revision", timestamp, RedactAction(revision))
}
