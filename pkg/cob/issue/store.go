package issue

import (
	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/thread"
	"github.com/brambleworks/cob/pkg/crdt"
)

// Issues is the typed store for Issue objects.
type Issues struct {
	store *cob.Store[*Issue, Action]
}

// Open binds raw to the Issue COB type.
func Open(raw cob.RawStore) *Issues {
	return &Issues{store: cob.Open[*Issue, Action](raw, TypeName, New, encodeActions, decodeActions)}
}

// SetEventSink wires sink to be notified after every successful write.
func (s *Issues) SetEventSink(sink cob.EventSink) {
	s.store.SetEventSink(sink)
}

// Get folds and returns one issue's current state.
func (s *Issues) Get(id cob.ObjectId) (*Issue, crdt.Lamport, error) {
	return s.store.Get(id)
}

// All folds and returns every known issue.
func (s *Issues) All() (map[cob.ObjectId]*Issue, error) {
	return s.store.All()
}

// Filter folds every issue and keeps those for which pred returns true.
func (s *Issues) Filter(pred func(cob.ObjectId, *Issue) bool) (map[cob.ObjectId]*Issue, error) {
	return s.store.Filter(pred)
}

// OpenIssues returns every issue currently in the Open lifecycle.
func (s *Issues) OpenIssues() (map[cob.ObjectId]*Issue, error) {
	return s.Filter(func(_ cob.ObjectId, i *Issue) bool { return i.IsOpen() })
}

// AssignedTo returns every issue currently assigned to who.
func (s *Issues) AssignedTo(who cob.PublicKey) (map[cob.ObjectId]*Issue, error) {
	return s.Filter(func(_ cob.ObjectId, i *Issue) bool {
		for _, a := range i.Assignees() {
			if a == who {
				return true
			}
		}
		return false
	})
}

// Create opens a brand-new issue with the given title.
func (s *Issues) Create(title string, timestamp int64, signer cob.Signer) (cob.ObjectId, *Issue, crdt.Lamport, error) {
	return s.store.Initial("Create issue", timestamp, signer, func(tx *cob.Transaction[*Issue, Action]) {
		tx.Push(EditAction(title))
	})
}

// Mut opens a mutable handle on an existing issue.
func (s *Issues) Mut(id cob.ObjectId, signer cob.Signer) (*Mut, error) {
	state, clock, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return &Mut{id: id, state: state, clock: clock, issues: s, signer: signer}, nil
}

// Mut is a scoped handle for editing one issue, mirroring patch.Mut.
type Mut struct {
	id     cob.ObjectId
	state  *Issue
	clock  crdt.Lamport
	issues *Issues
	signer cob.Signer
}

// ID returns the issue's object id.
func (m *Mut) ID() cob.ObjectId { return m.id }

// State returns the issue's current folded state.
func (m *Mut) State() *Issue { return m.state }

// Clock returns the clock value after the handle's most recent commit.
func (m *Mut) Clock() crdt.Lamport { return m.clock }

func (m *Mut) commit(message string, timestamp int64, actions ...Action) error {
	tx := m.issues.store.Transaction(m.id, m.clock)
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

// Edit updates the title.
func (m *Mut) Edit(title string, timestamp int64) error {
	return m.commit("Edit", timestamp, EditAction(title))
}

// Assign adds assignees.
func (m *Mut) Assign(who []cob.PublicKey, timestamp int64) error {
	return m.commit("Assign", timestamp, AssignAction(who))
}

// Unassign removes assignees.
func (m *Mut) Unassign(who []cob.PublicKey, timestamp int64) error {
	return m.commit("Unassign", timestamp, UnassignAction(who))
}

// Tag adds and/or removes tags.
func (m *Mut) Tag(add, remove []Tag, timestamp int64) error {
	return m.commit("Tag", timestamp, TagAction(add, remove))
}

// Comment posts a reply in the issue's discussion.
func (m *Mut) Comment(body string, replyTo *thread.CommentId, timestamp int64) error {
	return m.commit("Comment", timestamp, ThreadAction(thread.CommentAction(body, replyTo)))
}

// Close closes the issue with reason.
func (m *Mut) Close(reason string, timestamp int64) error {
	return m.commit("Close issue", timestamp, LifecycleAction(ClosedLifecycle(reason)))
}

// Reopen reopens a closed issue.
func (m *Mut) Reopen(timestamp int64) error {
	return m.commit("Reopen issue", timestamp, LifecycleAction(OpenLifecycle()))
}
