// Package issue implements the Issue collaborative object: a titled
// discussion thread with assignees, tags and an open/closed lifecycle.
// It mirrors pkg/cob/patch's structure closely — spec.md §4.7 describes
// Issue as a strict subset of Patch's shape, with revisions and reviews
// dropped and a single top-level discussion in their place.
package issue

import (
	"encoding/json"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/thread"
	"github.com/brambleworks/cob/pkg/crdt"
)

// TypeName is the dotted object-type name issues are stored under.
const TypeName = "xyz.radicle.issue"

// Lifecycle is an issue's open/closed state. Closed carries a reason, so
// unlike patch.State this is not a bare enum: two Lifecycle values order
// first by their Kind ordinal (Open < Closed, matching spec.md's listed
// order) and, for two Closed values, by reason so Max/LWWReg tie-breaks
// stay deterministic.
type Lifecycle struct {
	Kind   LifecycleKind
	Reason string
}

type LifecycleKind int

const (
	Open LifecycleKind = iota
	Closed
)

func (k LifecycleKind) String() string {
	switch k {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// OpenLifecycle returns the Open state.
func OpenLifecycle() Lifecycle { return Lifecycle{Kind: Open} }

// ClosedLifecycle returns the Closed state with the given reason.
func ClosedLifecycle(reason string) Lifecycle { return Lifecycle{Kind: Closed, Reason: reason} }

// Less implements crdt.Ord: Closed dominates Open regardless of reason,
// and between two Closed values the one with the lexicographically
// greater reason wins ties at equal clock — an arbitrary but
// deterministic rule, same spirit as Verdict's Reject-dominates-Accept.
func (l Lifecycle) Less(other Lifecycle) bool {
	if l.Kind != other.Kind {
		return l.Kind < other.Kind
	}
	return l.Reason < other.Reason
}

// Issue is the folded state of an Issue COB.
type Issue struct {
	title      crdt.LWWReg[crdt.Max[string]]
	lifecycle  crdt.LWWReg[crdt.MaxBy[Lifecycle]]
	assignees  crdt.LWWSet[cob.PublicKey]
	tags       crdt.LWWSet[Tag]
	discussion thread.Thread
}

// Tag is a free-form label attached to an issue.
type Tag string

// New returns an empty issue.
func New() *Issue {
	return &Issue{
		title:      crdt.NewLWWReg(crdt.NewMax(""), 0),
		lifecycle:  crdt.NewLWWReg(crdt.NewMaxBy(OpenLifecycle()), 0),
		assignees:  crdt.NewLWWSet[cob.PublicKey](),
		tags:       crdt.NewLWWSet[Tag](),
		discussion: thread.New(),
	}
}

// Title returns the issue's current title.
func (i *Issue) Title() string { return i.title.Get().Value }

// State returns the issue's current lifecycle.
func (i *Issue) State() Lifecycle { return i.lifecycle.Get().Value }

// IsOpen reports whether the issue is currently open.
func (i *Issue) IsOpen() bool { return i.State().Kind == Open }

// Assignees returns the issue's currently-assigned public keys.
func (i *Issue) Assignees() []cob.PublicKey { return i.assignees.Slice() }

// Tags returns the issue's currently-set tags.
func (i *Issue) Tags() []Tag { return i.tags.Slice() }

// Discussion returns the issue's comment thread.
func (i *Issue) Discussion() thread.Thread { return i.discussion }

// Action kinds, externally tagged on the wire by the "type" field.
const (
	KindEdit      = "edit"
	KindAssign    = "assign"
	KindUnassign  = "unassign"
	KindTag       = "tag"
	KindThread    = "thread"
	KindLifecycle = "lifecycle"
)

// Action is an Issue COB action.
type Action struct {
	Kind string `json:"type"`

	// edit
	Title *string `json:"title,omitempty"`

	// assign / unassign
	Who []cob.PublicKey `json:"who,omitempty"`

	// tag
	Add    []Tag `json:"add,omitempty"`
	Remove []Tag `json:"remove,omitempty"`

	// thread
	ThreadAction *thread.Action `json:"threadAction,omitempty"`

	// lifecycle
	Lifecycle *Lifecycle `json:"lifecycle,omitempty"`
}

// EditAction updates the title.
func EditAction(title string) Action {
	return Action{Kind: KindEdit, Title: &title}
}

// AssignAction adds assignees.
func AssignAction(who []cob.PublicKey) Action {
	return Action{Kind: KindAssign, Who: who}
}

// UnassignAction removes assignees; removing an absent assignee is a
// no-op (LWWSet.Remove on a key never inserted just records a removal
// at that clock, which has no observable effect).
func UnassignAction(who []cob.PublicKey) Action {
	return Action{Kind: KindUnassign, Who: who}
}

// TagAction adds and/or removes tags.
func TagAction(add, remove []Tag) Action {
	return Action{Kind: KindTag, Add: add, Remove: remove}
}

// ThreadAction delegates a comment-tree action to the issue's discussion.
func ThreadAction(action thread.Action) Action {
	return Action{Kind: KindThread, ThreadAction: &action}
}

// LifecycleAction opens or closes the issue.
func LifecycleAction(state Lifecycle) Action {
	return Action{Kind: KindLifecycle, Lifecycle: &state}
}

// Apply implements cob.Folder[Action].
func (i *Issue) Apply(ops []cob.Op[Action]) error {
	for _, op := range ops {
		if err := i.applyOne(op); err != nil {
			return err
		}
	}
	return nil
}

func (i *Issue) applyOne(op cob.Op[Action]) error {
	switch op.Action.Kind {
	case KindEdit:
		if op.Action.Title != nil {
			i.title = i.title.Set(crdt.NewMax(*op.Action.Title), op.Clock)
		}
	case KindAssign:
		for _, who := range op.Action.Who {
			i.assignees = i.assignees.Insert(who, op.Clock)
		}
	case KindUnassign:
		for _, who := range op.Action.Who {
			i.assignees = i.assignees.Remove(who, op.Clock)
		}
	case KindTag:
		for _, t := range op.Action.Add {
			i.tags = i.tags.Insert(t, op.Clock)
		}
		for _, t := range op.Action.Remove {
			i.tags = i.tags.Remove(t, op.Clock)
		}
	case KindThread:
		threadOp := cob.Op[thread.Action]{
			ID:        op.ID,
			Author:    op.Author,
			Clock:     op.Clock,
			Timestamp: op.Timestamp,
			Action:    *op.Action.ThreadAction,
		}
		return i.discussion.ApplyOne(threadOp)
	case KindLifecycle:
		if op.Action.Lifecycle != nil {
			i.lifecycle = i.lifecycle.Set(crdt.NewMaxBy(*op.Action.Lifecycle), op.Clock)
		}
	}
	return nil
}

func encodeActions(actions []Action) ([]byte, error) { return json.Marshal(actions) }

func decodeActions(data []byte) ([]Action, error) {
	var out []Action
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &cob.ParseError{Reason: err.Error()}
	}
	return out, nil
}
