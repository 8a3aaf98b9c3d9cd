// Package thread implements the Thread collaborative object: a tree of
// comments linked by reply-to relations, with positive-only redaction.
// It is also embedded inside patch.Revision and issue.Issue as their
// discussion state, the same way the teacher's pkg/events event types are
// shared across multiple higher-level packages.
package thread

import (
	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/crdt"
)

// CommentId identifies a comment by the EntryId of the action that
// created it.
type CommentId = cob.EntryId

// Comment is one node in the discussion tree. ReplyTo is set once at
// creation and never changes — there is no action to re-parent a
// comment — so it needs no semilattice wrapper of its own.
type Comment struct {
	Author  cob.PublicKey
	Body    crdt.LWWReg[crdt.Max[string]]
	ReplyTo *CommentId
}

// Merge merges two views of the same comment (same author, same
// reply-to, possibly differing edited bodies).
func (c Comment) Merge(other Comment) Comment {
	replyTo := c.ReplyTo
	if replyTo == nil {
		replyTo = other.ReplyTo
	}
	return Comment{
		Author:  c.Author,
		Body:    c.Body.Merge(other.Body),
		ReplyTo: replyTo,
	}
}

// Thread is the folded state of a Thread COB: every comment ever posted,
// redactable, plus a timeline for deterministic iteration order.
type Thread struct {
	Comments crdt.GMap[CommentId, crdt.Redactable[Comment]]
	Timeline crdt.GSet[timelineEntry]
}

type timelineEntry struct {
	Clock crdt.Lamport
	ID    CommentId
}

// New returns an empty thread.
func New() Thread {
	return Thread{
		Comments: crdt.NewGMap[CommentId, crdt.Redactable[Comment]](),
		Timeline: crdt.NewGSet[timelineEntry](),
	}
}

// Action is a Thread COB action. Exactly one field group is meaningful,
// selected by Kind — this mirrors the wire format's externally-tagged
// enum (spec §6: one "type" field, camelCase) while staying a plain Go
// struct rather than an interface, which keeps JSON (de)serialization
// trivial for the concrete COB types that embed thread actions.
type Action struct {
	Kind    string     `json:"type"`
	Body    string     `json:"body,omitempty"`
	ReplyTo *CommentId `json:"replyTo,omitempty"`
	Comment CommentId  `json:"comment,omitempty"`
}

const (
	KindComment = "comment"
	KindRedact  = "redact"
	KindEdit    = "edit"
)

func CommentAction(body string, replyTo *CommentId) Action {
	return Action{Kind: KindComment, Body: body, ReplyTo: replyTo}
}

func RedactAction(comment CommentId) Action {
	return Action{Kind: KindRedact, Comment: comment}
}

func EditAction(comment CommentId, body string) Action {
	return Action{Kind: KindEdit, Comment: comment, Body: body}
}

// Apply folds a batch of thread ops into t.
func (t *Thread) Apply(ops []cob.Op[Action]) error {
	for _, op := range ops {
		if err := t.ApplyOne(op); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOne folds a single thread op into t. It is exported separately
// from Apply so patch.Revision and issue.Issue can delegate their
// Thread{revision, action} / Thread{action} cases without re-wrapping a
// one-element slice.
func (t *Thread) ApplyOne(op cob.Op[Action]) error {
	switch op.Action.Kind {
	case KindComment:
		id := op.ID
		if op.Action.ReplyTo != nil {
			if !t.Comments.Has(*op.Action.ReplyTo) {
				// Replying to an id never seen at all is the one real
				// causal-dependency gap; replying to a redacted comment
				// is allowed and just renders as "reply to deleted".
				return &cob.MissingError{Entry: *op.Action.ReplyTo}
			}
		}
		comment := Comment{
			Author:  op.Author,
			Body:    crdt.NewLWWReg(crdt.NewMax(op.Action.Body), op.Clock),
			ReplyTo: op.Action.ReplyTo,
		}
		t.Comments = t.Comments.Insert(id, crdt.Present(comment))
		t.Timeline = t.Timeline.Insert(timelineEntry{Clock: op.Clock, ID: id})

	case KindRedact:
		if !t.Comments.Has(op.Action.Comment) {
			return &cob.MissingError{Entry: op.Action.Comment}
		}
		t.Comments = t.Comments.MergeAt(op.Action.Comment, crdt.Redacted[Comment]())

	case KindEdit:
		existing, ok := t.Comments.Get(op.Action.Comment)
		if !ok {
			return &cob.MissingError{Entry: op.Action.Comment}
		}
		cur, present := existing.Get()
		if !present {
			// Editing a redacted comment is a silent no-op: the
			// tombstone already dominates any further Present merge.
			return nil
		}
		edited := Comment{
			Author:  cur.Author,
			Body:    cur.Body.Set(crdt.NewMax(op.Action.Body), op.Clock),
			ReplyTo: cur.ReplyTo,
		}
		t.Comments = t.Comments.MergeAt(op.Action.Comment, crdt.Present(edited))
	}
	return nil
}

// Len returns the number of comment slots, including redacted ones.
func (t Thread) Len() int {
	return t.Comments.Len()
}

// Get returns the comment at id, if present and not redacted.
func (t Thread) Get(id CommentId) (Comment, bool) {
	r, ok := t.Comments.Get(id)
	if !ok {
		return Comment{}, false
	}
	return r.Get()
}

// Iter visits every non-redacted comment in timeline order.
func (t Thread) Iter(fn func(id CommentId, c Comment)) {
	entries := t.Timeline.Slice()
	sortTimeline(entries)
	for _, e := range entries {
		if r, ok := t.Comments.Get(e.ID); ok {
			if c, present := r.Get(); present {
				fn(e.ID, c)
			}
		}
	}
}

func sortTimeline(entries []timelineEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && less(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func less(a, b timelineEntry) bool {
	if a.Clock != b.Clock {
		return a.Clock < b.Clock
	}
	return lessID(a.ID, b.ID)
}

func lessID(a, b CommentId) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
