// Package patch implements the Patch collaborative object: a proposed
// change to a repository, tracked as a sequence of revisions each with
// its own discussion, reviews and merges.
package patch

import (
	"encoding/json"
	"sort"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/thread"
	"github.com/brambleworks/cob/pkg/crdt"
)

// TypeName is the dotted object-type name patches are stored under (spec
// §6: "dotted strings, e.g. xyz.radicle.patch").
const TypeName = "xyz.radicle.patch"

// RevisionId identifies a revision by the EntryId of the action that
// created it. The object's first revision's id equals the ObjectId.
type RevisionId = cob.EntryId

// State is a patch's lifecycle state.
type State int

const (
	StateProposed State = iota
	StateDraft
	StateArchived
)

func (s State) String() string {
	switch s {
	case StateProposed:
		return "proposed"
	case StateDraft:
		return "draft"
	case StateArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// MergeTarget names which authority a patch's merge must satisfy.
// Delegates is the only variant today; spec.md's open question flags
// that future variants must dominate older ones under merge, which
// falls out for free from ordering them by increasing int value the way
// Delegates = 0 does here.
type MergeTarget int

const TargetDelegates MergeTarget = 0

func (t MergeTarget) String() string {
	switch t {
	case TargetDelegates:
		return "delegates"
	default:
		return "unknown"
	}
}

// Verdict is a reviewer's judgement. Reject dominates Accept under merge
// (spec §4.6); declaring Reject with the greater ordinal is what makes
// that fall out of LWWReg's existing tie-break-by-value rule with no
// bespoke override.
type Verdict int

const (
	VerdictAccept Verdict = iota
	VerdictReject
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccept:
		return "accept"
	case VerdictReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Tag is a free-form label attached to a patch.
type Tag string

// LineRange is a half-open integer range [Start, End).
type LineRange struct {
	Start int
	End   int
}

// CodeLocation pins an inline review comment to a specific line range of
// a blob at a commit. Its order is the tuple (blob, path, commit,
// lines.start, lines.end), reproduced from the original implementation's
// custom Ord so inline comments iterate deterministically regardless of
// insertion order.
type CodeLocation struct {
	Blob   cob.Oid
	Path   string
	Commit cob.Oid
	Lines  LineRange
}

func (a CodeLocation) Less(b CodeLocation) bool {
	if c := a.Blob.Compare(b.Blob); c != 0 {
		return c < 0
	}
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	if c := a.Commit.Compare(b.Commit); c != 0 {
		return c < 0
	}
	if a.Lines.Start != b.Lines.Start {
		return a.Lines.Start < b.Lines.Start
	}
	return a.Lines.End < b.Lines.End
}

// CodeComment is one inline comment on a revision's diff.
type CodeComment struct {
	Location CodeLocation
	Body     string
}

func (a CodeComment) Less(b CodeComment) bool {
	if a.Location.Less(b.Location) {
		return true
	}
	if b.Location.Less(a.Location) {
		return false
	}
	return a.Body < b.Body
}

// Merge records that a revision was merged by a node at a commit.
type Merge struct {
	Node      cob.PublicKey
	Commit    cob.Oid
	Timestamp int64
}

func (a Merge) Less(b Merge) bool {
	for i := range a.Node {
		if a.Node[i] != b.Node[i] {
			return a.Node[i] < b.Node[i]
		}
	}
	if c := a.Commit.Compare(b.Commit); c != 0 {
		return c < 0
	}
	return a.Timestamp < b.Timestamp
}

// Review is one reviewer's verdict, comment and inline annotations on a
// revision. Its on-wire JSON shape is a custom projection (see
// MarshalJSON) that exposes only derived fields and hides the internal
// LWW clocks, per spec.md's open question on Review serialization.
type Review struct {
	Verdict   crdt.LWWReg[crdt.Option[crdt.Max[Verdict]]]
	Comment   crdt.LWWReg[crdt.Option[crdt.Max[string]]]
	Inline    crdt.LWWSet[crdt.MaxBy[CodeComment]]
	Timestamp crdt.Max[int64]
}

func newReview(timestamp int64) Review {
	return Review{
		Verdict:   crdt.NewLWWReg(crdt.None[crdt.Max[Verdict]](), 0),
		Comment:   crdt.NewLWWReg(crdt.None[crdt.Max[string]](), 0),
		Inline:    crdt.NewLWWSet[crdt.MaxBy[CodeComment]](),
		Timestamp: crdt.NewMax(timestamp),
	}
}

// Merge implements crdt.Merger so Review can sit inside a GMap.
func (r Review) Merge(other Review) Review {
	return Review{
		Verdict:   r.Verdict.Merge(other.Verdict),
		Comment:   r.Comment.Merge(other.Comment),
		Inline:    r.Inline.Merge(other.Inline),
		Timestamp: r.Timestamp.Merge(other.Timestamp),
	}
}

// reviewWire is Review's on-wire projection: derived fields only, no
// internal LWW clocks. Inline comments are sorted by CodeComment's own
// order so the array is deterministic regardless of insertion order.
type reviewWire struct {
	Verdict   *Verdict      `json:"verdict,omitempty"`
	Comment   *string       `json:"comment,omitempty"`
	Inline    []CodeComment `json:"inline"`
	Timestamp int64         `json:"timestamp"`
}

// MarshalJSON projects Review onto its derived fields, hiding the
// internal LWWReg/LWWSet clocks.
func (r Review) MarshalJSON() ([]byte, error) {
	wire := reviewWire{Inline: r.Inline.Slice(), Timestamp: r.Timestamp.Value}
	if v, ok := r.Verdict.Get().Get(); ok {
		val := v.Value
		wire.Verdict = &val
	}
	if c, ok := r.Comment.Get().Get(); ok {
		val := c.Value
		wire.Comment = &val
	}
	sort.Slice(wire.Inline, func(i, j int) bool { return wire.Inline[i].Less(wire.Inline[j]) })
	return json.Marshal(wire)
}

// Revision is a single proposed (base, head) pair of code states, along
// with everything attached to it: discussion, reviews, and merges.
type Revision struct {
	Author      cob.PublicKey
	Description crdt.LWWReg[crdt.Max[string]]
	Base        cob.Oid
	Head        cob.Oid
	Discussion  thread.Thread
	Merges      crdt.LWWSet[crdt.MaxBy[Merge]]
	Reviews     crdt.GMap[cob.PublicKey, Review]
	Timestamp   int64
}

// Merge implements crdt.Merger so Revision can sit inside a Redactable
// inside a GMap.
func (r Revision) Merge(other Revision) Revision {
	return Revision{
		Author:      r.Author,
		Description: r.Description.Merge(other.Description),
		Base:        r.Base,
		Head:        r.Head,
		Discussion:  mergeThread(r.Discussion, other.Discussion),
		Merges:      r.Merges.Merge(other.Merges),
		Reviews:     r.Reviews.Merge(other.Reviews),
		Timestamp:   r.Timestamp,
	}
}

// mergeThread folds one thread's comment map into another; Thread itself
// has no Merge method (it is normally folded action-by-action, not
// value-merged), so this does the GMap/GSet merge a Revision merge needs
// when two replicas both folded the same revision's discussion
// independently.
func mergeThread(a, b thread.Thread) thread.Thread {
	return thread.Thread{
		Comments: a.Comments.Merge(b.Comments),
		Timeline: a.Timeline.Merge(b.Timeline),
	}
}

// Patch is the folded state of a Patch COB. Fields are unexported so the
// only way to mutate one is through Apply, which enforces the
// semilattice merges; read access goes through the helper methods in
// helpers.go.
type Patch struct {
	title       crdt.LWWReg[crdt.Max[string]]
	description crdt.LWWReg[crdt.Max[string]]
	state       crdt.LWWReg[crdt.Max[State]]
	target      crdt.LWWReg[crdt.Max[MergeTarget]]
	tags        crdt.LWWSet[Tag]
	revisions   crdt.GMap[RevisionId, crdt.Redactable[Revision]]
	timeline    crdt.GSet[timelineEntry]
}

type timelineEntry struct {
	Clock crdt.Lamport
	ID    cob.EntryId
}

// New returns an empty patch. A real patch only ever exists once its
// initial transaction has been folded (spec invariant 4: "an object has
// at least one revision at all times after creation"); New is the
// pre-fold zero value Store/Fold require as a starting point.
func New() *Patch {
	return &Patch{
		title:       crdt.NewLWWReg(crdt.NewMax(""), 0),
		description: crdt.NewLWWReg(crdt.NewMax(""), 0),
		state:       crdt.NewLWWReg(crdt.NewMax(StateProposed), 0),
		target:      crdt.NewLWWReg(crdt.NewMax(TargetDelegates), 0),
		tags:        crdt.NewLWWSet[Tag](),
		revisions:   crdt.NewGMap[RevisionId, crdt.Redactable[Revision]](),
		timeline:    crdt.NewGSet[timelineEntry](),
	}
}
