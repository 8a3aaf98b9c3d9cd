package patch

import (
	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/thread"
)

// Action kinds, externally tagged on the wire by the "type" field (spec
// §6: "JSON with an externally-tagged type field in camelCase").
const (
	KindEdit     = "edit"
	KindTag      = "tag"
	KindRevision = "revision"
	KindRedact   = "redact"
	KindReview   = "review"
	KindMerge    = "merge"
	KindThread   = "thread"
)

// Action is a Patch COB action. Only the fields relevant to Kind are
// meaningful; unused pointer fields stay nil so JSON omits them.
type Action struct {
	Kind string `json:"type"`

	// edit
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Target      *MergeTarget `json:"target,omitempty"`

	// tag
	Add    []Tag `json:"add,omitempty"`
	Remove []Tag `json:"remove,omitempty"`

	// revision (also uses Description above)
	Base cob.Oid `json:"base,omitempty"`
	Head cob.Oid `json:"head,omitempty"`

	// redact / review / merge / thread
	Revision RevisionId `json:"revision,omitempty"`

	// review
	Verdict *Verdict      `json:"verdict,omitempty"`
	Comment *string       `json:"comment,omitempty"`
	Inline  []CodeComment `json:"inline,omitempty"`

	// merge
	Commit cob.Oid `json:"commit,omitempty"`

	// thread
	ThreadAction *thread.Action `json:"threadAction,omitempty"`
}

// EditAction updates title, description and/or target. A nil field is
// left untouched.
func EditAction(title, description *string, target *MergeTarget) Action {
	return Action{Kind: KindEdit, Title: title, Description: description, Target: target}
}

// TagAction adds and/or removes tags.
func TagAction(add, remove []Tag) Action {
	return Action{Kind: KindTag, Add: add, Remove: remove}
}

// RevisionAction proposes a new (base, head) revision.
func RevisionAction(description string, base, head cob.Oid) Action {
	return Action{Kind: KindRevision, Description: &description, Base: base, Head: head}
}

// RedactAction tombstones a revision.
func RedactAction(revision RevisionId) Action {
	return Action{Kind: KindRedact, Revision: revision}
}

// ReviewAction posts a (partial) review against a revision. A nil
// verdict or comment leaves that component of the reviewer's Review
// untouched rather than clearing it.
func ReviewAction(revision RevisionId, verdict *Verdict, comment *string, inline []CodeComment) Action {
	return Action{Kind: KindReview, Revision: revision, Verdict: verdict, Comment: comment, Inline: inline}
}

// MergeAction records that a revision was merged at commit.
func MergeAction(revision RevisionId, commit cob.Oid) Action {
	return Action{Kind: KindMerge, Revision: revision, Commit: commit}
}

// ThreadAction delegates a comment-tree action to a revision's
// discussion.
func ThreadAction(revision RevisionId, action thread.Action) Action {
	return Action{Kind: KindThread, Revision: revision, ThreadAction: &action}
}
