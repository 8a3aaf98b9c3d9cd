package patch

import (
	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/thread"
	"github.com/brambleworks/cob/pkg/crdt"
)

// Apply implements cob.Folder[Action]: it folds a batch of ops — always
// everything committed together in one Transaction — into p.
func (p *Patch) Apply(ops []cob.Op[Action]) error {
	for _, op := range ops {
		if err := p.applyOne(op); err != nil {
			return err
		}
	}
	return nil
}

func (p *Patch) applyOne(op cob.Op[Action]) error {
	switch op.Action.Kind {
	case KindEdit:
		p.applyEdit(op)
	case KindTag:
		p.applyTag(op)
	case KindRevision:
		p.applyRevision(op)
	case KindRedact:
		return p.applyRedact(op)
	case KindReview:
		return p.applyReview(op)
	case KindMerge:
		return p.applyMerge(op)
	case KindThread:
		return p.applyThread(op)
	}
	return nil
}

func (p *Patch) applyEdit(op cob.Op[Action]) {
	a := op.Action
	if a.Title != nil {
		p.title = p.title.Set(crdt.NewMax(*a.Title), op.Clock)
	}
	if a.Description != nil {
		p.description = p.description.Set(crdt.NewMax(*a.Description), op.Clock)
	}
	if a.Target != nil {
		p.target = p.target.Set(crdt.NewMax(*a.Target), op.Clock)
	}
}

func (p *Patch) applyTag(op cob.Op[Action]) {
	for _, t := range op.Action.Add {
		p.tags = p.tags.Insert(t, op.Clock)
	}
	for _, t := range op.Action.Remove {
		p.tags = p.tags.Remove(t, op.Clock)
	}
}

// applyRevision inserts a new revision. GMap.Insert is already a no-op if
// the key exists in any state (Present or Redacted), which is exactly
// the revision-reinsertion law spec.md requires: replaying the same
// Revision action after it has been redacted must not un-redact it.
func (p *Patch) applyRevision(op cob.Op[Action]) {
	id := op.ID
	description := ""
	if op.Action.Description != nil {
		description = *op.Action.Description
	}
	rev := Revision{
		Author:      op.Author,
		Description: crdt.NewLWWReg(crdt.NewMax(description), op.Clock),
		Base:        op.Action.Base,
		Head:        op.Action.Head,
		Discussion:  thread.New(),
		Merges:      crdt.NewLWWSet[crdt.MaxBy[Merge]](),
		Reviews:     crdt.NewGMap[cob.PublicKey, Review](),
		Timestamp:   op.Timestamp,
	}
	p.revisions = p.revisions.Insert(id, crdt.Present(rev))
	p.timeline = p.timeline.Insert(timelineEntry{Clock: op.Clock, ID: id})
}

func (p *Patch) applyRedact(op cob.Op[Action]) error {
	if !p.revisions.Has(op.Action.Revision) {
		return &cob.MissingError{Entry: op.Action.Revision}
	}
	p.revisions = p.revisions.MergeAt(op.Action.Revision, crdt.Redacted[Revision]())
	return nil
}

// withPresentRevision loads the Present revision at id, applies fn to a
// local copy, and folds the result back through MergeAt so the change
// obeys Revision's own semilattice rather than overwriting the slot.
func (p *Patch) withPresentRevision(id RevisionId, fn func(Revision) Revision) error {
	slot, ok := p.revisions.Get(id)
	if !ok {
		return &cob.MissingError{Entry: id}
	}
	rev, present := slot.Get()
	if !present {
		return &cob.MissingError{Entry: id}
	}
	updated := fn(rev)
	p.revisions = p.revisions.MergeAt(id, crdt.Present(updated))
	return nil
}

func (p *Patch) applyReview(op cob.Op[Action]) error {
	return p.withPresentRevision(op.Action.Revision, func(rev Revision) Revision {
		review, ok := rev.Reviews.Get(op.Author)
		if !ok {
			review = newReview(op.Timestamp)
		}
		if op.Action.Verdict != nil {
			review.Verdict = review.Verdict.Set(crdt.Some(crdt.NewMax(*op.Action.Verdict)), op.Clock)
		}
		if op.Action.Comment != nil {
			review.Comment = review.Comment.Set(crdt.Some(crdt.NewMax(*op.Action.Comment)), op.Clock)
		}
		for _, c := range op.Action.Inline {
			review.Inline = review.Inline.Insert(crdt.NewMaxBy(c), op.Clock)
		}
		rev.Reviews = rev.Reviews.MergeAt(op.Author, review)
		return rev
	})
}

func (p *Patch) applyMerge(op cob.Op[Action]) error {
	return p.withPresentRevision(op.Action.Revision, func(rev Revision) Revision {
		m := Merge{Node: op.Author, Commit: op.Action.Commit, Timestamp: op.Timestamp}
		rev.Merges = rev.Merges.Insert(crdt.NewMaxBy(m), op.Clock)
		return rev
	})
}

func (p *Patch) applyThread(op cob.Op[Action]) error {
	var innerErr error
	err := p.withPresentRevision(op.Action.Revision, func(rev Revision) Revision {
		threadOp := cob.Op[thread.Action]{
			ID:        op.ID,
			Author:    op.Author,
			Clock:     op.Clock,
			Timestamp: op.Timestamp,
			Action:    *op.Action.ThreadAction,
		}
		if err := rev.Discussion.ApplyOne(threadOp); err != nil {
			innerErr = err
		}
		return rev
	})
	if innerErr != nil {
		return innerErr
	}
	return err
}
