package patch

import (
	"sort"

	"github.com/brambleworks/cob/pkg/cob"
)

// Title returns the patch's current title.
func (p *Patch) Title() string { return p.title.Get().Value }

// Description returns the patch's current description.
func (p *Patch) Description() string { return p.description.Get().Value }

// State returns the patch's current lifecycle state.
func (p *Patch) State() State { return p.state.Get().Value }

// Target returns the patch's current merge target.
func (p *Patch) Target() MergeTarget { return p.target.Get().Value }

// Tags returns the patch's currently-set tags.
func (p *Patch) Tags() []Tag { return p.tags.Slice() }

// IsProposed reports whether the patch is in the Proposed state.
func (p *Patch) IsProposed() bool { return p.State() == StateProposed }

// IsArchived reports whether the patch is in the Archived state.
func (p *Patch) IsArchived() bool { return p.State() == StateArchived }

func (p *Patch) sortedTimeline() []timelineEntry {
	entries := p.timeline.Slice()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Clock != entries[j].Clock {
			return entries[i].Clock < entries[j].Clock
		}
		return lessEntryId(entries[i].ID, entries[j].ID)
	})
	return entries
}

func lessEntryId(a, b cob.EntryId) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Revisions calls fn for every non-redacted revision, in timeline
// (clock, id) order — this is revisions() in spec.md, which "skips"
// redacted slots (see the open question on revisions.len() vs
// revisions().count()).
func (p *Patch) Revisions(fn func(id RevisionId, r Revision)) {
	for _, e := range p.sortedTimeline() {
		if slot, ok := p.revisions.Get(e.ID); ok {
			if r, present := slot.Get(); present {
				fn(e.ID, r)
			}
		}
	}
}

// RevisionCount returns the number of currently non-redacted revisions.
func (p *Patch) RevisionCount() int {
	n := 0
	p.Revisions(func(RevisionId, Revision) { n++ })
	return n
}

// Version is the number of non-redacted revisions minus one: a freshly
// created patch with its single root revision is at version 0.
func (p *Patch) Version() int {
	return p.RevisionCount() - 1
}

// Latest returns the most recently added non-redacted revision.
func (p *Patch) Latest() (RevisionId, Revision, bool) {
	var (
		id    RevisionId
		rev   Revision
		found bool
	)
	p.Revisions(func(rid RevisionId, r Revision) {
		id, rev, found = rid, r, true
	})
	return id, rev, found
}

// First returns the earliest revision in clock order, whether or not it
// is still present — used by Timestamp, which reports on the object's
// root regardless of later redaction.
func (p *Patch) First() (RevisionId, Revision, bool) {
	timeline := p.sortedTimeline()
	if len(timeline) == 0 {
		return RevisionId{}, Revision{}, false
	}
	first := timeline[0]
	slot, ok := p.revisions.Get(first.ID)
	if !ok {
		return RevisionId{}, Revision{}, false
	}
	rev, present := slot.Get()
	if !present {
		return first.ID, Revision{}, false
	}
	return first.ID, rev, true
}

// Timestamp is the timestamp of the first revision in clock order.
func (p *Patch) Timestamp() int64 {
	_, rev, ok := p.First()
	if !ok {
		return 0
	}
	return rev.Timestamp
}

// Author is the author of the patch's first revision.
func (p *Patch) Author() (cob.PublicKey, bool) {
	_, rev, ok := p.First()
	if !ok {
		return cob.PublicKey{}, false
	}
	return rev.Author, true
}

// Head is the head oid of the latest non-redacted revision.
func (p *Patch) Head() cob.Oid {
	_, rev, ok := p.Latest()
	if !ok {
		return cob.Oid{}
	}
	return rev.Head
}
