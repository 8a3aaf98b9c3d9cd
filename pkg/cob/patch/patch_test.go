package patch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/thread"
	"github.com/brambleworks/cob/pkg/cobtest"
	"github.com/brambleworks/cob/pkg/crdt"
)

func mustOid(t *testing.T, s string) cob.Oid {
	t.Helper()
	o, err := cob.ParseOid(s)
	require.NoError(t, err)
	return o
}

const (
	scenarioBase = "cb18e95ada2bb38aadd8e6cef0963ce37a87add3"
	scenarioHead = "e2a85016a458cd809c0ecee81f8c99613b0b0945"
)

// TestCreateAndFetch is scenario 1 from the Patch COB's end-to-end tests:
// create a patch and read it back.
func TestCreateAndFetch(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	patches := Open(cobtest.NewMemStore())
	base, head := mustOid(t, scenarioBase), mustOid(t, scenarioHead)

	id, state, clock, err := patches.Create("My first patch", "Blah blah blah.", TargetDelegates, base, head, 100, signer)
	require.NoError(t, err)
	require.Equal(t, uint64(1), uint64(clock))
	require.Equal(t, 0, state.Version())
	require.Equal(t, 1, state.RevisionCount())
	require.Equal(t, StateProposed, state.State())
	require.Equal(t, "My first patch", state.Title())
	require.Equal(t, "Blah blah blah.", state.Description())

	_, rev, ok := state.Latest()
	require.True(t, ok)
	require.Equal(t, head, rev.Head)

	reread, rereadClock, err := patches.Get(id)
	require.NoError(t, err)
	require.Equal(t, clock, rereadClock)
	require.Equal(t, head, reread.Head())
}

// TestComment is scenario 2: posting a top-level comment on the single
// revision's discussion.
func TestComment(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	patches := Open(cobtest.NewMemStore())
	base, head := mustOid(t, scenarioBase), mustOid(t, scenarioHead)

	id, _, _, err := patches.Create("t", "d", TargetDelegates, base, head, 100, signer)
	require.NoError(t, err)

	mut, err := patches.Mut(id, signer)
	require.NoError(t, err)
	rid, _, ok := mut.State().Latest()
	require.True(t, ok)

	require.NoError(t, mut.Comment(rid, "patch comment", nil, 101))

	_, rev, ok := mut.State().Latest()
	require.True(t, ok)
	var bodies []string
	rev.Discussion.Iter(func(_ thread.CommentId, c thread.Comment) {
		bodies = append(bodies, c.Body.Get().Value)
	})
	require.Equal(t, []string{"patch comment"}, bodies)
}

// TestMerge is scenario 3.
func TestMerge(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	patches := Open(cobtest.NewMemStore())
	base, head := mustOid(t, scenarioBase), mustOid(t, scenarioHead)

	id, _, _, err := patches.Create("t", "d", TargetDelegates, base, head, 100, signer)
	require.NoError(t, err)

	mut, err := patches.Mut(id, signer)
	require.NoError(t, err)
	rid, _, _ := mut.State().Latest()

	require.NoError(t, mut.Merge(rid, base, 101))

	_, rev, ok := mut.State().Latest()
	require.True(t, ok)
	merges := rev.Merges.Slice()
	require.Len(t, merges, 1)
	require.Equal(t, signer.PublicKey(), merges[0].Value.Node)
	require.Equal(t, base, merges[0].Value.Commit)
}

// TestReviewEditSequenceEndsAtRejectWhoops is scenario 4: three partial
// review edits by the same reviewer must converge on the last-set value
// of each field independently.
func TestReviewEditSequenceEndsAtRejectWhoops(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	patches := Open(cobtest.NewMemStore())
	base, head := mustOid(t, scenarioBase), mustOid(t, scenarioHead)

	id, _, _, err := patches.Create("t", "d", TargetDelegates, base, head, 100, signer)
	require.NoError(t, err)

	mut, err := patches.Mut(id, signer)
	require.NoError(t, err)
	rid, _, _ := mut.State().Latest()

	accept, lgtm := VerdictAccept, "LGTM"
	require.NoError(t, mut.Review(rid, &accept, &lgtm, nil, 101))

	reject := VerdictReject
	require.NoError(t, mut.Review(rid, &reject, nil, nil, 102))

	whoops := "Whoops!"
	require.NoError(t, mut.Review(rid, nil, &whoops, nil, 103))

	_, rev, ok := mut.State().Latest()
	require.True(t, ok)
	n := 0
	rev.Reviews.Iter(func(cob.PublicKey, Review) { n++ })
	require.Equal(t, 1, n)

	review, ok := rev.Reviews.Get(signer.PublicKey())
	require.True(t, ok)
	v, vok := review.Verdict.Get().Get()
	require.True(t, vok)
	require.Equal(t, VerdictReject, v.Value)
	c, cok := review.Comment.Get().Get()
	require.True(t, cok)
	require.Equal(t, "Whoops!", c.Value)
}

// TestRevisionRedactionBlocksFurtherReviewAndMerge is scenario 5.
func TestRevisionRedactionBlocksFurtherReviewAndMerge(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	patches := Open(cobtest.NewMemStore())
	base, head := mustOid(t, scenarioBase), mustOid(t, scenarioHead)

	id, _, _, err := patches.Create("t", "d", TargetDelegates, base, head, 100, signer)
	require.NoError(t, err)

	mut, err := patches.Mut(id, signer)
	require.NoError(t, err)
	rid, _, _ := mut.State().Latest()

	require.NoError(t, mut.Redact(rid, 101))
	_, _, ok := mut.State().Latest()
	require.False(t, ok, "revisions() must skip the redacted slot")

	accept := VerdictAccept
	err = mut.Review(rid, &accept, nil, nil, 102)
	require.Error(t, err)
	var missing *cob.MissingError
	require.ErrorAs(t, err, &missing)

	err = mut.Merge(rid, base, 103)
	require.Error(t, err)
	require.ErrorAs(t, err, &missing)
}

// TestUpdateAddsRevisionAndResetsDescription is scenario 6.
func TestUpdateAddsRevisionAndResetsDescription(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	patches := Open(cobtest.NewMemStore())
	base, head := mustOid(t, scenarioBase), mustOid(t, scenarioHead)

	id, _, _, err := patches.Create("t", "", TargetDelegates, base, head, 100, signer)
	require.NoError(t, err)

	mut, err := patches.Mut(id, signer)
	require.NoError(t, err)
	rev0, _, _ := mut.State().Latest()

	rev1head := mustOid(t, "00000000000000000000000000000000000000ff")
	require.NoError(t, mut.Update("I've made changes.", base, rev1head, 101))
	require.Equal(t, uint64(2), uint64(mut.Clock()))
	require.Equal(t, 2, mut.State().RevisionCount())
	require.Equal(t, 1, mut.State().Version())

	slot0, ok := mut.State().revisions.Get(rev0)
	require.True(t, ok)
	old, present := slot0.Get()
	require.True(t, present)
	require.Equal(t, "", old.Description.Get().Value)

	_, latest, ok := mut.State().Latest()
	require.True(t, ok)
	require.Equal(t, "I've made changes.", latest.Description.Get().Value)
}

// TestRevisionReinsertionLawMatchesEitherOrder checks apply([R, Redact(R),
// R]) == apply([R, R, Redact(R)]), both ending Redacted — GMap.Insert's
// existing "no-op if already present" rule is what makes this hold with
// no extra guard in applyRevision.
func TestRevisionReinsertionLawMatchesEitherOrder(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	base, head := mustOid(t, scenarioBase), mustOid(t, scenarioHead)

	op := func(id cob.EntryId, clock crdt.Lamport, a Action) cob.Op[Action] {
		return cob.Op[Action]{ID: id, Author: signer.PublicKey(), Clock: clock, Timestamp: 100, Action: a}
	}

	a1 := cob.EntryId{0x01}
	a2 := cob.EntryId{0x02}
	revisionAction := RevisionAction("d", base, head)
	redactAction := RedactAction(a1)

	orderA := New()
	require.NoError(t, orderA.Apply([]cob.Op[Action]{
		op(a1, 1, revisionAction),
		op(a2, 2, redactAction),
		op(a1, 3, revisionAction),
	}))

	orderB := New()
	require.NoError(t, orderB.Apply([]cob.Op[Action]{
		op(a1, 1, revisionAction),
		op(a1, 3, revisionAction),
		op(a2, 2, redactAction),
	}))

	slotA, okA := orderA.revisions.Get(a1)
	slotB, okB := orderB.revisions.Get(a1)
	require.True(t, okA)
	require.True(t, okB)
	require.True(t, slotA.IsRedacted())
	require.True(t, slotB.IsRedacted())
}

// TestVerdictMonotonicityRejectDominatesAtEqualClock checks that when two
// concurrently-authored reviews merge at the same clock, Reject wins
// regardless of which one is folded first — spec's "never Reject ->
// Accept under merge" property.
func TestVerdictMonotonicityRejectDominatesAtEqualClock(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	base, head := mustOid(t, scenarioBase), mustOid(t, scenarioHead)

	op := func(id cob.EntryId, clock crdt.Lamport, a Action) cob.Op[Action] {
		return cob.Op[Action]{ID: id, Author: signer.PublicKey(), Clock: clock, Timestamp: 100, Action: a}
	}

	root := cob.EntryId{0x01}
	acceptEntry := cob.EntryId{0x02}
	rejectEntry := cob.EntryId{0x03}
	revisionAction := RevisionAction("d", base, head)

	accept := VerdictAccept
	reject := VerdictReject
	acceptAction := ReviewAction(root, &accept, nil, nil)
	rejectAction := ReviewAction(root, &reject, nil, nil)

	acceptFirst := New()
	require.NoError(t, acceptFirst.Apply([]cob.Op[Action]{
		op(root, 1, revisionAction),
		op(acceptEntry, 2, acceptAction),
		op(rejectEntry, 2, rejectAction),
	}))

	rejectFirst := New()
	require.NoError(t, rejectFirst.Apply([]cob.Op[Action]{
		op(root, 1, revisionAction),
		op(rejectEntry, 2, rejectAction),
		op(acceptEntry, 2, acceptAction),
	}))

	for _, state := range []*Patch{acceptFirst, rejectFirst} {
		_, rev, ok := state.Latest()
		require.True(t, ok)
		review, ok := rev.Reviews.Get(signer.PublicKey())
		require.True(t, ok)
		v, vok := review.Verdict.Get().Get()
		require.True(t, vok)
		require.Equal(t, VerdictReject, v.Value)
	}
}
