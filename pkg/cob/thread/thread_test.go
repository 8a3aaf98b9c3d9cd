package thread

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/crdt"
)

func op(id byte, author byte, clock crdt.Lamport, a Action) cob.Op[Action] {
	var eid cob.EntryId
	eid[0] = id
	var pub cob.PublicKey
	pub[0] = author
	return cob.Op[Action]{ID: eid, Author: pub, Clock: clock, Action: a}
}

func TestCommentAndReply(t *testing.T) {
	th := New()

	root := op(1, 1, 1, CommentAction("hello", nil))
	require.NoError(t, th.ApplyOne(root))

	replyID := root.ID
	reply := op(2, 2, 2, CommentAction("hi back", &replyID))
	require.NoError(t, th.ApplyOne(reply))

	require.Equal(t, 2, th.Len())
	c, ok := th.Get(reply.ID)
	require.True(t, ok)
	require.Equal(t, root.ID, *c.ReplyTo)
}

func TestReplyToUnknownCommentIsMissing(t *testing.T) {
	th := New()
	var unknown cob.EntryId
	unknown[0] = 0xff

	reply := op(1, 1, 1, CommentAction("orphan", &unknown))
	err := th.ApplyOne(reply)
	require.Error(t, err)
	var missing *cob.MissingError
	require.ErrorAs(t, err, &missing)
}

func TestRedactKeepsRepliesVisible(t *testing.T) {
	th := New()
	root := op(1, 1, 1, CommentAction("hello", nil))
	require.NoError(t, th.ApplyOne(root))

	rootID := root.ID
	reply := op(2, 2, 2, CommentAction("hi back", &rootID))
	require.NoError(t, th.ApplyOne(reply))

	require.NoError(t, th.ApplyOne(op(3, 1, 3, RedactAction(root.ID))))

	_, ok := th.Get(root.ID)
	require.False(t, ok, "redacted comment no longer surfaces")
	_, ok = th.Get(reply.ID)
	require.True(t, ok, "reply survives its parent's redaction")
}

func TestEditUpdatesBodyViaLWW(t *testing.T) {
	th := New()
	root := op(1, 1, 1, CommentAction("v1", nil))
	require.NoError(t, th.ApplyOne(root))
	require.NoError(t, th.ApplyOne(op(2, 1, 2, EditAction(root.ID, "v2"))))

	c, ok := th.Get(root.ID)
	require.True(t, ok)
	require.Equal(t, "v2", c.Body.Get().Value)
}

func TestEditRedactedCommentIsNoOp(t *testing.T) {
	th := New()
	root := op(1, 1, 1, CommentAction("v1", nil))
	require.NoError(t, th.ApplyOne(root))
	require.NoError(t, th.ApplyOne(op(2, 1, 2, RedactAction(root.ID))))
	require.NoError(t, th.ApplyOne(op(3, 1, 3, EditAction(root.ID, "v2"))))

	_, ok := th.Get(root.ID)
	require.False(t, ok)
}

func TestIterVisitsInTimelineOrder(t *testing.T) {
	th := New()
	require.NoError(t, th.ApplyOne(op(2, 1, 2, CommentAction("second", nil))))
	require.NoError(t, th.ApplyOne(op(1, 1, 1, CommentAction("first", nil))))

	var bodies []string
	th.Iter(func(id CommentId, c Comment) {
		bodies = append(bodies, c.Body.Get().Value)
	})
	require.Equal(t, []string{"first", "second"}, bodies)
}
