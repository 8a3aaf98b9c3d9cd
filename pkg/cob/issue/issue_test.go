package issue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/thread"
	"github.com/brambleworks/cob/pkg/cobtest"
)

func TestCreateAndEdit(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	issues := Open(cobtest.NewMemStore())

	id, state, clock, err := issues.Create("Bug: crash on startup", 100, signer)
	require.NoError(t, err)
	require.Equal(t, uint64(1), uint64(clock))
	require.Equal(t, "Bug: crash on startup", state.Title())
	require.True(t, state.IsOpen())

	mut, err := issues.Mut(id, signer)
	require.NoError(t, err)
	require.NoError(t, mut.Edit("Bug: crash on startup (reproduced)", 101))
	require.Equal(t, "Bug: crash on startup (reproduced)", mut.State().Title())
}

func TestAssignUnassignAbsentIsNoOp(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	other := cobtest.Signer(t, 2)
	issues := Open(cobtest.NewMemStore())

	id, _, _, err := issues.Create("t", 100, signer)
	require.NoError(t, err)
	mut, err := issues.Mut(id, signer)
	require.NoError(t, err)

	require.NoError(t, mut.Assign([]cob.PublicKey{signer.PublicKey()}, 101))
	require.ElementsMatch(t, []cob.PublicKey{signer.PublicKey()}, mut.State().Assignees())

	// Unassigning someone never assigned must not error and must leave
	// the existing assignee untouched.
	require.NoError(t, mut.Unassign([]cob.PublicKey{other.PublicKey()}, 102))
	require.ElementsMatch(t, []cob.PublicKey{signer.PublicKey()}, mut.State().Assignees())

	require.NoError(t, mut.Unassign([]cob.PublicKey{signer.PublicKey()}, 103))
	require.Empty(t, mut.State().Assignees())
}

func TestCloseReopenLifecycle(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	issues := Open(cobtest.NewMemStore())

	id, _, _, err := issues.Create("t", 100, signer)
	require.NoError(t, err)
	mut, err := issues.Mut(id, signer)
	require.NoError(t, err)

	require.NoError(t, mut.Close("not a bug", 101))
	require.False(t, mut.State().IsOpen())
	require.Equal(t, "not a bug", mut.State().State().Reason)

	require.NoError(t, mut.Reopen(102))
	require.True(t, mut.State().IsOpen())
}

func TestCommentOnDiscussion(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	issues := Open(cobtest.NewMemStore())

	id, _, _, err := issues.Create("t", 100, signer)
	require.NoError(t, err)
	mut, err := issues.Mut(id, signer)
	require.NoError(t, err)

	require.NoError(t, mut.Comment("first comment", nil, 101))
	var bodies []string
	mut.State().Discussion().Iter(func(_ thread.CommentId, c thread.Comment) {
		bodies = append(bodies, c.Body.Get().Value)
	})
	require.Equal(t, []string{"first comment"}, bodies)
}

func TestFilterQueries(t *testing.T) {
	signer := cobtest.Signer(t, 1)
	issues := Open(cobtest.NewMemStore())

	openID, _, _, err := issues.Create("open one", 100, signer)
	require.NoError(t, err)

	closedID, _, _, err := issues.Create("closed one", 100, signer)
	require.NoError(t, err)
	mut, err := issues.Mut(closedID, signer)
	require.NoError(t, err)
	require.NoError(t, mut.Close("done", 101))

	open, err := issues.OpenIssues()
	require.NoError(t, err)
	require.Contains(t, open, openID)
	require.NotContains(t, open, closedID)

	assigned, err := issues.Mut(openID, signer)
	require.NoError(t, err)
	require.NoError(t, assigned.Assign([]cob.PublicKey{signer.PublicKey()}, 102))

	mine, err := issues.AssignedTo(signer.PublicKey())
	require.NoError(t, err)
	require.Contains(t, mine, openID)
}
