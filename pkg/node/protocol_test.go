package node

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brambleworks/cob/pkg/cob"
)

func TestCommandNameKebabCase(t *testing.T) {
	require.Equal(t, "track-node", TrackNode.String())
	require.Equal(t, "announce-inventory", AnnounceInventory.String())
	require.Equal(t, "sync-inventory", SyncInventory.String())
}

func TestCommandRoundTrip(t *testing.T) {
	cmd := NewCommand(Fetch, "repo-id", "node-id")
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	require.JSONEq(t, `{"cmd":"fetch","args":["repo-id","node-id"]}`, string(data))

	var decoded Command
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, cmd, decoded)
}

func TestCommandResultRoundTrip(t *testing.T) {
	cases := []CommandResult{
		Ok(),
		OkUpdated(true),
		OkUpdated(false),
		Err("no such repo"),
	}
	for _, want := range cases {
		data, err := json.Marshal(want)
		require.NoError(t, err)

		var got CommandResult
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, want, got)
	}
}

func TestCommandResultWireShape(t *testing.T) {
	data, err := json.Marshal(Ok())
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"ok"}`, string(data))

	data, err = json.Marshal(OkUpdated(true))
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"ok","updated":true}`, string(data))

	data, err = json.Marshal(Err("boom"))
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"error","reason":"boom"}`, string(data))
}

func TestCommandResultUnknownStatusRejected(t *testing.T) {
	var result CommandResult
	err := json.Unmarshal([]byte(`{"status":"maybe"}`), &result)
	require.Error(t, err)
}

func TestSeedRoundTrip(t *testing.T) {
	var id cob.PublicKey
	id[0] = 0xAB

	connected := Seed{State: SeedConnected, ID: id}
	data, err := json.Marshal(connected)
	require.NoError(t, err)

	var decoded Seed
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, connected, decoded)

	disconnected := Seed{State: SeedDisconnected}
	data, err = json.Marshal(disconnected)
	require.NoError(t, err)
	require.JSONEq(t, `{"state":"disconnected"}`, string(data))
}

func TestSeedsQueries(t *testing.T) {
	var a, b, c cob.PublicKey
	a[0], b[0], c[0] = 1, 2, 3

	seeds := Seeds{
		{State: SeedConnected, ID: a},
		{State: SeedDisconnected, ID: b},
		{State: SeedFetching, ID: c},
	}

	require.True(t, seeds.HasConnections())
	require.True(t, seeds.IsConnected(a))
	require.True(t, seeds.IsDisconnected(b))
	require.True(t, seeds.IsFetching(c))
	require.False(t, seeds.IsConnected(b))
	require.Len(t, seeds.Connected(), 1)
}

func TestFetchResultRoundTrip(t *testing.T) {
	oid := cob.Oid{}
	success := FetchResult{Success: true, Updated: []RefUpdate{{Name: "refs/cobs/xyz.radicle.issue/abc", Old: oid, New: oid}}}
	data, err := json.Marshal(success)
	require.NoError(t, err)

	var decoded FetchResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, success, decoded)

	failed := FetchResult{Success: false, Reason: "no route to node"}
	data, err = json.Marshal(failed)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"failed","reason":"no route to node"}`, string(data))

	var decodedFailed FetchResult
	require.NoError(t, json.Unmarshal(data, &decodedFailed))
	require.Equal(t, failed, decodedFailed)
}

func TestFetchResultUnknownStatusRejected(t *testing.T) {
	var result FetchResult
	err := json.Unmarshal([]byte(`{"status":"pending"}`), &result)
	require.Error(t, err)
}
