package node

import (
	"bufio"
	"encoding/json"
	"net"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cobmetrics"
	"github.com/rs/zerolog"
)

// Handle is everything a COB store needs from the daemon: announcing and
// fetching refs, managing tracked repos and nodes, and querying
// connectivity. Sessions and shutdown are left for a future daemon
// release; callers that need them today talk to the socket directly.
type Handle interface {
	IsRunning() bool
	Connect(id cob.PublicKey, address string) error
	Seeds(repo cob.ObjectId) (Seeds, error)
	Fetch(repo cob.ObjectId, from cob.PublicKey) (FetchResult, error)
	TrackRepo(repo cob.ObjectId, scope string) (bool, error)
	UntrackRepo(repo cob.ObjectId) (bool, error)
	TrackNode(id cob.PublicKey, alias string) (bool, error)
	UntrackNode(id cob.PublicKey) (bool, error)
	AnnounceRefs(repo cob.ObjectId) error
	AnnounceInventory() error
	SyncInventory() (bool, error)
}

// Node is a Handle implementation that dials a Unix domain socket and
// speaks newline-delimited JSON with whatever daemon is listening there.
// It holds no persistent connection: every call dials fresh, matching the
// daemon's one-connection-per-command protocol.
type Node struct {
	socket string
	log    zerolog.Logger
}

// New returns a Node client talking to socket.
func New(socket string, log zerolog.Logger) *Node {
	return &Node{socket: socket, log: log.With().Str("component", "node").Logger()}
}

// IsRunning reports whether the daemon's socket currently accepts
// connections.
func (n *Node) IsRunning() bool {
	conn, err := net.Dial("unix", n.socket)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// lines dials the socket, writes cmd terminated by LF, and returns a
// scanner over the daemon's response lines.
func (n *Node) lines(cmd Command) (net.Conn, *bufio.Scanner, error) {
	conn, err := net.Dial("unix", n.socket)
	if err != nil {
		return nil, nil, &ConnectError{Err: err}
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		conn.Close()
		return nil, nil, &ConnectError{Err: err}
	}
	n.log.Debug().Str("cmd", cmd.Name.String()).Strs("args", cmd.Args).Msg("node command sent")
	return conn, bufio.NewScanner(conn), nil
}

// call sends cmd and decodes its first response line into T. The daemon
// may stream further lines for some commands; single-shot callers close
// the connection after the first line, which is enough to satisfy every
// Handle method below.
func call[T any](n *Node, cmd Command) (T, error) {
	timer := cobmetrics.NewTimer()
	defer timer.ObserveDuration(cobmetrics.NodeCallDuration.WithLabelValues(cmd.Name.String()))

	out, err := doCall[T](n, cmd)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cobmetrics.NodeCallsTotal.WithLabelValues(cmd.Name.String(), outcome).Inc()
	return out, err
}

func doCall[T any](n *Node, cmd Command) (T, error) {
	var zero T
	conn, scan, err := n.lines(cmd)
	if err != nil {
		return zero, err
	}
	defer conn.Close()

	if !scan.Scan() {
		if err := scan.Err(); err != nil {
			return zero, &ConnectError{Err: err}
		}
		return zero, &EmptyResponseError{Cmd: cmd.Name}
	}
	line := scan.Text()
	var out T
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		return zero, &InvalidJsonError{Cmd: cmd.Name, Response: line, Err: err}
	}
	return out, nil
}

// resultToUpdated converts a CommandResult to the (updated, error) shape
// most Handle methods return, treating a daemon-reported error as a Go
// error rather than a false boolean.
func resultToUpdated(result CommandResult, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	if !result.Okay {
		return false, &DaemonError{Reason: result.Reason}
	}
	return result.Updated, nil
}

func resultToError(result CommandResult, err error) error {
	if err != nil {
		return err
	}
	if !result.Okay {
		return &DaemonError{Reason: result.Reason}
	}
	return nil
}

// Connect asks the daemon to dial id at address.
func (n *Node) Connect(id cob.PublicKey, address string) error {
	result, err := call[CommandResult](n, NewCommand(Connect, id.String(), address))
	return resultToError(result, err)
}

// Seeds asks the daemon for every known seed of repo.
func (n *Node) Seeds(repo cob.ObjectId) (Seeds, error) {
	return call[Seeds](n, NewCommand(SeedsCmd, repo.String()))
}

// Fetch asks the daemon to fetch repo from node from.
func (n *Node) Fetch(repo cob.ObjectId, from cob.PublicKey) (FetchResult, error) {
	return call[FetchResult](n, NewCommand(Fetch, repo.String(), from.String()))
}

// TrackRepo tracks repo under scope, reporting whether tracking state
// changed.
func (n *Node) TrackRepo(repo cob.ObjectId, scope string) (bool, error) {
	return resultToUpdated(call[CommandResult](n, NewCommand(TrackRepo, repo.String(), scope)))
}

// UntrackRepo stops tracking repo.
func (n *Node) UntrackRepo(repo cob.ObjectId) (bool, error) {
	return resultToUpdated(call[CommandResult](n, NewCommand(UntrackRepo, repo.String())))
}

// TrackNode tracks id, optionally under alias.
func (n *Node) TrackNode(id cob.PublicKey, alias string) (bool, error) {
	args := []string{id.String()}
	if alias != "" {
		args = append(args, alias)
	}
	return resultToUpdated(call[CommandResult](n, NewCommand(TrackNode, args...)))
}

// UntrackNode stops tracking id.
func (n *Node) UntrackNode(id cob.PublicKey) (bool, error) {
	return resultToUpdated(call[CommandResult](n, NewCommand(UntrackNode, id.String())))
}

// AnnounceRefs announces repo's refs to the network.
func (n *Node) AnnounceRefs(repo cob.ObjectId) error {
	return resultToError(call[CommandResult](n, NewCommand(AnnounceRefs, repo.String())))
}

// AnnounceInventory announces the full local inventory.
func (n *Node) AnnounceInventory() error {
	return resultToError(call[CommandResult](n, NewCommand(AnnounceInventory)))
}

// SyncInventory triggers an inventory resync, reporting whether it changed.
func (n *Node) SyncInventory() (bool, error) {
	return resultToUpdated(call[CommandResult](n, NewCommand(SyncInventory)))
}

var _ Handle = (*Node)(nil)
