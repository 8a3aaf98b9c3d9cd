// Package node implements the wire protocol and client for talking to a
// separately-run node daemon over a local byte stream: newline-delimited
// JSON, one Command per line from client to daemon, one or more
// CommandResult lines per line from daemon to client.
package node

import (
	"encoding/json"
	"fmt"

	"github.com/brambleworks/cob/pkg/cob"
)

// CommandName is a daemon command's kebab-case wire name.
type CommandName string

const (
	AnnounceRefs      CommandName = "announce-refs"
	AnnounceInventory CommandName = "announce-inventory"
	SyncInventory     CommandName = "sync-inventory"
	Connect           CommandName = "connect"
	SeedsCmd          CommandName = "seeds"
	Fetch             CommandName = "fetch"
	TrackRepo         CommandName = "track-repo"
	UntrackRepo       CommandName = "untrack-repo"
	TrackNode         CommandName = "track-node"
	UntrackNode       CommandName = "untrack-node"
	Status            CommandName = "status"
	Shutdown          CommandName = "shutdown"
)

// String satisfies fmt.Stringer; CommandName's underlying value is already
// its kebab-case wire form so this is just a type conversion.
func (c CommandName) String() string { return string(c) }

// Command is one client-to-daemon line.
type Command struct {
	Name CommandName `json:"cmd"`
	Args []string    `json:"args"`
}

// NewCommand builds a Command, defaulting a nil args slice to empty so it
// encodes as "[]" rather than "null".
func NewCommand(name CommandName, args ...string) Command {
	if args == nil {
		args = []string{}
	}
	return Command{Name: name, Args: args}
}

// CommandResult is one daemon-to-client line: either Okay (status "ok",
// Updated populated or not depending on the command) or an Error with a
// string reason.
type CommandResult struct {
	Okay    bool
	Updated bool
	Reason  string
}

type commandResultWire struct {
	Status  string `json:"status"`
	Updated *bool  `json:"updated,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// MarshalJSON produces {"status":"ok"}, {"status":"ok","updated":bool} or
// {"status":"error","reason":string} per the daemon wire format.
func (r CommandResult) MarshalJSON() ([]byte, error) {
	if !r.Okay {
		return json.Marshal(commandResultWire{Status: "error", Reason: r.Reason})
	}
	wire := commandResultWire{Status: "ok"}
	if r.Updated {
		wire.Updated = &r.Updated
	}
	return json.Marshal(wire)
}

// UnmarshalJSON accepts either wire shape and rejects any status other
// than "ok"/"error" as malformed.
func (r *CommandResult) UnmarshalJSON(data []byte) error {
	var wire commandResultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Status {
	case "ok":
		r.Okay = true
		r.Reason = ""
		r.Updated = wire.Updated != nil && *wire.Updated
	case "error":
		r.Okay = false
		r.Reason = wire.Reason
		r.Updated = false
	default:
		return fmt.Errorf("node: unrecognized status %q", wire.Status)
	}
	return nil
}

// Ok returns a successful result with no updated flag.
func Ok() CommandResult { return CommandResult{Okay: true} }

// OkUpdated returns a successful result carrying the updated flag.
func OkUpdated(updated bool) CommandResult { return CommandResult{Okay: true, Updated: updated} }

// Err returns a failed result carrying reason.
func Err(reason string) CommandResult { return CommandResult{Okay: false, Reason: reason} }

// SeedState is a seed's connectivity as seen by the daemon.
type SeedState string

const (
	SeedDisconnected SeedState = "disconnected"
	SeedFetching     SeedState = "fetching"
	SeedConnected    SeedState = "connected"
)

// Seed pairs a daemon-observed connectivity state with the node id it
// applies to, present only when State is SeedConnected (mirroring the
// adjacently-tagged Rust enum Disconnected | Fetching | Connected(NodeId)).
type Seed struct {
	State SeedState
	ID    cob.PublicKey
}

type seedWire struct {
	State SeedState      `json:"state"`
	ID    *cob.PublicKey `json:"id,omitempty"`
}

// MarshalJSON emits {"state": "...", "id": "..."} with id present only
// when the seed is connected.
func (s Seed) MarshalJSON() ([]byte, error) {
	wire := seedWire{State: s.State}
	if s.State == SeedConnected {
		id := s.ID
		wire.ID = &id
	}
	return json.Marshal(wire)
}

func (s *Seed) UnmarshalJSON(data []byte) error {
	var wire seedWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.State = wire.State
	if wire.ID != nil {
		s.ID = *wire.ID
	}
	return nil
}

// Seeds is the response to the seeds command: every seed the daemon knows
// about for a given repo.
type Seeds []Seed

// Connected returns every seed currently connected.
func (s Seeds) Connected() Seeds { return s.filter(SeedConnected) }

// Disconnected returns every seed currently disconnected.
func (s Seeds) Disconnected() Seeds { return s.filter(SeedDisconnected) }

// Fetching returns every seed currently fetching.
func (s Seeds) Fetching() Seeds { return s.filter(SeedFetching) }

// HasConnections reports whether any seed is connected.
func (s Seeds) HasConnections() bool { return len(s.Connected()) > 0 }

// IsConnected reports whether id is among the connected seeds.
func (s Seeds) IsConnected(id cob.PublicKey) bool { return s.has(SeedConnected, id) }

// IsDisconnected reports whether id is among the disconnected seeds.
func (s Seeds) IsDisconnected(id cob.PublicKey) bool { return s.has(SeedDisconnected, id) }

// IsFetching reports whether id is among the fetching seeds.
func (s Seeds) IsFetching(id cob.PublicKey) bool { return s.has(SeedFetching, id) }

func (s Seeds) filter(state SeedState) Seeds {
	out := make(Seeds, 0, len(s))
	for _, seed := range s {
		if seed.State == state {
			out = append(out, seed)
		}
	}
	return out
}

func (s Seeds) has(state SeedState, id cob.PublicKey) bool {
	for _, seed := range s {
		if seed.State == state && seed.ID == id {
			return true
		}
	}
	return false
}

// RefUpdate is a single (name, old, new) ref change produced by a fetch.
type RefUpdate struct {
	Name string  `json:"name"`
	Old  cob.Oid `json:"old"`
	New  cob.Oid `json:"new"`
}

// FetchResult is the response to the fetch command.
type FetchResult struct {
	Success bool
	Updated []RefUpdate
	Reason  string
}

type fetchResultWire struct {
	Status  string      `json:"status"`
	Updated []RefUpdate `json:"updated,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// MarshalJSON emits {"status":"success","updated":[...]} or
// {"status":"failed","reason":"..."}.
func (f FetchResult) MarshalJSON() ([]byte, error) {
	if !f.Success {
		return json.Marshal(fetchResultWire{Status: "failed", Reason: f.Reason})
	}
	updated := f.Updated
	if updated == nil {
		updated = []RefUpdate{}
	}
	return json.Marshal(fetchResultWire{Status: "success", Updated: updated})
}

func (f *FetchResult) UnmarshalJSON(data []byte) error {
	var wire fetchResultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Status {
	case "success":
		f.Success = true
		f.Updated = wire.Updated
		f.Reason = ""
	case "failed":
		f.Success = false
		f.Updated = nil
		f.Reason = wire.Reason
	default:
		return fmt.Errorf("node: unrecognized fetch status %q", wire.Status)
	}
	return nil
}
