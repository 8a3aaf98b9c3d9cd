package cob

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"sort"

	"github.com/brambleworks/cob/pkg/crdt"
)

// Entry is a single signed commit to an object's history. Its Payload is
// an opaque, type-specific encoding of the batch of actions pushed in one
// Transaction; the cob package never decodes it, only the concrete COB
// type does (see Store's decode function).
type Entry struct {
	ID        EntryId
	Parents   []EntryId
	Author    PublicKey
	Clock     crdt.Lamport
	Timestamp int64
	Message   string
	Payload   []byte
	Signature Signature
}

// signedHeader is exactly the bytes an entry's signature covers. Field
// order is fixed by the struct declaration, which is what makes
// json.Marshal deterministic here despite Go maps not being ordered
// (there are none in this struct).
type signedHeader struct {
	Parents   []EntryId
	Author    PublicKey
	Clock     crdt.Lamport
	Timestamp int64
	Message   string
	Payload   []byte
}

// SignedBytes returns the bytes that Sign/Verify operate over.
func (e Entry) SignedBytes() ([]byte, error) {
	h := signedHeader{
		Parents:   e.Parents,
		Author:    e.Author,
		Clock:     e.Clock,
		Timestamp: e.Timestamp,
		Message:   e.Message,
		Payload:   e.Payload,
	}
	return json.Marshal(h)
}

// computeID derives the entry's content-addressed id from its signed
// bytes and signature, and sets e.ID. It must be called after Signature
// is populated.
func (e *Entry) computeID() error {
	signed, err := e.SignedBytes()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.Write(signed)
	buf.Write(e.Signature[:])
	sum := sha256.Sum256(buf.Bytes())
	e.ID = EntryId(sum)
	return nil
}

// VerifySignature reports whether e.Signature is valid over e's signed
// bytes under e.Author.
func (e Entry) VerifySignature() bool {
	signed, err := e.SignedBytes()
	if err != nil {
		return false
	}
	return Verify(e.Author, signed, e.Signature)
}

// sign produces a fully-formed, content-addressed Entry: it signs the
// header fields and derives the id from the result. It does not touch
// storage.
func sign(signer Signer, parents []EntryId, clock crdt.Lamport, timestamp int64, message string, payload []byte) (Entry, error) {
	e := Entry{
		Parents:   append([]EntryId(nil), parents...),
		Author:    signer.PublicKey(),
		Clock:     clock,
		Timestamp: timestamp,
		Message:   message,
		Payload:   payload,
	}
	signed, err := e.SignedBytes()
	if err != nil {
		return Entry{}, err
	}
	e.Signature = signer.Sign(signed)
	if err := e.computeID(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Op is a single action folded into state, carrying the header shared by
// every action committed in the same Transaction: all actions pushed
// together in one transaction share one EntryId, one Lamport clock value
// and one author, because the clock advances once per commit rather than
// once per action.
type Op[A any] struct {
	ID        EntryId
	Author    PublicKey
	Clock     crdt.Lamport
	Timestamp int64
	Action    A
}

// sortEntries topologically sorts entries by the parent relation using
// Kahn's algorithm, breaking ties among entries that are simultaneously
// ready to apply by (Clock, ID) ascending so that folding is
// deterministic regardless of arrival order.
func sortEntries(entries []Entry) []Entry {
	byID := make(map[EntryId]Entry, len(entries))
	indegree := make(map[EntryId]int, len(entries))
	children := make(map[EntryId][]EntryId)

	for _, e := range entries {
		byID[e.ID] = e
		if _, ok := indegree[e.ID]; !ok {
			indegree[e.ID] = 0
		}
	}
	for _, e := range entries {
		for _, p := range e.Parents {
			if _, known := byID[p]; !known {
				// Parent not present in this batch: treat it as already
				// satisfied, the fold-level retry handles genuine gaps.
				continue
			}
			indegree[e.ID]++
			children[p] = append(children[p], e.ID)
		}
	}

	ready := make([]EntryId, 0)
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	less := func(a, b EntryId) bool {
		ea, eb := byID[a], byID[b]
		if ea.Clock != eb.Clock {
			return ea.Clock < eb.Clock
		}
		return bytes.Compare(a[:], b[:]) < 0
	}

	out := make([]Entry, 0, len(entries))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		id := ready[0]
		ready = ready[1:]
		out = append(out, byID[id])
		for _, c := range children[id] {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}
	return out
}
