// Package cob implements the collaborative-object layer: a content-addressed,
// append-only, multi-writer log of signed operations, folded via the
// semilattice types in pkg/crdt into convergent state. Concrete object types
// (patch, issue, thread) are built on top of the generic Store and Fold
// machinery in this package; see pkg/cob/patch, pkg/cob/issue and
// pkg/cob/thread.
package cob

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// PublicKey identifies an author. It is a fixed-size array rather than a
// slice so it can be used as a map key and compared with ==.
type PublicKey [ed25519.PublicKeySize]byte

func (k PublicKey) String() string { return hex.EncodeToString(k[:]) }

func (k PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(k) {
		return errors.New("cob: public key must be 32 bytes")
	}
	copy(k[:], b)
	return nil
}

// Signature is an ed25519 signature over an entry's signed bytes.
type Signature [ed25519.SignatureSize]byte

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return err
	}
	if len(b) != len(s) {
		return errors.New("cob: signature must be 64 bytes")
	}
	copy(s[:], b)
	return nil
}

// EntryId is the content hash of an entry: the hash of its signed bytes
// together with its signature. It identifies a single commit to an
// object's history.
type EntryId [sha256.Size]byte

func (id EntryId) String() string { return hex.EncodeToString(id[:]) }

func (id EntryId) IsZero() bool { return id == EntryId{} }

func (id EntryId) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *EntryId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(id) {
		return errors.New("cob: entry id must be 32 bytes")
	}
	copy(id[:], b)
	return nil
}

// ObjectId is the id of the first entry in an object's history. Every
// later entry's history traces back to it.
type ObjectId = EntryId

// Oid is a git object id (a blob or commit sha), as referenced by patch
// revisions and code comments. It is kept distinct from EntryId even
// though both are content hashes, because Oid addresses the underlying
// git repository, not the COB log.
type Oid [20]byte

func (o Oid) String() string { return hex.EncodeToString(o[:]) }

func (o Oid) IsZero() bool { return o == Oid{} }

func (o Oid) Compare(other Oid) int {
	for i := range o {
		if o[i] != other[i] {
			if o[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (o Oid) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Oid) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(o) {
		return errors.New("cob: oid must be 20 bytes")
	}
	copy(o[:], b)
	return nil
}

// ParseOid parses a 40-character hex git object id.
func ParseOid(s string) (Oid, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Oid{}, err
	}
	if len(b) != 20 {
		return Oid{}, errors.New("cob: oid must be 20 bytes")
	}
	var o Oid
	copy(o[:], b)
	return o, nil
}

// ParseEntryId parses a 64-character hex entry or object id, as typed by
// an operator on a command line.
func ParseEntryId(s string) (EntryId, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return EntryId{}, err
	}
	if len(b) != len(EntryId{}) {
		return EntryId{}, errors.New("cob: entry id must be 32 bytes")
	}
	var id EntryId
	copy(id[:], b)
	return id, nil
}

// ParsePublicKey parses a 64-character hex public key, as typed by an
// operator on a command line.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, err
	}
	if len(b) != len(PublicKey{}) {
		return PublicKey{}, errors.New("cob: public key must be 32 bytes")
	}
	var k PublicKey
	copy(k[:], b)
	return k, nil
}

// Signer signs bytes on behalf of a single identity. It is the only
// cryptographic capability the cob package needs; see pkg/crypto for the
// concrete ed25519 implementation and pkg/cobtest for a deterministic test
// signer.
type Signer interface {
	PublicKey() PublicKey
	Sign(message []byte) Signature
}

// Verify reports whether sig is a valid ed25519 signature over message
// under pub.
func Verify(pub PublicKey, message []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, sig[:])
}
