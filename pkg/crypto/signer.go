// Package crypto provides the one cryptographic capability the collaborative
// object layer needs: signing and verifying arbitrary byte strings on
// behalf of a long-lived identity. It deliberately stays far smaller than
// the teacher's pkg/security (which manages a full x509 certificate
// authority for mTLS between cluster nodes) because the COB layer's trust
// model is "every entry is signed by its author's key", not PKI.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/brambleworks/cob/pkg/cob"
)

// KeyPair is a cob.Signer backed by an ed25519 private key.
type KeyPair struct {
	priv ed25519.PrivateKey
	pub  cob.PublicKey
}

// Generate creates a fresh random key pair.
func Generate() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return fromKeys(pub, priv), nil
}

// FromSeed derives a deterministic key pair from a 32-byte seed. It exists
// for tests and fixtures (see pkg/cobtest) that need stable identities
// across runs.
func FromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return fromKeys(priv.Public().(ed25519.PublicKey), priv), nil
}

func fromKeys(pub ed25519.PublicKey, priv ed25519.PrivateKey) *KeyPair {
	var pk cob.PublicKey
	copy(pk[:], pub)
	return &KeyPair{priv: priv, pub: pk}
}

// PublicKey implements cob.Signer.
func (k *KeyPair) PublicKey() cob.PublicKey {
	return k.pub
}

// Sign implements cob.Signer.
func (k *KeyPair) Sign(message []byte) cob.Signature {
	var sig cob.Signature
	copy(sig[:], ed25519.Sign(k.priv, message))
	return sig
}

// Seed returns the 32-byte seed k was derived from, so a caller can
// persist an identity (e.g. cobctl's --key file) and reconstruct the
// same KeyPair later via FromSeed.
func (k *KeyPair) Seed() []byte {
	return k.priv.Seed()
}

// Verify reports whether sig is valid over message under pub. It is a
// thin re-export of cob.Verify so callers outside the cob package don't
// need to import it just to check a signature.
func Verify(pub cob.PublicKey, message []byte, sig cob.Signature) bool {
	return cob.Verify(pub, message, sig)
}
