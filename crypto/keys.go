package crypto

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// CompressedPubKeyLen is the length of a compressed secp256k1 public key
const CompressedPubKeyLen = 33

// RecoverableSignatureLen is the length of a compact recoverable ECDSA
// signature: one recovery-id header byte plus r and s (32 bytes each)
const RecoverableSignatureLen = 65

// Zeroize securely overwrites a byte slice with zeros. Used to clear
// private key material from memory.
//
// subtle.XORBytes cannot be optimized away by the compiler, and
// runtime.KeepAlive prevents the slice from being treated as a dead store.
func Zeroize(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.XORBytes(b, b, b)
	runtime.KeepAlive(b)
}

// PublicKey is a secp256k1 public key used for signer identification.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// ParsePublicKey parses compressed public key bytes
func ParsePublicKey(b []byte) (*PublicKey, error) {
	if len(b) != CompressedPubKeyLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, CompressedPubKeyLen, len(b))
	}
	key, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return &PublicKey{key: key}, nil
}

// Bytes returns the compressed public key bytes (33 bytes)
func (k *PublicKey) Bytes() []byte {
	return k.key.SerializeCompressed()
}

// Equals checks equality using constant-time comparison
func (k *PublicKey) Equals(other *PublicKey) bool {
	if other == nil {
		return false
	}
	return subtle.ConstantTimeCompare(k.Bytes(), other.Bytes()) == 1
}

// String returns the Base64-encoded compressed key
func (k *PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k.Bytes())
}

// PrivateKey is a secp256k1 private key producing recoverable signatures.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GeneratePrivateKey generates a fresh random private key
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes parses raw private key bytes (32 bytes)
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: expected 32 bytes, got %d", ErrInvalidPrivateKey, len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// Bytes returns the raw private key bytes.
// WARNING: Handle with care; Zeroize the copy when done.
func (k *PrivateKey) Bytes() []byte {
	return k.key.Serialize()
}

// PublicKey returns the corresponding public key
func (k *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: k.key.PubKey()}
}

// SignRecoverable signs a 32-byte digest and returns a 65-byte compact
// signature from which the public key can be recovered. Signing is
// deterministic (RFC 6979), so identical inputs produce identical
// signatures.
func (k *PrivateKey) SignRecoverable(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("%w: signing digest must be 32 bytes, got %d", ErrDigestSize, len(digest))
	}
	return dcrecdsa.SignCompact(k.key, digest, true), nil
}

// Zeroize overwrites the private key material. The key is unusable after.
func (k *PrivateKey) Zeroize() {
	k.key.Zero()
}

// RecoverPublicKey recovers the compressed public key that produced a
// compact recoverable signature over the given 32-byte digest.
//
// SECURITY: Recovery binds the signer to the exact digest. A signature
// taken over different bytes recovers to an unrelated key, which is what
// makes transaction tampering detectable.
func RecoverPublicKey(signature, digest []byte) ([]byte, error) {
	if len(signature) != RecoverableSignatureLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, RecoverableSignatureLen, len(signature))
	}
	if len(digest) != 32 {
		return nil, fmt.Errorf("%w: recovery digest must be 32 bytes, got %d", ErrDigestSize, len(digest))
	}
	pub, _, err := dcrecdsa.RecoverCompact(signature, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return pub.SerializeCompressed(), nil
}
