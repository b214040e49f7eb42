package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // HTLC compatibility requires RIPEMD-160
)

// HashAlgorithm tags the digest scheme committed to by an HTLC. The
// redeemer must supply the preimage for the exact algorithm the contract
// was created with; it is never inferred from the digest length.
type HashAlgorithm string

const (
	// HashSHA256 is the 256-bit scheme
	HashSHA256 HashAlgorithm = "SHA256"

	// HashRIPEMD160 is the plain 160-bit scheme
	HashRIPEMD160 HashAlgorithm = "RIPEMD160"

	// HashHash160 is RIPEMD-160 over SHA-256, the Bitcoin-compatible
	// 160-bit scheme used for cross-chain swap legs
	HashHash160 HashAlgorithm = "HASH160"
)

// IsValid reports whether the tag names a supported scheme
func (h HashAlgorithm) IsValid() bool {
	switch h {
	case HashSHA256, HashRIPEMD160, HashHash160:
		return true
	default:
		return false
	}
}

// Size returns the digest length in bytes
func (h HashAlgorithm) Size() (int, error) {
	switch h {
	case HashSHA256:
		return sha256.Size, nil
	case HashRIPEMD160, HashHash160:
		return ripemd160.Size, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownHashAlgorithm, h)
	}
}

// Digest computes the digest of a preimage under this scheme
func (h HashAlgorithm) Digest(preimage []byte) ([]byte, error) {
	switch h {
	case HashSHA256:
		sum := sha256.Sum256(preimage)
		return sum[:], nil
	case HashRIPEMD160:
		hasher := ripemd160.New()
		hasher.Write(preimage)
		return hasher.Sum(nil), nil
	case HashHash160:
		inner := sha256.Sum256(preimage)
		hasher := ripemd160.New()
		hasher.Write(inner[:])
		return hasher.Sum(nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHashAlgorithm, h)
	}
}

// CheckDigest validates that a digest has the length its algorithm demands
func (h HashAlgorithm) CheckDigest(digest []byte) error {
	size, err := h.Size()
	if err != nil {
		return err
	}
	if len(digest) != size {
		return fmt.Errorf("%w: %s expects %d bytes, got %d", ErrDigestSize, h, size, len(digest))
	}
	return nil
}

// Matches computes the preimage digest and compares it to the target in
// constant time.
func (h HashAlgorithm) Matches(preimage, target []byte) (bool, error) {
	if err := h.CheckDigest(target); err != nil {
		return false, err
	}
	sum, err := h.Digest(preimage)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(sum, target) == 1, nil
}
