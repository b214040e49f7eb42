package crypto

import "errors"

var (
	// ErrInvalidPrivateKey indicates malformed private key bytes
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrInvalidPublicKey indicates malformed public key bytes
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidSignature indicates a signature that cannot be parsed or
	// recovered from
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnknownHashAlgorithm indicates an unsupported digest scheme tag
	ErrUnknownHashAlgorithm = errors.New("unknown hash algorithm")

	// ErrDigestSize indicates a digest whose length does not match its
	// declared algorithm
	ErrDigestSize = errors.New("digest size mismatch")
)
