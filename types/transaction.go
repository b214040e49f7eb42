package types

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scanboards/r-squared-core-indexer/crypto"
)

// MaxOperationsPerTransaction bounds the operation list.
// SECURITY: Prevents CPU exhaustion during authorization of a single
// maliciously large transaction.
const MaxOperationsPerTransaction = 64

// KeySet is a set of key identifiers, typically the keys recovered from a
// transaction's signatures.
type KeySet map[KeyID]struct{}

// NewKeySet builds a set from the given keys
func NewKeySet(keys ...KeyID) KeySet {
	set := make(KeySet, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

// Has reports membership
func (s KeySet) Has(key KeyID) bool {
	_, ok := s[key]
	return ok
}

// Add inserts a key and returns the set for chaining
func (s KeySet) Add(key KeyID) KeySet {
	s[key] = struct{}{}
	return s
}

// Equal reports whether two sets contain exactly the same keys
func (s KeySet) Equal(other KeySet) bool {
	if len(s) != len(other) {
		return false
	}
	for key := range s {
		if !other.Has(key) {
			return false
		}
	}
	return true
}

// Transaction is an ordered list of operations plus the signatures
// purporting to authorize them. Signatures are compact recoverable
// secp256k1 signatures over the chain-bound sign digest, so the signer set
// is recovered from the transaction itself rather than carried alongside.
type Transaction struct {
	// Operations are executed in order; the transaction is authorized
	// only if every one of them is
	Operations []Operation

	// Expiration is the absolute time after which the transaction is
	// no longer acceptable
	Expiration time.Time

	// Signatures are 65-byte compact recoverable signatures
	Signatures [][]byte
}

// NewTransaction creates an unsigned transaction over the given operations
func NewTransaction(expiration time.Time, ops ...Operation) *Transaction {
	opsCopy := make([]Operation, len(ops))
	copy(opsCopy, ops)
	return &Transaction{
		Operations: opsCopy,
		Expiration: expiration,
	}
}

// ValidateBasic performs stateless validation
func (tx *Transaction) ValidateBasic() error {
	if tx == nil {
		return fmt.Errorf("%w: transaction is nil", ErrInvalidTransaction)
	}
	if len(tx.Operations) == 0 {
		return fmt.Errorf("%w: transaction must have at least one operation", ErrInvalidTransaction)
	}
	if len(tx.Operations) > MaxOperationsPerTransaction {
		return fmt.Errorf("%w: %d operations exceeds limit %d",
			ErrInvalidTransaction, len(tx.Operations), MaxOperationsPerTransaction)
	}
	for i, op := range tx.Operations {
		if op == nil {
			return fmt.Errorf("%w: operation %d is nil", ErrInvalidTransaction, i)
		}
		if err := op.ValidateBasic(); err != nil {
			return fmt.Errorf("%w: operation %d: %v", ErrInvalidTransaction, i, err)
		}
	}
	for i, sig := range tx.Signatures {
		if len(sig) != crypto.RecoverableSignatureLen {
			return fmt.Errorf("%w: signature %d has %d bytes, want %d",
				ErrInvalidSignature, i, len(sig), crypto.RecoverableSignatureLen)
		}
	}
	return nil
}

// signDocOperation is an operation rendered for signing: its closed type
// tag plus the canonical JSON of its concrete payload.
type signDocOperation struct {
	Type uint8           `json:"type"`
	Data json.RawMessage `json:"data"`
}

// signDoc is the canonical document bound by every signature.
//
// INVARIANT: Identical transactions under the same chain ID serialize to
// byte-identical JSON. Operations are fixed structs (no maps), so
// encoding/json field ordering is deterministic.
type signDoc struct {
	ChainID    string             `json:"chain_id"`
	Expiration int64              `json:"expiration"`
	Operations []signDocOperation `json:"operations"`
}

// SignDigest computes the 32-byte digest every signature commits to. The
// chain ID acts as the domain separator, preventing cross-chain replay.
func (tx *Transaction) SignDigest(chainID string) ([]byte, error) {
	if chainID == "" {
		return nil, fmt.Errorf("%w: chain ID cannot be empty", ErrInvalidTransaction)
	}
	doc := signDoc{
		ChainID:    chainID,
		Expiration: tx.Expiration.UTC().Unix(),
		Operations: make([]signDocOperation, len(tx.Operations)),
	}
	for i, op := range tx.Operations {
		data, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("%w: operation %d: %v", ErrInvalidTransaction, i, err)
		}
		doc.Operations[i] = signDocOperation{
			Type: uint8(op.Type()),
			Data: data,
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	sum := sha256.Sum256(raw)
	return sum[:], nil
}

// Sign appends a signature over the chain-bound digest. Signing the same
// transaction with multiple keys accumulates signatures; surplus
// signatures never invalidate an otherwise sufficient set.
func (tx *Transaction) Sign(key *crypto.PrivateKey, chainID string) error {
	if key == nil {
		return fmt.Errorf("%w: private key is nil", ErrInvalidSignature)
	}
	digest, err := tx.SignDigest(chainID)
	if err != nil {
		return err
	}
	sig, err := key.SignRecoverable(digest)
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, sig)
	return nil
}

// Signers recovers the set of public keys that signed the transaction's
// current content. This is pure cryptographic recovery: a signature taken
// before the operation list was mutated recovers to an unrelated key, so a
// tampered transaction no longer reports its original signer.
func (tx *Transaction) Signers(chainID string) (KeySet, error) {
	digest, err := tx.SignDigest(chainID)
	if err != nil {
		return nil, err
	}
	signers := make(KeySet, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		pub, err := crypto.RecoverPublicKey(sig, digest)
		if err != nil {
			return nil, fmt.Errorf("%w: signature %d: %v", ErrInvalidSignature, i, err)
		}
		signers.Add(KeyIDFromBytes(pub))
	}
	return signers, nil
}
