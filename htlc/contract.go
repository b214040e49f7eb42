// Package htlc implements Hash/Time-Locked Contracts: one-way asset
// transfers guarded by a preimage commitment and an absolute deadline,
// the building block of trust-minimized atomic swaps.
package htlc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/scanboards/r-squared-core-indexer/crypto"
	"github.com/scanboards/r-squared-core-indexer/types"
)

var (
	// ErrUnknownContract indicates a lookup for a contract id that was
	// never created
	ErrUnknownContract = errors.New("unknown htlc contract")

	// ErrExpiredContract indicates the claim period elapsed; the locked
	// amount has been (or is being) returned to the sender. Distinct
	// from ErrWrongPreimage so a caller knows retrying is pointless.
	ErrExpiredContract = errors.New("htlc contract expired")

	// ErrContractClosed indicates a transition attempt on a contract
	// that already reached a terminal state
	ErrContractClosed = errors.New("htlc contract already closed")

	// ErrWrongPreimage indicates the supplied secret does not hash to
	// the committed digest. The contract stays open; the caller may
	// retry with the right secret.
	ErrWrongPreimage = errors.New("preimage does not match htlc digest")

	// ErrPreimageTooLong indicates the supplied secret exceeds the
	// contract's maximum preimage length
	ErrPreimageTooLong = errors.New("preimage exceeds maximum length")

	// ErrClaimPeriodTooLong indicates a creation claim period above the
	// network-configured maximum
	ErrClaimPeriodTooLong = errors.New("claim period exceeds network maximum")

	// ErrPreimageLengthTooLarge indicates a creation preimage bound
	// above the network-configured maximum
	ErrPreimageLengthTooLarge = errors.New("preimage length exceeds network maximum")
)

// ContractID identifies an HTLC contract within the ledger
type ContractID uint64

// String renders the id in the ledger's object notation
func (id ContractID) String() string {
	return fmt.Sprintf("1.16.%d", uint64(id))
}

// Status is the contract lifecycle state
type Status uint8

const (
	// StatusOpen: funds locked, awaiting preimage or expiration
	StatusOpen Status = iota

	// StatusRedeemed: preimage revealed in time, funds with the receiver
	StatusRedeemed

	// StatusExpired: deadline passed, funds returned to the sender
	StatusExpired
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusRedeemed:
		return "redeemed"
	case StatusExpired:
		return "expired"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Contract is the public record of an HTLC.
//
// INVARIANT: Status only ever moves Open→Redeemed or Open→Expired; a
// contract is never both. Once terminal, the record is immutable except
// that redemption publishes the revealed preimage.
type Contract struct {
	// ID is assigned at creation
	ID ContractID `json:"id"`

	// From is the sender whose funds are locked
	From types.AccountName `json:"from"`

	// To is the receiver who can claim with the preimage
	To types.AccountName `json:"to"`

	// Amount is the locked asset amount
	Amount types.Coin `json:"amount"`

	// Algorithm tags the digest scheme of the commitment
	Algorithm crypto.HashAlgorithm `json:"algorithm"`

	// Digest is the committed hash of the secret
	Digest []byte `json:"digest"`

	// PreimageLength is the maximum length of an acceptable preimage
	PreimageLength uint64 `json:"preimage_length"`

	// Created is the creation time; Expiration is absolute
	Created    time.Time `json:"created"`
	Expiration time.Time `json:"expiration"`

	// Status is the lifecycle state
	Status Status `json:"status"`

	// Preimage is published on redemption so a counterparty watching a
	// different contract with the same commitment can reuse the secret.
	// Empty until redeemed.
	Preimage []byte `json:"preimage,omitempty"`

	// Memo is optional creator-supplied metadata
	Memo string `json:"memo,omitempty"`
}

// ValidateBasic performs stateless validation
func (c *Contract) ValidateBasic() error {
	if c == nil {
		return fmt.Errorf("%w: contract is nil", types.ErrInvalidOperation)
	}
	if !c.From.IsValid() || !c.To.IsValid() {
		return fmt.Errorf("%w: htlc party names", types.ErrInvalidAccount)
	}
	if !c.Amount.IsPositive() {
		return fmt.Errorf("%w: htlc amount must be positive", types.ErrInvalidCoin)
	}
	if err := c.Amount.ValidateBasic(); err != nil {
		return err
	}
	if err := c.Algorithm.CheckDigest(c.Digest); err != nil {
		return err
	}
	if !c.Expiration.After(c.Created) {
		return fmt.Errorf("%w: htlc expires before creation", types.ErrInvalidOperation)
	}
	return nil
}

// Expired reports whether the deadline has passed at the given instant
func (c *Contract) Expired(now time.Time) bool {
	return !now.Before(c.Expiration)
}

// PreimageHex returns the published preimage as hex, the form counterparty
// tooling scans histories for
func (c *Contract) PreimageHex() string {
	return hex.EncodeToString(c.Preimage)
}
