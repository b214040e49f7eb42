package htlc

import (
	"fmt"
	"time"
)

// Params are the network-wide HTLC tunables. They are committee-settable
// chain parameters, so they are passed explicitly into every creation
// check rather than read from ambient state.
type Params struct {
	// MaxPreimageLength bounds the per-contract maximum preimage length
	MaxPreimageLength uint64 `json:"max_preimage_length"`

	// MaxClaimPeriod bounds how far in the future a contract may expire
	MaxClaimPeriod time.Duration `json:"max_claim_period"`
}

// DefaultParams mirrors the commonly deployed chain configuration:
// preimages up to 1 KiB, claim periods up to four weeks.
func DefaultParams() Params {
	return Params{
		MaxPreimageLength: 1024,
		MaxClaimPeriod:    28 * 24 * time.Hour,
	}
}

// Validate rejects unusable parameter sets
func (p Params) Validate() error {
	if p.MaxPreimageLength == 0 {
		return fmt.Errorf("max preimage length cannot be zero")
	}
	if p.MaxClaimPeriod <= 0 {
		return fmt.Errorf("max claim period must be positive")
	}
	return nil
}
