package types

import (
	"fmt"
	"sort"
)

// Authority is a weighted threshold structure over keys and sub-accounts.
// It is satisfied when the summed weight of proven entries reaches the
// threshold. Account entries are proven recursively: the referenced
// account's own authority must itself be satisfied.
//
// INVARIANT: Map representation makes duplicate key or account entries
// unrepresentable; zero-weight entries are rejected by ValidateBasic.
type Authority struct {
	// Threshold is the minimum accumulated weight required
	Threshold uint64 `json:"threshold"`

	// KeyWeights maps public keys to their weight
	KeyWeights map[KeyID]uint64 `json:"key_weights,omitempty"`

	// AccountWeights maps account names to their delegation weight
	AccountWeights map[AccountName]uint64 `json:"account_weights,omitempty"`
}

// NewKeyAuthority creates an authority holding a single key
func NewKeyAuthority(key KeyID, threshold uint64) Authority {
	return Authority{
		Threshold:  threshold,
		KeyWeights: map[KeyID]uint64{key: 1},
	}
}

// NewAccountAuthority creates an authority delegating to a single account
func NewAccountAuthority(account AccountName, threshold uint64) Authority {
	return Authority{
		Threshold:      threshold,
		AccountWeights: map[AccountName]uint64{account: 1},
	}
}

// ValidateBasic rejects degenerate authority structures. A threshold that
// exceeds the total attainable weight is legal (the authority is simply
// unsatisfiable), but zero-weight entries, invalid keys or account names,
// and weight-sum overflow are configuration errors.
func (a Authority) ValidateBasic() error {
	var total uint64
	for key, weight := range a.KeyWeights {
		if !key.IsValid() {
			return fmt.Errorf("%w: invalid key entry %s", ErrMalformedAuthority, key)
		}
		if weight == 0 {
			return fmt.Errorf("%w: zero-weight key entry %s", ErrMalformedAuthority, key)
		}
		if total > ^uint64(0)-weight {
			return fmt.Errorf("%w: weight sum overflow", ErrMalformedAuthority)
		}
		total += weight
	}
	for acct, weight := range a.AccountWeights {
		if !acct.IsValid() {
			return fmt.Errorf("%w: invalid account entry %q", ErrMalformedAuthority, acct)
		}
		if weight == 0 {
			return fmt.Errorf("%w: zero-weight account entry %s", ErrMalformedAuthority, acct)
		}
		if total > ^uint64(0)-weight {
			return fmt.Errorf("%w: weight sum overflow", ErrMalformedAuthority)
		}
		total += weight
	}
	return nil
}

// HasKey checks if a public key is listed directly
func (a Authority) HasKey(key KeyID) bool {
	_, ok := a.KeyWeights[key]
	return ok
}

// KeyWeight returns the weight of a directly listed key
func (a Authority) KeyWeight(key KeyID) uint64 {
	return a.KeyWeights[key]
}

// HasAccount checks if an account is delegated to
func (a Authority) HasAccount(account AccountName) bool {
	_, ok := a.AccountWeights[account]
	return ok
}

// AccountWeight returns the delegation weight of an account
func (a Authority) AccountWeight(account AccountName) uint64 {
	return a.AccountWeights[account]
}

// TotalWeight returns the maximum attainable weight. Saturates instead of
// overflowing; ValidateBasic reports overflow as an error.
func (a Authority) TotalWeight() uint64 {
	var total uint64
	for _, weight := range a.KeyWeights {
		if total > ^uint64(0)-weight {
			return ^uint64(0)
		}
		total += weight
	}
	for _, weight := range a.AccountWeights {
		if total > ^uint64(0)-weight {
			return ^uint64(0)
		}
		total += weight
	}
	return total
}

// SortedKeys returns the directly listed keys in deterministic order
func (a Authority) SortedKeys() []KeyID {
	keys := make([]KeyID, 0, len(a.KeyWeights))
	for key := range a.KeyWeights {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// SortedAccounts returns the delegated accounts in deterministic order
func (a Authority) SortedAccounts() []AccountName {
	accounts := make([]AccountName, 0, len(a.AccountWeights))
	for acct := range a.AccountWeights {
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })
	return accounts
}
