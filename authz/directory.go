// Package authz decides whether a signature set authorizes a transaction.
// It resolves weighted-threshold authorities over the account graph,
// evaluates delegated custom authorities with field-level restrictions, and
// recovers signer sets from transaction signatures.
package authz

import (
	"context"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// Directory supplies account and custom-authority records by identifier.
// It is a read-only snapshot of ledger state taken at validation time; the
// checker performs no I/O through it beyond lookups.
type Directory interface {
	// GetAccount returns the account record for a name, or
	// types.ErrUnknownAccount (possibly wrapped) when unregistered
	GetAccount(ctx context.Context, name types.AccountName) (*types.Account, error)

	// GetCustomAuthorities returns the custom authorities the named
	// account has granted, in grant order
	GetCustomAuthorities(ctx context.Context, grantor types.AccountName) ([]CustomAuthority, error)

	// AccountsByKey returns the accounts whose owner or active authority
	// directly lists the key, sorted by name. Unknown keys yield an
	// empty slice, not an error.
	AccountsByKey(ctx context.Context, key types.KeyID) ([]types.AccountName, error)
}
