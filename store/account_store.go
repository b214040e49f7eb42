package store

import (
	"context"
	"fmt"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// AccountStore is the typed store for account records, keyed by name.
type AccountStore struct {
	store *TypedStore[*types.Account]
}

// NewAccountStore creates an account store namespaced within the backing store
func NewAccountStore(backing BackingStore) *AccountStore {
	prefixed := NewPrefixStore(backing, []byte("acct/"))
	return &AccountStore{
		store: NewTypedStore[*types.Account](prefixed, NewJSONSerializer[*types.Account]()),
	}
}

// Get retrieves an account by name, types.ErrUnknownAccount when absent
func (as *AccountStore) Get(_ context.Context, name types.AccountName) (*types.Account, error) {
	if as == nil {
		return nil, ErrStoreNil
	}
	if !name.IsValid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidAccount, name)
	}
	account, err := as.store.Get([]byte(name))
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: %s", types.ErrUnknownAccount, name)
		}
		return nil, err
	}
	return account, nil
}

// Set stores an account after validation
func (as *AccountStore) Set(_ context.Context, account *types.Account) error {
	if as == nil {
		return ErrStoreNil
	}
	if account == nil {
		return ErrInvalidValue
	}
	if err := account.ValidateBasic(); err != nil {
		return err
	}
	return as.store.Set([]byte(account.Name), account)
}

// Has checks if an account exists
func (as *AccountStore) Has(_ context.Context, name types.AccountName) (bool, error) {
	if as == nil {
		return false, ErrStoreNil
	}
	if !name.IsValid() {
		return false, fmt.Errorf("%w: %q", types.ErrInvalidAccount, name)
	}
	return as.store.Has([]byte(name))
}
