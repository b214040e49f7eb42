package store

import (
	"context"
	"errors"
	"sort"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// KeyRefStore is the reverse index from public keys to the accounts whose
// owner or active authority directly lists them. It backs the
// key_references query and is maintained by the ledger on registration and
// authority updates.
type KeyRefStore struct {
	store *TypedStore[[]types.AccountName]
}

// NewKeyRefStore creates a key-reference store namespaced within the
// backing store
func NewKeyRefStore(backing BackingStore) *KeyRefStore {
	prefixed := NewPrefixStore(backing, []byte("keyref/"))
	return &KeyRefStore{
		store: NewTypedStore[[]types.AccountName](prefixed, NewJSONSerializer[[]types.AccountName]()),
	}
}

// Accounts returns the accounts referencing a key, sorted by name. An
// unreferenced key yields an empty slice.
func (ks *KeyRefStore) Accounts(_ context.Context, key types.KeyID) ([]types.AccountName, error) {
	if ks == nil {
		return nil, ErrStoreNil
	}
	accounts, err := ks.store.Get(key.Bytes())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []types.AccountName{}, nil
		}
		return nil, err
	}
	return accounts, nil
}

// Add records that an account references a key
func (ks *KeyRefStore) Add(ctx context.Context, key types.KeyID, account types.AccountName) error {
	if ks == nil {
		return ErrStoreNil
	}
	accounts, err := ks.Accounts(ctx, key)
	if err != nil {
		return err
	}
	for _, existing := range accounts {
		if existing == account {
			return nil
		}
	}
	accounts = append(accounts, account)
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })
	return ks.store.Set(key.Bytes(), accounts)
}

// Remove drops an account's reference to a key
func (ks *KeyRefStore) Remove(ctx context.Context, key types.KeyID, account types.AccountName) error {
	if ks == nil {
		return ErrStoreNil
	}
	accounts, err := ks.Accounts(ctx, key)
	if err != nil {
		return err
	}
	filtered := accounts[:0]
	for _, existing := range accounts {
		if existing != account {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == len(accounts) {
		return nil
	}
	if len(filtered) == 0 {
		return ks.store.Delete(key.Bytes())
	}
	return ks.store.Set(key.Bytes(), filtered)
}
