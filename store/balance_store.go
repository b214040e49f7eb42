package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// BalanceStore is the typed store for per-denomination account balances.
// Keys have the form account/denom.
type BalanceStore struct {
	store *TypedStore[uint64]
}

// NewBalanceStore creates a balance store namespaced within the backing store
func NewBalanceStore(backing BackingStore) *BalanceStore {
	prefixed := NewPrefixStore(backing, []byte("bal/"))
	return &BalanceStore{
		store: NewTypedStore[uint64](prefixed, NewJSONSerializer[uint64]()),
	}
}

func balanceKey(account types.AccountName, denom string) []byte {
	return []byte(fmt.Sprintf("%s/%s", account, denom))
}

// Balance returns the account's balance for a denomination; an absent
// record is a zero balance.
func (bs *BalanceStore) Balance(_ context.Context, account types.AccountName, denom string) (uint64, error) {
	if bs == nil {
		return 0, ErrStoreNil
	}
	amount, err := bs.store.Get(balanceKey(account, denom))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return amount, nil
}

// Credit adds to an account's balance
func (bs *BalanceStore) Credit(ctx context.Context, account types.AccountName, amount types.Coin) error {
	if bs == nil {
		return ErrStoreNil
	}
	if err := amount.ValidateBasic(); err != nil {
		return err
	}
	balance, err := bs.Balance(ctx, account, amount.Denom)
	if err != nil {
		return err
	}
	if balance > ^uint64(0)-amount.Amount {
		return fmt.Errorf("%w: balance overflow for %s", types.ErrInvalidCoin, account)
	}
	return bs.store.Set(balanceKey(account, amount.Denom), balance+amount.Amount)
}

// Debit subtracts from an account's balance, failing with
// types.ErrInsufficientFunds when it would go negative.
func (bs *BalanceStore) Debit(ctx context.Context, account types.AccountName, amount types.Coin) error {
	if bs == nil {
		return ErrStoreNil
	}
	if err := amount.ValidateBasic(); err != nil {
		return err
	}
	balance, err := bs.Balance(ctx, account, amount.Denom)
	if err != nil {
		return err
	}
	if balance < amount.Amount {
		return fmt.Errorf("%w: %s has %d%s, needs %s",
			types.ErrInsufficientFunds, account, balance, amount.Denom, amount)
	}
	return bs.store.Set(balanceKey(account, amount.Denom), balance-amount.Amount)
}

// Balances lists an account's non-zero balances sorted by denomination
func (bs *BalanceStore) Balances(_ context.Context, account types.AccountName) (types.Coins, error) {
	if bs == nil {
		return nil, ErrStoreNil
	}
	prefix := []byte(fmt.Sprintf("%s/", account))
	var coins []types.Coin
	err := bs.store.Walk(func(key []byte, amount uint64) (bool, error) {
		if len(key) <= len(prefix) || string(key[:len(prefix)]) != string(prefix) {
			return true, nil
		}
		if amount == 0 {
			return true, nil
		}
		coins = append(coins, types.NewCoin(string(key[len(prefix):]), amount))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return types.NewCoins(coins...), nil
}
