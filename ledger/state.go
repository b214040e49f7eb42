// Package ledger binds the authorization core, the HTLC engine, and the
// typed stores into one stateful surface: accounts and balances, delegated
// authority grants, open contracts, and the key-reference reverse index.
// Transactions pass through authorization before any operation is applied.
package ledger

import (
	"context"
	"fmt"

	"cosmossdk.io/log"

	"github.com/scanboards/r-squared-core-indexer/authz"
	"github.com/scanboards/r-squared-core-indexer/htlc"
	"github.com/scanboards/r-squared-core-indexer/store"
	"github.com/scanboards/r-squared-core-indexer/types"
)

// State is the ledger. It implements authz.Directory so the checker reads
// accounts, grants, and key references straight from the same stores the
// apply path writes.
type State struct {
	chainID string

	backing  store.BackingStore
	accounts *store.AccountStore
	balances *store.BalanceStore
	grants   *store.CustomAuthorityStore
	htlcs    *store.HTLCStore
	keyrefs  *store.KeyRefStore

	engine  *htlc.Engine
	checker *authz.Checker
	logger  log.Logger
}

// NewState creates a ledger over a backing store
func NewState(backing store.BackingStore, chainID string, params htlc.Params, logger log.Logger) (*State, error) {
	if backing == nil {
		return nil, fmt.Errorf("%w: nil backing store", store.ErrStoreNil)
	}
	if chainID == "" {
		return nil, fmt.Errorf("%w: empty chain id", types.ErrInvalidTransaction)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	s := &State{
		chainID:  chainID,
		backing:  backing,
		accounts: store.NewAccountStore(backing),
		balances: store.NewBalanceStore(backing),
		grants:   store.NewCustomAuthorityStore(backing),
		htlcs:    store.NewHTLCStore(backing),
		keyrefs:  store.NewKeyRefStore(backing),
		logger:   logger.With("module", "ledger"),
	}

	engine, err := htlc.NewEngine(params, s.balances, s.htlcs, logger)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	s.checker = authz.NewChecker(s, chainID)
	return s, nil
}

// ChainID returns the domain separator transactions must be signed under
func (s *State) ChainID() string {
	return s.chainID
}

// Checker returns the authorization checker bound to this ledger
func (s *State) Checker() *authz.Checker {
	return s.checker
}

// Engine returns the HTLC engine bound to this ledger
func (s *State) Engine() *htlc.Engine {
	return s.engine
}

// GetAccount implements authz.Directory
func (s *State) GetAccount(ctx context.Context, name types.AccountName) (*types.Account, error) {
	return s.accounts.Get(ctx, name)
}

// GetCustomAuthorities implements authz.Directory
func (s *State) GetCustomAuthorities(ctx context.Context, grantor types.AccountName) ([]authz.CustomAuthority, error) {
	return s.grants.ByGrantor(ctx, grantor)
}

// AccountsByKey implements authz.Directory
func (s *State) AccountsByKey(ctx context.Context, key types.KeyID) ([]types.AccountName, error) {
	return s.keyrefs.Accounts(ctx, key)
}

// RegisterAccount writes a new account record and indexes its direct keys.
// Names are first come, first served.
func (s *State) RegisterAccount(ctx context.Context, account *types.Account) error {
	if err := account.ValidateBasic(); err != nil {
		return err
	}
	exists, err := s.accounts.Has(ctx, account.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s already registered", types.ErrInvalidAccount, account.Name)
	}
	if err := s.accounts.Set(ctx, account); err != nil {
		return err
	}
	for _, key := range account.DirectKeys() {
		if err := s.keyrefs.Add(ctx, key, account.Name); err != nil {
			return err
		}
	}
	s.logger.Info("account registered", "name", account.Name, "registrar", account.Registrar)
	return nil
}

// Fund credits an account outside any transaction. Genesis and test setup
// only; regular value movement goes through transfer operations.
func (s *State) Fund(ctx context.Context, account types.AccountName, amount types.Coin) error {
	exists, err := s.accounts.Has(ctx, account)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", types.ErrUnknownAccount, account)
	}
	return s.balances.Credit(ctx, account, amount)
}

// Balances returns all of an account's balances, sorted by denomination
func (s *State) Balances(ctx context.Context, account types.AccountName) (types.Coins, error) {
	exists, err := s.accounts.Has(ctx, account)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownAccount, account)
	}
	return s.balances.Balances(ctx, account)
}

// Balance returns an account's balance in one denomination, zero if unset
func (s *State) Balance(ctx context.Context, account types.AccountName, denom string) (uint64, error) {
	return s.balances.Balance(ctx, account, denom)
}

// KeyReferences reports, per input key, the accounts directly listing it
func (s *State) KeyReferences(ctx context.Context, keys []types.KeyID) ([][]types.AccountName, error) {
	return s.checker.KeyReferences(ctx, keys)
}

// CustomAuthorities returns the grants issued by an account, in grant order
func (s *State) CustomAuthorities(ctx context.Context, grantor types.AccountName) ([]authz.CustomAuthority, error) {
	return s.grants.ByGrantor(ctx, grantor)
}

// Commit flushes buffered writes to the backing store
func (s *State) Commit() error {
	return s.backing.Flush()
}
