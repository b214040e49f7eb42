package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// Checker composes the resolver and the restriction evaluator into the
// transaction-level authorization decision.
type Checker struct {
	dir      Directory
	resolver *Resolver
	chainID  string
}

// NewChecker creates a checker bound to a chain ID and directory snapshot
func NewChecker(dir Directory, chainID string) *Checker {
	return &Checker{
		dir:      dir,
		resolver: NewResolver(dir),
		chainID:  chainID,
	}
}

// Resolver exposes the underlying authority resolver
func (c *Checker) Resolver() *Resolver {
	return c.resolver
}

// Signers recovers the key set that validly signed the transaction's
// current content under this chain's domain separator.
func (c *Checker) Signers(tx *types.Transaction) (types.KeySet, error) {
	return tx.Signers(c.chainID)
}

// Authorizes decides whether the signer set authorizes every operation in
// the transaction. Each required (account, level) pair must be satisfied
// either natively via authority resolution or, for active-level
// requirements, via an applicable custom authority. Surplus signatures
// from unrelated keys never invalidate an otherwise sufficient set; only
// deficiency denies.
func (c *Checker) Authorizes(ctx context.Context, tx *types.Transaction, signers types.KeySet, now time.Time) error {
	if err := tx.ValidateBasic(); err != nil {
		return err
	}
	for i, op := range tx.Operations {
		if err := c.authorizeOperation(ctx, op, signers, now); err != nil {
			return fmt.Errorf("operation %d (%s): %w", i, op.Type(), err)
		}
	}
	return nil
}

func (c *Checker) authorizeOperation(ctx context.Context, op types.Operation, signers types.KeySet, now time.Time) error {
	for _, req := range op.RequiredAuthorities() {
		account, err := c.dir.GetAccount(ctx, req.Account)
		if err != nil {
			if isUnknownAccount(err) {
				return fmt.Errorf("%w: required account %s", types.ErrUnknownAccount, req.Account)
			}
			return err
		}

		auth := account.AuthorityAt(req.Level)
		ok, err := c.resolver.Satisfied(ctx, auth, signers, req.Level)
		if err != nil {
			return err
		}
		if ok {
			continue
		}

		// Custom authorities stand in for the active authority only;
		// owner-level requirements have no delegated path.
		if req.Level == types.LevelActive {
			granted, caErr := c.customAuthorized(ctx, req.Account, op, signers, now)
			if granted {
				continue
			}
			if caErr != nil {
				return caErr
			}
		}

		return fmt.Errorf("%w: %s authority of %s not met (threshold %d)",
			types.ErrInsufficientAuthority, req.Level, req.Account, auth.Threshold)
	}
	return nil
}

// customAuthorized scans the grantor's custom authorities for one that
// covers the operation and whose grantee authority the signer set
// satisfies. A grant that matched on type and window but failed its
// restrictions is reported so the caller sees the violated predicate
// rather than a bare threshold failure.
func (c *Checker) customAuthorized(
	ctx context.Context,
	grantor types.AccountName,
	op types.Operation,
	signers types.KeySet,
	now time.Time,
) (bool, error) {
	grants, err := c.dir.GetCustomAuthorities(ctx, grantor)
	if err != nil {
		if isUnknownAccount(err) || errors.Is(err, types.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var restrictionErr error
	for i := range grants {
		ca := &grants[i]
		if err := ca.ValidateBasic(); err != nil {
			return false, err
		}
		if err := ca.AppliesTo(op, now); err != nil {
			// Remember restriction failures of grants that were
			// otherwise in scope for this operation kind.
			if ca.Enabled && ca.InWindow(now) && ca.OperationType == op.Type() {
				restrictionErr = err
			}
			continue
		}
		ok, err := c.resolver.Satisfied(ctx, ca.Auth, signers, types.LevelActive)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, restrictionErr
}

// KeyReferences reports, for each input key, the accounts whose owner or
// active authority directly lists it. One result per input key, input
// order preserved, empty slice for unreferenced keys. This is a reverse
// index lookup, not a threshold computation.
func (c *Checker) KeyReferences(ctx context.Context, keys []types.KeyID) ([][]types.AccountName, error) {
	refs := make([][]types.AccountName, len(keys))
	for i, key := range keys {
		accounts, err := c.dir.AccountsByKey(ctx, key)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				accounts = nil
			} else {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
		}
		if accounts == nil {
			accounts = []types.AccountName{}
		}
		refs[i] = accounts
	}
	return refs, nil
}

func isUnknownAccount(err error) bool {
	return errors.Is(err, types.ErrUnknownAccount) || errors.Is(err, types.ErrNotFound)
}
