package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scanboards/r-squared-core-indexer/authz"
	"github.com/scanboards/r-squared-core-indexer/htlc"
	"github.com/scanboards/r-squared-core-indexer/ops"
	"github.com/scanboards/r-squared-core-indexer/types"
)

// Receipt records what a transaction did once applied.
type Receipt struct {
	// Signers is the recovered key set the transaction was authorized under
	Signers types.KeySet

	// Contracts lists HTLC records touched by the transaction, creation
	// and redemption alike, in operation order
	Contracts []*htlc.Contract

	// Grants lists the ids of custom authorities the transaction created,
	// in operation order
	Grants []authz.CustomAuthorityID
}

// ApplyTransaction authorizes the transaction against current state and then
// applies its operations in order. Authorization is all-or-nothing across
// operations; a failed apply of operation i leaves operations 0..i-1
// committed, matching per-operation atomicity.
func (s *State) ApplyTransaction(ctx context.Context, now time.Time, tx *types.Transaction) (*Receipt, error) {
	if err := tx.ValidateBasic(); err != nil {
		return nil, err
	}
	if !tx.Expiration.After(now) {
		return nil, fmt.Errorf("%w: expired at %s", types.ErrInvalidTransaction, tx.Expiration)
	}

	signers, err := s.checker.Signers(tx)
	if err != nil {
		return nil, err
	}
	if err := s.checker.Authorizes(ctx, tx, signers, now); err != nil {
		return nil, err
	}

	receipt := &Receipt{Signers: signers}
	for i, op := range tx.Operations {
		if err := s.applyOperation(ctx, now, op, receipt); err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, op.Type(), err)
		}
	}
	return receipt, nil
}

func (s *State) applyOperation(ctx context.Context, now time.Time, op types.Operation, receipt *Receipt) error {
	switch o := op.(type) {
	case *ops.Transfer:
		return s.applyTransfer(ctx, o)
	case *ops.AccountUpdate:
		return s.applyAccountUpdate(ctx, o)
	case *ops.CustomAuthorityCreate:
		return s.applyCustomAuthorityCreate(ctx, o, receipt)
	case *ops.HTLCCreate:
		return s.applyHTLCCreate(ctx, now, o, receipt)
	case *ops.HTLCRedeem:
		return s.applyHTLCRedeem(ctx, now, o, receipt)
	default:
		return fmt.Errorf("%w: unhandled operation type %s", types.ErrInvalidOperation, op.Type())
	}
}

func (s *State) applyTransfer(ctx context.Context, op *ops.Transfer) error {
	exists, err := s.accounts.Has(ctx, op.To)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: recipient %s", types.ErrUnknownAccount, op.To)
	}
	if err := s.balances.Debit(ctx, op.From, op.Amount); err != nil {
		return err
	}
	if err := s.balances.Credit(ctx, op.To, op.Amount); err != nil {
		if refundErr := s.balances.Credit(ctx, op.From, op.Amount); refundErr != nil {
			return errors.Join(err, refundErr)
		}
		return err
	}
	s.logger.Info("transfer applied",
		"from", op.From, "to", op.To, "amount", op.Amount.String())
	return nil
}

// applyAccountUpdate swaps in the new authorities and reconciles the
// key-reference index against the change in directly listed keys.
func (s *State) applyAccountUpdate(ctx context.Context, op *ops.AccountUpdate) error {
	account, err := s.accounts.Get(ctx, op.Account)
	if err != nil {
		return err
	}

	before := account.DirectKeys()
	if op.NewOwner != nil {
		account.Owner = *op.NewOwner
	}
	if op.NewActive != nil {
		account.Active = *op.NewActive
	}
	if err := s.accounts.Set(ctx, account); err != nil {
		return err
	}

	after := types.NewKeySet(account.DirectKeys()...)
	for _, key := range before {
		if !after.Has(key) {
			if err := s.keyrefs.Remove(ctx, key, account.Name); err != nil {
				return err
			}
		}
	}
	for _, key := range account.DirectKeys() {
		if err := s.keyrefs.Add(ctx, key, account.Name); err != nil {
			return err
		}
	}

	s.logger.Info("account updated",
		"name", account.Name,
		"owner_changed", op.NewOwner != nil,
		"active_changed", op.NewActive != nil)
	return nil
}

func (s *State) applyCustomAuthorityCreate(ctx context.Context, op *ops.CustomAuthorityCreate, receipt *Receipt) error {
	id, err := s.grants.NextID(ctx)
	if err != nil {
		return err
	}
	grant := op.Grant(id)
	if err := s.grants.Set(ctx, grant); err != nil {
		return err
	}
	receipt.Grants = append(receipt.Grants, id)
	s.logger.Info("custom authority created",
		"grantor", grant.Account, "id", uint64(id),
		"operation_type", grant.OperationType.String())
	return nil
}

func (s *State) applyHTLCCreate(ctx context.Context, now time.Time, op *ops.HTLCCreate, receipt *Receipt) error {
	exists, err := s.accounts.Has(ctx, op.To)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: receiver %s", types.ErrUnknownAccount, op.To)
	}
	// Bound the seconds before converting: a uint64 large enough to wrap
	// int64 nanoseconds would otherwise produce a tiny positive duration
	// that slips under the engine's claim-period ceiling.
	maxSeconds := uint64(s.engine.Params().MaxClaimPeriod / time.Second)
	if op.ClaimPeriodSeconds > maxSeconds {
		return fmt.Errorf("%w: %d seconds exceeds maximum %d",
			htlc.ErrClaimPeriodTooLong, op.ClaimPeriodSeconds, maxSeconds)
	}
	contract, err := s.engine.Create(ctx, now,
		op.From, op.To, op.Amount,
		op.Algorithm, op.Digest,
		op.PreimageLength,
		time.Duration(op.ClaimPeriodSeconds)*time.Second,
		op.Memo,
	)
	if err != nil {
		return err
	}
	receipt.Contracts = append(receipt.Contracts, contract)
	return nil
}

func (s *State) applyHTLCRedeem(ctx context.Context, now time.Time, op *ops.HTLCRedeem, receipt *Receipt) error {
	contract, err := s.engine.Redeem(ctx, now, op.ContractID, op.Preimage)
	if err != nil {
		return err
	}
	receipt.Contracts = append(receipt.Contracts, contract)
	return nil
}
