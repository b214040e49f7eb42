package htlc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/log"

	"github.com/scanboards/r-squared-core-indexer/crypto"
	"github.com/scanboards/r-squared-core-indexer/types"
)

// BalanceBook is the slice of ledger state the engine needs: debiting the
// sender at creation and crediting the terminal party at resolution.
type BalanceBook interface {
	// Balance returns the account's balance for a denomination
	Balance(ctx context.Context, account types.AccountName, denom string) (uint64, error)

	// Credit adds to an account's balance
	Credit(ctx context.Context, account types.AccountName, amount types.Coin) error

	// Debit subtracts from an account's balance, failing with
	// types.ErrInsufficientFunds when it would go negative
	Debit(ctx context.Context, account types.AccountName, amount types.Coin) error
}

// ContractStore persists contract records and allocates identifiers.
type ContractStore interface {
	// Get returns a contract by id, or ErrUnknownContract (possibly
	// wrapped) when absent
	Get(ctx context.Context, id ContractID) (*Contract, error)

	// Set writes a contract record
	Set(ctx context.Context, contract *Contract) error

	// NextID allocates the next contract identifier
	NextID(ctx context.Context) (ContractID, error)

	// OpenContracts returns all contracts still in StatusOpen, in id order
	OpenContracts(ctx context.Context) ([]*Contract, error)
}

// Engine is the HTLC state machine. Every method validates completely
// before its first write, so a failed call leaves balances and contract
// records untouched; lazy expiration is the one transition a failed
// redemption may legitimately commit.
type Engine struct {
	params    Params
	balances  BalanceBook
	contracts ContractStore
	logger    log.Logger
}

// NewEngine creates an engine over the given ledger slices
func NewEngine(params Params, balances BalanceBook, contracts ContractStore, logger log.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("htlc params: %w", err)
	}
	if balances == nil || contracts == nil {
		return nil, fmt.Errorf("htlc engine requires balances and contracts")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{
		params:    params,
		balances:  balances,
		contracts: contracts,
		logger:    logger,
	}, nil
}

// Params returns the engine's network tunables
func (e *Engine) Params() Params {
	return e.params
}

// Create locks the sender's funds behind a commitment and returns the new
// contract in StatusOpen. Fails without side effects if the claim period
// or preimage bound exceeds the network maxima, the digest does not match
// the algorithm, or the sender's balance is insufficient.
func (e *Engine) Create(
	ctx context.Context,
	now time.Time,
	from, to types.AccountName,
	amount types.Coin,
	algorithm crypto.HashAlgorithm,
	digest []byte,
	preimageLength uint64,
	claimPeriod time.Duration,
	memo string,
) (*Contract, error) {
	if claimPeriod <= 0 {
		return nil, fmt.Errorf("%w: claim period must be positive", types.ErrInvalidOperation)
	}
	if claimPeriod > e.params.MaxClaimPeriod {
		return nil, fmt.Errorf("%w: %s > %s", ErrClaimPeriodTooLong, claimPeriod, e.params.MaxClaimPeriod)
	}
	if preimageLength > e.params.MaxPreimageLength {
		return nil, fmt.Errorf("%w: %d > %d", ErrPreimageLengthTooLarge, preimageLength, e.params.MaxPreimageLength)
	}

	id, err := e.contracts.NextID(ctx)
	if err != nil {
		return nil, err
	}

	contract := &Contract{
		ID:             id,
		From:           from,
		To:             to,
		Amount:         amount,
		Algorithm:      algorithm,
		Digest:         append([]byte(nil), digest...),
		PreimageLength: preimageLength,
		Created:        now,
		Expiration:     now.Add(claimPeriod),
		Status:         StatusOpen,
		Memo:           memo,
	}
	if err := contract.ValidateBasic(); err != nil {
		return nil, err
	}

	balance, err := e.balances.Balance(ctx, from, amount.Denom)
	if err != nil {
		return nil, err
	}
	if balance < amount.Amount {
		return nil, fmt.Errorf("%w: %s has %d%s, needs %s",
			types.ErrInsufficientFunds, from, balance, amount.Denom, amount)
	}

	if err := e.balances.Debit(ctx, from, amount); err != nil {
		return nil, err
	}
	if err := e.contracts.Set(ctx, contract); err != nil {
		// Undo the debit so a storage failure cannot strand funds.
		if refundErr := e.balances.Credit(ctx, from, amount); refundErr != nil {
			return nil, errors.Join(err, refundErr)
		}
		return nil, err
	}

	e.logger.Info("htlc created",
		"id", contract.ID.String(),
		"from", from, "to", to,
		"amount", amount.String(),
		"algorithm", algorithm,
		"expiration", contract.Expiration,
	)
	return contract, nil
}

// Redeem resolves a contract with a preimage. A redemption attempted at or
// after the deadline expires the contract (funds back to the sender) and
// fails with ErrExpiredContract; a wrong or oversized preimage fails
// without any state change, leaving the contract open. On success the full
// amount moves to the receiver and the preimage is published on the record.
func (e *Engine) Redeem(ctx context.Context, now time.Time, id ContractID, preimage []byte) (*Contract, error) {
	contract, err := e.contracts.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch contract.Status {
	case StatusRedeemed:
		return contract, fmt.Errorf("%w: %s already redeemed", ErrContractClosed, id)
	case StatusExpired:
		return contract, fmt.Errorf("%w: %s", ErrExpiredContract, id)
	}

	if contract.Expired(now) {
		if err := e.expire(ctx, contract); err != nil {
			return contract, err
		}
		return contract, fmt.Errorf("%w: %s (deadline %s)", ErrExpiredContract, id, contract.Expiration)
	}

	if uint64(len(preimage)) > contract.PreimageLength {
		return contract, fmt.Errorf("%w: %d > %d", ErrPreimageTooLong, len(preimage), contract.PreimageLength)
	}
	match, err := contract.Algorithm.Matches(preimage, contract.Digest)
	if err != nil {
		return contract, err
	}
	if !match {
		return contract, fmt.Errorf("%w: contract %s", ErrWrongPreimage, id)
	}

	contract.Status = StatusRedeemed
	contract.Preimage = append([]byte(nil), preimage...)
	if err := e.contracts.Set(ctx, contract); err != nil {
		return nil, err
	}
	if err := e.balances.Credit(ctx, contract.To, contract.Amount); err != nil {
		// Roll the record back so the transition stays atomic.
		contract.Status = StatusOpen
		contract.Preimage = nil
		if storeErr := e.contracts.Set(ctx, contract); storeErr != nil {
			return nil, errors.Join(err, storeErr)
		}
		return nil, err
	}

	e.logger.Info("htlc redeemed",
		"id", contract.ID.String(),
		"to", contract.To,
		"amount", contract.Amount.String(),
		"preimage", contract.PreimageHex(),
	)
	return contract, nil
}

// Status returns the contract's lifecycle state, applying the lazy
// expiration transition when the deadline has passed.
func (e *Engine) Status(ctx context.Context, now time.Time, id ContractID) (Status, error) {
	contract, err := e.contracts.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if contract.Status == StatusOpen && contract.Expired(now) {
		if err := e.expire(ctx, contract); err != nil {
			return contract.Status, err
		}
	}
	return contract.Status, nil
}

// Get returns the contract's public record without any transition
func (e *Engine) Get(ctx context.Context, id ContractID) (*Contract, error) {
	return e.contracts.Get(ctx, id)
}

// SweepExpired walks open contracts and expires those past their deadline,
// returning each one's locked amount to its sender. Returns the number of
// contracts transitioned.
func (e *Engine) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	open, err := e.contracts.OpenContracts(ctx)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, contract := range open {
		if !contract.Expired(now) {
			continue
		}
		if err := e.expire(ctx, contract); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// expire commits Open→Expired: record first, then the refund, undoing the
// record on a refund failure so the transition is all-or-nothing.
func (e *Engine) expire(ctx context.Context, contract *Contract) error {
	contract.Status = StatusExpired
	if err := e.contracts.Set(ctx, contract); err != nil {
		contract.Status = StatusOpen
		return err
	}
	if err := e.balances.Credit(ctx, contract.From, contract.Amount); err != nil {
		contract.Status = StatusOpen
		if storeErr := e.contracts.Set(ctx, contract); storeErr != nil {
			return errors.Join(err, storeErr)
		}
		return err
	}

	e.logger.Info("htlc expired",
		"id", contract.ID.String(),
		"from", contract.From,
		"amount", contract.Amount.String(),
	)
	return nil
}
