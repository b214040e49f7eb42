// Package ops defines the concrete operation kinds the authorization core
// validates and the ledger applies. Each kind carries a stable structural
// field schema addressed by custom-authority restrictions; field indices
// are append-only and must never be reordered.
package ops

import (
	"fmt"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// MaxMemoLength bounds operation memos
const MaxMemoLength = 512

// Transfer moves an amount from one account to another.
//
// Field schema: 0=From, 1=To, 2=Denom, 3=Amount, 4=Memo.
type Transfer struct {
	From   types.AccountName `json:"from"`
	To     types.AccountName `json:"to"`
	Amount types.Coin        `json:"amount"`
	Memo   string            `json:"memo,omitempty"`
}

// Type returns the operation tag
func (t *Transfer) Type() types.OperationType {
	return types.OpTransfer
}

// ValidateBasic performs stateless validation
func (t *Transfer) ValidateBasic() error {
	if t == nil {
		return fmt.Errorf("%w: transfer is nil", types.ErrInvalidOperation)
	}
	if !t.From.IsValid() {
		return fmt.Errorf("%w: sender %q", types.ErrInvalidAccount, t.From)
	}
	if !t.To.IsValid() {
		return fmt.Errorf("%w: recipient %q", types.ErrInvalidAccount, t.To)
	}
	if t.From == t.To {
		return fmt.Errorf("%w: transfer to self", types.ErrInvalidOperation)
	}
	if err := t.Amount.ValidateBasic(); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: transfer amount must be positive", types.ErrInvalidCoin)
	}
	if len(t.Memo) > MaxMemoLength {
		return fmt.Errorf("%w: memo exceeds %d bytes", types.ErrInvalidOperation, MaxMemoLength)
	}
	return nil
}

// RequiredAuthorities demands the sender's active authority
func (t *Transfer) RequiredAuthorities() []types.RequiredAuthority {
	return []types.RequiredAuthority{{Account: t.From, Level: types.LevelActive}}
}

// Field exposes the structural field schema
func (t *Transfer) Field(index int) (any, error) {
	switch index {
	case 0:
		return t.From, nil
	case 1:
		return t.To, nil
	case 2:
		return t.Amount.Denom, nil
	case 3:
		return t.Amount.Amount, nil
	case 4:
		return t.Memo, nil
	default:
		return nil, fmt.Errorf("%w: transfer has no field %d", types.ErrUnknownField, index)
	}
}

// Transfer field indices, fixed for custom-authority compatibility
const (
	TransferFieldFrom = iota
	TransferFieldTo
	TransferFieldDenom
	TransferFieldAmount
	TransferFieldMemo
)
