package ops

import (
	"fmt"

	"github.com/scanboards/r-squared-core-indexer/crypto"
	"github.com/scanboards/r-squared-core-indexer/htlc"
	"github.com/scanboards/r-squared-core-indexer/types"
)

// HTLCCreate locks the sender's funds behind a hash commitment and a
// claim deadline.
//
// Field schema: 0=From, 1=To, 2=Denom, 3=Amount, 4=Algorithm,
// 5=PreimageLength, 6=ClaimPeriodSeconds.
type HTLCCreate struct {
	From               types.AccountName    `json:"from"`
	To                 types.AccountName    `json:"to"`
	Amount             types.Coin           `json:"amount"`
	Algorithm          crypto.HashAlgorithm `json:"algorithm"`
	Digest             []byte               `json:"digest"`
	PreimageLength     uint64               `json:"preimage_length"`
	ClaimPeriodSeconds uint64               `json:"claim_period_seconds"`
	Memo               string               `json:"memo,omitempty"`
}

// Type returns the operation tag
func (h *HTLCCreate) Type() types.OperationType {
	return types.OpHTLCCreate
}

// ValidateBasic performs stateless validation; network maxima are checked
// statefully by the engine at apply time
func (h *HTLCCreate) ValidateBasic() error {
	if h == nil {
		return fmt.Errorf("%w: htlc create is nil", types.ErrInvalidOperation)
	}
	if !h.From.IsValid() {
		return fmt.Errorf("%w: sender %q", types.ErrInvalidAccount, h.From)
	}
	if !h.To.IsValid() {
		return fmt.Errorf("%w: receiver %q", types.ErrInvalidAccount, h.To)
	}
	if err := h.Amount.ValidateBasic(); err != nil {
		return err
	}
	if !h.Amount.IsPositive() {
		return fmt.Errorf("%w: htlc amount must be positive", types.ErrInvalidCoin)
	}
	if err := h.Algorithm.CheckDigest(h.Digest); err != nil {
		return err
	}
	if h.ClaimPeriodSeconds == 0 {
		return fmt.Errorf("%w: claim period must be positive", types.ErrInvalidOperation)
	}
	if len(h.Memo) > MaxMemoLength {
		return fmt.Errorf("%w: memo exceeds %d bytes", types.ErrInvalidOperation, MaxMemoLength)
	}
	return nil
}

// RequiredAuthorities demands the sender's active authority
func (h *HTLCCreate) RequiredAuthorities() []types.RequiredAuthority {
	return []types.RequiredAuthority{{Account: h.From, Level: types.LevelActive}}
}

// Field exposes the structural field schema
func (h *HTLCCreate) Field(index int) (any, error) {
	switch index {
	case 0:
		return h.From, nil
	case 1:
		return h.To, nil
	case 2:
		return h.Amount.Denom, nil
	case 3:
		return h.Amount.Amount, nil
	case 4:
		return string(h.Algorithm), nil
	case 5:
		return h.PreimageLength, nil
	case 6:
		return h.ClaimPeriodSeconds, nil
	default:
		return nil, fmt.Errorf("%w: htlc create has no field %d", types.ErrUnknownField, index)
	}
}

// HTLCRedeem resolves an open contract with a preimage, crediting the
// contract's receiver.
//
// Field schema: 0=Redeemer, 1=ContractID.
type HTLCRedeem struct {
	Redeemer   types.AccountName `json:"redeemer"`
	ContractID htlc.ContractID   `json:"contract_id"`
	Preimage   []byte            `json:"preimage"`
}

// Type returns the operation tag
func (h *HTLCRedeem) Type() types.OperationType {
	return types.OpHTLCRedeem
}

// ValidateBasic performs stateless validation
func (h *HTLCRedeem) ValidateBasic() error {
	if h == nil {
		return fmt.Errorf("%w: htlc redeem is nil", types.ErrInvalidOperation)
	}
	if !h.Redeemer.IsValid() {
		return fmt.Errorf("%w: redeemer %q", types.ErrInvalidAccount, h.Redeemer)
	}
	if len(h.Preimage) == 0 {
		return fmt.Errorf("%w: empty preimage", types.ErrInvalidOperation)
	}
	return nil
}

// RequiredAuthorities demands the redeemer's active authority. Any account
// may redeem; the funds go to the contract's receiver regardless.
func (h *HTLCRedeem) RequiredAuthorities() []types.RequiredAuthority {
	return []types.RequiredAuthority{{Account: h.Redeemer, Level: types.LevelActive}}
}

// Field exposes the structural field schema
func (h *HTLCRedeem) Field(index int) (any, error) {
	switch index {
	case 0:
		return h.Redeemer, nil
	case 1:
		return uint64(h.ContractID), nil
	default:
		return nil, fmt.Errorf("%w: htlc redeem has no field %d", types.ErrUnknownField, index)
	}
}
