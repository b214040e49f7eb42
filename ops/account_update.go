package ops

import (
	"fmt"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// AccountUpdate replaces an account's authorities. Changing the owner
// authority is owner-level; changing only the active authority needs the
// current active authority.
//
// Field schema: 0=Account.
type AccountUpdate struct {
	Account   types.AccountName `json:"account"`
	NewOwner  *types.Authority  `json:"new_owner,omitempty"`
	NewActive *types.Authority  `json:"new_active,omitempty"`
}

// Type returns the operation tag
func (u *AccountUpdate) Type() types.OperationType {
	return types.OpAccountUpdate
}

// ValidateBasic performs stateless validation
func (u *AccountUpdate) ValidateBasic() error {
	if u == nil {
		return fmt.Errorf("%w: account update is nil", types.ErrInvalidOperation)
	}
	if !u.Account.IsValid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidAccount, u.Account)
	}
	if u.NewOwner == nil && u.NewActive == nil {
		return fmt.Errorf("%w: account update changes nothing", types.ErrInvalidOperation)
	}
	if u.NewOwner != nil {
		if err := u.NewOwner.ValidateBasic(); err != nil {
			return fmt.Errorf("new owner: %w", err)
		}
	}
	if u.NewActive != nil {
		if err := u.NewActive.ValidateBasic(); err != nil {
			return fmt.Errorf("new active: %w", err)
		}
	}
	return nil
}

// RequiredAuthorities demands owner authority when the owner authority
// itself is being replaced, active otherwise
func (u *AccountUpdate) RequiredAuthorities() []types.RequiredAuthority {
	level := types.LevelActive
	if u.NewOwner != nil {
		level = types.LevelOwner
	}
	return []types.RequiredAuthority{{Account: u.Account, Level: level}}
}

// Field exposes the structural field schema
func (u *AccountUpdate) Field(index int) (any, error) {
	switch index {
	case 0:
		return u.Account, nil
	default:
		return nil, fmt.Errorf("%w: account update has no field %d", types.ErrUnknownField, index)
	}
}
