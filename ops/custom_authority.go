package ops

import (
	"fmt"
	"time"

	"github.com/scanboards/r-squared-core-indexer/authz"
	"github.com/scanboards/r-squared-core-indexer/types"
)

// CustomAuthorityCreate registers a delegated authority grant: the grantor
// allows the grantee authority to authorize one operation kind on its
// behalf, subject to restrictions and a validity window.
//
// Field schema: 0=Account.
type CustomAuthorityCreate struct {
	Account       types.AccountName   `json:"account"`
	Auth          types.Authority     `json:"auth"`
	OperationType types.OperationType `json:"operation_type"`
	ValidFrom     time.Time           `json:"valid_from,omitempty"`
	ValidTo       time.Time           `json:"valid_to"`
	Enabled       bool                `json:"enabled"`
	Restrictions  []authz.Restriction `json:"restrictions,omitempty"`
}

// Type returns the operation tag
func (c *CustomAuthorityCreate) Type() types.OperationType {
	return types.OpCustomAuthorityCreate
}

// ValidateBasic performs stateless validation by building the grant record
// the ledger would store
func (c *CustomAuthorityCreate) ValidateBasic() error {
	if c == nil {
		return fmt.Errorf("%w: custom authority create is nil", types.ErrInvalidOperation)
	}
	grant := c.Grant(0)
	return grant.ValidateBasic()
}

// RequiredAuthorities demands the grantor's active authority
func (c *CustomAuthorityCreate) RequiredAuthorities() []types.RequiredAuthority {
	return []types.RequiredAuthority{{Account: c.Account, Level: types.LevelActive}}
}

// Field exposes the structural field schema
func (c *CustomAuthorityCreate) Field(index int) (any, error) {
	switch index {
	case 0:
		return c.Account, nil
	default:
		return nil, fmt.Errorf("%w: custom authority create has no field %d", types.ErrUnknownField, index)
	}
}

// Grant materializes the custom authority record with an assigned id
func (c *CustomAuthorityCreate) Grant(id authz.CustomAuthorityID) authz.CustomAuthority {
	return authz.CustomAuthority{
		ID:            id,
		Account:       c.Account,
		Auth:          c.Auth,
		OperationType: c.OperationType,
		ValidFrom:     c.ValidFrom,
		ValidTo:       c.ValidTo,
		Enabled:       c.Enabled,
		Restrictions:  c.Restrictions,
	}
}
