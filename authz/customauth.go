package authz

import (
	"fmt"
	"time"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// CustomAuthorityID identifies a registered custom authority
type CustomAuthorityID uint64

// CustomAuthority is a delegated, restricted, time-bounded grant: the
// grantor account allows the grantee authority to authorize one operation
// kind on its behalf, subject to field-level restrictions.
type CustomAuthority struct {
	// ID is assigned at registration
	ID CustomAuthorityID `json:"id"`

	// Account is the grantor whose active authority the grant stands in for
	Account types.AccountName `json:"account"`

	// Auth is the grantee authority that must be satisfied by the signer
	// set for the grant to apply
	Auth types.Authority `json:"auth"`

	// OperationType scopes the grant to a single operation kind
	OperationType types.OperationType `json:"operation_type"`

	// ValidFrom and ValidTo bound the validity window. A zero ValidFrom
	// means valid from the beginning.
	ValidFrom time.Time `json:"valid_from,omitempty"`
	ValidTo   time.Time `json:"valid_to"`

	// Enabled gates the grant without deleting it
	Enabled bool `json:"enabled"`

	// Restrictions are the field predicates the operation must satisfy,
	// all of them (logical AND)
	Restrictions []Restriction `json:"restrictions,omitempty"`
}

// ValidateBasic performs stateless validation
func (ca *CustomAuthority) ValidateBasic() error {
	if ca == nil {
		return fmt.Errorf("%w: custom authority is nil", types.ErrMalformedAuthority)
	}
	if !ca.Account.IsValid() {
		return fmt.Errorf("%w: grantor %q", types.ErrInvalidAccount, ca.Account)
	}
	if !ca.OperationType.IsValid() {
		return fmt.Errorf("%w: custom authority for unknown operation type %d",
			types.ErrInvalidOperation, ca.OperationType)
	}
	if err := ca.Auth.ValidateBasic(); err != nil {
		return fmt.Errorf("grantee authority: %w", err)
	}
	if ca.ValidTo.IsZero() {
		return fmt.Errorf("%w: custom authority without expiration", types.ErrMalformedAuthority)
	}
	if !ca.ValidFrom.IsZero() && !ca.ValidFrom.Before(ca.ValidTo) {
		return fmt.Errorf("%w: empty validity window", types.ErrMalformedAuthority)
	}
	return nil
}

// InWindow reports whether the grant is time-valid at the given instant
func (ca *CustomAuthority) InWindow(now time.Time) bool {
	if !ca.ValidFrom.IsZero() && now.Before(ca.ValidFrom) {
		return false
	}
	return now.Before(ca.ValidTo)
}

// AppliesTo decides whether the grant covers a concrete operation at the
// given time: enabled, in window, matching type, all restrictions passing.
// Grantee authority satisfaction is checked separately by the caller.
func (ca *CustomAuthority) AppliesTo(op types.Operation, now time.Time) error {
	if !ca.Enabled {
		return fmt.Errorf("%w: custom authority %d is disabled", types.ErrRestrictionViolation, ca.ID)
	}
	if !ca.InWindow(now) {
		return fmt.Errorf("%w: custom authority %d outside validity window", types.ErrRestrictionViolation, ca.ID)
	}
	if op.Type() != ca.OperationType {
		return fmt.Errorf("%w: custom authority %d covers %s, not %s",
			types.ErrRestrictionViolation, ca.ID, ca.OperationType, op.Type())
	}
	return EvaluateRestrictions(ca.Restrictions, op)
}
