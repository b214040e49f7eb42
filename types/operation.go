package types

import "fmt"

// OperationType is the closed tag identifying an operation kind. Custom
// authorities are scoped to exactly one tag, and restriction predicates
// address fields through the tag's schema.
//
// COMPATIBILITY: Tags and per-operation field indices are part of the
// custom-authority schema and must never be renumbered.
type OperationType uint8

const (
	OpTransfer OperationType = iota
	OpAccountUpdate
	OpCustomAuthorityCreate
	OpHTLCCreate
	OpHTLCRedeem
)

// String returns the operation type name
func (t OperationType) String() string {
	switch t {
	case OpTransfer:
		return "transfer"
	case OpAccountUpdate:
		return "account_update"
	case OpCustomAuthorityCreate:
		return "custom_authority_create"
	case OpHTLCCreate:
		return "htlc_create"
	case OpHTLCRedeem:
		return "htlc_redeem"
	default:
		return fmt.Sprintf("operation(%d)", uint8(t))
	}
}

// IsValid reports whether the tag names a known operation kind
func (t OperationType) IsValid() bool {
	return t <= OpHTLCRedeem
}

// RequiredAuthority names an account whose authority an operation must
// prove, and at which level.
type RequiredAuthority struct {
	Account AccountName
	Level   AuthorityLevel
}

// Operation is the interface all operation kinds implement.
//
// Field exposes the operation's structural field schema for custom-authority
// restrictions: a stable index into the operation's fields, returning one of
// the comparable field kinds (AccountName, string, uint64, Coin). An index
// outside the schema returns ErrUnknownField.
type Operation interface {
	// Type returns the operation's closed type tag
	Type() OperationType

	// ValidateBasic performs stateless validation
	ValidateBasic() error

	// RequiredAuthorities returns the accounts that must authorize this
	// operation and the level each must be proven at
	RequiredAuthorities() []RequiredAuthority

	// Field returns the value at a stable structural field index
	Field(index int) (any, error)
}
