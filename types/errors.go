package types

import "errors"

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")

	// ErrUnknownAccount indicates a lookup for an unregistered account.
	// SECURITY: Callers must treat this as a denial, never as satisfied.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrInvalidAccount indicates an invalid account name
	ErrInvalidAccount = errors.New("invalid account name")

	// ErrMalformedAuthority indicates a degenerate authority structure
	// (zero-weight entries, weight overflow, delegation graph exceeding
	// safety bounds). Fatal: the authority is rejected, not evaluated.
	ErrMalformedAuthority = errors.New("malformed authority")

	// ErrInsufficientAuthority indicates the accumulated signature weight
	// did not reach the required threshold. Recoverable: the caller may
	// add signatures and retry.
	ErrInsufficientAuthority = errors.New("insufficient authority")

	// ErrRestrictionViolation indicates a custom authority predicate
	// failed against the concrete operation. Authorization is denied.
	ErrRestrictionViolation = errors.New("restriction violation")

	// ErrInvalidSignature indicates a malformed or unverifiable signature
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidOperation indicates an invalid operation payload
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrUnknownField indicates a restriction referenced a field index
	// outside the operation's schema
	ErrUnknownField = errors.New("unknown operation field")

	// ErrInvalidTransaction indicates an invalid transaction
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInvalidCoin indicates an invalid coin (empty denom)
	ErrInvalidCoin = errors.New("invalid coin")

	// ErrInsufficientFunds indicates insufficient balance for operation
	ErrInsufficientFunds = errors.New("insufficient funds")
)
