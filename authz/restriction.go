package authz

import (
	"errors"
	"fmt"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// ErrIncompatibleRestriction indicates a predicate whose comparator or
// expected value cannot apply to the concrete field's type. Evaluation
// fails closed: the custom authority does not authorize the operation, and
// the error is surfaced to the caller.
var ErrIncompatibleRestriction = errors.New("restriction incompatible with operation field")

// Comparator selects how a restriction compares the operation field
// against its expected value.
type Comparator uint8

const (
	CompareEq Comparator = iota
	CompareNe
	CompareLt
	CompareLe
	CompareGt
	CompareGe
	CompareIn
	CompareNotIn

	// CompareOr groups alternative restriction lists: the predicate
	// holds when at least one branch (itself an implicit AND) holds.
	// FieldIndex is ignored for or-groups.
	CompareOr
)

// String returns the comparator name
func (c Comparator) String() string {
	switch c {
	case CompareEq:
		return "eq"
	case CompareNe:
		return "ne"
	case CompareLt:
		return "lt"
	case CompareLe:
		return "le"
	case CompareGt:
		return "gt"
	case CompareGe:
		return "ge"
	case CompareIn:
		return "in"
	case CompareNotIn:
		return "not_in"
	case CompareOr:
		return "or"
	default:
		return fmt.Sprintf("comparator(%d)", uint8(c))
	}
}

// RestrictionValue is the tagged expected-value variant of a restriction.
// Exactly one member is set, matching the comparator: scalars for
// equality and ordering, lists for membership, branches for or-groups.
// The closed representation keeps custom authorities serializable without
// losing field typing.
type RestrictionValue struct {
	Account  *types.AccountName  `json:"account,omitempty"`
	String   *string             `json:"string,omitempty"`
	Uint     *uint64             `json:"uint,omitempty"`
	Accounts []types.AccountName `json:"accounts,omitempty"`
	Strings  []string            `json:"strings,omitempty"`
	Uints    []uint64            `json:"uints,omitempty"`
	Branches [][]Restriction     `json:"branches,omitempty"`
}

// AccountValue builds a scalar account expected value
func AccountValue(name types.AccountName) RestrictionValue {
	return RestrictionValue{Account: &name}
}

// StringValue builds a scalar string expected value
func StringValue(s string) RestrictionValue {
	return RestrictionValue{String: &s}
}

// UintValue builds a scalar numeric expected value
func UintValue(u uint64) RestrictionValue {
	return RestrictionValue{Uint: &u}
}

// Restriction is a predicate over one structurally indexed field of an
// operation. All restrictions in a custom authority's list must hold
// (logical AND); CompareOr branches encode explicit alternatives.
type Restriction struct {
	// FieldIndex addresses the operation field through its stable
	// structural schema
	FieldIndex int `json:"field_index"`

	// Comparator selects the comparison
	Comparator Comparator `json:"comparator"`

	// Value is the expected value
	Value RestrictionValue `json:"value"`
}

// NewRestriction builds a predicate over a structural field index
func NewRestriction(fieldIndex int, cmp Comparator, value RestrictionValue) Restriction {
	return Restriction{FieldIndex: fieldIndex, Comparator: cmp, Value: value}
}

// OrGroup builds an or-group restriction from alternative branches
func OrGroup(branches ...[]Restriction) Restriction {
	return Restriction{
		Comparator: CompareOr,
		Value:      RestrictionValue{Branches: branches},
	}
}

// EvaluateRestrictions evaluates a predicate list against a concrete
// operation instance. Every predicate must hold; the first failure or
// evaluation error is returned. A nil result means the list is satisfied.
func EvaluateRestrictions(restrictions []Restriction, op types.Operation) error {
	for i, r := range restrictions {
		if err := r.Evaluate(op); err != nil {
			return fmt.Errorf("restriction %d: %w", i, err)
		}
	}
	return nil
}

// Evaluate checks the predicate against the operation. Unknown field
// indices and type-mismatched comparisons are evaluation errors, not false
// negatives to be silently absorbed.
func (r Restriction) Evaluate(op types.Operation) error {
	if r.Comparator == CompareOr {
		return r.evaluateOr(op)
	}

	field, err := op.Field(r.FieldIndex)
	if err != nil {
		return err
	}

	switch r.Comparator {
	case CompareEq, CompareNe:
		return r.evaluateEquality(field)
	case CompareLt, CompareLe, CompareGt, CompareGe:
		return r.evaluateOrdering(field)
	case CompareIn, CompareNotIn:
		return r.evaluateMembership(field)
	default:
		return fmt.Errorf("%w: comparator %s", ErrIncompatibleRestriction, r.Comparator)
	}
}

func (r Restriction) evaluateOr(op types.Operation) error {
	if len(r.Value.Branches) == 0 {
		return fmt.Errorf("%w: or-group with no branches", ErrIncompatibleRestriction)
	}
	var lastErr error
	for _, branch := range r.Value.Branches {
		if err := EvaluateRestrictions(branch, op); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("%w: no or-branch satisfied: %v", types.ErrRestrictionViolation, lastErr)
}

func (r Restriction) evaluateEquality(field any) error {
	var equal bool
	switch v := field.(type) {
	case types.AccountName:
		if r.Value.Account == nil {
			return typeMismatch(r, field)
		}
		equal = v == *r.Value.Account
	case string:
		if r.Value.String == nil {
			return typeMismatch(r, field)
		}
		equal = v == *r.Value.String
	case uint64:
		if r.Value.Uint == nil {
			return typeMismatch(r, field)
		}
		equal = v == *r.Value.Uint
	default:
		return typeMismatch(r, field)
	}

	if r.Comparator == CompareNe {
		equal = !equal
	}
	if !equal {
		return fmt.Errorf("%w: field %d %s check failed", types.ErrRestrictionViolation, r.FieldIndex, r.Comparator)
	}
	return nil
}

func (r Restriction) evaluateOrdering(field any) error {
	v, ok := field.(uint64)
	if !ok || r.Value.Uint == nil {
		return typeMismatch(r, field)
	}
	want := *r.Value.Uint

	var holds bool
	switch r.Comparator {
	case CompareLt:
		holds = v < want
	case CompareLe:
		holds = v <= want
	case CompareGt:
		holds = v > want
	case CompareGe:
		holds = v >= want
	}
	if !holds {
		return fmt.Errorf("%w: field %d: %d is not %s %d",
			types.ErrRestrictionViolation, r.FieldIndex, v, r.Comparator, want)
	}
	return nil
}

func (r Restriction) evaluateMembership(field any) error {
	var member bool
	switch v := field.(type) {
	case types.AccountName:
		if r.Value.Accounts == nil {
			return typeMismatch(r, field)
		}
		for _, candidate := range r.Value.Accounts {
			if v == candidate {
				member = true
				break
			}
		}
	case string:
		if r.Value.Strings == nil {
			return typeMismatch(r, field)
		}
		for _, candidate := range r.Value.Strings {
			if v == candidate {
				member = true
				break
			}
		}
	case uint64:
		if r.Value.Uints == nil {
			return typeMismatch(r, field)
		}
		for _, candidate := range r.Value.Uints {
			if v == candidate {
				member = true
				break
			}
		}
	default:
		return typeMismatch(r, field)
	}

	if r.Comparator == CompareNotIn {
		member = !member
	}
	if !member {
		return fmt.Errorf("%w: field %d %s check failed", types.ErrRestrictionViolation, r.FieldIndex, r.Comparator)
	}
	return nil
}

func typeMismatch(r Restriction, field any) error {
	return fmt.Errorf("%w: comparator %s cannot apply to field %d (%T)",
		ErrIncompatibleRestriction, r.Comparator, r.FieldIndex, field)
}
