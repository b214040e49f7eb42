package authz

import (
	"context"
	"fmt"

	"github.com/scanboards/r-squared-core-indexer/types"
)

// MaxRecursionDepth caps authority delegation depth. The visited set
// already guarantees termination; the depth cap additionally bounds the
// work a deep (non-cyclic) delegation chain can demand from a single
// validation call.
const MaxRecursionDepth = 10

// Resolver evaluates weighted-threshold authorities against a set of
// available signer keys, recursing through account delegation.
type Resolver struct {
	dir Directory
}

// NewResolver creates a resolver over a directory snapshot
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Satisfied reports whether the signer set meets the authority's threshold.
// Account entries are proven by recursively satisfying the referenced
// account's authority at the same level: an owner-level requirement demands
// owner authority all the way down the delegation chain.
//
// The result depends only on the authority snapshot and the signer set;
// weight accumulation is commutative, so map iteration order is
// irrelevant. A malformed authority is a configuration error, never a
// silent false.
func (r *Resolver) Satisfied(ctx context.Context, auth types.Authority, signers types.KeySet, level types.AuthorityLevel) (bool, error) {
	return r.satisfied(ctx, auth, signers, level, make(map[types.AccountName]bool), 0)
}

func (r *Resolver) satisfied(
	ctx context.Context,
	auth types.Authority,
	signers types.KeySet,
	level types.AuthorityLevel,
	visited map[types.AccountName]bool,
	depth int,
) (bool, error) {
	if depth > MaxRecursionDepth {
		return false, fmt.Errorf("%w: delegation depth %d exceeds limit %d",
			types.ErrMalformedAuthority, depth, MaxRecursionDepth)
	}
	if err := auth.ValidateBasic(); err != nil {
		return false, err
	}

	// Threshold 0 is trivially satisfied
	if auth.Threshold == 0 {
		return true, nil
	}

	var total uint64

	// Each directly listed key contributes its weight at most once: the
	// signer set is a set, and map representation forbids duplicate
	// entries, so a key cannot be double-counted within this node.
	for key, weight := range auth.KeyWeights {
		if signers.Has(key) {
			total += weight
			if total >= auth.Threshold {
				return true, nil
			}
		}
	}

	for acct, weight := range auth.AccountWeights {
		// Cycle guard: an account already on the current resolution
		// path contributes nothing via this edge.
		if visited[acct] {
			continue
		}

		account, err := r.dir.GetAccount(ctx, acct)
		if err != nil {
			// An unregistered delegate is a denial of this edge,
			// never an implicit grant.
			if isUnknownAccount(err) {
				continue
			}
			return false, fmt.Errorf("resolving delegate %s: %w", acct, err)
		}

		visited[acct] = true
		ok, err := r.satisfied(ctx, account.AuthorityAt(level), signers, level, visited, depth+1)
		delete(visited, acct)
		if err != nil {
			return false, fmt.Errorf("delegate %s: %w", acct, err)
		}
		if ok {
			total += weight
			if total >= auth.Threshold {
				return true, nil
			}
		}
	}

	return false, nil
}
