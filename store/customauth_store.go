package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/scanboards/r-squared-core-indexer/authz"
	"github.com/scanboards/r-squared-core-indexer/types"
)

// CustomAuthorityStore persists delegated-authority grants keyed by grantor
// and grant id, so a grantor's grants enumerate in creation order.
type CustomAuthorityStore struct {
	store    *TypedStore[authz.CustomAuthority]
	sequence *Sequence
}

// NewCustomAuthorityStore creates a grant store namespaced within the
// backing store
func NewCustomAuthorityStore(backing BackingStore) *CustomAuthorityStore {
	prefixed := NewPrefixStore(backing, []byte("custauth/"))
	return &CustomAuthorityStore{
		store:    NewTypedStore[authz.CustomAuthority](NewPrefixStore(prefixed, []byte("g/")), NewJSONSerializer[authz.CustomAuthority]()),
		sequence: NewSequence(prefixed, []byte("seq")),
	}
}

func grantKey(grantor types.AccountName, id authz.CustomAuthorityID) []byte {
	key := make([]byte, 0, len(grantor)+9)
	key = append(key, []byte(grantor)...)
	key = append(key, '/')
	key = binary.BigEndian.AppendUint64(key, uint64(id))
	return key
}

// NextID allocates the next grant identifier, starting from 1
func (cs *CustomAuthorityStore) NextID(_ context.Context) (authz.CustomAuthorityID, error) {
	if cs == nil {
		return 0, ErrStoreNil
	}
	next, err := cs.sequence.Next()
	if err != nil {
		return 0, err
	}
	return authz.CustomAuthorityID(next), nil
}

// Set writes a grant record
func (cs *CustomAuthorityStore) Set(_ context.Context, grant authz.CustomAuthority) error {
	if cs == nil {
		return ErrStoreNil
	}
	if err := grant.ValidateBasic(); err != nil {
		return err
	}
	return cs.store.Set(grantKey(grant.Account, grant.ID), grant)
}

// Get returns a single grant by grantor and id
func (cs *CustomAuthorityStore) Get(_ context.Context, grantor types.AccountName, id authz.CustomAuthorityID) (authz.CustomAuthority, error) {
	if cs == nil {
		return authz.CustomAuthority{}, ErrStoreNil
	}
	grant, err := cs.store.Get(grantKey(grantor, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return authz.CustomAuthority{}, fmt.Errorf("%w: grant %d of %s", types.ErrNotFound, id, grantor)
		}
		return authz.CustomAuthority{}, err
	}
	return grant, nil
}

// Delete removes a grant record
func (cs *CustomAuthorityStore) Delete(_ context.Context, grantor types.AccountName, id authz.CustomAuthorityID) error {
	if cs == nil {
		return ErrStoreNil
	}
	return cs.store.Delete(grantKey(grantor, id))
}

// ByGrantor returns all grants issued by an account, in grant id order
func (cs *CustomAuthorityStore) ByGrantor(_ context.Context, grantor types.AccountName) ([]authz.CustomAuthority, error) {
	if cs == nil {
		return nil, ErrStoreNil
	}
	prefix := append(append([]byte(nil), []byte(grantor)...), '/')
	var grants []authz.CustomAuthority
	err := cs.store.Walk(func(key []byte, grant authz.CustomAuthority) (bool, error) {
		if len(key) < len(prefix) || string(key[:len(prefix)]) != string(prefix) {
			return true, nil
		}
		grants = append(grants, grant)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return grants, nil
}
