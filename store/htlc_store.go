package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/scanboards/r-squared-core-indexer/htlc"
)

// HTLCStore persists hash time-locked contract records keyed by big-endian
// contract id, so id order and iteration order coincide. It satisfies
// htlc.ContractStore.
type HTLCStore struct {
	store    *TypedStore[htlc.Contract]
	sequence *Sequence
}

// NewHTLCStore creates a contract store namespaced within the backing store
func NewHTLCStore(backing BackingStore) *HTLCStore {
	prefixed := NewPrefixStore(backing, []byte("htlc/"))
	return &HTLCStore{
		store:    NewTypedStore[htlc.Contract](NewPrefixStore(prefixed, []byte("c/")), NewJSONSerializer[htlc.Contract]()),
		sequence: NewSequence(prefixed, []byte("seq")),
	}
}

func contractKey(id htlc.ContractID) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// Get returns a contract by id
func (hs *HTLCStore) Get(_ context.Context, id htlc.ContractID) (*htlc.Contract, error) {
	if hs == nil {
		return nil, ErrStoreNil
	}
	contract, err := hs.store.Get(contractKey(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", htlc.ErrUnknownContract, id)
		}
		return nil, err
	}
	return &contract, nil
}

// Set writes a contract record
func (hs *HTLCStore) Set(_ context.Context, contract *htlc.Contract) error {
	if hs == nil {
		return ErrStoreNil
	}
	if contract == nil {
		return fmt.Errorf("%w: nil contract", ErrInvalidValue)
	}
	return hs.store.Set(contractKey(contract.ID), *contract)
}

// NextID allocates the next contract identifier, starting from 1
func (hs *HTLCStore) NextID(_ context.Context) (htlc.ContractID, error) {
	if hs == nil {
		return 0, ErrStoreNil
	}
	next, err := hs.sequence.Next()
	if err != nil {
		return 0, err
	}
	return htlc.ContractID(next), nil
}

// OpenContracts returns all contracts still open, in id order
func (hs *HTLCStore) OpenContracts(_ context.Context) ([]*htlc.Contract, error) {
	if hs == nil {
		return nil, ErrStoreNil
	}
	var open []*htlc.Contract
	err := hs.store.Walk(func(_ []byte, contract htlc.Contract) (bool, error) {
		if contract.Status == htlc.StatusOpen {
			c := contract
			open = append(open, &c)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return open, nil
}
