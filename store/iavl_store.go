package store

import (
	"fmt"
	"sync"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/iavl"
	ics23 "github.com/cosmos/ics23/go"
)

// IAVLStore is an IAVL-backed BackingStore. It provides versioned,
// merkle-committed ledger state: Flush saves a tree version whose root
// hash commits to every account, balance, grant, and contract record.
type IAVLStore struct {
	mu      sync.RWMutex
	tree    *iavl.MutableTree
	version int64
	closed  bool
}

// NewIAVLStore creates an IAVL-backed store over the given database,
// loading the latest saved version if one exists.
func NewIAVLStore(db dbm.DB, cacheSize int, logger log.Logger) (*IAVLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	tree := iavl.NewMutableTree(db, cacheSize, false, logger)
	version, err := tree.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree: %w", err)
	}

	return &IAVLStore{
		tree:    tree,
		version: version,
	}, nil
}

// Get retrieves raw bytes by key
func (s *IAVLStore) Get(key []byte) ([]byte, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	value, err := s.tree.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	if value == nil {
		return nil, ErrNotFound
	}
	return copyBytes(value), nil
}

// Set stores raw bytes with the given key
func (s *IAVLStore) Set(key []byte, value []byte) error {
	if s == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, err := s.tree.Set(copyBytes(key), copyBytes(value)); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Delete removes a key
func (s *IAVLStore) Delete(key []byte) error {
	if s == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, _, err := s.tree.Remove(key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Has checks if a key exists
func (s *IAVLStore) Has(key []byte) (bool, error) {
	if s == nil {
		return false, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrStoreClosed
	}
	has, err := s.tree.Has(key)
	if err != nil {
		return false, fmt.Errorf("failed to check key: %w", err)
	}
	return has, nil
}

// Iterator iterates a key range in ascending order
func (s *IAVLStore) Iterator(start, end []byte) (RawIterator, error) {
	if s == nil {
		return nil, ErrStoreNil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	iter, err := s.tree.Iterator(start, end, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	return &iavlIterator{iter: iter}, nil
}

// Flush saves a new tree version
func (s *IAVLStore) Flush() error {
	_, _, err := s.SaveVersion()
	return err
}

// SaveVersion saves the current state as a new version and returns the
// merkle root hash and version number.
func (s *IAVLStore) SaveVersion() ([]byte, int64, error) {
	if s == nil {
		return nil, 0, ErrStoreNil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, 0, ErrStoreClosed
	}
	hash, version, err := s.tree.SaveVersion()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to save version: %w", err)
	}
	s.version = version
	return copyBytes(hash), version, nil
}

// Hash returns the merkle root hash of the working tree
func (s *IAVLStore) Hash() []byte {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil
	}
	return copyBytes(s.tree.Hash())
}

// GetProof generates an ics23 commitment proof for a key at the latest
// saved version.
func (s *IAVLStore) GetProof(key []byte) (*ics23.CommitmentProof, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	proof, err := s.tree.GetVersionedProof(key, s.version)
	if err != nil {
		return nil, fmt.Errorf("failed to get proof: %w", err)
	}
	return proof, nil
}

// Version returns the latest saved version number
func (s *IAVLStore) Version() int64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Close marks the store closed. The IAVL tree itself holds no resources
// beyond its database, which the caller owns.
func (s *IAVLStore) Close() error {
	if s == nil {
		return ErrStoreNil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type iavlIterator struct {
	iter   dbm.Iterator
	closed bool
}

func (it *iavlIterator) Valid() bool {
	return !it.closed && it.iter.Valid()
}

func (it *iavlIterator) Next() {
	if it.Valid() {
		it.iter.Next()
	}
}

func (it *iavlIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.iter.Key()
}

func (it *iavlIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.iter.Value()
}

func (it *iavlIterator) Error() error {
	return it.iter.Error()
}

func (it *iavlIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.iter.Close()
}
