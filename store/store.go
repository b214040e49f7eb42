// Package store provides the persistence layer for ledger state: a raw
// key-value BackingStore abstraction (in-memory and IAVL-backed), a typed
// store built from a serializer, and the domain stores for accounts,
// balances, custom authorities, HTLC contracts, and key references.
package store

import "errors"

var (
	// ErrNotFound is returned when a key is not found in the store
	ErrNotFound = errors.New("key not found")

	// ErrInvalidKey is returned when a key is empty or nil
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidValue is returned when a value is invalid
	ErrInvalidValue = errors.New("invalid value")

	// ErrStoreNil is returned when a store is nil
	ErrStoreNil = errors.New("store is nil")

	// ErrStoreClosed is returned when a store is used after Close
	ErrStoreClosed = errors.New("store is closed")
)

// BackingStore is the raw key-value storage abstraction implemented by the
// in-memory store and the IAVL store.
type BackingStore interface {
	// Get retrieves raw bytes by key, ErrNotFound when absent
	Get(key []byte) ([]byte, error)

	// Set stores raw bytes with the given key
	Set(key []byte, value []byte) error

	// Delete removes a key
	Delete(key []byte) error

	// Has checks if a key exists
	Has(key []byte) (bool, error)

	// Iterator iterates keys in [start, end) ascending; nil bounds are
	// open-ended
	Iterator(start, end []byte) (RawIterator, error)

	// Flush writes pending changes
	Flush() error

	// Close releases resources
	Close() error
}

// RawIterator is an iterator over raw key-value pairs
type RawIterator interface {
	// Valid returns true if positioned at a valid entry
	Valid() bool

	// Next advances to the next entry
	Next()

	// Key returns the current key
	Key() []byte

	// Value returns the current value
	Value() []byte

	// Error returns any error that occurred during iteration
	Error() error

	// Close releases iterator resources
	Close() error
}

// Serializer handles serialization and deserialization of stored objects
type Serializer[T any] interface {
	// Marshal converts an object to bytes
	Marshal(obj T) ([]byte, error)

	// Unmarshal converts bytes to an object
	Unmarshal(data []byte) (T, error)
}

// validateKey checks if a key is usable
func validateKey(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	return nil
}

// copyBytes returns an independent copy of a byte slice
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	result := make([]byte, len(b))
	copy(result, b)
	return result
}
