package store

import (
	"bytes"
	"sort"
	"sync"
)

// MemoryStore is a thread-safe in-memory backing store, used for tests and
// for building throwaway validation snapshots.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Get retrieves raw bytes by key
func (ms *MemoryStore) Get(key []byte) ([]byte, error) {
	if ms == nil {
		return nil, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}
	value, ok := ms.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBytes(value), nil
}

// Set stores raw bytes with the given key
func (ms *MemoryStore) Set(key []byte, value []byte) error {
	if ms == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}
	ms.data[string(key)] = copyBytes(value)
	return nil
}

// Delete removes a key
func (ms *MemoryStore) Delete(key []byte) error {
	if ms == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrStoreClosed
	}
	delete(ms.data, string(key))
	return nil
}

// Has checks if a key exists
func (ms *MemoryStore) Has(key []byte) (bool, error) {
	if ms == nil {
		return false, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return false, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return false, ErrStoreClosed
	}
	_, ok := ms.data[string(key)]
	return ok, nil
}

// Iterator iterates a key range in ascending order over a snapshot of the
// store taken at creation time.
func (ms *MemoryStore) Iterator(start, end []byte) (RawIterator, error) {
	if ms == nil {
		return nil, ErrStoreNil
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrStoreClosed
	}

	keys := make([]string, 0, len(ms.data))
	for key := range ms.data {
		kb := []byte(key)
		if start != nil && bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]memEntry, len(keys))
	for i, key := range keys {
		entries[i] = memEntry{
			key:   []byte(key),
			value: copyBytes(ms.data[key]),
		}
	}
	return &memoryIterator{entries: entries}, nil
}

// Flush is a no-op for the memory store
func (ms *MemoryStore) Flush() error {
	if ms == nil {
		return ErrStoreNil
	}
	return nil
}

// Close marks the store closed
func (ms *MemoryStore) Close() error {
	if ms == nil {
		return ErrStoreNil
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.closed = true
	return nil
}

type memEntry struct {
	key   []byte
	value []byte
}

type memoryIterator struct {
	entries []memEntry
	pos     int
	closed  bool
}

func (it *memoryIterator) Valid() bool {
	return !it.closed && it.pos < len(it.entries)
}

func (it *memoryIterator) Next() {
	it.pos++
}

func (it *memoryIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.entries[it.pos].key
}

func (it *memoryIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.entries[it.pos].value
}

func (it *memoryIterator) Error() error {
	return nil
}

func (it *memoryIterator) Close() error {
	it.closed = true
	return nil
}
