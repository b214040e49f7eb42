package store

import "bytes"

// PrefixStore wraps a BackingStore and prefixes all keys, giving each
// domain store its own namespace within one backing tree.
type PrefixStore struct {
	parent BackingStore
	prefix []byte
}

// NewPrefixStore creates a new prefix store
func NewPrefixStore(parent BackingStore, prefix []byte) *PrefixStore {
	if parent == nil {
		panic("parent store cannot be nil")
	}
	if len(prefix) == 0 {
		panic("prefix cannot be empty")
	}
	return &PrefixStore{
		parent: parent,
		prefix: copyBytes(prefix),
	}
}

func (ps *PrefixStore) prefixKey(key []byte) []byte {
	prefixed := make([]byte, len(ps.prefix)+len(key))
	copy(prefixed, ps.prefix)
	copy(prefixed[len(ps.prefix):], key)
	return prefixed
}

// Get retrieves raw bytes by key
func (ps *PrefixStore) Get(key []byte) ([]byte, error) {
	if ps == nil {
		return nil, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return ps.parent.Get(ps.prefixKey(key))
}

// Set stores raw bytes with the given key
func (ps *PrefixStore) Set(key []byte, value []byte) error {
	if ps == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}
	return ps.parent.Set(ps.prefixKey(key), value)
}

// Delete removes a key
func (ps *PrefixStore) Delete(key []byte) error {
	if ps == nil {
		return ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return err
	}
	return ps.parent.Delete(ps.prefixKey(key))
}

// Has checks if a key exists
func (ps *PrefixStore) Has(key []byte) (bool, error) {
	if ps == nil {
		return false, ErrStoreNil
	}
	if err := validateKey(key); err != nil {
		return false, err
	}
	return ps.parent.Has(ps.prefixKey(key))
}

// Iterator iterates the prefixed key range, stripping the prefix from
// yielded keys
func (ps *PrefixStore) Iterator(start, end []byte) (RawIterator, error) {
	if ps == nil {
		return nil, ErrStoreNil
	}

	lo := ps.prefixKey(start)
	var hi []byte
	if end != nil {
		hi = ps.prefixKey(end)
	} else {
		hi = prefixEnd(ps.prefix)
	}

	inner, err := ps.parent.Iterator(lo, hi)
	if err != nil {
		return nil, err
	}
	return &prefixIterator{inner: inner, prefix: ps.prefix}, nil
}

// Flush delegates to the parent
func (ps *PrefixStore) Flush() error {
	if ps == nil {
		return ErrStoreNil
	}
	return ps.parent.Flush()
}

// Close is a no-op; the parent owns the underlying resources
func (ps *PrefixStore) Close() error {
	if ps == nil {
		return ErrStoreNil
	}
	return nil
}

// prefixEnd returns the smallest key greater than every key with the
// given prefix, or nil when the prefix is all 0xff.
func prefixEnd(prefix []byte) []byte {
	end := copyBytes(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

type prefixIterator struct {
	inner  RawIterator
	prefix []byte
}

func (it *prefixIterator) Valid() bool {
	return it.inner.Valid() && bytes.HasPrefix(it.inner.Key(), it.prefix)
}

func (it *prefixIterator) Next() {
	it.inner.Next()
}

func (it *prefixIterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.inner.Key()[len(it.prefix):]
}

func (it *prefixIterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.inner.Value()
}

func (it *prefixIterator) Error() error {
	return it.inner.Error()
}

func (it *prefixIterator) Close() error {
	return it.inner.Close()
}
