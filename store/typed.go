package store

import "fmt"

// TypedStore layers a Serializer over a BackingStore, giving the domain
// stores Get/Set over concrete record types.
type TypedStore[T any] struct {
	backing    BackingStore
	serializer Serializer[T]
}

// NewTypedStore creates a typed store
func NewTypedStore[T any](backing BackingStore, serializer Serializer[T]) *TypedStore[T] {
	if backing == nil {
		panic("backing store cannot be nil")
	}
	if serializer == nil {
		panic("serializer cannot be nil")
	}
	return &TypedStore[T]{
		backing:    backing,
		serializer: serializer,
	}
}

// Get retrieves and decodes an object by key
func (ts *TypedStore[T]) Get(key []byte) (T, error) {
	var zero T
	if ts == nil {
		return zero, ErrStoreNil
	}
	raw, err := ts.backing.Get(key)
	if err != nil {
		return zero, err
	}
	obj, err := ts.serializer.Unmarshal(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return obj, nil
}

// Set encodes and stores an object
func (ts *TypedStore[T]) Set(key []byte, value T) error {
	if ts == nil {
		return ErrStoreNil
	}
	raw, err := ts.serializer.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return ts.backing.Set(key, raw)
}

// Delete removes an object by key
func (ts *TypedStore[T]) Delete(key []byte) error {
	if ts == nil {
		return ErrStoreNil
	}
	return ts.backing.Delete(key)
}

// Has checks if a key exists
func (ts *TypedStore[T]) Has(key []byte) (bool, error) {
	if ts == nil {
		return false, ErrStoreNil
	}
	return ts.backing.Has(key)
}

// Walk visits every stored object in key order, stopping early when the
// callback returns false or an error.
func (ts *TypedStore[T]) Walk(fn func(key []byte, value T) (bool, error)) error {
	if ts == nil {
		return ErrStoreNil
	}
	iter, err := ts.backing.Iterator(nil, nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		obj, err := ts.serializer.Unmarshal(iter.Value())
		if err != nil {
			return fmt.Errorf("%w: key %x: %v", ErrInvalidValue, iter.Key(), err)
		}
		cont, err := fn(iter.Key(), obj)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return iter.Error()
}
