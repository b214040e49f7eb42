package store

import (
	"encoding/json"
	"fmt"
)

// JSONSerializer encodes records as JSON. Ledger record types are fixed
// structs whose map fields are key-sorted by encoding/json, so identical
// records always produce identical bytes; the merkle root depends on it.
type JSONSerializer[T any] struct{}

// NewJSONSerializer creates a JSON serializer for a record type
func NewJSONSerializer[T any]() *JSONSerializer[T] {
	return &JSONSerializer[T]{}
}

// Marshal encodes a record
func (s *JSONSerializer[T]) Marshal(obj T) ([]byte, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return raw, nil
}

// Unmarshal decodes a record
func (s *JSONSerializer[T]) Unmarshal(data []byte) (T, error) {
	var obj T
	if err := json.Unmarshal(data, &obj); err != nil {
		return obj, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return obj, nil
}
